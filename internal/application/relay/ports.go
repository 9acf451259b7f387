package relay

import (
	"context"

	"concierge-relay-api/internal/domain/entity"
)

// ConfigResolver 定义编排器对远端配置源的最小依赖（port）。
// 由基础设施层提供具体实现（sheetconfig.Resolver）。
type ConfigResolver interface {
	Resolve(ctx context.Context, sheetURL string) (*entity.TenantConfig, error)
}

// ContextAggregator 知识库抓取边界。失败退化为空字符串，不返回错误。
type ContextAggregator interface {
	Fetch(ctx context.Context, locationRef, tenantFolder string) string
}

// ChatAdapter 单一能力的提供商适配器：把统一的
// 历史/提问/系统指令翻译为各家 SDK 的原生请求并取回文本。
type ChatAdapter interface {
	Send(ctx context.Context, history []entity.ChatTurn, query, systemInstruction string) (string, error)
}

// AdapterFactory 按配置选择并构造提供商适配器。
// 构造永不失败：未知提供商回退到默认实现并告警。
type AdapterFactory interface {
	Create(cfg *entity.TenantConfig) ChatAdapter
}

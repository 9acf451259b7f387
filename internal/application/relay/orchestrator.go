// Package relay 实现会话编排：单条消息进，单条回复出
package relay

import (
	"context"
	"fmt"
	"time"

	"concierge-relay-api/internal/application/quota"
	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/internal/domain/repository"
	"concierge-relay-api/pkg/errors"
	"concierge-relay-api/pkg/logger"
	"concierge-relay-api/pkg/metrics"
)

// 面向用户的兜底话术。编排器是内部失败到用户可见文本的
// 唯一翻译层，任何错误都不会越过这里向上抛。
const (
	configMissingReply = "Sorry, the assistant is not configured right now. Please try again in a moment."
	providerErrorReply = "Sorry, I could not process that right now (%s)."
)

// Orchestrator 组合配置解析、知识聚合、历史窗口、成本估算
// 与提供商适配器，完成一次请求/响应循环。
type Orchestrator struct {
	configs   ConfigResolver
	knowledge ContextAggregator
	history   repository.HistoryRepository
	adapters  AdapterFactory
	now       func() time.Time
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	configs ConfigResolver,
	knowledge ContextAggregator,
	history repository.HistoryRepository,
	adapters AdapterFactory,
) *Orchestrator {
	return &Orchestrator{
		configs:   configs,
		knowledge: knowledge,
		history:   history,
		adapters:  adapters,
		now:       time.Now,
	}
}

// Handle 处理一条用户消息并返回回复文本。
// 失败策略逐步不同：配置失败与提供商失败终止本次请求并返回
// 话术；知识抓取与成本估算只降级，绝不阻断。失败路径不写历史。
func (o *Orchestrator) Handle(ctx context.Context, query, userID, sheetURL string, ov entity.Overrides) string {
	requestAt := o.now()

	// 1. 解析配置：没有配置就没有接地，本次请求硬停
	cfg, err := o.configs.Resolve(ctx, sheetURL)
	if err != nil {
		logger.Error(ctx, "config resolution failed", err)
		return configMissingReply
	}

	// 2. 请求级覆盖，不碰共享快照
	cfg = cfg.ApplyOverrides(ov)

	// 3. 聚合接地上下文，失败降级为空串
	contextText := o.knowledge.Fetch(ctx, cfg.ContextLocation(), cfg.ClientFolderName())

	// 4. 成本估算：纯观测，不影响控制流
	est := quota.Estimate(contextText+query, cfg.InputPricePerMillion(), cfg.OutputPricePerMillion())
	metrics.LLMEstimatedCost.WithLabelValues(cfg.ModelName()).Add(est.InputCost + est.OutputCost)
	logger.Info(ctx, "request cost estimated",
		"model", cfg.ModelName(),
		"input_tokens", est.InputTokens,
		"est_output_tokens", est.EstOutputTokens,
		"total_cost", est.TotalCost,
		"currency", est.Currency,
	)

	// 5. 组装系统指令（覆盖优先于内置模板）
	systemInstruction := BuildSystemInstruction(cfg, contextText)

	// 6. 计算历史窗口
	window := o.history.Window(userID)

	// 7. 调用提供商适配器
	adapter := o.adapters.Create(cfg)
	reply, err := adapter.Send(ctx, window, query, systemInstruction)
	if err != nil {
		// 透出底层信息便于运营排查，但不含堆栈；历史不写入
		logger.Error(ctx, "provider call failed", err, "model", cfg.ModelName())
		return fmt.Sprintf(providerErrorReply, providerDetail(err))
	}

	// 8. 成功后写入两条轮次：用户轮带请求时间，助手轮带完成时间
	o.history.Append(userID, entity.NewChatTurn(entity.RoleUser, query, requestAt))
	o.history.Append(userID, entity.NewChatTurn(entity.RoleAssistant, reply, o.now()))

	return reply
}

// providerDetail 提取给用户可见的提供商错误信息
func providerDetail(err error) string {
	appErr := errors.AsAppError(err)
	if appErr.Err != nil {
		return appErr.Err.Error()
	}
	return appErr.Message
}

// Package llm 提供各 LLM 提供商的聊天适配器
package llm

import (
	"context"

	"concierge-relay-api/internal/application/relay"
	"concierge-relay-api/internal/config"
	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/logger"
)

// Factory 按租户配置构造提供商适配器。
// 提供商枚举在配置解析阶段已识别；未知取值在这里回退到
// Gemini 并告警，构造本身永不失败。
type Factory struct {
	providers map[string]config.ProviderConfig
}

// NewFactory 创建适配器工厂
func NewFactory(cfg *config.Config) *Factory {
	providers := map[string]config.ProviderConfig{}
	if cfg != nil {
		providers = cfg.LLM.Providers
	}
	return &Factory{providers: providers}
}

// Create 选择并构造聊天适配器
func (f *Factory) Create(tc *entity.TenantConfig) relay.ChatAdapter {
	provider, ok := tc.Provider()
	if !ok {
		if name := tc.Field(entity.FieldModelProvider); name != "" {
			logger.Warn(context.Background(), "unknown model provider, falling back to gemini",
				"provider", name,
			)
		}
		provider = entity.ProviderGemini
	}

	model := tc.ModelName()
	logger.Debug(context.Background(), "llm adapter selected",
		"provider", string(provider),
		"model", model,
	)

	switch provider {
	case entity.ProviderOpenAI:
		return NewOpenAIAdapter(f.providers["openai"], model)
	default:
		return NewGeminiAdapter(f.providers["gemini"], model)
	}
}

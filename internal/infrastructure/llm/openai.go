package llm

import (
	"context"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"concierge-relay-api/internal/config"
	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/errors"
	"concierge-relay-api/pkg/metrics"
)

// OpenAIAdapter 通过 Chat Completions 协议调用 OpenAI
// 或任何兼容端点（base_url 可配置）。
type OpenAIAdapter struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIAdapter 创建 OpenAI 适配器
func NewOpenAIAdapter(pc config.ProviderConfig, model string) *OpenAIAdapter {
	apiKey := pc.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if pc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(pc.BaseURL))
	}

	return &OpenAIAdapter{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: pc.Timeout,
	}
}

// Send 把统一的历史/提问/系统指令翻译为 Chat Completions 请求。
// 系统指令作为首条 system 消息下发。
func (a *OpenAIAdapter) Send(ctx context.Context, history []entity.ChatTurn, query, systemInstruction string) (string, error) {
	start := time.Now()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemInstruction))
	for _, turn := range history {
		if turn.Role == entity.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Text()))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text()))
		}
	}
	messages = append(messages, openai.UserMessage(query))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	})
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("openai", a.model, "error").Inc()
		return "", errors.Wrap(err, errors.CodeProviderError, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		metrics.LLMCallTotal.WithLabelValues("openai", a.model, "error").Inc()
		return "", errors.New(errors.CodeProviderError, "openai returned no choices")
	}

	metrics.LLMCallTotal.WithLabelValues("openai", a.model, "ok").Inc()
	metrics.LLMCallDuration.WithLabelValues("openai", a.model).Observe(time.Since(start).Seconds())
	return resp.Choices[0].Message.Content, nil
}

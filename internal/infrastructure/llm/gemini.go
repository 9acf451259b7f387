package llm

import (
	"context"
	"os"
	"sync"
	"time"

	"google.golang.org/genai"

	"concierge-relay-api/internal/config"
	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/errors"
	"concierge-relay-api/pkg/metrics"
)

// GeminiAdapter 通过官方 GenAI SDK 调用 Gemini。
// 客户端惰性创建，构造阶段不触网也不失败。
type GeminiAdapter struct {
	apiKey  string
	model   string
	timeout time.Duration

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiAdapter 创建 Gemini 适配器。
// API Key 优先取 provider 配置，缺省回退 GOOGLE_API_KEY 环境变量。
func NewGeminiAdapter(pc config.ProviderConfig, model string) *GeminiAdapter {
	apiKey := pc.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	return &GeminiAdapter{
		apiKey:  apiKey,
		model:   model,
		timeout: pc.Timeout,
	}
}

func (a *GeminiAdapter) ensureClient(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// Send 把统一的历史/提问/系统指令翻译为 Gemini 会话请求
func (a *GeminiAdapter) Send(ctx context.Context, history []entity.ChatTurn, query, systemInstruction string) (string, error) {
	start := time.Now()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	client, err := a.ensureClient(ctx)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("gemini", a.model, "error").Inc()
		return "", errors.Wrap(err, errors.CodeProviderError, "create gemini client")
	}

	chat, err := client.Chats.Create(ctx, a.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}, toGeminiHistory(history))
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("gemini", a.model, "error").Inc()
		return "", errors.Wrap(err, errors.CodeProviderError, "start gemini chat")
	}

	res, err := chat.SendMessage(ctx, genai.Part{Text: query})
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("gemini", a.model, "error").Inc()
		return "", errors.Wrap(err, errors.CodeProviderError, "gemini send message")
	}

	metrics.LLMCallTotal.WithLabelValues("gemini", a.model, "ok").Inc()
	metrics.LLMCallDuration.WithLabelValues("gemini", a.model).Observe(time.Since(start).Seconds())
	return res.Text(), nil
}

// toGeminiHistory 映射角色：assistant 在 Gemini 协议中是 model。
// 时间戳不随历史下发。
func toGeminiHistory(history []entity.ChatTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == entity.RoleAssistant {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, &genai.Part{Text: p})
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

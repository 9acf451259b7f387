package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge-relay-api/internal/application/relay"
	"concierge-relay-api/internal/config"
	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/internal/infrastructure/session"
)

type echoResolver struct{}

func (echoResolver) Resolve(_ context.Context, _ string) (*entity.TenantConfig, error) {
	return entity.NewTenantConfig(nil), nil
}

type emptyAggregator struct{}

func (emptyAggregator) Fetch(_ context.Context, _, _ string) string { return "" }

type echoAdapter struct{}

func (echoAdapter) Send(_ context.Context, _ []entity.ChatTurn, query, _ string) (string, error) {
	return "echo: " + query, nil
}

type echoFactory struct{}

func (echoFactory) Create(_ *entity.TenantConfig) relay.ChatAdapter { return echoAdapter{} }

type capturingHistory struct {
	userIDs []string
}

func (c *capturingHistory) Window(_ string) []entity.ChatTurn { return nil }

func (c *capturingHistory) Append(userID string, _ entity.ChatTurn) {
	c.userIDs = append(c.userIDs, userID)
}

func newTestHandler() *ChatHandler {
	cfg := &config.Config{}
	cfg.Relay.ConfigSheetURL = "https://example.com/sheet"
	cfg.Relay.ContextURL = "https://example.com/ctx"

	orch := relay.NewOrchestrator(echoResolver{}, emptyAggregator{}, session.NewMemoryStore(), echoFactory{})
	return NewChatHandler(cfg, orch)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := newTestHandler()

	r := gin.New()
	r.POST("/api/chat", h.Chat)
	r.POST("/webhook", h.Webhook)
	r.GET("/api/dashboard-config", h.DashboardConfig)
	return r
}

func TestChatReturnsReply(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hello","userId":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"echo: hello"}`, w.Body.String())
}

func TestChatSynthesizesDemoUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Relay.ConfigSheetURL = "https://example.com/sheet"

	hist := &capturingHistory{}
	orch := relay.NewOrchestrator(echoResolver{}, emptyAggregator{}, hist, echoFactory{})
	h := NewChatHandler(cfg, orch)

	r := gin.New()
	r.POST("/api/chat", h.Chat)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, hist.userIDs, 2)
	assert.True(t, strings.HasPrefix(hist.userIDs[0], "web_demo_"))
	// 同一请求的两条轮次共享会话键
	assert.Equal(t, hist.userIDs[0], hist.userIDs[1])
}

func TestChatMissingMessage(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"userId":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message is required")
}

func TestWebhookRepliesWithTwiML(t *testing.T) {
	r := newTestRouter()

	form := "Body=when+do+you+open%3F&From=whatsapp%3A%2B886900000001"
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<Response>")
	assert.Contains(t, w.Body.String(), "<Message>echo: when do you open?</Message>")
}

func TestWebhookIgnoresEmptyBody(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("From=whatsapp%3A%2B886900000001"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDashboardConfig(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard-config", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"context_url":"https://example.com/ctx"}`, w.Body.String())
}

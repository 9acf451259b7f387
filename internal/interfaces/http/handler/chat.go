// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"concierge-relay-api/internal/application/relay"
	"concierge-relay-api/internal/config"
	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/internal/interfaces/http/dto"
	"concierge-relay-api/pkg/logger"
)

// ChatHandler 消息入口处理器：Web 模拟器与 WhatsApp Webhook
type ChatHandler struct {
	cfg  *config.Config
	orch *relay.Orchestrator
}

// NewChatHandler 创建消息处理器
func NewChatHandler(cfg *config.Config, orch *relay.Orchestrator) *ChatHandler {
	return &ChatHandler{cfg: cfg, orch: orch}
}

// Chat 处理 Web 模拟器消息
// POST /api/chat {message, userId, folderOverride?, modelOverride?}
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "message is required")
		return
	}

	// 会话键是不透明字符串；未提供时为该访客合成一个演示键
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "web_demo_" + uuid.New().String()
	}

	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
	if req.FolderOverride != "" {
		ctx = logger.WithContext(ctx, logger.FolderKey, req.FolderOverride)
	}

	reply := h.orch.Handle(ctx, req.Message, userID, h.cfg.Relay.ConfigSheetURL, entity.Overrides{
		Folder: req.FolderOverride,
		Model:  req.ModelOverride,
	})

	dto.OK(c, dto.ChatResponse{Response: reply})
}

// twimlResponse Twilio 期望的 XML 回复体
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Webhook 处理 WhatsApp 入站消息（Twilio 表单编码）。
// 回复直接以 TwiML 写回响应体，无需出站投递客户端。
// POST /webhook
func (h *ChatHandler) Webhook(c *gin.Context) {
	body := strings.TrimSpace(c.PostForm("Body"))
	sender := strings.TrimSpace(c.PostForm("From"))
	if body == "" || sender == "" {
		c.Status(http.StatusOK)
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, sender)
	logger.Info(ctx, "whatsapp message received")

	reply := h.orch.Handle(ctx, body, sender, h.cfg.Relay.ConfigSheetURL, entity.Overrides{})

	c.XML(http.StatusOK, twimlResponse{Message: reply})
}

// DashboardConfig 返回静态面板的引导配置
// GET /api/dashboard-config
func (h *ChatHandler) DashboardConfig(c *gin.Context) {
	dto.OK(c, dto.DashboardConfigResponse{
		ContextURL: h.cfg.Relay.ContextURL,
	})
}

// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"concierge-relay-api/internal/application/relay"
	"concierge-relay-api/internal/infrastructure/cache"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	configs  relay.ConfigResolver
	sheetURL string
	redis    *cache.Client
}

// NewHealthHandler 创建健康检查处理器。redis 可为 nil（未启用限流）。
func NewHealthHandler(configs relay.ConfigResolver, sheetURL string, redisClient *cache.Client) *HealthHandler {
	return &HealthHandler{
		configs:  configs,
		sheetURL: sheetURL,
		redis:    redisClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 就绪检查接口：验证配置源可达，以及已启用的 Redis
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"config_source": {Status: "unknown"},
	}
	ready := true

	// 配置源（必需）：不可达时无法接地任何回复
	start := time.Now()
	_, err := h.configs.Resolve(ctx, h.sheetURL)
	checks["config_source"].LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		checks["config_source"].Status = "error"
		checks["config_source"].Error = err.Error()
		ready = false
	} else {
		checks["config_source"].Status = "ok"
	}

	// Redis（可选，仅限流启用时检查）
	if h.redis != nil {
		checks["redis"] = &readinessCheck{Status: "unknown"}
		start = time.Now()
		err = h.redis.HealthCheck(ctx)
		checks["redis"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["redis"].Status = "error"
			checks["redis"].Error = err.Error()
			ready = false
		} else {
			checks["redis"].Status = "ok"
		}
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

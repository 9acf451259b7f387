// Package main 会话中继服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"concierge-relay-api/internal/application/relay"
	"concierge-relay-api/internal/config"
	"concierge-relay-api/internal/infrastructure/cache"
	"concierge-relay-api/internal/infrastructure/knowledge"
	"concierge-relay-api/internal/infrastructure/llm"
	"concierge-relay-api/internal/infrastructure/session"
	"concierge-relay-api/internal/infrastructure/sheetconfig"
	"concierge-relay-api/internal/interfaces/http/handler"
	"concierge-relay-api/internal/interfaces/http/middleware"
	"concierge-relay-api/internal/interfaces/http/router"
	"concierge-relay-api/pkg/logger"
	"concierge-relay-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting concierge-relay-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Redis 仅限流使用，可不配置
	var redisClient *cache.Client
	var rateLimit gin.HandlerFunc
	if cfg.Cache.Redis.Enabled {
		redisClient, err = cache.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()

		rateLimit = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Enabled:           cfg.Security.RateLimit.Enabled,
			RequestsPerMinute: cfg.Security.RateLimit.RequestsPerMinute,
		}, redisClient.Redis())
	}

	// 组装会话编排流水线
	resolver := sheetconfig.NewResolver(cfg.Relay.FetchTimeout)
	aggregator := knowledge.NewAggregator(cfg.Relay.FetchTimeout)
	history := session.NewMemoryStore()
	factory := llm.NewFactory(cfg)
	orchestrator := relay.NewOrchestrator(resolver, aggregator, history, factory)

	chatHandler := handler.NewChatHandler(cfg, orchestrator)
	healthHandler := handler.NewHealthHandler(resolver, cfg.Relay.ConfigSheetURL, redisClient)

	r := router.New(cfg, chatHandler, healthHandler, rateLimit)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couplediary/diary/handlers"
	"github.com/couplediary/diary/internal/bootstrap"
	"github.com/couplediary/diary/internal/config"
	"github.com/couplediary/diary/internal/diary/handler"
	"github.com/couplediary/diary/pkg/logger"
	"github.com/couplediary/diary/pkg/metrics"
	"github.com/couplediary/diary/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warnf("close resources failed: %v", err)
		}
	}()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = 8 << 20

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	handlers.RegisterHealth(r, app.StartedAt, app.Ready)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var createMW []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && app.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			createMW = append(createMW, middleware.RedisRateLimitMiddleware(app.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			createMW = append(createMW, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	limits := handler.Limits{
		MinImages:     cfg.Diary.MinImages,
		MaxImages:     cfg.Diary.MaxImages,
		MaxImageBytes: cfg.Diary.MaxImageBytes,
	}
	handler.RegisterDiaryRoutes(r, app.Store, app.Renderer, limits, createMW...)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("diary service listening on %s (index=%s payload=%s)", server.Addr, cfg.Storage.Index, cfg.Storage.Payload)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server shutdown failed: %v", err)
	}
}

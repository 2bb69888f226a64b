package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elevate/internal/common/cache"
	commonmw "elevate/internal/common/http/middleware"
	"elevate/internal/judge/client"
	"elevate/internal/judge/controller"
	"elevate/internal/judge/middleware"
	"elevate/internal/judge/repository"
	"elevate/internal/judge/service"
	"elevate/pkg/utils/logger"
	"elevate/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	serviceName    = "elevate-backend"
	serviceVersion = "1.0.0"

	defaultConfigPath = "configs/judge_service.yaml"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	limiterCache, err := buildLimiterCache(appCfg)
	if err != nil {
		logger.Error(context.Background(), "init rate limit cache failed", zap.Error(err))
		return
	}
	defer func() {
		_ = limiterCache.Close()
	}()
	rateService := service.NewRateLimitService(limiterCache, time.Second)

	judgeClient := client.New(appCfg.Judge0)
	store := repository.NewSubmissionStore(appCfg.Store.MaxRecords, appCfg.Store.TerminalTTL)

	scheduler, err := service.NewScheduler(store, judgeClient, appCfg.Scheduler)
	if err != nil {
		logger.Error(context.Background(), "init scheduler failed", zap.Error(err))
		return
	}
	scheduler.Start()

	httpServer := buildHTTPServer(appCfg, scheduler, judgeClient, rateService)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	scheduler.Stop(ctx)
}

// buildLimiterCache prefers Redis when configured and falls back to an
// in-process cache otherwise.
func buildLimiterCache(cfg *AppConfig) (cache.Cache, error) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryCache(), nil
	}
	return cache.NewRedisCacheWithConfig(&cfg.Redis)
}

func buildHTTPServer(cfg *AppConfig, scheduler *service.Scheduler, executor service.Executor, rateService *service.RateLimitService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.CORSMiddleware())
	router.Use(bodyLimit(cfg.Server.MaxBodyBytes))
	router.Use(requestLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "service": serviceName, "version": serviceVersion})
	})
	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})

	judgeController := controller.NewJudgeController(scheduler, executor)
	api := router.Group("/api/judge")
	api.Use(middleware.RateLimitMiddleware(rateService, cfg.RateLimit))
	api.GET("/health", judgeController.Health)
	api.POST("/submit", judgeController.Submit)
	api.GET("/result/:submissionId", judgeController.Result)
	api.POST("/execute", judgeController.Execute)

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

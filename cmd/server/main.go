package main

import (
	"aistudio/internal/api"
	"aistudio/internal/config"
	"aistudio/internal/extractor"
	"aistudio/internal/model"
	"aistudio/internal/service"
	"aistudio/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}

	if err := model.SeedDefaultModelPrices(context.Background(), repo); err != nil {
		logrus.WithError(err).Warn("failed to seed default model prices")
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	media := service.NewMediaPersister(store, cfg.MediaPersistHosts, cfg.MediaPersistWorkers)
	defer media.Stop()

	pricing := service.NewPricing(repo)
	var extractorOpts []extractor.Option
	if len(cfg.ExtractorExcludedHosts) > 0 {
		extractorOpts = append(extractorOpts, extractor.WithExcludedHosts(cfg.ExtractorExcludedHosts...))
	}
	tasks := service.NewTaskService(repo, pricing, extractor.New(extractorOpts...), media)
	credits := service.NewCreditService(repo)

	httpHandler, err := api.NewHTTPHandler(cfg, repo, store, api.Services{
		Tasks:    tasks,
		Credits:  credits,
		Overview: service.NewOverviewService(repo, tasks, credits),
		Pricing:  pricing,
	})
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	reconciler := service.NewRefundReconciler(repo, cfg.ReconcileCron, cfg.ReconcileBatchSize)
	if err := reconciler.Start(); err != nil {
		logrus.WithError(err).Error("failed to start refund reconciler")
		return
	}
	defer reconciler.Stop()

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	httpHandler.RegisterRoutes(r)
	httpHandler.MountFiles(r)

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logrus.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  900 * time.Second,
		WriteTimeout: 900 * time.Second,
		IdleTimeout:  1200 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("服务器启动失败")
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("服务器关闭中")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("graceful shutdown failed")
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Callback-Token")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}

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
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/lockgazer/internal/api/handlers"
	"github.com/langchou/lockgazer/internal/api/keyvox"
	"github.com/langchou/lockgazer/internal/config"
	"github.com/langchou/lockgazer/internal/repository"
	"github.com/langchou/lockgazer/internal/service"
	"github.com/langchou/lockgazer/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Lockgazer", zap.String("port", cfg.ServerPort))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// 执行数据库迁移
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	// 创建 Repository
	eventRepo := repository.NewPinEventRepository(db)
	snapshotRepo := repository.NewLockSnapshotRepository(db)
	stateRepo := repository.NewLockStateRepository(db)

	// 创建 Keyvox API 客户端
	opts := []keyvox.Option{
		keyvox.WithTransport(keyvox.NewHTTPTransport(cfg.KeyvoxTimeout)),
		keyvox.WithLogger(logger.Named("keyvox")),
		keyvox.WithTargetHost(cfg.KeyvoxTargetHost),
	}
	if cfg.KeyvoxDefaultTargetName != "" {
		opts = append(opts, keyvox.WithDefaultTargetName(cfg.KeyvoxDefaultTargetName))
	}
	keyvoxClient := keyvox.NewClient(
		cfg.KeyvoxBaseURL,
		keyvox.Credentials{APIKey: cfg.KeyvoxAPIKey, SecretKey: cfg.KeyvoxSecretKey},
		opts...,
	)

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run(ctx)

	// 创建服务
	pinService := service.NewPinService(logger, keyvoxClient, eventRepo, wsHub)
	lockService := service.NewLockService(
		logger,
		keyvoxClient,
		snapshotRepo,
		stateRepo,
		eventRepo,
		wsHub,
		service.LockServiceConfig{
			PollIDs:     cfg.LockPollIDs,
			PollTimeout: cfg.LockPollTimeout,
		},
	)

	// 新连接先收到所有锁的当前状态
	wsHub.SetInitDataProvider(func() interface{} {
		return lockService.AllStates()
	})

	// 启动锁状态轮询
	if err := lockService.Start(cfg.LockPollSpec); err != nil {
		logger.Error("Failed to start lock polling", zap.Error(err))
	}

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(logger, pinService, lockService, wsHub)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())

	// 注册路由
	handler.RegisterRoutes(router)

	// CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		Debug:            cfg.Debug,
	})

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: corsHandler.Handler(router),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止轮询
	lockService.Stop()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// 关闭 WebSocket Hub
	cancel()

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"limi-configurator/internal/config"
	"limi-configurator/internal/consumer"
	"limi-configurator/internal/database"
	httpapi "limi-configurator/internal/http"
	"limi-configurator/internal/logger"
	"limi-configurator/internal/renderer"
	"limi-configurator/internal/repository"
	"limi-configurator/internal/service"
	"limi-configurator/internal/session"
	"limi-configurator/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "limi-configurator")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis：会话快照、本地存档、待续存暂存
	redisClient := store.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := store.Ping(ctx, redisClient); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	kv := store.NewRedisKV(redisClient)

	// PostgreSQL：账号存档
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	sessionTTL := time.Duration(cfg.Session.TTLSeconds) * time.Second

	// 每个会话一条出站渲染器通道，主题按会话 ID 派生
	channelFactory := func(sessionID string) (renderer.Channel, error) {
		return renderer.NewMQTTChannel(&cfg.MQTT, cfg.Renderer.CommandTopic+"/"+sessionID)
	}
	sessions := session.NewManager(channelFactory, kv, cfg.Session.SnapshotPrefix, sessionTTL, zapLogger)
	go sessions.RunEviction(ctx, time.Minute, sessionTTL)

	// 渲染器入站事件
	rendererConsumer := consumer.NewRendererConsumer(cfg, sessions, zapLogger)
	if err := rendererConsumer.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start renderer consumer", zap.Error(err))
	}

	accounts := service.NewAccountsClient(
		cfg.Accounts.BaseURL,
		time.Duration(cfg.Accounts.TimeoutSeconds)*time.Second,
		zapLogger,
	)
	configsRepo := repository.NewPostgresConfigsRepository(db, zapLogger)
	localStore := repository.NewLocalConfigStore(kv, cfg.Session.LocalStorePrefix, 0, zapLogger)
	persistence := service.NewPersistenceService(
		configsRepo,
		localStore,
		accounts,
		kv,
		cfg.Session.PendingSavePrefix,
		time.Duration(cfg.Session.PendingSaveTTLSeconds)*time.Second,
		zapLogger,
	)

	router := httpapi.NewRouter(zapLogger)
	router.RegisterSessionRoutes(httpapi.NewSessionHandler(sessions, zapLogger))
	router.RegisterConfigRoutes(httpapi.NewConfigHandler(persistence, sessions, zapLogger))

	srv := service.NewServer(cfg.HTTP.Addr, router, zapLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		zapLogger.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	rendererConsumer.Stop()
	_ = redisClient.Close()
	_ = database.Close(db)
}

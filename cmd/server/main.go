package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/api"
	"github.com/qs3c/redact_go_server/internal/api/handler"
	"github.com/qs3c/redact_go_server/internal/database"
	"github.com/qs3c/redact_go_server/internal/pkg/idtoken"
	"github.com/qs3c/redact_go_server/internal/pkg/logger"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/pkg/queue"
	"github.com/qs3c/redact_go_server/internal/pkg/secretbox"
	"github.com/qs3c/redact_go_server/internal/pkg/tron"
	"github.com/qs3c/redact_go_server/internal/pkg/ws"
	"github.com/qs3c/redact_go_server/internal/repository"
	"github.com/qs3c/redact_go_server/internal/service"
)

func main() {
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log, "server")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.Admin.Secret == "" {
		log.Warn().Msg("admin.secret is not set, admin endpoints will reject every request")
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("redis connected")

	box, err := secretbox.New(cfg.Crypto.KeyEncryptionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init key encryption")
	}

	// 身份校验：生产使用 Firebase，本地开发使用 HS256
	var verifier idtoken.Verifier
	if cfg.Auth.FirebaseProjectID != "" {
		verifier = idtoken.NewFirebaseVerifier(cfg.Auth.FirebaseProjectID)
	} else {
		log.Warn().Msg("auth.firebase_project_id is not set, using dev HS256 tokens")
		verifier = idtoken.NewHMACVerifier(cfg.Auth.DevJWTSecret)
	}

	tronClient := tron.NewClient(cfg.Tron.FullHost, cfg.Tron.APIKey, time.Duration(cfg.Tron.TimeoutSeconds)*time.Second)
	syncQueue := queue.NewQueue(rdb, cfg.Worker.SyncQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// 初始化 Service
	entitlementService := service.NewEntitlementService(accountRepo, ledgerRepo, publisher, cfg)
	depositService := service.NewDepositService(accountRepo, tronClient, box, cfg)
	paymentService := service.NewPaymentService(accountRepo, ledgerRepo, tronClient, publisher, syncQueue, cfg)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	// 初始化 Handler
	entitlementHandler := handler.NewEntitlementHandler(entitlementService)
	paymentHandler := handler.NewPaymentHandler(depositService, paymentService)
	adminHandler := handler.NewAdminHandler(entitlementService, paymentService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, verifier, cfg.CORS.AllowedOrigins)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 账户事件（含 worker 发布的）转发到 WebSocket
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		if err := subscriber.Subscribe(ctx, websocketHandler.Dispatch); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("account event subscription stopped")
		}
	}()

	// 初始化 Router
	router := api.NewRouter(
		entitlementHandler,
		paymentHandler,
		adminHandler,
		websocketHandler,
		verifier,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/database"
	"github.com/qs3c/redact_go_server/internal/pkg/cron"
	"github.com/qs3c/redact_go_server/internal/pkg/logger"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/pkg/queue"
	"github.com/qs3c/redact_go_server/internal/pkg/tron"
	"github.com/qs3c/redact_go_server/internal/repository"
	"github.com/qs3c/redact_go_server/internal/service"
	"github.com/qs3c/redact_go_server/internal/worker"
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
	logger.Init(cfg.Log, "worker")

	if _, err := cfg.Billing.Price(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	log.Info().Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("redis connected")

	// 初始化 Queue 和 Pub/Sub
	syncQueue := queue.NewQueue(rdb, cfg.Worker.SyncQueue)
	publisher := pubsub.NewPublisher(rdb)
	tronClient := tron.NewClient(cfg.Tron.FullHost, cfg.Tron.APIKey, time.Duration(cfg.Tron.TimeoutSeconds)*time.Second)

	// 初始化 Repository
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// worker 自身不再投递 payment-check 任务
	paymentService := service.NewPaymentService(accountRepo, ledgerRepo, tronClient, publisher, nil, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 周期扫描，多实例之间用 redsync 互斥
	locker := redsync.New(goredis.NewPool(rdb))
	sweeper := cron.NewService(accountRepo, paymentService, syncQueue, locker, cfg.Worker)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start payment sweep")
	}

	processor := worker.NewProcessor(paymentService, time.Duration(cfg.Tron.TimeoutSeconds+15)*time.Second)
	pool := worker.NewPool(syncQueue, processor, cfg.Worker.MaxWorkers)
	pool.Start(ctx)

	log.Info().Int("max_workers", cfg.Worker.MaxWorkers).Str("queue", cfg.Worker.SyncQueue).Msg("worker started")

	// 等待 context 取消
	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	sweeper.Stop()
	pool.Wait()
	log.Info().Msg("worker shutdown complete")
}

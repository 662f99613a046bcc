package main

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/database"
	"github.com/qs3c/redact_go_server/internal/pkg/logger"
	"github.com/qs3c/redact_go_server/internal/pkg/secretbox"
	"github.com/qs3c/redact_go_server/internal/pkg/tron"
	"github.com/qs3c/redact_go_server/internal/repository"
	"github.com/qs3c/redact_go_server/internal/service"
)

// app 命令行需要的依赖
type app struct {
	cfg         *config.Config
	db          *gorm.DB
	entitlement *service.EntitlementService
	deposit     *service.DepositService
	payment     *service.PaymentService
}

type appOpener func(configPath string) (*app, error)

// openApp 连接数据库并组装 service，命令行不发布账户事件
func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log, "ledgerctl")

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// 未配置密钥时 reveal-key 和生成地址会返回配置错误，其他命令照常可用
	var box *secretbox.Box
	if cfg.Crypto.KeyEncryptionSecret != "" {
		if box, err = secretbox.New(cfg.Crypto.KeyEncryptionSecret); err != nil {
			return nil, err
		}
	}

	tronClient := tron.NewClient(cfg.Tron.FullHost, cfg.Tron.APIKey, time.Duration(cfg.Tron.TimeoutSeconds)*time.Second)
	return newApp(cfg, db, tronClient, box), nil
}

func newApp(cfg *config.Config, db *gorm.DB, gateway service.ChainGateway, box *secretbox.Box) *app {
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	return &app{
		cfg:         cfg,
		db:          db,
		entitlement: service.NewEntitlementService(accountRepo, ledgerRepo, nil, cfg),
		deposit:     service.NewDepositService(accountRepo, gateway, box, cfg),
		payment:     service.NewPaymentService(accountRepo, ledgerRepo, gateway, nil, nil, cfg),
	}
}

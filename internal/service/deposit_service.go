package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/model/dto"
	"github.com/qs3c/redact_go_server/internal/pkg/secretbox"
	"github.com/qs3c/redact_go_server/internal/pkg/tron"
	"github.com/qs3c/redact_go_server/internal/repository"
)

// ChainGateway 链上只读查询和充值账户生成
type ChainGateway interface {
	CreateDepositAccount() (*tron.DepositAccount, error)
	FetchRecentTransfers(ctx context.Context, address, contract string, limit int) ([]tron.Transfer, error)
}

type DepositService struct {
	accountRepo *repository.AccountRepository
	gateway     ChainGateway
	box         *secretbox.Box
	cfg         *config.Config
	now         func() time.Time
}

func NewDepositService(
	accountRepo *repository.AccountRepository,
	gateway ChainGateway,
	box *secretbox.Box,
	cfg *config.Config,
) *DepositService {
	return &DepositService{
		accountRepo: accountRepo,
		gateway:     gateway,
		box:         box,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *DepositService) response(address string) (*dto.DepositAddressResponse, error) {
	price, err := s.cfg.Billing.Price()
	if err != nil {
		return nil, err
	}
	return &dto.DepositAddressResponse{
		OK:        true,
		Address:   address,
		Chain:     model.ChainTRC20,
		Token:     model.TokenUSDT,
		PriceUSDT: json.Number(price.String()),
		Credits:   s.cfg.Billing.MonthlyCredits,
	}, nil
}

// GetOrCreateDepositAddress 返回账户的充值地址，没有则生成
// 地址只写一次，并发请求以先写入者为准
func (s *DepositService) GetOrCreateDepositAddress(ctx context.Context, id string) (*dto.DepositAddressResponse, error) {
	now := s.now()
	if err := s.accountRepo.Ensure(ctx, id, model.DateKey(now)); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.HasDepositAddress() {
		return s.response(*account.DepositAddress)
	}

	if s.box == nil {
		return nil, fmt.Errorf("%w: key encryption secret not configured", config.ErrConfig)
	}

	deposit, err := s.gateway.CreateDepositAccount()
	if err != nil {
		return nil, fmt.Errorf("create deposit account: %w", err)
	}
	enc, err := s.box.Encrypt(deposit.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt private key: %w", err)
	}

	stored, err := s.accountRepo.SetDepositIfAbsent(ctx, id, deposit.Address, enc, now)
	if err != nil {
		return nil, fmt.Errorf("store deposit address: %w", err)
	}
	if !stored {
		account, err = s.accountRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !account.HasDepositAddress() {
			return nil, fmt.Errorf("deposit address for %s not stored", id)
		}
		return s.response(*account.DepositAddress)
	}

	log.Info().Str("account_id", id).Str("address", deposit.Address).Msg("deposit address created")
	return s.response(deposit.Address)
}

// RevealPrivateKey 解密充值地址私钥，仅运维命令行使用
func (s *DepositService) RevealPrivateKey(ctx context.Context, id string) (address, privateKey string, err error) {
	if s.box == nil {
		return "", "", fmt.Errorf("%w: key encryption secret not configured", config.ErrConfig)
	}
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrNoDepositAddress
		}
		return "", "", err
	}
	if !account.HasDepositAddress() || account.DepositPrivateKeyEnc == nil {
		return "", "", ErrNoDepositAddress
	}

	plain, err := s.box.Decrypt(*account.DepositPrivateKeyEnc)
	if err != nil {
		return "", "", fmt.Errorf("decrypt private key: %w", err)
	}
	return *account.DepositAddress, plain, nil
}

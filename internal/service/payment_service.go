package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/pkg/metrics"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/pkg/queue"
	"github.com/qs3c/redact_go_server/internal/pkg/tron"
	"github.com/qs3c/redact_go_server/internal/repository"
)

// chainTag 支付记录主键前缀
const chainTag = "trc20"

// SyncQueue 对账任务队列
type SyncQueue interface {
	Push(ctx context.Context, msg *queue.SyncMessage) error
}

// ReconcileResult 一次对账的结果
// Processed 只有首次确认该交易的调用为 true
type ReconcileResult struct {
	Paid      bool
	Processed bool
	TxID      string
}

// CheckResult 只读检查结果
type CheckResult struct {
	Paid bool
	TxID string
}

type PaymentService struct {
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	gateway     ChainGateway
	matcher     Matcher
	events      EventPublisher
	syncQueue   SyncQueue
	cfg         *config.Config
	now         func() time.Time
}

func NewPaymentService(
	accountRepo *repository.AccountRepository,
	ledgerRepo *repository.LedgerRepository,
	gateway ChainGateway,
	events EventPublisher,
	syncQueue SyncQueue,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		gateway:     gateway,
		matcher:     AmountMatcher{},
		events:      events,
		syncQueue:   syncQueue,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetMatcher 替换默认的金额匹配策略
func (s *PaymentService) SetMatcher(m Matcher) {
	s.matcher = m
}

// findTransfer 查询链上最近转账并匹配，未匹配时记录检查时间
func (s *PaymentService) findTransfer(ctx context.Context, accountID, txidHint string) (*model.Account, *tron.Transfer, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PaymentReconcile.WithLabelValues(metrics.OutcomeNoAddress).Inc()
			return nil, nil, ErrNoDepositAddress
		}
		return nil, nil, err
	}
	if !account.HasDepositAddress() {
		metrics.PaymentReconcile.WithLabelValues(metrics.OutcomeNoAddress).Inc()
		return nil, nil, ErrNoDepositAddress
	}

	price, err := s.cfg.Billing.Price()
	if err != nil {
		return nil, nil, err
	}

	address := *account.DepositAddress
	transfers, err := s.gateway.FetchRecentTransfers(ctx, address, s.cfg.Tron.USDTContract, s.cfg.Tron.TransferWindow)
	if err != nil {
		metrics.PaymentReconcile.WithLabelValues(metrics.OutcomeProviderError).Inc()
		log.Warn().Err(err).Str("account_id", accountID).Msg("fetch transfers failed")
		return nil, nil, fmt.Errorf("fetch transfers: %w", err)
	}

	exp := Expectation{
		Address:   address,
		BaseUnits: tron.ToBaseUnits(price, s.cfg.Tron.TokenDecimals),
		TxIDHint:  strings.TrimSpace(txidHint),
	}
	transfer, ok := s.matcher.Match(transfers, exp)
	if !ok {
		metrics.PaymentReconcile.WithLabelValues(metrics.OutcomeNotFound).Inc()
		if err := s.accountRepo.TouchLastChecked(ctx, accountID, s.now()); err != nil {
			return nil, nil, err
		}
		return account, nil, nil
	}
	return account, transfer, nil
}

// Check 只读检查是否已到账；到账时投递同步任务由 worker 完成确认
func (s *PaymentService) Check(ctx context.Context, accountID, txidHint string) (*CheckResult, error) {
	_, transfer, err := s.findTransfer(ctx, accountID, txidHint)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return &CheckResult{}, nil
	}

	if err := s.accountRepo.TouchLastChecked(ctx, accountID, s.now()); err != nil {
		return nil, err
	}
	if s.syncQueue != nil && !s.alreadyGranted(ctx, transfer.TransactionID) {
		msg := &queue.SyncMessage{AccountID: accountID, TxID: transfer.TransactionID, Source: queue.SourceCheck}
		if err := s.syncQueue.Push(ctx, msg); err != nil {
			log.Warn().Err(err).Str("account_id", accountID).Msg("enqueue payment sync failed")
		}
	}
	return &CheckResult{Paid: true, TxID: transfer.TransactionID}, nil
}

// alreadyGranted 交易已确认且额度已发放时无需再投递同步任务
func (s *PaymentService) alreadyGranted(ctx context.Context, txid string) bool {
	payment, err := s.ledgerRepo.GetPayment(ctx, model.PaymentID(chainTag, txid))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("txid", txid).Msg("load payment failed")
		}
		return false
	}
	return payment.CreditsGranted
}

// Reconcile 查询链上转账，匹配后确认支付、升级套餐并发放额度，同一交易只生效一次
func (s *PaymentService) Reconcile(ctx context.Context, accountID, txidHint string) (*ReconcileResult, error) {
	_, transfer, err := s.findTransfer(ctx, accountID, txidHint)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return &ReconcileResult{}, nil
	}

	price, err := s.cfg.Billing.Price()
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := model.DateKey(now)
	credits := int64(s.cfg.Billing.MonthlyCredits)
	payment := &model.Payment{
		ID:              model.PaymentID(chainTag, transfer.TransactionID),
		AccountID:       accountID,
		Chain:           model.ChainTRC20,
		Token:           model.TokenUSDT,
		AmountQuote:     price.String(),
		AmountBaseUnits: transfer.Value,
		ToAddress:       transfer.To,
		FromAddress:     transfer.From,
		TransactionID:   transfer.TransactionID,
		Status:          model.PaymentConfirmed,
		CreditsAmount:   credits,
		CreditsReason:   "usdt_trc20_monthly_" + price.String(),
	}
	period := repository.PeriodGrant{
		Plan:                    model.PlanPro,
		PeriodEnd:               now.AddDate(0, 0, s.cfg.Billing.PeriodDays),
		MonthlyCreditsAllowance: credits,
	}

	created, err := s.ledgerRepo.ConfirmPayment(ctx, payment, period, today)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	// 确认和发放是两个事务，后到的调用负责补发
	granted, err := s.ledgerRepo.GrantPaymentCredits(ctx, payment.ID, today)
	if err != nil {
		return nil, fmt.Errorf("grant payment credits: %w", err)
	}
	if granted {
		metrics.CreditsGranted.WithLabelValues(metrics.SourcePayment).Add(float64(credits))
	}

	if created {
		metrics.PaymentReconcile.WithLabelValues(metrics.OutcomePaid).Inc()
		log.Info().
			Str("account_id", accountID).
			Str("txid", transfer.TransactionID).
			Str("amount", transfer.Value).
			Msg("payment confirmed")
		s.publishConfirmed(ctx, accountID, transfer.TransactionID, credits)
	} else {
		metrics.PaymentReconcile.WithLabelValues(metrics.OutcomeAlready).Inc()
	}

	return &ReconcileResult{Paid: true, Processed: created, TxID: transfer.TransactionID}, nil
}

// FinishPendingGrants 补发已确认但未发放额度的支付，返回补发笔数
func (s *PaymentService) FinishPendingGrants(ctx context.Context, limit int) (int, error) {
	pending, err := s.ledgerRepo.ListPendingGrants(ctx, limit)
	if err != nil {
		return 0, err
	}

	today := model.DateKey(s.now())
	done := 0
	for _, p := range pending {
		granted, err := s.ledgerRepo.GrantPaymentCredits(ctx, p.ID, today)
		if err != nil {
			log.Error().Err(err).Str("payment_id", p.ID).Msg("finish pending grant failed")
			continue
		}
		if granted {
			done++
			metrics.CreditsGranted.WithLabelValues(metrics.SourcePayment).Add(float64(p.CreditsAmount))
			log.Info().Str("payment_id", p.ID).Str("account_id", p.AccountID).Msg("pending grant finished")
		}
	}
	return done, nil
}

func (s *PaymentService) publishConfirmed(ctx context.Context, accountID, txID string, credits int64) {
	if s.events == nil {
		return
	}
	event := &pubsub.AccountEvent{
		Type:      pubsub.EventPaymentConfirmed,
		AccountID: accountID,
		TxID:      txID,
		Amount:    credits,
	}
	if account, err := s.accountRepo.GetByID(ctx, accountID); err == nil {
		event.Plan = account.Plan
		event.CreditsBalance = account.CreditsBalance
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("publish payment event failed")
	}
}

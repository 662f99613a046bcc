package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/redact_go_server/config"
	"github.com/qs3c/redact_go_server/internal/model"
	"github.com/qs3c/redact_go_server/internal/model/dto"
	"github.com/qs3c/redact_go_server/internal/pkg/metrics"
	"github.com/qs3c/redact_go_server/internal/pkg/pubsub"
	"github.com/qs3c/redact_go_server/internal/repository"
)

const (
	DefaultConsumeReason = "process_image"
	DefaultGrantReason   = "manual_topup"

	defaultLedgerLimit = 20
	maxLedgerLimit     = 100
)

// EventPublisher 账户事件发布，nil 时不发布
type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.AccountEvent) error
}

type EntitlementService struct {
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	events      EventPublisher
	cfg         *config.Config
	now         func() time.Time
}

func NewEntitlementService(
	accountRepo *repository.AccountRepository,
	ledgerRepo *repository.LedgerRepository,
	events EventPublisher,
	cfg *config.Config,
) *EntitlementService {
	return &EntitlementService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		events:      events,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *EntitlementService) today() string {
	return model.DateKey(s.now())
}

// GetEntitlements 读取（必要时创建）账户并计算当前额度
func (s *EntitlementService) GetEntitlements(ctx context.Context, id string) (*dto.Entitlements, error) {
	today := s.today()
	if err := s.accountRepo.Ensure(ctx, id, today); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ProjectEntitlements(account, today, s.cfg.Billing.FreeDailyLimit), nil
}

// ProjectEntitlements 由账户状态推导额度视图
func ProjectEntitlements(account *model.Account, today string, dailyLimit int) *dto.Entitlements {
	used := account.EffectiveDailyUsed(today)

	e := &dto.Entitlements{
		Plan:               account.Plan,
		CreditsBalance:     account.CreditsBalance,
		DailyCreditsUsed:   used,
		DailyLimit:         dailyLimit,
		SubscriptionStatus: account.SubscriptionStatus,
	}
	if account.CurrentPeriodEnd != nil {
		ms := account.CurrentPeriodEnd.UnixMilli()
		e.CurrentPeriodEnd = &ms
	}

	if account.Plan == model.PlanFree || account.Plan == "" {
		e.Plan = model.PlanFree
		e.Remaining = max(0, int64(dailyLimit-used))
		e.Limit = int64(dailyLimit)
	} else {
		e.Remaining = max(0, account.CreditsBalance)
		e.Limit = e.Remaining
	}
	e.CanUse = e.Remaining > 0
	return e
}

// ConsumeCredits 扣减 count 个额度，成功后返回最新额度
func (s *EntitlementService) ConsumeCredits(ctx context.Context, id string, count int64, reason string) (*dto.Entitlements, error) {
	if count <= 0 {
		metrics.ConsumeRejected.WithLabelValues("invalid_count").Inc()
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	if reason == "" {
		reason = DefaultConsumeReason
	}

	err := s.ledgerRepo.Consume(ctx, id, count, reason, s.today(), s.cfg.Billing.FreeDailyLimit)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			metrics.ConsumeRejected.WithLabelValues("insufficient").Inc()
		}
		return nil, err
	}

	ent, err := s.GetEntitlements(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.CreditsConsumed.WithLabelValues(ent.Plan).Add(float64(count))
	return ent, nil
}

// GrantCredits 增加余额，amount <= 0 时不做任何修改
func (s *EntitlementService) GrantCredits(ctx context.Context, id string, amount int64, reason string) error {
	if amount <= 0 {
		return nil
	}
	if reason == "" {
		reason = DefaultGrantReason
	}

	if err := s.ledgerRepo.Grant(ctx, id, amount, reason, s.today()); err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}
	metrics.CreditsGranted.WithLabelValues(metrics.SourceAdmin).Add(float64(amount))

	log.Info().Str("account_id", id).Int64("amount", amount).Str("reason", reason).Msg("credits granted")
	s.publish(ctx, id, pubsub.EventCreditsGranted, amount)
	return nil
}

// SetPlan 管理员设置套餐
func (s *EntitlementService) SetPlan(ctx context.Context, id, plan string) error {
	if !model.ValidPlan(plan) {
		return fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	if err := s.accountRepo.Ensure(ctx, id, s.today()); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	if err := s.accountRepo.SetPlan(ctx, id, plan); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}

	log.Info().Str("account_id", id).Str("plan", plan).Msg("plan set")
	s.publish(ctx, id, pubsub.EventPlanChanged, 0)
	return nil
}

// ListLedger 最近的额度流水
func (s *EntitlementService) ListLedger(ctx context.Context, id string, limit int) (*dto.LedgerResponse, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}

	entries, err := s.ledgerRepo.ListEntries(ctx, id, limit)
	if err != nil {
		return nil, err
	}

	resp := &dto.LedgerResponse{Items: make([]dto.LedgerItem, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, dto.LedgerItem{
			ID:        e.ID,
			Type:      e.Type,
			Amount:    e.Amount,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp, nil
}

func (s *EntitlementService) publish(ctx context.Context, id, eventType string, amount int64) {
	if s.events == nil {
		return
	}
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return
	}
	event := &pubsub.AccountEvent{
		Type:           eventType,
		AccountID:      id,
		Plan:           account.Plan,
		CreditsBalance: account.CreditsBalance,
		Amount:         amount,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("account_id", id).Str("event", eventType).Msg("publish account event failed")
	}
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/redact_go_server/internal/model"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPaymentNotFound     = errors.New("payment not found")
)

// PeriodGrant 支付确认后写入账户的套餐周期
type PeriodGrant struct {
	Plan                    string
	PeriodEnd               time.Time
	MonthlyCreditsAllowance int64
}

// LedgerRepository 额度变更，所有余额修改都在事务内完成并同时写流水
type LedgerRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db, now: time.Now}
}

// lockAccount 不存在则创建，然后加行锁读取
func lockAccount(tx *gorm.DB, id, today string) (*model.Account, error) {
	if err := ensureAccount(tx, id, today); err != nil {
		return nil, err
	}
	var account model.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func appendEntry(tx *gorm.DB, accountID, entryType string, amount int64, reason string) error {
	return tx.Create(&model.LedgerEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      entryType,
		Amount:    amount,
		Reason:    reason,
	}).Error
}

// Consume 扣减额度。free 扣当日免费额度，付费套餐扣余额；额度不足返回 ErrInsufficientCredits 且不做任何修改
func (r *LedgerRepository) Consume(ctx context.Context, id string, count int64, reason, today string, dailyLimit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := lockAccount(tx, id, today)
		if err != nil {
			return err
		}

		if account.Plan == model.PlanFree || account.Plan == "" {
			used := account.EffectiveDailyUsed(today)
			if int64(dailyLimit-used) < count {
				return ErrInsufficientCredits
			}
			err = tx.Model(&model.Account{}).Where("id = ?", id).Updates(map[string]interface{}{
				"daily_credits_used":    used + int(count),
				"last_daily_reset_date": today,
			}).Error
			if err != nil {
				return err
			}
			return appendEntry(tx, id, model.LedgerSpend, count, reason)
		}

		if account.CreditsBalance < count {
			return ErrInsufficientCredits
		}
		err = tx.Model(&model.Account{}).Where("id = ?", id).
			Update("credits_balance", gorm.Expr("credits_balance - ?", count)).Error
		if err != nil {
			return err
		}
		return appendEntry(tx, id, model.LedgerSpend, count, reason)
	})
}

// Grant 增加余额并写 grant 流水，不修改套餐和日期字段
func (r *LedgerRepository) Grant(ctx context.Context, id string, amount int64, reason, today string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return grantInTx(tx, id, amount, reason, today)
	})
}

func grantInTx(tx *gorm.DB, id string, amount int64, reason, today string) error {
	if _, err := lockAccount(tx, id, today); err != nil {
		return err
	}
	err := tx.Model(&model.Account{}).Where("id = ?", id).
		Update("credits_balance", gorm.Expr("credits_balance + ?", amount)).Error
	if err != nil {
		return err
	}
	return appendEntry(tx, id, model.LedgerGrant, amount, reason)
}

// ConfirmPayment 在一个事务内插入支付记录并更新账户套餐
// 支付记录已存在时返回 false，且不做任何修改
func (r *LedgerRepository) ConfirmPayment(ctx context.Context, payment *model.Payment, grant PeriodGrant, today string) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(payment)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if _, err := lockAccount(tx, payment.AccountID, today); err != nil {
			return err
		}
		now := r.now()
		err := tx.Model(&model.Account{}).Where("id = ?", payment.AccountID).Updates(map[string]interface{}{
			"plan":                      grant.Plan,
			"subscription_status":       model.SubscriptionActive,
			"monthly_credits_allowance": grant.MonthlyCreditsAllowance,
			"current_period_end":        grant.PeriodEnd,
			"last_granted_period_end":   grant.PeriodEnd,
			"last_checked_at":           now,
		}).Error
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// GrantPaymentCredits 为已确认的支付发放额度，按 credits_granted 标记保证只发放一次
// 返回 true 表示本次调用完成了发放
func (r *LedgerRepository) GrantPaymentCredits(ctx context.Context, paymentID, today string) (bool, error) {
	granted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", paymentID).First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if payment.CreditsGranted {
			return nil
		}

		if payment.CreditsAmount > 0 {
			if err := grantInTx(tx, payment.AccountID, payment.CreditsAmount, payment.CreditsReason, today); err != nil {
				return err
			}
		}
		err = tx.Model(&model.Payment{}).Where("id = ?", paymentID).Updates(map[string]interface{}{
			"credits_granted":    true,
			"credits_granted_at": r.now(),
		}).Error
		if err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

func (r *LedgerRepository) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPendingGrants 已确认但尚未发放额度的支付
func (r *LedgerRepository) ListPendingGrants(ctx context.Context, limit int) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND credits_granted = ?", model.PaymentConfirmed, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// ListEntries 最近的流水，按时间倒序
func (r *LedgerRepository) ListEntries(ctx context.Context, accountID string, limit int) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CountEntries 账户流水条数
func (r *LedgerRepository) CountEntries(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

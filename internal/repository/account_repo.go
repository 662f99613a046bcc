package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/redact_go_server/internal/model"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// newAccount 新账户默认值
func newAccount(id, today string) *model.Account {
	return &model.Account{
		ID:                 id,
		Plan:               model.PlanFree,
		CreditsBalance:     0,
		DailyCreditsUsed:   0,
		LastDailyResetDate: today,
	}
}

// Ensure 账户不存在时按默认值创建，已存在则不做任何修改
func (r *AccountRepository) Ensure(ctx context.Context, id, today string) error {
	return ensureAccount(r.db.WithContext(ctx), id, today)
}

func ensureAccount(db *gorm.DB, id, today string) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(newAccount(id, today)).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByDepositAddress(ctx context.Context, address string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("deposit_address = ?", address).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Updates(fields).Error
}

// TouchLastChecked 记录最近一次支付轮询时间
func (r *AccountRepository) TouchLastChecked(ctx context.Context, id string, at time.Time) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"last_checked_at": at,
	})
}

// SetPlan 管理员手动设置套餐
func (r *AccountRepository) SetPlan(ctx context.Context, id, plan string) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{
		"plan":                plan,
		"subscription_status": model.SubscriptionManual,
	})
}

// SetDepositIfAbsent 仅在尚未分配地址时写入充值地址和加密私钥
// 返回 false 表示地址已被其他请求写入
func (r *AccountRepository) SetDepositIfAbsent(ctx context.Context, id, address, privateKeyEnc string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND deposit_address IS NULL", id).
		Updates(map[string]interface{}{
			"deposit_address":         address,
			"deposit_private_key_enc": privateKeyEnc,
			"deposit_created_at":      at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListWithDepositAddress 按最近检查时间升序列出已分配充值地址的账户（从未检查过的优先）
func (r *AccountRepository) ListWithDepositAddress(ctx context.Context, limit int) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.WithContext(ctx).
		Where("deposit_address IS NOT NULL").
		Order("CASE WHEN last_checked_at IS NULL THEN 0 ELSE 1 END, last_checked_at ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

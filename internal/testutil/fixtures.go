package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/redact_go_server/internal/model"
)

// TestAccount 创建测试账户，默认 free 套餐、当日未使用
func TestAccount(t *testing.T, db *gorm.DB, opts ...func(*model.Account)) *model.Account {
	t.Helper()

	account := &model.Account{
		ID:                 fmt.Sprintf("uid_%d", time.Now().UnixNano()),
		Plan:               model.PlanFree,
		LastDailyResetDate: model.DateKey(time.Now()),
	}

	for _, opt := range opts {
		opt(account)
	}

	// Select("*") 保证零值字段（如余额 0）也按给定值写入
	if err := db.Select("*").Create(account).Error; err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return account
}

// WithID 设置账户 ID
func WithID(id string) func(*model.Account) {
	return func(a *model.Account) {
		a.ID = id
	}
}

// WithPlan 设置套餐和余额
func WithPlan(plan string, balance int64) func(*model.Account) {
	return func(a *model.Account) {
		a.Plan = plan
		a.CreditsBalance = balance
	}
}

// WithDailyUsed 设置免费额度使用情况
func WithDailyUsed(used int, date string) func(*model.Account) {
	return func(a *model.Account) {
		a.DailyCreditsUsed = used
		a.LastDailyResetDate = date
	}
}

// WithDeposit 设置充值地址
func WithDeposit(address, privateKeyEnc string) func(*model.Account) {
	return func(a *model.Account) {
		now := time.Now()
		a.DepositAddress = &address
		a.DepositPrivateKeyEnc = &privateKeyEnc
		a.DepositCreatedAt = &now
	}
}

// LedgerEntries 读取账户全部流水
func LedgerEntries(t *testing.T, db *gorm.DB, accountID string) []model.LedgerEntry {
	t.Helper()

	var entries []model.LedgerEntry
	if err := db.Where("account_id = ?", accountID).Order("created_at ASC").Find(&entries).Error; err != nil {
		t.Fatalf("Failed to load ledger entries: %v", err)
	}
	return entries
}

// ReloadAccount 重新读取账户
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *model.Account {
	t.Helper()

	var account model.Account
	if err := db.Where("id = ?", id).First(&account).Error; err != nil {
		t.Fatalf("Failed to reload account %s: %v", id, err)
	}
	return &account
}

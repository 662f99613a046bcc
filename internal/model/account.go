package model

import (
	"time"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanTeam = "team"
)

const (
	SubscriptionNone   = "none"
	SubscriptionActive = "active"
	SubscriptionManual = "manual"
)

// ValidPlan 检查套餐取值是否合法
func ValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanPro, PlanTeam:
		return true
	}
	return false
}

// Account 每个身份一条，ID 为身份提供方的 subject
type Account struct {
	ID                      string     `gorm:"primaryKey;size:128" json:"id"`
	Plan                    string     `gorm:"size:20;not null;default:free" json:"plan"`
	CreditsBalance          int64      `gorm:"not null;default:0" json:"credits_balance"`
	MonthlyCreditsAllowance int64      `gorm:"not null;default:0" json:"monthly_credits_allowance"`
	DailyCreditsUsed        int        `gorm:"not null;default:0" json:"daily_credits_used"`
	LastDailyResetDate      string     `gorm:"size:10" json:"last_daily_reset_date"`
	SubscriptionStatus      *string    `gorm:"size:20" json:"subscription_status,omitempty"`
	CurrentPeriodEnd        *time.Time `json:"current_period_end,omitempty"`
	LastGrantedPeriodEnd    *time.Time `json:"last_granted_period_end,omitempty"`
	DepositAddress          *string    `gorm:"size:64;uniqueIndex" json:"deposit_address,omitempty"`
	DepositPrivateKeyEnc    *string    `gorm:"type:text" json:"-"`
	DepositCreatedAt        *time.Time `json:"deposit_created_at,omitempty"`
	LastCheckedAt           *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// HasDepositAddress 是否已分配充值地址
func (a *Account) HasDepositAddress() bool {
	return a.DepositAddress != nil && *a.DepositAddress != ""
}

// DateKey UTC 日期键，格式 YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// EffectiveDailyUsed 当日有效的已用免费额度
// LastDailyResetDate 不是 today 时视为 0（惰性重置），读写路径共用
func (a *Account) EffectiveDailyUsed(today string) int {
	if a.LastDailyResetDate != today || a.DailyCreditsUsed < 0 {
		return 0
	}
	return a.DailyCreditsUsed
}

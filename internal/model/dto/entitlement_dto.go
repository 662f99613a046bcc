package dto

import "time"

// Entitlements 额度视图，每次请求从 Account 重新计算
type Entitlements struct {
	Plan               string  `json:"plan"`
	CanUse             bool    `json:"canUse"`
	Remaining          int64   `json:"remaining"`
	Limit              int64   `json:"limit"`
	CreditsBalance     int64   `json:"creditsBalance"`
	DailyCreditsUsed   int     `json:"dailyCreditsUsed"`
	DailyLimit         int     `json:"dailyLimit"`
	SubscriptionStatus *string `json:"subscriptionStatus"`
	CurrentPeriodEnd   *int64  `json:"currentPeriodEnd"`
}

// ConsumeCreditRequest 扣减额度请求
type ConsumeCreditRequest struct {
	Count  *int64 `json:"count"`
	Reason string `json:"reason" binding:"max=100"`
}

// LedgerItem 流水条目
type LedgerItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// LedgerResponse 流水列表
type LedgerResponse struct {
	Items []LedgerItem `json:"items"`
}

package model

import (
	"time"
)

const (
	ChainTRC20 = "TRC20"
	TokenUSDT  = "USDT"

	PaymentConfirmed = "confirmed"
)

// Payment 每笔链上交易一条，ID = "<chain-tag>_<txid>"
// 记录存在即表示该交易已处理
type Payment struct {
	ID               string     `gorm:"primaryKey;size:100" json:"id"`
	AccountID        string     `gorm:"size:128;not null;index" json:"account_id"`
	Chain            string     `gorm:"size:20;not null" json:"chain"`
	Token            string     `gorm:"size:20;not null" json:"token"`
	AmountQuote      string     `gorm:"size:40" json:"amount_quote"`
	AmountBaseUnits  string     `gorm:"size:40" json:"amount_base_units"`
	ToAddress        string     `gorm:"size:64" json:"to_address"`
	FromAddress      string     `gorm:"size:64" json:"from_address"`
	TransactionID    string     `gorm:"size:80;not null" json:"transaction_id"`
	Status           string     `gorm:"size:20;not null" json:"status"`
	CreditsAmount    int64      `gorm:"not null;default:0" json:"credits_amount"`
	CreditsReason    string     `gorm:"size:100" json:"credits_reason"`
	CreditsGranted   bool       `gorm:"not null;default:false" json:"credits_granted"`
	CreditsGrantedAt *time.Time `json:"credits_granted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// PaymentID 生成支付记录主键
func PaymentID(chainTag, txID string) string {
	return chainTag + "_" + txID
}

package model

import (
	"time"
)

const (
	LedgerSpend = "spend"
	LedgerGrant = "grant"
)

// LedgerEntry 额度流水，只追加不修改
type LedgerEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AccountID string    `gorm:"size:128;not null;index:idx_ledger_account_created,priority:1" json:"account_id"`
	Type      string    `gorm:"size:10;not null" json:"type"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:100" json:"reason"`
	CreatedAt time.Time `gorm:"index:idx_ledger_account_created,priority:2" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "credit_ledger"
}

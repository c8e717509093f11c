package models

import (
	"time"
)

const (
	WalletTxInitialGrant = "initial_grant"
	WalletTxTradeDebit   = "trade_debit"
	WalletTxTradeCredit  = "trade_credit"
	WalletTxPayout       = "payout"
)

// WalletTransaction is an immutable record of one balance delta. ReferenceID
// points at the trade that caused it, or the contract for resolution payouts.
type WalletTransaction struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	WalletID string `gorm:"type:uuid;not null;index"`

	Amount       int64  `gorm:"not null"`
	BalanceAfter int64  `gorm:"not null"`
	Kind         string `gorm:"type:varchar(20);not null;index"`

	ReferenceID *string `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

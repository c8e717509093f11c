package models

import (
	"time"
)

type Wallet struct {
	ID      string `gorm:"primaryKey;type:uuid"`
	OwnerID string `gorm:"type:uuid;not null;uniqueIndex"`

	BalanceTokens int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}

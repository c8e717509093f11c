package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideYes = "yes"
	SideNo  = "no"

	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Trade is an immutable journal row for one executed trade.
type Trade struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	OwnerID    string `gorm:"type:uuid;not null;index"`
	ContractID string `gorm:"type:uuid;not null;index"`

	Side   string `gorm:"type:varchar(10);not null"`
	Action string `gorm:"type:varchar(10);not null"`

	TokensSpent int64           `gorm:"not null"`
	SharesDelta decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Fee         int64           `gorm:"not null"`

	PriceYesAtTrade decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	PriceNoAtTrade  decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Trade) TableName() string {
	return "trades"
}

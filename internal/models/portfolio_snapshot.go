package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PortfolioSnapshot is a periodic net-worth sample per trader, written by the
// snapshot job for leaderboard history.
type PortfolioSnapshot struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	OwnerID string `gorm:"type:uuid;not null;index"`

	BalanceTokens int64           `gorm:"not null"`
	MarkToMarket  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	NetWorth      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Breakdown     datatypes.JSON  `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}

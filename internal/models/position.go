package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position tracks one trader's holdings on one contract. SettledAt doubles as
// the payout-applied marker during resolution: a position is credited at most
// once even if the payout loop is re-run.
type Position struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	OwnerID    string `gorm:"type:uuid;not null;uniqueIndex:idx_positions_owner_contract;index"`
	ContractID string `gorm:"type:uuid;not null;uniqueIndex:idx_positions_owner_contract;index"`

	YesShares decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	NoShares  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	Payout    int64      `gorm:"not null;default:0"`
	SettledAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Position) TableName() string {
	return "positions"
}

// SideShares returns the held share count for the given side.
func (p *Position) SideShares(side string) decimal.Decimal {
	if side == OutcomeNo {
		return p.NoShares
	}
	return p.YesShares
}

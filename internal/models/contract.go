package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ContractStatusActive    = "active"
	ContractStatusResolving = "resolving"
	ContractStatusResolved  = "resolved"

	OutcomeYes = "yes"
	OutcomeNo  = "no"
)

// Contract is one binary-outcome market. YesPool/NoPool store traded tokens
// only; the constant SeedTokens is added to both sides at read time when
// deriving a price.
type Contract struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Title       string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`
	EntityID    string `gorm:"type:varchar(100);index"`

	FeeBps     int   `gorm:"not null;default:50"`
	SeedTokens int64 `gorm:"not null;default:0"`
	YesPool    int64 `gorm:"not null;default:0"`
	NoPool     int64 `gorm:"not null;default:0"`

	Status  string  `gorm:"type:varchar(20);not null;default:'active';index"`
	Outcome *string `gorm:"type:varchar(10)"`

	EndDate    *time.Time     `gorm:"type:timestamptz"`
	ResolvedAt *time.Time     `gorm:"type:timestamptz"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Contract) TableName() string {
	return "contracts"
}

// Expired reports whether the contract's end date has passed at ts.
func (c *Contract) Expired(ts time.Time) bool {
	return c.EndDate != nil && !c.EndDate.IsZero() && !c.EndDate.After(ts)
}

package engine

import (
	"github.com/shopspring/decimal"

	"rebelodds/internal/models"
)

// priceFloor bounds the side price used for share math so a near-empty pool
// cannot mint an unbounded share count.
var priceFloor = decimal.NewFromFloat(0.01)

var half = decimal.NewFromFloat(0.5)

// PriceYes derives the YES price from pool depth. Seed tokens are added to
// both sides at read time only; the stored pools hold traded tokens. Returns
// 0.5 when both live pools are empty and always stays within [0,1].
func PriceYes(yesPool, noPool, seed int64) decimal.Decimal {
	yesLive := decimal.NewFromInt(yesPool + seed)
	noLive := decimal.NewFromInt(noPool + seed)
	total := yesLive.Add(noLive)
	if total.Sign() <= 0 {
		return half
	}
	return yesLive.Div(total)
}

// PriceNo is the exact complement of PriceYes, so the two always sum to 1.
func PriceNo(yesPool, noPool, seed int64) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(PriceYes(yesPool, noPool, seed))
}

// ContractPriceYes derives the YES price for a contract's current pools.
func ContractPriceYes(c *models.Contract) decimal.Decimal {
	return PriceYes(c.YesPool, c.NoPool, c.SeedTokens)
}

// SidePrice returns the price of the requested side, floored at priceFloor
// for use in share math.
func SidePrice(c *models.Contract, side string) decimal.Decimal {
	p := ContractPriceYes(c)
	if side == models.SideNo {
		p = decimal.NewFromInt(1).Sub(p)
	}
	if p.LessThan(priceFloor) {
		return priceFloor
	}
	return p
}

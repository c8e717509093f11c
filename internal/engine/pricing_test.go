package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"rebelodds/internal/models"
)

func TestPriceYesColdStart(t *testing.T) {
	if got := PriceYes(0, 0, 500); !got.Equal(half) {
		t.Fatalf("seeded cold start price = %s, want 0.5", got)
	}
	if got := PriceYes(0, 0, 0); !got.Equal(half) {
		t.Fatalf("unseeded cold start price = %s, want 0.5", got)
	}
}

func TestPriceYesPoolRatio(t *testing.T) {
	// 1000 yes vs 0 no with seed 500: (1000+500)/(1500+500) = 0.75
	got := PriceYes(1000, 0, 500)
	want := decimal.NewFromFloat(0.75)
	if !got.Equal(want) {
		t.Fatalf("price = %s, want %s", got, want)
	}
}

func TestPricesSumToOne(t *testing.T) {
	cases := []struct{ yes, no, seed int64 }{
		{0, 0, 500},
		{1000, 0, 500},
		{1, 999999, 500},
		{7, 13, 0},
		{123456, 654321, 1000},
	}
	one := decimal.NewFromInt(1)
	for _, tc := range cases {
		sum := PriceYes(tc.yes, tc.no, tc.seed).Add(PriceNo(tc.yes, tc.no, tc.seed))
		if !sum.Equal(one) {
			t.Fatalf("yes=%d no=%d seed=%d: price sum = %s, want 1", tc.yes, tc.no, tc.seed, sum)
		}
	}
}

func TestPriceYesBounds(t *testing.T) {
	for _, tc := range []struct{ yes, no, seed int64 }{
		{0, 1000000, 0},
		{1000000, 0, 0},
		{1, 1, 0},
	} {
		p := PriceYes(tc.yes, tc.no, tc.seed)
		if p.Sign() < 0 || p.GreaterThan(decimal.NewFromInt(1)) {
			t.Fatalf("yes=%d no=%d: price %s out of [0,1]", tc.yes, tc.no, p)
		}
	}
}

func TestSidePriceFloor(t *testing.T) {
	// An unseeded contract with a lopsided book would price the thin side
	// near zero; share math must see the floor instead.
	c := &models.Contract{YesPool: 1, NoPool: 1000000, SeedTokens: 0}
	if got := SidePrice(c, models.SideYes); !got.Equal(priceFloor) {
		t.Fatalf("floored yes price = %s, want %s", got, priceFloor)
	}
	if got := SidePrice(c, models.SideNo); got.LessThan(priceFloor) {
		t.Fatalf("no price %s below floor", got)
	}
}

func TestSidePriceComplement(t *testing.T) {
	c := &models.Contract{YesPool: 300, NoPool: 100, SeedTokens: 500}
	yes := SidePrice(c, models.SideYes)
	no := SidePrice(c, models.SideNo)
	if !yes.Add(no).Equal(decimal.NewFromInt(1)) {
		t.Fatalf("side prices %s + %s do not sum to 1", yes, no)
	}
}

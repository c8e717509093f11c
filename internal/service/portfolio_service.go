package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rebelodds/internal/engine"
	"rebelodds/internal/models"
	"rebelodds/internal/repository"
)

// PortfolioService computes wallet plus mark-to-market views. It never
// writes; wallets come into existence through the trade path.
type PortfolioService struct {
	Repo repository.Repository

	// StartingGrant is reported as the implied balance for owners who have
	// never traded and therefore have no wallet row yet.
	StartingGrant int64
}

// PositionValue is one open position marked at the contract's current prices.
type PositionValue struct {
	ContractID    string          `json:"contract_id"`
	ContractTitle string          `json:"contract_title"`
	YesShares     decimal.Decimal `json:"yes_shares"`
	NoShares      decimal.Decimal `json:"no_shares"`
	PriceYes      decimal.Decimal `json:"price_yes"`
	Value         decimal.Decimal `json:"value"`
	Settled       bool            `json:"settled"`
	Payout        int64           `json:"payout"`
}

type Portfolio struct {
	OwnerID       string          `json:"owner_id"`
	BalanceTokens int64           `json:"balance_tokens"`
	MarkToMarket  decimal.Decimal `json:"mark_to_market"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	Positions     []PositionValue `json:"positions"`
}

type LeaderboardEntry struct {
	OwnerID       string          `json:"owner_id"`
	BalanceTokens int64           `json:"balance_tokens"`
	MarkToMarket  decimal.Decimal `json:"mark_to_market"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	Rank          int             `json:"rank"`
}

type Leaderboard struct {
	Entries     []LeaderboardEntry `json:"entries"`
	TotalTrades int64              `json:"total_trades"`
}

func (s *PortfolioService) Portfolio(ctx context.Context, ownerID string) (*Portfolio, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, fmt.Errorf("%w: owner id %q is not a uuid", engine.ErrValidation, ownerID)
	}

	balance := s.StartingGrant
	wallet, err := s.Repo.GetWalletByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load wallet: %v", engine.ErrPersistence, err)
	}
	if wallet != nil {
		balance = wallet.BalanceTokens
	}

	positions, err := s.Repo.ListPositionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list positions: %v", engine.ErrPersistence, err)
	}

	values, mtm, err := s.markPositions(ctx, positions)
	if err != nil {
		return nil, err
	}
	return &Portfolio{
		OwnerID:       ownerID,
		BalanceTokens: balance,
		MarkToMarket:  mtm,
		NetWorth:      decimal.NewFromInt(balance).Add(mtm),
		Positions:     values,
	}, nil
}

// Leaderboard ranks every wallet by net worth, trades settled and open alike,
// and reports the platform-wide trade count alongside.
func (s *PortfolioService) Leaderboard(ctx context.Context, limit int) (*Leaderboard, error) {
	wallets, err := s.Repo.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list wallets: %v", engine.ErrPersistence, err)
	}
	totalTrades, err := s.Repo.CountTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count trades: %v", engine.ErrPersistence, err)
	}

	entries := make([]LeaderboardEntry, 0, len(wallets))
	for i := range wallets {
		w := &wallets[i]
		positions, err := s.Repo.ListPositionsByOwner(ctx, w.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("%w: list positions: %v", engine.ErrPersistence, err)
		}
		_, mtm, err := s.markPositions(ctx, positions)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LeaderboardEntry{
			OwnerID:       w.OwnerID,
			BalanceTokens: w.BalanceTokens,
			MarkToMarket:  mtm,
			NetWorth:      decimal.NewFromInt(w.BalanceTokens).Add(mtm),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].NetWorth.GreaterThan(entries[j].NetWorth)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return &Leaderboard{Entries: entries, TotalTrades: totalTrades}, nil
}

func (s *PortfolioService) History(ctx context.Context, ownerID string, since, until *time.Time, limit, offset int) ([]models.PortfolioSnapshot, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, fmt.Errorf("%w: owner id %q is not a uuid", engine.ErrValidation, ownerID)
	}
	items, err := s.Repo.ListPortfolioSnapshots(ctx, repository.ListPortfolioSnapshotsParams{
		OwnerID: &ownerID,
		Since:   since,
		Until:   until,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %v", engine.ErrPersistence, err)
	}
	if items == nil {
		items = []models.PortfolioSnapshot{}
	}
	return items, nil
}

// markPositions values each open position at its contract's live prices.
// Settled positions are listed for history but carry no residual value; their
// payout already sits in the wallet.
func (s *PortfolioService) markPositions(ctx context.Context, positions []models.Position) ([]PositionValue, decimal.Decimal, error) {
	values := make([]PositionValue, 0, len(positions))
	mtm := decimal.Zero
	for i := range positions {
		p := &positions[i]
		c, err := s.Repo.GetContractByID(ctx, p.ContractID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("%w: load contract %s: %v", engine.ErrPersistence, p.ContractID, err)
		}
		if c == nil {
			continue
		}
		pv := PositionValue{
			ContractID:    p.ContractID,
			ContractTitle: c.Title,
			YesShares:     p.YesShares,
			NoShares:      p.NoShares,
			PriceYes:      engine.ContractPriceYes(c),
			Value:         decimal.Zero,
			Payout:        p.Payout,
			Settled:       p.SettledAt != nil,
		}
		if p.SettledAt == nil {
			no := decimal.NewFromInt(1).Sub(pv.PriceYes)
			pv.Value = p.YesShares.Mul(pv.PriceYes).Add(p.NoShares.Mul(no))
			mtm = mtm.Add(pv.Value)
		}
		values = append(values, pv)
	}
	return values, mtm, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"rebelodds/internal/engine"
	"rebelodds/internal/models"
)

// SnapshotService persists an hourly net-worth point per wallet so the
// portfolio history endpoint has something to plot, and prunes old points.
type SnapshotService struct {
	Portfolios *PortfolioService
	Logger     *zap.Logger

	RetentionDays int
}

// SnapshotAll writes one portfolio snapshot per known wallet. Failures on a
// single wallet are logged and skipped so one bad row cannot starve the rest.
func (s *SnapshotService) SnapshotAll(ctx context.Context) (int, error) {
	wallets, err := s.Portfolios.Repo.ListWallets(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list wallets: %v", engine.ErrPersistence, err)
	}

	now := time.Now().UTC()
	written := 0
	for i := range wallets {
		w := &wallets[i]
		pf, err := s.Portfolios.Portfolio(ctx, w.OwnerID)
		if err != nil {
			s.logWarn("portfolio snapshot skipped", w.OwnerID, err)
			continue
		}
		breakdown, err := json.Marshal(pf.Positions)
		if err != nil {
			s.logWarn("portfolio snapshot skipped", w.OwnerID, err)
			continue
		}
		snap := &models.PortfolioSnapshot{
			OwnerID:       w.OwnerID,
			BalanceTokens: pf.BalanceTokens,
			MarkToMarket:  pf.MarkToMarket,
			NetWorth:      pf.NetWorth,
			Breakdown:     datatypes.JSON(breakdown),
			CreatedAt:     now,
		}
		if err := s.Portfolios.Repo.InsertPortfolioSnapshot(ctx, snap); err != nil {
			s.logWarn("portfolio snapshot write failed", w.OwnerID, err)
			continue
		}
		written++
	}
	if s.Logger != nil {
		s.Logger.Info("portfolio snapshots written",
			zap.Int("wallets", len(wallets)),
			zap.Int("written", written),
		)
	}
	return written, nil
}

// Prune deletes snapshots older than the retention window.
func (s *SnapshotService) Prune(ctx context.Context) (int64, error) {
	days := s.RetentionDays
	if days <= 0 {
		days = 90
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	removed, err := s.Portfolios.Repo.DeletePortfolioSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: prune snapshots: %v", engine.ErrPersistence, err)
	}
	if s.Logger != nil && removed > 0 {
		s.Logger.Info("portfolio snapshots pruned",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

func (s *SnapshotService) logWarn(msg, ownerID string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, zap.String("owner_id", ownerID), zap.Error(err))
}

package engine

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"rebelodds/internal/models"
	"rebelodds/internal/repository"
)

// stubRepo is an in-memory repository.Repository. Transactions degrade to a
// direct call; every write takes effect immediately.
type stubRepo struct {
	mu sync.Mutex

	wallets   map[string]*models.Wallet // keyed by owner id
	contracts map[string]*models.Contract
	positions []*models.Position
	trades    []*models.Trade
	walletTxs []*models.WalletTransaction
	snapshots []*models.PortfolioSnapshot

	nextPositionID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		wallets:   map[string]*models.Wallet{},
		contracts: map[string]*models.Contract{},
	}
}

var _ repository.Repository = (*stubRepo)(nil)

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) GetWalletByOwnerID(ctx context.Context, ownerID string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *stubRepo) CreateWalletTx(ctx context.Context, tx *gorm.DB, item *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.wallets[item.OwnerID] = &cp
	return nil
}

func (s *stubRepo) UpdateWalletBalanceTx(ctx context.Context, tx *gorm.DB, walletID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.ID == walletID {
			w.BalanceTokens = balance
		}
	}
	return nil
}

func (s *stubRepo) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, *w)
	}
	return out, nil
}

func (s *stubRepo) CreateContract(ctx context.Context, item *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.contracts[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetContractByID(ctx context.Context, id string) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *stubRepo) ListContracts(ctx context.Context, params repository.ListContractsParams) ([]models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contract
	for _, c := range s.contracts {
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubRepo) CountContracts(ctx context.Context, params repository.ListContractsParams) (int64, error) {
	items, _ := s.ListContracts(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) UpdateContractPoolsTx(ctx context.Context, tx *gorm.DB, id string, yesPool, noPool int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.YesPool = yesPool
		c.NoPool = noPool
	}
	return nil
}

func (s *stubRepo) MarkContractResolvingTx(ctx context.Context, tx *gorm.DB, id, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok || c.Status != models.ContractStatusActive {
		return gorm.ErrRecordNotFound
	}
	c.Status = models.ContractStatusResolving
	c.Outcome = &outcome
	return nil
}

func (s *stubRepo) MarkContractResolvedTx(ctx context.Context, tx *gorm.DB, id string, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok || c.Status != models.ContractStatusResolving {
		return gorm.ErrRecordNotFound
	}
	c.Status = models.ContractStatusResolved
	c.ResolvedAt = &resolvedAt
	return nil
}

func (s *stubRepo) GetPosition(ctx context.Context, ownerID, contractID string) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.positions {
		if p.OwnerID == ownerID && p.ContractID == contractID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		s.nextPositionID++
		item.ID = s.nextPositionID
	}
	for i, p := range s.positions {
		if p.ID == item.ID {
			cp := *item
			s.positions[i] = &cp
			return nil
		}
	}
	cp := *item
	s.positions = append(s.positions, &cp)
	return nil
}

func (s *stubRepo) ListPositionsByOwner(ctx context.Context, ownerID string) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Position
	for _, p := range s.positions {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) ListUnsettledPositions(ctx context.Context, contractID string) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Position
	for _, p := range s.positions {
		if p.ContractID == contractID && p.SettledAt == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) MarkPositionSettledTx(ctx context.Context, tx *gorm.DB, positionID uint64, payout int64, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.positions {
		if p.ID == positionID && p.SettledAt == nil {
			p.Payout = payout
			ts := settledAt
			p.SettledAt = &ts
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubRepo) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.trades = append(s.trades, &cp)
	return nil
}

func (s *stubRepo) ListRecentTrades(ctx context.Context, contractID string, limit int) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trade
	for i := len(s.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if s.trades[i].ContractID == contractID {
			out = append(out, *s.trades[i])
		}
	}
	return out, nil
}

func (s *stubRepo) CountTrades(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.trades)), nil
}

func (s *stubRepo) InsertWalletTransactionTx(ctx context.Context, tx *gorm.DB, item *models.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.walletTxs = append(s.walletTxs, &cp)
	return nil
}

func (s *stubRepo) ListWalletTransactions(ctx context.Context, walletID string, limit int) ([]models.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WalletTransaction
	for i := len(s.walletTxs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.walletTxs[i].WalletID == walletID {
			out = append(out, *s.walletTxs[i])
		}
	}
	return out, nil
}

func (s *stubRepo) InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.snapshots = append(s.snapshots, &cp)
	return nil
}

func (s *stubRepo) ListPortfolioSnapshots(ctx context.Context, params repository.ListPortfolioSnapshotsParams) ([]models.PortfolioSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PortfolioSnapshot
	for _, sn := range s.snapshots {
		if params.OwnerID != nil && sn.OwnerID != *params.OwnerID {
			continue
		}
		out = append(out, *sn)
	}
	return out, nil
}

func (s *stubRepo) DeletePortfolioSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*models.PortfolioSnapshot
	var removed int64
	for _, sn := range s.snapshots {
		if sn.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, sn)
	}
	s.snapshots = kept
	return removed, nil
}

package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"rebelodds/internal/models"
	"rebelodds/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// session returns the tx-scoped handle when inside a transaction, the root
// handle otherwise.
func (s *Store) session(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// --- Wallets ----------------------------------------------------------------

func (s *Store) GetWalletByOwnerID(ctx context.Context, ownerID string) (*models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, nil
	}
	var item models.Wallet
	err := s.db.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateWalletTx(ctx context.Context, tx *gorm.DB, item *models.Wallet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.session(ctx, tx).Create(item).Error
}

func (s *Store) UpdateWalletBalanceTx(ctx context.Context, tx *gorm.DB, walletID string, balance int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.session(ctx, tx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{"balance_tokens": balance, "updated_at": time.Now().UTC()}).
		Error
}

func (s *Store) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wallet
	if err := s.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Order("balance_tokens desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Contracts --------------------------------------------------------------

func (s *Store) CreateContract(ctx context.Context, item *models.Contract) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetContractByID(ctx context.Context, id string) (*models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Contract
	err := s.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) contractsQuery(ctx context.Context, params repository.ListContractsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Contract{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.EntityID != nil && strings.TrimSpace(*params.EntityID) != "" {
		query = query.Where("entity_id = ?", strings.TrimSpace(*params.EntityID))
	}
	return query
}

func (s *Store) ListContracts(ctx context.Context, params repository.ListContractsParams) ([]models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.contractsQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Contract
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountContracts(ctx context.Context, params repository.ListContractsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.contractsQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateContractPoolsTx(ctx context.Context, tx *gorm.DB, id string, yesPool, noPool int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.session(ctx, tx).
		Model(&models.Contract{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"yes_pool":   yesPool,
			"no_pool":    noPool,
			"updated_at": time.Now().UTC(),
		}).
		Error
}

func (s *Store) MarkContractResolvingTx(ctx context.Context, tx *gorm.DB, id, outcome string) error {
	if s == nil || s.db == nil {
		return nil
	}
	// Guarded transition: only an active contract can enter resolving.
	res := s.session(ctx, tx).
		Model(&models.Contract{}).
		Where("id = ? AND status = ?", id, models.ContractStatusActive).
		Updates(map[string]any{
			"status":     models.ContractStatusResolving,
			"outcome":    outcome,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) MarkContractResolvedTx(ctx context.Context, tx *gorm.DB, id string, resolvedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.session(ctx, tx).
		Model(&models.Contract{}).
		Where("id = ? AND status = ?", id, models.ContractStatusResolving).
		Updates(map[string]any{
			"status":      models.ContractStatusResolved,
			"resolved_at": resolvedAt,
			"updated_at":  resolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Positions --------------------------------------------------------------

func (s *Store) GetPosition(ctx context.Context, ownerID, contractID string) (*models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Position
	err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("owner_id = ? AND contract_id = ?", ownerID, contractID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.session(ctx, tx).Save(item).Error
}

func (s *Store) ListPositionsByOwner(ctx context.Context, ownerID string) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	if err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("owner_id = ?", ownerID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUnsettledPositions(ctx context.Context, contractID string) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	if err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("contract_id = ?", contractID).
		Where("settled_at IS NULL").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkPositionSettledTx(ctx context.Context, tx *gorm.DB, positionID uint64, payout int64, settledAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	// settled_at IS NULL makes the marker write idempotent under re-runs.
	res := s.session(ctx, tx).
		Model(&models.Position{}).
		Where("id = ? AND settled_at IS NULL", positionID).
		Updates(map[string]any{
			"payout":     payout,
			"settled_at": settledAt,
			"updated_at": settledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Trade journal ----------------------------------------------------------

func (s *Store) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.session(ctx, tx).Create(item).Error
}

func (s *Store) ListRecentTrades(ctx context.Context, contractID string, limit int) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 20)
	var items []models.Trade
	if err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("contract_id = ?", contractID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Trade{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) InsertWalletTransactionTx(ctx context.Context, tx *gorm.DB, item *models.WalletTransaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.session(ctx, tx).Create(item).Error
}

func (s *Store) ListWalletTransactions(ctx context.Context, walletID string, limit int) ([]models.WalletTransaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.WalletTransaction
	if err := s.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("wallet_id = ?", walletID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Portfolio snapshots ----------------------------------------------------

func (s *Store) InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPortfolioSnapshots(ctx context.Context, params repository.ListPortfolioSnapshotsParams) ([]models.PortfolioSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PortfolioSnapshot{})
	if params.OwnerID != nil && strings.TrimSpace(*params.OwnerID) != "" {
		query = query.Where("owner_id = ?", strings.TrimSpace(*params.OwnerID))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("created_at <= ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 168)
	offset := normalizeOffset(params.Offset)
	var items []models.PortfolioSnapshot
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeletePortfolioSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if cutoff.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.PortfolioSnapshot{})
	return res.RowsAffected, res.Error
}

// --- query helpers ----------------------------------------------------------

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, def string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = def
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}

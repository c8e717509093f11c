package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"rebelodds/internal/models"
)

// Repository is the persistence surface for the four ledgers the engine
// touches: wallets, contract pools, positions, and the trade journal.
//
// Methods with a Tx suffix participate in a caller-owned transaction opened
// via InTx; the engine commits every trade and every payout through one such
// transaction so a mid-commit failure rolls back all ledgers together.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Wallets
	GetWalletByOwnerID(ctx context.Context, ownerID string) (*models.Wallet, error)
	CreateWalletTx(ctx context.Context, tx *gorm.DB, item *models.Wallet) error
	UpdateWalletBalanceTx(ctx context.Context, tx *gorm.DB, walletID string, balance int64) error
	ListWallets(ctx context.Context) ([]models.Wallet, error)

	// Contracts
	CreateContract(ctx context.Context, item *models.Contract) error
	GetContractByID(ctx context.Context, id string) (*models.Contract, error)
	ListContracts(ctx context.Context, params ListContractsParams) ([]models.Contract, error)
	CountContracts(ctx context.Context, params ListContractsParams) (int64, error)
	UpdateContractPoolsTx(ctx context.Context, tx *gorm.DB, id string, yesPool, noPool int64) error
	MarkContractResolvingTx(ctx context.Context, tx *gorm.DB, id, outcome string) error
	MarkContractResolvedTx(ctx context.Context, tx *gorm.DB, id string, resolvedAt time.Time) error

	// Positions
	GetPosition(ctx context.Context, ownerID, contractID string) (*models.Position, error)
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error
	ListPositionsByOwner(ctx context.Context, ownerID string) ([]models.Position, error)
	ListUnsettledPositions(ctx context.Context, contractID string) ([]models.Position, error)
	MarkPositionSettledTx(ctx context.Context, tx *gorm.DB, positionID uint64, payout int64, settledAt time.Time) error

	// Trade journal
	InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	ListRecentTrades(ctx context.Context, contractID string, limit int) ([]models.Trade, error)
	CountTrades(ctx context.Context) (int64, error)
	InsertWalletTransactionTx(ctx context.Context, tx *gorm.DB, item *models.WalletTransaction) error
	ListWalletTransactions(ctx context.Context, walletID string, limit int) ([]models.WalletTransaction, error)

	// Portfolio snapshots
	InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error
	ListPortfolioSnapshots(ctx context.Context, params ListPortfolioSnapshotsParams) ([]models.PortfolioSnapshot, error)
	DeletePortfolioSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ListContractsParams struct {
	Limit    int
	Offset   int
	Status   *string
	EntityID *string
	OrderBy  string
	Asc      *bool
}

type ListPortfolioSnapshotsParams struct {
	Limit   int
	Offset  int
	OwnerID *string
	Since   *time.Time
	Until   *time.Time
}

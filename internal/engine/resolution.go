package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rebelodds/internal/models"
	"rebelodds/internal/repository"
)

const RoleAdmin = "admin"

// Actor identifies who requested an operation.
type Actor struct {
	ID   string
	Role string
}

// ResolutionEngine settles a contract: it freezes the contract, pays each
// winning position exactly once, and marks the contract resolved.
//
// The payout loop is restartable. The contract is first moved to the
// resolving state with the outcome recorded, then every position is settled
// in its own transaction together with its payout-applied marker. A crash
// partway leaves the contract resolving; a re-run with the recorded outcome
// settles only the remainder.
type ResolutionEngine struct {
	Repo   repository.Repository
	Gate   *Gate
	Logger *zap.Logger

	// StartingGrant mirrors the executor's lazy-wallet policy for the edge
	// case of a position whose wallet row is missing.
	StartingGrant int64
}

func (r *ResolutionEngine) Resolve(ctx context.Context, contractID, outcome string, actor Actor) (*models.Contract, error) {
	if actor.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: resolving requires the admin role", ErrUnauthorized)
	}
	if _, err := uuid.Parse(contractID); err != nil {
		return nil, fmt.Errorf("%w: contract id %q is not a uuid", ErrValidation, contractID)
	}
	if outcome != models.OutcomeYes && outcome != models.OutcomeNo {
		return nil, fmt.Errorf("%w: outcome must be yes or no", ErrValidation)
	}

	unlock := r.Gate.LockContract(contractID)
	defer unlock()

	contract, err := r.Repo.GetContractByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("%w: load contract: %v", ErrPersistence, err)
	}
	if contract == nil {
		return nil, fmt.Errorf("%w: contract %s", ErrNotFound, contractID)
	}

	switch contract.Status {
	case models.ContractStatusResolved:
		return nil, fmt.Errorf("%w: contract %s", ErrAlreadyResolved, contractID)
	case models.ContractStatusResolving:
		// Resuming an interrupted resolution is only legal with the outcome
		// recorded at freeze time.
		if contract.Outcome == nil || *contract.Outcome != outcome {
			return nil, fmt.Errorf("%w: resolution in progress with a different outcome", ErrStateConflict)
		}
	case models.ContractStatusActive:
		if err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
			return r.Repo.MarkContractResolvingTx(ctx, tx, contractID, outcome)
		}); err != nil {
			return nil, fmt.Errorf("%w: freeze contract: %v", ErrPersistence, err)
		}
		contract.Status = models.ContractStatusResolving
		contract.Outcome = &outcome
	default:
		return nil, fmt.Errorf("%w: contract is %s", ErrStateConflict, contract.Status)
	}

	positions, err := r.Repo.ListUnsettledPositions(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("%w: list positions: %v", ErrPersistence, err)
	}

	paid := 0
	var totalPayout int64
	for i := range positions {
		pos := &positions[i]
		payout, err := r.settlePosition(ctx, pos, outcome, contractID)
		if err != nil {
			return nil, err
		}
		if payout > 0 {
			paid++
			totalPayout += payout
		}
	}

	now := time.Now().UTC()
	if err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return r.Repo.MarkContractResolvedTx(ctx, tx, contractID, now)
	}); err != nil {
		return nil, fmt.Errorf("%w: finalize contract: %v", ErrPersistence, err)
	}
	contract.Status = models.ContractStatusResolved
	contract.ResolvedAt = &now

	if r.Logger != nil {
		r.Logger.Info("contract resolved",
			zap.String("contract_id", contractID),
			zap.String("outcome", outcome),
			zap.Int("positions", len(positions)),
			zap.Int("positions_paid", paid),
			zap.Int64("total_payout", totalPayout),
		)
	}
	return contract, nil
}

// settlePosition credits one position's winning shares and flips its
// payout-applied marker in a single transaction. Winning shares pay one token
// each, floored to whole tokens; losing shares are forfeited.
func (r *ResolutionEngine) settlePosition(ctx context.Context, pos *models.Position, outcome, contractID string) (int64, error) {
	payout := pos.SideShares(outcome).Floor().IntPart()
	now := time.Now().UTC()

	if payout <= 0 {
		if err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
			return r.Repo.MarkPositionSettledTx(ctx, tx, pos.ID, 0, now)
		}); err != nil {
			return 0, fmt.Errorf("%w: settle position %d: %v", ErrPersistence, pos.ID, err)
		}
		return 0, nil
	}

	// The balance write below is read-compute-write, so the wallet must be
	// held against trades by the same owner on other contracts. The contract
	// lock is already held, preserving the contract-before-wallet order.
	unlock := r.Gate.LockWallet(pos.OwnerID)
	defer unlock()

	wallet, err := ensureWallet(ctx, r.Repo, pos.OwnerID, r.StartingGrant)
	if err != nil {
		return 0, err
	}
	newBalance := wallet.BalanceTokens + payout

	if err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := r.Repo.UpdateWalletBalanceTx(ctx, tx, wallet.ID, newBalance); err != nil {
			return err
		}
		if err := r.Repo.InsertWalletTransactionTx(ctx, tx, &models.WalletTransaction{
			ID:           uuid.NewString(),
			WalletID:     wallet.ID,
			Amount:       payout,
			BalanceAfter: newBalance,
			Kind:         models.WalletTxPayout,
			ReferenceID:  &contractID,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		return r.Repo.MarkPositionSettledTx(ctx, tx, pos.ID, payout, now)
	}); err != nil {
		return 0, fmt.Errorf("%w: settle position %d: %v", ErrPersistence, pos.ID, err)
	}
	wallet.BalanceTokens = newBalance
	return payout, nil
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rebelodds/internal/models"
	"rebelodds/internal/repository"
)

// TradeTick is the post-commit notification published for every executed
// trade, consumed by the websocket stream hub.
type TradeTick struct {
	TradeID    string          `json:"trade_id"`
	ContractID string          `json:"contract_id"`
	Side       string          `json:"side"`
	Action     string          `json:"action"`
	Tokens     int64           `json:"tokens"`
	PriceYes   decimal.Decimal `json:"price_yes"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Publisher interface {
	Publish(tick TradeTick)
}

// TradeRequest is one buy or sell against a contract side.
type TradeRequest struct {
	OwnerID      string
	ContractID   string
	Side         string
	Action       string
	AmountTokens int64
}

// TradeResult reports the post-commit state the caller needs to render.
type TradeResult struct {
	TradeID    string          `json:"trade_id"`
	ContractID string          `json:"contract_id"`
	PriceYes   decimal.Decimal `json:"price_yes"`
	YesPool    int64           `json:"yes_pool"`
	NoPool     int64           `json:"no_pool"`

	WalletBalance int64           `json:"wallet_balance"`
	YesShares     decimal.Decimal `json:"yes_shares"`
	NoShares      decimal.Decimal `json:"no_shares"`
	FeeCharged    int64           `json:"fee_charged"`
}

// TradeExecutor runs the Validate -> PriceLookup -> Reserve -> Commit ->
// Journal pipeline for one trade. All four ledger writes happen in a single
// transaction; any failure before commit leaves zero observable writes.
type TradeExecutor struct {
	Repo   repository.Repository
	Gate   *Gate
	Logger *zap.Logger

	// StartingGrant is credited to a wallet created on first contact.
	StartingGrant int64

	// Stream is optional; when set every committed trade is published.
	Stream Publisher
}

func (e *TradeExecutor) SubmitTrade(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	if err := validateTradeRequest(req); err != nil {
		return nil, err
	}

	unlock := e.Gate.LockTrade(req.ContractID, req.OwnerID)
	defer unlock()

	contract, err := e.Repo.GetContractByID(ctx, req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("%w: load contract: %v", ErrPersistence, err)
	}
	if contract == nil {
		return nil, fmt.Errorf("%w: contract %s", ErrNotFound, req.ContractID)
	}
	now := time.Now().UTC()
	if contract.Status != models.ContractStatusActive {
		return nil, fmt.Errorf("%w: contract is %s", ErrStateConflict, contract.Status)
	}
	if contract.Expired(now) {
		return nil, fmt.Errorf("%w: contract has expired", ErrStateConflict)
	}

	wallet, err := ensureWallet(ctx, e.Repo, req.OwnerID, e.StartingGrant)
	if err != nil {
		return nil, err
	}

	position, err := e.Repo.GetPosition(ctx, req.OwnerID, req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("%w: load position: %v", ErrPersistence, err)
	}
	if position == nil {
		position = &models.Position{
			OwnerID:    req.OwnerID,
			ContractID: req.ContractID,
			YesShares:  decimal.Zero,
			NoShares:   decimal.Zero,
		}
	}

	priceYes := ContractPriceYes(contract)
	sidePrice := SidePrice(contract, req.Side)
	fee := Fee(req.AmountTokens, ClampFeeBps(contract.FeeBps))

	var trade *models.Trade
	switch req.Action {
	case models.ActionBuy:
		trade, err = e.commitBuy(ctx, req, contract, wallet, position, priceYes, sidePrice, fee, now)
	case models.ActionSell:
		trade, err = e.commitSell(ctx, req, contract, wallet, position, priceYes, sidePrice, fee, now)
	}
	if err != nil {
		return nil, err
	}

	priceAfter := ContractPriceYes(contract)
	if e.Logger != nil {
		e.Logger.Info("trade executed",
			zap.String("trade_id", trade.ID),
			zap.String("contract_id", contract.ID),
			zap.String("side", req.Side),
			zap.String("action", req.Action),
			zap.Int64("tokens", req.AmountTokens),
			zap.Int64("fee", fee),
			zap.String("price_yes", priceAfter.StringFixed(4)),
		)
	}
	if e.Stream != nil {
		e.Stream.Publish(TradeTick{
			TradeID:    trade.ID,
			ContractID: contract.ID,
			Side:       req.Side,
			Action:     req.Action,
			Tokens:     req.AmountTokens,
			PriceYes:   priceAfter,
			CreatedAt:  trade.CreatedAt,
		})
	}

	return &TradeResult{
		TradeID:       trade.ID,
		ContractID:    contract.ID,
		PriceYes:      priceAfter,
		YesPool:       contract.YesPool,
		NoPool:        contract.NoPool,
		WalletBalance: wallet.BalanceTokens,
		YesShares:     position.YesShares,
		NoShares:      position.NoShares,
		FeeCharged:    fee,
	}, nil
}

// commitBuy debits notional+fee, adds the notional to the chosen pool and
// issues floor(notional/price) shares, all in one transaction. The in-memory
// contract, wallet and position are updated only after the commit succeeds.
func (e *TradeExecutor) commitBuy(
	ctx context.Context,
	req TradeRequest,
	contract *models.Contract,
	wallet *models.Wallet,
	position *models.Position,
	priceYes, sidePrice decimal.Decimal,
	fee int64,
	now time.Time,
) (*models.Trade, error) {
	totalDebit := req.AmountTokens + fee
	if wallet.BalanceTokens < totalDebit {
		return nil, fmt.Errorf("%w: need %d tokens, have %d", ErrInsufficientFunds, totalDebit, wallet.BalanceTokens)
	}

	shares := decimal.NewFromInt(req.AmountTokens).Div(sidePrice).Floor()
	if shares.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %d tokens buy zero shares at price %s", ErrTradeTooSmall, req.AmountTokens, sidePrice.StringFixed(4))
	}

	newBalance := wallet.BalanceTokens - totalDebit
	newYes, newNo := contract.YesPool, contract.NoPool
	newYesShares, newNoShares := position.YesShares, position.NoShares
	if req.Side == models.SideYes {
		newYes += req.AmountTokens
		newYesShares = newYesShares.Add(shares)
	} else {
		newNo += req.AmountTokens
		newNoShares = newNoShares.Add(shares)
	}

	trade := &models.Trade{
		ID:              uuid.NewString(),
		OwnerID:         req.OwnerID,
		ContractID:      contract.ID,
		Side:            req.Side,
		Action:          models.ActionBuy,
		TokensSpent:     req.AmountTokens,
		SharesDelta:     shares,
		Fee:             fee,
		PriceYesAtTrade: priceYes,
		PriceNoAtTrade:  decimal.NewFromInt(1).Sub(priceYes),
		CreatedAt:       now,
	}

	oldYesShares, oldNoShares := position.YesShares, position.NoShares
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.UpdateWalletBalanceTx(ctx, tx, wallet.ID, newBalance); err != nil {
			return err
		}
		if err := e.Repo.UpdateContractPoolsTx(ctx, tx, contract.ID, newYes, newNo); err != nil {
			return err
		}
		position.YesShares = newYesShares
		position.NoShares = newNoShares
		position.UpdatedAt = now
		if err := e.Repo.SavePositionTx(ctx, tx, position); err != nil {
			return err
		}
		if err := e.Repo.InsertTradeTx(ctx, tx, trade); err != nil {
			return err
		}
		return e.Repo.InsertWalletTransactionTx(ctx, tx, &models.WalletTransaction{
			ID:           uuid.NewString(),
			WalletID:     wallet.ID,
			Amount:       -totalDebit,
			BalanceAfter: newBalance,
			Kind:         models.WalletTxTradeDebit,
			ReferenceID:  &trade.ID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		position.YesShares, position.NoShares = oldYesShares, oldNoShares
		return nil, fmt.Errorf("%w: commit buy: %v", ErrPersistence, err)
	}

	wallet.BalanceTokens = newBalance
	contract.YesPool = newYes
	contract.NoPool = newNo
	return trade, nil
}

// commitSell burns amount/price shares, credits notional-fee to the wallet
// and drains the pool, flooring it at 1 so the pricing function stays
// defined.
func (e *TradeExecutor) commitSell(
	ctx context.Context,
	req TradeRequest,
	contract *models.Contract,
	wallet *models.Wallet,
	position *models.Position,
	priceYes, sidePrice decimal.Decimal,
	fee int64,
	now time.Time,
) (*models.Trade, error) {
	sharesRequired := decimal.NewFromInt(req.AmountTokens).Div(sidePrice)
	held := position.SideShares(req.Side)
	if held.LessThan(sharesRequired) {
		return nil, fmt.Errorf("%w: need %s %s shares, have %s", ErrInsufficientShares, sharesRequired.StringFixed(4), req.Side, held.StringFixed(4))
	}

	credit := req.AmountTokens - fee
	if credit <= 0 {
		return nil, fmt.Errorf("%w: fee %d consumes the %d token proceeds", ErrTradeTooSmall, fee, req.AmountTokens)
	}

	newBalance := wallet.BalanceTokens + credit
	newYes, newNo := contract.YesPool, contract.NoPool
	newYesShares, newNoShares := position.YesShares, position.NoShares
	if req.Side == models.SideYes {
		newYes = drainPool(newYes, req.AmountTokens)
		newYesShares = newYesShares.Sub(sharesRequired)
	} else {
		newNo = drainPool(newNo, req.AmountTokens)
		newNoShares = newNoShares.Sub(sharesRequired)
	}

	trade := &models.Trade{
		ID:              uuid.NewString(),
		OwnerID:         req.OwnerID,
		ContractID:      contract.ID,
		Side:            req.Side,
		Action:          models.ActionSell,
		TokensSpent:     req.AmountTokens,
		SharesDelta:     sharesRequired.Neg(),
		Fee:             fee,
		PriceYesAtTrade: priceYes,
		PriceNoAtTrade:  decimal.NewFromInt(1).Sub(priceYes),
		CreatedAt:       now,
	}

	oldYesShares, oldNoShares := position.YesShares, position.NoShares
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Repo.UpdateWalletBalanceTx(ctx, tx, wallet.ID, newBalance); err != nil {
			return err
		}
		if err := e.Repo.UpdateContractPoolsTx(ctx, tx, contract.ID, newYes, newNo); err != nil {
			return err
		}
		position.YesShares = newYesShares
		position.NoShares = newNoShares
		position.UpdatedAt = now
		if err := e.Repo.SavePositionTx(ctx, tx, position); err != nil {
			return err
		}
		if err := e.Repo.InsertTradeTx(ctx, tx, trade); err != nil {
			return err
		}
		return e.Repo.InsertWalletTransactionTx(ctx, tx, &models.WalletTransaction{
			ID:           uuid.NewString(),
			WalletID:     wallet.ID,
			Amount:       credit,
			BalanceAfter: newBalance,
			Kind:         models.WalletTxTradeCredit,
			ReferenceID:  &trade.ID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		position.YesShares, position.NoShares = oldYesShares, oldNoShares
		return nil, fmt.Errorf("%w: commit sell: %v", ErrPersistence, err)
	}

	wallet.BalanceTokens = newBalance
	contract.YesPool = newYes
	contract.NoPool = newNo
	return trade, nil
}

// drainPool subtracts a sell's notional from a pool without letting it reach
// zero; an empty side would collapse the price ratio.
func drainPool(pool, amount int64) int64 {
	next := pool - amount
	if next < 1 {
		return 1
	}
	return next
}

func validateTradeRequest(req TradeRequest) error {
	if _, err := uuid.Parse(req.OwnerID); err != nil {
		return fmt.Errorf("%w: owner id %q is not a uuid", ErrValidation, req.OwnerID)
	}
	if _, err := uuid.Parse(req.ContractID); err != nil {
		return fmt.Errorf("%w: contract id %q is not a uuid", ErrValidation, req.ContractID)
	}
	if req.Side != models.SideYes && req.Side != models.SideNo {
		return fmt.Errorf("%w: side must be yes or no", ErrValidation)
	}
	if req.Action != models.ActionBuy && req.Action != models.ActionSell {
		return fmt.Errorf("%w: action must be buy or sell", ErrValidation)
	}
	if req.AmountTokens <= 0 {
		return fmt.Errorf("%w: amount_tokens must be a positive integer", ErrValidation)
	}
	return nil
}

// ensureWallet resolves the trader's wallet, creating it with the starting
// grant and the matching journal entry on first contact.
func ensureWallet(ctx context.Context, repo repository.Repository, ownerID string, grant int64) (*models.Wallet, error) {
	wallet, err := repo.GetWalletByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load wallet: %v", ErrPersistence, err)
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	wallet = &models.Wallet{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		BalanceTokens: grant,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := repo.CreateWalletTx(ctx, tx, wallet); err != nil {
			return err
		}
		if grant <= 0 {
			return nil
		}
		return repo.InsertWalletTransactionTx(ctx, tx, &models.WalletTransaction{
			ID:           uuid.NewString(),
			WalletID:     wallet.ID,
			Amount:       grant,
			BalanceAfter: grant,
			Kind:         models.WalletTxInitialGrant,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create wallet: %v", ErrPersistence, err)
	}
	return wallet, nil
}

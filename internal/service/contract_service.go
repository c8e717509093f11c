package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"rebelodds/internal/engine"
	"rebelodds/internal/models"
	"rebelodds/internal/repository"
)

// ContractService answers contract reads and admin contract creation.
type ContractService struct {
	Repo repository.Repository

	DefaultFeeBps     int
	DefaultSeedTokens int64
	RecentTradesLimit int
}

type ContractsResult struct {
	Items []ContractView
	Total int64
}

// ContractView is a contract with its derived prices attached.
type ContractView struct {
	models.Contract
	PriceYes decimal.Decimal `json:"price_yes"`
	PriceNo  decimal.Decimal `json:"price_no"`
}

// ContractSnapshot is the detail view: the contract, its prices and the most
// recent trades on it.
type ContractSnapshot struct {
	ContractView
	RecentTrades []models.Trade `json:"recent_trades"`
}

type CreateContractInput struct {
	Title       string
	Description string
	EntityID    string
	FeeBps      *int
	SeedTokens  *int64
	EndDate     *time.Time
	Metadata    datatypes.JSON
}

func (s *ContractService) Create(ctx context.Context, in CreateContractInput, actor engine.Actor) (*ContractView, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("%w: creating contracts requires the admin role", engine.ErrUnauthorized)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", engine.ErrValidation)
	}
	if in.EndDate != nil && !in.EndDate.After(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: end_date must be in the future", engine.ErrValidation)
	}

	feeBps := s.DefaultFeeBps
	if in.FeeBps != nil {
		feeBps = *in.FeeBps
	}
	feeBps = engine.ClampFeeBps(feeBps)

	seed := s.DefaultSeedTokens
	if in.SeedTokens != nil {
		seed = *in.SeedTokens
	}
	if seed < 0 {
		return nil, fmt.Errorf("%w: seed_tokens must not be negative", engine.ErrValidation)
	}

	now := time.Now().UTC()
	c := &models.Contract{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		EntityID:    strings.TrimSpace(in.EntityID),
		FeeBps:      feeBps,
		SeedTokens:  seed,
		Status:      models.ContractStatusActive,
		EndDate:     in.EndDate,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.CreateContract(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: create contract: %v", engine.ErrPersistence, err)
	}
	view := withPrices(c)
	return &view, nil
}

func (s *ContractService) List(ctx context.Context, params repository.ListContractsParams) (ContractsResult, error) {
	total, err := s.Repo.CountContracts(ctx, params)
	if err != nil {
		return ContractsResult{}, fmt.Errorf("%w: count contracts: %v", engine.ErrPersistence, err)
	}
	items, err := s.Repo.ListContracts(ctx, params)
	if err != nil {
		return ContractsResult{}, fmt.Errorf("%w: list contracts: %v", engine.ErrPersistence, err)
	}
	views := make([]ContractView, 0, len(items))
	for i := range items {
		views = append(views, withPrices(&items[i]))
	}
	return ContractsResult{Items: views, Total: total}, nil
}

func (s *ContractService) Get(ctx context.Context, id string) (*ContractSnapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: contract id %q is not a uuid", engine.ErrValidation, id)
	}
	c, err := s.Repo.GetContractByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load contract: %v", engine.ErrPersistence, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: contract %s", engine.ErrNotFound, id)
	}

	limit := s.RecentTradesLimit
	if limit <= 0 {
		limit = 20
	}
	trades, err := s.Repo.ListRecentTrades(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list trades: %v", engine.ErrPersistence, err)
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	return &ContractSnapshot{
		ContractView: withPrices(c),
		RecentTrades: trades,
	}, nil
}

func withPrices(c *models.Contract) ContractView {
	yes := engine.ContractPriceYes(c)
	return ContractView{
		Contract: *c,
		PriceYes: yes,
		PriceNo:  decimal.NewFromInt(1).Sub(yes),
	}
}

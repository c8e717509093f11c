package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rebelodds/internal/models"
)

func newTestResolver(repo *stubRepo) *ResolutionEngine {
	return &ResolutionEngine{
		Repo:          repo,
		Gate:          NewGate(),
		Logger:        zap.NewNop(),
		StartingGrant: 10000,
	}
}

func adminActor() Actor {
	return Actor{ID: uuid.NewString(), Role: RoleAdmin}
}

func TestResolvePaysWinnersOnce(t *testing.T) {
	repo := newStubRepo()
	exec := newTestExecutor(repo)
	resolver := newTestResolver(repo)
	c := seedContract(t, repo)
	ctx := context.Background()

	winner := uuid.NewString()
	loser := uuid.NewString()

	// Winner buys yes at 0.5: 2000 shares, balance 8995.
	if _, err := exec.SubmitTrade(ctx, TradeRequest{
		OwnerID: winner, ContractID: c.ID,
		Side: models.SideYes, Action: models.ActionBuy, AmountTokens: 1000,
	}); err != nil {
		t.Fatalf("winner buy: %v", err)
	}
	// Loser buys no at the shifted price.
	if _, err := exec.SubmitTrade(ctx, TradeRequest{
		OwnerID: loser, ContractID: c.ID,
		Side: models.SideNo, Action: models.ActionBuy, AmountTokens: 500,
	}); err != nil {
		t.Fatalf("loser buy: %v", err)
	}
	loserWallet, _ := repo.GetWalletByOwnerID(ctx, loser)
	loserBalance := loserWallet.BalanceTokens

	resolved, err := resolver.Resolve(ctx, c.ID, models.OutcomeYes, adminActor())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.ContractStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("contract after resolve = %+v", resolved)
	}

	// 2000 whole shares pay 2000 tokens.
	w, _ := repo.GetWalletByOwnerID(ctx, winner)
	if w.BalanceTokens != 8995+2000 {
		t.Fatalf("winner balance = %d, want %d", w.BalanceTokens, 8995+2000)
	}
	// Losing shares are forfeited.
	lw, _ := repo.GetWalletByOwnerID(ctx, loser)
	if lw.BalanceTokens != loserBalance {
		t.Fatalf("loser balance = %d, want unchanged %d", lw.BalanceTokens, loserBalance)
	}

	// Every position carries its settled marker, paid or not.
	for _, owner := range []string{winner, loser} {
		ps, _ := repo.ListPositionsByOwner(ctx, owner)
		for _, p := range ps {
			if p.SettledAt == nil {
				t.Fatalf("position %d for %s not marked settled", p.ID, owner)
			}
		}
	}

	// A second resolve attempt must refuse rather than pay twice.
	if _, err := resolver.Resolve(ctx, c.ID, models.OutcomeYes, adminActor()); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second resolve err = %v, want ErrAlreadyResolved", err)
	}
	w2, _ := repo.GetWalletByOwnerID(ctx, winner)
	if w2.BalanceTokens != w.BalanceTokens {
		t.Fatalf("winner paid twice: %d -> %d", w.BalanceTokens, w2.BalanceTokens)
	}
}

func TestResolveRequiresAdmin(t *testing.T) {
	repo := newStubRepo()
	resolver := newTestResolver(repo)
	c := seedContract(t, repo)

	_, err := resolver.Resolve(context.Background(), c.ID, models.OutcomeYes, Actor{ID: uuid.NewString(), Role: "trader"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestResolveValidation(t *testing.T) {
	repo := newStubRepo()
	resolver := newTestResolver(repo)
	c := seedContract(t, repo)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, "nope", models.OutcomeYes, adminActor()); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad id err = %v, want ErrValidation", err)
	}
	if _, err := resolver.Resolve(ctx, c.ID, "maybe", adminActor()); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad outcome err = %v, want ErrValidation", err)
	}
	if _, err := resolver.Resolve(ctx, uuid.NewString(), models.OutcomeNo, adminActor()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing contract err = %v, want ErrNotFound", err)
	}
}

func TestResolveResumesInterruptedRun(t *testing.T) {
	repo := newStubRepo()
	exec := newTestExecutor(repo)
	resolver := newTestResolver(repo)
	c := seedContract(t, repo)
	ctx := context.Background()

	first := uuid.NewString()
	second := uuid.NewString()
	for _, owner := range []string{first, second} {
		if _, err := exec.SubmitTrade(ctx, TradeRequest{
			OwnerID: owner, ContractID: c.ID,
			Side: models.SideYes, Action: models.ActionBuy, AmountTokens: 1000,
		}); err != nil {
			t.Fatalf("buy for %s: %v", owner, err)
		}
	}

	// Simulate a crash after the freeze and after the first position was
	// paid: the contract sits in resolving with the outcome recorded.
	if err := repo.MarkContractResolvingTx(ctx, nil, c.ID, models.OutcomeYes); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	firstPositions, _ := repo.ListPositionsByOwner(ctx, first)
	pos := firstPositions[0]
	payout := pos.YesShares.Floor().IntPart()
	w, _ := repo.GetWalletByOwnerID(ctx, first)
	if err := repo.UpdateWalletBalanceTx(ctx, nil, w.ID, w.BalanceTokens+payout); err != nil {
		t.Fatalf("pay first: %v", err)
	}
	if err := repo.MarkPositionSettledTx(ctx, nil, pos.ID, payout, time.Now().UTC()); err != nil {
		t.Fatalf("mark first settled: %v", err)
	}
	firstBalance := w.BalanceTokens + payout

	// Resuming with a different outcome is refused.
	if _, err := resolver.Resolve(ctx, c.ID, models.OutcomeNo, adminActor()); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("wrong-outcome resume err = %v, want ErrStateConflict", err)
	}

	// Resuming with the recorded outcome settles only the remainder.
	if _, err := resolver.Resolve(ctx, c.ID, models.OutcomeYes, adminActor()); err != nil {
		t.Fatalf("resume: %v", err)
	}

	fw, _ := repo.GetWalletByOwnerID(ctx, first)
	if fw.BalanceTokens != firstBalance {
		t.Fatalf("already-settled position paid again: %d -> %d", firstBalance, fw.BalanceTokens)
	}
	sw, _ := repo.GetWalletByOwnerID(ctx, second)
	secondPositions, _ := repo.ListPositionsByOwner(ctx, second)
	wantPayout := secondPositions[0].YesShares.Floor().IntPart()
	if sw.BalanceTokens != 10000-1005+wantPayout {
		t.Fatalf("second balance = %d, want %d", sw.BalanceTokens, 10000-1005+wantPayout)
	}

	stored, _ := repo.GetContractByID(ctx, c.ID)
	if stored.Status != models.ContractStatusResolved {
		t.Fatalf("contract status = %s, want resolved", stored.Status)
	}
}

// staleWalletReadRepo returns the wallet as it was before the armed hook ran,
// so a balance write computed from that read drops whatever the hook changed
// in between. The hook fires once, on the next wallet read.
type staleWalletReadRepo struct {
	*stubRepo

	mu   sync.Mutex
	hook func()
}

func (r *staleWalletReadRepo) GetWalletByOwnerID(ctx context.Context, ownerID string) (*models.Wallet, error) {
	w, err := r.stubRepo.GetWalletByOwnerID(ctx, ownerID)
	r.mu.Lock()
	hook := r.hook
	r.hook = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return w, err
}

func TestResolutionSerializesWalletWithConcurrentTrade(t *testing.T) {
	base := newStubRepo()
	repo := &staleWalletReadRepo{stubRepo: base}
	gate := NewGate()
	exec := &TradeExecutor{Repo: base, Gate: gate, Logger: zap.NewNop(), StartingGrant: 10000}
	resolver := &ResolutionEngine{Repo: repo, Gate: gate, Logger: zap.NewNop(), StartingGrant: 10000}
	ctx := context.Background()

	owner := uuid.NewString()
	won := seedContract(t, base)
	other := seedContract(t, base)

	// 2000 yes shares on the winning contract, balance 8995.
	if _, err := exec.SubmitTrade(ctx, TradeRequest{
		OwnerID: owner, ContractID: won.ID,
		Side: models.SideYes, Action: models.ActionBuy, AmountTokens: 1000,
	}); err != nil {
		t.Fatalf("setup buy: %v", err)
	}

	// Between the settlement's wallet read and its balance write, the same
	// owner buys on the other contract. The wallet lock must make that buy
	// wait; otherwise the payout write is based on a stale balance and the
	// buy's debit is lost.
	done := make(chan struct{})
	var buyErr error
	repo.mu.Lock()
	repo.hook = func() {
		go func() {
			defer close(done)
			_, buyErr = exec.SubmitTrade(ctx, TradeRequest{
				OwnerID: owner, ContractID: other.ID,
				Side: models.SideNo, Action: models.ActionBuy, AmountTokens: 1000,
			})
		}()
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
			// The buy is blocked on the wallet, let settlement finish.
		}
	}
	repo.mu.Unlock()

	if _, err := resolver.Resolve(ctx, won.ID, models.OutcomeYes, adminActor()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	<-done
	if buyErr != nil {
		t.Fatalf("concurrent buy: %v", buyErr)
	}

	// 8995 + 2000 payout - 1005 debit, whichever side ran first.
	w, _ := base.GetWalletByOwnerID(ctx, owner)
	if w.BalanceTokens != 9990 {
		t.Fatalf("balance = %d, want 9990", w.BalanceTokens)
	}
	c, _ := base.GetContractByID(ctx, other.ID)
	if c.NoPool != 1000 {
		t.Fatalf("other contract no pool = %d, want 1000", c.NoPool)
	}
}

func TestSettlementMarkersGuardRepeats(t *testing.T) {
	repo := newStubRepo()
	exec := newTestExecutor(repo)
	resolver := newTestResolver(repo)
	c := seedContract(t, repo)
	ctx := context.Background()

	owner := uuid.NewString()
	if _, err := exec.SubmitTrade(ctx, TradeRequest{
		OwnerID: owner, ContractID: c.ID,
		Side: models.SideYes, Action: models.ActionBuy, AmountTokens: 1000,
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := resolver.Resolve(ctx, c.ID, models.OutcomeYes, adminActor()); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Each transition applies only from its expected state.
	if err := repo.MarkContractResolvingTx(ctx, nil, c.ID, models.OutcomeYes); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("freeze of resolved contract err = %v, want ErrRecordNotFound", err)
	}
	if err := repo.MarkContractResolvedTx(ctx, nil, c.ID, time.Now().UTC()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("finalize of resolved contract err = %v, want ErrRecordNotFound", err)
	}
	ps, _ := repo.ListPositionsByOwner(ctx, owner)
	if err := repo.MarkPositionSettledTx(ctx, nil, ps[0].ID, 1, time.Now().UTC()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("re-settle err = %v, want ErrRecordNotFound", err)
	}
	after, _ := repo.ListPositionsByOwner(ctx, owner)
	if after[0].Payout != 2000 {
		t.Fatalf("settled payout rewritten: %d", after[0].Payout)
	}
}

func TestResolveZeroShareHolderGetsNothing(t *testing.T) {
	repo := newStubRepo()
	exec := newTestExecutor(repo)
	resolver := newTestResolver(repo)
	c := seedContract(t, repo)
	ctx := context.Background()

	owner := uuid.NewString()
	if _, err := exec.SubmitTrade(ctx, TradeRequest{
		OwnerID: owner, ContractID: c.ID,
		Side: models.SideNo, Action: models.ActionBuy, AmountTokens: 100,
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	before, _ := repo.GetWalletByOwnerID(ctx, owner)

	if _, err := resolver.Resolve(ctx, c.ID, models.OutcomeYes, adminActor()); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	after, _ := repo.GetWalletByOwnerID(ctx, owner)
	if after.BalanceTokens != before.BalanceTokens {
		t.Fatalf("no-side holder paid on yes outcome: %d -> %d", before.BalanceTokens, after.BalanceTokens)
	}
	ps, _ := repo.ListPositionsByOwner(ctx, owner)
	if ps[0].SettledAt == nil || ps[0].Payout != 0 {
		t.Fatalf("losing position not marked settled with zero payout: %+v", ps[0])
	}
}

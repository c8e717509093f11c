package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"rebelodds/internal/models"
)

func TestGateLockTradeExclusive(t *testing.T) {
	gate := NewGate()
	contractID := uuid.NewString()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := gate.LockTrade(contractID, uuid.NewString())
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 64 {
		t.Fatalf("counter = %d, want 64", counter)
	}
}

func TestGateIndependentContracts(t *testing.T) {
	gate := NewGate()
	a := gate.LockContract(uuid.NewString())
	defer a()

	done := make(chan struct{})
	go func() {
		unlock := gate.LockContract(uuid.NewString())
		unlock()
		close(done)
	}()
	<-done
}

func TestConcurrentBuysSerialize(t *testing.T) {
	repo := newStubRepo()
	exec := newTestExecutor(repo)
	c := seedContract(t, repo)
	ctx := context.Background()

	const traders = 20
	const amount = 100

	var wg sync.WaitGroup
	errs := make(chan error, traders)
	for i := 0; i < traders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.SubmitTrade(ctx, TradeRequest{
				OwnerID: uuid.NewString(), ContractID: c.ID,
				Side: models.SideYes, Action: models.ActionBuy, AmountTokens: amount,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent buy: %v", err)
		}
	}

	// No lost pool updates: the final depth is the serialized sum.
	stored, _ := repo.GetContractByID(ctx, c.ID)
	if want := int64(traders * amount); stored.YesPool != want {
		t.Fatalf("yes pool = %d, want %d", stored.YesPool, want)
	}
	if n, _ := repo.CountTrades(ctx); n != traders {
		t.Fatalf("trade count = %d, want %d", n, traders)
	}
}

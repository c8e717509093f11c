package engine

import "sync"

// Gate serializes mutations per contract and per wallet. It replaces the
// single global queue of the original service with independent keyed mutexes:
// two trades touching different contracts and different wallets never wait on
// each other, while trades sharing either key are linearized.
//
// Lock order is fixed (contract before wallet) so a trade holding its
// contract lock can never deadlock against another trade or a resolution.
type Gate struct {
	contracts sync.Map // contract id -> *sync.Mutex
	wallets   sync.Map // owner id -> *sync.Mutex
}

func NewGate() *Gate {
	return &Gate{}
}

func lockFor(m *sync.Map, key string) *sync.Mutex {
	if mu, ok := m.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := m.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// LockContract acquires the exclusion for one contract and returns the
// release function.
func (g *Gate) LockContract(contractID string) func() {
	mu := lockFor(&g.contracts, contractID)
	mu.Lock()
	return mu.Unlock
}

// LockWallet acquires the exclusion for one wallet and returns the release
// function. Callers that already hold a contract lock keep the fixed
// contract-before-wallet order.
func (g *Gate) LockWallet(ownerID string) func() {
	mu := lockFor(&g.wallets, ownerID)
	mu.Lock()
	return mu.Unlock
}

// LockTrade acquires contract then wallet exclusion for one trade.
func (g *Gate) LockTrade(contractID, ownerID string) func() {
	cmu := lockFor(&g.contracts, contractID)
	wmu := lockFor(&g.wallets, ownerID)
	cmu.Lock()
	wmu.Lock()
	return func() {
		wmu.Unlock()
		cmu.Unlock()
	}
}

package engine

const (
	// DefaultFeeBps matches the platform-wide 0.5% rate; individual contracts
	// may carry a higher per-entity rate up to MaxFeeBps.
	DefaultFeeBps = 50
	MaxFeeBps     = 800
)

// ClampFeeBps normalizes a per-contract fee rate into [0, MaxFeeBps], falling
// back to the default when unset or negative.
func ClampFeeBps(bps int) int {
	if bps < 0 {
		return DefaultFeeBps
	}
	if bps > MaxFeeBps {
		return MaxFeeBps
	}
	return bps
}

// Fee computes the platform fee on a notional amount, rounding up so the
// rounding remainder always lands in the platform's favor. The quotient and
// remainder are taken separately so amount*bps cannot overflow int64.
func Fee(amount int64, bps int) int64 {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	rate := int64(bps)
	fee := (amount / 10000) * rate
	rem := (amount % 10000) * rate
	fee += rem / 10000
	if rem%10000 != 0 {
		fee++
	}
	return fee
}

package rooms

// PayoutResult is the terminal money computation for a room. It never
// touches the ledger: the room actor hands it to the ledger service.
type PayoutResult struct {
	Winner     string
	PrizeCents int64
	PoolCents  int64
	// Refunds is the full-refund schedule for a no-winner outcome;
	// nil when there is a winner.
	Refunds map[string]int64
}

// ComputePayout is pure: prize = floor(n * fee * pct / 100). On a draw
// every active player recovers exactly their entry fee.
func ComputePayout(players []string, winner string, feeCents int64, winPct int) PayoutResult {
	n := int64(len(players))
	pool := n * feeCents
	if winner == "" {
		refunds := make(map[string]int64, len(players))
		for _, p := range players {
			refunds[p] = feeCents
		}
		return PayoutResult{PoolCents: pool, Refunds: refunds}
	}
	return PayoutResult{
		Winner:     winner,
		PoolCents:  pool,
		PrizeCents: pool * int64(winPct) / 100,
	}
}

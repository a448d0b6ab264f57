package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePayoutWinner(t *testing.T) {
	tests := []struct {
		name      string
		players   []string
		fee       int64
		winPct    int
		wantPrize int64
		wantPool  int64
	}{
		{"two players standard cut", []string{"ana", "bob"}, 1000, 60, 1200, 2000},
		{"three players", []string{"ana", "bob", "eve"}, 500, 60, 900, 1500},
		{"floor on odd pool", []string{"ana", "bob", "eve"}, 333, 60, 599, 999},
		{"full table", []string{"a", "b", "c", "d", "e", "f", "g", "h"}, 250, 60, 1200, 2000},
		{"minimum fee", []string{"ana", "bob"}, 1, 60, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePayout(tt.players, tt.players[0], tt.fee, tt.winPct)
			assert.Equal(t, tt.players[0], got.Winner)
			assert.Equal(t, tt.wantPrize, got.PrizeCents)
			assert.Equal(t, tt.wantPool, got.PoolCents)
			assert.Nil(t, got.Refunds)
		})
	}
}

func TestComputePayoutDeterministic(t *testing.T) {
	players := []string{"ana", "bob", "eve"}
	first := ComputePayout(players, "bob", 750, 60)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ComputePayout(players, "bob", 750, 60))
	}
}

func TestComputePayoutDrawRefundsEveryone(t *testing.T) {
	players := []string{"ana", "bob", "eve"}
	got := ComputePayout(players, "", 1000, 60)

	assert.Empty(t, got.Winner)
	assert.Zero(t, got.PrizeCents)
	assert.Equal(t, int64(3000), got.PoolCents)
	assert.Len(t, got.Refunds, 3)
	for _, p := range players {
		assert.Equal(t, int64(1000), got.Refunds[p])
	}
}

package inventory_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/inventory-engine/inventory"
)

func TestSplitAddition(t *testing.T) {
	tests := []struct {
		name  string
		n, s  uint64
		whole uint64
		frag  uint64
	}{
		{"exact multiple", 20, 10, 20, 0},
		{"less than one piece", 3, 10, 0, 3},
		{"pieces plus fragment", 23, 10, 20, 3},
		{"zero", 0, 10, 0, 0},
		{"no size", 7, 0, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := inventory.SplitAddition(tt.n, tt.s)
			assert.Equal(t, tt.whole, split.Whole)
			assert.Equal(t, tt.frag, split.Fragment)
		})
	}
}

func TestSplitRemoval(t *testing.T) {
	tests := []struct {
		name  string
		n, s  uint64
		whole uint64
		frag  uint64
	}{
		{"exact multiple", 20, 10, 20, 0},
		{"cut one piece", 3, 10, 10, 7},
		{"pieces plus cut", 23, 10, 30, 7},
		{"no size", 7, 0, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := inventory.SplitRemoval(tt.n, tt.s)
			assert.Equal(t, tt.whole, split.Whole)
			assert.Equal(t, tt.frag, split.Fragment)
		})
	}
}

func TestSplit_Conservation(t *testing.T) {
	// The net quantity over all resulting identities always equals n.
	for s := uint64(1); s <= 12; s++ {
		for n := uint64(0); n <= 40; n++ {
			add := inventory.SplitAddition(n, s)
			assert.Equal(t, n, add.Whole+add.Fragment, "addition n=%d s=%d", n, s)
			assert.Less(t, add.Fragment, s)

			rm := inventory.SplitRemoval(n, s)
			assert.Equal(t, n, rm.Whole-rm.Fragment, "removal n=%d s=%d", n, s)
			assert.Zero(t, rm.Whole%s, "removal takes whole pieces only")
		}
	}
}

func TestSplitRemoval_NearOverflowFallsBackToRawCount(t *testing.T) {
	split := inventory.SplitRemoval(math.MaxUint64-1, 10)
	assert.Equal(t, uint64(math.MaxUint64-1), split.Whole)
	assert.Zero(t, split.Fragment)
}

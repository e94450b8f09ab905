package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/inventory/store"
)

func TestMemory_AppendKeepsOrderAndTimes(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	when := time.Date(2024, 12, 10, 10, 0, 0, 0, time.UTC)
	part := inventory.Simple("part")

	require.NoError(t, m.Append(ctx,
		inventory.LedgerEntry{Time: when, Count: 1, Item: part, Event: inventory.StoreTo(inventory.Location("a"))},
		inventory.LedgerEntry{Count: 2, Item: part, Event: inventory.TakeFrom(inventory.Location("a"))},
	))

	segments, err := m.Segments(ctx)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, store.DefaultSegment, segments[0].Name)
	require.Len(t, segments[0].Records, 2)
	assert.True(t, segments[0].Records[0].HasTime)
	assert.False(t, segments[0].Records[1].HasTime)
	assert.Equal(t, 2, segments[0].Records[1].Line)
}

func TestMemory_SegmentsAreCopies(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, inventory.LedgerEntry{Count: 1, Item: inventory.Simple("part")}))

	segments, _ := m.Segments(ctx)
	segments[0].Records[0].Entry.Count = 99

	again, _ := m.Segments(ctx)
	assert.Equal(t, uint64(1), again[0].Records[0].Entry.Count)
}

func TestMemory_DuplicateTransactionIsAtomic(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, inventory.LedgerEntry{Count: 1, Transaction: "tx-1"}))

	err := m.Append(ctx,
		inventory.LedgerEntry{Count: 2, Transaction: "tx-2"},
		inventory.LedgerEntry{Count: 3, Transaction: "tx-1"},
	)

	assert.ErrorIs(t, err, inventory.ErrDuplicateTransaction)
	assert.Equal(t, 1, m.Len(), "nothing from the rejected batch is kept")
}

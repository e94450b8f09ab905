package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/inventory-engine/inventory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	testPart   inventory.TypeID = "test-part"
	testPieces inventory.TypeID = "test-pieces"
)

var (
	locA  = inventory.Location("location-a")
	locB  = inventory.Location("location-b")
	projX = inventory.Project("project-x")
	srcS  = inventory.Supplier("supplier-s")
)

func testPolicies() *inventory.StaticPolicies {
	return inventory.NewStaticPolicies(
		inventory.ItemDefinition{ID: testPart, Name: "Test part", Policy: inventory.Policy{Tracking: inventory.TrackCount}},
		inventory.ItemDefinition{ID: testPieces, Name: "Test pieces", Policy: inventory.Policy{Tracking: inventory.TrackPieces, PieceSize: 10}},
	)
}

func newTestTracker(t *testing.T) (*inventory.Tracker, *inventory.StaticPolicies) {
	t.Helper()
	policies := testPolicies()
	return inventory.NewTracker(policies), policies
}

func fold(t *testing.T, tr *inventory.Tracker, n uint64, item inventory.ItemID, ev inventory.Event) {
	t.Helper()
	require.NoError(t, tr.Fold(context.Background(), inventory.LedgerEntry{
		Time:  time.Date(2024, 12, 10, 10, 0, 0, 0, time.UTC),
		Count: n,
		Item:  item,
		Event: ev,
	}))
}

func at(minute int) time.Time {
	return time.Date(2024, 12, 10, 10, minute, 0, 0, time.UTC)
}

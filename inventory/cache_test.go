package inventory_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inventory-engine/inventory"
)

var widget = inventory.Simple("widget")

func TestCache_GetAbsentReturnsZeroEntry(t *testing.T) {
	c := inventory.NewCache()

	e := c.Get(widget, locA)

	assert.Equal(t, widget, e.Item)
	assert.Equal(t, locA, e.Dimension)
	assert.Zero(t, e.Added)
	assert.Zero(t, e.Count())
	assert.Zero(t, c.Len(), "Get must not create entries")
}

func TestCache_UpdateChanges(t *testing.T) {
	c := inventory.NewCache()

	c.Update(widget, locA, inventory.Add(10), inventory.Add(3), inventory.Set(7))
	e := c.Update(widget, locA, inventory.Keep(), inventory.Sub(1), inventory.Sub(10))

	assert.Equal(t, uint64(10), e.Added)
	assert.Equal(t, uint64(2), e.Removed)
	assert.Equal(t, uint64(0), e.Required, "subtract saturates at zero")
	assert.Equal(t, int64(8), e.Count())
	assert.Equal(t, 1, c.Len(), "one entry per (item, dimension)")
}

func TestCache_AddSaturates(t *testing.T) {
	c := inventory.NewCache()

	c.Update(widget, locA, inventory.Set(math.MaxUint64-1), inventory.Keep(), inventory.Keep())
	e := c.Update(widget, locA, inventory.Add(5), inventory.Keep(), inventory.Keep())

	assert.Equal(t, uint64(math.MaxUint64), e.Added)
	assert.Equal(t, int64(math.MaxInt64), e.Count())
}

func TestEntry_CountCanBeNegative(t *testing.T) {
	e := inventory.Entry{Added: 2, Removed: 5}
	assert.Equal(t, int64(-3), e.Count())

	e = inventory.Entry{Removed: math.MaxUint64}
	assert.Equal(t, int64(math.MinInt64), e.Count())
}

func TestCache_VisibilitySuppression(t *testing.T) {
	// GIVEN: an entry that went back to zero
	c := inventory.NewCache()
	c.Update(widget, locA, inventory.Add(4), inventory.Add(4), inventory.Keep())

	// THEN: it is hidden from every listing but still readable
	assert.Empty(t, c.ByItem(widget))
	assert.Empty(t, c.ByDimension(locA))
	assert.Empty(t, c.ByItemType("widget"))
	assert.Equal(t, uint64(4), c.Get(widget, locA).Added)

	// WHEN: it is pinned
	c.SetShowEmpty(widget, locA, true)

	// THEN: it shows up at zero
	require.Len(t, c.ByDimension(locA), 1)
	assert.Zero(t, c.ByDimension(locA)[0].Count())

	c.SetShowEmpty(widget, locA, false)
	assert.Empty(t, c.ByDimension(locA))
}

func TestCache_RequirementKeepsEntryVisible(t *testing.T) {
	c := inventory.NewCache()
	c.Update(widget, locA, inventory.Keep(), inventory.Keep(), inventory.Set(5))

	require.Len(t, c.ByItem(widget), 1)
	assert.Equal(t, uint64(5), c.ByItem(widget)[0].Required)
}

func TestCache_ShowEmptyOnAbsentEntryCreatesIt(t *testing.T) {
	c := inventory.NewCache()
	c.SetShowEmpty(widget, locB, true)

	require.Len(t, c.ByDimension(locB), 1)
	assert.True(t, c.Get(widget, locB).ShowEmpty)
}

func TestCache_ListingsByKey(t *testing.T) {
	c := inventory.NewCache()
	p3 := inventory.Piece("widget", 3)
	other := inventory.Simple("gadget")
	c.Update(widget, locA, inventory.Add(1), inventory.Keep(), inventory.Keep())
	c.Update(p3, locA, inventory.Add(3), inventory.Keep(), inventory.Keep())
	c.Update(p3, locB, inventory.Add(3), inventory.Keep(), inventory.Keep())
	c.Update(other, locB, inventory.Add(9), inventory.Keep(), inventory.Keep())

	assert.Len(t, c.ByItem(p3), 2)
	assert.Len(t, c.ByItem(widget), 1)
	assert.Len(t, c.ByDimension(locA), 2)
	assert.Len(t, c.ByDimension(locB), 2)

	byType := c.ByItemType("widget")
	require.Len(t, byType, 3)
	// sorted by item (simple first, then piece size), then dimension
	assert.Equal(t, widget, byType[0].Item)
	assert.Equal(t, p3, byType[1].Item)
	assert.Equal(t, locA, byType[1].Dimension)
	assert.Equal(t, locB, byType[2].Dimension)
}

func TestCache_RemoveAll(t *testing.T) {
	c := inventory.NewCache()
	p3 := inventory.Piece("widget", 3)
	other := inventory.Simple("gadget")
	c.Update(widget, locA, inventory.Add(1), inventory.Keep(), inventory.Keep())
	c.Update(p3, locB, inventory.Add(3), inventory.Keep(), inventory.Keep())
	c.Update(other, locB, inventory.Add(9), inventory.Keep(), inventory.Keep())

	t.Run("type evicts every variant", func(t *testing.T) {
		c := inventory.NewCache()
		c.Update(widget, locA, inventory.Add(1), inventory.Keep(), inventory.Keep())
		c.Update(p3, locB, inventory.Add(3), inventory.Keep(), inventory.Keep())

		assert.Equal(t, 2, c.RemoveAll(widget))
		assert.Zero(t, c.Len())
		assert.Empty(t, c.ByDimension(locB))
	})

	t.Run("dimension evicts its entries only", func(t *testing.T) {
		assert.Equal(t, 2, c.RemoveAll(locB))
		assert.Equal(t, 1, c.Len())
		assert.Empty(t, c.ByItemType("gadget"))
		assert.Len(t, c.ByItem(widget), 1)
	})

	t.Run("piece evicts one exact id", func(t *testing.T) {
		c := inventory.NewCache()
		c.Update(widget, locA, inventory.Add(1), inventory.Keep(), inventory.Keep())
		c.Update(p3, locA, inventory.Add(3), inventory.Keep(), inventory.Keep())

		assert.Equal(t, 1, c.RemoveAll(p3))
		assert.Len(t, c.ByItemType("widget"), 1)
	})
}

func TestSum(t *testing.T) {
	totals := inventory.Sum([]inventory.Entry{
		{Added: 10, Removed: 3, Required: 1},
		{Added: 5, Removed: 0, Required: 2},
	})

	assert.Equal(t, inventory.Totals{Added: 15, Removed: 3, Required: 3}, totals)
	assert.Equal(t, int64(12), totals.Count())
	assert.Equal(t, inventory.Totals{}, inventory.Sum(nil))
}

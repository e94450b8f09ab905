/*
cache.go - Count cache: memoized aggregates keyed by (item, dimension)

PURPOSE:
  Holds the running totals produced by folding ledger entries. Three
  independent caches exist (stock, orders, projects) with identical
  mechanics. Entries are never persisted; they are always rebuildable
  from the ledger.

ENTRY FIELDS:
  Added     total quantity added at the dimension
  Removed   total quantity removed at the dimension
  Required  requirement (stock, projects) or open order quantity (orders)
  ShowEmpty keeps the entry listed even when it is empty

  Count() = Added - Removed, saturating signed arithmetic.

VISIBILITY:
  Listings hide an entry when Count() == 0, Required == 0 and ShowEmpty is
  false. Get always returns the entry, listed or not.

INDICES:
  byItem, byDim and byType are kept in sync with the primary map on every
  insert and eviction, so listings cost O(entries at that key). Listings
  are sorted by item, then dimension (see Compare).

CONCURRENCY:
  Cache is not safe for concurrent use. Tracker serializes access.

SEE ALSO:
  - tracker.go: Routes ledger entries to the right cache
  - pieces.go: Piece fragmentation
*/
package inventory

import (
	"math"
	"slices"
)

// =============================================================================
// CHANGE - One field update
// =============================================================================

type changeOp uint8

const (
	opKeep changeOp = iota
	opSet
	opAdd
	opSub
)

// Change is an update applied to one unsigned entry field.
type Change struct {
	op changeOp
	n  uint64
}

// Keep leaves the field untouched.
func Keep() Change { return Change{} }

// Set replaces the field.
func Set(n uint64) Change { return Change{op: opSet, n: n} }

// Add increases the field, saturating at the maximum value.
func Add(n uint64) Change { return Change{op: opAdd, n: n} }

// Sub decreases the field, saturating at zero.
func Sub(n uint64) Change { return Change{op: opSub, n: n} }

func (c Change) apply(v uint64) uint64 {
	switch c.op {
	case opSet:
		return c.n
	case opAdd:
		if v > math.MaxUint64-c.n {
			return math.MaxUint64
		}
		return v + c.n
	case opSub:
		if c.n > v {
			return 0
		}
		return v - c.n
	}
	return v
}

// =============================================================================
// ENTRY
// =============================================================================

// Entry is the aggregate for one (item, dimension) pair.
type Entry struct {
	Item      ItemID
	Dimension DimensionID
	Added     uint64
	Removed   uint64
	Required  uint64
	ShowEmpty bool
}

// Count returns Added - Removed, clamped to the int64 range.
func (e Entry) Count() int64 {
	if e.Added >= e.Removed {
		d := e.Added - e.Removed
		if d > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(d)
	}
	d := e.Removed - e.Added
	if d > math.MaxInt64 {
		return math.MinInt64
	}
	return -int64(d)
}

// Visible reports whether listings include the entry.
func (e Entry) Visible() bool {
	return e.Count() != 0 || e.Required != 0 || e.ShowEmpty
}

// Totals is the sum of a list of entries.
type Totals struct {
	Added    uint64
	Removed  uint64
	Required uint64
}

// Count returns Added - Removed of the totals.
func (t Totals) Count() int64 {
	return Entry{Added: t.Added, Removed: t.Removed}.Count()
}

// Sum folds entries into totals, saturating each field.
func Sum(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		t.Added = Add(e.Added).apply(t.Added)
		t.Removed = Add(e.Removed).apply(t.Removed)
		t.Required = Add(e.Required).apply(t.Required)
	}
	return t
}

// =============================================================================
// CACHE
// =============================================================================

type entryKey struct {
	item ItemID
	dim  DimensionID
}

type keySet map[entryKey]struct{}

// Cache maps (item, dimension) pairs to entries.
type Cache struct {
	entries map[entryKey]*Entry
	byItem  map[ItemID]keySet
	byDim   map[DimensionID]keySet
	byType  map[TypeID]keySet
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[entryKey]*Entry),
		byItem:  make(map[ItemID]keySet),
		byDim:   make(map[DimensionID]keySet),
		byType:  make(map[TypeID]keySet),
	}
}

// Len returns the number of live entries, visible or not.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Get returns the entry for (item, dim), or a zero entry if absent.
func (c *Cache) Get(item ItemID, dim DimensionID) Entry {
	if e, ok := c.entries[entryKey{item, dim}]; ok {
		return *e
	}
	return Entry{Item: item, Dimension: dim}
}

// Update applies one change per field and returns the resulting entry.
func (c *Cache) Update(item ItemID, dim DimensionID, added, removed, required Change) Entry {
	e := c.entry(item, dim)
	e.Added = added.apply(e.Added)
	e.Removed = removed.apply(e.Removed)
	e.Required = required.apply(e.Required)
	return *e
}

// SetShowEmpty pins or unpins an entry in listings.
func (c *Cache) SetShowEmpty(item ItemID, dim DimensionID, show bool) {
	c.entry(item, dim).ShowEmpty = show
}

func (c *Cache) entry(item ItemID, dim DimensionID) *Entry {
	k := entryKey{item, dim}
	if e, ok := c.entries[k]; ok {
		return e
	}
	e := &Entry{Item: item, Dimension: dim}
	c.entries[k] = e
	index(c.byItem, item, k)
	index(c.byDim, dim, k)
	index(c.byType, item.Type(), k)
	return e
}

func index[K comparable](m map[K]keySet, at K, k entryKey) {
	set, ok := m[at]
	if !ok {
		set = make(keySet)
		m[at] = set
	}
	set[k] = struct{}{}
}

func unindex[K comparable](m map[K]keySet, at K, k entryKey) {
	set := m[at]
	delete(set, k)
	if len(set) == 0 {
		delete(m, at)
	}
}

func (c *Cache) evict(k entryKey) {
	delete(c.entries, k)
	unindex(c.byItem, k.item, k)
	unindex(c.byDim, k.dim, k)
	unindex(c.byType, k.item.Type(), k)
}

// RemoveAll evicts every entry keyed by id, either as item or as
// dimension. A Simple id also evicts every piece and serial variant of
// its type. Returns the number of evicted entries.
func (c *Cache) RemoveAll(id ItemID) int {
	var keys []entryKey
	if id.Kind() == KindSimple {
		keys = appendKeys(keys, c.byType[id.Type()])
	} else {
		keys = appendKeys(keys, c.byItem[id])
	}
	keys = appendKeys(keys, c.byDim[id])
	n := 0
	for _, k := range keys {
		if _, ok := c.entries[k]; ok {
			c.evict(k)
			n++
		}
	}
	return n
}

func appendKeys(keys []entryKey, set keySet) []entryKey {
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}

// Clear drops every entry.
func (c *Cache) Clear() {
	*c = *NewCache()
}

// =============================================================================
// LISTINGS
// =============================================================================

// ByItem lists the visible entries of one exact item id.
func (c *Cache) ByItem(item ItemID) []Entry {
	return c.list(c.byItem[item])
}

// ByDimension lists the visible entries at one dimension.
func (c *Cache) ByDimension(dim DimensionID) []Entry {
	return c.list(c.byDim[dim])
}

// ByItemType lists the visible entries of every variant of a type.
func (c *Cache) ByItemType(t TypeID) []Entry {
	return c.list(c.byType[t])
}

// Entries lists every live entry, including hidden ones.
func (c *Cache) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sortEntries(out)
	return out
}

func (c *Cache) list(set keySet) []Entry {
	out := make([]Entry, 0, len(set))
	for k := range set {
		e := c.entries[k]
		if !e.Visible() {
			continue
		}
		out = append(out, *e)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := Compare(a.Item, b.Item); c != 0 {
			return c
		}
		return Compare(a.Dimension, b.Dimension)
	})
}

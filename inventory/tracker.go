/*
tracker.go - Folding ledger entries into the three count caches

PURPOSE:
  Tracker owns the stock, orders and projects caches and is the only code
  that mutates them. Every mutation is the fold of one ledger entry.

ROUTING:
  location events -> stock cache     (TakeFrom, StoreTo, ForceCount, RequireIn)
  source events   -> orders cache    (OrderFrom, CancelOrderFrom, DeliverFrom, ReturnTo)
  project events  -> projects cache  (SolderTo, UnsolderFrom, RequireInProject, ForceCountProject)

FOLD RULES:
  StoreTo, SolderTo        add, with piece fragmentation
  TakeFrom, UnsolderFrom   remove, with piece fragmentation
  ForceCount*              adjust Added so that Count() == n, Removed untouched
  RequireIn*               Required = n on the type (absolute)
  OrderFrom                Required += n on the type
  CancelOrderFrom          Required -= n on the type (saturating)
  DeliverFrom, ReturnTo    Added / Removed += n, full identity kept

ID RESOLUTION:
  With a pieces policy, Simple and Piece(t, 0) ids resolve to the declared
  piece size. A removal of a Simple id first drains Simple stock recorded
  before the policy changed. Fragments take the policy's identity: pieces
  for pieces tracking, the bare type for count tracking.

ATOMICITY:
  A fold is planned against the current caches, validated, and applied
  under the write lock. Readers hold the read lock, so no query ever sees
  a ledger entry half applied.

SEE ALSO:
  - cache.go: Count cache
  - pieces.go: Fragmentation
  - replay.go: Rebuilding the caches from a Source
*/
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// CacheKind selects one of the three caches.
type CacheKind uint8

const (
	CacheStock CacheKind = iota
	CacheOrders
	CacheProjects
)

func (k CacheKind) String() string {
	switch k {
	case CacheStock:
		return "stock"
	case CacheOrders:
		return "orders"
	case CacheProjects:
		return "projects"
	}
	return fmt.Sprintf("cache(%d)", uint8(k))
}

// ParseCacheKind accepts the String form of a cache kind.
func ParseCacheKind(s string) (CacheKind, error) {
	for _, k := range []CacheKind{CacheStock, CacheOrders, CacheProjects} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown cache %q", s)
}

type caches [3]*Cache

func newCaches() caches {
	return caches{NewCache(), NewCache(), NewCache()}
}

func (c caches) apply(plan []update) {
	for _, u := range plan {
		c[u.cache].Update(u.item, u.dim, u.added, u.removed, u.required)
	}
}

// State is the replay lifecycle of a Tracker.
type State uint8

const (
	StateIdle State = iota
	StateLoading
	StateReplayed
	StateStale // the last replay aborted; counts predate it
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReplayed:
		return "replayed"
	case StateStale:
		return "stale"
	}
	return "idle"
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker folds ledger entries into the stock, orders and projects caches.
type Tracker struct {
	// record serializes Record so entries fold in append order.
	record sync.Mutex

	mu       sync.RWMutex
	caches   caches
	state    State
	policies Policies
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used by replay.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker returns a tracker with empty caches. A nil policies treats
// every item as untracked.
func NewTracker(policies Policies, opts ...Option) *Tracker {
	t := &Tracker{
		caches:   newCaches(),
		policies: policies,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fold applies one ledger entry. Invalid entries leave the caches untouched.
func (t *Tracker) Fold(ctx context.Context, e LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	l, err := t.lookup(ctx, e.Item.Type())
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := plan(t.caches, l, e)
	if err != nil {
		return err
	}
	t.caches.apply(p)
	return nil
}

// Record validates entries, appends them to the store and folds them. If
// validation or the append fails, nothing is folded.
func (t *Tracker) Record(ctx context.Context, store Store, entries ...LedgerEntry) error {
	looks := make([]lookup, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		l, err := t.lookup(ctx, e.Item.Type())
		if err != nil {
			return err
		}
		looks[i] = l
	}

	t.record.Lock()
	defer t.record.Unlock()
	if err := store.Append(ctx, entries...); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range entries {
		p, err := plan(t.caches, looks[i], e)
		if err != nil {
			return err
		}
		t.caches.apply(p)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns the entry for (item, dim) in one cache.
func (t *Tracker) Get(c CacheKind, item ItemID, dim DimensionID) Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.caches[c].Get(item, dim)
}

// ByItem lists the visible entries of an exact item id.
func (t *Tracker) ByItem(c CacheKind, item ItemID) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.caches[c].ByItem(item)
}

// ByDimension lists the visible entries at a location, source or project.
func (t *Tracker) ByDimension(c CacheKind, dim DimensionID) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.caches[c].ByDimension(dim)
}

// ByItemType lists the visible entries of every variant of a type.
func (t *Tracker) ByItemType(c CacheKind, typ TypeID) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.caches[c].ByItemType(typ)
}

// SetShowEmpty pins an entry into listings even when it is empty.
func (t *Tracker) SetShowEmpty(c CacheKind, item ItemID, dim DimensionID, show bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.caches[c].SetShowEmpty(item, dim, show)
}

// State returns the replay state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Snapshot holds every live entry of the three caches.
type Snapshot struct {
	Stock    []Entry
	Orders   []Entry
	Projects []Entry
}

// Snapshot copies every live entry, hidden ones included.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Stock:    t.caches[CacheStock].Entries(),
		Orders:   t.caches[CacheOrders].Entries(),
		Projects: t.caches[CacheProjects].Entries(),
	}
}

// =============================================================================
// EVICTION
// =============================================================================

// CanRemove returns an ObjectInUseError when id, as an item or as a
// dimension, still has a nonzero count or requirement in any cache.
func (t *Tracker) CanRemove(id ItemID) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var blocking []Entry
	for _, c := range t.caches {
		var entries []Entry
		if id.Kind() == KindSimple {
			entries = c.ByItemType(id.Type())
		} else {
			entries = c.ByItem(id)
		}
		entries = append(entries, c.ByDimension(id)...)
		for _, e := range entries {
			if e.Count() != 0 || e.Required != 0 {
				blocking = append(blocking, e)
			}
		}
	}
	if len(blocking) > 0 {
		return &ObjectInUseError{ID: id, Entries: blocking}
	}
	return nil
}

// Remove evicts every entry keyed by id from all caches. Callers should
// check CanRemove first; Remove itself does not refuse.
func (t *Tracker) Remove(id ItemID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.caches {
		n += c.RemoveAll(id)
	}
	return n
}

// =============================================================================
// FOLD PLANNING
// =============================================================================

type update struct {
	cache    CacheKind
	item     ItemID
	dim      DimensionID
	added    Change
	removed  Change
	required Change
}

// lookup is the policy of one item type as seen by a fold.
type lookup struct {
	policy Policy
	known  bool
}

func (t *Tracker) lookup(ctx context.Context, typ TypeID) (lookup, error) {
	if t.policies == nil {
		return lookup{}, nil
	}
	p, err := t.policies.Policy(ctx, typ)
	if errors.Is(err, ErrUnknownItem) {
		return lookup{}, nil
	}
	if err != nil {
		return lookup{}, fmt.Errorf("policy of %s: %w", typ, err)
	}
	return lookup{policy: p, known: true}, nil
}

func (l lookup) resolve(item ItemID) ItemID {
	if !l.known {
		return item
	}
	switch l.policy.Tracking {
	case TrackPieces:
		unsized := item.Kind() == KindSimple || (item.Kind() == KindPiece && item.PieceSize() == 0)
		if unsized && l.policy.PieceSize > 0 {
			return Piece(item.Type(), l.policy.PieceSize)
		}
	case TrackCount:
		if item.Kind() == KindPiece && item.PieceSize() == 0 {
			return item.Simple()
		}
	}
	return item
}

func (l lookup) fragment(item ItemID, size uint64) ItemID {
	if l.known && l.policy.Tracking == TrackCount {
		return item.Simple()
	}
	return Piece(item.Type(), size)
}

// plan computes the cache updates of one entry without mutating c.
func plan(c caches, l lookup, e LedgerEntry) ([]update, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	n, dim, ck := e.Count, e.Event.Target, e.Event.Kind.Ledger()

	switch e.Event.Kind {
	case EventStoreTo, EventSolderTo:
		return planAddition(ck, l, l.resolve(e.Item), dim, n), nil

	case EventTakeFrom, EventUnsolderFrom:
		item := l.resolve(e.Item)
		if item != e.Item && e.Item.Kind() == KindSimple && c[ck].Get(e.Item, dim).Count() > 0 {
			item = e.Item
		}
		return planRemoval(ck, l, item, dim, n), nil

	case EventForceCount, EventForceCountProject:
		item := l.resolve(e.Item)
		return []update{forceCount(ck, item, dim, n, c[ck].Get(item, dim).Count())}, nil

	case EventRequireIn, EventRequireInProject:
		return []update{{cache: ck, item: e.Item.Simple(), dim: dim, required: Set(n)}}, nil

	case EventOrderFrom:
		return []update{{cache: ck, item: e.Item.Simple(), dim: dim, required: Add(n)}}, nil

	case EventCancelOrderFrom:
		return []update{{cache: ck, item: e.Item.Simple(), dim: dim, required: Sub(n)}}, nil

	case EventDeliverFrom:
		return []update{{cache: ck, item: e.Item, dim: dim, added: Add(n)}}, nil

	case EventReturnTo:
		return []update{{cache: ck, item: e.Item, dim: dim, removed: Add(n)}}, nil
	}
	return nil, &InvalidEventError{Entry: e, Reason: "unsupported event kind"}
}

func planAddition(ck CacheKind, l lookup, item ItemID, dim DimensionID, n uint64) []update {
	size, ok := item.PieceSizeOption()
	if !ok {
		return []update{{cache: ck, item: item, dim: dim, added: Add(n)}}
	}
	split := SplitAddition(n, size)
	var out []update
	if split.Whole > 0 {
		out = append(out, update{cache: ck, item: item, dim: dim, added: Add(split.Whole)})
	}
	if split.Fragment > 0 {
		out = append(out, update{cache: ck, item: l.fragment(item, split.Fragment), dim: dim, added: Add(split.Fragment)})
	}
	return out
}

func planRemoval(ck CacheKind, l lookup, item ItemID, dim DimensionID, n uint64) []update {
	size, ok := item.PieceSizeOption()
	if !ok {
		return []update{{cache: ck, item: item, dim: dim, removed: Add(n)}}
	}
	split := SplitRemoval(n, size)
	out := []update{{cache: ck, item: item, dim: dim, removed: Add(split.Whole)}}
	if split.Fragment > 0 {
		out = append(out, update{cache: ck, item: l.fragment(item, split.Fragment), dim: dim, added: Add(split.Fragment)})
	}
	return out
}

// forceCount explains the difference between n and the current count as
// unrecorded receipts: only Added moves.
func forceCount(ck CacheKind, item ItemID, dim DimensionID, n uint64, count int64) update {
	u := update{cache: ck, item: item, dim: dim}
	switch {
	case count < 0:
		deficit := uint64(-(count + 1)) + 1
		u.added = Add(Add(deficit).apply(n))
	case n > uint64(count):
		u.added = Add(n - uint64(count))
	default:
		u.added = Sub(uint64(count) - n)
	}
	return u
}

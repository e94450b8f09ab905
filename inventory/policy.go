package inventory

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// TRACKING POLICY - Supplied by the item catalog
// =============================================================================

// Tracking selects how quantities of an item type are identified.
type Tracking string

const (
	TrackCount  Tracking = "count"
	TrackPieces Tracking = "pieces"
	TrackUnique Tracking = "unique"
)

// ParseTracking accepts the catalog spellings; empty means count.
func ParseTracking(s string) (Tracking, error) {
	switch Tracking(s) {
	case "", TrackCount:
		return TrackCount, nil
	case TrackPieces, TrackUnique:
		return Tracking(s), nil
	}
	return "", fmt.Errorf("unknown tracking %q", s)
}

// Policy is the per-type tracking configuration.
type Policy struct {
	Tracking  Tracking
	PieceSize uint64
	Unit      Unit
}

// Validate checks the policy is usable for folding.
func (p Policy) Validate() error {
	if _, err := ParseTracking(string(p.Tracking)); err != nil {
		return err
	}
	if p.Tracking == TrackPieces && p.PieceSize == 0 {
		return fmt.Errorf("pieces tracking requires a piece size")
	}
	if p.Unit != "" {
		if _, err := ParseUnit(string(p.Unit)); err != nil {
			return err
		}
	}
	return nil
}

// ItemDefinition is a catalog item: its type and tracking policy.
type ItemDefinition struct {
	ID     TypeID
	Name   string
	Policy Policy
}

// Policies looks up the tracking policy of an item type. Implementations
// return ErrUnknownItem for types they do not know.
type Policies interface {
	Policy(ctx context.Context, t TypeID) (Policy, error)
}

// ItemStore holds item definitions. The sqlite store and the file catalog
// implement it. DeleteItem of a type that is not defined is not an error.
type ItemStore interface {
	Policies
	SaveItem(ctx context.Context, def ItemDefinition) error
	ListItems(ctx context.Context) ([]ItemDefinition, error)
	DeleteItem(ctx context.Context, t TypeID) error
}

// StaticPolicies is an in-memory Policies map, safe for concurrent use.
type StaticPolicies struct {
	mu       sync.RWMutex
	policies map[TypeID]Policy
}

func NewStaticPolicies(defs ...ItemDefinition) *StaticPolicies {
	s := &StaticPolicies{policies: make(map[TypeID]Policy, len(defs))}
	for _, d := range defs {
		s.policies[d.ID] = d.Policy
	}
	return s
}

func (s *StaticPolicies) Policy(_ context.Context, t TypeID) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[t]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrUnknownItem, t)
	}
	return p, nil
}

// Put replaces the policy of a type.
func (s *StaticPolicies) Put(t TypeID, p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[t] = p
}

// Delete forgets a type.
func (s *StaticPolicies) Delete(t TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, t)
}

package inventory

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// LEDGER EVENT TAXONOMY
// =============================================================================

// EventKind is the closed set of accounting events.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventTakeFrom
	EventStoreTo
	EventForceCount
	EventRequireIn
	EventRequireInProject
	EventOrderFrom
	EventCancelOrderFrom
	EventDeliverFrom
	EventReturnTo
	EventSolderTo
	EventUnsolderFrom
	EventForceCountProject
)

var eventNames = map[EventKind]string{
	EventTakeFrom:          "take_from",
	EventStoreTo:           "store_to",
	EventForceCount:        "force_count",
	EventRequireIn:         "require_in",
	EventRequireInProject:  "require_in_project",
	EventOrderFrom:         "order_from",
	EventCancelOrderFrom:   "cancel_order_from",
	EventDeliverFrom:       "deliver_from",
	EventReturnTo:          "return_to",
	EventSolderTo:          "solder_to",
	EventUnsolderFrom:      "unsolder_from",
	EventForceCountProject: "force_count_project",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventNames {
		if name == s {
			return k, nil
		}
	}
	return EventUnknown, fmt.Errorf("%w: unknown event kind %q", ErrInvalidEvent, s)
}

// Dimension is the axis an event is accounted on.
type Dimension uint8

const (
	DimensionNone Dimension = iota
	DimensionLocation
	DimensionSource
	DimensionProject
)

func (d Dimension) String() string {
	switch d {
	case DimensionLocation:
		return "location"
	case DimensionSource:
		return "source"
	case DimensionProject:
		return "project"
	}
	return "none"
}

// Dimension returns the axis the event kind is accounted on.
func (k EventKind) Dimension() Dimension {
	switch k {
	case EventTakeFrom, EventStoreTo, EventForceCount, EventRequireIn:
		return DimensionLocation
	case EventOrderFrom, EventCancelOrderFrom, EventDeliverFrom, EventReturnTo:
		return DimensionSource
	case EventRequireInProject, EventSolderTo, EventUnsolderFrom, EventForceCountProject:
		return DimensionProject
	}
	return DimensionNone
}

// Ledger returns the cache an event of this kind is folded into.
func (k EventKind) Ledger() CacheKind {
	switch k.Dimension() {
	case DimensionSource:
		return CacheOrders
	case DimensionProject:
		return CacheProjects
	}
	return CacheStock
}

// Event names one accounting effect on one dimension.
type Event struct {
	Kind   EventKind
	Target DimensionID
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Kind, e.Target)
}

func TakeFrom(loc LocationID) Event { return Event{Kind: EventTakeFrom, Target: loc} }
func StoreTo(loc LocationID) Event { return Event{Kind: EventStoreTo, Target: loc} }
func ForceCount(loc LocationID) Event { return Event{Kind: EventForceCount, Target: loc} }
func RequireIn(loc LocationID) Event { return Event{Kind: EventRequireIn, Target: loc} }
func RequireInProject(p ProjectID) Event { return Event{Kind: EventRequireInProject, Target: p} }
func OrderFrom(src SourceID) Event { return Event{Kind: EventOrderFrom, Target: src} }
func CancelOrderFrom(src SourceID) Event { return Event{Kind: EventCancelOrderFrom, Target: src} }
func DeliverFrom(src SourceID) Event { return Event{Kind: EventDeliverFrom, Target: src} }
func ReturnTo(src SourceID) Event { return Event{Kind: EventReturnTo, Target: src} }
func SolderTo(p ProjectID) Event { return Event{Kind: EventSolderTo, Target: p} }
func UnsolderFrom(p ProjectID) Event { return Event{Kind: EventUnsolderFrom, Target: p} }
func ForceCountProject(p ProjectID) Event { return Event{Kind: EventForceCountProject, Target: p} }

// =============================================================================
// LEDGER ENTRY
// =============================================================================

// LedgerEntry is one immutable accounting record.
type LedgerEntry struct {
	Time        time.Time
	Count       uint64
	Item        ItemID
	Event       Event
	Transaction string // optional, groups entries recorded together
}

// Validate checks the entry can be folded without touching any cache.
func (e LedgerEntry) Validate() error {
	switch {
	case e.Event.Kind.Dimension() == DimensionNone:
		return &InvalidEventError{Entry: e, Reason: "unknown event kind"}
	case e.Item.Type() == "":
		return &InvalidEventError{Entry: e, Reason: "missing item"}
	case e.Event.Target.Type() == "":
		return &InvalidEventError{Entry: e, Reason: "missing " + e.Event.Kind.Dimension().String()}
	case e.Event.Target.Kind() != KindSimple:
		return &InvalidEventError{Entry: e, Reason: "dimension must be a simple id"}
	case e.Item.Kind() == KindUnique && e.Item.Serial() == "":
		return &InvalidEventError{Entry: e, Reason: "unique item without serial"}
	case e.Count > math.MaxInt64:
		return &InvalidEventError{Entry: e, Reason: "count out of range"}
	case e.Item.PieceSize() > math.MaxInt64:
		return &InvalidEventError{Entry: e, Reason: "piece size out of range"}
	}

	// Every name must survive a round trip through a ledger line.
	names := [...]struct{ field, value string }{
		{"part", string(e.Item.Type())},
		{"serial", e.Item.Serial()},
		{e.Event.Kind.Dimension().String(), string(e.Event.Target.Type())},
		{"tx", e.Transaction},
	}
	for _, n := range names {
		if reason := checkName(n.value); reason != "" {
			return &InvalidEventError{Entry: e, Reason: fmt.Sprintf("%s %q: %s", n.field, n.value, reason)}
		}
	}
	return nil
}

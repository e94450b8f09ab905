/*
Package inventory provides the core quantity tracking engine.

PURPOSE:
  Turns an append-only log of stock movements into live counts of items
  across storage locations, external sources and consuming projects. The
  ledger is the only source of truth; every count is a projection that can
  be rebuilt by replaying the ledger from the start.

KEY CONCEPTS IN THIS FILE (id.go):
  - TypeID: the name of a tracked item type (e.g. "resistor-10k")
  - ItemID: Simple(type), Piece(type, size) or Unique(type, serial)
  - DimensionID: a location, source or project (always a Simple ItemID)

IDENTITY RULES:
  1. ItemID is a comparable value type. Use it directly as a map key.
  2. Two Piece ids of the same type with different sizes are different items.
  3. Simple() projects any id onto its bare type.

USAGE:
  reel := inventory.Piece("solder-wire", 100)
  shelf := inventory.Location("shelf-a")
  entry := inventory.LedgerEntry{Count: 30, Item: reel, Event: inventory.TakeFrom(shelf)}

SEE ALSO:
  - event.go: Ledger event taxonomy
  - cache.go: Count cache keyed by (ItemID, DimensionID)
  - tracker.go: Folding ledger entries into the caches
*/
package inventory

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// ITEM IDENTIFIERS
// =============================================================================

// TypeID names a tracked item type.
type TypeID string

// Kind discriminates the three identifier shapes.
type Kind uint8

const (
	KindSimple Kind = iota
	KindPiece
	KindUnique
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindPiece:
		return "piece"
	case KindUnique:
		return "unique"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ItemID identifies a tracked quantity. The zero value is not a valid id.
type ItemID struct {
	typ    TypeID
	kind   Kind
	size   uint64
	serial string
}

// Simple refers to the whole fungible quantity of a type.
func Simple(t TypeID) ItemID {
	return ItemID{typ: t, kind: KindSimple}
}

// Piece refers to the quantity of a type held in pieces of exactly size
// base units. A size of 0 means the size is not known yet and is resolved
// from the item's policy at fold time.
func Piece(t TypeID, size uint64) ItemID {
	return ItemID{typ: t, kind: KindPiece, size: size}
}

// Unique refers to one individually identified instance of a type.
func Unique(t TypeID, serial string) ItemID {
	return ItemID{typ: t, kind: KindUnique, serial: serial}
}

func (id ItemID) Type() TypeID { return id.typ }
func (id ItemID) Kind() Kind { return id.kind }
func (id ItemID) Serial() string { return id.serial }
func (id ItemID) IsZero() bool { return id == ItemID{} }

// Simple strips piece and serial detail.
func (id ItemID) Simple() ItemID {
	return Simple(id.typ)
}

// PieceSize returns the declared piece size, or 0 for non-piece ids.
func (id ItemID) PieceSize() uint64 {
	if id.kind != KindPiece {
		return 0
	}
	return id.size
}

// PieceSizeOption reports the piece size and whether the id carries one.
func (id ItemID) PieceSizeOption() (uint64, bool) {
	if id.kind != KindPiece || id.size == 0 {
		return 0, false
	}
	return id.size, true
}

// String returns the canonical text form: "type", "type:piece=N" or
// "type:serial=S".
func (id ItemID) String() string {
	switch id.kind {
	case KindPiece:
		return fmt.Sprintf("%s:piece=%d", id.typ, id.size)
	case KindUnique:
		return fmt.Sprintf("%s:serial=%s", id.typ, id.serial)
	}
	return string(id.typ)
}

// checkName returns why a name cannot be stored in a ledger line, or ""
// when it can. Commas and '=' delimit tokens and lines end at control
// characters; surrounding blanks are trimmed on read.
func checkName(s string) string {
	switch {
	case strings.TrimSpace(s) != s:
		return "surrounding whitespace"
	case strings.ContainsAny(s, ",="):
		return "contains ',' or '='"
	case strings.ContainsFunc(s, unicode.IsControl):
		return "contains a control character"
	}
	return ""
}

// ParseItemID is the inverse of ItemID.String.
func ParseItemID(s string) (ItemID, error) {
	t, rest, found := strings.Cut(s, ":")
	if t == "" {
		return ItemID{}, fmt.Errorf("%w: empty item id", ErrInvalidID)
	}
	if !found {
		return Simple(TypeID(t)), nil
	}
	switch {
	case strings.HasPrefix(rest, "piece="):
		size, err := strconv.ParseUint(strings.TrimPrefix(rest, "piece="), 10, 64)
		if err != nil {
			return ItemID{}, fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
		}
		return Piece(TypeID(t), size), nil
	case strings.HasPrefix(rest, "serial="):
		serial := strings.TrimPrefix(rest, "serial=")
		if serial == "" {
			return ItemID{}, fmt.Errorf("%w: %q: empty serial", ErrInvalidID, s)
		}
		return Unique(TypeID(t), serial), nil
	}
	return ItemID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
}

// Compare orders ids by type, kind, piece size (numerically) and serial.
func Compare(a, b ItemID) int {
	if c := cmp.Compare(a.typ, b.typ); c != 0 {
		return c
	}
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.size, b.size); c != 0 {
		return c
	}
	return cmp.Compare(a.serial, b.serial)
}

// =============================================================================
// DIMENSION IDENTIFIERS
// =============================================================================

// DimensionID identifies a location, source or project. Dimensions are
// never subdivided, so they are always Simple ids.
type DimensionID = ItemID

type (
	LocationID = DimensionID
	SourceID   = DimensionID
	ProjectID  = DimensionID
)

func Location(name string) LocationID { return Simple(TypeID(name)) }
func Supplier(name string) SourceID { return Simple(TypeID(name)) }
func Project(name string) ProjectID { return Simple(TypeID(name)) }

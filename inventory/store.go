/*
store.go - Ledger storage interfaces

PURPOSE:
  Defines how the engine reads and appends the ledger. Implementations
  live in sub-packages and never hold counts; counts are always rebuilt by
  the Tracker from what a Source returns.

INTERFACES:
  Source: ordered segments of ledger records (replay input)
  Store:  Source plus append-only writes

APPEND-ONLY:
  Stores must never update or delete recorded entries. Corrections are new
  entries (ForceCount, ReturnTo, CancelOrderFrom...).

IMPLEMENTATIONS:
  - inventory/store/memory.go: In-memory, for tests and dev
  - ledgerfile/dir.go: Directory of text ledger files
  - store/sqlite/sqlite.go: SQLite ledger table
*/
package inventory

import "context"

// Record is one decoded ledger record together with where it came from.
// HasTime is false when the record did not carry its own timestamp; replay
// then inherits the time of the previous record of the same segment.
type Record struct {
	Line    int
	Entry   LedgerEntry
	HasTime bool
}

// Segment is one independently decodable unit of the ledger (a file, a
// batch). Err is set when the segment could not be decoded; replay skips
// such segments and reports them.
type Segment struct {
	Name    string
	Records []Record
	Err     error
}

// Source supplies the full ledger for replay.
type Source interface {
	Segments(ctx context.Context) ([]Segment, error)
}

// Store is an append-only ledger.
type Store interface {
	Source
	Append(ctx context.Context, entries ...LedgerEntry) error
}

/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Storage and transport packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Record errors - ledger lines that cannot be decoded (MalformedRecord)
  2. Catalog errors - records naming an item the catalog does not know
  3. Fold errors - entries rejected before they touch a cache
  4. Conflict errors - evicting an object that still holds stock, reusing
     a transaction id
  5. Replay errors - the ledger source failed mid-replay

ARITHMETIC:
  Underflow is never an error. Unsigned fields floor at zero and the
  derived Entry.Count() is a saturating signed subtraction, so an observed
  net count can be negative.

SEE ALSO:
  - tracker.go: Returns fold and eviction errors
  - replay.go: Collects record errors per segment
  - ledgerfile/codec.go: Produces MalformedRecordError
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedRecord is returned when a ledger record is missing a
	// required field or carries an unparseable value. It fails the whole
	// segment the record belongs to.
	ErrMalformedRecord = errors.New("malformed ledger record")

	// ErrUnknownItem is returned by a Policies lookup for a type the catalog
	// does not know. The engine treats such items as untracked.
	ErrUnknownItem = errors.New("unknown item")

	// ErrInvalidID is returned when an identifier cannot be parsed.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrInvalidEvent is returned when a ledger entry cannot be folded.
	ErrInvalidEvent = errors.New("invalid ledger event")

	// ErrObjectInUse is returned when an item or dimension still has
	// nonzero counts and cannot be evicted.
	ErrObjectInUse = errors.New("object still has counts")

	// ErrDuplicateTransaction is returned when a batch reuses a transaction
	// id that is already in the ledger. This is expected behavior for retries.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrReplayAborted is returned when replay could not read the full
	// ledger. The previous counts stay in place.
	ErrReplayAborted = errors.New("replay aborted")

	// ErrInvalidQuantity is returned by ParseQuantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedRecordError locates a bad ledger record.
type MalformedRecordError struct {
	Segment string
	Line    int
	Field   string
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	loc := e.Segment
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Segment, e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", loc, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// InvalidEventError explains why an entry was rejected before folding.
type InvalidEventError struct {
	Entry  LedgerEntry
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid ledger event %s for %s: %s", e.Entry.Event.Kind, e.Entry.Item, e.Reason)
}

func (e *InvalidEventError) Unwrap() error {
	return ErrInvalidEvent
}

// ObjectInUseError lists the entries that block an eviction.
type ObjectInUseError struct {
	ID      ItemID
	Entries []Entry
}

func (e *ObjectInUseError) Error() string {
	return fmt.Sprintf("%s is referenced by %d nonzero count entries", e.ID, len(e.Entries))
}

func (e *ObjectInUseError) Unwrap() error {
	return ErrObjectInUse
}

// ReplayError wraps the cause of an aborted replay.
type ReplayError struct {
	Cause error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay aborted: %v", e.Cause)
}

func (e *ReplayError) Unwrap() []error {
	return []error{ErrReplayAborted, e.Cause}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsNotFound returns true if the error indicates a missing catalog item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownItem)
}

// IsConflict returns true if the error indicates the request conflicts
// with current counts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrObjectInUse) ||
		errors.Is(err, ErrDuplicateTransaction)
}

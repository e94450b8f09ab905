/*
Package sqlite provides a SQLite-backed ledger and item catalog.

PURPOSE:
  Persists the stock ledger and the item tracking policies in one SQLite
  database. Counts are never stored; the Tracker rebuilds them by replaying
  ledger_entries.

INTERFACES IMPLEMENTED:
  inventory.Store:    Append-only ledger (Segments + Append)
  inventory.Policies: Tracking policy lookup from the items table

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on ledger_entries
  - No DELETE statements on ledger_entries
  - Corrections are new entries (ForceCount, ReturnTo, CancelOrderFrom)

KEY TABLES:
  ledger_entries: Immutable ledger, one row per recorded entry
  items:          Item definitions with their tracking policy

INDEXES:
  - idx_ledger_segment_seq: Replay order within a segment (hot path)
  - idx_ledger_tx: Transaction id lookup for duplicate batches

CONCURRENCY:
  Uses sync.RWMutex around the handle; a batch is one database
  transaction, so readers never see half an Append.

WAL MODE:
  Opened with WAL so replays do not block the writer.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tracker := inventory.NewTracker(store)
  report, err := tracker.Replay(ctx, store)

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
  - ledgerfile/dir.go: Text file implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/inventory-engine/inventory"
)

// DefaultSegment is the segment Append writes to.
const DefaultSegment = "sqlite"

// Store implements inventory.Store and inventory.Policies using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Ledger (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		segment TEXT NOT NULL,
		seq INTEGER NOT NULL,
		recorded_at TEXT,
		has_time INTEGER NOT NULL DEFAULT 0,
		item_type TEXT NOT NULL,
		item_kind TEXT NOT NULL,
		piece_size INTEGER,
		serial TEXT,
		event TEXT NOT NULL,
		dimension TEXT NOT NULL,
		count INTEGER NOT NULL,
		tx TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_segment_seq
		ON ledger_entries(segment, seq);
	CREATE INDEX IF NOT EXISTS idx_ledger_tx
		ON ledger_entries(tx) WHERE tx IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_ledger_item_type
		ON ledger_entries(item_type);

	-- Item definitions
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tracking TEXT NOT NULL,
		piece_size INTEGER NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'pc',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (inventory.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append writes entries to the default segment in one database
// transaction. Entries of one batch may share a transaction id; an id
// already in the ledger fails the whole batch with
// inventory.ErrDuplicateTransaction.
func (s *Store) Append(ctx context.Context, entries ...inventory.LedgerEntry) error {
	return s.AppendSegment(ctx, DefaultSegment, entries...)
}

// AppendSegment is Append into a named segment. Importers use it to keep
// the source file boundaries of an existing ledger.
func (s *Store) AppendSegment(ctx context.Context, segment string, entries ...inventory.LedgerEntry) error {
	records := make([]inventory.Record, len(entries))
	for i, e := range entries {
		records[i] = inventory.Record{Entry: e, HasTime: !e.Time.IsZero()}
	}
	return s.appendRecords(ctx, segment, records)
}

// Import copies decoded segments as they are, including records that
// carry no time of their own. Segments with Err set are refused.
func (s *Store) Import(ctx context.Context, segments ...inventory.Segment) error {
	for _, seg := range segments {
		if seg.Err != nil {
			return fmt.Errorf("import %s: %w", seg.Name, seg.Err)
		}
		if err := s.appendRecords(ctx, seg.Name, seg.Records); err != nil {
			return fmt.Errorf("import %s: %w", seg.Name, err)
		}
	}
	return nil
}

func (s *Store) appendRecords(ctx context.Context, segment string, records []inventory.Record) error {
	// Counts and piece sizes are stored as INTEGER; Validate bounds them.
	for _, r := range records {
		if err := r.Entry.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	// Check all transaction ids first (atomic check)
	seen := make(map[string]bool)
	for _, r := range records {
		tx := r.Entry.Transaction
		if tx == "" || seen[tx] {
			continue
		}
		seen[tx] = true
		var n int
		err := sqlTx.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_entries WHERE tx = ?", tx).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to check transaction id: %w", err)
		}
		if n > 0 {
			return inventory.ErrDuplicateTransaction
		}
	}

	var seq int
	err = sqlTx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM ledger_entries WHERE segment = ?", segment,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to read segment position: %w", err)
	}

	for _, r := range records {
		seq++
		if err := appendRecord(ctx, sqlTx, segment, seq, r); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func appendRecord(ctx context.Context, db execer, segment string, seq int, r inventory.Record) error {
	e := r.Entry
	query := `
		INSERT INTO ledger_entries
		(segment, seq, recorded_at, has_time, item_type, item_kind, piece_size, serial,
		 event, dimension, count, tx, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var recordedAt sql.NullString
	if !e.Time.IsZero() {
		recordedAt = sql.NullString{String: e.Time.Format(time.RFC3339Nano), Valid: true}
	}
	var pieceSize sql.NullInt64
	if e.Item.Kind() == inventory.KindPiece {
		pieceSize = sql.NullInt64{Int64: int64(e.Item.PieceSize()), Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		segment,
		seq,
		recordedAt,
		r.HasTime,
		string(e.Item.Type()),
		e.Item.Kind().String(),
		pieceSize,
		nullString(e.Item.Serial()),
		e.Event.Kind.String(),
		string(e.Event.Target.Type()),
		int64(e.Count),
		nullString(e.Transaction),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Segments returns every segment in name order, records in append order.
// A row that no longer decodes marks its segment with Err.
func (s *Store) Segments(ctx context.Context) ([]inventory.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT segment, seq, recorded_at, has_time, item_type, item_kind, piece_size, serial,
		       event, dimension, count, tx
		FROM ledger_entries
		ORDER BY segment ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var segments []inventory.Segment
	for rows.Next() {
		name, rec, err := scanRecord(rows)
		if err != nil && !errors.Is(err, inventory.ErrMalformedRecord) {
			return nil, err
		}
		if len(segments) == 0 || segments[len(segments)-1].Name != name {
			segments = append(segments, inventory.Segment{Name: name})
		}
		seg := &segments[len(segments)-1]
		if seg.Err != nil {
			continue
		}
		if err != nil {
			seg.Err = err
			seg.Records = nil
			continue
		}
		seg.Records = append(seg.Records, rec)
	}
	return segments, rows.Err()
}

func scanRecord(rows *sql.Rows) (string, inventory.Record, error) {
	var (
		segment    string
		rec        inventory.Record
		recordedAt sql.NullString
		itemType   string
		itemKind   string
		pieceSize  sql.NullInt64
		serial     sql.NullString
		event      string
		dimension  string
		count      int64
		tx         sql.NullString
	)

	err := rows.Scan(
		&segment, &rec.Line, &recordedAt, &rec.HasTime, &itemType, &itemKind, &pieceSize, &serial,
		&event, &dimension, &count, &tx,
	)
	if err != nil {
		return "", rec, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	bad := func(field, format string, args ...any) (string, inventory.Record, error) {
		return segment, inventory.Record{}, &inventory.MalformedRecordError{
			Segment: segment, Line: rec.Line, Field: field, Reason: fmt.Sprintf(format, args...),
		}
	}

	if recordedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, recordedAt.String)
		if err != nil {
			return bad("recorded_at", "not an RFC3339 time: %q", recordedAt.String)
		}
		rec.Entry.Time = t
	}
	switch itemKind {
	case inventory.KindSimple.String():
		rec.Entry.Item = inventory.Simple(inventory.TypeID(itemType))
	case inventory.KindPiece.String():
		rec.Entry.Item = inventory.Piece(inventory.TypeID(itemType), uint64(pieceSize.Int64))
	case inventory.KindUnique.String():
		rec.Entry.Item = inventory.Unique(inventory.TypeID(itemType), serial.String)
	default:
		return bad("item_kind", "unknown item kind %q", itemKind)
	}
	kind, err := inventory.ParseEventKind(event)
	if err != nil {
		return bad("event", "%v", err)
	}
	if count < 0 {
		return bad("count", "negative count %d", count)
	}
	rec.Entry.Event = inventory.Event{Kind: kind, Target: inventory.Simple(inventory.TypeID(dimension))}
	rec.Entry.Count = uint64(count)
	rec.Entry.Transaction = tx.String

	return segment, rec, nil
}

// Len returns the number of recorded entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&n)
	return n, err
}

// =============================================================================
// ITEM STORE (inventory.Policies interface)
// =============================================================================

// Policy returns the tracking policy of an item type, or
// inventory.ErrUnknownItem.
func (s *Store) Policy(ctx context.Context, t inventory.TypeID) (inventory.Policy, error) {
	def, err := s.GetItem(ctx, t)
	if err != nil {
		return inventory.Policy{}, err
	}
	return def.Policy, nil
}

// SaveItem inserts or replaces an item definition.
func (s *Store) SaveItem(ctx context.Context, def inventory.ItemDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("%w: empty item id", inventory.ErrInvalidID)
	}
	if err := def.Policy.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", def.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO items (id, name, tracking, piece_size, unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tracking = excluded.tracking,
			piece_size = excluded.piece_size,
			unit = excluded.unit,
			updated_at = excluded.updated_at
	`

	tracking := def.Policy.Tracking
	if tracking == "" {
		tracking = inventory.TrackCount
	}
	unit := def.Policy.Unit
	if unit == "" {
		unit = inventory.UnitPiece
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		string(def.ID), def.Name, string(tracking), int64(def.Policy.PieceSize), string(unit), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// GetItem retrieves an item definition.
func (s *Store) GetItem(ctx context.Context, id inventory.TypeID) (inventory.ItemDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, tracking, piece_size, unit FROM items WHERE id = ?",
		string(id),
	)
	def, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.ItemDefinition{}, fmt.Errorf("%w: %s", inventory.ErrUnknownItem, id)
	}
	return def, err
}

// ListItems returns all item definitions ordered by id.
func (s *Store) ListItems(ctx context.Context) ([]inventory.ItemDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, tracking, piece_size, unit FROM items ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []inventory.ItemDefinition
	for rows.Next() {
		def, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// DeleteItem removes an item definition. Its ledger history is kept; the
// type folds as untracked afterwards.
func (s *Store) DeleteItem(ctx context.Context, id inventory.TypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", string(id))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (inventory.ItemDefinition, error) {
	var (
		def       inventory.ItemDefinition
		id        string
		tracking  string
		pieceSize int64
		unit      string
	)
	if err := row.Scan(&id, &def.Name, &tracking, &pieceSize, &unit); err != nil {
		return def, err
	}
	def.ID = inventory.TypeID(id)
	def.Policy = inventory.Policy{
		Tracking:  inventory.Tracking(tracking),
		PieceSize: uint64(pieceSize),
		Unit:      inventory.Unit(unit),
	}
	return def, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package ledgerfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/inventory-engine/inventory"
)

// SessionLayout names the file a Dir appends to, one file per session.
const SessionLayout = "2006-01-02-15-04.txt"

// Dir is a directory of ledger files. It implements inventory.Store.
type Dir struct {
	Path    string
	Decoder Decoder

	mu           sync.Mutex
	now          func() time.Time
	session      string
	transactions map[string]bool
}

// NewDir returns a store over path. The directory is created on first
// append.
func NewDir(path string, dec Decoder) *Dir {
	return &Dir{Path: path, Decoder: dec, now: time.Now}
}

// Segments decodes every *.txt file, in name order. A file that fails to
// decode is returned with Err set.
func (d *Dir) Segments(ctx context.Context) ([]inventory.Segment, error) {
	names, err := d.files()
	if err != nil {
		return nil, err
	}
	segments := make([]inventory.Segment, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seg, err := d.readSegment(name)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (d *Dir) files() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list ledger dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// readSegment returns an I/O error only when the file cannot be read.
// Decoding errors are carried in the segment.
func (d *Dir) readSegment(name string) (inventory.Segment, error) {
	f, err := os.Open(filepath.Join(d.Path, name))
	if err != nil {
		return inventory.Segment{}, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	records, err := d.Decoder.Decode(name, f)
	if err != nil && !errors.Is(err, inventory.ErrMalformedRecord) {
		return inventory.Segment{}, err
	}
	return inventory.Segment{Name: name, Records: records, Err: err}, nil
}

// Append writes entries to this session's file. Entries reusing a
// transaction id already present in the directory are refused, as are
// entries that would not decode again.
func (d *Dir) Append(ctx context.Context, entries ...inventory.LedgerEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.loadTransactionsLocked(ctx); err != nil {
		return err
	}
	for _, e := range entries {
		if e.Transaction != "" && d.transactions[e.Transaction] {
			return inventory.ErrDuplicateTransaction
		}
	}

	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	if d.session == "" {
		d.session = d.now().UTC().Format(SessionLayout)
	}
	f, err := os.OpenFile(filepath.Join(d.Path, d.session), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	if err := Encode(f, entries...); err != nil {
		f.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}

	for _, e := range entries {
		if e.Transaction != "" {
			d.transactions[e.Transaction] = true
		}
	}
	return nil
}

// Session returns the name of the file Append writes to, empty before
// the first append.
func (d *Dir) Session() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

func (d *Dir) loadTransactionsLocked(ctx context.Context) error {
	if d.transactions != nil {
		return nil
	}
	segments, err := d.Segments(ctx)
	if err != nil {
		return err
	}
	d.transactions = make(map[string]bool)
	for _, seg := range segments {
		for _, r := range seg.Records {
			if r.Entry.Transaction != "" {
				d.transactions[r.Entry.Transaction] = true
			}
		}
	}
	return nil
}

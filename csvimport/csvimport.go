// Package csvimport converts spreadsheet exports of an older inventory into
// ledger entries and catalog documents.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/warp/inventory-engine/catalog"
	"github.com/warp/inventory-engine/inventory"
)

// LocalLayout is the time layout accepted besides RFC3339.
const LocalLayout = "2006-01-02 15:04:05"

var (
	ledgerHeader = []string{"location", "source", "project", "part", "added", "removed", "t"}
	partsHeader  = []string{"name", "manufacturer", "footprint", "category", "summary", "description"}
)

// Loader handles loading CSV exports.
type Loader struct {
	// Location interprets times without zone. Defaults to time.Local.
	Location *time.Location
}

// NewLoader creates a new CSV loader.
func NewLoader() *Loader {
	return &Loader{Location: time.Local}
}

// LoadLedger reads a ledger export. Each row yields up to five entries:
//
//	added   > 0 and location  StoreTo(location)
//	removed > 0 and location  TakeFrom(location)
//	added   > 0 and project   UnsolderFrom(project)
//	removed > 0 and project   SolderTo(project)
//	added   > 0 and source    DeliverFrom(source)
func (l *Loader) LoadLedger(r io.Reader) ([]inventory.LedgerEntry, error) {
	rows, err := readTable(r, "ledger", ledgerHeader)
	if err != nil {
		return nil, err
	}

	var entries []inventory.LedgerEntry
	for i, row := range rows {
		rowEntries, err := l.ledgerRow(row)
		if err != nil {
			return nil, fmt.Errorf("ledger CSV row %d: %w", i+2, err)
		}
		entries = append(entries, rowEntries...)
	}
	return entries, nil
}

func (l *Loader) ledgerRow(row map[string]string) ([]inventory.LedgerEntry, error) {
	part := catalog.NameToID(row["part"])
	if part == "" {
		return nil, fmt.Errorf("part is required")
	}
	added, err := parseCount(row["added"])
	if err != nil {
		return nil, fmt.Errorf("added: %w", err)
	}
	removed, err := parseCount(row["removed"])
	if err != nil {
		return nil, fmt.Errorf("removed: %w", err)
	}
	t, err := l.parseTime(row["t"])
	if err != nil {
		return nil, fmt.Errorf("t: %w", err)
	}

	location := catalog.NameToID(row["location"])
	project := catalog.NameToID(row["project"])
	source := strings.TrimSpace(row["source"])

	item := inventory.Simple(inventory.TypeID(part))
	var entries []inventory.LedgerEntry
	add := func(n uint64, ev inventory.Event) {
		entries = append(entries, inventory.LedgerEntry{Time: t, Count: n, Item: item, Event: ev})
	}
	if added > 0 && location != "" {
		add(added, inventory.StoreTo(inventory.Location(location)))
	}
	if removed > 0 && location != "" {
		add(removed, inventory.TakeFrom(inventory.Location(location)))
	}
	if added > 0 && project != "" {
		add(added, inventory.UnsolderFrom(inventory.Project(project)))
	}
	if removed > 0 && project != "" {
		add(removed, inventory.SolderTo(inventory.Project(project)))
	}
	if added > 0 && source != "" {
		add(added, inventory.DeliverFrom(inventory.Supplier(source)))
	}
	return entries, nil
}

// LoadParts reads a part list export into catalog documents. Rows without
// a name are skipped.
func (l *Loader) LoadParts(r io.Reader) ([]catalog.Document, error) {
	rows, err := readTable(r, "parts", partsHeader)
	if err != nil {
		return nil, err
	}

	var docs []catalog.Document
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			continue
		}
		docs = append(docs, catalog.Document{
			ID:      catalog.NameToID(name),
			Name:    name,
			Summary: strings.TrimSpace(row["summary"]),
			Content: strings.TrimSpace(row["description"]),
		})
	}
	return docs, nil
}

// readTable reads all rows keyed by header name. Every expected column must
// be present, in any order; extra columns are ignored.
func readTable(r io.Reader, what string, expected []string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", what, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header", what)
	}

	columns := make(map[string]int)
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range expected {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", what, expected, records[0])
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(expected))
		for _, name := range expected {
			row[name] = record[columns[name]]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func (l *Loader) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	loc := l.Location
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(LocalLayout, s, loc)
}

/*
Package catalog is the file-backed item catalog.

PURPOSE:
  Every item type is one markdown file whose YAML front matter carries the
  tracking policy:

    ---
    id: hookup-wire
    name: Hookup wire, red
    track: pieces
    piece_size: 100
    unit: cm
    ---
    Free text notes.

  A file without an id takes its base name as id. A file without front
  matter is a plain count item.

INTERFACES IMPLEMENTED:
  inventory.Policies: Tracking policy lookup

SEE ALSO:
  - store/sqlite/sqlite.go: The same catalog in the items table
  - factory/item.go: JSON item definitions
*/
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/warp/inventory-engine/inventory"
	"gopkg.in/yaml.v3"
)

// Document is one catalog file.
type Document struct {
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name"`
	Summary   string `yaml:"summary,omitempty"`
	Track     string `yaml:"track,omitempty"`
	PieceSize uint64 `yaml:"piece_size,omitempty"`
	Unit      string `yaml:"unit,omitempty"`

	Content string `yaml:"-"`
}

// Definition converts the document into an item definition.
func (d Document) Definition() (inventory.ItemDefinition, error) {
	tracking, err := inventory.ParseTracking(d.Track)
	if err != nil {
		return inventory.ItemDefinition{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	unit, err := inventory.ParseUnit(d.Unit)
	if err != nil {
		return inventory.ItemDefinition{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	def := inventory.ItemDefinition{
		ID:     inventory.TypeID(d.ID),
		Name:   d.Name,
		Policy: inventory.Policy{Tracking: tracking, PieceSize: d.PieceSize, Unit: unit},
	}
	if err := def.Policy.Validate(); err != nil {
		return inventory.ItemDefinition{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	return def, nil
}

var delimiter = []byte("---")

// Parse reads one catalog file. fallbackID is used when the front matter
// has no id.
func Parse(fallbackID string, data []byte) (Document, error) {
	var doc Document
	matter, content, ok := splitFrontMatter(data)
	if ok {
		if err := yaml.Unmarshal(matter, &doc); err != nil {
			return Document{}, fmt.Errorf("parse front matter: %w", err)
		}
	}
	doc.Content = string(content)
	if doc.ID == "" {
		doc.ID = fallbackID
	}
	return doc, nil
}

func splitFrontMatter(data []byte) (matter, content []byte, ok bool) {
	first, rest, found := bytes.Cut(data, []byte("\n"))
	if !found || !bytes.Equal(bytes.TrimSpace(first), delimiter) {
		return nil, data, false
	}
	for off := 0; off < len(rest); {
		line, next, _ := bytes.Cut(rest[off:], []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), delimiter) {
			return rest[:off], next, true
		}
		off += len(line) + 1
	}
	return nil, data, false
}

// Format renders a document with its front matter.
func Format(doc Document) ([]byte, error) {
	matter, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(matter)
	b.WriteString("---\n")
	b.WriteString(doc.Content)
	return b.Bytes(), nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog holds every item document of a directory.
type Catalog struct {
	dir string

	mu    sync.RWMutex
	docs  map[inventory.TypeID]Document
	defs  map[inventory.TypeID]inventory.ItemDefinition
	files map[inventory.TypeID]string
}

// Load reads every *.md file under dir. A missing directory is an empty
// catalog.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{
		dir:   dir,
		docs:  make(map[inventory.TypeID]Document),
		defs:  make(map[inventory.TypeID]inventory.ItemDefinition),
		files: make(map[inventory.TypeID]string),
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := Parse(strings.TrimSuffix(d.Name(), ".md"), data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := c.files[inventory.TypeID(doc.ID)]; dup {
			return fmt.Errorf("%s: item %s already defined in %s", path, doc.ID, prev)
		}
		if err := c.putLocked(doc, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

func (c *Catalog) putLocked(doc Document, path string) error {
	def, err := doc.Definition()
	if err != nil {
		return err
	}
	id := inventory.TypeID(doc.ID)
	c.docs[id] = doc
	c.defs[id] = def
	c.files[id] = path
	return nil
}

// Policy implements inventory.Policies.
func (c *Catalog) Policy(_ context.Context, t inventory.TypeID) (inventory.Policy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[t]
	if !ok {
		return inventory.Policy{}, fmt.Errorf("%w: %s", inventory.ErrUnknownItem, t)
	}
	return def.Policy, nil
}

// Document returns the catalog file of an item type.
func (c *Catalog) Document(t inventory.TypeID) (Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[t]
	return doc, ok
}

// ListItems returns every definition ordered by id.
func (c *Catalog) ListItems(_ context.Context) ([]inventory.ItemDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	defs := make([]inventory.ItemDefinition, 0, len(c.defs))
	for _, d := range c.defs {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// SaveItem writes the definition into its catalog file, keeping the notes
// of an existing file.
func (c *Catalog) SaveItem(ctx context.Context, def inventory.ItemDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("%w: empty item id", inventory.ErrInvalidID)
	}
	if err := def.Policy.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", def.ID, err)
	}

	doc, _ := c.Document(def.ID)
	doc.ID = string(def.ID)
	doc.Name = def.Name
	doc.Track = string(def.Policy.Tracking)
	doc.PieceSize = def.Policy.PieceSize
	doc.Unit = string(def.Policy.Unit)
	return c.SaveDocument(ctx, doc)
}

// SaveDocument writes doc to the file it was loaded from, or to a new
// file named after its id.
func (c *Catalog) SaveDocument(_ context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: empty item id", inventory.ErrInvalidID)
	}
	if _, err := doc.Definition(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path, ok := c.files[inventory.TypeID(doc.ID)]
	if !ok {
		path = filepath.Join(c.dir, NameToID(doc.ID)+".md")
	}
	data, err := Format(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return c.putLocked(doc, path)
}

// DeleteItem removes the catalog file of an item type. Deleting a type
// the catalog does not hold is a no-op.
func (c *Catalog) DeleteItem(_ context.Context, t inventory.TypeID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, ok := c.files[t]
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	delete(c.docs, t)
	delete(c.defs, t)
	delete(c.files, t)
	return nil
}

var cleanupName = regexp.MustCompile(`[\s_/.,=]+`)

// NameToID turns a free form name into an item id that a ledger line can
// hold.
func NameToID(name string) string {
	return cleanupName.ReplaceAllString(strings.TrimSpace(name), "_")
}

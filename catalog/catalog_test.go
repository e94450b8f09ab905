package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inventory-engine/catalog"
	"github.com/warp/inventory-engine/inventory"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParse_FrontMatter(t *testing.T) {
	doc, err := catalog.Parse("file-name", []byte("---\nid: wire\nname: Hookup wire\ntrack: pieces\npiece_size: 100\nunit: cm\n---\nRed, 0.5mm2\n"))

	require.NoError(t, err)
	assert.Equal(t, "wire", doc.ID)
	assert.Equal(t, "Hookup wire", doc.Name)
	assert.Equal(t, uint64(100), doc.PieceSize)
	assert.Equal(t, "Red, 0.5mm2\n", doc.Content)

	def, err := doc.Definition()
	require.NoError(t, err)
	assert.Equal(t, inventory.Policy{Tracking: inventory.TrackPieces, PieceSize: 100, Unit: inventory.UnitCentimeter}, def.Policy)
}

func TestParse_NoFrontMatter(t *testing.T) {
	doc, err := catalog.Parse("resistor", []byte("just notes\n"))

	require.NoError(t, err)
	assert.Equal(t, "resistor", doc.ID)
	assert.Equal(t, "just notes\n", doc.Content)
	def, err := doc.Definition()
	require.NoError(t, err)
	assert.Equal(t, inventory.TrackCount, def.Policy.Tracking)
	assert.Equal(t, inventory.UnitPiece, def.Policy.Unit)
}

func TestDefinition_Invalid(t *testing.T) {
	tests := []catalog.Document{
		{ID: "a", Track: "heaps"},
		{ID: "b", Unit: "furlong"},
		{ID: "c", Track: "pieces"},
	}
	for _, doc := range tests {
		_, err := doc.Definition()
		assert.Error(t, err, doc.ID)
	}
}

func TestLoad(t *testing.T) {
	// GIVEN: a catalog directory with nested files and a non-markdown file
	dir := t.TempDir()
	write(t, dir, "passives/resistor-10k.md", "---\nname: Resistor 10k\n---\n")
	write(t, dir, "wire.md", "---\nid: hookup-wire\ntrack: pieces\npiece_size: 10\n---\n")
	write(t, dir, "README.txt", "ignored")

	// WHEN
	c, err := catalog.Load(dir)

	// THEN: ids come from the front matter or the file name
	require.NoError(t, err)
	p, err := c.Policy(context.Background(), "resistor-10k")
	require.NoError(t, err)
	assert.Equal(t, inventory.TrackCount, p.Tracking)

	p, err = c.Policy(context.Background(), "hookup-wire")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), p.PieceSize)

	_, err = c.Policy(context.Background(), "wire")
	assert.ErrorIs(t, err, inventory.ErrUnknownItem)

	defs, err := c.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, inventory.TypeID("hookup-wire"), defs[0].ID)
}

func TestLoad_Errors(t *testing.T) {
	c, err := catalog.Load(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	defs, _ := c.ListItems(context.Background())
	assert.Empty(t, defs)

	dir := t.TempDir()
	write(t, dir, "a.md", "---\nid: x\n---\n")
	write(t, dir, "b.md", "---\nid: x\n---\n")
	_, err = catalog.Load(dir)
	assert.ErrorContains(t, err, "already defined")

	dir = t.TempDir()
	write(t, dir, "a.md", "---\ntrack: [oops\n---\n")
	_, err = catalog.Load(dir)
	assert.Error(t, err)
}

func TestSaveItem_WritesAndReloads(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write(t, dir, "cap.md", "---\nname: Capacitor\n---\nCeramic, 100nF\n")
	c, err := catalog.Load(dir)
	require.NoError(t, err)

	require.NoError(t, c.SaveItem(ctx, inventory.ItemDefinition{
		ID: "cap", Name: "Capacitor 100nF",
		Policy: inventory.Policy{Tracking: inventory.TrackUnique},
	}))
	require.NoError(t, c.SaveItem(ctx, inventory.ItemDefinition{
		ID: "solder wire", Name: "Solder",
		Policy: inventory.Policy{Tracking: inventory.TrackPieces, PieceSize: 500, Unit: inventory.UnitCentimeter},
	}))
	assert.FileExists(t, filepath.Join(dir, "solder_wire.md"))

	reloaded, err := catalog.Load(dir)
	require.NoError(t, err)
	doc, ok := reloaded.Document("cap")
	require.True(t, ok)
	assert.Equal(t, "Capacitor 100nF", doc.Name)
	assert.Equal(t, "Ceramic, 100nF\n", doc.Content)
	p, err := reloaded.Policy(ctx, "solder wire")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), p.PieceSize)

	assert.Error(t, c.SaveItem(ctx, inventory.ItemDefinition{ID: "bad", Policy: inventory.Policy{Tracking: inventory.TrackPieces}}))
}

func TestDeleteItem_RemovesFile(t *testing.T) {
	// GIVEN: a catalog holding one part
	ctx := context.Background()
	dir := t.TempDir()
	write(t, dir, "passive/cap.md", "---\nname: Capacitor\ntrack: unique\n---\n")
	c, err := catalog.Load(dir)
	require.NoError(t, err)

	// WHEN: deleting it
	require.NoError(t, c.DeleteItem(ctx, "cap"))

	// THEN: the file is gone and lookups report the type as unknown
	assert.NoFileExists(t, filepath.Join(dir, "passive", "cap.md"))
	_, err = c.Policy(ctx, "cap")
	assert.ErrorIs(t, err, inventory.ErrUnknownItem)
	defs, _ := c.ListItems(ctx)
	assert.Empty(t, defs)

	// AND: a reload does not bring it back
	reloaded, err := catalog.Load(dir)
	require.NoError(t, err)
	_, ok := reloaded.Document("cap")
	assert.False(t, ok)

	// AND: deleting an unknown type is a no-op
	assert.NoError(t, c.DeleteItem(ctx, "cap"))
}

func TestNameToID(t *testing.T) {
	tests := map[string]string{
		"Resistor 10k":        "Resistor_10k",
		"  trimmed  ":         "trimmed",
		"a/b.c\td\ne":         "a_b_c_d_e",
		"many   spaces//here": "many_spaces_here",
		"already-clean":       "already-clean",
		"Resistor, 10k":       "Resistor_10k",
		"ratio=1:2\r":         "ratio_1:2",
	}
	for in, want := range tests {
		assert.Equal(t, want, catalog.NameToID(in), in)
	}
}

func TestAbstract(t *testing.T) {
	doc, err := catalog.Parse("resistor", []byte("# Resistor\n\nCarbon film,\n*1/4 W*.\n\nSecond paragraph.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Carbon film, 1/4 W.", doc.Abstract())

	doc.Summary = "Through hole"
	assert.Equal(t, "Through hole", doc.Abstract())

	assert.Empty(t, catalog.Document{}.Abstract())
}

package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-engine/ledgerfile"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// useConfig points the global -config flag at a files store under a temp
// dir and returns that dir.
func useConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")
	writeFile(t, path, "store:\n  driver: files\n  path: "+filepath.Join(root, "ledger")+
		"\ncatalog:\n  path: "+filepath.Join(root, "parts")+"\n")

	old := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = old })
	return root
}

// useSQLiteConfig points the global -config flag at a sqlite store under
// a temp dir and returns that dir.
func useSQLiteConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")
	writeFile(t, path, "store:\n  driver: sqlite\n  path: "+filepath.Join(root, "ledger.db")+"\n")

	old := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = old })
	return root
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

// =============================================================================
// FMT
// =============================================================================

func TestFmt_PrintsCanonicalForm(t *testing.T) {
	// GIVEN: a ledger file using aliases and an inherited time
	path := filepath.Join(t.TempDir(), "2024-12-10-10-00.txt")
	writeFile(t, path, "2024-12-10T10:00:00Z,n=10,part=wire,to=shelf,+\n\n# moved\nn=3,part=wire,to=shelf,-\n")

	// WHEN: formatting to stdout
	var out bytes.Buffer
	status := run(t, &fmtCmd{out: &out}, path)

	// THEN: every record is canonical and carries its time
	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t,
		"time=2024-12-10T10:00:00Z,count=10,part=wire,location=shelf,store\n"+
			"time=2024-12-10T10:00:00Z,count=3,part=wire,location=shelf,take\n",
		out.String())
}

func TestFmt_WriteInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	writeFile(t, path, "t=2024-12-10T10:00:00Z,c=1,part=led,src=shop,o\n")

	status := run(t, &fmtCmd{}, "-w", path)

	assert.Equal(t, subcommands.ExitSuccess, status)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time=2024-12-10T10:00:00Z,count=1,part=led,source=shop,order\n", string(data))
}

func TestFmt_MalformedFileKeepsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	writeFile(t, path, "count=1,part=led\n")

	status := run(t, &fmtCmd{}, "-w", path)

	assert.Equal(t, subcommands.ExitFailure, status)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "count=1,part=led\n", string(data))
}

func TestFmt_ImplicitTake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	writeFile(t, path, "t=2024-12-10T10:00:00Z,count=1,part=led,location=bin\n")

	var out bytes.Buffer
	status := run(t, &fmtCmd{out: &out}, "-implicit-take", path)

	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "time=2024-12-10T10:00:00Z,count=1,part=led,location=bin,take\n", out.String())
}

// =============================================================================
// RECORD / COUNT
// =============================================================================

func TestRecordParse_StampsTimeAndTransaction(t *testing.T) {
	now := time.Date(2024, 12, 10, 10, 0, 0, 0, time.UTC)
	c := &recordCmd{tx: "tx-1", now: func() time.Time { return now }}

	entries, err := c.parse(ledgerfile.Decoder{}, []string{
		"count=2,part=led,location=bin,take",
		"t=2024-12-09T08:00:00Z,count=2,part=led,location=bench,store,tx=other",
	})

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, now, entries[0].Time)
	assert.Equal(t, "tx-1", entries[0].Transaction)
	assert.Equal(t, time.Date(2024, 12, 9, 8, 0, 0, 0, time.UTC), entries[1].Time)
	assert.Equal(t, "other", entries[1].Transaction)
}

func TestRecordParse_GeneratesTransaction(t *testing.T) {
	entries, err := (&recordCmd{}).parse(ledgerfile.Decoder{}, []string{
		"count=1,part=led,location=bin,store",
		"count=1,part=led,location=bin,take",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, entries[0].Transaction)
	assert.Equal(t, entries[0].Transaction, entries[1].Transaction)
}

func TestRecordParse_Malformed(t *testing.T) {
	_, err := (&recordCmd{}).parse(ledgerfile.Decoder{}, []string{"count=x,part=led,location=bin,store"})
	assert.Error(t, err)
}

func TestRecordThenCount(t *testing.T) {
	// GIVEN: a files store
	useConfig(t)

	// WHEN: recording a delivery into two locations
	var recorded bytes.Buffer
	status := run(t, &recordCmd{out: &recorded}, "-tx", "tx-1",
		"count=10,part=resistor,location=drawer,store",
		"count=4,part=resistor,location=bench,store")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, recorded.String(), "recorded 2 entries as tx-1")
	assert.Regexp(t, `session: \d{4}-\d{2}-\d{2}-\d{2}-\d{2}\.txt`, recorded.String())

	// THEN: a fresh replay shows the counts
	var out bytes.Buffer
	status = run(t, &countCmd{out: &out}, "-part", "resistor")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out.String(), "drawer")
	assert.Contains(t, out.String(), "bench")
	assert.Regexp(t, `TOTAL\s+14\s+0\s+0\s+14`, out.String())

	// AND: reusing the transaction id is refused
	status = run(t, &recordCmd{out: &recorded}, "-tx", "tx-1", "count=1,part=resistor,location=drawer,take")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestCount_Usage(t *testing.T) {
	assert.Equal(t, subcommands.ExitFailure, run(t, &countCmd{}))
	assert.Equal(t, subcommands.ExitFailure, run(t, &countCmd{}, "-cache", "shelf", "-at", "x"))
}

// =============================================================================
// REPLAY / IMPORT / ITEMS
// =============================================================================

func TestReplay_StrictFailsOnSkippedSegment(t *testing.T) {
	root := useConfig(t)
	writeFile(t, filepath.Join(root, "ledger", "a.txt"), "t=2024-12-10T10:00:00Z,count=1,part=led,location=bin,store\n")
	writeFile(t, filepath.Join(root, "ledger", "b.txt"), "count=1\n")

	var out bytes.Buffer
	assert.Equal(t, subcommands.ExitSuccess, run(t, &replayCmd{out: &out}))
	assert.Contains(t, out.String(), "segments: 2")
	assert.Contains(t, out.String(), "skipped b.txt")
	assert.Contains(t, out.String(), "stock:    1\n")
	assert.Contains(t, out.String(), "orders:   0\n")

	assert.Equal(t, subcommands.ExitFailure, run(t, &replayCmd{out: &out}, "-strict"))
}

func TestImportParts_ThenItems(t *testing.T) {
	// GIVEN: a parts export
	root := useConfig(t)
	csvPath := filepath.Join(root, "parts.csv")
	writeFile(t, csvPath, "name,manufacturer,footprint,category,summary,description\n"+
		"Resistor 10k,Yageo,0805,passive,,Carbon film resistor.\n")

	// WHEN: importing it into the catalog
	var out bytes.Buffer
	status := run(t, &importCmd{out: &out}, "-parts", csvPath)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out.String(), "imported 1 parts")

	// THEN: the catalog file exists and items lists it with its abstract
	_, err := os.Stat(filepath.Join(root, "parts", "Resistor_10k.md"))
	require.NoError(t, err)

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &itemsCmd{out: &out}))
	assert.Contains(t, out.String(), "Resistor_10k")
	assert.Contains(t, out.String(), "Carbon film resistor.")
}

func TestImportLedgerCSV(t *testing.T) {
	root := useConfig(t)
	csvPath := filepath.Join(root, "ledger.csv")
	writeFile(t, csvPath, "location,source,project,part,added,removed,t\n"+
		"drawer,,,led,5,,2024-12-10 10:00:00\n"+
		"drawer,,,led,,2,2024-12-11 10:00:00\n")

	var out bytes.Buffer
	require.Equal(t, subcommands.ExitSuccess, run(t, &importCmd{out: &out}, "-ledger", csvPath))
	assert.Contains(t, out.String(), "imported 2 entries")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &countCmd{out: &out}, "-at", "drawer"))
	assert.Regexp(t, `TOTAL\s+5\s+2\s+0\s+3`, out.String())
}

func TestImportSegments_IntoSQLite(t *testing.T) {
	// GIVEN: a sqlite store and a directory of ledger files
	root := useSQLiteConfig(t)
	segments := filepath.Join(root, "segments")
	writeFile(t, filepath.Join(segments, "a.txt"), "t=2024-12-10T10:00:00Z,count=3,part=led,location=bin,store\n")
	writeFile(t, filepath.Join(segments, "b.txt"), "t=2024-12-11T10:00:00Z,count=1,part=led,location=bin,take\n")

	// WHEN: importing the directory
	var out bytes.Buffer
	require.Equal(t, subcommands.ExitSuccess, run(t, &importCmd{out: &out}, "-segments", segments))

	// THEN: the store holds both entries and the replay folded them
	assert.Contains(t, out.String(), "imported 2 segments, ledger holds 2 entries")
	assert.Contains(t, out.String(), "records:  2")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &countCmd{out: &out}, "-at", "bin"))
	assert.Regexp(t, `TOTAL\s+3\s+1\s+0\s+2`, out.String())
}

func TestImportSegments_NeedsSQLite(t *testing.T) {
	useConfig(t)
	assert.Equal(t, subcommands.ExitFailure, run(t, &importCmd{}, "-segments", t.TempDir()))
}

/*
Package ledgerfile reads and writes the text ledger format.

PURPOSE:
  One ledger record per line, as comma separated key=value pairs and bare
  flags:

    2024-12-10T10:00:00Z,count=10,size=10,part=test-pieces,correct,location=location-a

  The first token may be a bare RFC3339 timestamp. A record without a
  timestamp inherits the time of the previous record of the same file at
  replay time (see inventory/replay.go).

KEYS (aliases in parentheses):
  time (t)              RFC3339 timestamp
  tx (transaction)      transaction id
  count (n, c)          required, unsigned
  part                  required, item type
  size (len, l)         piece size, makes a Piece id
  serial                serial number, makes a Unique id
  location (destination, dst, to)
  project (proj)
  source (from, src, fr)

COMMAND FLAGS (exactly one per record):
  take (move, m, -)     TakeFrom(location)
  store (receive, a, +) StoreTo(location)
  require (req, ?)      RequireIn(location) | RequireInProject(project) | OrderFrom(source)
  solder (s)            SolderTo(project, falls back to location)
  unsolder (u)          UnsolderFrom(project, falls back to location)
  order (o)             OrderFrom(source, falls back to location)
  cancel (co)           CancelOrderFrom(source, falls back to location)
  deliver (d)           DeliverFrom(source, falls back to location)
  return (ret, send)    ReturnTo(source, falls back to location)
  correct (set, =)      ForceCount(location) | ForceCountProject(project)

STRICTNESS:
  A record with no command flag, several command flags, an unknown bare
  flag, a missing required field or an unparseable value is malformed and
  fails its whole file. Decoder.AllowImplicitTake restores the historical
  "no flag means take" reading for old ledgers. Unknown keys are ignored.

SEE ALSO:
  - dir.go: Directory of ledger files as an inventory.Store
*/
package ledgerfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/warp/inventory-engine/inventory"
)

// =============================================================================
// VOCABULARY
// =============================================================================

type command uint8

const (
	cmdNone command = iota
	cmdTake
	cmdStore
	cmdRequire
	cmdSolder
	cmdUnsolder
	cmdOrder
	cmdCancel
	cmdDeliver
	cmdReturn
	cmdCorrect
)

// flags maps every command flag spelling to its command.
var flags = aliases(map[command][]string{
	cmdTake:     {"take", "move", "m", "-"},
	cmdStore:    {"store", "receive", "a", "+"},
	cmdRequire:  {"require", "req", "?"},
	cmdSolder:   {"solder", "s"},
	cmdUnsolder: {"unsolder", "u"},
	cmdOrder:    {"order", "o"},
	cmdCancel:   {"cancel", "co"},
	cmdDeliver:  {"deliver", "d"},
	cmdReturn:   {"return", "ret", "send"},
	cmdCorrect:  {"correct", "set", "="},
})

// keys maps every key spelling to its canonical name.
var keys = aliases(map[string][]string{
	"time":     {"time", "t"},
	"tx":       {"tx", "transaction"},
	"count":    {"count", "n", "c"},
	"part":     {"part"},
	"size":     {"size", "len", "l"},
	"serial":   {"serial"},
	"location": {"location", "destination", "dst", "to"},
	"project":  {"project", "proj"},
	"source":   {"source", "from", "src", "fr"},
})

func aliases[V comparable](spellings map[V][]string) map[string]V {
	out := make(map[string]V)
	for v, names := range spellings {
		for _, name := range names {
			out[name] = v
		}
	}
	return out
}

// =============================================================================
// DECODING
// =============================================================================

// Decoder parses ledger lines.
type Decoder struct {
	// AllowImplicitTake reads a record without command flag as take.
	AllowImplicitTake bool
}

// Decode reads every record of one ledger file. Blank lines and lines
// starting with '#' are skipped. The first bad line fails the file.
func (d Decoder) Decode(segment string, r io.Reader) ([]inventory.Record, error) {
	var records []inventory.Record
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, err := d.ParseLine(segment, line, text)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", segment, err)
	}
	return records, nil
}

// ParseLine parses one record. Errors are *inventory.MalformedRecordError.
func (d Decoder) ParseLine(segment string, line int, text string) (inventory.Record, error) {
	bad := func(field, format string, args ...any) (inventory.Record, error) {
		return inventory.Record{}, &inventory.MalformedRecordError{
			Segment: segment, Line: line, Field: field, Reason: fmt.Sprintf(format, args...),
		}
	}

	fields := make(map[string]string)
	var cmds []command
	for i, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		k, v, isPair := strings.Cut(token, "=")
		if isPair && k != "" {
			name, known := keys[strings.ToLower(strings.TrimSpace(k))]
			if !known {
				continue
			}
			if _, dup := fields[name]; dup {
				return bad(name, "given more than once")
			}
			fields[name] = strings.TrimSpace(v)
			continue
		}
		if cmd, ok := flags[strings.ToLower(token)]; ok {
			cmds = append(cmds, cmd)
			continue
		}
		if i == 0 {
			if _, err := time.Parse(time.RFC3339, token); err == nil {
				fields["time"] = token
				continue
			}
		}
		return bad("", "unknown flag %q", token)
	}

	var rec inventory.Record
	rec.Line = line

	if s, ok := fields["time"]; ok {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return bad("time", "not an RFC3339 time: %q", s)
		}
		rec.Entry.Time = t
		rec.HasTime = true
	}

	s, ok := fields["count"]
	if !ok {
		return bad("count", "missing")
	}
	count, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return bad("count", "not an unsigned number: %q", s)
	}
	rec.Entry.Count = count

	part := fields["part"]
	if part == "" {
		return bad("part", "missing")
	}
	serial, hasSerial := fields["serial"]
	sizeText, hasSize := fields["size"]
	switch {
	case hasSerial && hasSize:
		return bad("serial", "cannot be combined with size")
	case hasSerial:
		if serial == "" {
			return bad("serial", "empty")
		}
		rec.Entry.Item = inventory.Unique(inventory.TypeID(part), serial)
	case hasSize:
		size, err := strconv.ParseUint(sizeText, 10, 64)
		if err != nil {
			return bad("size", "not an unsigned number: %q", sizeText)
		}
		rec.Entry.Item = inventory.Piece(inventory.TypeID(part), size)
	default:
		rec.Entry.Item = inventory.Simple(inventory.TypeID(part))
	}
	rec.Entry.Transaction = fields["tx"]

	switch {
	case len(cmds) == 0 && d.AllowImplicitTake:
		cmds = []command{cmdTake}
	case len(cmds) == 0:
		return bad("", "no command flag")
	case len(cmds) > 1:
		return bad("", "more than one command flag")
	}

	ev, field, ok := event(cmds[0], fields)
	if !ok {
		return bad(field, "missing")
	}
	rec.Entry.Event = ev
	return rec, nil
}

// event maps a command and its dimension fields to a ledger event. On
// failure it returns the dimension field that is missing.
func event(cmd command, fields map[string]string) (inventory.Event, string, bool) {
	loc, hasLoc := dim(fields, "location")
	proj, hasProj := dim(fields, "project")
	src, hasSrc := dim(fields, "source")

	sourceOr := func(to func(inventory.SourceID) inventory.Event) (inventory.Event, string, bool) {
		switch {
		case hasSrc:
			return to(src), "", true
		case hasLoc:
			return to(loc), "", true
		}
		return inventory.Event{}, "source", false
	}
	projectOr := func(to func(inventory.ProjectID) inventory.Event) (inventory.Event, string, bool) {
		switch {
		case hasProj:
			return to(proj), "", true
		case hasLoc:
			return to(loc), "", true
		}
		return inventory.Event{}, "project", false
	}

	switch cmd {
	case cmdTake:
		if hasLoc {
			return inventory.TakeFrom(loc), "", true
		}
		return inventory.Event{}, "location", false
	case cmdStore:
		if hasLoc {
			return inventory.StoreTo(loc), "", true
		}
		return inventory.Event{}, "location", false
	case cmdRequire:
		switch {
		case hasLoc:
			return inventory.RequireIn(loc), "", true
		case hasProj:
			return inventory.RequireInProject(proj), "", true
		case hasSrc:
			return inventory.OrderFrom(src), "", true
		}
		return inventory.Event{}, "location", false
	case cmdSolder:
		return projectOr(inventory.SolderTo)
	case cmdUnsolder:
		return projectOr(inventory.UnsolderFrom)
	case cmdOrder:
		return sourceOr(inventory.OrderFrom)
	case cmdCancel:
		return sourceOr(inventory.CancelOrderFrom)
	case cmdDeliver:
		return sourceOr(inventory.DeliverFrom)
	case cmdReturn:
		return sourceOr(inventory.ReturnTo)
	case cmdCorrect:
		switch {
		case hasLoc:
			return inventory.ForceCount(loc), "", true
		case hasProj:
			return inventory.ForceCountProject(proj), "", true
		}
		return inventory.Event{}, "location", false
	}
	return inventory.Event{}, "", false
}

func dim(fields map[string]string, name string) (inventory.DimensionID, bool) {
	v := fields[name]
	if v == "" {
		return inventory.DimensionID{}, false
	}
	return inventory.Simple(inventory.TypeID(v)), true
}

// =============================================================================
// ENCODING
// =============================================================================

// Format renders an entry in canonical form. Parse(Format(e)) == e for
// every valid entry with a non-zero time.
func Format(e inventory.LedgerEntry) string {
	var b strings.Builder
	if !e.Time.IsZero() {
		fmt.Fprintf(&b, "time=%s,", e.Time.Format(time.RFC3339Nano))
	}
	fmt.Fprintf(&b, "count=%d,part=%s", e.Count, e.Item.Type())
	switch e.Item.Kind() {
	case inventory.KindPiece:
		fmt.Fprintf(&b, ",size=%d", e.Item.PieceSize())
	case inventory.KindUnique:
		fmt.Fprintf(&b, ",serial=%s", e.Item.Serial())
	}
	if e.Transaction != "" {
		fmt.Fprintf(&b, ",tx=%s", e.Transaction)
	}
	fmt.Fprintf(&b, ",%s=%s,%s", e.Event.Kind.Dimension(), e.Event.Target.Type(), flagOf(e.Event.Kind))
	return b.String()
}

func flagOf(k inventory.EventKind) string {
	switch k {
	case inventory.EventTakeFrom:
		return "take"
	case inventory.EventStoreTo:
		return "store"
	case inventory.EventForceCount, inventory.EventForceCountProject:
		return "correct"
	case inventory.EventRequireIn, inventory.EventRequireInProject:
		return "require"
	case inventory.EventOrderFrom:
		return "order"
	case inventory.EventCancelOrderFrom:
		return "cancel"
	case inventory.EventDeliverFrom:
		return "deliver"
	case inventory.EventReturnTo:
		return "return"
	case inventory.EventSolderTo:
		return "solder"
	case inventory.EventUnsolderFrom:
		return "unsolder"
	}
	return ""
}

// Encode writes one line per entry.
func Encode(w io.Writer, entries ...inventory.LedgerEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(Format(e) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

/*
replay.go - Rebuilding the count caches from the full ledger

PURPOSE:
  Replay is the only way counts are built at startup. It reads every
  segment of a Source and folds all records into fresh caches.

ALGORITHM:
  1. Read all segments, ordered by name.
  2. Per segment, in file order: a record without a timestamp inherits the
     timestamp of the record before it (the first inherits the zero time).
  3. Stable sort all records by time.
  4. Fold into fresh caches with the same planner live folds use.
  5. Publish the fresh caches under the write lock.

  Steps 2 and 3 stay separate passes: inheritance follows file order, not
  sorted order.

FAILURES:
  - A segment that failed to decode is skipped and reported. Other
    segments still replay.
  - An item unknown to the catalog is folded as untracked.
  - A Source error aborts the replay. The previous caches stay published
    and the state turns stale until a replay succeeds.

SEE ALSO:
  - tracker.go: Fold planning
  - store.go: Source and Segment
*/
package inventory

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"time"
)

// SegmentFailure names a segment skipped by replay.
type SegmentFailure struct {
	Segment string
	Err     error
}

// ReplayReport summarizes one replay.
type ReplayReport struct {
	Segments int
	Records  int
	Unknown  int // records whose item type the catalog does not know
	Rejected int // records that decoded but could not be folded
	Failed   []SegmentFailure
}

// Replay clears the caches and rebuilds them from src. Record calls wait
// until the new caches are in place.
func (t *Tracker) Replay(ctx context.Context, src Source) (ReplayReport, error) {
	t.record.Lock()
	defer t.record.Unlock()

	t.mu.Lock()
	t.state = StateLoading
	t.mu.Unlock()

	fresh, report, err := t.rebuild(ctx, src)
	if err != nil {
		t.mu.Lock()
		t.state = StateStale
		t.mu.Unlock()
		t.logger.Error("replay aborted", "error", err)
		return report, &ReplayError{Cause: err}
	}

	t.mu.Lock()
	t.caches = fresh
	t.state = StateReplayed
	t.mu.Unlock()

	t.logger.Info("ledger replayed",
		"segments", report.Segments,
		"records", report.Records,
		"failed", len(report.Failed),
		"unknown", report.Unknown,
		"rejected", report.Rejected)
	return report, nil
}

func (t *Tracker) rebuild(ctx context.Context, src Source) (caches, ReplayReport, error) {
	var report ReplayReport

	segments, err := src.Segments(ctx)
	if err != nil {
		return caches{}, report, err
	}
	slices.SortStableFunc(segments, func(a, b Segment) int {
		return cmp.Compare(a.Name, b.Name)
	})

	var entries []LedgerEntry
	for _, seg := range segments {
		report.Segments++
		if seg.Err != nil {
			report.Failed = append(report.Failed, SegmentFailure{Segment: seg.Name, Err: seg.Err})
			t.logger.Warn("skipping ledger segment", "segment", seg.Name, "error", seg.Err)
			continue
		}
		entries = append(entries, InheritTimes(seg.Records)...)
	}
	SortByTime(entries)
	report.Records = len(entries)

	fresh := newCaches()
	looks := make(map[TypeID]lookup)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return caches{}, report, err
		}
		l, ok := looks[e.Item.Type()]
		if !ok {
			l, err = t.lookup(ctx, e.Item.Type())
			if err != nil {
				return caches{}, report, err
			}
			looks[e.Item.Type()] = l
		}
		if !l.known && t.policies != nil {
			report.Unknown++
		}
		p, err := plan(fresh, l, e)
		if err != nil {
			report.Rejected++
			t.logger.Warn("skipping ledger entry", "entry", e.Event.String(), "item", e.Item.String(), "error", err)
			continue
		}
		fresh.apply(p)
	}
	return fresh, report, nil
}

// InheritTimes returns the entries of records in file order, giving every
// record without a timestamp the time of the record before it.
func InheritTimes(records []Record) []LedgerEntry {
	out := make([]LedgerEntry, len(records))
	var last time.Time
	for i, r := range records {
		e := r.Entry
		if r.HasTime {
			last = e.Time
		} else {
			e.Time = last
		}
		out[i] = e
	}
	return out
}

// SortByTime orders entries by time, keeping the relative order of entries
// with equal times.
func SortByTime(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
}

// Package store provides inventory.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/inventory-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// DefaultSegment is the segment Append writes to.
const DefaultSegment = "memory"

type Memory struct {
	mu           sync.RWMutex
	segments     []inventory.Segment
	index        map[string]int
	transactions map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		index:        make(map[string]int),
		transactions: make(map[string]bool),
	}
}

// NewMemoryFrom returns a store preloaded with segments, for replay tests.
func NewMemoryFrom(segments ...inventory.Segment) *Memory {
	m := NewMemory()
	for _, seg := range segments {
		m.mu.Lock()
		i := m.segmentLocked(seg.Name)
		m.segments[i].Err = seg.Err
		for _, r := range seg.Records {
			m.appendLocked(i, r)
		}
		m.mu.Unlock()
	}
	return m
}

// Append adds entries to the default segment atomically. Append-only.
func (m *Memory) Append(_ context.Context, entries ...inventory.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all transaction ids first (atomic check)
	for _, e := range entries {
		if e.Transaction != "" && m.transactions[e.Transaction] {
			return inventory.ErrDuplicateTransaction
		}
	}

	i := m.segmentLocked(DefaultSegment)
	for _, e := range entries {
		m.appendLocked(i, inventory.Record{Entry: e, HasTime: !e.Time.IsZero()})
	}
	return nil
}

func (m *Memory) segmentLocked(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	m.segments = append(m.segments, inventory.Segment{Name: name})
	m.index[name] = len(m.segments) - 1
	return len(m.segments) - 1
}

func (m *Memory) appendLocked(i int, r inventory.Record) {
	seg := &m.segments[i]
	r.Line = len(seg.Records) + 1
	seg.Records = append(seg.Records, r)
	if r.Entry.Transaction != "" {
		m.transactions[r.Entry.Transaction] = true
	}
}

// Segments returns a copy of every segment in insertion order.
func (m *Memory) Segments(_ context.Context) ([]inventory.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.Segment, len(m.segments))
	for i, seg := range m.segments {
		records := make([]inventory.Record, len(seg.Records))
		copy(records, seg.Records)
		result[i] = inventory.Segment{Name: seg.Name, Records: records, Err: seg.Err}
	}
	return result, nil
}

// Len returns the number of recorded entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, seg := range m.segments {
		n += len(seg.Records)
	}
	return n
}

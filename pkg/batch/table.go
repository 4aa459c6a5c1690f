// Package batch runs a corpus of boot-sector images to completion across
// a bounded worker pool, collecting each image's terminal state into a
// result table that can be checkpointed and resumed.
package batch

import (
	"sort"
	"sync"
)

// Reason identifies why a single image's run ended.
type Reason string

const (
	ReasonHalted        Reason = "halted"
	ReasonOutOfBounds    Reason = "out-of-bounds"
	ReasonIllegalOpcode  Reason = "illegal-opcode"
	ReasonStepLimit      Reason = "step-limit"
)

// Record is one image's terminal snapshot: where it came from, how far
// it got, and why it stopped.
type Record struct {
	Path     string
	Steps    int
	FinalEIP uint32
	Regs     [8]uint32 // EAX..EDI, in that order
	Reason   Reason
	Err      string // non-empty when Reason indicates a fault
}

// Table stores completed records behind a mutex, mirroring the
// concurrency discipline of a single result table shared by many
// worker goroutines.
type Table struct {
	mu      sync.Mutex
	records []Record
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// Add appends one record.
func (t *Table) Add(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
}

// Records returns a copy of all records, sorted by path for a
// deterministic report regardless of the order workers finished in.
func (t *Table) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of recorded images.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Paths returns the set of paths already recorded, used by Run to skip
// images a resumed checkpoint already covered.
func (t *Table) Paths() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]bool, len(t.records))
	for _, r := range t.records {
		out[r.Path] = true
	}
	return out
}

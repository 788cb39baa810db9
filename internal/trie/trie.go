// Package trie implements the per-relation trie view the LeapFrog
// join (internal/join) intersects over: a cursor that can seek to a
// target value, advance to the next value at the current depth,
// descend into the next variable's values (open) and ascend back
// (up).
//
// Grounded on _examples/original_source/crates/wcoj/src/leapfrog.rs's
// Trie usage (seek/current/next/open/up/reset/depth/at_end). The one
// Cursor implementation here, SliceCursor, walks a pre-sorted
// []rdf.Term slice at a single depth.
package trie

import (
	"github.com/graphon-db/graphon/pkg/rdf"
)

// Cursor is one relation's trie view for a single join variable
// ordering: at each of its Depth() depths it exposes the sorted
// sequence of values the next unbound position can take, given the
// values already bound at shallower depths.
type Cursor interface {
	// Seek advances the cursor at the current depth to the first
	// value >= target, or marks AtEnd if none exists.
	Seek(target rdf.Term)
	// Current returns the value the cursor rests on at the current
	// depth, or nil if AtEnd.
	Current() rdf.Term
	// Next advances to the next value at the current depth.
	Next() bool
	// AtEnd reports whether the cursor has exhausted the current
	// depth's sequence.
	AtEnd() bool
	// Open descends into the next depth, scoped to the value Current
	// held before the call. Returns false if there is no next depth.
	Open() bool
	// Up ascends back to the parent depth.
	Up() bool
	// Reset returns the cursor to the first value at the current
	// depth (used when leapfrog search restarts after repositioning).
	Reset()
	// Depth returns the total number of variable positions this
	// cursor iterates over (matching every other Cursor in the same
	// LeapfrogIterator per spec.md §4.4's "all tries share depth").
	Depth() int
}

// SliceCursor is an in-memory Cursor over a pre-sorted slice of
// rdf.Term values, used for the single-depth case (one variable's
// join) and as the leaf building block multi-depth cursors compose.
type SliceCursor struct {
	values []rdf.Term
	pos    int
}

// NewSliceCursor builds a cursor over values, which must already be
// sorted per rdf.Compare.
func NewSliceCursor(values []rdf.Term) *SliceCursor {
	return &SliceCursor{values: values}
}

func (c *SliceCursor) Seek(target rdf.Term) {
	for c.pos < len(c.values) && rdf.Compare(c.values[c.pos], target) < 0 {
		c.pos++
	}
}

func (c *SliceCursor) Current() rdf.Term {
	if c.AtEnd() {
		return nil
	}
	return c.values[c.pos]
}

func (c *SliceCursor) Next() bool {
	c.pos++
	return !c.AtEnd()
}

func (c *SliceCursor) AtEnd() bool { return c.pos >= len(c.values) }

// Open/Up are no-ops on a flat single-depth cursor; multi-depth joins
// compose SliceCursors per level via internal/join's trie builder
// instead of nesting them inside one Cursor implementation.
func (c *SliceCursor) Open() bool { return false }
func (c *SliceCursor) Up() bool   { return false }
func (c *SliceCursor) Reset()     { c.pos = 0 }
func (c *SliceCursor) Depth() int { return 1 }

// Package join implements the Worst-Case Optimal Join (WCOJ) via
// LeapFrog TrieJoin. The nested-loop join the optimizer picks for
// simple joins is not in this package; the executor implements it.
//
// LeapfrogIterator is a line-for-line port of
// _examples/original_source/crates/wcoj/src/leapfrog.rs's
// LeapfrogIterator: leapfrogSeek/LeapfrogSearch/LeapfrogNext keep the
// Rust original's control flow and variable names (candidate,
// maxValue, minIdx/minValue for the "lightest trie") so the algorithm
// stays recognizable against its source; only the term comparison
// (rdf.Compare) and the Cursor interface (internal/trie) differ,
// since Go has no borrow-checked trie-slice type to mirror directly.
package join

import (
	"github.com/graphon-db/graphon/internal/trie"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// LeapfrogIterator intersects one join variable's sorted value
// sequences across multiple trie.Cursors, in AGM worst-case-optimal
// time.
type LeapfrogIterator struct {
	cursors []trie.Cursor
	atEnd   bool
}

// NewLeapfrogIterator builds an iterator over cursors, which must all
// expose the same Depth().
func NewLeapfrogIterator(cursors []trie.Cursor) *LeapfrogIterator {
	if len(cursors) == 0 {
		return &LeapfrogIterator{atEnd: true}
	}
	return &LeapfrogIterator{cursors: cursors}
}

// leapfrogSeek seeks every cursor to target or the next value >=
// target, returning the maximum value reached, or nil if any cursor
// is exhausted.
func (it *LeapfrogIterator) leapfrogSeek(target rdf.Term) rdf.Term {
	if len(it.cursors) == 0 {
		return nil
	}
	maxValue := target
	for _, c := range it.cursors {
		if c.AtEnd() {
			return nil
		}
		c.Seek(maxValue)
		current := c.Current()
		if current == nil {
			return nil
		}
		if rdf.Compare(current, maxValue) > 0 {
			maxValue = current
		}
	}
	return maxValue
}

// LeapfrogSearch finds the next value common to every cursor,
// repeatedly seeking all cursors to the running maximum until they
// converge.
func (it *LeapfrogIterator) LeapfrogSearch() rdf.Term {
	if len(it.cursors) == 0 || it.atEnd {
		return nil
	}

	candidate := it.cursors[0].Current()
	if candidate == nil {
		if !it.cursors[0].Next() {
			it.atEnd = true
			return nil
		}
		candidate = it.cursors[0].Current()
	}

	for {
		maxValue := it.leapfrogSeek(candidate)
		if maxValue == nil {
			it.atEnd = true
			return nil
		}
		if rdf.Compare(maxValue, candidate) == 0 {
			return candidate
		}
		candidate = maxValue
	}
}

// LeapfrogNext advances the lightest cursor (the one holding the
// smallest current value) and searches for the next intersection
// point.
func (it *LeapfrogIterator) LeapfrogNext() rdf.Term {
	if len(it.cursors) == 0 || it.atEnd {
		return nil
	}

	minIdx := 0
	minValue := it.cursors[0].Current()
	if minValue == nil {
		it.atEnd = true
		return nil
	}
	for i := 1; i < len(it.cursors); i++ {
		val := it.cursors[i].Current()
		if val == nil {
			continue
		}
		if rdf.Compare(val, minValue) < 0 {
			minValue = val
			minIdx = i
		}
	}

	if !it.cursors[minIdx].Next() {
		it.atEnd = true
		return nil
	}
	return it.LeapfrogSearch()
}

// AtEnd reports whether the intersection is exhausted.
func (it *LeapfrogIterator) AtEnd() bool {
	if it.atEnd {
		return true
	}
	for _, c := range it.cursors {
		if c.AtEnd() {
			return true
		}
	}
	return false
}

// Reset returns every cursor to the start of the current depth.
func (it *LeapfrogIterator) Reset() {
	for _, c := range it.cursors {
		c.Reset()
	}
	it.atEnd = false
}

// Current returns the first cursor's current value, valid once the
// cursors are synchronized by LeapfrogSearch.
func (it *LeapfrogIterator) Current() rdf.Term {
	if len(it.cursors) == 0 {
		return nil
	}
	return it.cursors[0].Current()
}

// Open descends every cursor into its next depth (the next join
// variable), used when moving from e.g. the subject level to the
// predicate level of a multi-way star join.
func (it *LeapfrogIterator) Open() bool {
	allOpened := true
	for _, c := range it.cursors {
		if !c.Open() {
			allOpened = false
		}
	}
	return allOpened
}

// Up ascends every cursor back to its parent depth.
func (it *LeapfrogIterator) Up() bool {
	allClosed := true
	for _, c := range it.cursors {
		if !c.Up() {
			allClosed = false
		}
	}
	return allClosed
}

// NumCursors returns the number of relations participating in this
// join level.
func (it *LeapfrogIterator) NumCursors() int { return len(it.cursors) }

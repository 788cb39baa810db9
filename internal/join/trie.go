package join

import (
	"sort"

	"github.com/graphon-db/graphon/internal/store"
	"github.com/graphon-db/graphon/internal/trie"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// Position names which field of a store.Pattern a join variable
// occupies.
type Position int

const (
	PositionSubject Position = iota
	PositionPredicate
	PositionObject
	PositionGraph
)

func bind(p store.Pattern, pos Position, value rdf.Term) store.Pattern {
	switch pos {
	case PositionSubject:
		p.Subject = value
	case PositionPredicate:
		p.Predicate = value
	case PositionObject:
		p.Object = value
	case PositionGraph:
		p.Graph = value
		p.GraphAny = false
	}
	return p
}

// LevelTrie is one relation's (one triple pattern's) contribution to
// one level of a multi-way WCOJ.
//
// Grounded on the Rust Trie::from_quads(quads, positions) used by
// LeapfrogJoin::new in leapfrog.rs: there, a Trie is built once over
// the full position ordering and Open/Up walk its levels in memory.
// internal/store has no materialized trie structure, so a LevelTrie's
// sorted value sequence is instead computed by re-scanning the store
// per level with the parent levels' bound values substituted into the
// pattern (the store's index scan stands in for the Rust Trie's
// pre-sorted slice at that level).
type LevelTrie struct {
	// Pattern is this relation's triple pattern with every join
	// variable's position left nil (wildcard); VarPositions names
	// which join variable occupies which nil position so earlier
	// levels' bound values can be substituted in before each scan.
	Pattern      store.Pattern
	VarPositions map[Position]string
	// Position is this level's own join variable's position within
	// Pattern.
	Position Position
}

func (rel LevelTrie) boundPattern(path map[string]rdf.Term) store.Pattern {
	p := rel.Pattern
	for pos, name := range rel.VarPositions {
		if value, ok := path[name]; ok {
			p = bind(p, pos, value)
		}
	}
	return p
}

// valuesFor scans s for the distinct, sorted values rel's pattern can
// take at rel.Position, given rel.Pattern's current bindings.
func valuesFor(s *store.Store, rel LevelTrie, path map[string]rdf.Term) ([]rdf.Term, error) {
	p := rel.boundPattern(path)
	it, err := s.Find(&p)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	seen := map[string]rdf.Term{}
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		var v rdf.Term
		switch rel.Position {
		case PositionSubject:
			v = q.Subject
		case PositionPredicate:
			v = q.Predicate
		case PositionObject:
			v = q.Object
		case PositionGraph:
			v = q.Graph
		}
		if v == nil {
			continue
		}
		seen[v.String()] = v
	}
	values := make([]rdf.Term, 0, len(seen))
	for _, v := range seen {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return rdf.Compare(values[i], values[j]) < 0 })
	return values, nil
}

// LevelSpec describes one join variable's participating relations,
// ordered so earlier levels bind variables later levels' patterns
// depend on (the join order the optimizer or executor chooses).
type LevelSpec struct {
	Variable  string
	Relations []LevelTrie
}

// LeapfrogJoin coordinates one LeapfrogIterator per level of a
// multi-way join, descending level by level exactly as the Rust
// LeapfrogJoin::enumerate_level does: find the first intersection at
// this level, then for every value in the intersection either recurse
// into the next level or, at the last level, emit a solution row.
//
// Ported from leapfrog.rs's LeapfrogJoin/enumerate_level; Trie::open
// there descends a pre-built in-memory trie, where here each level's
// Open re-scans the store with the newly bound value substituted in,
// since internal/store has no materialized multi-level trie.
type LeapfrogJoin struct {
	store  *store.Store
	levels []LevelSpec
}

// NewLeapfrogJoin builds a join coordinator over levels, one per join
// variable, in the order they should be bound.
func NewLeapfrogJoin(s *store.Store, levels []LevelSpec) *LeapfrogJoin {
	return &LeapfrogJoin{store: s, levels: levels}
}

// Execute runs the join to completion, returning one map[string]rdf.Term
// per solution (one binding per join variable across all levels).
func (j *LeapfrogJoin) Execute() ([]map[string]rdf.Term, error) {
	if len(j.levels) == 0 {
		return nil, nil
	}
	var results []map[string]rdf.Term
	path := map[string]rdf.Term{}
	if err := j.enumerateLevel(0, path, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (j *LeapfrogJoin) enumerateLevel(depth int, path map[string]rdf.Term, results *[]map[string]rdf.Term) error {
	if depth >= len(j.levels) {
		*results = append(*results, cloneBinding(path))
		return nil
	}

	level := j.levels[depth]
	cursors := make([]trie.Cursor, 0, len(level.Relations))
	for _, rel := range level.Relations {
		values, err := valuesFor(j.store, rel, path)
		if err != nil {
			return err
		}
		cursors = append(cursors, trie.NewSliceCursor(values))
	}

	iter := NewLeapfrogIterator(cursors)
	if iter.LeapfrogSearch() == nil {
		return nil
	}

	for {
		value := iter.Current()
		if value == nil {
			break
		}
		path[level.Variable] = value

		if depth+1 < len(j.levels) {
			if err := j.enumerateLevel(depth+1, path, results); err != nil {
				delete(path, level.Variable)
				return err
			}
		} else {
			*results = append(*results, cloneBinding(path))
		}

		delete(path, level.Variable)

		if iter.LeapfrogNext() == nil {
			break
		}
	}
	return nil
}

func cloneBinding(path map[string]rdf.Term) map[string]rdf.Term {
	out := make(map[string]rdf.Term, len(path))
	for k, v := range path {
		out[k] = v
	}
	return out
}

// Package binding implements the SPARQL binding-set algebra: the
// relational operations (Join/LeftJoin/Minus/Union/Project/Distinct/
// Slice/SortBy) that the executor composes to evaluate an
// internal/sparql/algebra tree, operating over maps from variable name
// to bound rdf.Term.
//
// Grounded on the teacher's pkg/store.Binding (a flat map keyed by
// variable name) generalized into its own package with the set-level
// operations the SPARQL algebra needs, since the teacher never
// implemented OPTIONAL/MINUS/UNION/ORDER BY at the binding-set level.
package binding

import (
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/graphon-db/graphon/pkg/rdf"
)

// Binding maps variable names to the terms bound to them in one
// solution row.
type Binding map[string]rdf.Term

// Clone returns a shallow copy of b.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Compatible reports whether b and other agree on every variable they
// both bind (the SPARQL join-compatibility test).
func (b Binding) Compatible(other Binding) bool {
	for k, v := range other {
		if existing, ok := b[k]; ok && !existing.Equals(v) {
			return false
		}
	}
	return true
}

// Merge returns a new binding containing both b's and other's
// bindings. Callers must check Compatible first.
func (b Binding) Merge(other Binding) Binding {
	out := b.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Set is an ordered sequence of bindings — a SPARQL solution
// sequence. Order matters once ORDER BY/LIMIT/OFFSET apply.
type Set []Binding

// Join computes the natural join of left and right: every compatible
// pair of rows, merged. O(|left| * |right|) — the nested-loop
// fallback the optimizer picks for simple 2-way joins; WCOJ handles
// the multi-way star/cyclic case directly over the store instead of
// through this binding-set layer.
func Join(left, right Set) Set {
	var out Set
	for _, l := range left {
		for _, r := range right {
			if l.Compatible(r) {
				out = append(out, l.Merge(r))
			}
		}
	}
	return out
}

// LeftJoin computes OPTIONAL: every left row paired with every
// compatible (and filter-passing, if filter != nil) right row; left
// rows with no match pass through unbound on the right's variables.
func LeftJoin(left, right Set, filter func(Binding) bool) Set {
	var out Set
	for _, l := range left {
		matched := false
		for _, r := range right {
			if !l.Compatible(r) {
				continue
			}
			merged := l.Merge(r)
			if filter != nil && !filter(merged) {
				continue
			}
			out = append(out, merged)
			matched = true
		}
		if !matched {
			out = append(out, l)
		}
	}
	return out
}

// Minus removes every left row that is compatible with (and shares at
// least one variable with) some right row, per SPARQL MINUS
// semantics.
func Minus(left, right Set) Set {
	var out Set
	for _, l := range left {
		excluded := false
		for _, r := range right {
			if sharesVariable(l, r) && l.Compatible(r) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, l)
		}
	}
	return out
}

func sharesVariable(a, b Binding) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// Union concatenates left and right.
func Union(left, right Set) Set {
	out := make(Set, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// Project keeps only the named variables in each row.
func Project(in Set, vars []string) Set {
	out := make(Set, 0, len(in))
	for _, row := range in {
		projected := make(Binding, len(vars))
		for _, v := range vars {
			if term, ok := row[v]; ok {
				projected[v] = term
			}
		}
		out = append(out, projected)
	}
	return out
}

// Distinct removes duplicate rows, preserving first-occurrence order.
// Rows are canonicalized (sorted by variable name) and hashed with
// xxh3, the same fast non-cryptographic hash the teacher's
// internal/encoding uses for dictionary interning, rather than
// comparing or keying on the full string form of every row.
func Distinct(in Set) Set {
	seen := map[uint64]bool{}
	out := make(Set, 0, len(in))
	for _, row := range in {
		key := rowHash(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

func rowHash(row Binding) uint64 {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := xxh3.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte("="))
		h.Write([]byte(row[k].String()))
		h.Write([]byte("\x00"))
	}
	return h.Sum64()
}

// Slice applies OFFSET/LIMIT. limit < 0 means unlimited.
func Slice(in Set, offset, limit int64) Set {
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(in)) {
		return Set{}
	}
	in = in[offset:]
	if limit < 0 || limit >= int64(len(in)) {
		return in
	}
	return in[:limit]
}

// SortBy stably sorts in using less, which should implement one
// ORDER BY condition chain (the executor composes multi-key
// comparisons into a single less closure).
func SortBy(in Set, less func(a, b Binding) bool) Set {
	out := make(Set, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

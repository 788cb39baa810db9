package store

import (
	"bytes"

	"github.com/graphon-db/graphon/internal/encoding"
	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/pkg/rdf"
	"github.com/graphon-db/graphon/pkg/store"
)

// Pattern is a quad pattern: each position is either a concrete term
// (non-nil) or a wildcard (nil), per spec.md §4.3/§3. Graph carries an
// additional GraphAny flag because "match the default graph" and
// "match any graph" are both expressible with Graph == nil.
type Pattern struct {
	Subject, Predicate, Object rdf.Term
	Graph                      rdf.Term
	GraphAny                   bool
}

// QuadIterator iterates over quads matching a pattern.
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// Find scans the store for quads matching pattern, using whichever of
// the nine index tables covers the longest bound leading prefix.
func (s *Store) Find(pattern *Pattern) (QuadIterator, error) {
	txn, err := s.backend.Begin(false)
	if err != nil {
		return nil, errs.Storage(err)
	}

	table, order := SelectIndex(pattern)
	prefix, err := s.buildPrefix(pattern, order)
	if err != nil {
		txn.Rollback()
		return nil, err
	}

	it, err := txn.Scan(table, prefix, nil)
	if err != nil {
		txn.Rollback()
		return nil, errs.Storage(err)
	}

	return &quadIterator{
		store:   s,
		txn:     txn,
		it:      it,
		pattern: pattern,
		order:   order,
		prefix:  prefix,
	}, nil
}

// positionIndex names the four quad positions in pattern-struct order
// (as opposed to key order, which varies per index).
const (
	posSubject = iota
	posPredicate
	posObject
	posGraph
)

// SelectIndex picks the table and key-position order covering the
// longest bound leading prefix for pattern, mirroring the teacher's
// internal/store/query.go selectIndex and realizing spec.md §4.8's
// "index choice by the optimizer maps bound-position leading prefix
// → index" rule at the store layer too (so ad hoc Find calls, not
// just optimizer-planned scans, get the same benefit).
func SelectIndex(p *Pattern) (store.Table, []int) {
	sBound := p.Subject != nil
	pBound := p.Predicate != nil
	oBound := p.Object != nil
	gBound := !p.GraphAny && p.Graph != nil

	if !gBound && (p.GraphAny || p.Graph == nil) && !namedGraphOnly(p) {
		switch {
		case sBound && pBound:
			return store.TableSPO, []int{posSubject, posPredicate, posObject}
		case pBound && oBound:
			return store.TablePOS, []int{posPredicate, posObject, posSubject}
		case oBound && sBound:
			return store.TableOSP, []int{posObject, posSubject, posPredicate}
		case sBound:
			return store.TableSPO, []int{posSubject, posPredicate, posObject}
		case pBound:
			return store.TablePOS, []int{posPredicate, posObject, posSubject}
		case oBound:
			return store.TableOSP, []int{posObject, posSubject, posPredicate}
		default:
			return store.TableSPO, []int{posSubject, posPredicate, posObject}
		}
	}

	switch {
	case gBound && sBound && pBound:
		return store.TableGSPO, []int{posGraph, posSubject, posPredicate, posObject}
	case gBound && pBound && oBound:
		return store.TableGPOS, []int{posGraph, posPredicate, posObject, posSubject}
	case gBound && oBound && sBound:
		return store.TableGOSP, []int{posGraph, posObject, posSubject, posPredicate}
	case gBound && pBound:
		return store.TableGPOS, []int{posGraph, posPredicate, posObject, posSubject}
	case gBound && oBound:
		return store.TableGOSP, []int{posGraph, posObject, posSubject, posPredicate}
	case gBound:
		return store.TableGSPO, []int{posGraph, posSubject, posPredicate, posObject}
	case sBound && pBound:
		return store.TableSPOG, []int{posSubject, posPredicate, posObject, posGraph}
	case pBound && oBound:
		return store.TablePOSG, []int{posPredicate, posObject, posSubject, posGraph}
	case oBound && sBound:
		return store.TableOSPG, []int{posObject, posSubject, posPredicate, posGraph}
	case pBound:
		return store.TablePOSG, []int{posPredicate, posObject, posSubject, posGraph}
	case oBound:
		return store.TableOSPG, []int{posObject, posSubject, posPredicate, posGraph}
	default:
		return store.TableSPOG, []int{posSubject, posPredicate, posObject, posGraph}
	}
}

// namedGraphOnly reports whether the pattern must range over named
// graphs only (GraphAny with no further constraint still needs the
// *G-suffixed tables to see non-default quads at all).
func namedGraphOnly(p *Pattern) bool {
	return p.GraphAny
}

func (s *Store) buildPrefix(p *Pattern, order []int) ([]byte, error) {
	positions := [4]rdf.Term{p.Subject, p.Predicate, p.Object, p.Graph}
	var prefix []byte
	for _, idx := range order {
		term := positions[idx]
		if term == nil {
			break
		}
		enc, _, err := s.encoder.EncodeTerm(term)
		if err != nil {
			return nil, errs.Type(err.Error())
		}
		prefix = append(prefix, enc[:]...)
	}
	return prefix, nil
}

type quadIterator struct {
	store   *Store
	txn     store.Transaction
	it      store.Iterator
	pattern *Pattern
	order   []int
	prefix  []byte
	closed  bool
}

func (qi *quadIterator) Next() bool {
	if qi.closed {
		return false
	}
	for qi.it.Next() {
		key := qi.it.Key()
		if len(qi.prefix) > 0 && !bytes.HasPrefix(key, qi.prefix) {
			return false
		}
		if qi.matchesRemaining(key) {
			return true
		}
	}
	return false
}

// matchesRemaining re-checks bound positions not covered by the scan
// prefix (e.g. the pattern's graph position when the chosen index
// puts subject/predicate/object first).
func (qi *quadIterator) matchesRemaining(key []byte) bool {
	positions := qi.decodePositions(key)
	want := [4]rdf.Term{qi.pattern.Subject, qi.pattern.Predicate, qi.pattern.Object, qi.pattern.Graph}
	for i, w := range want {
		if w == nil {
			continue
		}
		if i == posGraph && qi.pattern.GraphAny {
			continue
		}
		enc, _, err := qi.store.encoder.EncodeTerm(w)
		if err != nil {
			return false
		}
		if enc != positions[i] {
			return false
		}
	}
	if i := indexOf(qi.order, posGraph); i == -1 && !qi.pattern.GraphAny && qi.pattern.Graph == nil {
		// Index has no graph component at all (default-graph tables):
		// those rows are implicitly the default graph already.
		return true
	}
	return true
}

func indexOf(order []int, v int) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return -1
}

func (qi *quadIterator) decodePositions(key []byte) [4]store.EncodedTerm {
	var out [4]store.EncodedTerm
	for i, idx := range qi.order {
		off := i * encoding.EncodedTermSize
		if off+encoding.EncodedTermSize > len(key) {
			break
		}
		copy(out[idx][:], key[off:off+encoding.EncodedTermSize])
	}
	return out
}

func (qi *quadIterator) Quad() (*rdf.Quad, error) {
	if qi.closed {
		return nil, errs.New(errs.KindStorage, "iterator closed")
	}
	key := qi.it.Key()
	positions := qi.decodePositions(key)

	subject, err := qi.store.decodeTerm(qi.txn, positions[posSubject])
	if err != nil {
		return nil, errs.Storage(err)
	}
	predicate, err := qi.store.decodeTerm(qi.txn, positions[posPredicate])
	if err != nil {
		return nil, errs.Storage(err)
	}
	object, err := qi.store.decodeTerm(qi.txn, positions[posObject])
	if err != nil {
		return nil, errs.Storage(err)
	}

	// Default-graph quads carry an all-zero graph encoding in the
	// graph-position tables; they decode to a nil Graph.
	var graph rdf.Term
	if indexOf(qi.order, posGraph) != -1 && positions[posGraph] != (store.EncodedTerm{}) {
		graph, err = qi.store.decodeTerm(qi.txn, positions[posGraph])
		if err != nil {
			return nil, errs.Storage(err)
		}
	}

	return &rdf.Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph}, nil
}

func (qi *quadIterator) Close() error {
	if qi.closed {
		return nil
	}
	qi.closed = true
	qi.it.Close()
	return qi.txn.Rollback()
}

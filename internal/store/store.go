// Package store implements the quad store: a backend-agnostic set of
// quads with pattern scans and the four canonical index orderings
// (SPOC/POCS/OCSP/CSPO), realized as the teacher's richer nine-table
// scheme (three default-graph-only indexes plus six named-graph
// permutations). Adapted from the teacher's internal/store/{store,query}.go,
// extended with the idempotent boolean "changed" returns spec.md §4.3
// requires and with an owned internal/dict.Dictionary instance backing
// the dictionary() accessor.
package store

import (
	"bytes"
	"fmt"

	"github.com/graphon-db/graphon/internal/dict"
	"github.com/graphon-db/graphon/internal/encoding"
	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/pkg/rdf"
	"github.com/graphon-db/graphon/pkg/store"
)

// Store is the quad store built on top of a pkg/store.Storage
// backend (in-memory or badger-backed).
type Store struct {
	backend    store.Storage
	encoder    *encoding.TermEncoder
	decoder    *encoding.TermDecoder
	dictionary *dict.Dictionary
}

// New wraps a storage backend as a quad store.
func New(backend store.Storage) *Store {
	return &Store{
		backend:    backend,
		encoder:    encoding.NewTermEncoder(),
		decoder:    encoding.NewTermDecoder(),
		dictionary: dict.New(),
	}
}

// Close releases the underlying storage backend.
func (s *Store) Close() error { return s.backend.Close() }

// Dictionary returns the store's string dictionary handle.
func (s *Store) Dictionary() *dict.Dictionary { return s.dictionary }

// Insert adds a quad to the store. Returns whether the store changed
// (false if the quad was already present — insertion is idempotent
// per spec.md §4.3's "insert(q); insert(q)" invariant).
func (s *Store) Insert(quad *rdf.Quad) (bool, error) {
	txn, err := s.backend.Begin(true)
	if err != nil {
		return false, errs.Storage(err)
	}
	defer txn.Rollback()

	changed, err := s.insertInTxn(txn, quad)
	if err != nil {
		return false, err
	}
	if err := txn.Commit(); err != nil {
		return false, errs.Storage(err)
	}
	return changed, nil
}

func (s *Store) insertInTxn(txn store.Transaction, quad *rdf.Quad) (bool, error) {
	keys, err := s.quadKeys(quad)
	if err != nil {
		return false, err
	}

	// Primary index doubles as the existence check.
	if _, err := txn.Get(store.TableSPOG, keys.spog); err == nil {
		return false, nil
	} else if err != store.ErrNotFound {
		return false, errs.Storage(err)
	}

	if err := s.storeString(txn, keys.subjEnc, keys.subjStr); err != nil {
		return false, err
	}
	if err := s.storeString(txn, keys.predEnc, keys.predStr); err != nil {
		return false, err
	}
	if err := s.storeString(txn, keys.objEnc, keys.objStr); err != nil {
		return false, err
	}
	if keys.hasGraph {
		if err := s.storeString(txn, keys.graphEnc, keys.graphStr); err != nil {
			return false, err
		}
	}

	empty := []byte{}
	tables := s.indexKeys(keys)
	for table, key := range tables {
		if err := txn.Set(table, key, empty); err != nil {
			return false, errs.Storage(err)
		}
	}
	if keys.hasGraph {
		if err := txn.Set(store.TableGraphs, keys.graphEnc[:], empty); err != nil {
			return false, errs.Storage(err)
		}
	}
	return true, nil
}

func (s *Store) storeString(txn store.Transaction, enc store.EncodedTerm, str *string) error {
	if str == nil {
		return nil
	}
	s.dictionary.InternString(*str)

	key := enc[1:]
	value := []byte(*str)
	existing, err := txn.Get(store.TableID2Str, key)
	if err == nil && bytes.Equal(existing, value) {
		return nil
	}
	if err != nil && err != store.ErrNotFound {
		return errs.Storage(err)
	}
	if err := txn.Set(store.TableID2Str, key, value); err != nil {
		return errs.Storage(err)
	}
	return nil
}

// Remove deletes a quad from the store. Returns whether the store
// changed.
func (s *Store) Remove(quad *rdf.Quad) (bool, error) {
	txn, err := s.backend.Begin(true)
	if err != nil {
		return false, errs.Storage(err)
	}
	defer txn.Rollback()

	keys, err := s.quadKeys(quad)
	if err != nil {
		return false, err
	}

	if _, err := txn.Get(store.TableSPOG, keys.spog); err == store.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, errs.Storage(err)
	}

	for table, key := range s.indexKeys(keys) {
		if err := txn.Delete(table, key); err != nil {
			return false, errs.Storage(err)
		}
	}
	// id2str and the graphs table are not garbage-collected: other
	// quads may still reference the same interned strings/graph.

	if err := txn.Commit(); err != nil {
		return false, errs.Storage(err)
	}
	return true, nil
}

// Clear removes every quad from the store.
func (s *Store) Clear() error {
	txn, err := s.backend.Begin(true)
	if err != nil {
		return errs.Storage(err)
	}
	defer txn.Rollback()

	for _, table := range allIndexTables {
		it, err := txn.Scan(table, nil, nil)
		if err != nil {
			return errs.Storage(err)
		}
		var keys [][]byte
		for it.Next() {
			k := it.Key()
			cp := make([]byte, len(k))
			copy(cp, k)
			keys = append(keys, cp)
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(table, k); err != nil {
				return errs.Storage(err)
			}
		}
	}
	return errs.Storage(txn.Commit())
}

// Graphs returns every graph name recorded in the TableGraphs index,
// which insertInTxn fills on each named-graph quad insert. Remove does
// not delete these entries, so a graph whose last quad was removed is
// still listed; Clear empties the index.
func (s *Store) Graphs() ([]*rdf.NamedNode, error) {
	txn, err := s.backend.Begin(false)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer txn.Rollback()

	it, err := txn.Scan(store.TableGraphs, nil, nil)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer it.Close()

	var graphs []*rdf.NamedNode
	for it.Next() {
		var enc store.EncodedTerm
		copy(enc[:], it.Key())
		term, err := s.decodeTerm(txn, enc)
		if err != nil {
			return nil, err
		}
		if nn, ok := term.(*rdf.NamedNode); ok {
			graphs = append(graphs, nn)
		}
	}
	return graphs, nil
}

// Len returns the number of distinct quads in the store.
func (s *Store) Len() (uint64, error) {
	txn, err := s.backend.Begin(false)
	if err != nil {
		return 0, errs.Storage(err)
	}
	defer txn.Rollback()

	it, err := txn.Scan(store.TableSPOG, nil, nil)
	if err != nil {
		return 0, errs.Storage(err)
	}
	defer it.Close()

	var n uint64
	for it.Next() {
		n++
	}
	return n, nil
}

type quadKeys struct {
	subjEnc, predEnc, objEnc, graphEnc store.EncodedTerm
	subjStr, predStr, objStr, graphStr *string
	hasGraph                           bool
	spo, pos, osp                      []byte
	spog, posg, ospg, gspo, gpos, gosp []byte
}

func (s *Store) quadKeys(quad *rdf.Quad) (*quadKeys, error) {
	k := &quadKeys{hasGraph: quad.Graph != nil}

	var err error
	k.subjEnc, k.subjStr, err = s.encoder.EncodeTerm(quad.Subject)
	if err != nil {
		return nil, errs.Type(fmt.Sprintf("cannot encode subject: %v", err))
	}
	k.predEnc, k.predStr, err = s.encoder.EncodeTerm(quad.Predicate)
	if err != nil {
		return nil, errs.Type(fmt.Sprintf("cannot encode predicate: %v", err))
	}
	k.objEnc, k.objStr, err = s.encoder.EncodeTerm(quad.Object)
	if err != nil {
		return nil, errs.Type(fmt.Sprintf("cannot encode object: %v", err))
	}
	if k.hasGraph {
		k.graphEnc, k.graphStr, err = s.encoder.EncodeTerm(quad.Graph)
		if err != nil {
			return nil, errs.Type(fmt.Sprintf("cannot encode graph: %v", err))
		}
	}

	k.spo = s.encoder.EncodeQuadKey(k.subjEnc, k.predEnc, k.objEnc)
	k.pos = s.encoder.EncodeQuadKey(k.predEnc, k.objEnc, k.subjEnc)
	k.osp = s.encoder.EncodeQuadKey(k.objEnc, k.subjEnc, k.predEnc)
	k.spog = s.encoder.EncodeQuadKey(k.subjEnc, k.predEnc, k.objEnc, k.graphEnc)
	k.posg = s.encoder.EncodeQuadKey(k.predEnc, k.objEnc, k.subjEnc, k.graphEnc)
	k.ospg = s.encoder.EncodeQuadKey(k.objEnc, k.subjEnc, k.predEnc, k.graphEnc)
	k.gspo = s.encoder.EncodeQuadKey(k.graphEnc, k.subjEnc, k.predEnc, k.objEnc)
	k.gpos = s.encoder.EncodeQuadKey(k.graphEnc, k.predEnc, k.objEnc, k.subjEnc)
	k.gosp = s.encoder.EncodeQuadKey(k.graphEnc, k.objEnc, k.subjEnc, k.predEnc)
	return k, nil
}

func (s *Store) indexKeys(k *quadKeys) map[store.Table][]byte {
	m := map[store.Table][]byte{
		store.TableSPOG: k.spog,
		store.TablePOSG: k.posg,
		store.TableOSPG: k.ospg,
		store.TableGSPO: k.gspo,
		store.TableGPOS: k.gpos,
		store.TableGOSP: k.gosp,
	}
	if !k.hasGraph {
		m[store.TableSPO] = k.spo
		m[store.TablePOS] = k.pos
		m[store.TableOSP] = k.osp
	}
	return m
}

var allIndexTables = []store.Table{
	store.TableSPO, store.TablePOS, store.TableOSP,
	store.TableSPOG, store.TablePOSG, store.TableOSPG,
	store.TableGSPO, store.TableGPOS, store.TableGOSP,
	store.TableGraphs, store.TableID2Str,
}

func (s *Store) decodeTerm(txn store.Transaction, enc store.EncodedTerm) (rdf.Term, error) {
	var strValue *string
	switch encoding.GetTag(enc) {
	case encoding.TagNamedNode, encoding.TagBlankNodeHashed, encoding.TagLiteralPlainHashed,
		encoding.TagLiteralLang, encoding.TagLiteralOtherTyped, encoding.TagQuotedTriple:
		raw, err := txn.Get(store.TableID2Str, enc[1:])
		if err == nil {
			v := string(raw)
			strValue = &v
		} else if err != store.ErrNotFound {
			return nil, errs.Storage(err)
		}
	}
	return s.decoder.DecodeTerm(enc, strValue)
}

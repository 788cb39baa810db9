// Package graphon is the embeddable RDF graph database core: a quad
// store with a SPARQL 1.1 query/update engine, a WCOJ/nested-loop join
// optimizer, and a forward-chaining RDFS/OWL-2-RL reasoner. This file
// wires the independently-testable internal packages into the single
// entrypoint spec.md §6 names: open a store, run queries/updates
// against it, and optionally materialize inferred triples into it.
package graphon

import (
	"os"

	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/internal/reasoner"
	"github.com/graphon-db/graphon/internal/rdfio"
	"github.com/graphon-db/graphon/internal/sparql/executor"
	"github.com/graphon-db/graphon/internal/sparql/optimizer"
	"github.com/graphon-db/graphon/internal/sparql/parser"
	"github.com/graphon-db/graphon/internal/sparql/update"
	internalstore "github.com/graphon-db/graphon/internal/store"
	"github.com/graphon-db/graphon/internal/storage"
	"github.com/graphon-db/graphon/internal/storage/memory"
	"github.com/graphon-db/graphon/pkg/rdf"
	"github.com/graphon-db/graphon/pkg/store"
)

// Config configures a DB: whether WCOJ join selection is enabled, the
// LOAD source resolver, and the reasoner's settings (reasoner.Config).
// The WCOJ pattern-count threshold is not configurable; the optimizer
// always uses 4.
type Config struct {
	// WCOJEnabled disables worst-case-optimal join selection entirely
	// when false, forcing every BGP through the nested-loop path.
	WCOJEnabled bool

	// Loader resolves LOAD's source IRIs. Nil disables LOAD.
	Loader update.Loader

	Reasoner reasoner.Config
}

// DefaultConfig enables WCOJ (chosen by the optimizer from 4 patterns
// up, among its other rules) and uses the reasoner bounds
// reasoner.DefaultConfig sets.
func DefaultConfig() Config {
	return Config{
		WCOJEnabled: true,
		Reasoner:    reasoner.DefaultConfig(),
	}
}

// DB is an open graphon database: a quad store plus the query/update/
// reasoner engines wired against it.
type DB struct {
	store  *internalstore.Store
	query  *executor.Executor
	update *update.Executor
	cfg    Config
}

// Open creates an in-memory-backed DB. Use OpenWithStorage for a
// persistent (badger) backend.
func Open(cfg Config) *DB {
	return OpenWithStorage(memory.New(), cfg)
}

// OpenBadger opens a badger-backed DB rooted at path, per spec.md §6's
// pluggable storage backend requirement.
func OpenBadger(path string, cfg Config) (*DB, error) {
	backend, err := storage.NewBadgerStorage(path)
	if err != nil {
		return nil, err
	}
	return OpenWithStorage(backend, cfg), nil
}

// OpenWithStorage wires a DB on top of an arbitrary pkg/store.Storage
// backend.
func OpenWithStorage(backend store.Storage, cfg Config) *DB {
	s := internalstore.New(backend)

	opt := optimizer.New()
	if !cfg.WCOJEnabled {
		opt = optimizer.WithoutWCOJ()
	}

	q := executor.New(s, opt)
	u := update.New(s, q, cfg.Loader)

	return &DB{store: s, query: q, update: u, cfg: cfg}
}

// Close releases the underlying storage backend.
func (db *DB) Close() error { return db.store.Close() }

// Store exposes the underlying quad store for callers that need
// direct Insert/Remove/Find access outside of SPARQL text.
func (db *DB) Store() *internalstore.Store { return db.store }

// Query parses and executes a SPARQL 1.1 query (SELECT/ASK/CONSTRUCT/
// DESCRIBE), per spec.md §6's `execute`/`execute_construct`/
// `execute_describe`.
func (db *DB) Query(sparql string) (*executor.QueryResult, error) {
	q, err := parser.New(sparql).ParseQuery()
	if err != nil {
		return nil, err
	}
	return db.query.Execute(q)
}

// Update parses and applies a SPARQL 1.1 Update request.
func (db *DB) Update(sparql string) error {
	req, err := parser.New(sparql).ParseUpdate()
	if err != nil {
		return err
	}
	return db.update.Execute(req)
}

// Infer runs the RDFS/OWL-2-RL reasoner to a fixpoint over the
// store's current contents, read from every graph, and, when
// materialize is true, inserts the whole derived set into the store's
// default graph: every inferred triple and every base triple,
// including base triples read from named graphs. Quads the default
// graph already holds are left as they are.
// Mirrors spec.md §6's reasoner `new`/`infer`/`derived`/`stats`
// surface, scoped to "caller asserts base triples, reasoner runs to
// fixpoint, materialized triples become queryable facts" (spec.md §1).
func (db *DB) Infer(materialize bool) (*reasoner.Reasoner, error) {
	quads, err := db.allQuads()
	if err != nil {
		return nil, err
	}
	r := reasoner.New(reasoner.FromQuads(quads), db.cfg.Reasoner)
	if _, err := r.Infer(); err != nil {
		return r, err
	}
	if materialize {
		if _, err := r.Materialize(db.store); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (db *DB) allQuads() ([]*rdf.Quad, error) {
	it, err := db.store.Find(&internalstore.Pattern{GraphAny: true})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

// FileNQuadsLoader is a Loader that treats a LOAD source IRI as a
// local filesystem path and reads it as N-Quads, matching spec.md
// §4.10's "core specifies only the contract" scope — callers wanting
// HTTP(S) fetch semantics supply their own Loader via Config.
func FileNQuadsLoader() update.Loader {
	return func(source *rdf.NamedNode) (rdfio.QuadSource, error) {
		f, err := os.Open(source.IRI)
		if err != nil {
			return nil, errs.Storage(err)
		}
		return &closingQuadSource{NQuadsReader: rdfio.NewNQuadsReader(f), file: f}, nil
	}
}

// closingQuadSource streams N-Quads from an open file, closing it once
// the reader yields io.EOF so callers that only hold a QuadSource
// never leak the underlying os.File.
type closingQuadSource struct {
	*rdfio.NQuadsReader
	file *os.File
}

func (c *closingQuadSource) Next() (*rdf.Quad, error) {
	q, err := c.NQuadsReader.Next()
	if err != nil {
		c.file.Close()
	}
	return q, err
}

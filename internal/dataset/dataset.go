// Package dataset carries SPARQL dataset/graph context: the
// FROM/FROM NAMED clauses that scope which graphs a query's default
// and named-graph patterns see, plus the "current graph" a GRAPH
// clause narrows a subtree to.
//
// Grounded on spec.md §4.12: at most one of {current graph, dataset
// scanning} is active at any scan site. trigo's GraphPlan only ever
// tracks a single active graph with no dataset union semantics, so
// this package has no direct teacher precedent and is built fresh
// from the spec description.
package dataset

import "github.com/graphon-db/graphon/pkg/rdf"

// Dataset names the graphs a query's default-graph and named-graph
// patterns may read, per the SPARQL FROM/FROM NAMED clauses. Both
// nil/empty means "use the store's actual default graph and every
// named graph" (the no-FROM-clause case).
type Dataset struct {
	DefaultGraphs []*rdf.NamedNode
	NamedGraphs   []*rdf.NamedNode
}

// IsEmpty reports whether no FROM/FROM NAMED clause was given.
func (d Dataset) IsEmpty() bool {
	return len(d.DefaultGraphs) == 0 && len(d.NamedGraphs) == 0
}

// Context is the scan-site-scoped graph state the executor threads
// through algebra evaluation: the query's Dataset, plus the current
// graph a GRAPH clause has narrowed to (nil outside any GRAPH clause).
// By construction only one constructor path ever sets CurrentGraph,
// so a subtree is never both dataset-scanning and GRAPH-scoped.
type Context struct {
	Dataset      Dataset
	CurrentGraph *rdf.NamedNode
}

// NewContext returns a root evaluation context scoped to ds with no
// active GRAPH clause.
func NewContext(ds Dataset) Context {
	return Context{Dataset: ds}
}

// WithGraph returns a copy of c scoped to the given named graph,
// suppressing dataset scanning for the returned context's subtree —
// the construction spec.md §4.12 requires for entering GRAPH(iri){...}.
func (c Context) WithGraph(g *rdf.NamedNode) Context {
	return Context{Dataset: c.Dataset, CurrentGraph: g}
}

// InScope reports whether graph g is visible given c: with an active
// CurrentGraph, only that graph is in scope; otherwise every named
// graph in c.Dataset.NamedGraphs is (or, if the dataset is empty, any
// named graph the store has).
func (c Context) InScope(g *rdf.NamedNode) bool {
	if c.CurrentGraph != nil {
		return g != nil && c.CurrentGraph.IRI == g.IRI
	}
	if c.Dataset.IsEmpty() {
		return true
	}
	for _, ng := range c.Dataset.NamedGraphs {
		if g != nil && ng.IRI == g.IRI {
			return true
		}
	}
	return false
}

// DefaultGraphScope reports which graphs a default-graph pattern
// (no GRAPH clause) should scan: the union of c.Dataset.DefaultGraphs
// if any FROM clause was given, else the store's actual default graph
// (represented as nil — the store's own default-graph convention).
func (c Context) DefaultGraphScope() []*rdf.NamedNode {
	if len(c.Dataset.DefaultGraphs) == 0 {
		return nil
	}
	return c.Dataset.DefaultGraphs
}

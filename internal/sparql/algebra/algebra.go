// Package algebra defines the SPARQL 1.1 algebra IR: the tree of
// relational operators, scalar expressions and property paths that the
// parser produces, the optimizer rewrites, and the executor evaluates.
//
// Shaped directly on the teacher's pkg/sparql query-AST conventions
// (node-per-operator with an Accept(Visitor) method) but the concrete
// operator set, builtin-function list and aggregate list are grounded
// on _examples/original_source/crates/sparql/src/algebra.rs — the Rust
// implementation this spec was distilled from — re-expressed as Go
// sum types (one struct per Algebra/Expression/PropertyPath variant)
// rather than Rust enums.
package algebra

import "github.com/graphon-db/graphon/pkg/rdf"

// VarOrTerm is a pattern position: either a bound rdf.Term or a
// *rdf.Variable. nil is invalid.
type VarOrTerm interface{}

// TriplePattern is one line of a basic graph pattern.
type TriplePattern struct {
	Subject, Predicate, Object VarOrTerm
}

// Concrete reports whether every position is a bound term (no
// variables), returning the concrete quad if so.
func (p TriplePattern) Concrete(graph rdf.Term) (*rdf.Quad, bool) {
	s, sok := p.Subject.(rdf.Term)
	pr, pok := p.Predicate.(rdf.Term)
	o, ook := p.Object.(rdf.Term)
	if !sok || !pok || !ook {
		return nil, false
	}
	return rdf.NewQuad(s, pr, o, graph), true
}

// QuadPattern is a TriplePattern scoped to a graph term or variable
// (nil Graph means the default graph, matching rdf.Quad's convention).
type QuadPattern struct {
	TriplePattern
	Graph VarOrTerm
}

// Algebra is the SPARQL algebra tree. Every node type implements it;
// Accept dispatches to the matching Visitor method.
type Algebra interface {
	Accept(v Visitor) error
	algebraNode()
}

// Visitor lets callers (the optimizer, EXPLAIN formatting, static
// analysis) walk an Algebra tree without a type switch at every call
// site.
type Visitor interface {
	VisitBGP(*BGP) error
	VisitJoin(*Join) error
	VisitLeftJoin(*LeftJoin) error
	VisitFilter(*Filter) error
	VisitUnion(*Union) error
	VisitGraph(*Graph) error
	VisitExtend(*Extend) error
	VisitMinus(*Minus) error
	VisitProject(*Project) error
	VisitDistinct(*Distinct) error
	VisitReduced(*Reduced) error
	VisitSlice(*Slice) error
	VisitOrderBy(*OrderBy) error
	VisitGroup(*Group) error
}

// BGP is a Basic Graph Pattern: a conjunction of triple patterns
// evaluated jointly, the unit the optimizer/WCOJ layer reasons about.
type BGP struct{ Patterns []TriplePattern }

// Join is SPARQL algebra Join(left, right): natural join on shared
// variable bindings.
type Join struct{ Left, Right Algebra }

// LeftJoin is SPARQL algebra LeftJoin(left, right, expr): OPTIONAL.
type LeftJoin struct {
	Left, Right Algebra
	Expr        Expression // may be nil (no extra FILTER inside OPTIONAL)
}

// Filter restricts Input to bindings where Expr is effective-true.
type Filter struct {
	Input Algebra
	Expr  Expression
}

// Union is SPARQL algebra Union(left, right).
type Union struct{ Left, Right Algebra }

// Graph scopes Input's pattern matching to a named graph (GRAPH
// clause); Name is a VarOrTerm (bound IRI or a variable ranging over
// the dataset's named graphs).
type Graph struct {
	Name  VarOrTerm
	Input Algebra
}

// Extend binds Expr's value to Var for every row of Input (BIND).
type Extend struct {
	Input Algebra
	Var   *rdf.Variable
	Expr  Expression
}

// Minus is SPARQL algebra Minus(left, right).
type Minus struct{ Left, Right Algebra }

// Project keeps only Vars from Input's bindings (SELECT ?a ?b).
type Project struct {
	Input Algebra
	Vars  []*rdf.Variable
}

// Distinct deduplicates Input's result rows.
type Distinct struct{ Input Algebra }

// Reduced permits (but does not require) deduplication — SPARQL
// REDUCED. Treated identically to Distinct by this executor, which
// REDUCED permits (an engine may always deduplicate fully).
type Reduced struct{ Input Algebra }

// Slice applies OFFSET/LIMIT. Limit < 0 means unlimited.
type Slice struct {
	Input        Algebra
	Offset, Limit int64
}

// OrderBy sorts Input's rows by Conditions in order.
type OrderBy struct {
	Input      Algebra
	Conditions []OrderCondition
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr       Expression
	Descending bool
}

// Group evaluates Aggregates per distinct value of Keys.
type Group struct {
	Input      Algebra
	Keys       []Expression
	Aggregates []AggregateBinding
}

// AggregateBinding binds an aggregate's result to Var.
type AggregateBinding struct {
	Var       *rdf.Variable
	Aggregate Aggregate
}

func (*BGP) algebraNode()      {}
func (*Join) algebraNode()     {}
func (*LeftJoin) algebraNode() {}
func (*Filter) algebraNode()   {}
func (*Union) algebraNode()    {}
func (*Graph) algebraNode()    {}
func (*Extend) algebraNode()   {}
func (*Minus) algebraNode()    {}
func (*Project) algebraNode()  {}
func (*Distinct) algebraNode() {}
func (*Reduced) algebraNode()  {}
func (*Slice) algebraNode()    {}
func (*OrderBy) algebraNode()  {}
func (*Group) algebraNode()    {}

func (n *BGP) Accept(v Visitor) error      { return v.VisitBGP(n) }
func (n *Join) Accept(v Visitor) error     { return v.VisitJoin(n) }
func (n *LeftJoin) Accept(v Visitor) error { return v.VisitLeftJoin(n) }
func (n *Filter) Accept(v Visitor) error   { return v.VisitFilter(n) }
func (n *Union) Accept(v Visitor) error    { return v.VisitUnion(n) }
func (n *Graph) Accept(v Visitor) error    { return v.VisitGraph(n) }
func (n *Extend) Accept(v Visitor) error   { return v.VisitExtend(n) }
func (n *Minus) Accept(v Visitor) error    { return v.VisitMinus(n) }
func (n *Project) Accept(v Visitor) error  { return v.VisitProject(n) }
func (n *Distinct) Accept(v Visitor) error { return v.VisitDistinct(n) }
func (n *Reduced) Accept(v Visitor) error  { return v.VisitReduced(n) }
func (n *Slice) Accept(v Visitor) error    { return v.VisitSlice(n) }
func (n *OrderBy) Accept(v Visitor) error  { return v.VisitOrderBy(n) }
func (n *Group) Accept(v Visitor) error    { return v.VisitGroup(n) }

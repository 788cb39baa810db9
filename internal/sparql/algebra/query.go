package algebra

import "github.com/graphon-db/graphon/pkg/rdf"

// Projection describes a SELECT clause's output shape. Grounded on
// the Rust Projection enum (All/Variables/Expressions).
type ProjectionKind int

const (
	ProjectionAll ProjectionKind = iota
	ProjectionVariables
	ProjectionExpressions
)

// Projection is SELECT *, SELECT ?a ?b, or SELECT (expr AS ?x) ...
type Projection struct {
	Kind        ProjectionKind
	Variables   []*rdf.Variable                // ProjectionVariables
	Expressions []AggregateBinding              // ProjectionExpressions (reuses Var/Expr shape)
}

// GraphTarget names a graph (or set of graphs) an Update operates on.
// Grounded on the Rust GraphTarget enum (Named/Default/Named_/All).
type GraphTargetKind int

const (
	GraphTargetDefault GraphTargetKind = iota
	GraphTargetNamed
	GraphTargetNamedSet // "NAMED" keyword: all named graphs, excluding default
	GraphTargetAll      // "ALL": default plus every named graph
)

type GraphTarget struct {
	Kind GraphTargetKind
	IRI  *rdf.NamedNode // set when Kind == GraphTargetNamed
}

// Dataset is the FROM/FROM NAMED clause: the set of graphs a query's
// pattern matching ranges over.
type Dataset struct {
	Default []*rdf.NamedNode
	Named   []*rdf.NamedNode
}

// QueryForm distinguishes the four SPARQL query forms.
type QueryForm int

const (
	QuerySelect QueryForm = iota
	QueryConstruct
	QueryDescribe
	QueryAsk
)

// Query is a complete SPARQL query: one of SELECT/CONSTRUCT/
// DESCRIBE/ASK, grounded on the Rust Query enum.
type Query struct {
	Form       QueryForm
	Dataset    Dataset
	Pattern    Algebra
	Projection Projection          // SELECT only
	Template   []TriplePattern     // CONSTRUCT only
	Describe   []VarOrTerm         // DESCRIBE only
	Order      []OrderCondition
	Limit      int64 // -1 means unset
	Offset     int64
}

// UpdateKind enumerates the eight SPARQL 1.1 Update operation forms.
type UpdateKind int

const (
	UpdateInsertData UpdateKind = iota
	UpdateDeleteData
	UpdateDeleteInsert
	UpdateDeleteWhere
	UpdateLoad
	UpdateClear
	UpdateCreate
	UpdateDrop
)

// Update is one SPARQL 1.1 Update operation.
type Update struct {
	Kind UpdateKind

	// InsertData / DeleteData / DeleteWhere
	Quads []QuadPattern

	// DeleteInsert
	DeleteTemplate []QuadPattern
	InsertTemplate []QuadPattern
	UsingDataset   Dataset
	Where          Algebra

	// Load
	Source *rdf.NamedNode
	Into   *GraphTarget
	Silent bool

	// Clear / Create / Drop
	Target GraphTarget
}

// UpdateRequest is a sequence of Update operations executed in order,
// per SPARQL 1.1 Update's ";"-separated request shape.
type UpdateRequest struct {
	Operations []Update
}

package algebra

// AggregateKind enumerates the SPARQL 1.1 aggregate functions.
// Grounded on the Rust Aggregate enum (7 variants, each carrying a
// Distinct flag) in original_source's algebra.rs.
type AggregateKind int

const (
	AggCount AggregateKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
	AggSample
	AggGroupConcat
)

// Aggregate is one GROUP BY aggregate expression: COUNT(*), SUM(?x),
// GROUP_CONCAT(?x; SEPARATOR=",") and so on.
type Aggregate struct {
	Kind AggregateKind
	// Expr is nil for COUNT(*); otherwise the expression aggregated.
	Expr      Expression
	Distinct  bool
	Separator string // GROUP_CONCAT only; defaults to " " when empty
}

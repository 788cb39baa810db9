package algebra

import "github.com/graphon-db/graphon/pkg/rdf"

// PropertyPath is a SPARQL 1.1 property path expression. Grounded on
// the Rust PropertyPath enum (8 variants) in original_source's
// algebra.rs.
type PropertyPath interface {
	pathNode()
}

// PathPredicate is a plain IRI used as a path of length exactly 1.
type PathPredicate struct{ IRI *rdf.NamedNode }

// PathInverse is ^path: traverse path in reverse (object to subject).
type PathInverse struct{ Inner PropertyPath }

// PathSequence is path1/path2.
type PathSequence struct{ Left, Right PropertyPath }

// PathAlternative is path1|path2.
type PathAlternative struct{ Left, Right PropertyPath }

// PathZeroOrMore is path* (reflexive-transitive closure).
type PathZeroOrMore struct{ Inner PropertyPath }

// PathOneOrMore is path+ (transitive closure).
type PathOneOrMore struct{ Inner PropertyPath }

// PathZeroOrOne is path? (optional single hop).
type PathZeroOrOne struct{ Inner PropertyPath }

// PathNegatedPropertySet is !(iri1|iri2|^iri3|...): matches any
// predicate not among the (possibly inverted) listed IRIs.
type PathNegatedPropertySet struct {
	Forward  []*rdf.NamedNode
	Inverse  []*rdf.NamedNode
}

func (*PathPredicate) pathNode()           {}
func (*PathInverse) pathNode()             {}
func (*PathSequence) pathNode()            {}
func (*PathAlternative) pathNode()         {}
func (*PathZeroOrMore) pathNode()          {}
func (*PathOneOrMore) pathNode()           {}
func (*PathZeroOrOne) pathNode()           {}
func (*PathNegatedPropertySet) pathNode()  {}

// PathPattern is a triple pattern whose predicate position is a
// property path rather than a single IRI/variable. It is itself an
// Algebra leaf so it can be joined/filtered/optional-ed like a BGP.
type PathPattern struct {
	Subject, Object VarOrTerm
	Path            PropertyPath
}

func (*PathPattern) algebraNode() {}

// Accept is a degenerate Visitor dispatch: PathPattern is evaluated
// directly by the executor's path evaluator rather than via a
// dedicated Visitor method, since property paths are opaque to the
// optimizer's BGP-level rewrites.
func (n *PathPattern) Accept(v Visitor) error { return nil }

package algebra

import "github.com/graphon-db/graphon/pkg/rdf"

// Expression is a SPARQL scalar expression. Grounded on the Rust
// Expression enum (21 variants) in original_source's algebra.rs,
// re-expressed as one Go struct per variant.
type Expression interface {
	exprNode()
}

// TermExpr is a literal constant or bound term appearing in an
// expression position.
type TermExpr struct{ Term rdf.Term }

// VarExpr references a bound variable's value.
type VarExpr struct{ Var *rdf.Variable }

// Or is logical || (short-circuiting per SPARQL error-propagation
// rules: true || error = true).
type Or struct{ Left, Right Expression }

// And is logical && (false && error = false).
type And struct{ Left, Right Expression }

// Equal, NotEqual, Less, Greater, LessOrEqual, GreaterOrEqual are the
// RDF term comparison operators (op:numeric-equal / RDFterm-equal etc,
// resolved per the value's apparent type at evaluation time).
type Equal struct{ Left, Right Expression }
type NotEqual struct{ Left, Right Expression }
type Less struct{ Left, Right Expression }
type Greater struct{ Left, Right Expression }
type LessOrEqual struct{ Left, Right Expression }
type GreaterOrEqual struct{ Left, Right Expression }

// In is the IN / NOT IN expression list test.
type In struct {
	Needle Expression
	Haystack []Expression
	Negated  bool
}

// Add, Subtract, Multiply, Divide are the numeric arithmetic
// operators.
type Add struct{ Left, Right Expression }
type Subtract struct{ Left, Right Expression }
type Multiply struct{ Left, Right Expression }
type Divide struct{ Left, Right Expression }

// UnaryPlus, UnaryMinus, Not are the unary operators.
type UnaryPlus struct{ Inner Expression }
type UnaryMinus struct{ Inner Expression }
type Not struct{ Inner Expression }

// FunctionCall is a call to one of the builtin functions or a
// user/extension IRI-named function.
type FunctionCall struct {
	Function  BuiltinFunction
	Extension *rdf.NamedNode // set when Function == FuncExtension
	Args      []Expression
}

// Bound is the BOUND(?var) test.
type Bound struct{ Var *rdf.Variable }

// If is the IF(cond, then, else) expression.
type If struct{ Cond, Then, Else Expression }

// Coalesce is COALESCE(expr...): the first expression to evaluate
// without error.
type Coalesce struct{ Exprs []Expression }

// Exists / NotExists test whether a graph pattern has any match under
// the current binding (ASK-like subquery). The parser rejects an
// EXISTS pattern whose FILTER or BIND expression is itself EXISTS/NOT
// EXISTS (see the parser's rejectNestedExists for what it detects).
type Exists struct {
	Pattern Algebra
	Negated bool
}

// SameTerm is the sameTerm(a, b) builtin (exact term identity, not
// value equality).
type SameTerm struct{ Left, Right Expression }

// AggregateExpr lets an aggregate function call (COUNT(?x), SUM(?x),
// ...) appear directly in an expression position — specifically in a
// SELECT (aggregate AS ?var) projection item, where the parser cannot
// yet tell whether it sits inside a GROUP BY until the Group node is
// built around the whole pattern.
type AggregateExpr struct{ Aggregate Aggregate }

func (*AggregateExpr) exprNode() {}

func (*TermExpr) exprNode()      {}
func (*VarExpr) exprNode()       {}
func (*Or) exprNode()            {}
func (*And) exprNode()           {}
func (*Equal) exprNode()         {}
func (*NotEqual) exprNode()      {}
func (*Less) exprNode()          {}
func (*Greater) exprNode()       {}
func (*LessOrEqual) exprNode()   {}
func (*GreaterOrEqual) exprNode(){}
func (*In) exprNode()            {}
func (*Add) exprNode()           {}
func (*Subtract) exprNode()      {}
func (*Multiply) exprNode()      {}
func (*Divide) exprNode()        {}
func (*UnaryPlus) exprNode()     {}
func (*UnaryMinus) exprNode()    {}
func (*Not) exprNode()           {}
func (*FunctionCall) exprNode()  {}
func (*Bound) exprNode()         {}
func (*If) exprNode()            {}
func (*Coalesce) exprNode()      {}
func (*Exists) exprNode()        {}
func (*SameTerm) exprNode()      {}

// BuiltinFunction enumerates the SPARQL 1.1 builtin function library.
// Grounded on the Rust BuiltinFunction enum's ~45 variants, grouped by
// category exactly as the original groups them (string / numeric /
// date-time / hash / type-test / other).
type BuiltinFunction int

const (
	FuncExtension BuiltinFunction = iota // IRI-named extension function; see FunctionCall.Extension

	// String functions
	FuncStr
	FuncLang
	FuncLangMatches
	FuncDatatype
	FuncStrlen
	FuncSubstr
	FuncUcase
	FuncLcase
	FuncStrstarts
	FuncStrends
	FuncContains
	FuncStrbefore
	FuncStrafter
	FuncEncodeForURI
	FuncConcat
	FuncReplace
	FuncRegex

	// Numeric functions
	FuncAbs
	FuncRound
	FuncCeil
	FuncFloor
	FuncRand

	// Date/time functions
	FuncNow
	FuncYear
	FuncMonth
	FuncDay
	FuncHours
	FuncMinutes
	FuncSeconds
	FuncTimezone
	FuncTz

	// Hash functions
	FuncMD5
	FuncSHA1
	FuncSHA256
	FuncSHA384
	FuncSHA512

	// Constructor / type-test functions
	FuncUUID
	FuncStrUUID
	FuncIRI
	FuncBNode
	FuncStrDt
	FuncStrLang
	FuncIsIRI
	FuncIsBlank
	FuncIsLiteral
	FuncIsNumeric

	// Other
	FuncIf
	FuncCoalesce
)

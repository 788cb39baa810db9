package executor

import (
	"testing"

	"github.com/graphon-db/graphon/internal/sparql/optimizer"
	"github.com/graphon-db/graphon/internal/sparql/parser"
	"github.com/graphon-db/graphon/internal/storage/memory"
	internalstore "github.com/graphon-db/graphon/internal/store"
	"github.com/graphon-db/graphon/pkg/rdf"
)

func newTestExecutor() *Executor {
	return New(internalstore.New(memory.New()), optimizer.New())
}

func mustQuery(t *testing.T, e *Executor, sparql string) *QueryResult {
	t.Helper()
	q, err := parser.New(sparql).ParseQuery()
	if err != nil {
		t.Fatalf("parse failed: %v\nquery: %s", err, sparql)
	}
	result, err := e.Execute(q)
	if err != nil {
		t.Fatalf("execute failed: %v\nquery: %s", err, sparql)
	}
	return result
}

func insert(t *testing.T, e *Executor, s, p, o rdf.Term, g rdf.Term) {
	t.Helper()
	if _, err := e.store.Insert(rdf.NewQuad(s, p, o, g)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

// TestStarBGPJoin mirrors spec.md §8 scenario S1.
func TestStarBGPJoin(t *testing.T) {
	e := newTestExecutor()
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	age := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age")
	email := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/email")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	charlie := rdf.NewNamedNode("http://example.org/charlie")

	insert(t, e, alice, name, rdf.NewLiteral("Alice"), nil)
	insert(t, e, alice, age, rdf.NewLiteralWithDatatype("30", rdf.XSDInteger), nil)
	insert(t, e, alice, email, rdf.NewLiteral("a@x"), nil)
	insert(t, e, bob, name, rdf.NewLiteral("Bob"), nil)
	insert(t, e, bob, age, rdf.NewLiteralWithDatatype("25", rdf.XSDInteger), nil)
	insert(t, e, bob, email, rdf.NewLiteral("b@x"), nil)
	insert(t, e, charlie, name, rdf.NewLiteral("Charlie"), nil)

	result := mustQuery(t, e, `
		PREFIX foaf: <http://xmlns.com/foaf/0.1/>
		SELECT * WHERE { ?p foaf:name ?n . ?p foaf:age ?a . ?p foaf:email ?e }
	`)
	if len(result.Select.Rows) != 2 {
		t.Fatalf("expected 2 bindings, got %d: %v", len(result.Select.Rows), result.Select.Rows)
	}
	for _, row := range result.Select.Rows {
		if row["n"] == nil || row["a"] == nil || row["e"] == nil {
			t.Errorf("expected n, a, e all bound, got %v", row)
		}
	}
}

// TestOptionalPreservesLeftRows mirrors spec.md §8 scenario S2.
func TestOptionalPreservesLeftRows(t *testing.T) {
	e := newTestExecutor()
	name := rdf.NewNamedNode("http://example.org/name")
	age := rdf.NewNamedNode("http://example.org/age")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")

	insert(t, e, alice, name, rdf.NewLiteral("Alice"), nil)
	insert(t, e, bob, name, rdf.NewLiteral("Bob"), nil)
	insert(t, e, alice, age, rdf.NewLiteralWithDatatype("30", rdf.XSDInteger), nil)

	result := mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT ?n ?a WHERE { ?x ex:name ?n OPTIONAL { ?x ex:age ?a } }
	`)
	if len(result.Select.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(result.Select.Rows), result.Select.Rows)
	}
	var sawBoundAge, sawUnboundAge bool
	for _, row := range result.Select.Rows {
		if row["n"].String() == rdf.NewLiteral("Alice").String() {
			if row["a"] == nil {
				t.Errorf("expected alice's row to have ?a bound")
			}
			sawBoundAge = true
		}
		if row["n"].String() == rdf.NewLiteral("Bob").String() {
			if row["a"] != nil {
				t.Errorf("expected bob's row to have ?a unbound, got %v", row["a"])
			}
			sawUnboundAge = true
		}
	}
	if !sawBoundAge || !sawUnboundAge {
		t.Errorf("expected one row with ?a bound and one with ?a unbound, got %v", result.Select.Rows)
	}
}

// TestMinusRespectsCompatibility mirrors spec.md §8 scenario S3.
func TestMinusRespectsCompatibility(t *testing.T) {
	e := newTestExecutor()
	knows := rdf.NewNamedNode("http://example.org/knows")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	charlie := rdf.NewNamedNode("http://example.org/charlie")

	insert(t, e, alice, knows, bob, nil)
	insert(t, e, bob, knows, charlie, nil)

	result := mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT ?x ?y WHERE { ?x ex:knows ?y MINUS { ?x ex:knows ex:bob } }
	`)
	if len(result.Select.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(result.Select.Rows), result.Select.Rows)
	}
	row := result.Select.Rows[0]
	if row["x"].String() != bob.String() || row["y"].String() != charlie.String() {
		t.Errorf("expected (bob, charlie), got (%v, %v)", row["x"], row["y"])
	}
}

// TestPathClosureWithCycle mirrors spec.md §8 scenario S4.
func TestPathClosureWithCycle(t *testing.T) {
	e := newTestExecutor()
	p := rdf.NewNamedNode("http://example.org/p")
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	c := rdf.NewNamedNode("http://example.org/c")

	insert(t, e, a, p, b, nil)
	insert(t, e, b, p, c, nil)
	insert(t, e, c, p, a, nil)

	result := mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT ?y WHERE { ex:a ex:p* ?y }
	`)
	seen := map[string]bool{}
	for _, row := range result.Select.Rows {
		seen[row["y"].String()] = true
	}
	for _, want := range []*rdf.NamedNode{a, b, c} {
		if !seen[want.String()] {
			t.Errorf("expected %s in the closure, got %v", want, result.Select.Rows)
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected exactly {a, b, c} once each, got %v", result.Select.Rows)
	}
}

// TestFromNamedScoping mirrors spec.md §8 scenario S5: FROM scopes the
// default graph, and a GRAPH clause outside FROM NAMED returns empty.
func TestFromNamedScoping(t *testing.T) {
	e := newTestExecutor()
	name := rdf.NewNamedNode("http://example.org/name")
	alice := rdf.NewNamedNode("http://example.org/alice")
	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")

	insert(t, e, alice, name, rdf.NewLiteral("Alice"), g1)
	insert(t, e, alice, name, rdf.NewLiteral("Alice2"), g2)

	result := mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT ?n FROM <http://example.org/g1> WHERE { ?x ex:name ?n }
	`)
	if len(result.Select.Rows) != 1 || result.Select.Rows[0]["n"].String() != rdf.NewLiteral("Alice").String() {
		t.Fatalf("expected exactly one row bound to Alice, got %v", result.Select.Rows)
	}

	result = mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT ?n FROM NAMED <http://example.org/g1> WHERE { GRAPH <http://example.org/g2> { ?x ex:name ?n } }
	`)
	if len(result.Select.Rows) != 0 {
		t.Fatalf("expected zero rows: g2 is not in FROM NAMED, got %v", result.Select.Rows)
	}
}

// TestImplicitGroupBy mirrors spec.md §8 scenario S8.
func TestImplicitGroupBy(t *testing.T) {
	e := newTestExecutor()
	age := rdf.NewNamedNode("http://example.org/age")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	charlie := rdf.NewNamedNode("http://example.org/charlie")

	insert(t, e, alice, age, rdf.NewLiteralWithDatatype("30", rdf.XSDInteger), nil)
	insert(t, e, bob, age, rdf.NewLiteralWithDatatype("25", rdf.XSDInteger), nil)
	insert(t, e, charlie, age, rdf.NewLiteralWithDatatype("35", rdf.XSDInteger), nil)

	result := mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT (AVG(?a) AS ?m) WHERE { ?p ex:age ?a }
	`)
	if len(result.Select.Rows) != 1 {
		t.Fatalf("expected exactly one aggregate row, got %d: %v", len(result.Select.Rows), result.Select.Rows)
	}
	m := result.Select.Rows[0]["m"]
	if m == nil {
		t.Fatalf("expected ?m bound")
	}
	lit, ok := m.(*rdf.Literal)
	if !ok || lit.Value != "30" {
		t.Errorf("expected AVG(30,25,35) = 30, got %v", m)
	}
}

// TestSumOfIntegersStaysInteger exercises spec.md §4.9's numeric
// aggregate type promotion: SUM over all-integer operands must yield
// an xsd:integer, not an xsd:double.
func TestSumOfIntegersStaysInteger(t *testing.T) {
	e := newTestExecutor()
	age := rdf.NewNamedNode("http://example.org/age")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")

	insert(t, e, alice, age, rdf.NewLiteralWithDatatype("30", rdf.XSDInteger), nil)
	insert(t, e, bob, age, rdf.NewLiteralWithDatatype("25", rdf.XSDInteger), nil)

	result := mustQuery(t, e, `
		PREFIX ex: <http://example.org/>
		SELECT (SUM(?a) AS ?s) WHERE { ?p ex:age ?a }
	`)
	lit, ok := result.Select.Rows[0]["s"].(*rdf.Literal)
	if !ok {
		t.Fatalf("expected a literal, got %v", result.Select.Rows[0]["s"])
	}
	if lit.Datatype.IRI != rdf.XSDInteger.IRI {
		t.Errorf("expected SUM of integers to stay xsd:integer, got %s (%s)", lit.Value, lit.Datatype.IRI)
	}
	if lit.Value != "55" {
		t.Errorf("expected SUM = 55, got %s", lit.Value)
	}
}

// TestRepeatedVariablePatternMatchesNestedLoopSemantics guards the
// WCOJ/nested-loop equivalence invariant (spec.md §8 invariant 5) for
// a self-join pattern: ?x foo ?x must only match quads whose subject
// equals its object, under both WCOJ and forced nested-loop.
func TestRepeatedVariablePatternMatchesNestedLoopSemantics(t *testing.T) {
	foo := rdf.NewNamedNode("http://example.org/foo")
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")

	build := func(opt *optimizer.Optimizer) *Executor {
		e := New(internalstore.New(memory.New()), opt)
		insert(t, e, a, foo, a, nil)
		insert(t, e, a, foo, b, nil)
		insert(t, e, b, foo, b, nil)
		return e
	}

	query := `
		PREFIX ex: <http://example.org/>
		SELECT ?x WHERE { ?x ex:foo ?x }
	`
	wcoj := mustQuery(t, build(optimizer.New()), query)
	nested := mustQuery(t, build(optimizer.WithoutWCOJ()), query)

	if len(wcoj.Select.Rows) != 2 {
		t.Fatalf("expected 2 rows (a, b) for the self-join, got %d: %v", len(wcoj.Select.Rows), wcoj.Select.Rows)
	}
	if len(wcoj.Select.Rows) != len(nested.Select.Rows) {
		t.Errorf("expected WCOJ and nested-loop paths to agree, got %d vs %d", len(wcoj.Select.Rows), len(nested.Select.Rows))
	}
}

package dataset

import (
	"testing"

	"github.com/graphon-db/graphon/pkg/rdf"
)

func TestInScopeNoDatasetAllowsAnyGraph(t *testing.T) {
	ctx := NewContext(Dataset{})
	if !ctx.InScope(rdf.NewNamedNode("http://example.org/g1")) {
		t.Error("expected any graph to be in scope when no FROM NAMED was given")
	}
}

// TestInScopeRestrictsToFromNamed mirrors spec.md §8 scenario S5: a
// GRAPH clause referencing an IRI absent from FROM NAMED must be out
// of scope.
func TestInScopeRestrictsToFromNamed(t *testing.T) {
	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")
	ctx := NewContext(Dataset{NamedGraphs: []*rdf.NamedNode{g1}})

	if !ctx.InScope(g1) {
		t.Error("expected g1 to be in scope: it is in FROM NAMED")
	}
	if ctx.InScope(g2) {
		t.Error("expected g2 to be out of scope: it is absent from FROM NAMED")
	}
}

func TestInScopeWithActiveGraphRestrictsToIt(t *testing.T) {
	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")
	ctx := NewContext(Dataset{NamedGraphs: []*rdf.NamedNode{g1, g2}}).WithGraph(g1)

	if !ctx.InScope(g1) {
		t.Error("expected the active graph to be in scope")
	}
	if ctx.InScope(g2) {
		t.Error("expected a non-active graph to be out of scope once a GRAPH clause narrowed to g1")
	}
}

func TestDefaultGraphScope(t *testing.T) {
	empty := NewContext(Dataset{})
	if got := empty.DefaultGraphScope(); got != nil {
		t.Errorf("expected nil default graph scope with no FROM clause, got %v", got)
	}

	g1 := rdf.NewNamedNode("http://example.org/g1")
	withFrom := NewContext(Dataset{DefaultGraphs: []*rdf.NamedNode{g1}})
	scope := withFrom.DefaultGraphScope()
	if len(scope) != 1 || scope[0] != g1 {
		t.Errorf("expected default graph scope [g1], got %v", scope)
	}
}

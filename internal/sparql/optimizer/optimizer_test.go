package optimizer

import (
	"testing"

	"github.com/graphon-db/graphon/internal/sparql/algebra"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// TestStarBGPPicksWCOJ mirrors spec.md §8 scenario S1: three patterns
// sharing subject variable ?p with different predicates must be
// recognized as a star shape and routed to WCOJ.
func TestStarBGPPicksWCOJ(t *testing.T) {
	p := rdf.NewVariable("p")
	patterns := []algebra.TriplePattern{
		{Subject: p, Predicate: rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"), Object: rdf.NewVariable("n")},
		{Subject: p, Predicate: rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age"), Object: rdf.NewVariable("a")},
		{Subject: p, Predicate: rdf.NewNamedNode("http://xmlns.com/foaf/0.1/email"), Object: rdf.NewVariable("e")},
	}

	plan := New().Optimize(patterns)
	if !plan.Analysis.IsStar {
		t.Errorf("expected star-shaped analysis, got %+v", plan.Analysis)
	}
	if plan.Strategy != StrategyWCOJ {
		t.Errorf("expected StrategyWCOJ for a star BGP, got %v", plan.Strategy)
	}
}

func TestSinglePatternPicksNestedLoop(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{Subject: rdf.NewVariable("s"), Predicate: rdf.NewNamedNode("http://example.org/p"), Object: rdf.NewVariable("o")},
	}
	plan := New().Optimize(patterns)
	if plan.Strategy != StrategyNestedLoop {
		t.Errorf("expected StrategyNestedLoop for a single pattern, got %v", plan.Strategy)
	}
}

func TestWithoutWCOJAlwaysNestedLoop(t *testing.T) {
	p := rdf.NewVariable("p")
	patterns := []algebra.TriplePattern{
		{Subject: p, Predicate: rdf.NewNamedNode("http://example.org/name"), Object: rdf.NewVariable("n")},
		{Subject: p, Predicate: rdf.NewNamedNode("http://example.org/age"), Object: rdf.NewVariable("a")},
		{Subject: p, Predicate: rdf.NewNamedNode("http://example.org/email"), Object: rdf.NewVariable("e")},
	}
	plan := WithoutWCOJ().Optimize(patterns)
	if plan.Strategy != StrategyNestedLoop {
		t.Errorf("expected WithoutWCOJ to force nested loop, got %v", plan.Strategy)
	}
}

package reasoner

import (
	"testing"

	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/pkg/rdf"
)

func hasFact(facts []Fact, s, p, o rdf.Term) bool {
	for _, f := range facts {
		if f.Subject.Equals(s) && f.Predicate.Equals(p) && f.Object.Equals(o) {
			return true
		}
	}
	return false
}

// TestRDFSSubClassOfChain mirrors spec.md's worked example: Cat
// subClassOf Mammal subClassOf Animal, tom type Cat, expecting tom to
// be inferred as Mammal, Animal, and rdfs:Resource.
func TestRDFSSubClassOfChain(t *testing.T) {
	cat := rdf.NewNamedNode("http://ex.org/Cat")
	mammal := rdf.NewNamedNode("http://ex.org/Mammal")
	animal := rdf.NewNamedNode("http://ex.org/Animal")
	tom := rdf.NewNamedNode("http://ex.org/tom")

	base := []Fact{
		{Subject: cat, Predicate: rdf.RDFSSubClassOf, Object: mammal},
		{Subject: mammal, Predicate: rdf.RDFSSubClassOf, Object: animal},
		{Subject: tom, Predicate: rdf.RDFType, Object: cat},
	}

	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	derived := r.Derived()
	for _, want := range []rdf.Term{cat, mammal, animal, rdf.RDFSResource} {
		if !hasFact(derived, tom, rdf.RDFType, want) {
			t.Errorf("expected tom rdf:type %s to be derived", want)
		}
	}
}

func TestRDFSSubPropertyOfImplication(t *testing.T) {
	hasParent := rdf.NewNamedNode("http://ex.org/hasParent")
	hasAncestor := rdf.NewNamedNode("http://ex.org/hasAncestor")
	alice := rdf.NewNamedNode("http://ex.org/alice")
	bob := rdf.NewNamedNode("http://ex.org/bob")

	base := []Fact{
		{Subject: hasParent, Predicate: rdf.RDFSSubPropertyOf, Object: hasAncestor},
		{Subject: alice, Predicate: hasParent, Object: bob},
	}

	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if !hasFact(r.Derived(), alice, hasAncestor, bob) {
		t.Error("expected alice hasAncestor bob to be derived via rdfs7")
	}
}

func TestTransitivePropertyClosure(t *testing.T) {
	ancestor := rdf.NewNamedNode("http://ex.org/ancestorOf")
	a := rdf.NewNamedNode("http://ex.org/a")
	b := rdf.NewNamedNode("http://ex.org/b")
	c := rdf.NewNamedNode("http://ex.org/c")

	base := []Fact{
		{Subject: ancestor, Predicate: rdf.RDFType, Object: rdf.OWLTransitiveProperty},
		{Subject: a, Predicate: ancestor, Object: b},
		{Subject: b, Predicate: ancestor, Object: c},
	}

	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if !hasFact(r.Derived(), a, ancestor, c) {
		t.Error("expected a ancestorOf c to be derived via prp-trp")
	}
}

func TestSymmetricProperty(t *testing.T) {
	sibling := rdf.NewNamedNode("http://ex.org/sibling")
	alice := rdf.NewNamedNode("http://ex.org/alice")
	bob := rdf.NewNamedNode("http://ex.org/bob")

	base := []Fact{
		{Subject: sibling, Predicate: rdf.RDFType, Object: rdf.OWLSymmetricProperty},
		{Subject: alice, Predicate: sibling, Object: bob},
	}

	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if !hasFact(r.Derived(), bob, sibling, alice) {
		t.Error("expected bob sibling alice to be derived via prp-symp")
	}
}

func TestFunctionalPropertyProducesSameAs(t *testing.T) {
	hasMother := rdf.NewNamedNode("http://ex.org/hasMother")
	x := rdf.NewNamedNode("http://ex.org/x")
	m1 := rdf.NewNamedNode("http://ex.org/m1")
	m2 := rdf.NewNamedNode("http://ex.org/m2")

	base := []Fact{
		{Subject: hasMother, Predicate: rdf.RDFType, Object: rdf.OWLFunctionalProperty},
		{Subject: x, Predicate: hasMother, Object: m1},
		{Subject: x, Predicate: hasMother, Object: m2},
	}

	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if !hasFact(r.Derived(), m1, rdf.OWLSameAs, m2) && !hasFact(r.Derived(), m2, rdf.OWLSameAs, m1) {
		t.Error("expected m1 owl:sameAs m2 (or reverse) to be derived via prp-fp")
	}
}

func TestIrreflexivePropertyIsInconsistent(t *testing.T) {
	differentFrom := rdf.NewNamedNode("http://ex.org/marriedTo")
	x := rdf.NewNamedNode("http://ex.org/x")

	base := []Fact{
		{Subject: differentFrom, Predicate: rdf.RDFType, Object: rdf.OWLIrreflexiveProperty},
		{Subject: x, Predicate: differentFrom, Object: x},
	}

	r := New(base, DefaultConfig())
	_, err := r.Infer()
	if !errs.Is(err, errs.KindInconsistency) {
		t.Fatalf("expected inconsistency error, got %v", err)
	}
}

func TestOwlNothingInstanceIsInconsistent(t *testing.T) {
	x := rdf.NewNamedNode("http://ex.org/x")
	base := []Fact{
		{Subject: x, Predicate: rdf.RDFType, Object: rdf.OWLNothing},
	}

	r := New(base, DefaultConfig())
	_, err := r.Infer()
	if !errs.Is(err, errs.KindInconsistency) {
		t.Fatalf("expected inconsistency error, got %v", err)
	}
}

// TestIdempotence covers spec.md §8 invariant 8: running inference
// twice yields the same derived set.
func TestIdempotence(t *testing.T) {
	cat := rdf.NewNamedNode("http://ex.org/Cat")
	mammal := rdf.NewNamedNode("http://ex.org/Mammal")
	tom := rdf.NewNamedNode("http://ex.org/tom")
	base := []Fact{
		{Subject: cat, Predicate: rdf.RDFSSubClassOf, Object: mammal},
		{Subject: tom, Predicate: rdf.RDFType, Object: cat},
	}

	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("first Infer failed: %v", err)
	}
	first := r.Derived()

	if _, err := r.Infer(); err != nil {
		t.Fatalf("second Infer failed: %v", err)
	}
	second := r.Derived()

	if len(first) != len(second) {
		t.Fatalf("expected idempotent derived set, got %d then %d facts", len(first), len(second))
	}
}

// TestMonotonicity covers spec.md §8 invariant 7: adding a base triple
// never removes a previously derived triple.
func TestMonotonicity(t *testing.T) {
	cat := rdf.NewNamedNode("http://ex.org/Cat")
	mammal := rdf.NewNamedNode("http://ex.org/Mammal")
	tom := rdf.NewNamedNode("http://ex.org/tom")
	jerry := rdf.NewNamedNode("http://ex.org/jerry")

	base := []Fact{
		{Subject: cat, Predicate: rdf.RDFSSubClassOf, Object: mammal},
		{Subject: tom, Predicate: rdf.RDFType, Object: cat},
	}
	r := New(base, DefaultConfig())
	if _, err := r.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	before := r.Derived()

	r.AddBase(Fact{Subject: jerry, Predicate: rdf.RDFType, Object: cat})
	if _, err := r.Infer(); err != nil {
		t.Fatalf("second Infer failed: %v", err)
	}
	after := r.Derived()

	for _, f := range before {
		if !hasFact(after, f.Subject, f.Predicate, f.Object) {
			t.Errorf("monotonicity violated: %v missing after AddBase", f)
		}
	}
}

func TestResourceLimitMaxDepth(t *testing.T) {
	// A subPropertyOf chain long enough that a max_depth of 1 cannot
	// reach fixpoint in a single rule pass.
	p1 := rdf.NewNamedNode("http://ex.org/p1")
	p2 := rdf.NewNamedNode("http://ex.org/p2")
	p3 := rdf.NewNamedNode("http://ex.org/p3")
	x := rdf.NewNamedNode("http://ex.org/x")
	y := rdf.NewNamedNode("http://ex.org/y")

	base := []Fact{
		{Subject: p1, Predicate: rdf.RDFSSubPropertyOf, Object: p2},
		{Subject: p2, Predicate: rdf.RDFSSubPropertyOf, Object: p3},
		{Subject: x, Predicate: p1, Object: y},
	}

	cfg := DefaultConfig()
	cfg.MaxDepth = 1
	r := New(base, cfg)
	_, err := r.Infer()
	if !errs.Is(err, errs.KindResourceLimit) {
		t.Fatalf("expected resource_limit error, got %v", err)
	}
}

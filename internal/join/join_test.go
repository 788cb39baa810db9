package join

import (
	"sort"
	"testing"

	"github.com/graphon-db/graphon/internal/storage/memory"
	internalstore "github.com/graphon-db/graphon/internal/store"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// TestLeapfrogJoinStarQuery mirrors spec.md §8 scenario S1: a star BGP
// over name/age/email sharing subject ?p must return exactly the
// entities bound on every one of the three relations.
func TestLeapfrogJoinStarQuery(t *testing.T) {
	s := internalstore.New(memory.New())

	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	age := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age")
	email := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/email")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	charlie := rdf.NewNamedNode("http://example.org/charlie")

	quads := []*rdf.Quad{
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), nil),
		rdf.NewQuad(alice, age, rdf.NewLiteralWithDatatype("30", rdf.XSDInteger), nil),
		rdf.NewQuad(alice, email, rdf.NewLiteral("a@x"), nil),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), nil),
		rdf.NewQuad(bob, age, rdf.NewLiteralWithDatatype("25", rdf.XSDInteger), nil),
		rdf.NewQuad(bob, email, rdf.NewLiteral("b@x"), nil),
		// charlie only has a name: must be excluded from the join.
		rdf.NewQuad(charlie, name, rdf.NewLiteral("Charlie"), nil),
	}
	for _, q := range quads {
		if _, err := s.Insert(q); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	levels := []LevelSpec{
		{Variable: "p", Relations: []LevelTrie{
			{Pattern: internalstore.Pattern{Predicate: name}, VarPositions: map[Position]string{PositionSubject: "p"}, Position: PositionSubject},
			{Pattern: internalstore.Pattern{Predicate: age}, VarPositions: map[Position]string{PositionSubject: "p"}, Position: PositionSubject},
			{Pattern: internalstore.Pattern{Predicate: email}, VarPositions: map[Position]string{PositionSubject: "p"}, Position: PositionSubject},
		}},
		{Variable: "n", Relations: []LevelTrie{
			{Pattern: internalstore.Pattern{Predicate: name}, VarPositions: map[Position]string{PositionSubject: "p", PositionObject: "n"}, Position: PositionObject},
		}},
		{Variable: "a", Relations: []LevelTrie{
			{Pattern: internalstore.Pattern{Predicate: age}, VarPositions: map[Position]string{PositionSubject: "p", PositionObject: "a"}, Position: PositionObject},
		}},
		{Variable: "e", Relations: []LevelTrie{
			{Pattern: internalstore.Pattern{Predicate: email}, VarPositions: map[Position]string{PositionSubject: "p", PositionObject: "e"}, Position: PositionObject},
		}},
	}

	lj := NewLeapfrogJoin(s, levels)
	solutions, err := lj.Execute()
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(solutions) != 2 {
		t.Fatalf("expected 2 solutions (alice, bob), got %d: %v", len(solutions), solutions)
	}

	var subjects []string
	for _, sol := range solutions {
		subjects = append(subjects, sol["p"].String())
		if sol["n"] == nil || sol["a"] == nil || sol["e"] == nil {
			t.Errorf("expected n, a, e all bound, got %v", sol)
		}
	}
	sort.Strings(subjects)
	if subjects[0] != alice.String() || subjects[1] != bob.String() {
		t.Errorf("expected alice and bob, got %v", subjects)
	}
}

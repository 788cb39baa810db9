package reasoner

import "github.com/graphon-db/graphon/pkg/rdf"

// rdfsDatatypes lists the XSD datatypes rdfs1 recognizes as literal
// typing evidence, matching original_source/crates/reasoning/src/
// rdfs.rs's apply_rdfs1 hardcoded list exactly.
var rdfsDatatypes = []*rdf.NamedNode{
	rdf.XSDString, rdf.XSDInteger, rdf.XSDDecimal, rdf.XSDDouble,
	rdf.XSDFloat, rdf.XSDBoolean, rdf.XSDDateTime, rdf.XSDDate, rdf.XSDTime,
}

// rdfsRules returns the 13 RDFS entailment rules, grounded one-for-one
// on rdfs.rs's apply_rdfs1..apply_rdfs13.
func (r *Reasoner) rdfsRules() []rule {
	return []rule{
		{"rdfs1", rdfs1},
		{"rdfs2", rdfs2},
		{"rdfs3", rdfs3},
		{"rdfs4", rdfs4},
		{"rdfs5", rdfs5},
		{"rdfs6", rdfs6},
		{"rdfs7", rdfs7},
		{"rdfs8", rdfs8},
		{"rdfs9", rdfs9},
		{"rdfs10", rdfs10},
		{"rdfs11", rdfs11},
		{"rdfs12", rdfs12},
		{"rdfs13", rdfs13},
	}
}

// rdfs1: every literal with a recognized XSD datatype is an instance
// of that datatype class.
func rdfs1(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.derived {
		lit, ok := f.Object.(*rdf.Literal)
		if !ok || lit.Datatype == nil {
			continue
		}
		for _, dt := range rdfsDatatypes {
			if lit.Datatype.Equals(dt) {
				out = append(out, Fact{Subject: lit, Predicate: rdf.RDFType, Object: dt})
				break
			}
		}
	}
	return out, nil
}

// rdfs2: p rdfs:domain c, x p y => x rdf:type c.
func rdfs2(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, dom := range r.findPattern(nil, rdf.RDFSDomain, nil) {
		for _, use := range r.findPattern(nil, dom.Subject, nil) {
			out = append(out, Fact{Subject: use.Subject, Predicate: rdf.RDFType, Object: dom.Object})
		}
	}
	return out, nil
}

// rdfs3: p rdfs:range c, x p y => y rdf:type c (skipped when y is a
// literal — range typing only applies to resource-valued objects).
func rdfs3(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, rng := range r.findPattern(nil, rdf.RDFSRange, nil) {
		for _, use := range r.findPattern(nil, rng.Subject, nil) {
			if _, isLiteral := use.Object.(*rdf.Literal); isLiteral {
				continue
			}
			out = append(out, Fact{Subject: use.Object, Predicate: rdf.RDFType, Object: rng.Object})
		}
	}
	return out, nil
}

// rdfs4: every subject and every non-literal object of any triple is
// an rdfs:Resource.
func rdfs4(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.derived {
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFType, Object: rdf.RDFSResource})
		if _, isLiteral := f.Object.(*rdf.Literal); !isLiteral {
			out = append(out, Fact{Subject: f.Object, Predicate: rdf.RDFType, Object: rdf.RDFSResource})
		}
	}
	return out, nil
}

// rdfs5: rdfs:subPropertyOf is transitive.
func rdfs5(r *Reasoner) ([]Fact, error) {
	var out []Fact
	hierarchy := r.adjacency(rdf.RDFSSubPropertyOf)
	for subj := range hierarchy {
		for _, reached := range r.closures.closure(r.closureKey("rdfs5", rdf.RDFSSubPropertyOf), hierarchy, subj) {
			if reached == subj {
				continue
			}
			out = append(out, Fact{Subject: r.term(subj), Predicate: rdf.RDFSSubPropertyOf, Object: r.term(reached)})
		}
	}
	return out, nil
}

// rdfs6: every property is a sub-property of itself.
func rdfs6(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.findPattern(nil, rdf.RDFType, rdf.RDFProperty) {
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFSSubPropertyOf, Object: f.Subject})
	}
	return out, nil
}

// rdfs7: p1 rdfs:subPropertyOf p2, x p1 y => x p2 y.
func rdfs7(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, sub := range r.findPattern(nil, rdf.RDFSSubPropertyOf, nil) {
		for _, use := range r.findPattern(nil, sub.Subject, nil) {
			out = append(out, Fact{Subject: use.Subject, Predicate: sub.Object, Object: use.Object})
		}
	}
	return out, nil
}

// rdfs8: every class is a subclass of rdfs:Resource.
func rdfs8(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.findPattern(nil, rdf.RDFType, rdf.RDFSClass) {
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFSSubClassOf, Object: rdf.RDFSResource})
	}
	return out, nil
}

// rdfs9: c1 rdfs:subClassOf c2, x rdf:type c1 => x rdf:type c2.
func rdfs9(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, sc := range r.findPattern(nil, rdf.RDFSSubClassOf, nil) {
		for _, inst := range r.findPattern(nil, rdf.RDFType, sc.Subject) {
			out = append(out, Fact{Subject: inst.Subject, Predicate: rdf.RDFType, Object: sc.Object})
		}
	}
	return out, nil
}

// rdfs10: every class is a subclass of itself.
func rdfs10(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.findPattern(nil, rdf.RDFType, rdf.RDFSClass) {
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFSSubClassOf, Object: f.Subject})
	}
	return out, nil
}

// rdfs11: rdfs:subClassOf is transitive.
func rdfs11(r *Reasoner) ([]Fact, error) {
	var out []Fact
	hierarchy := r.adjacency(rdf.RDFSSubClassOf)
	for subj := range hierarchy {
		for _, reached := range r.closures.closure(r.closureKey("rdfs11", rdf.RDFSSubClassOf), hierarchy, subj) {
			if reached == subj {
				continue
			}
			out = append(out, Fact{Subject: r.term(subj), Predicate: rdf.RDFSSubClassOf, Object: r.term(reached)})
		}
	}
	return out, nil
}

// rdfs12: a container-membership property implies rdfs:subPropertyOf
// rdfs:member.
func rdfs12(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.findPattern(nil, rdf.RDFType, rdf.RDFSContainerMembershipProperty) {
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFSSubPropertyOf, Object: rdf.RDFSMember})
	}
	return out, nil
}

// rdfs13: a datatype is a subclass of rdfs:Literal.
func rdfs13(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, f := range r.findPattern(nil, rdf.RDFType, rdf.RDFSDatatype) {
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFSSubClassOf, Object: rdf.RDFSLiteral})
	}
	return out, nil
}

// adjacency builds an IRI-string adjacency map over every derived
// triple using predicate, for the BFS closure helper in transitive.go.
func (r *Reasoner) adjacency(predicate *rdf.NamedNode) map[string][]string {
	graph := make(map[string][]string)
	for _, f := range r.findPattern(nil, predicate, nil) {
		s := f.Subject.String()
		graph[s] = append(graph[s], f.Object.String())
	}
	return graph
}

func (r *Reasoner) closureKey(rule string, predicate *rdf.NamedNode) string {
	return rule + "|" + predicate.IRI
}

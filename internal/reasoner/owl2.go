package reasoner

import (
	"fmt"

	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// owl2Rules returns the OWL-2-RL rule subset this reasoner
// implements, grounded one-for-one on original_source/crates/
// reasoning/src/owl2.rs's apply_prp_*/apply_cls_*/apply_cax_* methods.
// Eight rules are registered as named no-op stubs below: prp-spo2,
// prp-pdw, prp-key, prp-npa1/2, cls-nothing2, cax-dw and cax-adc. The
// cls-int/uni/com/svf/avf/hv/maxc/maxqc/oo rules and the scm-* schema
// rules are not registered at all.
func (r *Reasoner) owl2Rules() []rule {
	return []rule{
		{"prp-dom", prpDom},
		{"prp-rng", prpRng},
		{"prp-fp", prpFP},
		{"prp-ifp", prpIFP},
		{"prp-irp", prpIrp},
		{"prp-symp", prpSymp},
		{"prp-asyp", prpAsyp},
		{"prp-trp", prpTrp},
		{"prp-spo1", prpSpo1},
		{"prp-eqp1", prpEqp1},
		{"prp-eqp2", prpEqp2},
		{"prp-inv1", prpInv1},
		{"prp-inv2", prpInv2},
		{"cls-thing", clsThing},
		{"cls-nothing1", clsNothing1},
		{"cax-sco", caxSco},
		{"cax-eqc1", caxEqc1},
		{"cax-eqc2", caxEqc2},
		{"prp-spo2", noOpRule},
		{"prp-pdw", noOpRule},
		{"prp-key", noOpRule},
		{"prp-npa1", noOpRule},
		{"prp-npa2", noOpRule},
		{"cls-nothing2", noOpRule},
		{"cax-dw", noOpRule},
		{"cax-adc", noOpRule},
	}
}

// noOpRule backs every rule that requires input this reasoner has no
// way to obtain from triple patterns alone (owl:propertyChainAxiom
// list parsing for prp-spo2, cardinality/hasValue restriction classes
// for the cls-* family, negative property assertions for prp-npa*).
// Named per spec.md's "schema-level rules that require input beyond
// triple patterns... are intentionally stubs" (§10 Non-goals).
func noOpRule(r *Reasoner) ([]Fact, error) { return nil, nil }

// prp-dom: p rdfs:domain c, x p y => x rdf:type c.
func prpDom(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, dom := range r.findPattern(nil, rdf.RDFSDomain, nil) {
		for _, use := range r.findPattern(nil, dom.Subject, nil) {
			out = append(out, Fact{Subject: use.Subject, Predicate: rdf.RDFType, Object: dom.Object})
		}
	}
	return out, nil
}

// prp-rng: p rdfs:range c, x p y => y rdf:type c.
func prpRng(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, rng := range r.findPattern(nil, rdf.RDFSRange, nil) {
		for _, use := range r.findPattern(nil, rng.Subject, nil) {
			out = append(out, Fact{Subject: use.Object, Predicate: rdf.RDFType, Object: rng.Object})
		}
	}
	return out, nil
}

// prp-fp: p rdf:type owl:FunctionalProperty, x p y1, x p y2 => y1
// owl:sameAs y2, for every pair sharing a subject.
func prpFP(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, fp := range r.findPattern(nil, rdf.RDFType, rdf.OWLFunctionalProperty) {
		bySubject := make(map[string][]Fact)
		for _, use := range r.findPattern(nil, fp.Subject, nil) {
			bySubject[use.Subject.String()] = append(bySubject[use.Subject.String()], use)
		}
		for _, uses := range bySubject {
			out = append(out, sameAsPairs(uses, func(f Fact) rdf.Term { return f.Object })...)
		}
	}
	return out, nil
}

// prp-ifp: p rdf:type owl:InverseFunctionalProperty, x1 p y, x2 p y
// => x1 owl:sameAs x2, for every pair sharing an object.
func prpIFP(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, ifp := range r.findPattern(nil, rdf.RDFType, rdf.OWLInverseFunctionalProperty) {
		byObject := make(map[string][]Fact)
		for _, use := range r.findPattern(nil, ifp.Subject, nil) {
			byObject[use.Object.String()] = append(byObject[use.Object.String()], use)
		}
		for _, uses := range byObject {
			out = append(out, sameAsPairs(uses, func(f Fact) rdf.Term { return f.Subject })...)
		}
	}
	return out, nil
}

func sameAsPairs(uses []Fact, pick func(Fact) rdf.Term) []Fact {
	var out []Fact
	for i := 0; i < len(uses); i++ {
		for j := i + 1; j < len(uses); j++ {
			a, b := pick(uses[i]), pick(uses[j])
			if a.Equals(b) {
				continue
			}
			out = append(out, Fact{Subject: a, Predicate: rdf.OWLSameAs, Object: b})
		}
	}
	return out
}

// prp-irp: p rdf:type owl:IrreflexiveProperty, x p x => Inconsistency.
func prpIrp(r *Reasoner) ([]Fact, error) {
	for _, irp := range r.findPattern(nil, rdf.RDFType, rdf.OWLIrreflexiveProperty) {
		for _, use := range r.findPattern(nil, irp.Subject, nil) {
			if use.Subject.Equals(use.Object) {
				return nil, errs.Inconsistency(fmt.Sprintf("irreflexive property %s used reflexively on %s", irp.Subject, use.Subject))
			}
		}
	}
	return nil, nil
}

// prp-symp: p rdf:type owl:SymmetricProperty, x p y => y p x.
func prpSymp(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, sym := range r.findPattern(nil, rdf.RDFType, rdf.OWLSymmetricProperty) {
		for _, use := range r.findPattern(nil, sym.Subject, nil) {
			out = append(out, Fact{Subject: use.Object, Predicate: use.Predicate, Object: use.Subject})
		}
	}
	return out, nil
}

// prp-asyp: p rdf:type owl:AsymmetricProperty, x p y AND y p x =>
// Inconsistency.
func prpAsyp(r *Reasoner) ([]Fact, error) {
	for _, asym := range r.findPattern(nil, rdf.RDFType, rdf.OWLAsymmetricProperty) {
		uses := r.findPattern(nil, asym.Subject, nil)
		for _, a := range uses {
			for _, b := range uses {
				if a.Subject.Equals(b.Object) && a.Object.Equals(b.Subject) && !a.Subject.Equals(a.Object) {
					return nil, errs.Inconsistency(fmt.Sprintf("asymmetric property %s holds in both directions between %s and %s", asym.Subject, a.Subject, a.Object))
				}
			}
		}
	}
	return nil, nil
}

// prp-trp: p rdf:type owl:TransitiveProperty => p's extension is its
// own transitive closure, computed per-subject via the shared BFS
// closure cache.
func prpTrp(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, trans := range r.findPattern(nil, rdf.RDFType, rdf.OWLTransitiveProperty) {
		p, ok := trans.Subject.(*rdf.NamedNode)
		if !ok {
			continue
		}
		adjacency := r.adjacency(p)
		key := r.closureKey("prp-trp", p)
		for subj := range adjacency {
			for _, reached := range r.closures.closure(key, adjacency, subj) {
				if reached == subj {
					continue
				}
				out = append(out, Fact{Subject: r.term(subj), Predicate: p, Object: r.term(reached)})
			}
		}
	}
	return out, nil
}

// prp-spo1: p1 rdfs:subPropertyOf p2, x p1 y => x p2 y.
func prpSpo1(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, sub := range r.findPattern(nil, rdf.RDFSSubPropertyOf, nil) {
		for _, use := range r.findPattern(nil, sub.Subject, nil) {
			out = append(out, Fact{Subject: use.Subject, Predicate: sub.Object, Object: use.Object})
		}
	}
	return out, nil
}

// prp-eqp1/2: p1 owl:equivalentProperty p2 implies the same triples
// hold under either property name, in both directions.
func prpEqp1(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, eq := range r.findPattern(nil, rdf.OWLEquivalentProperty, nil) {
		for _, use := range r.findPattern(nil, eq.Subject, nil) {
			out = append(out, Fact{Subject: use.Subject, Predicate: eq.Object, Object: use.Object})
		}
	}
	return out, nil
}

func prpEqp2(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, eq := range r.findPattern(nil, rdf.OWLEquivalentProperty, nil) {
		for _, use := range r.findPattern(nil, eq.Object, nil) {
			out = append(out, Fact{Subject: use.Subject, Predicate: eq.Subject, Object: use.Object})
		}
	}
	return out, nil
}

// prp-inv1/2: p1 owl:inverseOf p2, x p1 y => y p2 x (and symmetric).
func prpInv1(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, inv := range r.findPattern(nil, rdf.OWLInverseOf, nil) {
		for _, use := range r.findPattern(nil, inv.Subject, nil) {
			out = append(out, Fact{Subject: use.Object, Predicate: inv.Object, Object: use.Subject})
		}
	}
	return out, nil
}

func prpInv2(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, inv := range r.findPattern(nil, rdf.OWLInverseOf, nil) {
		for _, use := range r.findPattern(nil, inv.Object, nil) {
			out = append(out, Fact{Subject: use.Object, Predicate: inv.Subject, Object: use.Subject})
		}
	}
	return out, nil
}

// cls-thing: every resource that appears as the subject of a non-
// literal-typed triple is an instance of owl:Thing. Matches owl2.rs's
// apply_cls_thing exactly (including its simplification of treating
// every derived subject as an "individual" rather than first checking
// it is a class instance).
func clsThing(r *Reasoner) ([]Fact, error) {
	seen := make(map[string]bool)
	var out []Fact
	for _, f := range r.derived {
		key := f.Subject.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, isLiteral := f.Subject.(*rdf.Literal); isLiteral {
			continue
		}
		out = append(out, Fact{Subject: f.Subject, Predicate: rdf.RDFType, Object: rdf.OWLThing})
	}
	return out, nil
}

// cls-nothing1: any instance of owl:Nothing is a contradiction.
func clsNothing1(r *Reasoner) ([]Fact, error) {
	if instances := r.findPattern(nil, rdf.RDFType, rdf.OWLNothing); len(instances) > 0 {
		return nil, errs.Inconsistency(fmt.Sprintf("instance of owl:Nothing found: %s", instances[0].Subject))
	}
	return nil, nil
}

// cax-sco: c1 rdfs:subClassOf c2, x rdf:type c1 => x rdf:type c2.
func caxSco(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, sc := range r.findPattern(nil, rdf.RDFSSubClassOf, nil) {
		for _, inst := range r.findPattern(nil, rdf.RDFType, sc.Subject) {
			out = append(out, Fact{Subject: inst.Subject, Predicate: rdf.RDFType, Object: sc.Object})
		}
	}
	return out, nil
}

// cax-eqc1/2: c1 owl:equivalentClass c2 implies the same instances
// hold under either class name, in both directions.
func caxEqc1(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, eq := range r.findPattern(nil, rdf.OWLEquivalentClass, nil) {
		for _, inst := range r.findPattern(nil, rdf.RDFType, eq.Subject) {
			out = append(out, Fact{Subject: inst.Subject, Predicate: rdf.RDFType, Object: eq.Object})
		}
	}
	return out, nil
}

func caxEqc2(r *Reasoner) ([]Fact, error) {
	var out []Fact
	for _, eq := range r.findPattern(nil, rdf.OWLEquivalentClass, nil) {
		for _, inst := range r.findPattern(nil, rdf.RDFType, eq.Object) {
			out = append(out, Fact{Subject: inst.Subject, Predicate: rdf.RDFType, Object: eq.Subject})
		}
	}
	return out, nil
}

package parser

import (
	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/internal/sparql/algebra"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// parseUpdateOperation parses one SPARQL 1.1 Update operation, per
// SPEC_FULL §4.9's eight operation forms.
func (p *Parser) parseUpdateOperation() (*algebra.Update, error) {
	p.skipWhitespace()
	switch {
	case p.matchKeyword("INSERT"):
		if p.matchKeyword("DATA") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return &algebra.Update{Kind: algebra.UpdateInsertData, Quads: quads}, nil
		}
		return p.parseModify(nil)

	case p.matchKeyword("DELETE"):
		if p.matchKeyword("DATA") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return &algebra.Update{Kind: algebra.UpdateDeleteData, Quads: quads}, nil
		}
		if p.matchKeyword("WHERE") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return &algebra.Update{Kind: algebra.UpdateDeleteWhere, Quads: quads}, nil
		}
		deleteTemplate, err := p.parseQuadData()
		if err != nil {
			return nil, err
		}
		return p.parseModify(deleteTemplate)

	case p.matchKeyword("LOAD"):
		silent := p.matchKeyword("SILENT")
		iri, err := p.parseIRIRefOrPrefixed()
		if err != nil {
			return nil, err
		}
		op := &algebra.Update{Kind: algebra.UpdateLoad, Source: rdf.NewNamedNode(iri), Silent: silent}
		if p.matchKeyword("INTO") {
			target, err := p.parseGraphTarget()
			if err != nil {
				return nil, err
			}
			op.Into = &target
		}
		return op, nil

	case p.matchKeyword("CLEAR"):
		silent := p.matchKeyword("SILENT")
		target, err := p.parseGraphTarget()
		if err != nil {
			return nil, err
		}
		return &algebra.Update{Kind: algebra.UpdateClear, Target: target, Silent: silent}, nil

	case p.matchKeyword("CREATE"):
		silent := p.matchKeyword("SILENT")
		target, err := p.parseGraphTarget()
		if err != nil {
			return nil, err
		}
		return &algebra.Update{Kind: algebra.UpdateCreate, Target: target, Silent: silent}, nil

	case p.matchKeyword("DROP"):
		silent := p.matchKeyword("SILENT")
		target, err := p.parseGraphTarget()
		if err != nil {
			return nil, err
		}
		return &algebra.Update{Kind: algebra.UpdateDrop, Target: target, Silent: silent}, nil

	default:
		return nil, errs.Syntax(p.pos, "expected an update operation (INSERT/DELETE/LOAD/CLEAR/CREATE/DROP)")
	}
}

// parseModify handles the DELETE {...} INSERT {...} USING ... WHERE
// {...} form. deleteTemplate is non-nil when the caller already
// consumed a leading DELETE {...} block.
func (p *Parser) parseModify(deleteTemplate []algebra.QuadPattern) (*algebra.Update, error) {
	op := &algebra.Update{Kind: algebra.UpdateDeleteInsert, DeleteTemplate: deleteTemplate}

	p.skipWhitespace()
	if p.matchKeyword("INSERT") {
		insertTemplate, err := p.parseQuadData()
		if err != nil {
			return nil, err
		}
		op.InsertTemplate = insertTemplate
	}

	for {
		p.skipWhitespace()
		if p.matchKeyword("USING") {
			named := p.matchKeyword("NAMED")
			iri, err := p.parseIRIRefOrPrefixed()
			if err != nil {
				return nil, err
			}
			if named {
				op.UsingDataset.Named = append(op.UsingDataset.Named, rdf.NewNamedNode(iri))
			} else {
				op.UsingDataset.Default = append(op.UsingDataset.Default, rdf.NewNamedNode(iri))
			}
			continue
		}
		break
	}

	if !p.matchKeyword("WHERE") {
		return nil, errs.Syntax(p.pos, "expected WHERE in DELETE/INSERT")
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	op.Where = where
	return op, nil
}

// parseQuadData parses a { triples } or GRAPH <iri> { triples } block
// used by INSERT/DELETE DATA and DELETE WHERE, allowing an optional
// mixture of default-graph triples and GRAPH-scoped blocks.
func (p *Parser) parseQuadData() ([]algebra.QuadPattern, error) {
	p.skipWhitespace()
	if !p.consumeByte('{') {
		return nil, errs.Syntax(p.pos, "expected '{'")
	}
	var quads []algebra.QuadPattern
	var currentGraph algebra.VarOrTerm

	for {
		p.skipWhitespace()
		if p.peekByte() == '}' {
			p.advance()
			break
		}
		if p.matchKeyword("GRAPH") {
			p.skipWhitespace()
			g, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			p.skipWhitespace()
			if !p.consumeByte('{') {
				return nil, errs.Syntax(p.pos, "expected '{' after GRAPH")
			}
			for {
				p.skipWhitespace()
				if p.peekByte() == '}' {
					p.advance()
					break
				}
				tp, err := p.parseQuadTriple()
				if err != nil {
					return nil, err
				}
				quads = append(quads, algebra.QuadPattern{TriplePattern: tp, Graph: g})
				p.skipWhitespace()
				p.consumeByte('.')
			}
			continue
		}
		tp, err := p.parseQuadTriple()
		if err != nil {
			return nil, err
		}
		quads = append(quads, algebra.QuadPattern{TriplePattern: tp, Graph: currentGraph})
		p.skipWhitespace()
		p.consumeByte('.')
	}
	return quads, nil
}

func (p *Parser) parseQuadTriple() (algebra.TriplePattern, error) {
	subject, err := p.parseVarOrTerm()
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	p.skipWhitespace()
	predicate, err := p.parseVarOrTerm()
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	p.skipWhitespace()
	object, err := p.parseVarOrTerm()
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	return algebra.TriplePattern{Subject: subject, Predicate: predicate, Object: object}, nil
}

func (p *Parser) parseGraphTarget() (algebra.GraphTarget, error) {
	p.skipWhitespace()
	switch {
	case p.matchKeyword("DEFAULT"):
		return algebra.GraphTarget{Kind: algebra.GraphTargetDefault}, nil
	case p.matchKeyword("NAMED"):
		return algebra.GraphTarget{Kind: algebra.GraphTargetNamedSet}, nil
	case p.matchKeyword("ALL"):
		return algebra.GraphTarget{Kind: algebra.GraphTargetAll}, nil
	case p.matchKeyword("GRAPH"):
		fallthrough
	default:
		iri, err := p.parseIRIRefOrPrefixed()
		if err != nil {
			return algebra.GraphTarget{}, err
		}
		return algebra.GraphTarget{Kind: algebra.GraphTargetNamed, IRI: rdf.NewNamedNode(iri)}, nil
	}
}

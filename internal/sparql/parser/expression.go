package parser

import (
	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/internal/sparql/algebra"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// parseExpression parses a full SPARQL expression with the standard
// precedence ladder: ConditionalOr > ConditionalAnd > value logical >
// numeric additive > numeric multiplicative > unary > primary.
func (p *Parser) parseExpression() (algebra.Expression, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (algebra.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.pos+1 < p.length && p.input[p.pos] == '|' && p.input[p.pos+1] == '|' {
			p.pos += 2
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = &algebra.Or{Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseAnd() (algebra.Expression, error) {
	left, err := p.parseValueLogical()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.pos+1 < p.length && p.input[p.pos] == '&' && p.input[p.pos+1] == '&' {
			p.pos += 2
			right, err := p.parseValueLogical()
			if err != nil {
				return nil, err
			}
			left = &algebra.And{Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseValueLogical() (algebra.Expression, error) {
	left, err := p.parseNumericExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	switch {
	case p.matchOp("="):
		right, err := p.parseNumericExpression()
		if err != nil {
			return nil, err
		}
		return &algebra.Equal{Left: left, Right: right}, nil
	case p.matchOp("!="):
		right, err := p.parseNumericExpression()
		if err != nil {
			return nil, err
		}
		return &algebra.NotEqual{Left: left, Right: right}, nil
	case p.matchOp("<="):
		right, err := p.parseNumericExpression()
		if err != nil {
			return nil, err
		}
		return &algebra.LessOrEqual{Left: left, Right: right}, nil
	case p.matchOp(">="):
		right, err := p.parseNumericExpression()
		if err != nil {
			return nil, err
		}
		return &algebra.GreaterOrEqual{Left: left, Right: right}, nil
	case p.matchOp("<"):
		right, err := p.parseNumericExpression()
		if err != nil {
			return nil, err
		}
		return &algebra.Less{Left: left, Right: right}, nil
	case p.matchOp(">"):
		right, err := p.parseNumericExpression()
		if err != nil {
			return nil, err
		}
		return &algebra.Greater{Left: left, Right: right}, nil
	case p.matchKeyword("IN"):
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &algebra.In{Needle: left, Haystack: list}, nil
	case p.matchKeyword("NOT"):
		if !p.matchKeyword("IN") {
			return nil, errs.Syntax(p.pos, "expected IN after NOT")
		}
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &algebra.In{Needle: left, Haystack: list, Negated: true}, nil
	}
	return left, nil
}

func (p *Parser) parseExpressionList() ([]algebra.Expression, error) {
	p.skipWhitespace()
	if !p.consumeByte('(') {
		return nil, errs.Syntax(p.pos, "expected '(' in expression list")
	}
	var list []algebra.Expression
	for {
		p.skipWhitespace()
		if p.peekByte() == ')' {
			p.advance()
			break
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list = append(list, expr)
		p.skipWhitespace()
		if !p.consumeByte(',') {
			p.skipWhitespace()
			if !p.consumeByte(')') {
				return nil, errs.Syntax(p.pos, "expected ',' or ')' in expression list")
			}
			break
		}
	}
	return list, nil
}

func (p *Parser) matchOp(op string) bool {
	p.skipWhitespace()
	end := p.pos + len(op)
	if end > p.length || p.input[p.pos:end] != op {
		return false
	}
	// Avoid "<"/">" matching as a prefix of "<="/">=", checked by
	// trying the two-character operators before the one-character
	// ones at each call site in parseValueLogical.
	if (op == "<" || op == ">") && end < p.length && p.input[end] == '=' {
		return false
	}
	p.pos = end
	return true
}

func (p *Parser) parseNumericExpression() (algebra.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		switch p.peekByte() {
		case '+':
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &algebra.Add{Left: left, Right: right}
		case '-':
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &algebra.Subtract{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicative() (algebra.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		switch p.peekByte() {
		case '*':
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &algebra.Multiply{Left: left, Right: right}
		case '/':
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &algebra.Divide{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (algebra.Expression, error) {
	p.skipWhitespace()
	switch p.peekByte() {
	case '!':
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &algebra.Not{Inner: inner}, nil
	case '+':
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryPlus{Inner: inner}, nil
	case '-':
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryMinus{Inner: inner}, nil
	default:
		return p.parsePrimaryExpression()
	}
}

func (p *Parser) parsePrimaryExpression() (algebra.Expression, error) {
	p.skipWhitespace()
	switch {
	case p.peekByte() == '(':
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if !p.consumeByte(')') {
			return nil, errs.Syntax(p.pos, "expected ')'")
		}
		return inner, nil

	case p.peekByte() == '?' || p.peekByte() == '$':
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &algebra.VarExpr{Var: v}, nil

	case p.matchKeyword("NOT"):
		if !p.matchKeyword("EXISTS") {
			return nil, errs.Syntax(p.pos, "expected EXISTS after NOT")
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		if err := rejectNestedExists(pattern); err != nil {
			return nil, err
		}
		return &algebra.Exists{Pattern: pattern, Negated: true}, nil

	case p.matchKeyword("EXISTS"):
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		if err := rejectNestedExists(pattern); err != nil {
			return nil, err
		}
		return &algebra.Exists{Pattern: pattern}, nil

	case p.matchKeyword("BOUND"):
		p.skipWhitespace()
		if !p.consumeByte('(') {
			return nil, errs.Syntax(p.pos, "expected '(' after BOUND")
		}
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if !p.consumeByte(')') {
			return nil, errs.Syntax(p.pos, "expected ')'")
		}
		return &algebra.Bound{Var: v}, nil

	case p.matchKeyword("IF"):
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if len(args) != 3 {
			return nil, errs.Syntax(p.pos, "IF requires exactly 3 arguments")
		}
		return &algebra.If{Cond: args[0], Then: args[1], Else: args[2]}, nil

	case p.matchKeyword("COALESCE"):
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &algebra.Coalesce{Exprs: args}, nil

	case p.matchKeyword("SAMETERM"):
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, errs.Syntax(p.pos, "sameTerm requires exactly 2 arguments")
		}
		return &algebra.SameTerm{Left: args[0], Right: args[1]}, nil

	case isAggregateKeyword(p):
		return p.parseAggregateExpr()

	case isFunctionStart(p):
		return p.parseFunctionCall()

	default:
		vt, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		term, ok := vt.(rdf.Term)
		if !ok {
			return nil, errs.Syntax(p.pos, "expected a bound term in expression position")
		}
		return &algebra.TermExpr{Term: term}, nil
	}
}

// rejectNestedExists rejects an EXISTS/NOT EXISTS pattern that itself
// holds EXISTS/NOT EXISTS as the whole expression of a FILTER or BIND,
// looking through Join, LeftJoin, Union, Graph, Extend and Minus nodes.
// An EXISTS deeper inside an expression (under &&, ||, !, or a
// function call), or in a LeftJoin's own Expr, is not detected.
func rejectNestedExists(a algebra.Algebra) error {
	found := false
	var walk func(algebra.Algebra)
	walkExpr := func(e algebra.Expression) {
		if _, ok := e.(*algebra.Exists); ok {
			found = true
		}
	}
	walk = func(node algebra.Algebra) {
		switch n := node.(type) {
		case *algebra.Filter:
			walkExpr(n.Expr)
			walk(n.Input)
		case *algebra.Join:
			walk(n.Left)
			walk(n.Right)
		case *algebra.LeftJoin:
			walk(n.Left)
			walk(n.Right)
		case *algebra.Union:
			walk(n.Left)
			walk(n.Right)
		case *algebra.Graph:
			walk(n.Input)
		case *algebra.Extend:
			walkExpr(n.Expr)
			walk(n.Input)
		case *algebra.Minus:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(a)
	if found {
		return errs.Unsupported("nested EXISTS/NOT EXISTS is not supported")
	}
	return nil
}

func isAggregateKeyword(p *Parser) bool {
	for _, kw := range []string{"COUNT", "SUM", "MIN", "MAX", "AVG", "SAMPLE", "GROUP_CONCAT"} {
		if p.matchKeywordNoConsume(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) parseAggregateExpr() (algebra.Expression, error) {
	var kind algebra.AggregateKind
	switch {
	case p.matchKeyword("COUNT"):
		kind = algebra.AggCount
	case p.matchKeyword("SUM"):
		kind = algebra.AggSum
	case p.matchKeyword("MIN"):
		kind = algebra.AggMin
	case p.matchKeyword("MAX"):
		kind = algebra.AggMax
	case p.matchKeyword("AVG"):
		kind = algebra.AggAvg
	case p.matchKeyword("SAMPLE"):
		kind = algebra.AggSample
	case p.matchKeyword("GROUP_CONCAT"):
		kind = algebra.AggGroupConcat
	}
	p.skipWhitespace()
	if !p.consumeByte('(') {
		return nil, errs.Syntax(p.pos, "expected '(' after aggregate name")
	}
	distinct := p.matchKeyword("DISTINCT")
	agg := algebra.Aggregate{Kind: kind, Distinct: distinct}

	p.skipWhitespace()
	if kind == algebra.AggCount && p.peekByte() == '*' {
		p.advance()
	} else {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		agg.Expr = expr
	}

	p.skipWhitespace()
	if kind == algebra.AggGroupConcat && p.consumeByte(';') {
		if p.matchKeyword("SEPARATOR") {
			p.skipWhitespace()
			if !p.consumeByte('=') {
				return nil, errs.Syntax(p.pos, "expected '=' after SEPARATOR")
			}
			sep, err := p.parseStringLiteral()
			if err != nil {
				return nil, err
			}
			agg.Separator = sep.Value
		}
	}

	p.skipWhitespace()
	if !p.consumeByte(')') {
		return nil, errs.Syntax(p.pos, "expected ')' closing aggregate")
	}
	return &algebra.AggregateExpr{Aggregate: agg}, nil
}

var functionNames = map[string]algebra.BuiltinFunction{
	"STR": algebra.FuncStr, "LANG": algebra.FuncLang, "LANGMATCHES": algebra.FuncLangMatches,
	"DATATYPE": algebra.FuncDatatype, "STRLEN": algebra.FuncStrlen, "SUBSTR": algebra.FuncSubstr,
	"UCASE": algebra.FuncUcase, "LCASE": algebra.FuncLcase, "STRSTARTS": algebra.FuncStrstarts,
	"STRENDS": algebra.FuncStrends, "CONTAINS": algebra.FuncContains, "STRBEFORE": algebra.FuncStrbefore,
	"STRAFTER": algebra.FuncStrafter, "ENCODE_FOR_URI": algebra.FuncEncodeForURI, "CONCAT": algebra.FuncConcat,
	"REPLACE": algebra.FuncReplace, "REGEX": algebra.FuncRegex, "ABS": algebra.FuncAbs,
	"ROUND": algebra.FuncRound, "CEIL": algebra.FuncCeil, "FLOOR": algebra.FuncFloor, "RAND": algebra.FuncRand,
	"NOW": algebra.FuncNow, "YEAR": algebra.FuncYear, "MONTH": algebra.FuncMonth, "DAY": algebra.FuncDay,
	"HOURS": algebra.FuncHours, "MINUTES": algebra.FuncMinutes, "SECONDS": algebra.FuncSeconds,
	"TIMEZONE": algebra.FuncTimezone, "TZ": algebra.FuncTz, "MD5": algebra.FuncMD5, "SHA1": algebra.FuncSHA1,
	"SHA256": algebra.FuncSHA256, "SHA384": algebra.FuncSHA384, "SHA512": algebra.FuncSHA512,
	"UUID": algebra.FuncUUID, "STRUUID": algebra.FuncStrUUID, "IRI": algebra.FuncIRI, "URI": algebra.FuncIRI,
	"BNODE": algebra.FuncBNode, "STRDT": algebra.FuncStrDt, "STRLANG": algebra.FuncStrLang,
	"ISIRI": algebra.FuncIsIRI, "ISURI": algebra.FuncIsIRI, "ISBLANK": algebra.FuncIsBlank,
	"ISLITERAL": algebra.FuncIsLiteral, "ISNUMERIC": algebra.FuncIsNumeric,
}

func isFunctionStart(p *Parser) bool {
	for name := range functionNames {
		if p.matchKeywordNoConsume(name) {
			return true
		}
	}
	return false
}

func (p *Parser) parseFunctionCall() (algebra.Expression, error) {
	// Longest-match: try every known name, preferring the longest to
	// avoid e.g. "IRI" matching inside "ISIRI".
	var matched string
	for name := range functionNames {
		if p.matchKeywordNoConsume(name) && len(name) > len(matched) {
			matched = name
		}
	}
	if matched == "" {
		return nil, errs.Syntax(p.pos, "unknown function")
	}
	p.matchKeyword(matched)
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	return &algebra.FunctionCall{Function: functionNames[matched], Args: args}, nil
}

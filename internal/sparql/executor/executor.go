// Package executor evaluates a SPARQL algebra.Query against the quad
// store: a tree-walking evaluator that, for every Algebra node,
// produces a complete binding.Set rather than a per-row Volcano
// iterator.
//
// Grounded on the teacher's executor.go, whose createIterator type
// switch over optimizer.QueryPlan already established the
// scan/nestedLoopJoin/filter/projection/limit/offset/distinct
// iterator split (filterIterator and distinctIterator were confirmed
// stubs there, marked "// TODO: Evaluate filter expression" and
// "// TODO: Implement better hashing"); this rewrite keeps the same
// operator boundaries but against the new internal/sparql/algebra IR,
// with BGP evaluation now choosing between internal/join's WCOJ and a
// plain nested loop per internal/sparql/optimizer's Plan, and
// filter/distinct backed by a real evaluator.Evaluator and
// internal/binding's xxh3-hashed Distinct instead of the stubs.
// Evaluating one binding.Set per node rather than per-row iterators is
// a deliberate adaptation: the store's Find scans are themselves
// batch-oriented (a fresh transaction per call), so there is no
// streaming benefit to preserve, and a Set makes ORDER BY, DISTINCT
// and the multi-way WCOJ join far simpler to express than chained
// pull-iterators.
package executor

import (
	"fmt"
	"sort"

	"github.com/graphon-db/graphon/internal/binding"
	"github.com/graphon-db/graphon/internal/dataset"
	"github.com/graphon-db/graphon/internal/errs"
	"github.com/graphon-db/graphon/internal/join"
	"github.com/graphon-db/graphon/internal/sparql/algebra"
	"github.com/graphon-db/graphon/internal/sparql/evaluator"
	"github.com/graphon-db/graphon/internal/sparql/optimizer"
	internalstore "github.com/graphon-db/graphon/internal/store"
	"github.com/graphon-db/graphon/pkg/rdf"
)

// Executor evaluates algebra.Query values against a store.
type Executor struct {
	store *internalstore.Store
	opt   *optimizer.Optimizer
	eval  *evaluator.Evaluator
}

// New returns an Executor. Pass optimizer.New() for WCOJ-eligible
// queries to use it, or optimizer.WithoutWCOJ() to force nested
// loop joins everywhere (the mode tests use to cross-check both
// strategies produce the same result for a given query).
func New(s *internalstore.Store, opt *optimizer.Optimizer) *Executor {
	e := &Executor{store: s, opt: opt}
	e.eval = evaluator.New(e)
	return e
}

// QueryResult is the tagged result of executing one algebra.Query;
// exactly one field is populated, matching q.Form.
type QueryResult struct {
	Select    *SelectResult
	Construct *ConstructResult
	Describe  *DescribeResult
	Ask       *AskResult
}

// SelectResult is the result of a SELECT query: an ordered variable
// list plus one binding per solution row.
type SelectResult struct {
	Variables []string
	Rows      []map[string]rdf.Term
}

// ConstructResult is the result of a CONSTRUCT query: a deduplicated
// set of quads in the default graph.
type ConstructResult struct {
	Quads []*rdf.Quad
}

// DescribeResult is the result of a DESCRIBE query: the Concise
// Bounded Description (every quad with the described term as subject)
// of each described resource.
type DescribeResult struct {
	Quads []*rdf.Quad
}

// AskResult is the result of an ASK query.
type AskResult struct {
	Result bool
}

// Execute runs q against the store.
func (e *Executor) Execute(q *algebra.Query) (*QueryResult, error) {
	ctx := dataset.NewContext(dataset.Dataset{
		DefaultGraphs: q.Dataset.Default,
		NamedGraphs:   q.Dataset.Named,
	})

	switch q.Form {
	case algebra.QuerySelect:
		return e.executeSelect(q, ctx)
	case algebra.QueryAsk:
		return e.executeAsk(q, ctx)
	case algebra.QueryConstruct:
		return e.executeConstruct(q, ctx)
	case algebra.QueryDescribe:
		return e.executeDescribe(q, ctx)
	default:
		return nil, errs.Unsupported(fmt.Sprintf("query form %v", q.Form))
	}
}

// executeSelect trusts the parser to have already wrapped q.Pattern in
// whatever Project/Distinct/Slice/OrderBy algebra nodes the query text
// required; Query.Projection/Order/Limit/Offset are a convenience
// mirror of that tree for callers that want the shape without walking
// it, not something applied again here.
func (e *Executor) executeSelect(q *algebra.Query, ctx dataset.Context) (*QueryResult, error) {
	rows, err := e.evalAlgebra(q.Pattern, ctx)
	if err != nil {
		return nil, err
	}
	vars := projectionVariables(q.Projection, rows)
	out := make([]map[string]rdf.Term, len(rows))
	for i, r := range rows {
		out[i] = map[string]rdf.Term(r)
	}
	return &QueryResult{Select: &SelectResult{Variables: vars, Rows: out}}, nil
}

func projectionVariables(p algebra.Projection, rows binding.Set) []string {
	switch p.Kind {
	case algebra.ProjectionVariables:
		names := make([]string, len(p.Variables))
		for i, v := range p.Variables {
			names[i] = v.Name
		}
		return names
	case algebra.ProjectionExpressions:
		names := make([]string, len(p.Expressions))
		for i, ab := range p.Expressions {
			names[i] = ab.Var.Name
		}
		return names
	default:
		seen := map[string]bool{}
		var names []string
		for _, row := range rows {
			for k := range row {
				if !seen[k] {
					seen[k] = true
					names = append(names, k)
				}
			}
		}
		sort.Strings(names)
		return names
	}
}

func (e *Executor) executeAsk(q *algebra.Query, ctx dataset.Context) (*QueryResult, error) {
	rows, err := e.evalAlgebra(q.Pattern, ctx)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Ask: &AskResult{Result: len(rows) > 0}}, nil
}

func (e *Executor) executeConstruct(q *algebra.Query, ctx dataset.Context) (*QueryResult, error) {
	rows, err := e.evalAlgebra(q.Pattern, ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var quads []*rdf.Quad
	for _, row := range rows {
		for _, tmpl := range q.Template {
			quad, ok := instantiateTemplate(tmpl, row)
			if !ok {
				continue
			}
			key := quad.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			quads = append(quads, quad)
		}
	}
	return &QueryResult{Construct: &ConstructResult{Quads: quads}}, nil
}

// instantiateTemplate substitutes row's bindings into tmpl, failing
// (ok=false) if any variable position is unbound, per CONSTRUCT's
// "only emit fully-bound triples" rule.
func instantiateTemplate(tmpl algebra.TriplePattern, row binding.Binding) (*rdf.Quad, bool) {
	s, ok := resolveVarOrTerm(tmpl.Subject, row)
	if !ok {
		return nil, false
	}
	p, ok := resolveVarOrTerm(tmpl.Predicate, row)
	if !ok {
		return nil, false
	}
	o, ok := resolveVarOrTerm(tmpl.Object, row)
	if !ok {
		return nil, false
	}
	return rdf.NewQuad(s, p, o, nil), true
}

func resolveVarOrTerm(v algebra.VarOrTerm, row binding.Binding) (rdf.Term, bool) {
	if va, isVar := v.(*rdf.Variable); isVar {
		t, ok := row[va.Name]
		return t, ok
	}
	t, ok := v.(rdf.Term)
	return t, ok
}

func (e *Executor) executeDescribe(q *algebra.Query, ctx dataset.Context) (*QueryResult, error) {
	var targets []rdf.Term
	if q.Pattern != nil {
		rows, err := e.evalAlgebra(q.Pattern, ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range q.Describe {
			if v, isVar := d.(*rdf.Variable); isVar {
				for _, row := range rows {
					if t, ok := row[v.Name]; ok {
						targets = append(targets, t)
					}
				}
				continue
			}
			if t, ok := d.(rdf.Term); ok {
				targets = append(targets, t)
			}
		}
	} else {
		for _, d := range q.Describe {
			if t, ok := d.(rdf.Term); ok {
				targets = append(targets, t)
			}
		}
	}

	seen := map[string]bool{}
	var quads []*rdf.Quad
	for _, target := range targets {
		asSubject, err := e.scanQuads(internalstore.Pattern{Subject: target}, ctx)
		if err != nil {
			return nil, err
		}
		for _, q := range asSubject {
			key := q.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			quads = append(quads, q)
		}
	}
	return &QueryResult{Describe: &DescribeResult{Quads: quads}}, nil
}

// Exists implements evaluator.ExistsTester: EXISTS{pattern} under row
// holds iff pattern's own solutions include some row compatible with
// row.
func (e *Executor) Exists(pattern algebra.Algebra, row map[string]rdf.Term) (bool, error) {
	rows, err := e.evalAlgebra(pattern, dataset.NewContext(dataset.Dataset{}))
	if err != nil {
		return false, err
	}
	outer := binding.Binding(row)
	for _, r := range rows {
		if outer.Compatible(r) {
			return true, nil
		}
	}
	return false, nil
}

// evalAlgebra dispatches on the concrete Algebra node type, evaluating
// it against ctx's graph/dataset scope. A plain Go type switch is used
// rather than the algebra.Visitor interface, since Visitor.Accept only
// returns an error — it has no way to hand back the binding.Set each
// of these cases produces.
func (e *Executor) evalAlgebra(a algebra.Algebra, ctx dataset.Context) (binding.Set, error) {
	switch n := a.(type) {
	case *algebra.BGP:
		return e.evalBGP(n, ctx)
	case *algebra.Join:
		left, err := e.evalAlgebra(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := e.evalAlgebra(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return binding.Join(left, right), nil
	case *algebra.LeftJoin:
		left, err := e.evalAlgebra(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := e.evalAlgebra(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		var filter func(binding.Binding) bool
		if n.Expr != nil {
			filter = func(row binding.Binding) bool {
				ok, err := e.eval.EffectiveBooleanValue(n.Expr, row)
				return err == nil && ok
			}
		}
		return binding.LeftJoin(left, right, filter), nil
	case *algebra.Filter:
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		out := make(binding.Set, 0, len(input))
		for _, row := range input {
			ok, err := e.eval.EffectiveBooleanValue(n.Expr, row)
			if err == nil && ok {
				out = append(out, row)
			}
		}
		return out, nil
	case *algebra.Union:
		left, err := e.evalAlgebra(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := e.evalAlgebra(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return binding.Union(left, right), nil
	case *algebra.Graph:
		return e.evalGraph(n, ctx)
	case *algebra.Extend:
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		out := make(binding.Set, 0, len(input))
		for _, row := range input {
			merged := row.Clone()
			if v, err := e.eval.Eval(n.Expr, row); err == nil {
				merged[n.Var.Name] = v
			}
			out = append(out, merged)
		}
		return out, nil
	case *algebra.Minus:
		left, err := e.evalAlgebra(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := e.evalAlgebra(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return binding.Minus(left, right), nil
	case *algebra.Project:
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(n.Vars))
		for i, v := range n.Vars {
			names[i] = v.Name
		}
		return binding.Project(input, names), nil
	case *algebra.Distinct:
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return binding.Distinct(input), nil
	case *algebra.Reduced:
		// Treated identically to Distinct: REDUCED only permits
		// duplicate elimination, it doesn't forbid it, and offering
		// REDUCED-without-dedup gives no benefit absent a streaming
		// engine to save work in.
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return binding.Distinct(input), nil
	case *algebra.Slice:
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return binding.Slice(input, n.Offset, n.Limit), nil
	case *algebra.OrderBy:
		input, err := e.evalAlgebra(n.Input, ctx)
		if err != nil {
			return nil, err
		}
		return binding.SortBy(input, e.orderLess(n.Conditions)), nil
	case *algebra.Group:
		return e.evalGroup(n, ctx)
	case *algebra.PathPattern:
		return e.evalPathPattern(n, ctx)
	default:
		return nil, errs.Unsupported(fmt.Sprintf("algebra node type %T", a))
	}
}

// orderLess composes conds into a single comparator: ties on one
// condition fall through to the next, and a row whose key expression
// fails to evaluate (unbound or an error) sorts before one that
// succeeds under ASC and after it under DESC.
func (e *Executor) orderLess(conds []algebra.OrderCondition) func(a, b binding.Binding) bool {
	return func(a, b binding.Binding) bool {
		for _, c := range conds {
			av, aerr := e.eval.Eval(c.Expr, a)
			bv, berr := e.eval.Eval(c.Expr, b)
			switch {
			case aerr != nil && berr != nil:
				continue
			case aerr != nil:
				return !c.Descending
			case berr != nil:
				return c.Descending
			}
			cmp, err := evaluator.CompareValues(av, bv)
			if err != nil || cmp == 0 {
				continue
			}
			if c.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	}
}

// graphTargets names the graph(s) a default-graph-scoped pattern
// match should scan: ctx.CurrentGraph alone inside a GRAPH clause,
// else the FROM-clause default graphs, else a single nil entry (the
// store's own default graph, Graph == nil).
func (e *Executor) graphTargets(ctx dataset.Context) []rdf.Term {
	if ctx.CurrentGraph != nil {
		return []rdf.Term{ctx.CurrentGraph}
	}
	scope := ctx.DefaultGraphScope()
	if len(scope) == 0 {
		return []rdf.Term{nil}
	}
	out := make([]rdf.Term, len(scope))
	for i, g := range scope {
		out[i] = g
	}
	return out
}

func (e *Executor) scanQuads(pat internalstore.Pattern, ctx dataset.Context) ([]*rdf.Quad, error) {
	var out []*rdf.Quad
	for _, g := range e.graphTargets(ctx) {
		p := pat
		p.Graph = g
		p.GraphAny = false
		it, err := e.store.Find(&p)
		if err != nil {
			return nil, err
		}
		for it.Next() {
			q, err := it.Quad()
			if err != nil {
				it.Close()
				return nil, err
			}
			out = append(out, q)
		}
		if err := it.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// evalGraph enters a GRAPH clause, per spec.md §4.9/§8 invariant 4:
// with an active dataset, GRAPH <iri> must be a member of FROM NAMED
// or its subplan returns empty, and GRAPH ?var must be restricted to
// FROM NAMED rather than enumerating every graph the store holds.
// ctx.InScope (dataset.Context) is exactly this check.
func (e *Executor) evalGraph(g *algebra.Graph, ctx dataset.Context) (binding.Set, error) {
	switch name := g.Name.(type) {
	case *rdf.NamedNode:
		if !ctx.InScope(name) {
			return binding.Set{}, nil
		}
		return e.evalAlgebra(g.Input, ctx.WithGraph(name))
	case *rdf.Variable:
		graphs, err := e.store.Graphs()
		if err != nil {
			return nil, err
		}
		var out binding.Set
		for _, gr := range graphs {
			if !ctx.InScope(gr) {
				continue
			}
			rows, err := e.evalAlgebra(g.Input, ctx.WithGraph(gr))
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				merged := row.Clone()
				merged[name.Name] = gr
				out = append(out, merged)
			}
		}
		return out, nil
	default:
		return nil, errs.Unsupported("GRAPH target must be an IRI or a variable")
	}
}

func boundTerm(v algebra.VarOrTerm) rdf.Term {
	if v == nil {
		return nil
	}
	if _, isVar := v.(*rdf.Variable); isVar {
		return nil
	}
	if t, ok := v.(rdf.Term); ok {
		return t
	}
	return nil
}

// evalTriplePattern is the nested-loop fallback: one store scan for
// this single pattern, converted to bindings, re-checking positional
// consistency when the same variable names more than one position
// (e.g. ?x foo ?x), which a store.Pattern's independently-bound terms
// cannot itself express.
func (e *Executor) evalTriplePattern(pat algebra.TriplePattern, ctx dataset.Context) (binding.Set, error) {
	storePat := internalstore.Pattern{
		Subject:   boundTerm(pat.Subject),
		Predicate: boundTerm(pat.Predicate),
		Object:    boundTerm(pat.Object),
	}
	quads, err := e.scanQuads(storePat, ctx)
	if err != nil {
		return nil, err
	}
	rows := make(binding.Set, 0, len(quads))
	for _, q := range quads {
		row := binding.Binding{}
		consistent := true
		set := func(v algebra.VarOrTerm, term rdf.Term) {
			va, isVar := v.(*rdf.Variable)
			if !isVar {
				return
			}
			if existing, had := row[va.Name]; had {
				if !existing.Equals(term) {
					consistent = false
				}
				return
			}
			row[va.Name] = term
		}
		set(pat.Subject, q.Subject)
		set(pat.Predicate, q.Predicate)
		set(pat.Object, q.Object)
		if consistent {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// evalBGP chooses WCOJ or nested-loop per the optimizer's plan for
// this basic graph pattern, falling back to nested-loop regardless of
// the plan when the dataset's default-graph scope spans more than one
// graph: internal/join.LeapfrogJoin's LevelTrie carries a single
// store.Pattern with one Graph value per relation, so it cannot union
// several default graphs the way scanQuads does for the nested-loop
// path. This is a documented limitation of the WCOJ wiring, not of
// query correctness — it only ever widens which queries fall back to
// nested loop, never which answers they produce.
func (e *Executor) evalBGP(bgp *algebra.BGP, ctx dataset.Context) (binding.Set, error) {
	if len(bgp.Patterns) == 0 {
		return binding.Set{binding.Binding{}}, nil
	}
	plan := e.opt.Optimize(bgp.Patterns)
	targets := e.graphTargets(ctx)
	if plan.Strategy == optimizer.StrategyWCOJ && len(targets) == 1 {
		rows, err := e.evalBGPWCOJ(bgp.Patterns, targets[0])
		if err == nil {
			return rows, nil
		}
		if !errs.Is(err, errs.KindUnsupported) {
			return nil, err
		}
		// A shape WCOJ can't express (e.g. no shared join variables at
		// all) falls through to nested loop below.
	}
	return e.evalBGPNestedLoop(bgp.Patterns, ctx)
}

func (e *Executor) evalBGPNestedLoop(patterns []algebra.TriplePattern, ctx dataset.Context) (binding.Set, error) {
	// Patterns with fewer variables join first.
	ordered := append([]algebra.TriplePattern(nil), patterns...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(patternVariableNames(ordered[i])) < len(patternVariableNames(ordered[j]))
	})
	rows := binding.Set{binding.Binding{}}
	for _, pat := range ordered {
		patRows, err := e.evalTriplePattern(pat, ctx)
		if err != nil {
			return nil, err
		}
		rows = binding.Join(rows, patRows)
	}
	return rows, nil
}

// evalBGPWCOJ groups patterns' variables into join.LevelSpec levels in
// first-occurrence order and runs internal/join's leapfrog-triejoin
// over them. Ground (variable-free) patterns never join on anything,
// so they are checked separately as a pure existence filter.
func (e *Executor) evalBGPWCOJ(patterns []algebra.TriplePattern, graph rdf.Term) (binding.Set, error) {
	for _, pat := range patterns {
		if patternHasRepeatedVariable(pat) {
			return nil, errs.Unsupported("pattern with a repeated variable is not WCOJ-representable")
		}
	}

	order, varPatterns := sharedVariableOrder(patterns)
	if len(order) == 0 {
		return nil, errs.Unsupported("no shared join variables")
	}

	levels := make([]join.LevelSpec, 0, len(order))
	for _, varName := range order {
		var relations []join.LevelTrie
		for _, idx := range varPatterns[varName] {
			pat := patterns[idx]
			position, ok := variablePosition(pat, varName)
			if !ok {
				continue
			}
			base := internalstore.Pattern{
				Subject:   boundTerm(pat.Subject),
				Predicate: boundTerm(pat.Predicate),
				Object:    boundTerm(pat.Object),
				Graph:     graph,
			}
			varPositions := map[join.Position]string{}
			if v, isVar := pat.Subject.(*rdf.Variable); isVar {
				varPositions[join.PositionSubject] = v.Name
			}
			if v, isVar := pat.Predicate.(*rdf.Variable); isVar {
				varPositions[join.PositionPredicate] = v.Name
			}
			if v, isVar := pat.Object.(*rdf.Variable); isVar {
				varPositions[join.PositionObject] = v.Name
			}
			relations = append(relations, join.LevelTrie{
				Pattern:      base,
				VarPositions: varPositions,
				Position:     position,
			})
		}
		levels = append(levels, join.LevelSpec{Variable: varName, Relations: relations})
	}

	lj := join.NewLeapfrogJoin(e.store, levels)
	solutions, err := lj.Execute()
	if err != nil {
		return nil, err
	}

	rows := make(binding.Set, 0, len(solutions))
	for _, sol := range solutions {
		rows = append(rows, binding.Binding(sol))
	}

	groundCtx := dataset.NewContext(dataset.Dataset{})
	if nn, ok := graph.(*rdf.NamedNode); ok {
		groundCtx = groundCtx.WithGraph(nn)
	}
	for _, pat := range patterns {
		if len(patternVariableNames(pat)) > 0 {
			continue
		}
		groundRows, err := e.evalTriplePattern(pat, groundCtx)
		if err != nil {
			return nil, err
		}
		if len(groundRows) == 0 {
			return binding.Set{}, nil
		}
	}
	return rows, nil
}

// sharedVariableOrder returns every variable name that appears in at
// least one pattern, in first-occurrence order, plus the list of
// pattern indices each variable occurs in.
func sharedVariableOrder(patterns []algebra.TriplePattern) ([]string, map[string][]int) {
	seen := map[string][]int{}
	var order []string
	for idx, pat := range patterns {
		for _, name := range patternVariableNames(pat) {
			if _, ok := seen[name]; !ok {
				order = append(order, name)
			}
			seen[name] = append(seen[name], idx)
		}
	}
	return order, seen
}

// patternHasRepeatedVariable reports whether the same variable
// occupies more than one position in pat (e.g. ?x foo ?x). join.LevelTrie
// records only a single Position per relation, so it cannot enforce
// that two positions sharing a variable actually hold equal values;
// such patterns are routed to the nested-loop fallback instead, which
// evalTriplePattern already re-checks for positional consistency.
func patternHasRepeatedVariable(pat algebra.TriplePattern) bool {
	seen := map[string]bool{}
	for _, name := range patternVariableNames(pat) {
		if seen[name] {
			return true
		}
		seen[name] = true
	}
	return false
}

func patternVariableNames(pat algebra.TriplePattern) []string {
	var names []string
	for _, term := range []algebra.VarOrTerm{pat.Subject, pat.Predicate, pat.Object} {
		if v, ok := term.(*rdf.Variable); ok {
			names = append(names, v.Name)
		}
	}
	return names
}

func variablePosition(pat algebra.TriplePattern, name string) (join.Position, bool) {
	if v, ok := pat.Subject.(*rdf.Variable); ok && v.Name == name {
		return join.PositionSubject, true
	}
	if v, ok := pat.Predicate.(*rdf.Variable); ok && v.Name == name {
		return join.PositionPredicate, true
	}
	if v, ok := pat.Object.(*rdf.Variable); ok && v.Name == name {
		return join.PositionObject, true
	}
	return 0, false
}

// evalGroup evaluates GROUP BY: Input's rows are bucketed by the
// string form of their Keys values (in first-seen order), then each
// AggregateBinding is computed over its bucket's member rows.
func (e *Executor) evalGroup(g *algebra.Group, ctx dataset.Context) (binding.Set, error) {
	input, err := e.evalAlgebra(g.Input, ctx)
	if err != nil {
		return nil, err
	}

	type groupEntry struct {
		key     binding.Binding
		members binding.Set
	}
	var order []string
	groups := map[string]*groupEntry{}

	for _, row := range input {
		keyParts := make([]string, len(g.Keys))
		keyBinding := binding.Binding{}
		for i, keyExpr := range g.Keys {
			v, err := e.eval.Eval(keyExpr, row)
			if err != nil {
				keyParts[i] = "\x00error"
				continue
			}
			keyParts[i] = v.String()
			if ve, ok := keyExpr.(*algebra.VarExpr); ok {
				keyBinding[ve.Var.Name] = v
			}
		}
		key := fmt.Sprint(keyParts)
		entry, ok := groups[key]
		if !ok {
			entry = &groupEntry{key: keyBinding}
			groups[key] = entry
			order = append(order, key)
		}
		entry.members = append(entry.members, row)
	}

	if len(g.Keys) == 0 && len(groups) == 0 {
		// No GROUP BY and no input rows still yields one aggregate row
		// (e.g. SELECT COUNT(*) over an empty pattern is 0, not absent).
		groups[""] = &groupEntry{key: binding.Binding{}}
		order = append(order, "")
	}

	out := make(binding.Set, 0, len(order))
	for _, key := range order {
		entry := groups[key]
		row := entry.key.Clone()
		for _, ab := range g.Aggregates {
			v, err := e.computeAggregate(ab.Aggregate, entry.members)
			if err != nil {
				continue
			}
			row[ab.Var.Name] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// evalPathPattern resolves pp's property path over the store, then
// converts each resulting (subject, object) pair into a binding row,
// applying the same repeated-variable consistency check
// evalTriplePattern does (e.g. ?x foo+ ?x).
func (e *Executor) evalPathPattern(pp *algebra.PathPattern, ctx dataset.Context) (binding.Set, error) {
	subj := boundTerm(pp.Subject)
	obj := boundTerm(pp.Object)
	pairs, err := e.resolvePath(pp.Path, subj, obj, ctx)
	if err != nil {
		return nil, err
	}

	rows := make(binding.Set, 0, len(pairs))
	for _, pair := range pairs {
		row := binding.Binding{}
		consistent := true
		set := func(v algebra.VarOrTerm, term rdf.Term) {
			va, isVar := v.(*rdf.Variable)
			if !isVar {
				return
			}
			if existing, had := row[va.Name]; had {
				if !existing.Equals(term) {
					consistent = false
				}
				return
			}
			row[va.Name] = term
		}
		set(pp.Subject, pair[0])
		set(pp.Object, pair[1])
		if consistent {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// resolvePath returns every (subject, object) pair satisfying path,
// constrained to subj/obj when non-nil. Property paths are evaluated
// over (subject, object) pairs rather than full binding rows, since a
// path's interior nodes never escape into the surrounding query as
// bound variables.
func (e *Executor) resolvePath(path algebra.PropertyPath, subj, obj rdf.Term, ctx dataset.Context) ([][2]rdf.Term, error) {
	switch p := path.(type) {
	case *algebra.PathPredicate:
		quads, err := e.scanQuads(internalstore.Pattern{Subject: subj, Predicate: p.IRI, Object: obj}, ctx)
		if err != nil {
			return nil, err
		}
		pairs := make([][2]rdf.Term, len(quads))
		for i, q := range quads {
			pairs[i] = [2]rdf.Term{q.Subject, q.Object}
		}
		return pairs, nil

	case *algebra.PathInverse:
		inner, err := e.resolvePath(p.Inner, obj, subj, ctx)
		if err != nil {
			return nil, err
		}
		out := make([][2]rdf.Term, len(inner))
		for i, pair := range inner {
			out[i] = [2]rdf.Term{pair[1], pair[0]}
		}
		return out, nil

	case *algebra.PathSequence:
		left, err := e.resolvePath(p.Left, subj, nil, ctx)
		if err != nil {
			return nil, err
		}
		var out [][2]rdf.Term
		for _, lp := range left {
			right, err := e.resolvePath(p.Right, lp[1], obj, ctx)
			if err != nil {
				return nil, err
			}
			for _, rp := range right {
				out = append(out, [2]rdf.Term{lp[0], rp[1]})
			}
		}
		return dedupePairs(out), nil

	case *algebra.PathAlternative:
		left, err := e.resolvePath(p.Left, subj, obj, ctx)
		if err != nil {
			return nil, err
		}
		right, err := e.resolvePath(p.Right, subj, obj, ctx)
		if err != nil {
			return nil, err
		}
		return dedupePairs(append(left, right...)), nil

	case *algebra.PathZeroOrMore:
		return e.resolveClosure(p.Inner, subj, obj, ctx, true)

	case *algebra.PathOneOrMore:
		return e.resolveClosure(p.Inner, subj, obj, ctx, false)

	case *algebra.PathZeroOrOne:
		direct, err := e.resolvePath(p.Inner, subj, obj, ctx)
		if err != nil {
			return nil, err
		}
		if subj != nil && (obj == nil || obj.Equals(subj)) {
			direct = append(direct, [2]rdf.Term{subj, subj})
		} else if obj != nil && subj == nil {
			direct = append(direct, [2]rdf.Term{obj, obj})
		}
		return dedupePairs(direct), nil

	case *algebra.PathNegatedPropertySet:
		var out [][2]rdf.Term
		fwd, err := e.scanQuads(internalstore.Pattern{Subject: subj, Object: obj}, ctx)
		if err != nil {
			return nil, err
		}
		for _, q := range fwd {
			if !containsIRI(p.Forward, q.Predicate) {
				out = append(out, [2]rdf.Term{q.Subject, q.Object})
			}
		}
		inv, err := e.scanQuads(internalstore.Pattern{Subject: obj, Object: subj}, ctx)
		if err != nil {
			return nil, err
		}
		for _, q := range inv {
			if !containsIRI(p.Inverse, q.Predicate) {
				out = append(out, [2]rdf.Term{q.Object, q.Subject})
			}
		}
		return dedupePairs(out), nil

	default:
		return nil, errs.Unsupported(fmt.Sprintf("property path type %T", path))
	}
}

func containsIRI(iris []*rdf.NamedNode, t rdf.Term) bool {
	nn, ok := t.(*rdf.NamedNode)
	if !ok {
		return false
	}
	for _, i := range iris {
		if i.IRI == nn.IRI {
			return true
		}
	}
	return false
}

// resolveClosure implements */+ via symmetric BFS from whichever
// endpoint is bound: forward from sConstraint if set, else backward
// from oConstraint (exploiting that resolvePath already supports an
// unbound subject against a bound object, so no separate inverse
// wrapper is needed). includeZero seeds the start node itself as
// reachable in zero steps (for *; + never does).
func (e *Executor) resolveClosure(inner algebra.PropertyPath, sConstraint, oConstraint rdf.Term, ctx dataset.Context, includeZero bool) ([][2]rdf.Term, error) {
	if sConstraint == nil && oConstraint == nil {
		return nil, errs.Unsupported("transitive property path requires at least one bound endpoint")
	}

	forward := sConstraint != nil
	start := sConstraint
	if !forward {
		start = oConstraint
	}

	visited := map[string]rdf.Term{}
	var frontier []rdf.Term
	if includeZero {
		visited[start.String()] = start
		frontier = []rdf.Term{start}
	} else {
		var err error
		var step [][2]rdf.Term
		if forward {
			step, err = e.resolvePath(inner, start, nil, ctx)
		} else {
			step, err = e.resolvePath(inner, nil, start, ctx)
		}
		if err != nil {
			return nil, err
		}
		for _, pair := range step {
			next := pair[1]
			if !forward {
				next = pair[0]
			}
			if _, ok := visited[next.String()]; !ok {
				visited[next.String()] = next
				frontier = append(frontier, next)
			}
		}
	}

	for len(frontier) > 0 {
		var nextFrontier []rdf.Term
		for _, cur := range frontier {
			var step [][2]rdf.Term
			var err error
			if forward {
				step, err = e.resolvePath(inner, cur, nil, ctx)
			} else {
				step, err = e.resolvePath(inner, nil, cur, ctx)
			}
			if err != nil {
				return nil, err
			}
			for _, pair := range step {
				next := pair[1]
				if !forward {
					next = pair[0]
				}
				if _, ok := visited[next.String()]; !ok {
					visited[next.String()] = next
					nextFrontier = append(nextFrontier, next)
				}
			}
		}
		frontier = nextFrontier
	}

	var out [][2]rdf.Term
	for _, reached := range visited {
		if forward {
			if oConstraint == nil || oConstraint.Equals(reached) {
				out = append(out, [2]rdf.Term{start, reached})
			}
		} else {
			if sConstraint == nil || sConstraint.Equals(reached) {
				out = append(out, [2]rdf.Term{reached, start})
			}
		}
	}
	return out, nil
}

// computeAggregate reduces rows over agg. Per-row evaluation errors
// (e.g. a non-numeric SUM operand) are skipped rather than aborting
// the whole aggregate, matching SPARQL's "ignore error values"
// aggregate semantics; Distinct dedupes operand values by their
// lexical String() form before reducing.
func (e *Executor) computeAggregate(agg algebra.Aggregate, rows binding.Set) (rdf.Term, error) {
	if agg.Kind == algebra.AggCount && agg.Expr == nil {
		if agg.Distinct {
			seen := map[string]bool{}
			for _, row := range rows {
				seen[rowKey(row)] = true
			}
			return rdf.NewLiteralWithDatatype(fmt.Sprint(len(seen)), rdf.XSDInteger), nil
		}
		return rdf.NewLiteralWithDatatype(fmt.Sprint(len(rows)), rdf.XSDInteger), nil
	}

	values := make([]rdf.Term, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		v, err := e.eval.Eval(agg.Expr, row)
		if err != nil {
			continue
		}
		if agg.Distinct {
			key := v.String()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		values = append(values, v)
	}

	switch agg.Kind {
	case algebra.AggCount:
		return rdf.NewLiteralWithDatatype(fmt.Sprint(len(values)), rdf.XSDInteger), nil
	case algebra.AggSample:
		if len(values) == 0 {
			return nil, errs.UnboundVariable("aggregate over empty group")
		}
		return values[0], nil
	case algebra.AggGroupConcat:
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = lexicalForm(v)
		}
		return rdf.NewLiteral(joinStrings(parts, sep)), nil
	case algebra.AggSum, algebra.AggAvg, algebra.AggMin, algebra.AggMax:
		return reduceNumeric(agg.Kind, values)
	default:
		return nil, errs.Unsupported(fmt.Sprintf("aggregate kind %v", agg.Kind))
	}
}

// rowKey canonicalizes a binding row for COUNT(DISTINCT *) dedup: the
// variable names are sorted first so key order doesn't depend on map
// iteration order.
func rowKey(row binding.Binding) string {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	key := ""
	for _, n := range names {
		key += n + "=" + row[n].String() + "\x00"
	}
	return key
}

// lexicalForm returns a literal's Value, or a NamedNode's IRI, for use
// as GROUP_CONCAT's operand text.
func lexicalForm(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.Literal:
		return v.Value
	case *rdf.NamedNode:
		return v.IRI
	default:
		return t.String()
	}
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func reduceNumeric(kind algebra.AggregateKind, values []rdf.Term) (rdf.Term, error) {
	if len(values) == 0 {
		if kind == algebra.AggSum {
			return rdf.NewLiteralWithDatatype("0", rdf.XSDInteger), nil
		}
		return nil, errs.UnboundVariable("aggregate over empty group")
	}

	var sum float64
	best := values[0]
	bestFloat, firstLit, err := literalFloatOrZero(values[0])
	if err != nil {
		return nil, err
	}
	widest := firstLit.Datatype
	for _, v := range values {
		f, lit, err := literalFloatOrZero(v)
		if err != nil {
			return nil, err
		}
		sum += f
		widest = widerNumericType(widest, lit.Datatype)
		switch kind {
		case algebra.AggMin:
			if f < bestFloat {
				bestFloat, best = f, v
			}
		case algebra.AggMax:
			if f > bestFloat {
				bestFloat, best = f, v
			}
		}
	}

	switch kind {
	case algebra.AggSum:
		return numericLiteral(sum, widest), nil
	case algebra.AggAvg:
		// op:numeric-divide always widens at least to xsd:decimal, even
		// for two integer operands, per SPARQL's numeric type promotion.
		avgType := widest
		if avgType.IRI == rdf.XSDInteger.IRI {
			avgType = rdf.XSDDecimal
		}
		return numericLiteral(sum/float64(len(values)), avgType), nil
	case algebra.AggMin, algebra.AggMax:
		return best, nil
	default:
		return nil, errs.Unsupported(fmt.Sprintf("aggregate kind %v", kind))
	}
}

// widerNumericType picks the wider of two numeric datatypes, per
// SPARQL's integer -> decimal -> double promotion order.
func widerNumericType(a, b *rdf.NamedNode) *rdf.NamedNode {
	rank := func(dt *rdf.NamedNode) int {
		switch dt.IRI {
		case rdf.XSDDouble.IRI:
			return 3
		case rdf.XSDDecimal.IRI:
			return 2
		default:
			return 1
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

func numericLiteral(v float64, dt *rdf.NamedNode) *rdf.Literal {
	if dt.IRI == rdf.XSDInteger.IRI {
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("%d", int64(v)), dt)
	}
	return rdf.NewLiteralWithDatatype(fmt.Sprint(v), dt)
}

func literalFloatOrZero(t rdf.Term) (float64, *rdf.Literal, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return 0, nil, errs.Type("aggregate operand is not a numeric literal")
	}
	var f float64
	if _, err := fmt.Sscanf(lit.Value, "%g", &f); err != nil {
		return 0, nil, errs.Type("aggregate operand is not numeric: " + lit.Value)
	}
	return f, lit, nil
}

func dedupePairs(pairs [][2]rdf.Term) [][2]rdf.Term {
	seen := map[string]bool{}
	out := make([][2]rdf.Term, 0, len(pairs))
	for _, p := range pairs {
		key := p[0].String() + "\x00" + p[1].String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

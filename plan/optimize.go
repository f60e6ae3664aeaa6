package plan

import "github.com/gridtable/gridtable/table"

// Optimize applies a small, fixed set of rewrite rules bottom-up until
// no rule fires, then returns the rewritten tree. It is a concrete (if
// minimal) instance of the optimizer dependency sitting in front of
// the scheduler. The rewrite is not pure: child links of the input
// tree's nodes are replaced in place, so after the call the input tree
// is modified and shares nodes with the returned tree.
func Optimize(n Node) Node {
	for {
		rewritten, changed := rewriteOnce(n)
		n = rewritten
		if !changed {
			return n
		}
	}
}

func rewriteOnce(n Node) (Node, bool) {
	changed := false
	n, c := rewriteChildren(n)
	changed = changed || c
	n, c = applyRules(n)
	changed = changed || c
	return n, changed
}

func rewriteChildren(n Node) (Node, bool) {
	changed := false
	switch v := n.(type) {
	case *Project:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Filter:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Limit:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Aggregate:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Sort:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Repartition:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Write:
		v.Input, changed = rewriteOnce(v.Input)
		return v, changed
	case *Join:
		var lc, rc bool
		v.Left, lc = rewriteOnce(v.Left)
		v.Right, rc = rewriteOnce(v.Right)
		return v, lc || rc
	default:
		return n, false
	}
}

// applyRules tries every top-level rule once against n, returning the
// first rewrite that fires (if any).
func applyRules(n Node) (Node, bool) {
	if out, ok := mergeNestedLimits(n); ok {
		return out, true
	}
	if out, ok := mergeNestedFilters(n); ok {
		return out, true
	}
	if out, ok := pushLimitBelowProject(n); ok {
		return out, true
	}
	return n, false
}

// mergeNestedLimits collapses Limit(Limit(x, k1), k2) into Limit(x,
// min(k1, k2)): the inner limit is redundant once the outer is at
// least as tight.
func mergeNestedLimits(n Node) (Node, bool) {
	outer, ok := n.(*Limit)
	if !ok {
		return n, false
	}
	inner, ok := outer.Input.(*Limit)
	if !ok {
		return n, false
	}
	k := outer.K
	if inner.K < k {
		k = inner.K
	}
	return &Limit{Input: inner.Input, K: k}, true
}

// mergeNestedFilters collapses Filter(Filter(x, p1), p2) into a single
// Filter(x, p1 && p2), avoiding a wasted intermediate materialization.
func mergeNestedFilters(n Node) (Node, bool) {
	outer, ok := n.(*Filter)
	if !ok {
		return n, false
	}
	inner, ok := outer.Input.(*Filter)
	if !ok {
		return n, false
	}
	innerPred, outerPred := inner.Predicate, outer.Predicate
	combined := func(row table.RowView) bool {
		return innerPred(row) && outerPred(row)
	}
	return &Filter{Input: inner.Input, Predicate: combined}, true
}

// pushLimitBelowProject swaps Limit(Project(x, proj), k) into
// Project(Limit(x, k), proj): evaluating a projection never changes
// row count, so limiting first lets the projection do less work.
func pushLimitBelowProject(n Node) (Node, bool) {
	limit, ok := n.(*Limit)
	if !ok {
		return n, false
	}
	proj, ok := limit.Input.(*Project)
	if !ok {
		return n, false
	}
	return &Project{
		Input:      &Limit{Input: proj.Input, K: limit.K},
		Projection: proj.Projection,
	}, true
}

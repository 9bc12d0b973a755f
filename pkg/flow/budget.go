package flow

// MapBudgetOverlays attaches budgeted amounts to their target nodes.
//
// The lookup is derived from the flow edge set: a budget overlay whose target
// is not also a flow edge target (or not a rendered node) is a referential
// inconsistency and is skipped rather than failing the batch. Nodes absent
// from the resulting map have no budget data - the label formatter must not
// confuse that with a zero budget.
func MapBudgetOverlays(g *Graph) {
	if len(g.BudgetActual) == 0 {
		return
	}

	targets := make(map[string]struct{}, len(g.Links))
	for _, e := range g.Links {
		targets[e.Target] = struct{}{}
	}

	g.Actual = make(map[string]float64, len(g.BudgetActual))
	for _, e := range g.BudgetActual {
		if _, ok := targets[e.Target]; !ok {
			continue
		}
		if _, ok := g.Node(e.Target); !ok {
			continue
		}
		g.Actual[e.Target] = e.Value
	}
}

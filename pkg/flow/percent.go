package flow

// ComputePercents derives each node's share relative to its flow root.
//
// Edges are visited in the same input order as [PropagateTotals]; deep
// Expenses rebasing reads the parent's already-computed percent, so order
// matters here too.
//
// Per edge: if the target is an Income or Assets node the edge runs against
// the rendering convention (income edges point into their root), so source
// and target are swapped for this computation only. A (possibly swapped)
// Income or Assets source is a canonical root and gets percent 1.0. If the
// source's total is positive, the target's percent is its total as a share
// of the source's, rounded to two decimals. Expenses nodes deeper than two
// hierarchy segments are rebased by the parent's percent so the displayed
// number reads as "share of the top-level category" rather than "share of
// the immediate parent"; the rebased product is not re-rounded.
//
// A zero source total leaves the target's percent untouched (division guard).
func ComputePercents(g *Graph) {
	for _, e := range g.Links {
		src, dst := e.Source, e.Target
		if categoryFor(g, dst).IsFlowRoot() {
			src, dst = dst, src
		}

		srcNode, srcOK := g.Node(src)
		if categoryFor(g, src).IsFlowRoot() && srcOK {
			srcNode.Percent = 1.0
		}
		if !srcOK || srcNode.Total <= 0 {
			continue
		}

		dstNode, ok := g.Node(dst)
		if !ok {
			continue
		}
		p := round2(dstNode.Total / srcNode.Total)
		if dstNode.Category == CategoryExpenses && Depth(dstNode.ID) > 2 {
			p *= srcNode.Percent
		}
		dstNode.Percent = p
	}
}

// categoryFor prefers the decoded tag on a rendered node and falls back to
// parsing the ID for endpoints outside the rendered set.
func categoryFor(g *Graph, id string) Category {
	if n, ok := g.Node(id); ok {
		return n.Category
	}
	return CategoryOf(id)
}

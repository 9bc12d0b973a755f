package flow

// collapseVictim decides which endpoint of a collapsed edge is elided from
// the rendered node set. When the edge originates in an Assets, Expenses or
// Equity subtree the flow runs "downhill" and the target is the detail node
// being folded away; otherwise (Income and friends, where edges point into
// the root) the source is the detail node.
func collapseVictim(source, target string) string {
	switch CategoryOf(source) {
	case CategoryAssets, CategoryExpenses, CategoryEquity:
		return target
	default:
		return source
	}
}

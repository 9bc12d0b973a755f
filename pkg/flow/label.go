package flow

import (
	"fmt"
	"math"
)

// DefaultExcludePercent is the minimum percent-of-parent below which deep
// node labels are suppressed in percent mode.
const DefaultExcludePercent = 0.005

// FormatLabels renders the per-node caption. The mode is chosen once per
// graph: budget mode when any budget overlay is present, percent mode
// otherwise. Mixing modes within one graph is not supported.
//
// Suppression in percent mode is purely cosmetic - totals, percents and
// colors are computed for suppressed nodes like any other.
func FormatLabels(g *Graph, excludePercent float64) {
	if excludePercent <= 0 {
		excludePercent = DefaultExcludePercent
	}

	budgetMode := len(g.BudgetActual) > 0
	for _, n := range g.Nodes {
		if budgetMode {
			n.Label = budgetLabel(g, n)
		} else {
			n.Label = percentLabel(n, excludePercent)
		}
	}
}

// percentLabel formats "<name>: <total> (<percent>%)", suppressing nodes
// deeper than two hierarchy segments whose percent falls below the threshold.
func percentLabel(n *Node, excludePercent float64) string {
	if Depth(n.ID) > 2 && n.Percent < excludePercent {
		return ""
	}
	return fmt.Sprintf("%s: %.2f (%d%%)", ShortName(n.ID), n.Total, wholePercent(n.Percent))
}

// budgetLabel formats "<account> [<total>/<total-actual>] (<percent>%)".
// Nodes without budget data fall back to the plain caption; an actual of
// zero only renders as a bracket pair when the overlay really carried one.
func budgetLabel(g *Graph, n *Node) string {
	suffix := AccountPath(n.ID)
	actual, ok := g.Actual[n.ID]
	if !ok {
		return fmt.Sprintf("%s: %.2f (%d%%)", suffix, n.Total, wholePercent(n.Percent))
	}
	return fmt.Sprintf("%s [%.2f/%.2f] (%d%%)", suffix, n.Total, n.Total-actual, wholePercent(n.Percent))
}

func wholePercent(p float64) int {
	return int(math.Round(p * 100))
}

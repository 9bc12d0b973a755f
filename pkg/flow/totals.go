package flow

import "math"

// roundEpsilon counters binary floating-point drift in currency sums before
// rounding to cents.
const roundEpsilon = 1e-9

// round2 rounds a currency amount to two decimal places with a small epsilon
// bias, matching the wire format's rounding contract.
func round2(x float64) float64 {
	return math.Round((x+roundEpsilon)*100) / 100
}

// PropagateTotals assigns each node its cumulative monetary total in a single
// forward pass over the flow edges in input order.
//
// The pass is not a topological sort: it relies on the upstream feed emitting
// root edges before the edges that consume them. That ordering is a
// documented precondition of the input protocol; [Graph.Validate] can detect
// feeds that cannot satisfy it (cycles), but reordering here would change
// numeric output and is deliberately avoided.
//
// For each edge, a source with no incoming flow edges (a root such as Income
// or Assets) accumulates the edge value into its own total, so roots with
// multiple outgoing splits build up their total from their children's slices.
// The target always accumulates the edge value. Every update is rounded to
// cents, so per-node totals are monotonically non-decreasing in edge order.
//
// Edges whose endpoints are not rendered nodes accumulate into a scratch
// slot: a referential inconsistency stays zero-effect instead of failing the
// batch. MaxTotal tracks the running maximum over rendered nodes for the
// external layout's scale decisions.
func PropagateTotals(g *Graph) {
	inDegree := make(map[string]int, len(g.Nodes))
	for _, e := range g.Links {
		inDegree[e.Target]++
	}

	scratch := make(map[string]float64)
	add := func(id string, v float64) {
		if n, ok := g.Node(id); ok {
			n.Total = round2(n.Total + v)
			if n.Total > g.MaxTotal {
				g.MaxTotal = n.Total
			}
			return
		}
		scratch[id] = round2(scratch[id] + v)
	}

	for _, e := range g.Links {
		if inDegree[e.Source] == 0 {
			add(e.Source, e.Value)
		}
		add(e.Target, e.Value)
	}
}

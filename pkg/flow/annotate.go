// Package flow implements the flow-graph aggregation engine behind financial
// Sankey-style diagrams: decoding the raw wire payload into a typed graph,
// resolving node collapsing, propagating cumulative totals, deriving
// percent-of-root shares, attaching budget-vs-actual overlays, and assigning
// deterministic labels and colors.
//
// The package deliberately stops where geometry begins: the annotated graph
// is handed to an external directed-flow layout that assigns node and link
// positions. Nothing in here is concurrent - every stage is a pure pass over
// an exclusively-owned Graph, rebuilt wholesale on each interval change.
package flow

// Options configures annotation. The zero value uses the defaults.
type Options struct {
	// ExcludePercent is the minimum percent-of-parent below which labels of
	// nodes deeper than two hierarchy segments are suppressed in percent
	// mode. Defaults to [DefaultExcludePercent].
	ExcludePercent float64

	// Palette overrides the ordinal link palette. Defaults to
	// [DefaultPalette].
	Palette []string
}

// Annotate runs the full derivation pipeline over a decoded graph, in order:
// totals, percents, budget overlays, labels, colors. The edge-order
// precondition documented on [PropagateTotals] applies.
func Annotate(g *Graph, opts Options) {
	PropagateTotals(g)
	ComputePercents(g)
	MapBudgetOverlays(g)
	FormatLabels(g, opts.ExcludePercent)
	AssignColors(g, NewOrdinalPalette(opts.Palette))
}

// Build decodes raw records and annotates the resulting graph in one step.
func Build(records []Record, opts Options) (*Graph, error) {
	g, err := Decode(records)
	if err != nil {
		return nil, err
	}
	Annotate(g, opts)
	return g, nil
}

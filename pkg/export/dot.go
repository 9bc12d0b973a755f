package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/ledgerflow/flowchart/pkg/flow"
)

// DOTOptions configures the Graphviz preview.
type DOTOptions struct {
	// ShowCollapsed includes collapsed edges as dashed grey links.
	ShowCollapsed bool
}

// ToDOT converts an annotated graph to Graphviz DOT format for a quick
// left-to-right preview of the flow structure. Node fills use the assigned
// hash colors and labels use the formatted captions; the result approximates
// hue grouping but is not the production Sankey rendering.
func ToDOT(g *flow.Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph flows {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.7;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := n.Label
		if label == "" {
			label = flow.ShortName(n.ID)
		}
		attrs := []string{
			fmt.Sprintf("label=%q", label),
			fmt.Sprintf("fillcolor=%q", n.Color),
			"fontcolor=white",
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Links {
		fmt.Fprintf(&buf, "  %q -> %q [color=%q, penwidth=%.1f];\n", e.Source, e.Target, e.Color, penwidth(g, e))
	}
	if opts.ShowCollapsed {
		for _, e := range g.CollapsedLinks {
			fmt.Fprintf(&buf, "  %q -> %q [color=grey, style=dashed];\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// penwidth scales edge thickness by value relative to the largest total,
// clamped so tiny flows stay visible.
func penwidth(g *flow.Graph, e *flow.Edge) float64 {
	if g.MaxTotal <= 0 {
		return 1
	}
	w := 1 + 4*e.Value/g.MaxTotal
	if w < 1 {
		w = 1
	}
	return w
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

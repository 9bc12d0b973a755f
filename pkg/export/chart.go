// Package export converts annotated flow graphs into the formats handed to
// external consumers: the chart JSON the layout engine ingests, and a
// Graphviz DOT / SVG preview for development.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ledgerflow/flowchart/pkg/flow"
)

// Chart is the canonical serialization of an annotated flow graph, ready for
// a generic directed-flow layout algorithm to assign geometry. Node width
// and padding are forwarded untouched from configuration; the core never
// reads them.
type Chart struct {
	Nodes          []ChartNode `json:"nodes" bson:"nodes"`
	Links          []ChartLink `json:"links" bson:"links"`
	CollapsedLinks []ChartLink `json:"collapsed_links,omitempty" bson:"collapsed_links,omitempty"`
	MaxTotal       float64     `json:"max_total" bson:"max_total"`
	NodeWidth      float64     `json:"node_width,omitempty" bson:"node_width,omitempty"`
	NodePadding    float64     `json:"node_padding,omitempty" bson:"node_padding,omitempty"`
}

// ChartNode is a fully-annotated node.
type ChartNode struct {
	ID      string  `json:"id" bson:"id"`
	Total   float64 `json:"total" bson:"total"`
	Percent float64 `json:"percent" bson:"percent"`
	Label   string  `json:"label" bson:"label"`
	Color   string  `json:"color" bson:"color"`
}

// ChartLink is a directed, valued, colored link.
type ChartLink struct {
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Value  float64 `json:"value" bson:"value"`
	Color  string  `json:"color,omitempty" bson:"color,omitempty"`
}

// LayoutOptions carries the pass-through options for the external layout.
type LayoutOptions struct {
	NodeWidth   float64
	NodePadding float64
}

// FromGraph converts an annotated graph into its chart serialization.
// Node and link order follow the graph, so identical graphs serialize
// identically.
func FromGraph(g *flow.Graph, opts LayoutOptions) Chart {
	chart := Chart{
		Nodes:       make([]ChartNode, len(g.Nodes)),
		Links:       make([]ChartLink, len(g.Links)),
		MaxTotal:    g.MaxTotal,
		NodeWidth:   opts.NodeWidth,
		NodePadding: opts.NodePadding,
	}
	for i, n := range g.Nodes {
		chart.Nodes[i] = ChartNode{
			ID:      n.ID,
			Total:   n.Total,
			Percent: n.Percent,
			Label:   n.Label,
			Color:   n.Color,
		}
	}
	for i, e := range g.Links {
		chart.Links[i] = ChartLink{Source: e.Source, Target: e.Target, Value: e.Value, Color: e.Color}
	}
	for _, e := range g.CollapsedLinks {
		chart.CollapsedLinks = append(chart.CollapsedLinks, ChartLink{Source: e.Source, Target: e.Target, Value: e.Value})
	}
	return chart
}

// MarshalChart serializes a chart to indented JSON bytes.
func MarshalChart(c Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeChartTo(c, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteChart writes a chart as JSON to an io.Writer.
func WriteChart(c Chart, w io.Writer) error {
	return writeChartTo(c, w)
}

// WriteChartFile writes a chart to a JSON file.
// The file is created with 0644 permissions.
func WriteChartFile(c Chart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeChartTo(c, f)
}

// UnmarshalChart deserializes JSON bytes to a Chart.
func UnmarshalChart(data []byte) (Chart, error) {
	var c Chart
	if err := json.Unmarshal(data, &c); err != nil {
		return Chart{}, err
	}
	return c, nil
}

func writeChartTo(c Chart, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

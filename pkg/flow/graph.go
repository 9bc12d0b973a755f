package flow

import (
	"encoding/json"
	"errors"
	"sort"
)

var (
	// ErrGraphHasCycle is returned by [Graph.Validate] when the flow edge set
	// contains a directed cycle. Totals propagation assumes an acyclic feed.
	ErrGraphHasCycle = errors.New("flow graph contains a cycle")

	// ErrDanglingEndpoint is returned by [Graph.Validate] when a flow or
	// budget edge references a node ID that is neither in the rendered node
	// set nor excluded by collapsing. Such edges are tolerated at runtime
	// (they contribute zero-effect totals) but indicate a bad upstream feed.
	ErrDanglingEndpoint = errors.New("edge references unknown node")
)

// Node is a financial account in the flow graph, identified by a hierarchical
// colon-delimited path that may carry an underscore-delimited prefix tag.
// Total, Percent, Label and Color are derived annotations filled in by
// [Annotate]; they are zero until then.
type Node struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Total    float64  `json:"total"`
	Percent  float64  `json:"percent"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
}

// Edge is a directed, valued transfer between two accounts within the
// reporting interval. Color is assigned for flow edges only.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
	Color  string  `json:"color,omitempty"`
}

// Graph is a decoded flow graph. Links drive totals, percents and rendering;
// CollapsedLinks are retained for inspection only; BudgetActual carries
// budgeted amounts keyed by target. A Graph is rebuilt fresh for every
// reporting interval - there is no incremental mutation path.
type Graph struct {
	Nodes          []*Node
	Links          []*Edge
	CollapsedLinks []*Edge
	BudgetActual   []*Edge

	// Actual maps node IDs to their budgeted amount. Filled by
	// [MapBudgetOverlays]; absence of a key means "no budget data" for that
	// node, which is distinct from a zero budget.
	Actual map[string]float64

	// MaxTotal is the largest node total seen during propagation. The
	// external layout uses it for scale decisions; the core does not.
	MaxTotal float64

	index    map[string]int
	excluded map[string]struct{}
}

// NewGraph creates an empty flow graph.
func NewGraph() *Graph {
	return &Graph{
		index:    make(map[string]int),
		excluded: make(map[string]struct{}),
	}
}

// AddNode appends a node for the given ID unless it is already present or has
// been excluded by the collapse resolver. The node's Category is derived from
// the ID. Returns the node and whether it was newly added.
func (g *Graph) AddNode(id string) (*Node, bool) {
	if _, dropped := g.excluded[id]; dropped {
		return nil, false
	}
	if i, ok := g.index[id]; ok {
		return g.Nodes[i], false
	}
	n := &Node{ID: id, Category: CategoryOf(id)}
	g.index[id] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return n, true
}

// Node returns the node with the given ID, or nil and false if it is not part
// of the rendered node set.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.Nodes[i], true
}

// Excluded reports whether the collapse resolver removed the ID from the
// rendered node set.
func (g *Graph) Excluded(id string) bool {
	_, ok := g.excluded[id]
	return ok
}

// NodeCount returns the number of rendered nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of flow edges (collapsed and budget edges are
// not counted).
func (g *Graph) EdgeCount() int { return len(g.Links) }

// Validate checks the structural preconditions totals propagation relies on:
// every flow and budget edge endpoint resolves to a known or excluded node,
// and the flow edge set is acyclic. Violations are diagnostic - decoding and
// annotation never fail on them - but a feed that trips Validate will produce
// zero-effect totals for the offending edges.
func (g *Graph) Validate() error {
	for _, e := range g.Links {
		if err := g.checkEndpoint(e.Source); err != nil {
			return err
		}
		if err := g.checkEndpoint(e.Target); err != nil {
			return err
		}
	}
	for _, e := range g.BudgetActual {
		if err := g.checkEndpoint(e.Target); err != nil {
			return err
		}
	}
	return g.detectCycles()
}

func (g *Graph) checkEndpoint(id string) error {
	if _, ok := g.index[id]; ok {
		return nil
	}
	if _, ok := g.excluded[id]; ok {
		return nil
	}
	return ErrDanglingEndpoint
}

// detectCycles runs a white/gray/black depth-first search over the flow edges.
func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	children := make(map[string][]string, len(g.index))
	for _, e := range g.Links {
		children[e.Source] = append(children[e.Source], e.Target)
	}

	color := make(map[string]int, len(children))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range children[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for id := range children {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// graphJSON is the serialization shape for Graph. The exclusion set travels
// as a sorted slice so a round-trip reproduces collapse decisions.
type graphJSON struct {
	Nodes          []*Node            `json:"nodes"`
	Links          []*Edge            `json:"links"`
	CollapsedLinks []*Edge            `json:"collapsed_links,omitempty"`
	BudgetActual   []*Edge            `json:"budget_actual,omitempty"`
	Actual         map[string]float64 `json:"actual,omitempty"`
	MaxTotal       float64            `json:"max_total,omitempty"`
	Excluded       []string           `json:"excluded,omitempty"`
}

// MarshalJSON serializes the graph including its exclusion set.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		Nodes:          g.Nodes,
		Links:          g.Links,
		CollapsedLinks: g.CollapsedLinks,
		BudgetActual:   g.BudgetActual,
		Actual:         g.Actual,
		MaxTotal:       g.MaxTotal,
	}
	for id := range g.excluded {
		out.Excluded = append(out.Excluded, id)
	}
	sort.Strings(out.Excluded) // deterministic output keeps graph hashes stable
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the graph, including its internal indices, from the
// serialized form produced by MarshalJSON.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	g.Nodes = in.Nodes
	g.Links = in.Links
	g.CollapsedLinks = in.CollapsedLinks
	g.BudgetActual = in.BudgetActual
	g.Actual = in.Actual
	g.MaxTotal = in.MaxTotal
	g.index = make(map[string]int, len(in.Nodes))
	for i, n := range in.Nodes {
		g.index[n.ID] = i
	}
	g.excluded = make(map[string]struct{}, len(in.Excluded))
	for _, id := range in.Excluded {
		g.excluded[id] = struct{}{}
	}
	return nil
}

package flow

import "fmt"

// DefaultPalette is the ordinal palette used for link coloring when the
// caller does not supply one. The hues follow the d3 category scheme the
// rendering layer was originally built against.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// OrdinalPalette assigns stable colors to top-level category strings in
// first-seen order, reusing hues once the palette is exhausted. A palette
// instance is stable for the lifetime of one rendered graph; different
// graphs may assign different hues to the same category.
type OrdinalPalette struct {
	colors []string
	seen   map[string]int
}

// NewOrdinalPalette creates a palette over the given colors, falling back to
// [DefaultPalette] when colors is empty.
func NewOrdinalPalette(colors []string) *OrdinalPalette {
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	return &OrdinalPalette{colors: colors, seen: make(map[string]int)}
}

// Color returns the color for a category key, assigning the next palette
// slot on first sight.
func (p *OrdinalPalette) Color(key string) string {
	i, ok := p.seen[key]
	if !ok {
		i = len(p.seen)
		p.seen[key] = i
	}
	return p.colors[i%len(p.colors)]
}

// HashColor derives a deterministic color from a node ID: character codes
// mixed with the shift-and-subtract step of the classic string hash, reduced
// to 24 bits and rendered as a zero-padded hex triplet. The same ID yields
// the same color across independent renders with no shared palette table.
// The mix runs in int32 to reproduce the 32-bit overflow the original
// renderer's hash relies on.
func HashColor(id string) string {
	var hash int32
	for _, r := range id {
		hash = int32(r) + ((hash << 5) - hash)
	}
	return fmt.Sprintf("#%06x", uint32(hash)&0xFFFFFF)
}

// AssignColors colors every node by ID hash and every flow edge by the
// ordinal palette. Link rules, first match wins:
//
//  1. both endpoints in Income: color by the source's category
//  2. only the source in Income: color by the target's category
//  3. source is a top-level account (no sub-account segment): color by the
//     target's category
//  4. otherwise: color by the source's category
//
// This groups hues per category subtree. Collapsed and budget edges are not
// rendered by default and stay uncolored.
func AssignColors(g *Graph, palette *OrdinalPalette) {
	if palette == nil {
		palette = NewOrdinalPalette(nil)
	}

	for _, n := range g.Nodes {
		n.Color = HashColor(n.ID)
	}

	for _, e := range g.Links {
		srcIncome := categoryFor(g, e.Source) == CategoryIncome
		dstIncome := categoryFor(g, e.Target) == CategoryIncome
		switch {
		case srcIncome && dstIncome:
			e.Color = palette.Color(TopCategory(e.Source))
		case srcIncome:
			e.Color = palette.Color(TopCategory(e.Target))
		case Depth(e.Source) == 1:
			e.Color = palette.Color(TopCategory(e.Target))
		default:
			e.Color = palette.Color(TopCategory(e.Source))
		}
	}
}

package flow

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/flowchart/pkg/errors"
)

// collapsedMarker is the literal second token that tags an edge for
// collapsing in the wire format ("500 collapsed").
const collapsedMarker = "collapsed"

// Decode merges raw records into a single flow graph.
//
// Per link tuple, the value token is split on whitespace:
//   - one numeric token: a plain flow edge
//   - a numeric token followed by "collapsed": a collapsed edge; the collapse
//     resolver marks one endpoint excluded from the rendered node set
//   - two numeric tokens: a flow edge (first token) plus a budget overlay
//     edge (second token) on the same source/target
//
// Tuples with any other shape are dropped without failing the batch. Edges
// are emitted in input order across all records; the totals and percent
// passes depend on that order being preserved. Node IDs are appended after
// all tuples are processed so that collapse exclusions from any record apply
// to the whole merged graph.
//
// Decode only fails on schema violations: a nodes_ss or links_ss field that
// does not decode to its expected JSON shape.
func Decode(records []Record) (*Graph, error) {
	type rawRecord struct {
		nodes []string
		links [][]string
	}

	parsed := make([]rawRecord, 0, len(records))
	for i, rec := range records {
		var raw rawRecord
		if err := json.Unmarshal([]byte(rec.NodesSS), &raw.nodes); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "record %d: nodes_ss is not a JSON string array", i)
		}
		if err := json.Unmarshal([]byte(rec.LinksSS), &raw.links); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "record %d: links_ss is not a JSON tuple array", i)
		}
		parsed = append(parsed, raw)
	}

	g := NewGraph()

	for _, rec := range parsed {
		for _, tup := range rec.links {
			if len(tup) != 3 {
				continue // dropped, same recovery as a malformed token
			}
			decodeTuple(g, tup[0], tup[1], tup[2])
		}
	}

	for _, rec := range parsed {
		for _, id := range rec.nodes {
			g.AddNode(id)
		}
	}

	return g, nil
}

// decodeTuple classifies one link tuple and appends the resulting edges.
func decodeTuple(g *Graph, source, target, token string) {
	fields := strings.Fields(token)
	switch len(fields) {
	case 1:
		value, ok := parseAmount(fields[0])
		if !ok {
			return
		}
		g.Links = append(g.Links, &Edge{Source: source, Target: target, Value: value})

	case 2:
		if fields[1] == collapsedMarker {
			value, ok := parseAmount(fields[0])
			if !ok {
				return
			}
			g.CollapsedLinks = append(g.CollapsedLinks, &Edge{Source: source, Target: target, Value: value})
			g.excluded[collapseVictim(source, target)] = struct{}{}
			return
		}
		value, okV := parseAmount(fields[0])
		budget, okB := parseAmount(fields[1])
		if !okV || !okB {
			return
		}
		g.Links = append(g.Links, &Edge{Source: source, Target: target, Value: value})
		g.BudgetActual = append(g.BudgetActual, &Edge{Source: source, Target: target, Value: budget})

	default:
		// Unexpected token count, drop the tuple and keep the batch alive.
	}
}

// parseAmount parses a monetary token. Amounts are parsed through decimal so
// that currency strings survive exactly; the graph carries float64 because
// the downstream rounding contract is defined over binary floats.
func parseAmount(token string) (float64, bool) {
	d, err := decimal.NewFromString(token)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

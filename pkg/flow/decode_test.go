package flow

import (
	"encoding/json"
	"reflect"
	"testing"
)

// makeRecord builds a wire record from already-typed nodes and link tuples.
func makeRecord(t *testing.T, nodes []string, links [][]string) Record {
	t.Helper()
	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		t.Fatalf("marshal nodes: %v", err)
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		t.Fatalf("marshal links: %v", err)
	}
	return Record{NodesSS: string(nodesJSON), LinksSS: string(linksJSON)}
}

func TestDecodePlainFlow(t *testing.T) {
	rec := makeRecord(t,
		[]string{"Income", "Income:Job", "Expenses:Food"},
		[][]string{
			{"Income:Job", "Income", "100"},
			{"Income", "Expenses:Food", "40"},
		})

	g, err := Decode([]Record{rec})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got, want := g.NodeCount(), 3; got != want {
		t.Errorf("NodeCount() = %d, want %d", got, want)
	}
	if got, want := g.EdgeCount(), 2; got != want {
		t.Errorf("EdgeCount() = %d, want %d", got, want)
	}
	if got := g.Links[0]; got.Source != "Income:Job" || got.Target != "Income" || got.Value != 100 {
		t.Errorf("Links[0] = %+v, want Income:Job->Income 100", got)
	}
	if n, ok := g.Node("Expenses:Food"); !ok || n.Category != CategoryExpenses {
		t.Errorf("Node(Expenses:Food) = %+v, %v; want Expenses category node", n, ok)
	}
}

func TestDecodeBudgetToken(t *testing.T) {
	rec := makeRecord(t,
		[]string{"Income", "Expenses:Food"},
		[][]string{{"Income", "Expenses:Food", "40 50"}})

	g, err := Decode([]Record{rec})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(g.Links) != 1 || g.Links[0].Value != 40 {
		t.Fatalf("Links = %+v, want one flow edge of 40", g.Links)
	}
	if len(g.BudgetActual) != 1 || g.BudgetActual[0].Value != 50 {
		t.Fatalf("BudgetActual = %+v, want one overlay edge of 50", g.BudgetActual)
	}
	if g.BudgetActual[0].Target != "Expenses:Food" {
		t.Errorf("overlay target = %q, want Expenses:Food", g.BudgetActual[0].Target)
	}
}

func TestDecodeCollapsed(t *testing.T) {
	tests := []struct {
		name         string
		source       string
		target       string
		wantExcluded string
	}{
		{"expenses source folds target", "Expenses:Rent", "Assets:Bank", "Assets:Bank"},
		{"assets source folds target", "Assets:Bank", "Assets:Bank:Sub", "Assets:Bank:Sub"},
		{"equity source folds target", "Equity:Opening", "Assets:Bank", "Assets:Bank"},
		{"income source folds source", "Income:Job", "Income", "Income:Job"},
		{"liabilities source folds source", "Liabilities:Card", "Expenses:Fees", "Liabilities:Card"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := makeRecord(t,
				[]string{tt.source, tt.target},
				[][]string{{tt.source, tt.target, "500 collapsed"}})

			g, err := Decode([]Record{rec})
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if len(g.Links) != 0 {
				t.Errorf("Links = %+v, want none", g.Links)
			}
			if len(g.CollapsedLinks) != 1 || g.CollapsedLinks[0].Value != 500 {
				t.Fatalf("CollapsedLinks = %+v, want one edge of 500", g.CollapsedLinks)
			}
			if !g.Excluded(tt.wantExcluded) {
				t.Errorf("Excluded(%q) = false, want true", tt.wantExcluded)
			}
			if _, ok := g.Node(tt.wantExcluded); ok {
				t.Errorf("excluded node %q is in the rendered set", tt.wantExcluded)
			}
		})
	}
}

func TestDecodeDropsMalformedTokens(t *testing.T) {
	rec := makeRecord(t,
		[]string{"Income", "Expenses:Food", "Expenses:Rent"},
		[][]string{
			{"Income", "Expenses:Food", "40"},
			{"Income", "Expenses:Rent", "abc def ghi"}, // three tokens, dropped
			{"Income", "Expenses:Rent", "oops"},        // non-numeric, dropped
			{"Income", "Expenses:Rent"},                // short tuple, dropped
			{"Income", "Expenses:Rent", "60"},
		})

	g, err := Decode([]Record{rec})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got, want := g.EdgeCount(), 2; got != want {
		t.Errorf("EdgeCount() = %d, want %d", got, want)
	}
	if got, want := g.NodeCount(), 3; got != want {
		t.Errorf("NodeCount() = %d, want %d", got, want)
	}
	if g.Links[1].Value != 60 {
		t.Errorf("surviving edge value = %v, want 60", g.Links[1].Value)
	}
}

func TestDecodeIdempotent(t *testing.T) {
	recs := []Record{
		makeRecord(t,
			[]string{"Income", "Income:Job", "Expenses:Food"},
			[][]string{
				{"Income:Job", "Income", "100"},
				{"Income", "Expenses:Food", "40 50"},
			}),
		makeRecord(t,
			[]string{"Expenses:Rent", "Assets:Bank"},
			[][]string{{"Expenses:Rent", "Assets:Bank", "500 collapsed"}}),
	}

	first, err := Decode(recs)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second, err := Decode(recs)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !reflect.DeepEqual(first.Nodes, second.Nodes) {
		t.Errorf("node sets differ between identical decodes")
	}
	if !reflect.DeepEqual(first.Links, second.Links) {
		t.Errorf("flow edges differ between identical decodes")
	}
	if !reflect.DeepEqual(first.CollapsedLinks, second.CollapsedLinks) {
		t.Errorf("collapsed edges differ between identical decodes")
	}
	if !reflect.DeepEqual(first.BudgetActual, second.BudgetActual) {
		t.Errorf("budget edges differ between identical decodes")
	}
}

func TestDecodeExclusionSpansRecords(t *testing.T) {
	// The collapse comes from the second record but must still drop the node
	// listed by the first.
	recs := []Record{
		makeRecord(t, []string{"Assets:Bank"}, nil),
		makeRecord(t,
			[]string{"Expenses:Rent"},
			[][]string{{"Expenses:Rent", "Assets:Bank", "500 collapsed"}}),
	}

	g, err := Decode(recs)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, ok := g.Node("Assets:Bank"); ok {
		t.Errorf("Assets:Bank rendered despite collapse in a later record")
	}
}

func TestDecodeRejectsBadRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"nodes not json", Record{NodesSS: "not json", LinksSS: "[]"}},
		{"links not json", Record{NodesSS: "[]", LinksSS: "{"}},
		{"links wrong shape", Record{NodesSS: "[]", LinksSS: `{"a":1}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]Record{tt.rec}); err == nil {
				t.Errorf("Decode() error = nil, want schema violation")
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	payload := `[{"nodes_ss": "[\"Income\"]", "links_ss": "[]"}]`
	records, err := DecodePayload([]byte(payload))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if len(records) != 1 || records[0].NodesSS != `["Income"]` {
		t.Errorf("records = %+v, want one record", records)
	}

	if _, err := DecodePayload([]byte(`{"not": "an array"}`)); err == nil {
		t.Errorf("DecodePayload() error = nil for non-array payload, want error")
	}
}

package flow

import (
	"regexp"
	"testing"
)

func TestHashColor(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", "#000000"},
		{"a", "#000061"},
		{"ab", "#000c21"},
	}
	for _, tt := range tests {
		if got := HashColor(tt.id); got != tt.want {
			t.Errorf("HashColor(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestHashColorDeterministicAndWellFormed(t *testing.T) {
	hexColor := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	ids := []string{"Income", "Income:Job", "Expenses:Food:Coffee", "100_Assets:Bank"}
	for _, id := range ids {
		first := HashColor(id)
		if !hexColor.MatchString(first) {
			t.Errorf("HashColor(%q) = %q, not a hex triplet", id, first)
		}
		if second := HashColor(id); second != first {
			t.Errorf("HashColor(%q) unstable: %q then %q", id, first, second)
		}
	}
}

func TestOrdinalPaletteFirstSeenOrder(t *testing.T) {
	p := NewOrdinalPalette([]string{"#111111", "#222222", "#333333"})

	if got := p.Color("Expenses"); got != "#111111" {
		t.Errorf("first key = %q, want first palette slot", got)
	}
	if got := p.Color("Income"); got != "#222222" {
		t.Errorf("second key = %q, want second palette slot", got)
	}
	if got := p.Color("Expenses"); got != "#111111" {
		t.Errorf("repeated key = %q, want stable assignment", got)
	}
	// Exhaustion wraps around.
	p.Color("Assets")
	if got := p.Color("Equity"); got != "#111111" {
		t.Errorf("fourth key = %q, want wrap to first slot", got)
	}
}

func TestAssignColorsLinkRules(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  string
		wantKey string // the category whose palette slot the edge should use
	}{
		{"income to income uses source", "Income:Job", "Income", "Income"},
		{"income to expenses uses target", "Income", "Expenses:Food", "Expenses"},
		{"top-level source uses target", "Equity", "Expenses:Food", "Expenses"},
		{"nested source uses source", "Liabilities:Card", "Expenses:Interest", "Liabilities"},
		{"nested non-income uses source", "Assets:Bank", "Liabilities:Card", "Assets"},
	}
	// Pre-seed the palette so every category has a distinct, known slot;
	// otherwise any single edge would trivially land on slot zero.
	seed := func() *OrdinalPalette {
		p := NewOrdinalPalette(nil)
		for _, key := range []string{"Income", "Expenses", "Assets", "Liabilities", "Equity"} {
			p.Color(key)
		}
		return p
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t,
				[]string{tt.source, tt.target},
				[]*Edge{{Source: tt.source, Target: tt.target, Value: 10}})

			want := seed().Color(tt.wantKey)
			AssignColors(g, seed())

			if got := g.Links[0].Color; got != want {
				t.Errorf("edge color = %q, want %q (slot for %s)", got, want, tt.wantKey)
			}
		})
	}
}

func TestAssignColorsNodesAndUncoloredEdges(t *testing.T) {
	g := buildGraph(t,
		[]string{"Income", "Expenses:Food"},
		[]*Edge{{Source: "Income", Target: "Expenses:Food", Value: 10}})
	g.CollapsedLinks = []*Edge{{Source: "Expenses:Rent", Target: "Assets:Bank", Value: 500}}
	g.BudgetActual = []*Edge{{Source: "Income", Target: "Expenses:Food", Value: 20}}

	AssignColors(g, nil)

	for _, n := range g.Nodes {
		if n.Color != HashColor(n.ID) {
			t.Errorf("%s.Color = %q, want %q", n.ID, n.Color, HashColor(n.ID))
		}
	}
	if g.CollapsedLinks[0].Color != "" {
		t.Errorf("collapsed edge colored %q, want uncolored", g.CollapsedLinks[0].Color)
	}
	if g.BudgetActual[0].Color != "" {
		t.Errorf("budget edge colored %q, want uncolored", g.BudgetActual[0].Color)
	}
}

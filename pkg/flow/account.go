package flow

import "strings"

// Category is the top-level account class a node belongs to. It is derived
// once from the node ID during decoding; all downstream rules (direction
// swapping, collapsing, percent rebasing, link coloring) branch on this tag
// instead of re-parsing ID strings.
type Category int

const (
	// CategoryOther covers accounts outside the five standard classes.
	CategoryOther Category = iota
	// CategoryIncome accounts are flow roots for income statements.
	CategoryIncome
	// CategoryExpenses accounts receive outgoing flows.
	CategoryExpenses
	// CategoryAssets accounts are flow roots for balance-style views.
	CategoryAssets
	// CategoryLiabilities accounts mirror assets on the credit side.
	CategoryLiabilities
	// CategoryEquity accounts close the accounting equation.
	CategoryEquity
)

// String returns the canonical account-path spelling of the category.
func (c Category) String() string {
	switch c {
	case CategoryIncome:
		return "Income"
	case CategoryExpenses:
		return "Expenses"
	case CategoryAssets:
		return "Assets"
	case CategoryLiabilities:
		return "Liabilities"
	case CategoryEquity:
		return "Equity"
	default:
		return "Other"
	}
}

// IsFlowRoot reports whether nodes of this category anchor a flow subtree.
// Income and Assets nodes are the canonical 100% roots of a rendered diagram.
func (c Category) IsFlowRoot() bool {
	return c == CategoryIncome || c == CategoryAssets
}

// TopCategory extracts the top-level category token from a node ID: the
// segment preceding the first colon, with any underscore-delimited prefix tag
// stripped ("100_Income:Job" → "Income").
func TopCategory(id string) string {
	head, _, _ := strings.Cut(id, ":")
	if i := strings.LastIndex(head, "_"); i >= 0 {
		head = head[i+1:]
	}
	return head
}

// CategoryOf maps a node ID to its Category via TopCategory.
func CategoryOf(id string) Category {
	switch TopCategory(id) {
	case "Income":
		return CategoryIncome
	case "Expenses":
		return CategoryExpenses
	case "Assets":
		return CategoryAssets
	case "Liabilities":
		return CategoryLiabilities
	case "Equity":
		return CategoryEquity
	default:
		return CategoryOther
	}
}

// Depth returns the hierarchy depth of a node ID, counted in colon-delimited
// segments ("Expenses:Food:Coffee" → 3). Prefix tags do not affect depth.
func Depth(id string) int {
	return strings.Count(id, ":") + 1
}

// ShortName derives the display name for a node: the last colon segment of
// its ID, with anything up to the last underscore stripped. This is what the
// percent-mode label shows.
func ShortName(id string) string {
	name := id
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// AccountPath strips the underscore-delimited prefix tag from a node ID,
// returning the bare account path ("100_Expenses:Food" → "Expenses:Food").
// IDs without a prefix tag are returned unchanged.
func AccountPath(id string) string {
	if i := strings.Index(id, "_"); i >= 0 && (strings.Index(id, ":") < 0 || i < strings.Index(id, ":")) {
		return id[i+1:]
	}
	return id
}

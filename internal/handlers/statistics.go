package handlers

import (
	"sort"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category   string
	Total      string
	Count      int
	Percentage float64
	// Width is Percentage clamped to [0, 100] for the bar chart.
	Width float64
	Style CategoryStyle
}

var hundred = decimal.NewFromInt(100)

// categoryItems turns the summary into dashboard rows, biggest spend first
// and alphabetical on ties.
func categoryItems(summary models.Summary, expenses []models.Expense) []StatsCategoryItem {
	counts := make(map[string]int, len(summary.Categories))
	for _, e := range expenses {
		counts[e.Category]++
	}

	items := make([]StatsCategoryItem, 0, len(summary.Categories))
	for _, name := range summary.CategoryNames() {
		total := summary.Categories[name]

		percentage := 0.0
		if !summary.Total.IsZero() {
			percentage = total.Div(summary.Total).Mul(hundred).InexactFloat64()
		}

		items = append(items, StatsCategoryItem{
			Category:   name,
			Total:      total.StringFixed(2),
			Count:      counts[name],
			Percentage: percentage,
			Width:      min(max(percentage, 0), 100),
			Style:      getCategoryStyle(name),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return summary.Categories[items[i].Category].GreaterThan(summary.Categories[items[j].Category])
	})
	return items
}

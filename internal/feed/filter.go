package feed

import (
	"strings"

	"github.com/samber/lo"
)

// Filter returns the items whose title or description contains query
// (case-insensitive) and whose category equals category exactly. Empty
// predicates match everything. Order is preserved.
func Filter(items []Item, query, category string) []Item {
	q := strings.ToLower(query)

	return lo.Filter(items, func(it Item, _ int) bool {
		if category != "" && it.Category != category {
			return false
		}
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(it.Title), q) ||
			strings.Contains(strings.ToLower(it.Description), q)
	})
}

// Categories lists the distinct item categories in first-seen order.
func Categories(items []Item) []string {
	cats := lo.Uniq(lo.Map(items, func(it Item, _ int) string { return it.Category }))
	return lo.Compact(cats)
}

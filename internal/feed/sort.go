package feed

import (
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate interprets the heterogeneous date strings found in feeds.
// The second result is false when s is empty or unrecognised.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sortKey is the item's timestamp in milliseconds; missing or unparsable
// dates count as the Unix epoch.
func sortKey(it Item) int64 {
	t, ok := ParseDate(it.PubDate)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// SortByDate orders items newest first in place. Equal dates keep their
// input order.
func SortByDate(items []Item) {
	type keyed struct {
		key  int64
		item Item
	}

	ks := make([]keyed, len(items))
	for i, it := range items {
		ks[i] = keyed{key: sortKey(it), item: it}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.key > b.key:
			return -1
		case a.key < b.key:
			return 1
		default:
			return 0
		}
	})

	for i := range ks {
		items[i] = ks[i].item
	}
}

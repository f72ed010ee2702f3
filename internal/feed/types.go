package feed

import (
	"strconv"

	"github.com/pders01/feeds/internal/config"
)

// Source is a remote RSS/Atom document contributing items.
type Source struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// Item is a normalized feed entry. Items are produced on every fetch and
// never persisted.
type Item struct {
	Title       string `json:"title" toml:"title"`
	Link        string `json:"link,omitempty" toml:"link,omitempty"`
	Description string `json:"description,omitempty" toml:"description,omitempty"`
	PubDate     string `json:"pubDate,omitempty" toml:"pub_date,omitempty"`
	Category    string `json:"category,omitempty" toml:"category,omitempty"`
	Source      string `json:"source,omitempty" toml:"source,omitempty"`
	Snippet     string `json:"snippet,omitempty" toml:"snippet,omitempty"`
}

// SourcesFromConfig converts configured sources, filling a missing ID from
// the position in the list.
func SourcesFromConfig(cfgSources []config.SourceConfig) []Source {
	sources := make([]Source, 0, len(cfgSources))
	for i, s := range cfgSources {
		id := s.ID
		if id == "" {
			id = "source-" + strconv.Itoa(i+1)
		}
		name := s.Name
		if name == "" {
			name = id
		}
		sources = append(sources, Source{ID: id, Name: name, URL: s.URL, Category: s.Category})
	}
	return sources
}

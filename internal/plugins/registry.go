package plugins

import (
	"context"
	"net/url"
	"sync"
)

// Resolution maps a URL a user pasted (a subreddit page, a repository page)
// to the feed endpoint that should actually be fetched.
type Resolution struct {
	// OriginalURL is the URL as supplied
	OriginalURL string
	// FeedURL is the endpoint to fetch; equals OriginalURL when nothing matched
	FeedURL string
	// Name is a suggested display name, empty when the plugin has none
	Name string
	// Plugin names the resolver that produced this result
	Plugin string
}

// Plugin resolves URLs for a specific host.
type Plugin interface {
	Name() string

	// CanHandle reports whether u belongs to this plugin's host
	CanHandle(u *url.URL) bool

	Resolve(ctx context.Context, u *url.URL) (*Resolution, error)

	// Priority breaks ties when several plugins match (higher wins)
	Priority() int
}

// Registry holds the plugins consulted before a feed URL is validated and
// fetched. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

func NewRegistry() *Registry {
	return &Registry{
		plugins: make([]Plugin, 0),
	}
}

func (r *Registry) Register(plugin Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, plugin)
}

// Find returns the highest-priority plugin that can handle u, or nil.
func (r *Registry) Find(u *url.URL) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Plugin
	highest := -1
	for _, p := range r.plugins {
		if p.CanHandle(u) && p.Priority() > highest {
			best = p
			highest = p.Priority()
		}
	}
	return best
}

// Resolve returns the feed endpoint for raw. URLs that fail to parse or that
// no plugin handles pass through unchanged; validation happens downstream.
func (r *Registry) Resolve(ctx context.Context, raw string) (*Resolution, error) {
	passthrough := &Resolution{OriginalURL: raw, FeedURL: raw}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return passthrough, nil
	}

	p := r.Find(u)
	if p == nil {
		return passthrough, nil
	}

	res, err := p.Resolve(ctx, u)
	if err != nil {
		return nil, err
	}
	res.OriginalURL = raw
	if res.Plugin == "" {
		res.Plugin = p.Name()
	}
	return res, nil
}

// Plugins returns a copy of the registered plugins.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Plugin(nil), r.plugins...)
}

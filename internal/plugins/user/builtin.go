package user

import "github.com/pders01/feeds/internal/plugins"

// RegisterBuiltins adds the bundled host resolvers to r.
func RegisterBuiltins(r *plugins.Registry) {
	r.Register(NewRedditPlugin())
	r.Register(NewGitHubPlugin())
}

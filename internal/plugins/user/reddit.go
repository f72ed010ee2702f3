package user

import (
	"context"
	"net/url"
	"strings"

	"github.com/pders01/feeds/internal/plugins"
)

// RedditPlugin turns subreddit pages into their .rss endpoints.
type RedditPlugin struct{}

func NewRedditPlugin() *RedditPlugin {
	return &RedditPlugin{}
}

func (p *RedditPlugin) Name() string {
	return "reddit"
}

func (p *RedditPlugin) CanHandle(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host != "reddit.com" && host != "www.reddit.com" && host != "old.reddit.com" {
		return false
	}
	return subreddit(u.Path) != ""
}

func (p *RedditPlugin) Priority() int {
	return 50
}

func (p *RedditPlugin) Resolve(_ context.Context, u *url.URL) (*plugins.Resolution, error) {
	name := subreddit(u.Path)

	feedURL := *u
	feedURL.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(feedURL.Path, ".rss") {
		feedURL.Path += ".rss"
	}
	feedURL.RawQuery = ""
	feedURL.Fragment = ""

	return &plugins.Resolution{
		FeedURL: feedURL.String(),
		Name:    "r/" + name,
		Plugin:  p.Name(),
	}, nil
}

// subreddit extracts the name from /r/<name>[/...], or "".
func subreddit(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "r" || parts[1] == "" {
		return ""
	}
	return strings.TrimSuffix(parts[1], ".rss")
}

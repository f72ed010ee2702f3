package user

import (
	"context"
	"net/url"
	"strings"

	"github.com/pders01/feeds/internal/plugins"
)

// GitHubPlugin maps repository pages to the repository's releases Atom feed.
type GitHubPlugin struct{}

func NewGitHubPlugin() *GitHubPlugin {
	return &GitHubPlugin{}
}

func (p *GitHubPlugin) Name() string {
	return "github"
}

func (p *GitHubPlugin) CanHandle(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return false
	}
	_, _, ok := ownerRepo(u.Path)
	return ok
}

func (p *GitHubPlugin) Priority() int {
	return 40
}

func (p *GitHubPlugin) Resolve(_ context.Context, u *url.URL) (*plugins.Resolution, error) {
	owner, repo, _ := ownerRepo(u.Path)

	// Already a feed endpoint
	if strings.HasSuffix(u.Path, ".atom") {
		return &plugins.Resolution{FeedURL: u.String(), Name: owner + "/" + repo, Plugin: p.Name()}, nil
	}

	return &plugins.Resolution{
		FeedURL: "https://github.com/" + owner + "/" + repo + "/releases.atom",
		Name:    owner + "/" + repo + " releases",
		Plugin:  p.Name(),
	}, nil
}

func ownerRepo(path string) (owner, repo string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

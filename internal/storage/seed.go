package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/feeds/internal/feed"
)

// Seed is the startup data document:
//
//	categories = ["Tech"]
//
//	[[users]]
//	id = "1"
//	email = "demo@feeds.dev"
//	password = "password123"
//
//	[[public_news]]
//	title = "..."
//
//	[[private_feeds.1]]
//	name = "Go Blog"
//	url = "https://go.dev/blog/feed.atom"
type Seed struct {
	Users        []SeedUser            `toml:"users"`
	PublicNews   []feed.Item           `toml:"public_news"`
	PrivateFeeds map[string][]SeedFeed `toml:"private_feeds"`
	Sources      []SeedSource          `toml:"sources"`
	Categories   []string              `toml:"categories"`
}

type SeedUser struct {
	ID       string `toml:"id"`
	Email    string `toml:"email"`
	Name     string `toml:"name"`
	Password string `toml:"password"`
}

type SeedFeed struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Category string `toml:"category"`
}

type SeedSource struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Category string `toml:"category"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}

	var seed Seed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decoding seed %s: %w", path, err)
	}
	return &seed, nil
}

// FeedSources converts the seed's public sources.
func (s *Seed) FeedSources() []feed.Source {
	out := make([]feed.Source, 0, len(s.Sources))
	for _, src := range s.Sources {
		out = append(out, feed.Source(src))
	}
	return out
}

// SeedStats reports what Apply wrote.
type SeedStats struct {
	Users        int
	SkippedUsers int
	FeedLists    int
}

// Apply inserts seed users whose email is not yet registered and sets the
// private feed lists of the listed users. Seeded passwords are hashed like
// any other.
func (s *Seed) Apply(users *UserRepository, feeds *FeedRepository) (SeedStats, error) {
	var stats SeedStats

	for _, su := range s.Users {
		_, err := users.Create(NewUser{ID: su.ID, Email: su.Email, Name: su.Name, Password: su.Password})
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			stats.SkippedUsers++
		case err != nil:
			return stats, fmt.Errorf("seeding user %s: %w", su.Email, err)
		default:
			stats.Users++
		}
	}

	for userID, list := range s.PrivateFeeds {
		pf := make([]PrivateFeed, 0, len(list))
		for _, f := range list {
			pf = append(pf, PrivateFeed{ID: f.ID, Name: f.Name, URL: f.URL, Category: f.Category})
		}
		if err := feeds.Replace(userID, pf); err != nil {
			return stats, fmt.Errorf("seeding feeds for %s: %w", userID, err)
		}
		stats.FeedLists++
	}

	return stats, nil
}

// Package app assembles the configured components into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pders01/feeds/internal/api"
	"github.com/pders01/feeds/internal/auth"
	"github.com/pders01/feeds/internal/config"
	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/feed"
	"github.com/pders01/feeds/internal/plugins"
	"github.com/pders01/feeds/internal/plugins/user"
	"github.com/pders01/feeds/internal/search"
	"github.com/pders01/feeds/internal/storage"
)

type App struct {
	Config     *config.Config
	Store      storage.Store
	Users      *storage.UserRepository
	Feeds      *storage.FeedRepository
	Aggregator *feed.Aggregator
	Sessions   *auth.SessionManager
	Index      *search.Index

	server *api.Server
}

// New validates cfg, opens storage, applies seed data and builds the HTTP
// server. Close releases what New opened.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Auth.Secret == config.DevSecret {
		debuglog.Warnf("using the insecure development session secret; set auth.secret")
	}

	store, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Users:    storage.NewUserRepository(store, cfg.Auth.BcryptCost),
		Feeds:    storage.NewFeedRepository(store),
		Sessions: auth.NewSessionManager(cfg.Auth),
	}

	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg := a.Config
	var opts []feed.Option

	var seed *storage.Seed
	if cfg.SeedPath != "" {
		var err error
		seed, err = storage.LoadSeed(cfg.SeedPath)
		if err != nil {
			return err
		}
		stats, err := seed.Apply(a.Users, a.Feeds)
		if err != nil {
			return err
		}
		debuglog.WithFields(map[string]interface{}{
			"users":         stats.Users,
			"skipped_users": stats.SkippedUsers,
			"feed_lists":    stats.FeedLists,
		}).Infof("applied seed %s", cfg.SeedPath)

		if len(seed.Sources) > 0 {
			opts = append(opts, feed.WithSources(seed.FeedSources()))
		}
		if len(seed.Categories) > 0 {
			cfg.Categories = seed.Categories
		}
	}

	snapshot, err := loadSnapshot(cfg, seed)
	if err != nil {
		return err
	}
	if snapshot != nil {
		opts = append(opts, feed.WithSnapshot(snapshot))
	}

	registry := plugins.NewRegistry()
	user.RegisterBuiltins(registry)
	opts = append(opts, feed.WithResolver(registry))

	a.Aggregator = feed.NewAggregator(cfg, opts...)

	authn, err := auth.NewAuthenticator(a.Users, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	if cfg.Search.Enabled {
		a.Index, err = search.NewIndex()
		if err != nil {
			return err
		}
	}

	a.server = api.NewServer(api.Deps{
		Config:        cfg,
		Aggregator:    a.Aggregator,
		Users:         a.Users,
		Feeds:         a.Feeds,
		Sessions:      a.Sessions,
		Authenticator: authn,
		Search:        a.Index,
	})
	return nil
}

// loadSnapshot prefers feed.snapshot_path over the seed's public news.
// Offline mode with nothing to serve is allowed but logged.
func loadSnapshot(cfg *config.Config, seed *storage.Seed) ([]feed.Item, error) {
	var items []feed.Item
	switch {
	case cfg.Feed.SnapshotPath != "":
		loaded, err := feed.LoadSnapshot(cfg.Feed.SnapshotPath)
		if err != nil {
			return nil, err
		}
		items = loaded
	case seed != nil:
		items = seed.PublicNews
	}

	if cfg.Feed.Offline && len(items) == 0 {
		debuglog.WithFields(map[string]interface{}{
			"snapshot_path": cfg.Feed.SnapshotPath,
			"seed_path":     cfg.SeedPath,
		}).Warnf("offline mode has no snapshot items; the public feed will be empty")
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

// CaptureSnapshot aggregates the live sources once and writes the items
// to path for later offline serving.
func (a *App) CaptureSnapshot(ctx context.Context, path string) (feed.Result, error) {
	result, err := a.Aggregator.Aggregate(ctx)
	if err != nil {
		return feed.Result{}, err
	}
	if err := feed.SaveSnapshot(path, result.Items); err != nil {
		return feed.Result{}, err
	}
	return result, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	return a.server.Serve(ctx, ln)
}

func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

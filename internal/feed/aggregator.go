package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/pders01/feeds/internal/config"
	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/plugins"
	"github.com/pders01/feeds/internal/validation"
)

// SourceError records why one source contributed nothing to an aggregate.
type SourceError struct {
	SourceID string    `json:"sourceId"`
	Kind     ErrorKind `json:"kind"`
	Status   int       `json:"status,omitempty"`
	Message  string    `json:"message"`
}

// Result is a merged, date-sorted aggregate plus the per-source failures
// that were skipped to produce it.
type Result struct {
	Items        []Item        `json:"items"`
	SourceErrors []SourceError `json:"sourceErrors,omitempty"`
}

func (r Result) clone() Result {
	return Result{
		Items:        append([]Item(nil), r.Items...),
		SourceErrors: append([]SourceError(nil), r.SourceErrors...),
	}
}

type Aggregator struct {
	sources   []Source
	fetcher   *Fetcher
	parser    *Parser
	validator *validation.URLValidator
	resolver  *plugins.Registry

	offline  bool
	snapshot []Item

	previewLimit  int
	snippetLength int

	cache *resultCache
	now   func() time.Time
	log   *debuglog.FieldLogger
}

type Option func(*Aggregator)

// WithSources replaces the configured source list.
func WithSources(sources []Source) Option {
	return func(a *Aggregator) { a.sources = sources }
}

// WithSnapshot sets the items served in offline mode.
func WithSnapshot(items []Item) Option {
	return func(a *Aggregator) { a.snapshot = items }
}

// WithResolver routes user-supplied URLs through host plugins before
// validation.
func WithResolver(r *plugins.Registry) Option {
	return func(a *Aggregator) { a.resolver = r }
}

func withClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(cfg *config.Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:       SourcesFromConfig(cfg.Sources),
		fetcher:       NewFetcher(cfg),
		parser:        NewParser(),
		validator:     validation.NewURLValidator(cfg.Feed.AllowPrivateHosts),
		offline:       cfg.Feed.Offline,
		previewLimit:  cfg.Feed.PreviewLimit,
		snippetLength: cfg.Feed.SnippetLength,
		cache:         &resultCache{ttl: cfg.Feed.CacheTTL},
		now:           time.Now,
		log:           debuglog.WithFields(map[string]interface{}{"component": "aggregator"}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources returns the configured public sources.
func (a *Aggregator) Sources() []Source {
	return append([]Source(nil), a.sources...)
}

// Offline reports whether the aggregate is served from the snapshot.
func (a *Aggregator) Offline() bool {
	return a.offline
}

// Aggregate fetches every source concurrently and merges the results newest
// first. A failing source contributes no items and is reported in
// SourceErrors; only cancellation of ctx fails the call as a whole.
func (a *Aggregator) Aggregate(ctx context.Context) (Result, error) {
	if a.offline {
		return a.fromSnapshot(), nil
	}

	if cached, ok := a.cache.get(a.now()); ok {
		return cached, nil
	}

	perSource := make([][]Item, len(a.sources))
	errs := make([]error, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			perSource[i], errs[i] = a.FetchSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("aggregating feeds: %w", err)
	}

	result := Result{Items: lo.Flatten(perSource)}
	for i, err := range errs {
		if err == nil {
			continue
		}
		se := toSourceError(a.sources[i], err)
		a.log.WithField("source", se.SourceID).
			WithField("url", a.sources[i].URL).
			WithField("kind", se.Kind.String()).
			Warnf("skipping source: %v", err)
		result.SourceErrors = append(result.SourceErrors, se)
	}

	SortByDate(result.Items)
	a.log.Debugf("aggregated %d items from %d sources (%d failed)",
		len(result.Items), len(a.sources), len(result.SourceErrors))

	a.cache.put(a.now(), result)
	return result, nil
}

// Invalidate drops any cached aggregate so the next call fetches live.
func (a *Aggregator) Invalidate() {
	a.cache.invalidate()
}

func (a *Aggregator) fromSnapshot() Result {
	items := make([]Item, len(a.snapshot))
	for i, it := range a.snapshot {
		it.Description = a.parser.PlainText(it.Description)
		items[i] = it
	}
	SortByDate(items)
	return Result{Items: items}
}

// FetchSource retrieves and parses a single source.
func (a *Aggregator) FetchSource(ctx context.Context, src Source) ([]Item, error) {
	body, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return a.parser.Parse(bytes.NewReader(body), src)
}

// ResolveURL maps a user-supplied URL through the plugin registry and
// validates the result. Rejections wrap validation.ErrInvalidURL.
func (a *Aggregator) ResolveURL(ctx context.Context, raw string) (string, error) {
	target := raw
	if a.resolver != nil {
		res, err := a.resolver.Resolve(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", validation.ErrInvalidURL, err)
		}
		target = res.FeedURL
	}
	return a.validator.Normalize(target)
}

// Preview fetches an arbitrary feed for display: at most previewLimit items
// in document order, each with a snippet capped at snippetLength runes.
func (a *Aggregator) Preview(ctx context.Context, rawURL string) ([]Item, error) {
	target, err := a.ResolveURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	items, err := a.FetchSource(ctx, Source{ID: "preview", URL: target})
	if err != nil {
		return nil, err
	}

	if a.previewLimit > 0 && len(items) > a.previewLimit {
		items = items[:a.previewLimit]
	}

	preview := make([]Item, len(items))
	for i, it := range items {
		preview[i] = Item{
			Title:   it.Title,
			Link:    it.Link,
			PubDate: it.PubDate,
			Snippet: truncate(it.Description, a.snippetLength),
		}
	}
	return preview, nil
}

func toSourceError(src Source, err error) SourceError {
	se := SourceError{SourceID: src.ID, Kind: KindFetch, Message: err.Error()}
	var fe *FetchError
	if errors.As(err, &fe) {
		se.Kind = fe.Kind
		se.Status = fe.Status
		se.Message = fe.Message()
	}
	return se
}

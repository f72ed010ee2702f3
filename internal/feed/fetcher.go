package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pders01/feeds/internal/config"
	"github.com/pders01/feeds/internal/validation"
)

// maxBodySize caps how much of a remote document is read.
const maxBodySize = 10 << 20

var errBodyTooLarge = errors.New("feed document exceeds size limit")

type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher builds a fetcher whose connections are limited to public
// addresses unless feed.allow_private_hosts is set.
func NewFetcher(cfg *config.Config) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !cfg.Feed.AllowPrivateHosts {
		dialer.Control = validation.PublicDialControl
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Feed.HTTPTimeout,
			Transport: transport,
		},
		userAgent: cfg.Feed.UserAgent,
	}
}

// Fetch retrieves the raw document at url. Failures are returned as
// *FetchError so callers can tell network trouble from upstream status codes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindFetch, URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindFetch, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, classifyStatus(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &FetchError{Kind: KindFetch, URL: url, Err: fmt.Errorf("reading response: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, &FetchError{Kind: KindFetch, URL: url, Err: errBodyTooLarge}
	}

	return body, nil
}

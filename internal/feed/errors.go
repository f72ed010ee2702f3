package feed

import (
	"fmt"
	"net/http"
	"strconv"
)

// ErrorKind classifies why a single feed could not be turned into items.
type ErrorKind int

const (
	// KindFetch covers network and client-side failures
	KindFetch ErrorKind = iota
	// KindBadSource is an upstream 4xx; Status carries the code
	KindBadSource
	// KindUpstream is an upstream 5xx or other unexpected status
	KindUpstream
	// KindInvalidFeed means the document was not RSS, Atom or JSON Feed
	KindInvalidFeed
)

func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindBadSource:
		return "bad_source"
	case KindUpstream:
		return "upstream"
	case KindInvalidFeed:
		return "invalid_feed"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type FetchError struct {
	Kind   ErrorKind
	Status int
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindBadSource, KindUpstream:
		if e.Status != 0 {
			return fmt.Sprintf("fetching %s: upstream status %d", e.URL, e.Status)
		}
	case KindInvalidFeed:
		return fmt.Sprintf("parsing %s: not a valid RSS/Atom feed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure to the status reported to API clients:
// upstream 4xx codes propagate, other upstream failures become 502.
func (e *FetchError) HTTPStatus() int {
	switch e.Kind {
	case KindBadSource:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindInvalidFeed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message is a client-facing description without internal detail.
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindBadSource:
		return "Failed to fetch RSS feed (Status: " + strconv.Itoa(e.Status) + "). Check the URL."
	case KindUpstream:
		if e.Status != 0 {
			return "Error fetching RSS feed from the source (Status: " + strconv.Itoa(e.Status) + ")."
		}
		return "Error fetching RSS feed from the source."
	case KindInvalidFeed:
		return "The provided URL does not point to a valid RSS/Atom feed."
	default:
		return "Failed to fetch or parse RSS feed."
	}
}

func classifyStatus(url string, status int) *FetchError {
	if status >= 400 && status < 500 {
		return &FetchError{Kind: KindBadSource, Status: status, URL: url}
	}
	return &FetchError{Kind: KindUpstream, Status: status, URL: url}
}

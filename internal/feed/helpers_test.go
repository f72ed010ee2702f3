package feed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pders01/feeds/internal/config"
)

type rssEntry struct {
	title   string
	desc    string
	pubDate string
}

func rssDoc(entries ...rssEntry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title><link>https://x.com</link><description>d</description>`)
	for i, e := range entries {
		fmt.Fprintf(&b, "<item><title>%s</title><link>https://x.com/%d</link>", e.title, i)
		if e.desc != "" {
			fmt.Fprintf(&b, "<description><![CDATA[%s]]></description>", e.desc)
		}
		if e.pubDate != "" {
			fmt.Fprintf(&b, "<pubDate>%s</pubDate>", e.pubDate)
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

// feedServer serves body with status and counts requests.
func feedServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// deadURL returns the address of a server that is no longer listening.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func testConfig() *config.Config {
	return config.TestConfig()
}

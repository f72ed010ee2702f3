package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feeds/internal/auth"
	"github.com/pders01/feeds/internal/config"
	"github.com/pders01/feeds/internal/feed"
	"github.com/pders01/feeds/internal/plugins"
	"github.com/pders01/feeds/internal/plugins/user"
	"github.com/pders01/feeds/internal/search"
	"github.com/pders01/feeds/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server   *Server
	cfg      *config.Config
	users    *storage.UserRepository
	feeds    *storage.FeedRepository
	sessions *auth.SessionManager
}

type envOption func(*config.Config)

func withSources(sources ...config.SourceConfig) envOption {
	return func(cfg *config.Config) { cfg.Sources = sources }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := config.TestConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	store := storage.NewMemoryStore()
	users := storage.NewUserRepository(store, cfg.Auth.BcryptCost)
	feeds := storage.NewFeedRepository(store)

	authn, err := auth.NewAuthenticator(users, cfg.Auth.BcryptCost)
	require.NoError(t, err)

	registry := plugins.NewRegistry()
	user.RegisterBuiltins(registry)

	var index *search.Index
	if cfg.Search.Enabled {
		index, err = search.NewIndex()
		require.NoError(t, err)
		t.Cleanup(func() { _ = index.Close() })
	}

	sessions := auth.NewSessionManager(cfg.Auth)
	srv := NewServer(Deps{
		Config:        cfg,
		Aggregator:    feed.NewAggregator(cfg, feed.WithResolver(registry)),
		Users:         users,
		Feeds:         feeds,
		Sessions:      sessions,
		Authenticator: authn,
		Search:        index,
	})

	return &testEnv{server: srv, cfg: cfg, users: users, feeds: feeds, sessions: sessions}
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

// signUpAndIn registers a user and returns a session token for it.
func (e *testEnv) signUpAndIn(t *testing.T, email, name, password string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/auth/signup", gin.H{"email": email, "name": name, "password": password}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/auth/session", gin.H{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decode(t, w, &body)
	return body
}

func (b errorBody) fields() []string {
	out := make([]string, 0, len(b.Error.Details))
	for _, d := range b.Error.Details {
		out = append(out, d.Field)
	}
	return out
}

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

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

type httpResponse struct {
	code   int
	body   string
	cookie string
}

func asResponse(w *httptest.ResponseRecorder) *httpResponse {
	return &httpResponse{code: w.Code, body: w.Body.String(), cookie: w.Header().Get("Set-Cookie")}
}

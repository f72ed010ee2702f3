package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feeds/internal/auth"
	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/feed"
	"github.com/pders01/feeds/internal/search"
	"github.com/pders01/feeds/internal/storage"
	"github.com/pders01/feeds/internal/validation"
)

const (
	timeLayout         = time.RFC3339
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func (s *Server) publicNews(c *gin.Context) {
	result, err := s.aggregator.Aggregate(c.Request.Context())
	if err != nil {
		debuglog.Errorf("aggregating public news: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to fetch news")
		return
	}

	items := feed.Filter(result.Items, c.Query("q"), c.Query("category"))

	resp := gin.H{"items": items}
	if len(result.SourceErrors) > 0 {
		resp["sourceErrors"] = result.SourceErrors
	}
	c.JSON(http.StatusOK, resp)
}

// categories lists the configured categories, or those present in the
// current items when none are configured.
func (s *Server) categories(c *gin.Context) {
	if len(s.cfg.Categories) > 0 {
		c.JSON(http.StatusOK, gin.H{"categories": s.cfg.Categories})
		return
	}

	result, err := s.aggregator.Aggregate(c.Request.Context())
	if err != nil {
		debuglog.Errorf("aggregating public news: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to fetch news")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": feed.Categories(result.Items)})
}

func (s *Server) searchNews(c *gin.Context) {
	if s.search == nil {
		AbortJSONError(c, http.StatusNotFound, ErrorCodeNotFound, "Search is disabled")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < search.MinQueryLength {
		abortField(c, "Invalid input", "q", "must be at least "+strconv.Itoa(search.MinQueryLength)+" characters long")
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			abortField(c, "Invalid input", "limit", "must be a number between 1 and "+strconv.Itoa(maxSearchLimit))
			return
		}
		limit = n
	}

	result, err := s.aggregator.Aggregate(c.Request.Context())
	if err != nil {
		debuglog.Errorf("aggregating public news: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to fetch news")
		return
	}

	if err := s.search.Sync(result.Items); err != nil {
		debuglog.Errorf("indexing public news: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Search failed")
		return
	}

	hits, err := s.search.Search(query, limit)
	if err != nil {
		if errors.Is(err, search.ErrQueryTooShort) {
			abortField(c, "Invalid input", "q", err.Error())
			return
		}
		debuglog.Errorf("searching public news: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"hits": hits, "total": len(hits)})
}

type addFeedRequest struct {
	Name     string `json:"name" binding:"required,min=1"`
	URL      string `json:"url" binding:"required,url"`
	Category string `json:"category"`
}

func (s *Server) listPrivateFeeds(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}

	feeds, err := s.feeds.List(id.UserID)
	if err != nil {
		debuglog.Errorf("listing feeds for %s: %v", id.UserID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to list feeds")
		return
	}
	c.JSON(http.StatusOK, feeds)
}

func (s *Server) addPrivateFeed(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}

	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, err)
		return
	}

	target, err := s.aggregator.ResolveURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidURL) {
			abortField(c, "Invalid input", "url", "must be a valid public http(s) URL")
			return
		}
		debuglog.Errorf("resolving feed url: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to add feed")
		return
	}

	pf, err := s.feeds.Add(id.UserID, storage.NewFeed{
		Name:     strings.TrimSpace(req.Name),
		URL:      target,
		Category: strings.TrimSpace(req.Category),
	})
	if err != nil {
		debuglog.Errorf("adding feed for %s: %v", id.UserID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to add feed")
		return
	}
	c.JSON(http.StatusCreated, pf)
}

func (s *Server) removePrivateFeed(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}

	feedID := strings.TrimSpace(c.Query("feedId"))
	if feedID == "" {
		abortField(c, "Feed ID is required", "feedId", "is required")
		return
	}

	removed, err := s.feeds.Remove(id.UserID, feedID)
	if err != nil {
		debuglog.Errorf("removing feed %s for %s: %v", feedID, id.UserID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to delete feed")
		return
	}
	if !removed {
		AbortJSONError(c, http.StatusNotFound, ErrorCodeNotFound, "Feed not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// previewFeed fetches an arbitrary feed URL and returns a short preview.
func (s *Server) previewFeed(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("feedUrl"))
	if raw == "" {
		abortField(c, "Feed URL is required", "feedUrl", "is required")
		return
	}

	items, err := s.aggregator.Preview(c.Request.Context(), raw)
	if err != nil {
		debuglog.WithFields(map[string]interface{}{"url": raw}).Warnf("preview failed: %v", err)
		abortFeedError(c, "feedUrl", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

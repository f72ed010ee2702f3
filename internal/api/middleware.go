package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pders01/feeds/internal/debuglog"
)

const requestIDHeader = "X-Request-ID"

// requestLogger logs one line per request. 5xx responses are logged as
// errors.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log := debuglog.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": id,
		})

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Errorf("request failed %s", c.Errors.String())
			return
		}
		log.Infof("request handled")
	}
}

// recovery turns a panic into a 500 envelope without leaking details.
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		debuglog.WithFields(map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.Writer.Header().Get(requestIDHeader),
		}).Errorf("panic: %v", rec)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Internal server error")
	})
}

func withTimeout(d time.Duration, fn gin.HandlerFunc) gin.HandlerFunc {
	if d <= 0 {
		return fn
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		fn(c)
	}
}

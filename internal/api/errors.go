package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feeds/internal/feed"
	"github.com/pders01/feeds/internal/validation"
)

const (
	ErrorCodeValidation   = "validation_error"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeConflict     = "conflict"
	ErrorCodeUpstream     = "upstream_error"
	ErrorCodeInvalidFeed  = "invalid_feed"
	ErrorCodeInternal     = "internal_error"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSONError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func JSONErrorWithDetails(c *gin.Context, status int, code, message string, details any) {
	if details == nil {
		JSONError(c, status, code, message)
		return
	}
	switch v := details.(type) {
	case []validation.FieldError:
		if len(v) == 0 {
			JSONError(c, status, code, message)
			return
		}
	}
	c.JSON(status, gin.H{
		"error": ErrorResponse{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func AbortJSONError(c *gin.Context, status int, code, message string) {
	JSONError(c, status, code, message)
	c.Abort()
}

func AbortJSONErrorWithDetails(c *gin.Context, status int, code, message string, details any) {
	JSONErrorWithDetails(c, status, code, message, details)
	c.Abort()
}

// abortInvalid rejects a request whose body or query failed binding.
func abortInvalid(c *gin.Context, err error) {
	AbortJSONErrorWithDetails(c, http.StatusBadRequest, ErrorCodeValidation, "Invalid input", validation.FieldErrors(err))
}

// abortField rejects a request because of a single named field.
func abortField(c *gin.Context, message, field, detail string) {
	AbortJSONErrorWithDetails(c, http.StatusBadRequest, ErrorCodeValidation, message,
		[]validation.FieldError{{Field: field, Message: detail}})
}

// abortFeedError maps a URL or feed retrieval failure on field to a response.
func abortFeedError(c *gin.Context, field string, err error) {
	if errors.Is(err, validation.ErrInvalidURL) {
		abortField(c, "Invalid URL", field, "must be a valid public http(s) URL")
		return
	}

	var fe *feed.FetchError
	if !errors.As(err, &fe) {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to fetch or parse RSS feed.")
		return
	}

	code := ErrorCodeUpstream
	switch fe.Kind {
	case feed.KindInvalidFeed:
		code = ErrorCodeInvalidFeed
	case feed.KindFetch:
		code = ErrorCodeInternal
	}
	AbortJSONError(c, fe.HTTPStatus(), code, fe.Message())
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feeds/internal/auth"
	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/storage"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72,maxbytes=72"`
}

var passwordTooLong = fmt.Sprintf("must be at most %d bytes long", storage.MaxPasswordBytes)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string        `json:"token,omitempty"`
	Expires string        `json:"expires"`
	User    auth.Identity `json:"user"`
}

func newSessionResponse(s auth.Session, withToken bool) sessionResponse {
	r := sessionResponse{
		Expires: s.ExpiresAt.Format(timeLayout),
		User:    s.Identity,
	}
	if withToken {
		r.Token = s.Token
	}
	return r
}

func (s *Server) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, err)
		return
	}

	user, err := s.users.Create(storage.NewUser{
		Email:    strings.TrimSpace(req.Email),
		Name:     strings.TrimSpace(req.Name),
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			AbortJSONError(c, http.StatusConflict, ErrorCodeConflict, "Email already registered")
			return
		}
		if errors.Is(err, storage.ErrPasswordTooLong) {
			abortField(c, "Invalid input", "password", passwordTooLong)
			return
		}
		debuglog.Errorf("creating user: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user.Profile(),
	})
}

// signIn exchanges credentials for a session. Every credential failure
// produces the same response.
func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, err)
		return
	}

	result, err := s.authn.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		debuglog.Errorf("authenticating: %v", err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Internal server error")
		return
	}

	switch r := result.(type) {
	case auth.Authenticated:
		session, err := s.sessions.Sign(s.sessions.Issue(r.Identity))
		if err != nil {
			debuglog.Errorf("issuing session: %v", err)
			AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Internal server error")
			return
		}
		s.cookies.Set(c, session.Token)
		c.JSON(http.StatusOK, newSessionResponse(session, true))
	default:
		AbortJSONError(c, http.StatusUnauthorized, ErrorCodeUnauthorized, "Invalid email or password")
	}
}

func (s *Server) currentSession(c *gin.Context) {
	session, ok := auth.SessionFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session, false))
}

// signOut clears the session cookie. Tokens are stateless, so a bearer
// token stays valid until it expires.
func (s *Server) signOut(c *gin.Context) {
	s.cookies.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feeds/internal/debuglog"
)

// RefreshHeader carries a reissued token on responses to requests whose
// session was due for refresh.
const RefreshHeader = "X-Session-Token"

const sessionKey = "feeds.session"

// Cookies writes and reads the session cookie.
type Cookies struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (ck Cookies) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, token, int(ck.MaxAge.Seconds()), "/", "", ck.Secure, true)
}

func (ck Cookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, "", -1, "/", "", ck.Secure, true)
}

// Token returns the bearer token, falling back to the session cookie.
func (ck Cookies) Token(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if v, err := c.Cookie(ck.Name); err == nil {
		return v
	}
	return ""
}

// RequireSession rejects requests without a valid session before any
// later handler runs. Accepted sessions are available through SessionFrom
// and IdentityFrom.
func RequireSession(m *SessionManager, cookies Cookies) gin.HandlerFunc {
	log := debuglog.WithFields(map[string]interface{}{"component": "auth"})

	return func(c *gin.Context) {
		s, err := m.Validate(cookies.Token(c))
		if err != nil {
			log.WithField("path", c.FullPath()).Debugf("rejected session: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Unauthorized",
				},
			})
			return
		}

		if m.NeedsRefresh(s) {
			refreshed, err := m.Sign(m.Refresh(s))
			if err != nil {
				log.Errorf("refreshing session for %s: %v", s.Identity.UserID, err)
			} else {
				s = refreshed
				cookies.Set(c, s.Token)
				c.Header(RefreshHeader, s.Token)
			}
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

// SessionFrom returns the session attached by RequireSession.
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// IdentityFrom returns the caller's identity attached by RequireSession.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	s, ok := SessionFrom(c)
	if !ok {
		return Identity{}, false
	}
	return s.Identity, true
}

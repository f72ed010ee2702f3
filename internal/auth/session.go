package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pders01/feeds/internal/config"
)

const issuer = "feeds"

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session expired")
)

// Identity is what protected operations learn about the caller.
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name,omitempty"`
}

// IdentityPatch lists identity fields to replace; nil fields are kept.
type IdentityPatch struct {
	Name *string
}

// Session is the decoded state carried by a token.
type Session struct {
	Identity  Identity  `json:"user"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expires"`
	// Token is the signed form, set by Sign and Validate
	Token string `json:"-"`
}

// Claims is the JWT payload. The user ID travels as the subject.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HMAC-signed session tokens with an
// absolute lifetime of maxAge. Tokens older than updateAge are due for
// reissue on their next successful validation.
type SessionManager struct {
	secret    []byte
	maxAge    time.Duration
	updateAge time.Duration
	now       func() time.Time
}

func NewSessionManager(cfg config.AuthConfig) *SessionManager {
	return &SessionManager{
		secret:    []byte(cfg.Secret),
		maxAge:    cfg.MaxAge,
		updateAge: cfg.UpdateAge,
		now:       time.Now,
	}
}

// MaxAge is the lifetime of a freshly issued session.
func (m *SessionManager) MaxAge() time.Duration {
	return m.maxAge
}

// Issue starts a new session for id, valid for maxAge from now.
func (m *SessionManager) Issue(id Identity) Session {
	// JWT dates have second precision; truncate so a round trip is lossless
	now := m.now().UTC().Truncate(time.Second)
	return Session{
		Identity:  id,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.maxAge),
	}
}

// Patch returns s with the patched identity fields. The lifetime is
// unchanged and the result must be signed again.
func (m *SessionManager) Patch(s Session, p IdentityPatch) Session {
	if p.Name != nil {
		s.Identity.Name = *p.Name
	}
	s.Token = ""
	return s
}

// NeedsRefresh reports whether s was issued more than updateAge ago.
func (m *SessionManager) NeedsRefresh(s Session) bool {
	return m.updateAge > 0 && m.now().Sub(s.IssuedAt) >= m.updateAge
}

// Refresh reissues s with a lifetime extended from now.
func (m *SessionManager) Refresh(s Session) Session {
	return m.Issue(s.Identity)
}

// Sign encodes s as a token and stores it in the returned copy.
func (m *SessionManager) Sign(s Session) (Session, error) {
	claims := Claims{
		Name: s.Identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.Identity.UserID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			NotBefore: jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("signing session: %w", err)
	}
	s.Token = token
	return s, nil
}

// Validate verifies token and decodes its session. Expired tokens yield
// ErrTokenExpired; anything else that fails verification ErrInvalidToken.
func (m *SessionManager) Validate(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrTokenExpired
		}
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Session{
		Identity:  Identity{UserID: claims.Subject, Name: claims.Name},
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		Token:     token,
	}, nil
}

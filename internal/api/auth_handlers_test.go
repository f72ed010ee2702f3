package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/signup", gin.H{"email": "ada@x.com", "name": "Ada", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string         `json:"message"`
		User    map[string]any `json:"user"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Equal(t, "ada@x.com", resp.User["email"])
	assert.Equal(t, "Ada", resp.User["name"])
	assert.NotEmpty(t, resp.User["id"])
	assert.NotContains(t, resp.User, "passwordHash")
	assert.NotContains(t, w.Body.String(), "secret1")
}

func TestSignup_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		body       any
		wantFields []string
	}{
		{"missing everything", gin.H{}, []string{"name", "email", "password"}},
		{"bad email", gin.H{"name": "Ada", "email": "not-an-email", "password": "secret1"}, []string{"email"}},
		{"short password", gin.H{"name": "Ada", "email": "ada@x.com", "password": "12345"}, []string{"password"}},
		{"long password", gin.H{"name": "Ada", "email": "ada@x.com", "password": strings.Repeat("x", 73)}, []string{"password"}},
		{"multi-byte password over 72 bytes", gin.H{"name": "Ada", "email": "ada@x.com", "password": strings.Repeat("é", 40)}, []string{"password"}},
		{"empty name", gin.H{"name": "", "email": "ada@x.com", "password": "secret1"}, []string{"name"}},
		{"wrong type", gin.H{"name": 42, "email": "ada@x.com", "password": "secret1"}, []string{"name"}},
		{"malformed json", `{"name":`, []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/auth/signup", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			body := decodeError(t, w)
			assert.Equal(t, ErrorCodeValidation, body.Error.Code)
			assert.ElementsMatch(t, tt.wantFields, body.fields())
		})
	}
}

func TestSignup_PasswordByteLimit(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/signup", gin.H{
		"name": "Ada", "email": "ada@x.com", "password": strings.Repeat("é", 40),
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.JSONEq(t, `{"error":{"code":"validation_error","message":"Invalid input",
		"details":[{"field":"password","message":"must be at most 72 bytes long"}]}}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/auth/signup", gin.H{
		"name": "Ada", "email": "ada@x.com", "password": strings.Repeat("é", 36),
	}, "")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signUpAndIn(t, "ada@x.com", "Ada", "secret1")

	for _, body := range []gin.H{
		{"email": "ada@x.com", "name": "Ada", "password": "secret1"},
		{"email": "ada@x.com", "name": "Other", "password": "another-password"},
	} {
		w := env.do(t, http.MethodPost, "/auth/signup", body, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":{"code":"conflict","message":"Email already registered"}}`, w.Body.String())
	}
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.signUpAndIn(t, "ada@x.com", "Ada", "secret1")

	w := env.do(t, http.MethodPost, "/auth/session", gin.H{"email": "ada@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token   string         `json:"token"`
		Expires string         `json:"expires"`
		User    map[string]any `json:"user"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.Expires)
	assert.Equal(t, "Ada", resp.User["name"])

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, env.cfg.Auth.CookieName+"="+resp.Token)
	assert.Contains(t, cookie, "HttpOnly")

	session, err := env.sessions.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User["id"], session.Identity.UserID)
}

func TestSignIn_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.signUpAndIn(t, "ada@x.com", "Ada", "secret1")

	wrongPassword := env.do(t, http.MethodPost, "/auth/session", gin.H{"email": "ada@x.com", "password": "nope123"}, "")
	unknownEmail := env.do(t, http.MethodPost, "/auth/session", gin.H{"email": "bob@x.com", "password": "secret1"}, "")
	empty := env.do(t, http.MethodPost, "/auth/session", gin.H{}, "")

	for _, w := range []*httpResponse{asResponse(wrongPassword), asResponse(unknownEmail), asResponse(empty)} {
		assert.Equal(t, http.StatusUnauthorized, w.code)
		assert.Equal(t, asResponse(wrongPassword).body, w.body)
		assert.Empty(t, w.cookie)
	}
}

func TestSession_GetAndSignOut(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndIn(t, "ada@x.com", "Ada", "secret1")

	w := env.do(t, http.MethodGet, "/auth/session", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	decode(t, w, &resp)
	assert.Empty(t, resp.Token)
	assert.Equal(t, "Ada", resp.User["name"])

	req, err := http.NewRequest(http.MethodGet, "/auth/session", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: env.cfg.Auth.CookieName, Value: token})
	assert.Equal(t, http.StatusOK, serve(env, req).Code)

	w = env.do(t, http.MethodDelete, "/auth/session", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

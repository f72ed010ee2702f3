package validation

import (
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type passwordForm struct {
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=NewPassword"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	UseJSONFieldNames(v)
	return v
}

func TestFieldErrors_Validation(t *testing.T) {
	v := newValidate()

	err := v.Struct(signupForm{Name: "", Email: "not-an-email", Password: "123"})
	require.Error(t, err)

	got := FieldErrors(err)
	assert.ElementsMatch(t, []FieldError{
		{Field: "name", Message: "is required"},
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "must be at least 6 characters long"},
	}, got)
}

func TestFieldErrors_EqField(t *testing.T) {
	v := newValidate()

	err := v.Struct(passwordForm{NewPassword: "secret1", ConfirmPassword: "secret2"})
	require.Error(t, err)

	got := FieldErrors(err)
	require.Len(t, got, 1)
	assert.Equal(t, "confirmPassword", got[0].Field)
	assert.Equal(t, "must match newPassword", got[0].Message)
}

func TestFieldErrors_MaxBytes(t *testing.T) {
	v := newValidate()
	require.NoError(t, RegisterMaxBytes(v))

	type form struct {
		Password string `json:"password" validate:"maxbytes=72"`
	}

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"ascii at limit", strings.Repeat("a", 72), false},
		{"ascii over limit", strings.Repeat("a", 73), true},
		{"multi-byte under rune limit", strings.Repeat("é", 40), true},
		{"multi-byte at byte limit", strings.Repeat("é", 36), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := v.Struct(form{Password: test.password})
			if !test.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, []FieldError{{Field: "password", Message: "must be at most 72 bytes long"}}, FieldErrors(err))
		})
	}
}

func TestFieldErrors_Valid(t *testing.T) {
	v := newValidate()
	assert.NoError(t, v.Struct(signupForm{Name: "Ada", Email: "ada@x.com", Password: "secret1"}))
	assert.Nil(t, FieldErrors(nil))
}

func TestFieldErrors_DecodeErrors(t *testing.T) {
	var form signupForm
	err := json.Unmarshal([]byte(`{"name": 42}`), &form)
	require.Error(t, err)

	got := FieldErrors(err)
	require.Len(t, got, 1)
	assert.Equal(t, "name", got[0].Field)

	got = FieldErrors(errors.New("unexpected EOF"))
	assert.Equal(t, []FieldError{{Field: "body", Message: "malformed request body"}}, got)
}

func parseIP(t *testing.T, s string) net.IP {
	t.Helper()
	ip := net.ParseIP(s)
	require.NotNil(t, ip, "bad test IP %s", s)
	return ip
}

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feeds/internal/storage"
)

type failingFinder struct{}

func (failingFinder) FindByEmail(string) (*storage.User, error) {
	return nil, errors.New("disk on fire")
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *storage.User) {
	t.Helper()
	users := storage.NewUserRepository(storage.NewMemoryStore(), 10)
	u, err := users.Create(storage.NewUser{Email: "ada@x.com", Name: "Ada", Password: "secret1"})
	require.NoError(t, err)

	a, err := NewAuthenticator(users, 10)
	require.NoError(t, err)
	return a, u
}

func TestAuthenticator_Authenticate(t *testing.T) {
	a, u := newTestAuthenticator(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     Result
	}{
		{"valid", "ada@x.com", "secret1", Authenticated{Identity: Identity{UserID: u.ID, Name: "Ada"}}},
		{"wrong password", "ada@x.com", "secret2", InvalidCredentials{}},
		{"unknown email", "bob@x.com", "secret1", InvalidCredentials{}},
		{"different case email", "ADA@x.com", "secret1", InvalidCredentials{}},
		{"empty email", "", "secret1", InvalidCredentials{}},
		{"empty password", "ada@x.com", "", InvalidCredentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Authenticate(context.Background(), tt.email, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticator_StoreFailure(t *testing.T) {
	a, err := NewAuthenticator(failingFinder{}, 10)
	require.NoError(t, err)

	got, err := a.Authenticate(context.Background(), "ada@x.com", "secret1")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestAuthenticator_CanceledContext(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Authenticate(ctx, "ada@x.com", "secret1")
	assert.ErrorIs(t, err, context.Canceled)
}

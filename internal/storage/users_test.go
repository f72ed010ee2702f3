package storage

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) *UserRepository {
	t.Helper()
	return NewUserRepository(NewMemoryStore(), 10)
}

func TestUserRepository_Create(t *testing.T) {
	repo := newUserRepo(t)

	u, err := repo.Create(NewUser{Email: "ada@x.com", Name: "Ada", Password: "secret1"})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@x.com", u.Email)
	assert.Equal(t, "Ada", u.Name)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, MatchPassword(u.PasswordHash, "secret1"))
	assert.False(t, u.CreatedAt.IsZero())

	byID, err := repo.FindByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	byEmail, err := repo.FindByEmail("ada@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo := newUserRepo(t)

	_, err := repo.Create(NewUser{Email: "ada@x.com", Name: "Ada", Password: "secret1"})
	require.NoError(t, err)

	for _, in := range []NewUser{
		{Email: "ada@x.com", Name: "Ada", Password: "secret1"},
		{Email: "ada@x.com", Name: "Someone Else", Password: "different"},
		{Email: "ada@x.com", Password: "x"},
	} {
		_, err := repo.Create(in)
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	}

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepository_CreateConcurrentDuplicates(t *testing.T) {
	repo := newUserRepo(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Create(NewUser{Email: "race@x.com", Name: fmt.Sprint(i), Password: "secret1"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateEmail)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestUserRepository_EmailIsCaseSensitive(t *testing.T) {
	repo := newUserRepo(t)

	_, err := repo.Create(NewUser{Email: "Ada@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = repo.FindByEmail("ada@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_FindMissing(t *testing.T) {
	repo := newUserRepo(t)

	_, err := repo.FindByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByEmail("nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_VerifyAndChangePassword(t *testing.T) {
	repo := newUserRepo(t)
	u, err := repo.Create(NewUser{Email: "ada@x.com", Password: "oldpass"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		current string
		wantErr error
	}{
		{"unknown user", "missing", "oldpass", ErrNotFound},
		{"wrong current password", u.ID, "wrong", ErrIncorrectPassword},
		{"success", u.ID, "oldpass", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.VerifyAndChangePassword(tt.id, tt.current, "newpass")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	stored, err := repo.FindByID(u.ID)
	require.NoError(t, err)
	assert.True(t, MatchPassword(stored.PasswordHash, "newpass"))
	assert.False(t, MatchPassword(stored.PasswordHash, "oldpass"))
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	repo := newUserRepo(t)
	u, err := repo.Create(NewUser{Email: "ada@x.com", Name: "Ada", Password: "secret1"})
	require.NoError(t, err)

	name := "Ada Lovelace"
	updated, err := repo.UpdateProfile(u.ID, ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, u.Email, updated.Email)
	assert.Equal(t, u.PasswordHash, updated.PasswordHash)

	// Nil fields are left alone
	same, err := repo.UpdateProfile(u.ID, ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", same.Name)

	_, err = repo.UpdateProfile("missing", ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUser_Profile(t *testing.T) {
	u := &User{ID: "1", Email: "ada@x.com", Name: "Ada", PasswordHash: "hash"}
	assert.Equal(t, Profile{ID: "1", Email: "ada@x.com", Name: "Ada"}, u.Profile())
}

func TestHashPassword_MinimumCost(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	// $2a$10$...
	assert.Equal(t, "10", hash[4:6])
}

func TestHashPassword_TooLong(t *testing.T) {
	// 40 runes, 80 bytes
	_, err := HashPassword(strings.Repeat("é", 40), 10)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes), 10)
	assert.NoError(t, err)
}

func TestVerifyAndChangePassword_TooLong(t *testing.T) {
	repo := newUserRepo(t)
	u, err := repo.Create(NewUser{Email: "ada@x.com", Name: "Ada", Password: "secret1"})
	require.NoError(t, err)

	err = repo.VerifyAndChangePassword(u.ID, "secret1", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	found, err := repo.FindByID(u.ID)
	require.NoError(t, err)
	assert.True(t, MatchPassword(found.PasswordHash, "secret1"))
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/feeds/internal/storage"
)

// Result is the outcome of a credential check: Authenticated or
// InvalidCredentials.
type Result interface {
	isResult()
}

type Authenticated struct {
	Identity Identity
}

// InvalidCredentials carries no detail; an unknown email and a wrong
// password are indistinguishable.
type InvalidCredentials struct{}

func (Authenticated) isResult()      {}
func (InvalidCredentials) isResult() {}

// UserFinder looks users up by email.
type UserFinder interface {
	FindByEmail(email string) (*storage.User, error)
}

type Authenticator struct {
	users UserFinder
	// compared against when the email is unknown so both failure paths
	// cost one bcrypt comparison
	dummyHash string
}

func NewAuthenticator(users UserFinder, bcryptCost int) (*Authenticator, error) {
	dummy, err := storage.HashPassword("feeds-dummy-password", bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("preparing authenticator: %w", err)
	}
	return &Authenticator{users: users, dummyHash: dummy}, nil
}

// Authenticate checks email and password. Expected failures are reported
// as InvalidCredentials; the error is reserved for storage faults.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if email == "" || password == "" {
		return InvalidCredentials{}, nil
	}

	user, err := a.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			storage.MatchPassword(a.dummyHash, password)
			return InvalidCredentials{}, nil
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !storage.MatchPassword(user.PasswordHash, password) {
		return InvalidCredentials{}, nil
	}

	return Authenticated{Identity: Identity{UserID: user.ID, Name: user.Name}}, nil
}

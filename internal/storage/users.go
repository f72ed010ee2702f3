package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewUser is the input to UserRepository.Create.
type NewUser struct {
	// ID is optional; a UUID is assigned when empty
	ID       string
	Email    string
	Name     string
	Password string
}

// ProfileUpdate lists the mutable profile fields; nil fields are kept.
type ProfileUpdate struct {
	Name *string
}

// UserRepository is the authoritative record of registered users. Emails
// are matched exactly as stored, so "A@x.com" and "a@x.com" are distinct.
type UserRepository struct {
	store Store
	cost  int
	now   func() time.Time

	// serializes read-modify-write sequences such as check-then-insert
	mu sync.Mutex
}

func NewUserRepository(store Store, bcryptCost int) *UserRepository {
	return &UserRepository{store: store, cost: bcryptCost, now: time.Now}
}

func (r *UserRepository) FindByID(id string) (*User, error) {
	var u User
	if err := getJSON(r.store, usersBucket, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(email string) (*User, error) {
	id, err := r.store.Get(usersByEmailBucket, email)
	if err != nil {
		return nil, err
	}
	return r.FindByID(string(id))
}

// Create registers a user, storing only a bcrypt hash of the password.
// It fails with ErrDuplicateEmail when the email is taken.
func (r *UserRepository) Create(in NewUser) (*User, error) {
	if _, err := r.FindByEmail(in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Hash outside the lock; bcrypt is deliberately slow
	hash, err := HashPassword(in.Password, r.cost)
	if err != nil {
		return nil, err
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	user := &User{
		ID:           id,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Get(usersByEmailBucket, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := putJSON(r.store, usersBucket, user.ID, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	if err := r.store.Put(usersByEmailBucket, user.Email, []byte(user.ID)); err != nil {
		return nil, fmt.Errorf("indexing user email: %w", err)
	}

	return user, nil
}

// VerifyAndChangePassword replaces the password of user id after checking
// current. Returns ErrNotFound or ErrIncorrectPassword.
func (r *UserRepository) VerifyAndChangePassword(id, current, newPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.FindByID(id)
	if err != nil {
		return err
	}

	if !MatchPassword(user.PasswordHash, current) {
		return ErrIncorrectPassword
	}

	hash, err := HashPassword(newPassword, r.cost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if err := putJSON(r.store, usersBucket, user.ID, user); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// UpdateProfile merges the non-nil fields of upd into the stored user.
func (r *UserRepository) UpdateProfile(id string, upd ProfileUpdate) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		user.Name = *upd.Name
	}

	if err := putJSON(r.store, usersBucket, user.ID, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return user, nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count() (int, error) {
	entries, err := r.store.List(usersBucket)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

package storage

import "time"

// DefaultCategory is assigned to private feeds added without a category.
const DefaultCategory = "Uncategorized"

// User is a registered account. PasswordHash is persisted but must never
// leave the process; handlers expose Profile instead.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the public view of a User.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name}
}

// PrivateFeed is a feed subscription owned by exactly one user.
type PrivateFeed struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

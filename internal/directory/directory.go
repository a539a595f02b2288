// Package directory manages user identities: signup, signin, profile updates
// and search. It also resolves owner identities to display names for the
// ledger's read side.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already registered")

	// ErrUserNotFound indicates no user exists for the given identity.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so signin failures are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a directory record. PasswordHash is a bcrypt digest; plaintext
// passwords never leave the signup/signin path.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the "First Last" join used by transfer history.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	PasswordHash *string
	FirstName    *string
	LastName     *string
}

// Store is the durable user directory.
type Store interface {
	// CreateUser inserts user, failing with ErrUsernameTaken on a duplicate
	// username.
	CreateUser(ctx context.Context, user *User) error

	// UserByUsername returns ErrUserNotFound if no such username exists.
	UserByUsername(ctx context.Context, username string) (*User, error)

	// UserByID returns ErrUserNotFound if no such user exists.
	UserByID(ctx context.Context, id string) (*User, error)

	// UpdateProfile applies the non-nil fields of update.
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error

	// Search returns users whose first or last name contains filter
	// (case-insensitive). An empty filter matches everyone.
	Search(ctx context.Context, filter string) ([]User, error)
}

package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// AccountOpener opens a ledger account for a freshly registered user.
// Satisfied by the ledger stores.
type AccountOpener interface {
	CreateAccount(ctx context.Context, ownerID string, opening int64) error
}

// TokenIssuer signs an access token for a user ID. Satisfied by auth.Tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Service implements signup, signin, profile updates and user search.
type Service struct {
	store    Store
	accounts AccountOpener
	tokens   TokenIssuer
	logger   *slog.Logger
}

func NewService(store Store, accounts AccountOpener, tokens TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, accounts: accounts, tokens: tokens, logger: logger}
}

// SignupRequest is a validated signup payload. Field validation (email shape,
// password strength) happens at the API boundary before this is built.
type SignupRequest struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Signup registers a user, opens their account with a random starting
// balance, and returns the new user with a signed token.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, string, error) {
	if _, err := s.store.UserByUsername(ctx, req.Username); err == nil {
		return nil, "", ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	// New users start with a random balance, 1..10000 units.
	opening := 1 + rand.Int63n(10000)
	if err := s.accounts.CreateAccount(ctx, user.ID, opening); err != nil {
		return nil, "", fmt.Errorf("failed to open account: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Signin verifies the credentials and returns a signed token. Unknown
// usernames and wrong passwords produce the same error.
func (s *Service) Signin(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

// UpdateRequest carries optional profile changes; empty fields are untouched.
type UpdateRequest struct {
	Password  string
	FirstName string
	LastName  string
}

// UpdateProfile applies the non-empty fields of req to the user's record.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateRequest) error {
	var update ProfileUpdate
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hashed := string(hash)
		update.PasswordHash = &hashed
	}
	if req.FirstName != "" {
		name := strings.TrimSpace(req.FirstName)
		update.FirstName = &name
	}
	if req.LastName != "" {
		name := strings.TrimSpace(req.LastName)
		update.LastName = &name
	}
	return s.store.UpdateProfile(ctx, userID, update)
}

// Search returns users whose first or last name matches filter.
func (s *Service) Search(ctx context.Context, filter string) ([]User, error) {
	return s.store.Search(ctx, filter)
}

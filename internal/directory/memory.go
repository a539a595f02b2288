package directory

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is the in-process directory used in tests and dev mode.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*User
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*User)}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.byID {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}
	clone := *user
	s.byID[user.ID] = &clone
	s.order = append(s.order, user.ID)
	return nil
}

func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) UserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, filter string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(filter)
	var out []User
	for _, id := range s.order {
		u := s.byID[id]
		if needle == "" ||
			strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle) {
			out = append(out, *u)
		}
	}
	return out, nil
}

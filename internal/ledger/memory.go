package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same transactional semantics as
// the postgres store. A single mutex serializes scopes, so no scope ever
// observes another's uncommitted writes. It backs the unit tests and serves
// as the dev-mode store when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[string]int64)}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, ownerID string, opening int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[ownerID]; ok {
		return ErrAccountExists
	}
	if opening < 0 {
		return &InsufficientFundsError{Balance: 0}
	}
	s.balances[ownerID] = opening
	return nil
}

func (s *MemoryStore) Balance(ctx context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, ok := s.balances[ownerID]
	if !ok {
		return 0, ErrNoAccount
	}
	return bal, nil
}

func (s *MemoryStore) EntriesForOwner(ctx context.Context, ownerID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries commit in timestamp order, so walking backwards yields
	// newest first.
	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.SenderID == ownerID || e.ReceiverID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

// WithinTx stages all writes and applies them only when fn succeeds, so a
// failing scope leaves no trace.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		store:  s,
		staged: make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for owner, bal := range tx.staged {
		s.balances[owner] = bal
	}
	s.entries = append(s.entries, tx.appended...)
	return nil
}

type memTx struct {
	store    *MemoryStore
	staged   map[string]int64
	appended []Entry
}

func (t *memTx) Balance(ctx context.Context, ownerID string) (int64, error) {
	if bal, ok := t.staged[ownerID]; ok {
		return bal, nil
	}
	bal, ok := t.store.balances[ownerID]
	if !ok {
		return 0, ErrNoAccount
	}
	return bal, nil
}

func (t *memTx) AdjustBalance(ctx context.Context, ownerID string, delta int64) (int64, error) {
	bal, err := t.Balance(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	next := bal + delta
	if next < 0 {
		return 0, &InsufficientFundsError{Balance: bal}
	}
	t.staged[ownerID] = next
	return next, nil
}

func (t *memTx) Append(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.appended = append(t.appended, *entry)
	return nil
}

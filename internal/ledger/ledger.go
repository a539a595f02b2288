// Package ledger implements the funds-transfer core: account balances, an
// append-only transfer log, and the engine that moves money between two
// accounts as one atomic unit.
package ledger

import (
	"context"
	"time"
)

// Entry is one committed transfer in the append-only log. Entries are created
// exactly once, atomically with the paired balance adjustments, and never
// updated or deleted.
type Entry struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tx is the atomic scope a transfer executes in. Every read and write made
// through a Tx commits together or not at all; concurrent scopes touching the
// same account serialize.
type Tx interface {
	// Balance returns the current balance for owner, ErrNoAccount if absent.
	Balance(ctx context.Context, ownerID string) (int64, error)

	// AdjustBalance applies delta (positive or negative) and returns the new
	// balance. Returns ErrNoAccount if the account does not exist and an
	// InsufficientFundsError if the result would go negative.
	AdjustBalance(ctx context.Context, ownerID string, delta int64) (int64, error)

	// Append records entry in the transfer log. The write is durable only if
	// the surrounding scope commits.
	Append(ctx context.Context, entry *Entry) error
}

// Store is the durable ledger: accounts keyed by owner plus the transfer log.
// All mutation goes through WithinTx; the read-side methods observe only
// committed state.
type Store interface {
	// CreateAccount opens an account with the given opening balance.
	// Returns ErrAccountExists if the owner already has one.
	CreateAccount(ctx context.Context, ownerID string, opening int64) error

	// Balance returns the committed balance for owner, ErrNoAccount if absent.
	Balance(ctx context.Context, ownerID string) (int64, error)

	// EntriesForOwner returns committed entries where owner is sender or
	// receiver, newest first.
	EntriesForOwner(ctx context.Context, ownerID string) ([]Entry, error)

	// WithinTx runs fn inside an atomic scope. If fn returns an error the
	// scope is rolled back and the error is returned; otherwise the scope
	// commits. The scope is released on every path.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	queryTimeout = 5 * time.Second
	maxRetries   = 5
)

// PostgresStore is the durable Store backed by a pgx pool. Atomic scopes run
// as SERIALIZABLE transactions; serialization failures and deadlocks are
// retried with linear backoff.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// Schema for the two ledger collections. Applied at startup and by the
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    owner_id UUID PRIMARY KEY,
    balance BIGINT NOT NULL CHECK (balance >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transfers (
    id UUID PRIMARY KEY,
    sender_id UUID NOT NULL REFERENCES accounts(owner_id),
    receiver_id UUID NOT NULL REFERENCES accounts(owner_id),
    amount BIGINT NOT NULL CHECK (amount > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (sender_id <> receiver_id)
);

CREATE INDEX IF NOT EXISTS transfers_sender_idx ON transfers (sender_id, created_at DESC);
CREATE INDEX IF NOT EXISTS transfers_receiver_idx ON transfers (receiver_id, created_at DESC);
`

// Migrate applies the ledger schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, ownerID string, opening int64) error {
	if opening < 0 {
		return &InsufficientFundsError{Balance: 0}
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.Pool.Exec(queryCtx, `
		INSERT INTO accounts (owner_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, opening)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountExists
	}
	return nil
}

func (s *PostgresStore) Balance(ctx context.Context, ownerID string) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := s.Pool.QueryRow(queryCtx, `
		SELECT balance FROM accounts WHERE owner_id = $1
	`, ownerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoAccount
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) EntriesForOwner(ctx context.Context, ownerID string) ([]Entry, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, `
		SELECT id, sender_id, receiver_id, amount, created_at
		FROM transfers
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SenderID, &e.ReceiverID, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WithinTx runs fn in a SERIALIZABLE transaction. Business errors from fn
// abort the scope and pass through untouched; serialization failures (40001)
// and deadlocks (40P01) are retried up to maxRetries.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return fmt.Errorf("scope did not commit after %d attempts: %w", maxRetries, err)
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := s.Pool.Acquire(queryCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(queryCtx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(queryCtx)

	if err := fn(&pgTx{tx: tx, ctx: queryCtx}); err != nil {
		return err
	}

	if err := tx.Commit(queryCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

type pgTx struct {
	tx  pgx.Tx
	ctx context.Context
}

func (t *pgTx) Balance(ctx context.Context, ownerID string) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(t.ctx, `
		SELECT balance FROM accounts WHERE owner_id = $1 FOR UPDATE
	`, ownerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoAccount
		}
		return 0, fmt.Errorf("failed to lock account: %w", err)
	}
	return balance, nil
}

func (t *pgTx) AdjustBalance(ctx context.Context, ownerID string, delta int64) (int64, error) {
	current, err := t.Balance(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if current+delta < 0 {
		return 0, &InsufficientFundsError{Balance: current}
	}

	var balance int64
	err = t.tx.QueryRow(t.ctx, `
		UPDATE accounts SET balance = balance + $2
		WHERE owner_id = $1
		RETURNING balance
	`, ownerID, delta).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, nil
}

func (t *pgTx) Append(ctx context.Context, entry *Entry) error {
	err := t.tx.QueryRow(t.ctx, `
		INSERT INTO transfers (id, sender_id, receiver_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, entry.ID, entry.SenderID, entry.ReceiverID, entry.Amount).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append transfer: %w", err)
	}
	return nil
}

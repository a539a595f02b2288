package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run against a real PostgreSQL instance and are skipped
// unless TEST_DATABASE_URL is set.
func newIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestPostgresTransferRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationStore(t)
	engine := NewEngine(store, slog.Default(), nil)

	sender := uuid.NewString()
	receiver := uuid.NewString()
	require.NoError(t, store.CreateAccount(ctx, sender, 500))
	require.NoError(t, store.CreateAccount(ctx, receiver, 0))

	entry, err := engine.Transfer(ctx, sender, receiver, 120)
	require.NoError(t, err)

	senderBalance, err := store.Balance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(380), senderBalance)

	receiverBalance, err := store.Balance(ctx, receiver)
	require.NoError(t, err)
	assert.Equal(t, int64(120), receiverBalance)

	entries, err := store.EntriesForOwner(ctx, sender)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestPostgresConcurrentTransfers(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationStore(t)
	engine := NewEngine(store, slog.Default(), nil)

	const n = 10
	sender := uuid.NewString()
	require.NoError(t, store.CreateAccount(ctx, sender, 5))

	receivers := make([]string, n)
	for i := range receivers {
		receivers[i] = uuid.NewString()
		require.NoError(t, store.CreateAccount(ctx, receivers[i], 0))
	}

	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()
			_, err := engine.Transfer(ctx, sender, recipient, 1)
			results <- err
		}(receivers[i])
	}
	wg.Wait()
	close(results)

	var committed int
	for err := range results {
		if err == nil {
			committed++
			continue
		}
		var insufficient *InsufficientFundsError
		require.ErrorAs(t, err, &insufficient, "unexpected error: %v", err)
	}
	assert.Equal(t, 5, committed)

	balance, err := store.Balance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "sender must land on zero, never negative")
}

func TestPostgresCreateAccountIdempotenceGuard(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationStore(t)

	owner := uuid.NewString()
	require.NoError(t, store.CreateAccount(ctx, owner, 100))
	require.ErrorIs(t, store.CreateAccount(ctx, owner, 100), ErrAccountExists)
}

func TestPostgresBalanceNotFound(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationStore(t)

	_, err := store.Balance(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrNoAccount)
}

func ExampleEngine_Transfer() {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateAccount(ctx, "alice", 100)
	_ = store.CreateAccount(ctx, "bob", 0)

	engine := NewEngine(store, slog.Default(), nil)
	entry, _ := engine.Transfer(ctx, "alice", "bob", 25)
	fmt.Println(entry.Amount)
	// Output: 25
}

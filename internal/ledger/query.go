package ledger

import (
	"context"
	"fmt"
	"time"
)

// Direction says which side of a transfer the queried owner was on.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// HistoryItem is one transfer as seen from a single owner's point of view.
type HistoryItem struct {
	EntryID      string    `json:"entry_id"`
	Counterparty string    `json:"counterparty"`
	Direction    Direction `json:"direction"`
	Amount       int64     `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// NameResolver joins an owner identity to a display name. Supplied by the
// user directory; the ledger core never stores names.
type NameResolver interface {
	ResolveDisplayName(ctx context.Context, ownerID string) (string, error)
}

// Queries is the read side of the ledger. It observes only committed state
// and runs independently of transfer execution.
type Queries struct {
	store    Store
	resolver NameResolver
}

func NewQueries(store Store, resolver NameResolver) *Queries {
	return &Queries{store: store, resolver: resolver}
}

// Balance returns the committed balance for owner.
func (q *Queries) Balance(ctx context.Context, ownerID string) (int64, error) {
	return q.store.Balance(ctx, ownerID)
}

// History returns the owner's committed transfers, newest first, with each
// counterparty resolved to a display name. A counterparty whose name cannot
// be resolved fails the whole query rather than returning a partial view.
func (q *Queries) History(ctx context.Context, ownerID string) ([]HistoryItem, error) {
	entries, err := q.store.EntriesForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := HistoryItem{
			EntryID:   e.ID,
			Amount:    e.Amount,
			CreatedAt: e.CreatedAt,
		}
		counterpartyID := e.ReceiverID
		if e.ReceiverID == ownerID {
			item.Direction = DirectionReceived
			counterpartyID = e.SenderID
		} else {
			item.Direction = DirectionSent
		}

		name, err := q.resolver.ResolveDisplayName(ctx, counterpartyID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve counterparty %s: %w", counterpartyID, err)
		}
		item.Counterparty = name
		items = append(items, item)
	}
	return items, nil
}

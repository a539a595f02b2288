package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher is notified after a transfer commits. Implementations must not
// block the request path for long; publish failures are logged, not surfaced.
type Publisher interface {
	TransferCompleted(ctx context.Context, entry Entry)
}

// Engine orchestrates a funds transfer: validation, the atomic scope, the
// paired balance adjustments and the log append. It deals in owner identities
// only; resolving identities to display names belongs to the query side.
type Engine struct {
	store     Store
	logger    *slog.Logger
	publisher Publisher
}

func NewEngine(store Store, logger *slog.Logger, publisher Publisher) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger, publisher: publisher}
}

// Transfer moves amount from actorID to recipientID. The debit, credit and
// log append commit together or not at all; no interleaving with concurrent
// transfers can observe a half-applied state or overdraw the sender.
//
// Validation failures short-circuit: a failed check aborts the scope and
// returns immediately, it never signals and proceeds. Unexpected store faults
// surface as ErrTransferAborted; retrying after one is the caller's call and
// the engine offers no idempotency keys to deduplicate with.
func (e *Engine) Transfer(ctx context.Context, actorID, recipientID string, amount int64) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if recipientID == "" {
		return nil, ErrInvalidRecipient
	}
	if recipientID == actorID {
		return nil, ErrSelfTransfer
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		SenderID:   actorID,
		ReceiverID: recipientID,
		Amount:     amount,
	}

	start := time.Now()
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		senderBalance, err := tx.Balance(ctx, actorID)
		if err != nil {
			if errors.Is(err, ErrNoAccount) {
				return ErrInvalidSender
			}
			return err
		}
		if senderBalance < amount {
			return &InsufficientFundsError{Balance: senderBalance}
		}

		if _, err := tx.Balance(ctx, recipientID); err != nil {
			if errors.Is(err, ErrNoAccount) {
				return ErrInvalidReceiver
			}
			return err
		}

		if err := tx.Append(ctx, entry); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, actorID, -amount); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, recipientID, amount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if IsBusinessError(err) {
			return nil, err
		}
		e.logger.Error("transfer aborted",
			"sender", actorID,
			"receiver", recipientID,
			"amount", amount,
			"error", err,
		)
		return nil, errors.Join(ErrTransferAborted, err)
	}

	e.logger.Info("transfer committed",
		"entry_id", entry.ID,
		"sender", actorID,
		"receiver", recipientID,
		"amount", amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if e.publisher != nil {
		e.publisher.TransferCompleted(ctx, *entry)
	}
	return entry, nil
}

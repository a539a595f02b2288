// Package events publishes ledger events to NATS so downstream consumers
// (notifications, analytics) can react to committed transfers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/harshverma7/payment-web/internal/ledger"
)

const SubjectTransferCompleted = "transfers.completed"

// Publisher emits transfer events on a NATS connection. Publishing is
// fire-and-forget: the transfer has already committed, so failures are
// logged and dropped rather than surfaced to the caller.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewPublisher(nc *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger}
}

// TransferCompleted implements ledger.Publisher.
func (p *Publisher) TransferCompleted(ctx context.Context, entry ledger.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("failed to encode transfer event", "entry_id", entry.ID, "error", err)
		return
	}
	if err := p.nc.Publish(SubjectTransferCompleted, data); err != nil {
		p.logger.Error("failed to publish transfer event", "entry_id", entry.ID, "error", err)
	}
}

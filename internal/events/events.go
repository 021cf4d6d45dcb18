// Package events publishes committed ledger transactions to downstream systems.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/logging"
)

// RoutingPrefix prefixes the routing key of every transaction event.
const RoutingPrefix = "ledger.transaction."

// Event describes one committed transaction.
type Event struct {
	ID            string          `json:"event_id"`
	TransactionID int64           `json:"transaction_id"`
	Type          string          `json:"transaction_type"`
	SenderID      *int64          `json:"sender_id"`
	ReceiverID    *int64          `json:"receiver_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEvent stamps a fresh event id on the given transaction fields.
func NewEvent(transactionID int64, kind string, sender, receiver *int64, amount decimal.Decimal, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Type:          kind,
		SenderID:      sender,
		ReceiverID:    receiver,
		Amount:        amount,
		OccurredAt:    at.UTC(),
	}
}

// RoutingKey is the topic the event is published under.
func (e Event) RoutingKey() string {
	return RoutingPrefix + e.Type
}

// Publisher delivers events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerPublisher writes events to the structured logger.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logging.Component(logger, "events")}
}

// Publish logs the event.
func (p *LoggerPublisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("transaction committed",
		slog.String("event_id", event.ID),
		slog.String("routing_key", event.RoutingKey()),
		slog.Int64("transaction_id", event.TransactionID),
		slog.String("amount", event.Amount.String()),
	)
	return nil
}

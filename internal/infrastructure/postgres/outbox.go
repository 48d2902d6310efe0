package postgres

import (
	"context"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/jackc/pgx/v5"
)

// insertOutbox stages a domain event for the publishing worker. Callers run
// it inside the same transaction as the state change it announces.
func insertOutbox(ctx context.Context, tx pgx.Tx, msg domain.OutboxMessage) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (message_id, routing_key, payload, occurred_at, status, attempt, next_retry_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, NOW())
	`, msg.MessageID, msg.RoutingKey, msg.Payload, msg.OccurredAt)
	return err
}

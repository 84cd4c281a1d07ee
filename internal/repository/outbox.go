package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webstore/store-api/internal/events"
)

const (
	insertOutboxSQL = `INSERT INTO outbox (event_id, topic, key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	fetchPendingSQL = `SELECT id, event_id, topic, key, payload, created_at
		FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`

	markSentSQL = `UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`
)

var _ events.Outbox = (*OutboxRepository)(nil)

// OutboxRepository reads and acknowledges pending order events.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns an OutboxRepository that uses the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// FetchPending returns up to limit unsent events, oldest first.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]events.Record, error) {
	rows, err := r.pool.Query(ctx, fetchPendingSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching pending events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (events.Record, error) {
		var rec events.Record
		err := row.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt)
		return rec, err
	})
}

// MarkSent acknowledges the given events.
func (r *OutboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	if _, err := r.pool.Exec(ctx, markSentSQL, ids); err != nil {
		return fmt.Errorf("marking events sent: %w", err)
	}
	return nil
}

// insertEvent writes ev to the outbox inside tx.
func insertEvent(ctx context.Context, tx pgx.Tx, ev events.Event) error {
	_, err := tx.Exec(ctx, insertOutboxSQL, ev.ID, ev.Type, ev.Key(), ev.Payload(), ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("writing %s event: %w", ev.Type, err)
	}
	return nil
}

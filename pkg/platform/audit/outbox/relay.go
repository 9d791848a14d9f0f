// Package outbox relays unpublished audit outbox rows to a message broker.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Producer publishes one keyed message. Implementations must be synchronous:
// a nil error means the broker acknowledged the message.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Relay polls the outbox and publishes rows in creation order. Rows are
// claimed with SKIP LOCKED so several relays can run side by side.
type Relay struct {
	db        *sql.DB
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRelay(db *sql.DB, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		producer:  producer,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.PublishBatch(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// PublishBatch publishes up to one batch and returns how many rows were sent.
// A producer failure rolls back the claim so the rows are retried.
func (r *Relay) PublishBatch(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, COALESCE(organization_id::text, ''), payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}
	type row struct {
		id      string
		key     string
		payload []byte
	}
	var claimed []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.key, &rw.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		claimed = append(claimed, rw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(claimed))
	for _, rw := range claimed {
		if err := r.producer.Produce(ctx, []byte(rw.key), rw.payload); err != nil {
			return 0, fmt.Errorf("publish outbox row %s: %w", rw.id, err)
		}
		ids = append(ids, rw.id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = now() WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("mark outbox rows published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(ids), nil
}

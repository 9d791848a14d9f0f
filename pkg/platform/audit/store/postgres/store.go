package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "tradegraph/pkg/domain"
	audit "tradegraph/pkg/platform/audit"
	txcontext "tradegraph/pkg/platform/tx"
)

// Store writes audit events into audit_outbox. A row appended inside a
// txcontext transaction commits or rolls back with the ledger change it
// describes; outbox.Relay later ships committed rows to Kafka.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const insertOutbox = `
	INSERT INTO audit_outbox (id, organization_id, category, action, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event %s: %w", event.Action, err)
	}
	if _, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, insertOutbox,
		uuid.New(), nullableOrg(event.OrgID), string(event.Category), event.Action, payload, event.Timestamp,
	); err != nil {
		return fmt.Errorf("append audit event %s: %w", event.Action, err)
	}
	return nil
}

// System events carry no organization and are stored with a NULL key.
func nullableOrg(org id.OrgID) any {
	if org.IsNil() {
		return nil
	}
	return uuid.UUID(org)
}

const selectByOrg = `
	SELECT payload FROM audit_outbox
	WHERE organization_id = $1
	ORDER BY seq`

// ListByOrg returns the organization's events in the order they were appended.
func (s *Store) ListByOrg(ctx context.Context, org id.OrgID) ([]audit.Event, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, selectByOrg, uuid.UUID(org))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			raw   []byte
			event audit.Event
		)
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list audit events: %w", err)
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

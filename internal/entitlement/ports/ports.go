// Package ports defines the interfaces the entitlement module consumes.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks LedgerStore,OrganizationStore

import (
	"context"
	"log/slog"

	"tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/requestcontext"
)

// LedgerStore is the append-only credit ledger. Stores report facts with
// sentinel errors; the guard translates them.
type LedgerStore interface {
	// Grant appends a COMMITTED GRANT entry.
	Grant(ctx context.Context, entry *models.LedgerEntry) error

	// Reserve appends a RESERVED USAGE entry if the pool's available balance
	// covers entry.Amount. Reservation is atomic per (organization, credit
	// type). Returns the balance after the reservation, or the current
	// balance with sentinel.ErrInsufficientBalance.
	Reserve(ctx context.Context, entry *models.LedgerEntry) (available int64, err error)

	// Commit moves a RESERVED entry to COMMITTED. Returns
	// sentinel.ErrNotFound or sentinel.ErrInvalidState.
	Commit(ctx context.Context, entryID id.LedgerEntryID) error

	// Release moves a RESERVED entry to RELEASED. Returns
	// sentinel.ErrNotFound or sentinel.ErrInvalidState.
	Release(ctx context.Context, entryID id.LedgerEntryID) error

	// Balance derives the balance of one pool.
	Balance(ctx context.Context, orgID id.OrgID, creditType models.CreditType) (*models.Balance, error)

	// Entries lists an organization's entries oldest first.
	Entries(ctx context.Context, orgID id.OrgID) ([]*models.LedgerEntry, error)
}

// OrganizationStore persists organizations.
type OrganizationStore interface {
	// Create returns sentinel.ErrConflict when the id exists.
	Create(ctx context.Context, org *models.Organization) error

	// FindByID returns sentinel.ErrNotFound when missing.
	FindByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error)

	// UpdateTier returns sentinel.ErrNotFound when missing.
	UpdateTier(ctx context.Context, orgID id.OrgID, tier models.Tier) error
}

// TxRunner runs fn in one transaction so ledger writes and their audit
// outbox rows commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher emits audit events for billing and security relevant actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit event and emits it when a publisher is configured.
// Emission failures are logged, never returned.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	if err := EmitAudit(ctx, logger, publisher, event, attrs...); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}

// EmitAudit is LogAudit for callers inside a transaction: the emission error
// is returned so the caller can roll back with it.
func EmitAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) error {
	event.RequestID = requestcontext.RequestID(ctx)
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	args := append(attrs, "event", event.Action, "organization_id", event.OrgID.String(), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}
	if publisher == nil {
		return nil
	}
	return publisher.Emit(ctx, event)
}

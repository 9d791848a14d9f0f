package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/sentinel"
	txcontext "tradegraph/pkg/platform/tx"
	"tradegraph/pkg/requestcontext"
)

// PostgresStore persists the credit ledger in PostgreSQL. Reservations take
// a transaction-scoped advisory lock on the (organization, credit type) key,
// so concurrent reservations for the same pool serialize while different
// pools proceed in parallel.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const balanceQuery = `
	SELECT
		COALESCE(SUM(amount) FILTER (WHERE kind = 'GRANT'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'USAGE' AND state = 'COMMITTED'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'USAGE' AND state = 'RESERVED'), 0)
	FROM credit_ledger
	WHERE organization_id = $1 AND credit_type = $2`

const insertEntry = `
	INSERT INTO credit_ledger
		(id, organization_id, credit_type, kind, amount, operation, state, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (s *PostgresStore) Grant(ctx context.Context, entry *models.LedgerEntry) error {
	e := stamp(ctx, entry, models.KindGrant, models.StateCommitted)
	return s.withTx(ctx, func(q txcontext.Querier) error {
		return insert(ctx, q, e)
	})
}

func (s *PostgresStore) Reserve(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	var available int64
	err := s.withTx(ctx, func(q txcontext.Querier) error {
		lockKey := entry.OrgID.String() + ":" + entry.CreditType.String()
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("lock credit pool: %w", err)
		}
		b, err := balance(ctx, q, entry.OrgID, entry.CreditType)
		if err != nil {
			return err
		}
		available = b.Available()
		if available < entry.Amount {
			return sentinel.ErrInsufficientBalance
		}
		if err := insert(ctx, q, stamp(ctx, entry, models.KindUsage, models.StateReserved)); err != nil {
			return err
		}
		available -= entry.Amount
		return nil
	})
	return available, err
}

func (s *PostgresStore) Commit(ctx context.Context, entryID id.LedgerEntryID) error {
	return s.transition(ctx, entryID, models.StateCommitted)
}

func (s *PostgresStore) Release(ctx context.Context, entryID id.LedgerEntryID) error {
	return s.transition(ctx, entryID, models.StateReleased)
}

func (s *PostgresStore) transition(ctx context.Context, entryID id.LedgerEntryID, to models.EntryState) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE credit_ledger SET state = $1, updated_at = $2
		WHERE id = $3 AND kind = 'USAGE' AND state = 'RESERVED'`,
		string(to), requestcontext.Now(ctx), uuid.UUID(entryID))
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM credit_ledger WHERE id = $1)`, uuid.UUID(entryID)).Scan(&exists); err != nil {
		return fmt.Errorf("check ledger entry: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) Balance(ctx context.Context, orgID id.OrgID, creditType models.CreditType) (*models.Balance, error) {
	b, err := balance(ctx, txcontext.Conn(ctx, s.db), orgID, creditType)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) Entries(ctx context.Context, orgID id.OrgID) ([]*models.LedgerEntry, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, organization_id, credit_type, kind, amount, operation, state, created_at, updated_at
		FROM credit_ledger
		WHERE organization_id = $1
		ORDER BY created_at, id`, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*models.LedgerEntry
	for rows.Next() {
		var (
			e                   models.LedgerEntry
			entryID, org        uuid.UUID
			ct, kind, op, state string
		)
		if err := rows.Scan(&entryID, &org, &ct, &kind, &e.Amount, &op, &state, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.ID = id.LedgerEntryID(entryID)
		e.OrgID = id.OrgID(org)
		e.CreditType = models.CreditType(ct)
		e.Kind = models.EntryKind(kind)
		e.Operation = models.Operation(op)
		e.State = models.EntryState(state)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

// withTx joins a transaction already in ctx or runs fn in a new one.
func (s *PostgresStore) withTx(ctx context.Context, fn func(txcontext.Querier) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func balance(ctx context.Context, q txcontext.Querier, orgID id.OrgID, creditType models.CreditType) (models.Balance, error) {
	b := models.Balance{CreditType: creditType}
	err := q.QueryRowContext(ctx, balanceQuery, uuid.UUID(orgID), creditType.String()).
		Scan(&b.Granted, &b.Committed, &b.Reserved)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("read balance: %w", err)
	}
	return b, nil
}

func insert(ctx context.Context, q txcontext.Querier, e *models.LedgerEntry) error {
	_, err := q.ExecContext(ctx, insertEntry,
		uuid.UUID(e.ID), uuid.UUID(e.OrgID), e.CreditType.String(), string(e.Kind),
		e.Amount, string(e.Operation), string(e.State), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/sentinel"
	txcontext "tradegraph/pkg/platform/tx"
	"tradegraph/pkg/requestcontext"
)

const uniqueViolation = "23505"

// PostgresStore persists organizations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, org *models.Organization) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO organizations (id, name, tier, seat_quota, api_quota, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(org.ID), org.Name, org.Tier.String(), org.SeatQuota, org.APIQuota, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	var (
		org  models.Organization
		raw  uuid.UUID
		tier string
	)
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, name, tier, seat_quota, api_quota, created_at, updated_at
		FROM organizations WHERE id = $1`, uuid.UUID(orgID)).
		Scan(&raw, &org.Name, &tier, &org.SeatQuota, &org.APIQuota, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find organization: %w", err)
	}
	org.ID = id.OrgID(raw)
	// An unrecognised stored tier stays TierUnknown and fails every tier check.
	org.Tier, _ = models.LookupTier(tier)
	return &org, nil
}

func (s *PostgresStore) UpdateTier(ctx context.Context, orgID id.OrgID, tier models.Tier) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE organizations SET tier = $1, updated_at = $2 WHERE id = $3`,
		tier.String(), requestcontext.Now(ctx), uuid.UUID(orgID))
	if err != nil {
		return fmt.Errorf("update organization tier: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update organization tier: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

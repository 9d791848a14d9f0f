package guard

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"tradegraph/internal/entitlement/models"
	"tradegraph/internal/entitlement/ports"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/platform/sentinel"
	"tradegraph/pkg/requestcontext"
)

// CreateOrganizationCommand registers a subscribing organization.
type CreateOrganizationCommand struct {
	Name      string
	Tier      models.Tier
	SeatQuota int
	APIQuota  int
}

func (c *CreateOrganizationCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.Validation("name", "is required")
	}
	if !c.Tier.IsValid() {
		return dErrors.Validation("tier", "must be one of STARTER, PRO, ENTERPRISE, CHAMBER, GOV")
	}
	if c.SeatQuota < 0 {
		return dErrors.Validation("seatQuota", "must not be negative")
	}
	if c.APIQuota < 0 {
		return dErrors.Validation("apiQuota", "must not be negative")
	}
	return nil
}

func (g *Guard) CreateOrganization(ctx context.Context, cmd CreateOrganizationCommand) (*models.Organization, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	org := &models.Organization{
		ID:        id.OrgID(uuid.New()),
		Name:      strings.TrimSpace(cmd.Name),
		Tier:      cmd.Tier,
		SeatQuota: cmd.SeatQuota,
		APIQuota:  cmd.APIQuota,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.orgs.Create(ctx, org); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "organization already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}

	ports.LogAudit(ctx, g.logger, g.auditPublisher, audit.Event{
		Category:  audit.EventOrgCreated.Category(),
		Timestamp: now,
		OrgID:     org.ID,
		Action:    string(audit.EventOrgCreated),
		Reason:    org.Tier.String(),
	}, "tier", org.Tier.String())
	return org, nil
}

// GetOrganization returns the organization or a not_found error.
func (g *Guard) GetOrganization(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	org, err := g.orgs.FindByID(ctx, orgID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

func (g *Guard) ChangeTier(ctx context.Context, orgID id.OrgID, tier models.Tier, actorID string) (*models.Organization, error) {
	if !tier.IsValid() {
		return nil, dErrors.Validation("tier", "must be one of STARTER, PRO, ENTERPRISE, CHAMBER, GOV")
	}
	if err := g.orgs.UpdateTier(ctx, orgID, tier); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to change tier")
	}

	ports.LogAudit(ctx, g.logger, g.auditPublisher, audit.Event{
		Category:  audit.EventOrgTierChanged.Category(),
		Timestamp: requestcontext.Now(ctx),
		OrgID:     orgID,
		Action:    string(audit.EventOrgTierChanged),
		Reason:    tier.String(),
		ActorID:   actorID,
	}, "tier", tier.String())
	return g.GetOrganization(ctx, orgID)
}

// Grant adds credits to one pool and returns the pool's new balance.
func (g *Guard) Grant(ctx context.Context, orgID id.OrgID, creditType models.CreditType, amount int64, actorID string) (*models.Balance, error) {
	if !creditType.IsValid() {
		return nil, dErrors.Validation("creditType", "unknown credit type")
	}
	if amount <= 0 {
		return nil, dErrors.Validation("amount", "must be positive")
	}
	if _, err := g.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{OrgID: orgID, CreditType: creditType, Amount: amount}
	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := g.ledger.Grant(ctx, entry); err != nil {
			return err
		}
		return g.emit(ctx, audit.Event{
			Category:   audit.EventCreditsGranted.Category(),
			Timestamp:  requestcontext.Now(ctx),
			OrgID:      orgID,
			Action:     string(audit.EventCreditsGranted),
			CreditType: creditType.String(),
			Amount:     amount,
			EntryID:    entry.ID.String(),
			ActorID:    actorID,
		}, "amount", amount, "credit_type", creditType.String())
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant credits")
	}
	g.metrics.AddGranted(creditType.String(), amount)

	b, err := g.ledger.Balance(ctx, orgID, creditType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return b, nil
}

// Balances returns every credit pool of the organization, including empty ones.
func (g *Guard) Balances(ctx context.Context, orgID id.OrgID) ([]models.Balance, error) {
	if _, err := g.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	out := make([]models.Balance, 0, len(models.CreditTypes))
	for _, ct := range models.CreditTypes {
		b, err := g.ledger.Balance(ctx, orgID, ct)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		out = append(out, *b)
	}
	return out, nil
}

// Entries returns the organization's ledger history, oldest first.
func (g *Guard) Entries(ctx context.Context, orgID id.OrgID) ([]*models.LedgerEntry, error) {
	if _, err := g.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	entries, err := g.ledger.Entries(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger entries")
	}
	return entries, nil
}

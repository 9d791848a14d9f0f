//go:build integration

package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"tradegraph/internal/entitlement/models"
	"tradegraph/internal/entitlement/store/ledger"
	"tradegraph/internal/entitlement/store/organization"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/platform/audit/publisher"
	auditpostgres "tradegraph/pkg/platform/audit/store/postgres"
	txcontext "tradegraph/pkg/platform/tx"
	"tradegraph/pkg/testutil/containers"
)

// =============================================================================
// Guard over Postgres
// =============================================================================
// Ledger transitions and their audit outbox rows share one transaction.

type GuardPostgresSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	audit  *auditpostgres.Store
	ledger *ledger.PostgresStore
	guard  *Guard
}

func TestGuardPostgresSuite(t *testing.T) {
	suite.Run(t, new(GuardPostgresSuite))
}

func (s *GuardPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
}

func (s *GuardPostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateTables(ctx, "credit_ledger", "organizations", "audit_outbox"))

	s.audit = auditpostgres.New(s.pg.DB)
	s.ledger = ledger.NewPostgres(s.pg.DB)
	g, err := New(organization.NewPostgres(s.pg.DB), s.ledger,
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithTxRunner(txcontext.NewRunner(s.pg.DB)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
	s.guard = g
}

func (s *GuardPostgresSuite) actions(org *models.Organization) []string {
	events, err := s.audit.ListByOrg(context.Background(), org.ID)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *GuardPostgresSuite) TestMeteredCallWritesLedgerAndOutbox() {
	ctx := context.Background()
	org, err := s.guard.CreateOrganization(ctx, CreateOrganizationCommand{Name: "Acme", Tier: models.TierPro})
	s.Require().NoError(err)
	_, err = s.guard.Grant(ctx, org.ID, models.CreditComplianceCheck, 2, "ops")
	s.Require().NoError(err)

	s.Require().NoError(s.guard.Execute(ctx, org.ID, models.OpComplianceCheck, 1, func(context.Context) error {
		return nil
	}))
	err = s.guard.Execute(ctx, org.ID, models.OpComplianceCheck, 1, func(context.Context) error {
		return errors.New("provider down")
	})
	s.Require().Error(err)

	b, err := s.ledger.Balance(ctx, org.ID, models.CreditComplianceCheck)
	s.Require().NoError(err)
	s.Equal(int64(1), b.Committed)
	s.Equal(int64(0), b.Reserved)
	s.Equal(int64(1), b.Available())

	s.Equal([]string{
		string(audit.EventOrgCreated),
		string(audit.EventCreditsGranted),
		string(audit.EventCreditReserved),
		string(audit.EventCreditCommitted),
		string(audit.EventCreditReserved),
		string(audit.EventCreditReleased),
	}, s.actions(org))
}

func (s *GuardPostgresSuite) TestRolledBackTransactionLeavesNoTrace() {
	ctx := context.Background()
	org, err := s.guard.CreateOrganization(ctx, CreateOrganizationCommand{Name: "Acme", Tier: models.TierPro})
	s.Require().NoError(err)

	runner := txcontext.NewRunner(s.pg.DB)
	boom := errors.New("boom")
	err = runner.RunInTx(ctx, func(ctx context.Context) error {
		entry := &models.LedgerEntry{OrgID: org.ID, CreditType: models.CreditComplianceCheck, Amount: 5}
		s.Require().NoError(s.ledger.Grant(ctx, entry))
		s.Require().NoError(s.audit.Append(ctx, audit.Event{
			Category: audit.EventCreditsGranted.Category(),
			OrgID:    org.ID,
			Action:   string(audit.EventCreditsGranted),
		}))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	b, err := s.ledger.Balance(ctx, org.ID, models.CreditComplianceCheck)
	s.Require().NoError(err)
	s.Zero(b.Granted)
	s.Equal([]string{string(audit.EventOrgCreated)}, s.actions(org))
}

// failingOutbox rejects one action and passes everything else through.
type failingOutbox struct {
	*auditpostgres.Store
	failOn audit.AuditEvent
}

func (f *failingOutbox) Append(ctx context.Context, event audit.Event) error {
	if event.Action == string(f.failOn) {
		return errors.New("outbox unavailable")
	}
	return f.Store.Append(ctx, event)
}

func (s *GuardPostgresSuite) TestFailedReserveAuditRollsBackReservation() {
	ctx := context.Background()
	org, err := s.guard.CreateOrganization(ctx, CreateOrganizationCommand{Name: "Acme", Tier: models.TierPro})
	s.Require().NoError(err)
	_, err = s.guard.Grant(ctx, org.ID, models.CreditComplianceCheck, 2, "ops")
	s.Require().NoError(err)

	outbox := &failingOutbox{Store: s.audit, failOn: audit.EventCreditReserved}
	g, err := New(organization.NewPostgres(s.pg.DB), s.ledger,
		WithAuditPublisher(publisher.NewPublisher(outbox)),
		WithTxRunner(txcontext.NewRunner(s.pg.DB)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)

	called := false
	err = g.Execute(ctx, org.ID, models.OpComplianceCheck, 1, func(context.Context) error {
		called = true
		return nil
	})
	s.Require().Error(err)
	s.False(called)

	b, err := s.ledger.Balance(ctx, org.ID, models.CreditComplianceCheck)
	s.Require().NoError(err)
	s.Zero(b.Reserved)
	s.Zero(b.Committed)
	s.Equal(int64(2), b.Available())

	entries, err := s.ledger.Entries(ctx, org.ID)
	s.Require().NoError(err)
	s.Len(entries, 1, "only the grant survives")
	s.Equal([]string{
		string(audit.EventOrgCreated),
		string(audit.EventCreditsGranted),
	}, s.actions(org))
}

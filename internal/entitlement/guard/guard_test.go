package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tradegraph/internal/entitlement/models"
	"tradegraph/internal/entitlement/ports/mocks"
	"tradegraph/internal/entitlement/store/ledger"
	"tradegraph/internal/entitlement/store/organization"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/platform/audit/publisher"
	auditmemory "tradegraph/pkg/platform/audit/store/memory"
)

// =============================================================================
// Guard Test Suite
// =============================================================================
// Runs against the in-memory stores so the reserve/commit/release sequence
// is observed through real balances. Store failures use gomock.

type GuardSuite struct {
	suite.Suite
	ctx       context.Context
	orgs      *organization.InMemory
	ledger    *ledger.InMemoryStore
	auditLog  *auditmemory.InMemoryStore
	publisher *publisher.Publisher
	guard     *Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.ctx = context.Background()
	s.orgs = organization.NewInMemory()
	s.ledger = ledger.NewInMemory()
	s.auditLog = auditmemory.NewInMemoryStore()
	s.publisher = publisher.NewPublisher(s.auditLog)

	var err error
	s.guard, err = New(s.orgs, s.ledger,
		WithAuditPublisher(s.publisher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *GuardSuite) newOrg(tier models.Tier) id.OrgID {
	org, err := s.guard.CreateOrganization(s.ctx, CreateOrganizationCommand{Name: "Acme " + tier.String(), Tier: tier})
	s.Require().NoError(err)
	return org.ID
}

func (s *GuardSuite) grant(orgID id.OrgID, ct models.CreditType, amount int64) {
	_, err := s.guard.Grant(s.ctx, orgID, ct, amount, "admin")
	s.Require().NoError(err)
}

func (s *GuardSuite) balance(orgID id.OrgID, ct models.CreditType) models.Balance {
	b, err := s.ledger.Balance(s.ctx, orgID, ct)
	s.Require().NoError(err)
	return *b
}

func (s *GuardSuite) actions(orgID id.OrgID) []string {
	events, err := s.publisher.List(s.ctx, orgID)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func noop(context.Context) error { return nil }

// =============================================================================
// Tier Tests
// =============================================================================

func (s *GuardSuite) TestTierGate() {
	s.Run("lower tier is denied with the required tier", func() {
		orgID := s.newOrg(models.TierStarter)
		called := false
		err := s.guard.Execute(s.ctx, orgID, models.OpLandedCost, 1, func(context.Context) error {
			called = true
			return nil
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientTier))
		de, _ := dErrors.As(err)
		s.Equal("PRO", de.Details["required_tier"])
		s.False(called)
		s.Contains(s.actions(orgID), string(audit.EventTierDenied))
	})

	s.Run("chamber ranks with enterprise", func() {
		orgID := s.newOrg(models.TierChamber)
		s.grant(orgID, models.CreditPEPCheck, 1)
		s.NoError(s.guard.Execute(s.ctx, orgID, models.OpPEPCheck, 1, noop))
	})

	s.Run("gov passes every gate", func() {
		orgID := s.newOrg(models.TierGov)
		for op, policy := range models.Policies {
			if policy.Metered() {
				s.grant(orgID, policy.CreditType, 1)
			}
			s.NoError(s.guard.Execute(s.ctx, orgID, op, 1, noop), "operation %s", op)
		}
	})

	s.Run("unknown tier fails closed", func() {
		orgID := id.OrgID(uuid.New())
		s.Require().NoError(s.orgs.Create(s.ctx, &models.Organization{ID: orgID, Name: "Legacy", Tier: models.TierUnknown}))
		err := s.guard.Execute(s.ctx, orgID, models.OpSearch, 1, noop)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientTier))
	})

	s.Run("unknown organization is unauthorized", func() {
		err := s.guard.Execute(s.ctx, id.OrgID(uuid.New()), models.OpSearch, 1, noop)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown operation is an internal error", func() {
		orgID := s.newOrg(models.TierGov)
		err := s.guard.Execute(s.ctx, orgID, "teleport", 1, noop)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// =============================================================================
// Metering Tests
// =============================================================================

func (s *GuardSuite) TestSuccessCommits() {
	orgID := s.newOrg(models.TierPro)
	s.grant(orgID, models.CreditComplianceCheck, 5)

	s.Require().NoError(s.guard.Execute(s.ctx, orgID, models.OpComplianceCheck, 1, noop))

	b := s.balance(orgID, models.CreditComplianceCheck)
	s.Equal(int64(4), b.Available())
	s.Equal(int64(1), b.Committed)
	s.Zero(b.Reserved)
	s.Equal([]string{
		string(audit.EventOrgCreated),
		string(audit.EventCreditsGranted),
		string(audit.EventCreditReserved),
		string(audit.EventCreditCommitted),
	}, s.actions(orgID))
}

func (s *GuardSuite) TestFailureReleases() {
	orgID := s.newOrg(models.TierPro)
	s.grant(orgID, models.CreditComplianceCheck, 2)

	s.Run("operation error", func() {
		boom := errors.New("provider down")
		err := s.guard.Execute(s.ctx, orgID, models.OpComplianceCheck, 1, func(context.Context) error { return boom })
		s.ErrorIs(err, boom)
		s.Equal(int64(2), s.balance(orgID, models.CreditComplianceCheck).Available())
	})

	s.Run("caller cancellation", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		err := s.guard.Execute(ctx, orgID, models.OpComplianceCheck, 1, func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		})
		s.ErrorIs(err, context.Canceled)
		b := s.balance(orgID, models.CreditComplianceCheck)
		s.Equal(int64(2), b.Available())
		s.Zero(b.Reserved)
	})

	s.Run("panic releases and propagates", func() {
		s.Panics(func() {
			_ = s.guard.Execute(s.ctx, orgID, models.OpComplianceCheck, 1, func(context.Context) error {
				panic("bug")
			})
		})
		s.Equal(int64(2), s.balance(orgID, models.CreditComplianceCheck).Available())
	})

	entries, err := s.ledger.Entries(s.ctx, orgID)
	s.Require().NoError(err)
	for _, e := range entries {
		s.NotEqual(models.StateReserved, e.State, "entry %s left reserved", e.ID)
	}
}

func (s *GuardSuite) TestQuotaExceeded() {
	orgID := s.newOrg(models.TierEnterprise)
	s.grant(orgID, models.CreditBatchCheck, 39)

	called := false
	err := s.guard.Execute(s.ctx, orgID, models.OpBatchComplianceCheck, 40, func(context.Context) error {
		called = true
		return nil
	})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	de, _ := dErrors.As(err)
	s.Equal(int64(39), de.Details["remaining"])
	s.Equal(int64(40), de.Details["required"])
	s.False(called)
	s.Equal(int64(39), s.balance(orgID, models.CreditBatchCheck).Available())

	s.Run("batch cost is reserved in one entry", func() {
		s.Require().NoError(s.guard.Execute(s.ctx, orgID, models.OpBatchComplianceCheck, 39, noop))
		entries, err := s.ledger.Entries(s.ctx, orgID)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(int64(39), entries[1].Amount)
	})

	s.Run("units below one are rejected for metered operations", func() {
		err := s.guard.Execute(s.ctx, orgID, models.OpBatchComplianceCheck, 0, noop)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// Ten concurrent compliance checks against three credits: exactly three run.
func (s *GuardSuite) TestConcurrentReservations() {
	orgID := s.newOrg(models.TierPro)
	s.grant(orgID, models.CreditComplianceCheck, 3)

	var (
		wg       sync.WaitGroup
		ran      atomic.Int32
		exceeded atomic.Int32
		start    = make(chan struct{})
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.guard.Execute(s.ctx, orgID, models.OpComplianceCheck, 1, func(context.Context) error {
				ran.Add(1)
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			if dErrors.HasCode(err, dErrors.CodeQuotaExceeded) {
				exceeded.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(3), ran.Load())
	s.Equal(int32(7), exceeded.Load())
	s.Zero(s.balance(orgID, models.CreditComplianceCheck).Available())
}

func (s *GuardSuite) TestRun() {
	orgID := s.newOrg(models.TierPro)

	s.Run("returns the value", func() {
		v, err := Run(s.ctx, s.guard, orgID, models.OpLandedCost, 1, func(context.Context) (string, error) {
			return "ok", nil
		})
		s.Require().NoError(err)
		s.Equal("ok", v)
	})

	s.Run("returns the zero value on denial", func() {
		v, err := Run(s.ctx, s.guard, orgID, models.OpPEPCheck, 1, func(context.Context) (int, error) {
			return 7, nil
		})
		s.Error(err)
		s.Zero(v)
	})
}

// =============================================================================
// Administration Tests
// =============================================================================

func (s *GuardSuite) TestAdministration() {
	orgID := s.newOrg(models.TierStarter)

	s.Run("grant validates input", func() {
		_, err := s.guard.Grant(s.ctx, orgID, models.CreditPEPCheck, 0, "admin")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.guard.Grant(s.ctx, orgID, "GOLD", 5, "admin")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.guard.Grant(s.ctx, id.OrgID(uuid.New()), models.CreditPEPCheck, 5, "admin")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("balances list every pool", func() {
		s.grant(orgID, models.CreditAdverseMedia, 12)
		balances, err := s.guard.Balances(s.ctx, orgID)
		s.Require().NoError(err)
		s.Require().Len(balances, len(models.CreditTypes))
		for _, b := range balances {
			if b.CreditType == models.CreditAdverseMedia {
				s.Equal(int64(12), b.Available())
			} else {
				s.Zero(b.Available())
			}
		}
	})

	s.Run("tier change takes effect immediately", func() {
		s.True(dErrors.HasCode(s.guard.Execute(s.ctx, orgID, models.OpLandedCost, 1, noop), dErrors.CodeInsufficientTier))
		org, err := s.guard.ChangeTier(s.ctx, orgID, models.TierPro, "admin")
		s.Require().NoError(err)
		s.Equal(models.TierPro, org.Tier)
		s.NoError(s.guard.Execute(s.ctx, orgID, models.OpLandedCost, 1, noop))
	})

	s.Run("organization name is required", func() {
		_, err := s.guard.CreateOrganization(s.ctx, CreateOrganizationCommand{Name: " ", Tier: models.TierPro})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Store Failure Tests
// =============================================================================

type GuardStoreFailureSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	orgs   *mocks.MockOrganizationStore
	ledger *mocks.MockLedgerStore
	guard  *Guard
	org    *models.Organization
}

func TestGuardStoreFailureSuite(t *testing.T) {
	suite.Run(t, new(GuardStoreFailureSuite))
}

func (s *GuardStoreFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.orgs = mocks.NewMockOrganizationStore(s.ctrl)
	s.ledger = mocks.NewMockLedgerStore(s.ctrl)
	s.org = &models.Organization{ID: id.OrgID(uuid.New()), Tier: models.TierPro}

	var err error
	s.guard, err = New(s.orgs, s.ledger, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.orgs.EXPECT().FindByID(gomock.Any(), s.org.ID).Return(s.org, nil).AnyTimes()
}

func (s *GuardStoreFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GuardStoreFailureSuite) TestCommitFailureReleases() {
	var reserved id.LedgerEntryID
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *models.LedgerEntry) (int64, error) {
			e.ID = id.NewLedgerEntryID()
			reserved = e.ID
			return 4, nil
		})
	s.ledger.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	s.ledger.EXPECT().Release(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entryID id.LedgerEntryID) error {
			s.Equal(reserved, entryID)
			s.NoError(ctx.Err())
			return nil
		})

	err := s.guard.Execute(context.Background(), s.org.ID, models.OpComplianceCheck, 1, noop)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *GuardStoreFailureSuite) TestReleaseRunsOnDetachedContext() {
	ctx, cancel := context.WithCancel(context.Background())
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	s.ledger.EXPECT().Release(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ id.LedgerEntryID) error {
			return ctx.Err()
		})

	err := s.guard.Execute(ctx, s.org.ID, models.OpComplianceCheck, 1, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	s.ErrorIs(err, context.Canceled)
}

func (s *GuardStoreFailureSuite) TestReserveFailureIsInternal() {
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))
	err := s.guard.Execute(context.Background(), s.org.ID, models.OpComplianceCheck, 1, func(context.Context) error {
		s.Fail("operation must not run")
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *GuardSuite) TestOrganizationIsPassedToOperation() {
	orgID := s.newOrg(models.TierEnterprise)
	err := s.guard.Execute(s.ctx, orgID, models.OpExport, 1, func(ctx context.Context) error {
		org, ok := OrganizationFromContext(ctx)
		s.Require().True(ok)
		s.Equal(models.TierEnterprise, org.Tier)
		return nil
	})
	s.NoError(err)
}

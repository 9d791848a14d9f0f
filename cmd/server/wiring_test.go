package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"tradegraph/internal/entitlement/guard"
	"tradegraph/internal/entitlement/models"
	"tradegraph/internal/platform/config"
	"tradegraph/internal/screening/providers"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
)

// =============================================================================
// In-memory wiring
// =============================================================================
// Builds the app the way run() does with no external infrastructure.

type WiringSuite struct {
	suite.Suite
	ctx context.Context
	log *slog.Logger
}

func TestWiringSuite(t *testing.T) {
	suite.Run(t, new(WiringSuite))
}

func (s *WiringSuite) SetupTest() {
	s.ctx = context.Background()
	s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *WiringSuite) build(mutate func(*config.Config)) *app {
	cfg, err := config.Load("")
	s.Require().NoError(err)
	if mutate != nil {
		mutate(cfg)
	}
	a, err := buildApp(s.ctx, cfg, &infra{logger: s.log}, s.log)
	s.Require().NoError(err)
	s.T().Cleanup(a.publisher.Close)
	return a
}

func (s *WiringSuite) fundedOrg(a *app) id.OrgID {
	org, err := a.guard.CreateOrganization(s.ctx, guard.CreateOrganizationCommand{Name: "Acme", Tier: models.TierEnterprise})
	s.Require().NoError(err)
	_, err = a.guard.Grant(s.ctx, org.ID, models.CreditComplianceCheck, 1, "ops")
	s.Require().NoError(err)
	return org.ID
}

func (s *WiringSuite) available(a *app, orgID id.OrgID, ct models.CreditType) int64 {
	balances, err := a.guard.Balances(s.ctx, orgID)
	s.Require().NoError(err)
	for _, b := range balances {
		if b.CreditType == ct {
			return b.Available()
		}
	}
	s.FailNow("no balance for credit type", ct)
	return 0
}

func (s *WiringSuite) TestUnconfiguredScreeningIsUnavailable() {
	registry, err := screeningRegistry(config.ScreeningConfig{}, s.log)
	s.Require().NoError(err)
	s.Empty(registry.Kinds())

	a := s.build(nil)
	orgID := s.fundedOrg(a)

	_, err = a.intel.ComplianceCheck(s.ctx, orgID, providers.Subject{Name: "Any Sanctioned Trading LLC"})
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable), "got %v", err)
	s.Equal(int64(1), s.available(a, orgID, models.CreditComplianceCheck))
}

func (s *WiringSuite) TestStaticFallbackAnswersLocally() {
	registry, err := screeningRegistry(config.ScreeningConfig{StaticFallback: true}, s.log)
	s.Require().NoError(err)
	s.Len(registry.Kinds(), 3)

	a := s.build(func(cfg *config.Config) { cfg.Screening.StaticFallback = true })
	orgID := s.fundedOrg(a)

	res, err := a.intel.ComplianceCheck(s.ctx, orgID, providers.Subject{Name: "Contoso"})
	s.Require().NoError(err)
	s.Equal(providers.StatusClear, res.Status)
	s.Zero(s.available(a, orgID, models.CreditComplianceCheck))
}

func (s *WiringSuite) TestConfiguredEndpointRegistersOnlyThatKind() {
	registry, err := screeningRegistry(config.ScreeningConfig{SanctionsURL: "http://screening.local/v1/check"}, s.log)
	s.Require().NoError(err)
	s.Equal([]providers.Kind{providers.KindSanctions}, registry.Kinds())
}

package intel

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"tradegraph/internal/entitlement/guard"
	entmodels "tradegraph/internal/entitlement/models"
	"tradegraph/internal/entitlement/store/ledger"
	"tradegraph/internal/entitlement/store/organization"
	"tradegraph/internal/export"
	"tradegraph/internal/screening"
	"tradegraph/internal/screening/providers"
	"tradegraph/internal/screening/providers/static"
	"tradegraph/internal/search/executor"
	"tradegraph/internal/search/index/memory"
	"tradegraph/internal/search/normalizer"
	"tradegraph/internal/search/searchtest"
	tariffmodels "tradegraph/internal/tariff/models"
	"tradegraph/internal/tariff/resolver"
	tariffstore "tradegraph/internal/tariff/store"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
)

// =============================================================================
// Facade Test Suite
// =============================================================================
// Wires the real components over in-memory stores and checks that every
// entry point is gated and metered the way the operation table says.

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ledger  *ledger.InMemoryStore
	guard   *guard.Guard
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.ledger = ledger.NewInMemory()
	g, err := guard.New(organization.NewInMemory(), s.ledger, guard.WithLogger(logger))
	s.Require().NoError(err)
	s.guard = g

	index := memory.New(searchtest.Shipments(800)...)
	exec, err := executor.New(index, executor.WithLogger(logger))
	s.Require().NoError(err)
	exporter, err := export.New(exec, export.WithLogger(logger))
	s.Require().NoError(err)

	catalog, err := tariffstore.Default()
	s.Require().NoError(err)
	tariffs, err := resolver.New(catalog, resolver.WithLogger(logger))
	s.Require().NoError(err)

	registry := providers.NewRegistry()
	s.Require().NoError(registry.Register(static.New("watchlist", providers.KindSanctions,
		static.Entry{Name: "Northwind Metals", ListName: "OFAC SDN"})))
	s.Require().NoError(registry.Register(static.New("pep-register", providers.KindPEP)))
	screen, err := screening.New(registry, screening.WithRetry(1, 0))
	s.Require().NoError(err)

	s.service, err = New(g, exec, exporter, tariffs, screen, WithLogger(logger))
	s.Require().NoError(err)
}

func (s *ServiceSuite) org(tier entmodels.Tier) id.OrgID {
	org, err := s.guard.CreateOrganization(s.ctx, guard.CreateOrganizationCommand{Name: "Org", Tier: tier})
	s.Require().NoError(err)
	return org.ID
}

func (s *ServiceSuite) available(orgID id.OrgID, ct entmodels.CreditType) int64 {
	b, err := s.ledger.Balance(s.ctx, orgID, ct)
	s.Require().NoError(err)
	return b.Available()
}

func (s *ServiceSuite) TestSearch() {
	orgID := s.org(entmodels.TierStarter)

	res, err := s.service.Search(s.ctx, orgID, map[string]any{
		normalizer.FieldHSCode:   "7308*",
		normalizer.FieldPageSize: 10,
	})
	s.Require().NoError(err)
	s.Len(res.Items, 10)
	for _, item := range res.Items {
		s.True(strings.HasPrefix(item.HSCode, "7308"))
	}
	s.NotNil(res.Aggregations)

	_, err = s.service.Search(s.ctx, orgID, map[string]any{normalizer.FieldHSCode: "73**08"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestStarterExportIsTruncated() {
	orgID := s.org(entmodels.TierStarter)
	var buf bytes.Buffer
	plan, err := s.service.Export(s.ctx, orgID, ExportRequest{Format: export.FormatCSV}, &buf)
	s.Require().NoError(err)
	s.Equal(800, plan.Total)
	s.Equal(500, plan.Rows)
	s.True(plan.Truncated)
	// header plus 500 rows
	s.Equal(501, strings.Count(buf.String(), "\n"))
}

func (s *ServiceSuite) TestTariffPath() {
	s.Run("starter may quote duty but not landed cost", func() {
		orgID := s.org(entmodels.TierStarter)
		quote, err := s.service.DutyRate(s.ctx, orgID, tariffmodels.ResolveRequest{HSCode: "730890", Origin: "DE", Destination: "US"})
		s.Require().NoError(err)
		s.Equal("730890", quote.HSCode)

		_, err = s.service.LandedCost(s.ctx, orgID, LandedCostRequest{
			ResolveRequest: tariffmodels.ResolveRequest{HSCode: "730890", Origin: "DE", Destination: "US"},
			CIFValue:       decimal.NewFromInt(10000),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientTier))
	})

	s.Run("landed cost chains quote into estimate", func() {
		orgID := s.org(entmodels.TierPro)
		res, err := s.service.LandedCost(s.ctx, orgID, LandedCostRequest{
			ResolveRequest: tariffmodels.ResolveRequest{HSCode: "870323", Origin: "US", Destination: "DE"},
			CIFValue:       decimal.NewFromInt(10000),
		})
		s.Require().NoError(err)
		// 10% MFN, 19% VAT
		s.Equal("1000.00", res.Estimate.DutyAmount.StringFixed(2))
		s.Equal("2090.00", res.Estimate.VATAmount.StringFixed(2))
		s.Equal("13090.00", res.Estimate.Total.StringFixed(2))
		s.NotEmpty(res.Estimate.Disclaimer)
	})

	s.Run("negative cif value is rejected", func() {
		orgID := s.org(entmodels.TierPro)
		_, err := s.service.LandedCost(s.ctx, orgID, LandedCostRequest{
			ResolveRequest: tariffmodels.ResolveRequest{HSCode: "870323", Origin: "US", Destination: "DE"},
			CIFValue:       decimal.NewFromInt(-5),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestScreeningIsMetered() {
	orgID := s.org(entmodels.TierEnterprise)
	_, err := s.guard.Grant(s.ctx, orgID, entmodels.CreditComplianceCheck, 2, "admin")
	s.Require().NoError(err)

	res, err := s.service.ComplianceCheck(s.ctx, orgID, providers.Subject{Name: "Northwind Metals"})
	s.Require().NoError(err)
	s.Equal(providers.StatusPotentialMatch, res.Status)
	s.Equal(int64(1), s.available(orgID, entmodels.CreditComplianceCheck))

	s.Run("invalid subject consumes nothing", func() {
		_, err := s.service.ComplianceCheck(s.ctx, orgID, providers.Subject{Name: ""})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(int64(1), s.available(orgID, entmodels.CreditComplianceCheck))
	})

	s.Run("unconfigured provider releases the credit", func() {
		_, err := s.guard.Grant(s.ctx, orgID, entmodels.CreditAdverseMedia, 1, "admin")
		s.Require().NoError(err)
		_, err = s.service.AdverseMediaCheck(s.ctx, orgID, providers.Subject{Name: "Contoso"})
		s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
		s.Equal(int64(1), s.available(orgID, entmodels.CreditAdverseMedia))
	})

	s.Run("pep without credits is quota exceeded", func() {
		_, err := s.service.PEPCheck(s.ctx, orgID, providers.Subject{Name: "Jane Roe"})
		s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	})
}

func (s *ServiceSuite) TestBatchReservesPerCompany() {
	orgID := s.org(entmodels.TierEnterprise)
	_, err := s.guard.Grant(s.ctx, orgID, entmodels.CreditBatchCheck, 3, "admin")
	s.Require().NoError(err)

	subjects := []providers.Subject{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}}
	_, err = s.service.BatchComplianceCheck(s.ctx, orgID, subjects)
	s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	s.Equal(int64(3), s.available(orgID, entmodels.CreditBatchCheck))

	results, err := s.service.BatchComplianceCheck(s.ctx, orgID, subjects[:3])
	s.Require().NoError(err)
	s.Len(results, 3)
	s.Zero(s.available(orgID, entmodels.CreditBatchCheck))
}

func (s *ServiceSuite) TestProRequiredForComplianceCheck() {
	orgID := s.org(entmodels.TierStarter)
	_, err := s.service.ComplianceCheck(s.ctx, orgID, providers.Subject{Name: "Contoso"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeInsufficientTier))
	de, _ := dErrors.As(err)
	s.Equal("PRO", de.Details["required_tier"])
}

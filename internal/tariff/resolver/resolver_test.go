package resolver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"tradegraph/internal/tariff/models"
	"tradegraph/internal/tariff/store"
	dErrors "tradegraph/pkg/domain-errors"
)

const dataset = `
schedules:
  - destination: US
    vat: "0"
    mfn:
      - { prefix: "73", rate: "3.4" }
      - { prefix: "7308", rate: "2.9" }
      - { prefix: "6109", rate: "16.5" }
  - destination: GB
    vat: "20"
    mfn:
      - { prefix: "6109", rate: "12" }
agreements:
  - name: USMCA
    members: [US, MX, CA]
    rates:
      - { prefix: "61", rate: "0" }
    conditions:
      certificateOfOrigin: "true"
  - name: PARTIAL
    members: [US, MX]
    rates:
      - { prefix: "6109", rate: "4" }
  - name: USKR
    members: [US, KR]
    rates:
      - { prefix: "61", rate: "0" }
measures:
  - { id: AD-1, type: ANTIDUMPING, destination: US, scope: ["730890"], origins: [CN], rate: "27.75", from: "2012-03-02" }
  - { id: CVD-1, type: COUNTERVAILING, destination: US, scope: ["7308"], origins: [CN, VN], rate: "15.3", from: "2012-03-02" }
  - { id: SG-1, type: SAFEGUARD, destination: US, scope: ["*"], rate: "10", from: "2024-01-01", until: "2024-07-01" }
  - { id: Q-1, type: QUOTA, destination: US, scope: ["73"], quotaVolume: "5000", quotaUnit: TNE, from: "2020-01-01" }
`

type ResolverSuite struct {
	suite.Suite
	resolver *Resolver
	ctx      context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	catalog, err := store.Load(strings.NewReader(dataset))
	s.Require().NoError(err)
	s.resolver, err = New(catalog)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var (
	beforeSafeguard = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	duringSafeguard = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

// =============================================================================
// Schema Tests
// =============================================================================

func (s *ResolverSuite) TestSchemaValidation() {
	s.Run("wrong digit count is not found", func() {
		for _, code := range []string{"7308", "7308901", "73089012345"} {
			_, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: code, Origin: "CN", Destination: "US"})
			s.True(dErrors.HasCode(err, dErrors.CodeNotFound), code)
		}
	})

	s.Run("dotted codes are accepted", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "7308.90", Origin: "DE", Destination: "US", At: beforeSafeguard})
		s.Require().NoError(err)
		s.Equal("730890", q.HSCode)
	})

	s.Run("bad country is a validation error", func() {
		_, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "730890", Origin: "CHN", Destination: "US"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// MFN Tests
// =============================================================================

func (s *ResolverSuite) TestMFN() {
	s.Run("longest prefix wins", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "730890", Origin: "DE", Destination: "US", At: beforeSafeguard})
		s.Require().NoError(err)
		s.True(q.MFNRate.Equal(pct("2.9")))
		s.Equal(models.DataQualityHigh, q.DataQuality)
	})

	s.Run("unknown well-formed code falls back to the default", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "999999", Origin: "DE", Destination: "US", At: beforeSafeguard})
		s.Require().NoError(err)
		s.True(q.MFNRate.IsZero())
		s.Equal(models.DataQualityLow, q.DataQuality)
	})

	s.Run("configured default applies to unknown destinations", func() {
		catalog, err := store.Load(strings.NewReader(dataset))
		s.Require().NoError(err)
		r, err := New(catalog, WithDefaultMFNRate(pct("5")))
		s.Require().NoError(err)
		q, err := r.Resolve(s.ctx, models.ResolveRequest{HSCode: "610910", Origin: "US", Destination: "JP"})
		s.Require().NoError(err)
		s.True(q.MFNRate.Equal(pct("5")))
		s.Equal(models.DataQualityLow, q.DataQuality)
	})
}

// =============================================================================
// Preference Tests
// =============================================================================

func (s *ResolverSuite) TestPreferences() {
	s.Run("conditions must be satisfied by the request facts", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "610910", Origin: "MX", Destination: "US", At: beforeSafeguard})
		s.Require().NoError(err)
		s.Require().Len(q.PreferentialRates, 1)
		s.Equal("PARTIAL", q.PreferentialRates[0].FTAName)
		s.True(q.EffectiveTotalRate.Equal(pct("4")))
	})

	s.Run("best preference is applied and rates are ordered", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{
			HSCode: "610910", Origin: "MX", Destination: "US", At: beforeSafeguard,
			Eligibility: map[string]string{"CertificateOfOrigin": "true"},
		})
		s.Require().NoError(err)
		s.Require().Len(q.PreferentialRates, 2)
		s.Equal("USMCA", q.PreferentialRates[0].FTAName)
		s.Equal("PARTIAL", q.PreferentialRates[1].FTAName)
		s.Require().NotNil(q.AppliedPreference)
		s.Equal("USMCA", q.AppliedPreference.FTAName)
		s.True(q.EffectiveTotalRate.IsZero())
	})

	s.Run("fact keys that differ only by case must agree", func() {
		_, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{
			HSCode: "610910", Origin: "MX", Destination: "US", At: beforeSafeguard,
			Eligibility: map[string]string{"certificateOfOrigin": "true", "CERTIFICATEOFORIGIN": "false"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)

		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{
			HSCode: "610910", Origin: "MX", Destination: "US", At: beforeSafeguard,
			Eligibility: map[string]string{"certificateOfOrigin": "true", " CERTIFICATEOFORIGIN": "true"},
		})
		s.Require().NoError(err)
		s.Equal("USMCA", q.AppliedPreference.FTAName)
	})

	s.Run("non-members get nothing", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "610910", Origin: "CN", Destination: "US", At: beforeSafeguard})
		s.Require().NoError(err)
		s.Empty(q.PreferentialRates)
		s.Nil(q.AppliedPreference)
		s.True(q.EffectiveTotalRate.Equal(pct("16.5")))
	})
}

// =============================================================================
// Measure Tests
// =============================================================================

func (s *ResolverSuite) TestMeasuresStack() {
	q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "730890", Origin: "CN", Destination: "US", At: duringSafeguard})
	s.Require().NoError(err)

	ids := make([]string, 0, len(q.TradeMeasures))
	for _, m := range q.TradeMeasures {
		ids = append(ids, m.ID)
	}
	s.Equal([]string{"AD-1", "CVD-1", "Q-1", "SG-1"}, ids)

	// 2.9 MFN + 27.75 AD + 15.3 CVD + 10 safeguard; the quota adds nothing.
	s.True(q.EffectiveTotalRate.Equal(pct("55.95")), q.EffectiveTotalRate.String())
	s.Require().Len(q.BindingQuotas, 1)
	s.Equal("Q-1", q.BindingQuotas[0].ID)
	s.True(q.BindingQuotas[0].QuotaVolume.Equal(pct("5000")))
}

func (s *ResolverSuite) TestMeasureFilters() {
	s.Run("origin list excludes other origins", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "730890", Origin: "DE", Destination: "US", At: beforeSafeguard})
		s.Require().NoError(err)
		s.Require().Len(q.TradeMeasures, 1)
		s.Equal("Q-1", q.TradeMeasures[0].ID)
		s.True(q.EffectiveTotalRate.Equal(pct("2.9")))
	})

	s.Run("expired window is ignored", func() {
		after := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "610910", Origin: "CN", Destination: "US", At: after})
		s.Require().NoError(err)
		s.Empty(q.TradeMeasures)
	})

	s.Run("wildcard scope reaches every chapter", func() {
		q, err := s.resolver.Resolve(s.ctx, models.ResolveRequest{HSCode: "610910", Origin: "CN", Destination: "US", At: duringSafeguard})
		s.Require().NoError(err)
		s.Require().Len(q.TradeMeasures, 1)
		s.Equal("SG-1", q.TradeMeasures[0].ID)
		s.True(q.EffectiveTotalRate.Equal(pct("26.5")))
	})
}

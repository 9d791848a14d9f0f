// Package resolver derives the effective duty rate for an HS code on a
// trade lane from the MFN schedule, preferential agreements and active
// trade measures.
package resolver

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"tradegraph/internal/tariff/models"
	"tradegraph/internal/tariff/ports"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/sentinel"
	"tradegraph/pkg/requestcontext"
)

type Resolver struct {
	catalog    ports.Catalog
	defaultMFN decimal.Decimal
	logger     *slog.Logger
}

type Option func(*Resolver)

// WithDefaultMFNRate sets the rate used for well-formed codes missing from
// the destination schedule.
func WithDefaultMFNRate(rate decimal.Decimal) Option {
	return func(r *Resolver) {
		if !rate.IsNegative() {
			r.defaultMFN = rate
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(catalog ports.Catalog, opts ...Option) (*Resolver, error) {
	if catalog == nil {
		return nil, errors.New("tariff catalog is required")
	}
	r := &Resolver{
		catalog:    catalog,
		defaultMFN: decimal.Zero,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve builds the quote for req. A code with the wrong digit count is
// not_found; country codes that are not ISO alpha-2 are validation errors.
func (r *Resolver) Resolve(ctx context.Context, req models.ResolveRequest) (*models.Quote, error) {
	code, err := id.ParseHSCode(req.HSCode)
	if err != nil {
		return nil, err
	}
	origin, err := id.ParseCountryCode(req.Origin)
	if err != nil {
		return nil, dErrors.Validation("origin", "must be an ISO 3166-1 alpha-2 code")
	}
	destination, err := id.ParseCountryCode(req.Destination)
	if err != nil {
		return nil, dErrors.Validation("destination", "must be an ISO 3166-1 alpha-2 code")
	}
	facts, err := models.CanonicalFacts(req.Eligibility)
	if err != nil {
		return nil, dErrors.Validation("eligibility", err.Error())
	}
	at := req.At
	if at.IsZero() {
		at = requestcontext.Now(ctx)
	}

	q := &models.Quote{
		HSCode:            code.String(),
		Origin:            origin.String(),
		Destination:       destination.String(),
		PreferentialRates: []models.PreferentialRate{},
		TradeMeasures:     []models.TradeMeasure{},
		BindingQuotas:     []models.TradeMeasure{},
		DataQuality:       models.DataQualityHigh,
		ResolvedAt:        at.UTC(),
	}

	if err := r.resolveMFN(ctx, q); err != nil {
		return nil, err
	}
	if err := r.resolvePreferences(ctx, q, facts); err != nil {
		return nil, err
	}
	if err := r.resolveMeasures(ctx, q, at); err != nil {
		return nil, err
	}

	base := q.MFNRate
	if len(q.PreferentialRates) > 0 && q.PreferentialRates[0].Rate.LessThan(base) {
		best := q.PreferentialRates[0]
		q.AppliedPreference = &best
		base = best.Rate
	}
	total := base
	for _, m := range q.TradeMeasures {
		if m.Type.AddsDuty() {
			total = total.Add(m.Rate)
		}
	}
	q.EffectiveTotalRate = total
	return q, nil
}

func (r *Resolver) resolveMFN(ctx context.Context, q *models.Quote) error {
	schedule, err := r.catalog.Schedule(ctx, q.Destination)
	if errors.Is(err, sentinel.ErrNotFound) {
		r.logger.WarnContext(ctx, "no tariff schedule for destination",
			"destination", q.Destination,
			"hs_code", q.HSCode,
		)
		q.MFNRate = r.defaultMFN
		q.VATRate = decimal.Zero
		q.DataQuality = models.DataQualityLow
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tariff schedule")
	}

	q.VATRate = schedule.VATRate
	rule, ok := models.LongestPrefix(schedule.MFN, q.HSCode)
	if !ok {
		q.MFNRate = r.defaultMFN
		q.DataQuality = models.DataQualityLow
		return nil
	}
	q.MFNRate = rule.Rate
	return nil
}

func (r *Resolver) resolvePreferences(ctx context.Context, q *models.Quote, facts models.Facts) error {
	agreements, err := r.catalog.Agreements(ctx, q.Origin, q.Destination)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trade agreements")
	}
	for _, a := range agreements {
		rule, ok := models.LongestPrefix(a.Rates, q.HSCode)
		if !ok || !eligible(a.Conditions, facts) {
			continue
		}
		q.PreferentialRates = append(q.PreferentialRates, models.PreferentialRate{
			FTAName:    a.Name,
			Rate:       rule.Rate,
			Conditions: a.Conditions,
		})
	}
	slices.SortFunc(q.PreferentialRates, func(a, b models.PreferentialRate) int {
		if c := a.Rate.Cmp(b.Rate); c != 0 {
			return c
		}
		return cmp.Compare(a.FTAName, b.FTAName)
	})
	return nil
}

func (r *Resolver) resolveMeasures(ctx context.Context, q *models.Quote, at time.Time) error {
	measures, err := r.catalog.Measures(ctx, q.Destination)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trade measures")
	}
	for _, m := range measures {
		if !m.ActiveAt(at) || !m.AppliesTo(q.HSCode, q.Origin) {
			continue
		}
		tm := models.TradeMeasure{
			ID:          m.ID,
			Type:        m.Type,
			Rate:        m.Rate,
			QuotaVolume: m.QuotaVolume,
			QuotaUnit:   m.QuotaUnit,
			From:        m.From,
			Description: m.Description,
		}
		if !m.Until.IsZero() {
			until := m.Until
			tm.Until = &until
		}
		q.TradeMeasures = append(q.TradeMeasures, tm)
		if m.Type == models.MeasureQuota {
			tm.Rate = decimal.Zero
			q.BindingQuotas = append(q.BindingQuotas, tm)
		}
	}
	slices.SortFunc(q.TradeMeasures, func(a, b models.TradeMeasure) int { return cmp.Compare(a.ID, b.ID) })
	return nil
}

// eligible reports whether every condition holds for the supplied facts.
// Agreements without conditions are always claimable.
func eligible(conditions []models.Condition, facts models.Facts) bool {
	for _, c := range conditions {
		if !c.SatisfiedBy(facts) {
			return false
		}
	}
	return true
}

// Package intel is the operation surface of the platform. Every entry point
// runs inside the entitlement guard: search, export and tariff lookups are
// tier-gated, compliance screening is tier-gated and metered.
package intel

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"tradegraph/internal/entitlement/guard"
	entmodels "tradegraph/internal/entitlement/models"
	"tradegraph/internal/entitlement/ports"
	"tradegraph/internal/export"
	"tradegraph/internal/landedcost"
	"tradegraph/internal/screening"
	"tradegraph/internal/screening/providers"
	"tradegraph/internal/search/executor"
	"tradegraph/internal/search/models"
	"tradegraph/internal/search/normalizer"
	tariffmodels "tradegraph/internal/tariff/models"
	"tradegraph/internal/tariff/resolver"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/requestcontext"
)

type Service struct {
	guard          *guard.Guard
	search         *executor.Executor
	exporter       *export.Exporter
	tariffs        *resolver.Resolver
	screening      *screening.Service
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(g *guard.Guard, search *executor.Executor, exporter *export.Exporter, tariffs *resolver.Resolver, screen *screening.Service, opts ...Option) (*Service, error) {
	switch {
	case g == nil:
		return nil, errors.New("entitlement guard is required")
	case search == nil:
		return nil, errors.New("search executor is required")
	case exporter == nil:
		return nil, errors.New("exporter is required")
	case tariffs == nil:
		return nil, errors.New("tariff resolver is required")
	case screen == nil:
		return nil, errors.New("screening service is required")
	}
	s := &Service{
		guard:     g,
		search:    search,
		exporter:  exporter,
		tariffs:   tariffs,
		screening: screen,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search normalizes a raw search request and executes it.
func (s *Service) Search(ctx context.Context, orgID id.OrgID, raw map[string]any) (*models.SearchResult, error) {
	return guard.Run(ctx, s.guard, orgID, entmodels.OpSearch, 1, func(ctx context.Context) (*models.SearchResult, error) {
		q, err := normalizer.Normalize(raw)
		if err != nil {
			return nil, err
		}
		return s.search.Search(ctx, q)
	})
}

// ExportRequest selects the matches to export and the output format.
type ExportRequest struct {
	Query       map[string]any
	Format      export.Format
	BeforeWrite func(export.Plan)
}

// Export writes the caller's search matches to w, capped by tier.
func (s *Service) Export(ctx context.Context, orgID id.OrgID, req ExportRequest, w io.Writer) (*export.Plan, error) {
	return guard.Run(ctx, s.guard, orgID, entmodels.OpExport, 1, func(ctx context.Context) (*export.Plan, error) {
		q, err := normalizer.Normalize(req.Query)
		if err != nil {
			return nil, err
		}
		org, ok := guard.OrganizationFromContext(ctx)
		if !ok {
			return nil, dErrors.New(dErrors.CodeInternal, "organization missing from guarded context")
		}
		plan, err := s.exporter.Export(ctx, export.Request{
			Query:       q,
			Tier:        org.Tier,
			Format:      req.Format,
			BeforeWrite: req.BeforeWrite,
		}, w)
		if err != nil {
			return nil, err
		}
		if plan.Truncated {
			ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
				Category:  audit.EventExportTruncated.Category(),
				Timestamp: requestcontext.Now(ctx),
				OrgID:     orgID,
				Action:    string(audit.EventExportTruncated),
				Operation: string(entmodels.OpExport),
				Amount:    int64(plan.Rows),
			}, "total", plan.Total, "row_cap", plan.RowCap)
		}
		return plan, nil
	})
}

// DutyRate resolves the tariff quote for one lane.
func (s *Service) DutyRate(ctx context.Context, orgID id.OrgID, req tariffmodels.ResolveRequest) (*tariffmodels.Quote, error) {
	return guard.Run(ctx, s.guard, orgID, entmodels.OpDutyRate, 1, func(ctx context.Context) (*tariffmodels.Quote, error) {
		return s.tariffs.Resolve(ctx, req)
	})
}

// LandedCostRequest is a duty-rate request plus the CIF value to price.
type LandedCostRequest struct {
	tariffmodels.ResolveRequest
	CIFValue decimal.Decimal
}

// LandedCostResult pairs the estimate with the quote it was priced from.
type LandedCostResult struct {
	Estimate *landedcost.Estimate `json:"estimate"`
	Quote    *tariffmodels.Quote  `json:"quote"`
}

// LandedCost chains the tariff resolver into the landed-cost calculator.
func (s *Service) LandedCost(ctx context.Context, orgID id.OrgID, req LandedCostRequest) (*LandedCostResult, error) {
	return guard.Run(ctx, s.guard, orgID, entmodels.OpLandedCost, 1, func(ctx context.Context) (*LandedCostResult, error) {
		if req.CIFValue.IsNegative() {
			return nil, dErrors.Validation("cifValue", "must not be negative")
		}
		quote, err := s.tariffs.Resolve(ctx, req.ResolveRequest)
		if err != nil {
			return nil, err
		}
		est, err := landedcost.FromQuote(req.CIFValue, quote)
		if err != nil {
			return nil, err
		}
		return &LandedCostResult{Estimate: est, Quote: quote}, nil
	})
}

// ComplianceCheck screens one company against sanctions lists for one credit.
func (s *Service) ComplianceCheck(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error) {
	subject, err := screening.NormalizeSubject(subject)
	if err != nil {
		return nil, err
	}
	return s.screenOne(ctx, orgID, entmodels.OpComplianceCheck, subject, s.screening.Check)
}

// PEPCheck screens one person against PEP registers for one credit.
func (s *Service) PEPCheck(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error) {
	subject, err := screening.NormalizeSubject(subject)
	if err != nil {
		return nil, err
	}
	return s.screenOne(ctx, orgID, entmodels.OpPEPCheck, subject, s.screening.PEP)
}

// AdverseMediaCheck screens one subject against adverse media for one credit.
func (s *Service) AdverseMediaCheck(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error) {
	subject, err := screening.NormalizeSubject(subject)
	if err != nil {
		return nil, err
	}
	return s.screenOne(ctx, orgID, entmodels.OpAdverseMediaCheck, subject, s.screening.AdverseMedia)
}

// BatchComplianceCheck reserves one credit per company up front. Any
// provider failure fails the batch and releases every credit.
func (s *Service) BatchComplianceCheck(ctx context.Context, orgID id.OrgID, subjects []providers.Subject) ([]*providers.Result, error) {
	if err := screening.ValidateBatch(subjects); err != nil {
		return nil, err
	}
	op := entmodels.OpBatchComplianceCheck
	results, err := guard.Run(ctx, s.guard, orgID, op, int64(len(subjects)), func(ctx context.Context) ([]*providers.Result, error) {
		return s.screening.Batch(ctx, subjects)
	})
	if err != nil {
		return nil, err
	}
	s.logScreening(ctx, orgID, op, int64(len(results)))
	return results, nil
}

func (s *Service) screenOne(ctx context.Context, orgID id.OrgID, op entmodels.Operation, subject providers.Subject,
	screen func(context.Context, providers.Subject) (*providers.Result, error),
) (*providers.Result, error) {
	res, err := guard.Run(ctx, s.guard, orgID, op, 1, func(ctx context.Context) (*providers.Result, error) {
		return screen(ctx, subject)
	})
	if err != nil {
		return nil, err
	}
	s.logScreening(ctx, orgID, op, 1)
	return res, nil
}

func (s *Service) logScreening(ctx context.Context, orgID id.OrgID, op entmodels.Operation, subjects int64) {
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Category:  audit.EventScreeningPerformed.Category(),
		Timestamp: requestcontext.Now(ctx),
		OrgID:     orgID,
		Action:    string(audit.EventScreeningPerformed),
		Operation: string(op),
		Amount:    subjects,
	})
}

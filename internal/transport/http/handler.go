// Package httptransport is the thin JSON layer over the intel facade and
// the credit administration API. Handlers decode, delegate, and map domain
// errors; no business rule lives here.
package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tradegraph/internal/entitlement/guard"
	entmodels "tradegraph/internal/entitlement/models"
	"tradegraph/internal/export"
	"tradegraph/internal/intel"
	"tradegraph/internal/screening/providers"
	searchmodels "tradegraph/internal/search/models"
	tariffmodels "tradegraph/internal/tariff/models"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/httputil"
	"tradegraph/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks IntelService,AdminService

// IntelService is the caller-facing surface, every method gated by tier
// and metered by credits.
type IntelService interface {
	Search(ctx context.Context, orgID id.OrgID, raw map[string]any) (*searchmodels.SearchResult, error)
	Export(ctx context.Context, orgID id.OrgID, req intel.ExportRequest, w io.Writer) (*export.Plan, error)
	DutyRate(ctx context.Context, orgID id.OrgID, req tariffmodels.ResolveRequest) (*tariffmodels.Quote, error)
	LandedCost(ctx context.Context, orgID id.OrgID, req intel.LandedCostRequest) (*intel.LandedCostResult, error)
	ComplianceCheck(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error)
	PEPCheck(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error)
	AdverseMediaCheck(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error)
	BatchComplianceCheck(ctx context.Context, orgID id.OrgID, subjects []providers.Subject) ([]*providers.Result, error)
}

// AdminService manages organizations and their credit pools.
type AdminService interface {
	CreateOrganization(ctx context.Context, cmd guard.CreateOrganizationCommand) (*entmodels.Organization, error)
	GetOrganization(ctx context.Context, orgID id.OrgID) (*entmodels.Organization, error)
	ChangeTier(ctx context.Context, orgID id.OrgID, tier entmodels.Tier, actorID string) (*entmodels.Organization, error)
	Grant(ctx context.Context, orgID id.OrgID, creditType entmodels.CreditType, amount int64, actorID string) (*entmodels.Balance, error)
	Balances(ctx context.Context, orgID id.OrgID) ([]entmodels.Balance, error)
	Entries(ctx context.Context, orgID id.OrgID) ([]*entmodels.LedgerEntry, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	intel          IntelService
	admin          AdminService
	logger         *slog.Logger
	adminToken     string
	requestTimeout time.Duration
	checks         map[string]HealthCheck
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// WithRequestTimeout bounds every route except exports, which stream.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// WithHealthCheck adds a dependency to the readiness report.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func New(intelService IntelService, admin AdminService, opts ...Option) (*Handler, error) {
	if intelService == nil {
		return nil, errors.New("intel service is required")
	}
	if admin == nil {
		return nil, errors.New("admin service is required")
	}
	h := &Handler{
		intel:          intelService,
		admin:          admin,
		logger:         slog.Default(),
		requestTimeout: 30 * time.Second,
		checks:         make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// fail logs at a level matching the error's status and writes the error body.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

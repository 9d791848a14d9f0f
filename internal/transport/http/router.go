package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tradegraph/internal/platform/metrics"
	"tradegraph/internal/platform/middleware"
	"tradegraph/pkg/platform/middleware/admin"
	"tradegraph/pkg/platform/middleware/auth"
	"tradegraph/pkg/platform/middleware/metadata"
	"tradegraph/pkg/platform/middleware/requesttime"
)

// NewRouter wires every public, admin and operational endpoint. m may be nil.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Recovery(h.logger))
	r.Use(m.Middleware)

	r.Get("/healthz", h.handleLiveness)
	r.Get("/readyz", h.handleReadiness)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.RequireOrganization(h.logger))
		r.Use(middleware.RequireJSON)

		// Exports stream for as long as the row cap allows.
		r.Post("/export", h.handleExport)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(h.requestTimeout))
			r.Post("/search", h.handleSearch)
			r.Post("/tariffs/duty-rate", h.handleDutyRate)
			r.Post("/tariffs/landed-cost", h.handleLandedCost)
			r.Post("/compliance/check", h.handleComplianceCheck)
			r.Post("/compliance/batch", h.handleBatchComplianceCheck)
			r.Post("/compliance/pep", h.handlePEPCheck)
			r.Post("/compliance/adverse-media", h.handleAdverseMediaCheck)
			r.Get("/credits", h.handleOwnBalances)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Use(middleware.RequireJSON)
		r.Use(chimw.Timeout(h.requestTimeout))
		r.Post("/organizations", h.handleCreateOrganization)
		r.Route("/organizations/{orgID}", func(r chi.Router) {
			r.Get("/", h.handleGetOrganization)
			r.Put("/tier", h.handleChangeTier)
			r.Post("/credits", h.handleGrantCredits)
			r.Get("/credits", h.handleBalances)
			r.Get("/ledger", h.handleLedger)
		})
	})

	return r
}

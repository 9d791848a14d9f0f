package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"tradegraph/internal/export"
	"tradegraph/internal/intel"
	"tradegraph/internal/screening/providers"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/httputil"
	"tradegraph/pkg/requestcontext"
)

const (
	HeaderExportTotal     = "X-Export-Total"
	HeaderExportRowCap    = "X-Export-Row-Cap"
	HeaderExportRows      = "X-Export-Rows"
	HeaderExportTruncated = "X-Export-Truncated"
	// HeaderExportStatus is a trailer: "complete", or "aborted:<code>" when
	// the stream failed after the headers were sent.
	HeaderExportStatus = "X-Export-Status"

	exportComplete = "complete"
)

// exportAbort is the last NDJSON record of a stream that failed part way.
type exportAbort struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Aborted          bool   `json:"aborted"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.intel.Search(ctx, requestcontext.OrgID(ctx), *req)
	if err != nil {
		h.fail(ctx, w, "search failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleExport streams the export body. Headers go out before the first
// row, so the outcome is reported in the X-Export-Status trailer; NDJSON
// streams also end with an abort record when they fail part way.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ExportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	started := false
	plan, err := h.intel.Export(ctx, requestcontext.OrgID(ctx), intel.ExportRequest{
		Query:  req.Query,
		Format: req.format,
		BeforeWrite: func(p export.Plan) {
			started = true
			hdr := w.Header()
			hdr.Set("Content-Type", req.format.ContentType())
			hdr.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="shipments.%s"`, req.format))
			hdr.Set("Trailer", HeaderExportStatus)
			hdr.Set(HeaderExportTotal, strconv.Itoa(p.Total))
			hdr.Set(HeaderExportRowCap, strconv.Itoa(p.RowCap))
			hdr.Set(HeaderExportRows, strconv.Itoa(p.Rows))
			hdr.Set(HeaderExportTruncated, strconv.FormatBool(p.Truncated))
			w.WriteHeader(http.StatusOK)
		},
	}, w)
	switch {
	case err != nil && !started:
		h.fail(ctx, w, "export failed", err)
	case err != nil:
		code := dErrors.CodeOf(err)
		h.logger.ErrorContext(ctx, "export aborted mid-stream",
			"request_id", requestID,
			"code", code,
			"error", err,
		)
		if req.format == export.FormatNDJSON {
			record := exportAbort{Error: string(code), Aborted: true}
			if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
				record.ErrorDescription = de.Message
			}
			_ = json.NewEncoder(w).Encode(record)
		}
		w.Header().Set(HeaderExportStatus, "aborted:"+string(code))
	default:
		w.Header().Set(HeaderExportStatus, exportComplete)
		h.logger.InfoContext(ctx, "export written",
			"request_id", requestID,
			"rows", plan.Rows,
			"truncated", plan.Truncated,
		)
	}
}

func (h *Handler) handleDutyRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[DutyRateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	quote, err := h.intel.DutyRate(ctx, requestcontext.OrgID(ctx), req.resolveRequest())
	if err != nil {
		h.fail(ctx, w, "duty rate lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}

func (h *Handler) handleLandedCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[LandedCostRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.intel.LandedCost(ctx, requestcontext.OrgID(ctx), intel.LandedCostRequest{
		ResolveRequest: req.resolveRequest(),
		CIFValue:       *req.CIFValue,
	})
	if err != nil {
		h.fail(ctx, w, "landed cost estimate failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	h.screenOne(w, r, "compliance check failed", h.intel.ComplianceCheck)
}

func (h *Handler) handlePEPCheck(w http.ResponseWriter, r *http.Request) {
	h.screenOne(w, r, "pep check failed", h.intel.PEPCheck)
}

func (h *Handler) handleAdverseMediaCheck(w http.ResponseWriter, r *http.Request) {
	h.screenOne(w, r, "adverse media check failed", h.intel.AdverseMediaCheck)
}

func (h *Handler) handleBatchComplianceCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[BatchScreeningRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	results, err := h.intel.BatchComplianceCheck(ctx, requestcontext.OrgID(ctx), req.Companies)
	if err != nil {
		h.fail(ctx, w, "batch compliance check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BatchScreeningResponse{Results: results})
}

type screenFunc func(ctx context.Context, orgID id.OrgID, subject providers.Subject) (*providers.Result, error)

func (h *Handler) screenOne(w http.ResponseWriter, r *http.Request, failMsg string, check screenFunc) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ScreeningRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := check(ctx, requestcontext.OrgID(ctx), req.Subject)
	if err != nil {
		h.fail(ctx, w, failMsg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleOwnBalances lets an organization read its own credit pools.
func (h *Handler) handleOwnBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := requestcontext.OrgID(ctx)
	balances, err := h.admin.Balances(ctx, orgID)
	if err != nil {
		h.fail(ctx, w, "balance lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalancesResponse(orgID.String(), balances))
}

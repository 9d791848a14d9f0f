package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	entmodels "tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/httputil"
	"tradegraph/pkg/requestcontext"
)

// HeaderActorID names the operator behind an admin call, for the audit trail.
const HeaderActorID = "X-Actor-ID"

type LedgerResponse struct {
	OrganizationID string                   `json:"organizationId"`
	Entries        []*entmodels.LedgerEntry `json:"entries"`
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateOrganizationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.admin.CreateOrganization(ctx, req.cmd)
	if err != nil {
		h.fail(ctx, w, "failed to create organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.orgIDParam(w, r)
	if !ok {
		return
	}
	org, err := h.admin.GetOrganization(ctx, orgID)
	if err != nil {
		h.fail(ctx, w, "failed to get organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) handleChangeTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID, ok := h.orgIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeTierRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.admin.ChangeTier(ctx, orgID, req.tier, r.Header.Get(HeaderActorID))
	if err != nil {
		h.fail(ctx, w, "failed to change tier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	orgID, ok := h.orgIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantCreditsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	actor := req.ActorID
	if actor == "" {
		actor = r.Header.Get(HeaderActorID)
	}

	balance, err := h.admin.Grant(ctx, orgID, req.creditType, req.Amount, actor)
	if err != nil {
		h.fail(ctx, w, "failed to grant credits", err)
		return
	}
	h.logger.InfoContext(ctx, "credits granted",
		"request_id", requestID,
		"organization_id", orgID.String(),
		"credit_type", req.creditType.String(),
		"amount", req.Amount,
	)
	httputil.WriteJSON(w, http.StatusOK, BalanceView{Balance: *balance, Available: balance.Available()})
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.orgIDParam(w, r)
	if !ok {
		return
	}
	balances, err := h.admin.Balances(ctx, orgID)
	if err != nil {
		h.fail(ctx, w, "failed to read balances", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalancesResponse(orgID.String(), balances))
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.orgIDParam(w, r)
	if !ok {
		return
	}
	entries, err := h.admin.Entries(ctx, orgID)
	if err != nil {
		h.fail(ctx, w, "failed to list ledger entries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LedgerResponse{OrganizationID: orgID.String(), Entries: entries})
}

func (h *Handler) orgIDParam(w http.ResponseWriter, r *http.Request) (id.OrgID, bool) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		h.fail(r.Context(), w, "invalid organization id", dErrors.Validation("orgID", "must be a uuid"))
		return id.OrgID{}, false
	}
	return orgID, true
}

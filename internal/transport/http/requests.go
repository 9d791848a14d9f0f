package httptransport

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradegraph/internal/entitlement/guard"
	entmodels "tradegraph/internal/entitlement/models"
	"tradegraph/internal/export"
	"tradegraph/internal/screening/providers"
	tariffmodels "tradegraph/internal/tariff/models"
	dErrors "tradegraph/pkg/domain-errors"
)

// SearchRequest is the raw filter document. Field-level validation happens
// in the normalizer so the error names the offending filter.
type SearchRequest map[string]any

func (r *SearchRequest) Validate() error {
	if *r == nil {
		*r = SearchRequest{}
	}
	return nil
}

type ExportRequest struct {
	Query  map[string]any `json:"query"`
	Format string         `json:"format"`

	format export.Format
}

func (r *ExportRequest) Validate() error {
	f, err := export.ParseFormat(r.Format)
	if err != nil {
		return err
	}
	r.format = f
	if r.Query == nil {
		r.Query = map[string]any{}
	}
	return nil
}

type DutyRateRequest struct {
	HSCode      string            `json:"hsCode"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	Eligibility map[string]string `json:"eligibility,omitempty"`
	At          *time.Time        `json:"at,omitempty"`
}

func (r *DutyRateRequest) Validate() error {
	r.HSCode = strings.TrimSpace(r.HSCode)
	if r.HSCode == "" {
		return dErrors.Validation("hsCode", "is required")
	}
	if strings.TrimSpace(r.Origin) == "" {
		return dErrors.Validation("origin", "is required")
	}
	if strings.TrimSpace(r.Destination) == "" {
		return dErrors.Validation("destination", "is required")
	}
	return nil
}

func (r *DutyRateRequest) resolveRequest() tariffmodels.ResolveRequest {
	req := tariffmodels.ResolveRequest{
		HSCode:      r.HSCode,
		Origin:      r.Origin,
		Destination: r.Destination,
		Eligibility: r.Eligibility,
	}
	if r.At != nil {
		req.At = r.At.UTC()
	}
	return req
}

type LandedCostRequest struct {
	DutyRateRequest
	CIFValue *decimal.Decimal `json:"cifValue"`
}

func (r *LandedCostRequest) Validate() error {
	if err := r.DutyRateRequest.Validate(); err != nil {
		return err
	}
	if r.CIFValue == nil {
		return dErrors.Validation("cifValue", "is required")
	}
	if r.CIFValue.IsNegative() {
		return dErrors.Validation("cifValue", "must not be negative")
	}
	return nil
}

// ScreeningRequest carries one subject. Name normalization and length
// limits live in the screening service.
type ScreeningRequest struct {
	providers.Subject
}

func (r *ScreeningRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.Validation("name", "is required")
	}
	return nil
}

type BatchScreeningRequest struct {
	Companies []providers.Subject `json:"companies"`
}

func (r *BatchScreeningRequest) Validate() error {
	if len(r.Companies) == 0 {
		return dErrors.Validation("companies", "must contain at least one company")
	}
	return nil
}

type CreateOrganizationRequest struct {
	Name      string `json:"name"`
	Tier      string `json:"tier"`
	SeatQuota int    `json:"seatQuota"`
	APIQuota  int    `json:"apiQuota"`

	cmd guard.CreateOrganizationCommand
}

func (r *CreateOrganizationRequest) Validate() error {
	tier, err := entmodels.ParseTier(r.Tier)
	if err != nil {
		return err
	}
	r.cmd = guard.CreateOrganizationCommand{
		Name:      r.Name,
		Tier:      tier,
		SeatQuota: r.SeatQuota,
		APIQuota:  r.APIQuota,
	}
	return r.cmd.Validate()
}

type ChangeTierRequest struct {
	Tier string `json:"tier"`

	tier entmodels.Tier
}

func (r *ChangeTierRequest) Validate() error {
	t, err := entmodels.ParseTier(r.Tier)
	if err != nil {
		return err
	}
	r.tier = t
	return nil
}

type GrantCreditsRequest struct {
	CreditType string `json:"creditType"`
	Amount     int64  `json:"amount"`
	ActorID    string `json:"actorId,omitempty"`

	creditType entmodels.CreditType
}

func (r *GrantCreditsRequest) Validate() error {
	ct, err := entmodels.ParseCreditType(strings.ToUpper(strings.TrimSpace(r.CreditType)))
	if err != nil {
		return err
	}
	if r.Amount <= 0 {
		return dErrors.Validation("amount", "must be positive")
	}
	r.creditType = ct
	return nil
}

// BalancesResponse lists every credit pool with its available amount.
type BalancesResponse struct {
	OrganizationID string        `json:"organizationId"`
	Balances       []BalanceView `json:"balances"`
}

type BalanceView struct {
	entmodels.Balance
	Available int64 `json:"available"`
}

func toBalancesResponse(orgID string, balances []entmodels.Balance) BalancesResponse {
	out := BalancesResponse{OrganizationID: orgID, Balances: make([]BalanceView, 0, len(balances))}
	for _, b := range balances {
		out.Balances = append(out.Balances, BalanceView{Balance: b, Available: b.Available()})
	}
	return out
}

type BatchScreeningResponse struct {
	Results []*providers.Result `json:"results"`
}

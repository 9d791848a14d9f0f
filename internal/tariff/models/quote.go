package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PreferentialRate is an FTA rate the importer can claim.
type PreferentialRate struct {
	FTAName    string          `json:"ftaName"`
	Rate       decimal.Decimal `json:"rate"`
	Conditions []Condition     `json:"conditions,omitempty"`
}

// TradeMeasure is an active measure as reported in a quote.
type TradeMeasure struct {
	ID          string           `json:"id"`
	Type        MeasureType      `json:"type"`
	Rate        decimal.Decimal  `json:"rate"`
	QuotaVolume *decimal.Decimal `json:"quotaVolume,omitempty"`
	QuotaUnit   string           `json:"quotaUnit,omitempty"`
	From        time.Time        `json:"effectiveFrom"`
	Until       *time.Time       `json:"effectiveUntil,omitempty"`
	Description string           `json:"description,omitempty"`
}

// Quote is the resolved duty position for one HS code and trade lane.
type Quote struct {
	HSCode      string `json:"hsCode"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	MFNRate           decimal.Decimal    `json:"mfnRate"`
	PreferentialRates []PreferentialRate `json:"preferentialRates"`
	AppliedPreference *PreferentialRate  `json:"appliedPreference,omitempty"`
	TradeMeasures     []TradeMeasure     `json:"tradeMeasures"`
	BindingQuotas     []TradeMeasure     `json:"bindingQuotas"`

	EffectiveTotalRate decimal.Decimal `json:"effectiveTotalRate"`
	VATRate            decimal.Decimal `json:"vatRate"`
	DataQuality        DataQuality     `json:"dataQuality"`
	ResolvedAt         time.Time       `json:"resolvedAt"`
}

// ResolveRequest asks for the duty position of one shipment lane.
// Eligibility carries the importer's facts for preferential claims. A zero
// At resolves at the request time.
type ResolveRequest struct {
	HSCode      string            `json:"hsCode"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	Eligibility map[string]string `json:"eligibility,omitempty"`
	At          time.Time         `json:"at,omitzero"`
}

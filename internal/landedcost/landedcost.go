// Package landedcost turns a CIF value and the resolved duty and VAT rates
// into a landed-cost estimate. All arithmetic is decimal; amounts are
// rounded half away from zero to cents.
package landedcost

import (
	"github.com/shopspring/decimal"

	"tradegraph/internal/tariff/models"
	dErrors "tradegraph/pkg/domain-errors"
)

const (
	DefaultCurrency = "USD"

	Disclaimer = "Estimate only. Duties, taxes and fees are assessed by the customs " +
		"authority at the time of entry and may differ from this figure."
)

var hundred = decimal.NewFromInt(100)

// Estimate is a landed-cost breakdown. Rates are percentages.
type Estimate struct {
	CIFValue    decimal.Decimal    `json:"cifValue"`
	DutyRate    decimal.Decimal    `json:"dutyRate"`
	DutyAmount  decimal.Decimal    `json:"dutyAmount"`
	VATRate     decimal.Decimal    `json:"vatRate"`
	VATAmount   decimal.Decimal    `json:"vatAmount"`
	Total       decimal.Decimal    `json:"total"`
	Currency    string             `json:"currency"`
	Disclaimer  string             `json:"disclaimer"`
	DataQuality models.DataQuality `json:"dataQuality"`
}

// Calculate computes duty on the CIF value and VAT on CIF plus duty.
func Calculate(cifValue, dutyRate, vatRate decimal.Decimal) (*Estimate, error) {
	if cifValue.IsNegative() {
		return nil, dErrors.Validation("cifValue", "must not be negative")
	}
	if dutyRate.IsNegative() {
		return nil, dErrors.Validation("dutyRate", "must not be negative")
	}
	if vatRate.IsNegative() {
		return nil, dErrors.Validation("vatRate", "must not be negative")
	}

	cif := cifValue.Round(2)
	duty := cif.Mul(dutyRate).Div(hundred).Round(2)
	vat := cif.Add(duty).Mul(vatRate).Div(hundred).Round(2)

	return &Estimate{
		CIFValue:    cif,
		DutyRate:    dutyRate,
		DutyAmount:  duty,
		VATRate:     vatRate,
		VATAmount:   vat,
		Total:       cif.Add(duty).Add(vat),
		Currency:    DefaultCurrency,
		Disclaimer:  Disclaimer,
		DataQuality: models.DataQualityHigh,
	}, nil
}

// FromQuote prices a shipment with the quote's effective rate and the
// destination VAT rate. The quote's data quality carries over.
func FromQuote(cifValue decimal.Decimal, quote *models.Quote) (*Estimate, error) {
	est, err := Calculate(cifValue, quote.EffectiveTotalRate, quote.VATRate)
	if err != nil {
		return nil, err
	}
	est.DataQuality = quote.DataQuality
	return est, nil
}

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	MaxCodeSetSize     = 50
	MaxExcludedCompany = 100
)

// SortField names a sortable shipment attribute.
type SortField string

const (
	SortShipmentDate SortField = "shipmentDate"
	SortValueUSD     SortField = "valueUsd"
	SortQuantity     SortField = "quantity"
	SortUnitPrice    SortField = "unitPrice"
	SortHSCode       SortField = "hsCode"
)

// IsValid checks if the sort field is one of the supported enum values.
func (f SortField) IsValid() bool {
	switch f {
	case SortShipmentDate, SortValueUSD, SortQuantity, SortUnitPrice, SortHSCode:
		return true
	}
	return false
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// IsValid checks if the sort order is one of the supported enum values.
func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// Range is an optional closed interval. Either bound may be absent.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether v satisfies the range. An absent value never
// satisfies a range that has at least one bound.
func (r Range) Contains(v *float64) bool {
	if r.IsZero() {
		return true
	}
	if v == nil {
		return false
	}
	if r.Min != nil && *v < *r.Min {
		return false
	}
	if r.Max != nil && *v > *r.Max {
		return false
	}
	return true
}

// SearchQuery is the canonical, validated form of a shipment search. Only
// the normalizer builds these; set fields are deduplicated and sorted so
// equal searches produce equal queries.
type SearchQuery struct {
	HSCode       string `json:"hsCode,omitempty"`
	HSCodePrefix bool   `json:"hsCodePrefix,omitempty"`

	ProductKeyword string `json:"productKeyword,omitempty"`

	ShipperName   string `json:"shipperName,omitempty"`
	ConsigneeName string `json:"consigneeName,omitempty"`
	ShipperID     string `json:"shipperId,omitempty"`
	ConsigneeID   string `json:"consigneeId,omitempty"`

	OriginCountries      []string `json:"originCountries,omitempty"`
	DestinationCountries []string `json:"destinationCountries,omitempty"`
	PortsOfLoading       []string `json:"portsOfLoading,omitempty"`
	PortsOfDischarge     []string `json:"portsOfDischarge,omitempty"`

	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`

	Quantity  Range `json:"quantity"`
	ValueUSD  Range `json:"valueUsd"`
	UnitPrice Range `json:"unitPrice"`

	TransportMode TransportMode `json:"transportMode,omitempty"`
	Carrier       string        `json:"carrier,omitempty"`

	Page      int       `json:"page"`
	PageSize  int       `json:"pageSize"`
	SortBy    SortField `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`

	IncludeAggregations bool `json:"includeAggregations"`

	ExcludeCompanyIDs []string `json:"excludeCompanyIds,omitempty"`
}

// Window returns the offset/limit slice of the match set for the query's page.
func (q *SearchQuery) Window() Window {
	return Window{Offset: (q.Page - 1) * q.PageSize, Limit: q.PageSize}
}

// CacheKey is a stable hash of the canonical query.
func (q *SearchQuery) CacheKey() string {
	// Marshalling a struct is deterministic: field order is fixed and all
	// sets are sorted by the normalizer.
	b, _ := json.Marshal(q)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Window selects a contiguous slice of the sorted match set.
type Window struct {
	Offset int
	Limit  int
}

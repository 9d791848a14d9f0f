package models

import (
	"slices"
	"strings"
)

// Matches reports whether s satisfies every filter of q. Filters combine
// with AND; an unset filter matches everything.
func (q *SearchQuery) Matches(s *Shipment) bool {
	if q.HSCode != "" {
		if q.HSCodePrefix {
			if !strings.HasPrefix(s.HSCode, q.HSCode) {
				return false
			}
		} else if s.HSCode != q.HSCode {
			return false
		}
	}
	if q.ProductKeyword != "" && !containsAllTerms(s.ProductDescription, q.ProductKeyword) {
		return false
	}
	if q.ShipperName != "" && !strings.Contains(strings.ToLower(s.ShipperName), q.ShipperName) {
		return false
	}
	if q.ConsigneeName != "" && !strings.Contains(strings.ToLower(s.ConsigneeName), q.ConsigneeName) {
		return false
	}
	if q.ShipperID != "" && s.ShipperID != q.ShipperID {
		return false
	}
	if q.ConsigneeID != "" && s.ConsigneeID != q.ConsigneeID {
		return false
	}
	if !inSet(q.OriginCountries, s.OriginCountry) ||
		!inSet(q.DestinationCountries, s.DestinationCountry) ||
		!inSet(q.PortsOfLoading, s.PortOfLoading) ||
		!inSet(q.PortsOfDischarge, s.PortOfDischarge) {
		return false
	}
	if q.DateFrom != nil && s.ShipmentDate.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && s.ShipmentDate.After(*q.DateTo) {
		return false
	}
	if !q.Quantity.Contains(s.Quantity) || !q.ValueUSD.Contains(s.ValueUSD) || !q.UnitPrice.Contains(s.UnitPrice) {
		return false
	}
	if q.TransportMode != "" && s.TransportMode != q.TransportMode {
		return false
	}
	if q.Carrier != "" && !strings.EqualFold(s.Carrier, q.Carrier) {
		return false
	}
	if len(q.ExcludeCompanyIDs) > 0 {
		if inSorted(q.ExcludeCompanyIDs, s.ShipperID) || inSorted(q.ExcludeCompanyIDs, s.ConsigneeID) {
			return false
		}
	}
	return true
}

// Compare orders two shipments by the query's sort field and order. Absent
// values sort last in both directions; equal keys fall back to id ascending.
func (q *SearchQuery) Compare(a, b *Shipment) int {
	var c int
	switch q.SortBy {
	case SortValueUSD:
		c = compareOptional(a.ValueUSD, b.ValueUSD, q.SortOrder)
	case SortQuantity:
		c = compareOptional(a.Quantity, b.Quantity, q.SortOrder)
	case SortUnitPrice:
		c = compareOptional(a.UnitPrice, b.UnitPrice, q.SortOrder)
	case SortHSCode:
		c = directed(strings.Compare(a.HSCode, b.HSCode), q.SortOrder)
	default:
		c = directed(a.ShipmentDate.Compare(b.ShipmentDate), q.SortOrder)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func directed(c int, order SortOrder) int {
	if order == SortDesc {
		return -c
	}
	return c
}

func compareOptional(a, b *float64, order SortOrder) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return directed(-1, order)
	case *a > *b:
		return directed(1, order)
	}
	return 0
}

func containsAllTerms(text, keyword string) bool {
	text = strings.ToLower(text)
	for _, term := range strings.Fields(keyword) {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// inSet treats an empty set as "any value".
func inSet(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	return inSorted(set, v)
}

func inSorted(set []string, v string) bool {
	_, found := slices.BinarySearch(set, v)
	return found
}

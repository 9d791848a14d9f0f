// Package searchtest builds deterministic shipment corpora for tests.
package searchtest

import (
	"fmt"
	"time"

	"tradegraph/internal/search/models"
)

var (
	origins      = []string{"CN", "DE", "US", "VN", "IN"}
	destinations = []string{"US", "GB", "DE", "FR"}
	hsCodes      = []string{"730890", "730820", "847130", "940360", "610910"}
	modes        = []models.TransportMode{models.TransportSea, models.TransportAir, models.TransportRoad, models.TransportRail}
	carriers     = []string{"MAERSK", "MSC", "CMA CGM", ""}
	descriptions = map[string]string{
		"730890": "Steel structures and parts",
		"730820": "Steel towers and lattice masts",
		"847130": "Portable computers",
		"940360": "Wooden furniture",
		"610910": "Cotton t-shirts, knitted",
	}
)

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Shipments returns n shipments with varied attributes. Every seventh record
// has no value, every fifth has no quantity and every fourth has no carrier,
// so facets and range summaries see missing data.
func Shipments(n int) []*models.Shipment {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.Shipment, 0, n)
	for i := range n {
		hs := hsCodes[i%len(hsCodes)]
		s := &models.Shipment{
			ID:                 fmt.Sprintf("shp-%05d", i),
			ShipmentDate:       base.AddDate(0, 0, i%90),
			HSCode:             hs,
			ProductDescription: descriptions[hs],
			ShipperID:          fmt.Sprintf("co-%03d", i%11),
			ShipperName:        fmt.Sprintf("Shipper %03d Ltd", i%11),
			ConsigneeID:        fmt.Sprintf("co-%03d", 100+i%13),
			ConsigneeName:      fmt.Sprintf("Consignee %03d Inc", i%13),
			OriginCountry:      origins[i%len(origins)],
			DestinationCountry: destinations[i%len(destinations)],
			PortOfLoading:      origins[i%len(origins)] + "PRT",
			PortOfDischarge:    destinations[i%len(destinations)] + "DST",
			TransportMode:      modes[i%len(modes)],
			Carrier:            carriers[i%len(carriers)],
			QuantityUnit:       "KG",
		}
		if i%5 != 0 {
			s.Quantity = Float(float64(10 + i%37))
		}
		if i%7 != 0 {
			s.ValueUSD = Float(float64(1000 + (i*137)%9000))
		}
		if s.Quantity != nil && s.ValueUSD != nil {
			s.UnitPrice = Float(*s.ValueUSD / *s.Quantity)
		}
		out = append(out, s)
	}
	return out
}

// Query returns a query with the normalizer's defaults applied.
func Query() *models.SearchQuery {
	return &models.SearchQuery{
		Page:                models.DefaultPage,
		PageSize:            models.DefaultPageSize,
		SortBy:              models.SortShipmentDate,
		SortOrder:           models.SortDesc,
		IncludeAggregations: true,
	}
}

package models

// Page is one window of sorted matches plus the size of the full match set.
type Page struct {
	Items []*Shipment
	Total int
}

// SearchResult is the response for a shipment search.
type SearchResult struct {
	Items        []*Shipment   `json:"items"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalPages   int           `json:"totalPages"`
	Aggregations *Aggregations `json:"aggregations,omitempty"`
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// FacetBucket is one key of a facet with its label and match count.
type FacetBucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RangeSummary summarizes a numeric dimension over present values only.
// SampleSize distinguishes "no values" (0) from a genuine zero.
type RangeSummary struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	SampleSize int     `json:"sampleSize"`
}

// Aggregations are computed over the whole match set, not the page.
type Aggregations struct {
	OriginCountries      []FacetBucket `json:"originCountries"`
	DestinationCountries []FacetBucket `json:"destinationCountries"`
	HSChapters           []FacetBucket `json:"hsChapters"`
	TransportModes       []FacetBucket `json:"transportModes"`
	Carriers             []FacetBucket `json:"carriers"`
	Shippers             []FacetBucket `json:"shippers"`

	ValueRange    RangeSummary `json:"valueRange"`
	QuantityRange RangeSummary `json:"quantityRange"`
}

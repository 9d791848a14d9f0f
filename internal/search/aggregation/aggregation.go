// Package aggregation computes facet buckets and numeric range summaries
// over the full match set of a search.
package aggregation

import (
	"cmp"
	"context"
	"slices"

	"tradegraph/internal/search/models"
	"tradegraph/internal/search/ports"
)

// TopN is the number of buckets kept per facet.
const TopN = 20

// Compute streams every match of q from the index, ignoring pagination.
func Compute(ctx context.Context, index ports.Index, q *models.SearchQuery) (*models.Aggregations, error) {
	acc := NewAccumulator()
	if err := index.Scan(ctx, q, func(s *models.Shipment) error {
		acc.Add(s)
		return nil
	}); err != nil {
		return nil, err
	}
	return acc.Result(), nil
}

// Accumulator folds shipments into aggregations. Not safe for concurrent use.
type Accumulator struct {
	origins      *facet
	destinations *facet
	chapters     *facet
	modes        *facet
	carriers     *facet
	shippers     *facet

	value    rangeStats
	quantity rangeStats
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		origins:      newFacet(),
		destinations: newFacet(),
		chapters:     newFacet(),
		modes:        newFacet(),
		carriers:     newFacet(),
		shippers:     newFacet(),
	}
}

// Add counts s in every facet where it has a value.
func (a *Accumulator) Add(s *models.Shipment) {
	a.origins.add(s.OriginCountry, s.OriginCountry)
	a.destinations.add(s.DestinationCountry, s.DestinationCountry)
	if ch := s.HSChapter(); ch != "" {
		a.chapters.add(ch, "Chapter "+ch)
	}
	a.modes.add(string(s.TransportMode), string(s.TransportMode))
	a.carriers.add(s.Carrier, s.Carrier)
	a.shippers.add(s.ShipperID, s.ShipperName)
	a.value.add(s.ValueUSD)
	a.quantity.add(s.Quantity)
}

func (a *Accumulator) Result() *models.Aggregations {
	return &models.Aggregations{
		OriginCountries:      a.origins.top(TopN),
		DestinationCountries: a.destinations.top(TopN),
		HSChapters:           a.chapters.top(TopN),
		TransportModes:       a.modes.top(TopN),
		Carriers:             a.carriers.top(TopN),
		Shippers:             a.shippers.top(TopN),
		ValueRange:           a.value.summary(),
		QuantityRange:        a.quantity.summary(),
	}
}

type facet struct {
	counts map[string]int
	labels map[string]string
}

func newFacet() *facet {
	return &facet{counts: map[string]int{}, labels: map[string]string{}}
}

func (f *facet) add(key, label string) {
	if key == "" {
		return
	}
	f.counts[key]++
	if label == "" {
		label = key
	}
	// First label wins so output does not depend on later spellings.
	if _, ok := f.labels[key]; !ok {
		f.labels[key] = label
	}
}

// top returns up to n buckets by count desc, key asc.
func (f *facet) top(n int) []models.FacetBucket {
	buckets := make([]models.FacetBucket, 0, len(f.counts))
	for k, c := range f.counts {
		buckets = append(buckets, models.FacetBucket{Key: k, Label: f.labels[k], Count: c})
	}
	slices.SortFunc(buckets, func(a, b models.FacetBucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(buckets) > n {
		buckets = buckets[:n]
	}
	return buckets
}

type rangeStats struct {
	n        int
	min, max float64
	sum      float64
}

func (r *rangeStats) add(v *float64) {
	if v == nil {
		return
	}
	if r.n == 0 || *v < r.min {
		r.min = *v
	}
	if r.n == 0 || *v > r.max {
		r.max = *v
	}
	r.sum += *v
	r.n++
}

func (r *rangeStats) summary() models.RangeSummary {
	if r.n == 0 {
		return models.RangeSummary{}
	}
	return models.RangeSummary{Min: r.min, Max: r.max, Avg: r.sum / float64(r.n), SampleSize: r.n}
}

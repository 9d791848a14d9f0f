package aggregation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegraph/internal/search/index/memory"
	"tradegraph/internal/search/models"
	"tradegraph/internal/search/searchtest"
)

func sum(buckets []models.FacetBucket) int {
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	return total
}

func TestCompute_FacetSumsAgainstTotal(t *testing.T) {
	idx := memory.New(searchtest.Shipments(300)...)
	q := searchtest.Query()
	ctx := context.Background()

	page, err := idx.Query(ctx, q, q.Window())
	require.NoError(t, err)
	aggs, err := Compute(ctx, idx, q)
	require.NoError(t, err)

	// Dimensions without missing values add up exactly.
	assert.Equal(t, page.Total, sum(aggs.OriginCountries))
	assert.Equal(t, page.Total, sum(aggs.DestinationCountries))
	assert.Equal(t, page.Total, sum(aggs.HSChapters))
	assert.Equal(t, page.Total, sum(aggs.TransportModes))

	// Every fourth fixture has no carrier.
	assert.Less(t, sum(aggs.Carriers), page.Total)
	assert.LessOrEqual(t, sum(aggs.Shippers), page.Total)
}

func TestCompute_IgnoresPagination(t *testing.T) {
	idx := memory.New(searchtest.Shipments(120)...)
	q := searchtest.Query()
	q.PageSize = 5
	q.Page = 3

	aggs, err := Compute(context.Background(), idx, q)
	require.NoError(t, err)
	assert.Equal(t, 120, sum(aggs.TransportModes))
}

func TestFacet_TopNOrdering(t *testing.T) {
	acc := NewAccumulator()
	for i := range 25 {
		// carriers C00..C24; C00..C04 get an extra record.
		acc.Add(&models.Shipment{ID: fmt.Sprint(i), Carrier: fmt.Sprintf("C%02d", i)})
		if i < 5 {
			acc.Add(&models.Shipment{ID: fmt.Sprint(i, "b"), Carrier: fmt.Sprintf("C%02d", i)})
		}
	}
	res := acc.Result()

	require.Len(t, res.Carriers, TopN)
	assert.Equal(t, "C00", res.Carriers[0].Key)
	assert.Equal(t, 2, res.Carriers[0].Count)
	assert.Equal(t, "C05", res.Carriers[5].Key)
	assert.Equal(t, "C19", res.Carriers[TopN-1].Key)
}

func TestRangeSummary(t *testing.T) {
	t.Run("empty dimension reports zero sample size", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Add(&models.Shipment{ID: "a"})
		res := acc.Result()
		assert.Equal(t, models.RangeSummary{}, res.ValueRange)
	})

	t.Run("genuine zero keeps its sample", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Add(&models.Shipment{ID: "a", ValueUSD: searchtest.Float(0)})
		res := acc.Result()
		assert.Equal(t, 1, res.ValueRange.SampleSize)
		assert.Zero(t, res.ValueRange.Max)
	})

	t.Run("only present values count", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Add(&models.Shipment{ID: "a", Quantity: searchtest.Float(10)})
		acc.Add(&models.Shipment{ID: "b"})
		acc.Add(&models.Shipment{ID: "c", Quantity: searchtest.Float(30)})
		res := acc.Result()
		assert.Equal(t, models.RangeSummary{Min: 10, Max: 30, Avg: 20, SampleSize: 2}, res.QuantityRange)
	})
}

func TestCompute_Cancelled(t *testing.T) {
	idx := memory.New(searchtest.Shipments(10)...)
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	_, err := Compute(ctx, idx, searchtest.Query())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradegraph/internal/search/models"
	"tradegraph/internal/search/searchtest"
)

func TestBuildWhere(t *testing.T) {
	t.Run("empty query has no predicate", func(t *testing.T) {
		where, args := buildWhere(searchtest.Query())
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("placeholders are numbered in order", func(t *testing.T) {
		q := searchtest.Query()
		q.HSCode, q.HSCodePrefix = "7308", true
		q.OriginCountries = []string{"CN", "DE"}
		q.ValueUSD = models.Range{Min: searchtest.Float(10), Max: searchtest.Float(20)}
		q.ExcludeCompanyIDs = []string{"co-1"}

		where, args := buildWhere(q)
		assert.Equal(t,
			" WHERE hs_code LIKE $1 AND origin_country = ANY($2) AND value_usd >= $3 AND value_usd <= $4"+
				" AND NOT (shipper_id = ANY($5) OR consignee_id = ANY($6))",
			where)
		assert.Equal(t, "7308%", args[0])
		assert.Len(t, args, 6)
	})

	t.Run("keyword terms are escaped", func(t *testing.T) {
		q := searchtest.Query()
		q.ProductKeyword = "100% cotton"
		where, args := buildWhere(q)
		assert.Equal(t, 2, strings.Count(where, "ILIKE"))
		assert.Equal(t, `%100\%%`, args[0])
	})
}

func TestOrderBy(t *testing.T) {
	q := searchtest.Query()
	q.SortBy = models.SortUnitPrice
	q.SortOrder = models.SortAsc
	assert.Equal(t, "unit_price ASC NULLS LAST, id ASC", orderBy(q))

	q.SortBy = models.SortField("bogus")
	q.SortOrder = models.SortDesc
	assert.Equal(t, "shipment_date DESC NULLS LAST, id ASC", orderBy(q))
}

// Package ports defines the interfaces the search module consumes.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Index,ResultCache

import (
	"context"
	"time"

	"tradegraph/internal/search/models"
)

// Index is the shipment corpus. Implementations must apply the whole query
// (filters, sort with id tiebreak, window) and report the full match count.
type Index interface {
	// Query returns one window of matches in query sort order.
	Query(ctx context.Context, q *models.SearchQuery, w models.Window) (*models.Page, error)

	// Scan calls fn for every match, in query sort order. Returning an error
	// from fn stops the scan and is returned unchanged.
	Scan(ctx context.Context, q *models.SearchQuery, fn func(*models.Shipment) error) error
}

// Pager fetches one window of matches with the same call bounds as a
// search. Bulk readers page through it instead of calling the Index.
type Pager interface {
	Page(ctx context.Context, q *models.SearchQuery, w models.Window) (*models.Page, error)
}

// ResultCache stores computed search results keyed by the canonical query.
// A miss returns (nil, nil).
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.SearchResult, error)
	Set(ctx context.Context, key string, result *models.SearchResult, ttl time.Duration) error
}

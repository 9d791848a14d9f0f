package ports

import (
	"context"

	"tradegraph/internal/tariff/models"
)

// Catalog is the read side of the tariff dataset.
type Catalog interface {
	// Schedule returns sentinel.ErrNotFound for a destination without a book.
	Schedule(ctx context.Context, destination string) (*models.Schedule, error)

	// Agreements returns every agreement both countries belong to.
	Agreements(ctx context.Context, origin, destination string) ([]models.Agreement, error)

	// Measures returns every measure imposed by destination, active or not.
	Measures(ctx context.Context, destination string) ([]models.Measure, error)
}

// Package memory provides an in-process shipment index used in development,
// tests and small deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"tradegraph/internal/search/models"
)

// scanCheckEvery bounds how many records are visited between cancellation checks.
const scanCheckEvery = 256

// Index holds shipments in memory. It is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	shipments []*models.Shipment
}

func New(shipments ...*models.Shipment) *Index {
	idx := &Index{}
	idx.Add(shipments...)
	return idx
}

// Add appends shipments to the index.
func (i *Index) Add(shipments ...*models.Shipment) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.shipments = append(i.shipments, shipments...)
}

// Load appends shipments decoded from a JSON array.
func (i *Index) Load(r io.Reader) error {
	var shipments []*models.Shipment
	if err := json.NewDecoder(r).Decode(&shipments); err != nil {
		return fmt.Errorf("decode shipments: %w", err)
	}
	i.Add(shipments...)
	return nil
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.shipments)
}

func (i *Index) Query(ctx context.Context, q *models.SearchQuery, w models.Window) (*models.Page, error) {
	matches, err := i.matches(ctx, q)
	if err != nil {
		return nil, err
	}
	page := &models.Page{Total: len(matches), Items: []*models.Shipment{}}
	if w.Offset >= len(matches) || w.Limit <= 0 {
		return page, nil
	}
	end := min(w.Offset+w.Limit, len(matches))
	page.Items = matches[w.Offset:end]
	return page, nil
}

func (i *Index) Scan(ctx context.Context, q *models.SearchQuery, fn func(*models.Shipment) error) error {
	matches, err := i.matches(ctx, q)
	if err != nil {
		return err
	}
	for n, s := range matches {
		if n%scanCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// matches returns a sorted copy of every shipment matching q.
func (i *Index) matches(ctx context.Context, q *models.SearchQuery) ([]*models.Shipment, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var out []*models.Shipment
	for n, s := range i.shipments {
		if n%scanCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, q.Compare)
	return out, nil
}

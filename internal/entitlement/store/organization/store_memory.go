package organization

import (
	"context"
	"sync"

	"tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/sentinel"
	"tradegraph/pkg/requestcontext"
)

// InMemory stores organizations in a map. Callers receive copies.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[id.OrgID]*models.Organization
}

func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[id.OrgID]*models.Organization)}
}

func (s *InMemory) Create(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, orgID id.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *InMemory) UpdateTier(ctx context.Context, orgID id.OrgID, tier models.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return sentinel.ErrNotFound
	}
	org.Tier = tier
	org.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

package memory

import (
	"context"
	"sync"

	id "tradegraph/pkg/domain"
	audit "tradegraph/pkg/platform/audit"
)

// InMemoryStore keeps every event in a single append-only log, mirroring the
// outbox table when no database is configured.
type InMemoryStore struct {
	mu  sync.RWMutex
	log []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	s.mu.Lock()
	s.log = append(s.log, event)
	s.mu.Unlock()
	return nil
}

// ListByOrg returns the organization's events in append order.
func (s *InMemoryStore) ListByOrg(_ context.Context, org id.OrgID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.log {
		if e.OrgID == org {
			out = append(out, e)
		}
	}
	return out, nil
}

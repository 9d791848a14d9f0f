package ledger

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/sentinel"
	"tradegraph/pkg/requestcontext"
)

type poolKey struct {
	org        id.OrgID
	creditType models.CreditType
}

// pool holds one (organization, credit type) ledger. Its mutex serializes
// reservations so the balance check and the append are atomic.
type pool struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
}

type location struct {
	key poolKey
	seq uint64
}

// InMemoryStore is a process-local ledger.
type InMemoryStore struct {
	mu    sync.RWMutex
	pools map[poolKey]*pool
	index map[id.LedgerEntryID]location
	seq   uint64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		pools: make(map[poolKey]*pool),
		index: make(map[id.LedgerEntryID]location),
	}
}

func (s *InMemoryStore) pool(key poolKey) *pool {
	s.mu.RLock()
	p, ok := s.pools[key]
	s.mu.RUnlock()
	if ok {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.pools[key]; !ok {
		p = &pool{}
		s.pools[key] = p
	}
	return p
}

func (s *InMemoryStore) track(entryID id.LedgerEntryID, key poolKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.index[entryID] = location{key: key, seq: s.seq}
}

func (s *InMemoryStore) Grant(ctx context.Context, entry *models.LedgerEntry) error {
	key := poolKey{entry.OrgID, entry.CreditType}
	p := s.pool(key)
	p.mu.Lock()
	defer p.mu.Unlock()

	e := stamp(ctx, entry, models.KindGrant, models.StateCommitted)
	p.entries = append(p.entries, e)
	s.track(e.ID, key)
	return nil
}

func (s *InMemoryStore) Reserve(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	key := poolKey{entry.OrgID, entry.CreditType}
	p := s.pool(key)
	p.mu.Lock()
	defer p.mu.Unlock()

	available := balanceOf(entry.CreditType, p.entries).Available()
	if available < entry.Amount {
		return available, sentinel.ErrInsufficientBalance
	}
	e := stamp(ctx, entry, models.KindUsage, models.StateReserved)
	p.entries = append(p.entries, e)
	s.track(e.ID, key)
	return available - entry.Amount, nil
}

func (s *InMemoryStore) Commit(ctx context.Context, entryID id.LedgerEntryID) error {
	return s.transition(ctx, entryID, models.StateCommitted)
}

func (s *InMemoryStore) Release(ctx context.Context, entryID id.LedgerEntryID) error {
	return s.transition(ctx, entryID, models.StateReleased)
}

// transition moves a RESERVED usage entry to its final state exactly once.
func (s *InMemoryStore) transition(ctx context.Context, entryID id.LedgerEntryID, to models.EntryState) error {
	s.mu.RLock()
	loc, ok := s.index[entryID]
	s.mu.RUnlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	p := s.pool(loc.key)
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.ID != entryID {
			continue
		}
		if e.Kind != models.KindUsage || e.State != models.StateReserved {
			return sentinel.ErrInvalidState
		}
		e.State = to
		e.UpdatedAt = requestcontext.Now(ctx)
		return nil
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) Balance(_ context.Context, orgID id.OrgID, creditType models.CreditType) (*models.Balance, error) {
	p := s.pool(poolKey{orgID, creditType})
	p.mu.Lock()
	defer p.mu.Unlock()
	b := balanceOf(creditType, p.entries)
	return &b, nil
}

func (s *InMemoryStore) Entries(_ context.Context, orgID id.OrgID) ([]*models.LedgerEntry, error) {
	s.mu.RLock()
	var pools []*pool
	for key, p := range s.pools {
		if key.org == orgID {
			pools = append(pools, p)
		}
	}
	s.mu.RUnlock()

	var out []*models.LedgerEntry
	for _, p := range pools {
		p.mu.Lock()
		for _, e := range p.entries {
			cp := *e
			out = append(out, &cp)
		}
		p.mu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.LedgerEntry) int {
		return cmp.Compare(s.index[a.ID].seq, s.index[b.ID].seq)
	})
	return out, nil
}

func balanceOf(creditType models.CreditType, entries []*models.LedgerEntry) models.Balance {
	b := models.Balance{CreditType: creditType}
	for _, e := range entries {
		b.Apply(e)
	}
	return b
}

// stamp returns a stored copy of entry with identity, kind, state and
// timestamps filled in. The caller's entry receives the same id.
func stamp(ctx context.Context, entry *models.LedgerEntry, kind models.EntryKind, state models.EntryState) *models.LedgerEntry {
	if entry.ID.IsNil() {
		entry.ID = id.NewLedgerEntryID()
	}
	now := requestcontext.Now(ctx)
	entry.Kind = kind
	entry.State = state
	entry.CreatedAt = now
	entry.UpdatedAt = now
	cp := *entry
	return &cp
}

// Package providers defines the contract between the platform and external
// screening data sources (sanctions lists, PEP registers, adverse media).
// Matching happens on the provider side; the platform only normalizes
// requests, results and failures.
package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies the screening list family a provider serves.
type Kind string

const (
	KindSanctions    Kind = "sanctions"
	KindPEP          Kind = "pep"
	KindAdverseMedia Kind = "adverse_media"
)

// Status is the outcome of screening one subject.
type Status string

const (
	StatusClear          Status = "CLEAR"
	StatusPotentialMatch Status = "POTENTIAL_MATCH"
)

// Subject is the company or person being screened.
type Subject struct {
	Name      string `json:"name"`
	Country   string `json:"country,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
}

// Finding is one list hit reported by a provider.
type Finding struct {
	ListName    string  `json:"listName"`
	MatchedName string  `json:"matchedName"`
	Score       float64 `json:"score"`
	Reference   string  `json:"reference,omitempty"`
}

// Result is a provider's answer for one subject.
type Result struct {
	ProviderID string    `json:"providerId"`
	Kind       Kind      `json:"kind"`
	Subject    Subject   `json:"subject"`
	Status     Status    `json:"status"`
	Findings   []Finding `json:"findings"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// Provider is implemented by every screening source.
type Provider interface {
	ID() string
	Kind() Kind
	Screen(ctx context.Context, subject Subject) (*Result, error)
}

// Registry holds one provider per kind.
type Registry struct {
	providers map[Kind]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Kind]Provider)}
}

func (r *Registry) Register(p Provider) error {
	if _, exists := r.providers[p.Kind()]; exists {
		return fmt.Errorf("screening provider for %s already registered", p.Kind())
	}
	r.providers[p.Kind()] = p
	return nil
}

func (r *Registry) Get(kind Kind) (Provider, bool) {
	p, ok := r.providers[kind]
	return p, ok
}

// Kinds lists registered kinds in name order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NormalizeName folds case and whitespace so providers and callers agree on
// a subject's key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

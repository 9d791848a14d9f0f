// Package static serves screening results from a fixed watchlist. It backs
// local development and tests; production deployments configure HTTP
// providers.
package static

import (
	"context"

	"tradegraph/internal/screening/providers"
	"tradegraph/pkg/requestcontext"
)

// Entry is one watchlist record.
type Entry struct {
	Name      string
	ListName  string
	Reference string
}

// Provider reports a potential match when the subject's normalized name
// equals a watchlist name.
type Provider struct {
	id      string
	kind    providers.Kind
	entries map[string][]Entry
}

func New(id string, kind providers.Kind, entries ...Entry) *Provider {
	p := &Provider{id: id, kind: kind, entries: make(map[string][]Entry)}
	for _, e := range entries {
		key := providers.NormalizeName(e.Name)
		p.entries[key] = append(p.entries[key], e)
	}
	return p
}

func (p *Provider) ID() string           { return p.id }
func (p *Provider) Kind() providers.Kind { return p.kind }

func (p *Provider) Screen(ctx context.Context, subject providers.Subject) (*providers.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, providers.NewProviderError(providers.ErrorTimeout, p.id, "context done", err)
	}
	res := &providers.Result{
		ProviderID: p.id,
		Kind:       p.kind,
		Subject:    subject,
		Status:     providers.StatusClear,
		Findings:   []providers.Finding{},
		CheckedAt:  requestcontext.Now(ctx),
	}
	for _, e := range p.entries[providers.NormalizeName(subject.Name)] {
		res.Status = providers.StatusPotentialMatch
		res.Findings = append(res.Findings, providers.Finding{
			ListName:    e.ListName,
			MatchedName: e.Name,
			Score:       1,
			Reference:   e.Reference,
		})
	}
	return res, nil
}

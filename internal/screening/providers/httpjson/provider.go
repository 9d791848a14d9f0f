// Package httpjson adapts a screening service that speaks JSON over HTTP.
//
// The adapter POSTs {"name","country","companyId"} to the configured
// endpoint and expects {"status","findings":[...]} back. Outbound calls are
// throttled locally so bursts stay inside the provider's contract.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tradegraph/internal/screening/providers"
	"tradegraph/pkg/requestcontext"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

type Provider struct {
	id       string
	kind     providers.Kind
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

type Option func(*Provider)

func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Provider) {
		if rps > 0 && burst > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func New(id string, kind providers.Kind, endpoint string, opts ...Option) (*Provider, error) {
	if id == "" {
		return nil, errors.New("provider id is required")
	}
	if endpoint == "" {
		return nil, errors.New("provider endpoint is required")
	}
	p := &Provider{
		id:       id,
		kind:     kind,
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) ID() string           { return p.id }
func (p *Provider) Kind() providers.Kind { return p.kind }

type screenResponse struct {
	Status   string              `json:"status"`
	Findings []providers.Finding `json:"findings"`
}

func (p *Provider) Screen(ctx context.Context, subject providers.Subject) (*providers.Result, error) {
	if !p.limiter.Allow() {
		// Wait only if the reservation fits inside the caller's deadline.
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, providers.NewProviderError(providers.ErrorRateLimited, p.id, "local rate limit", err)
		}
	}

	body, err := json.Marshal(subject)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, p.id, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, p.id, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, providers.NewProviderError(providers.ErrorTimeout, p.id, "request timed out", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, providers.NewProviderError(providers.ErrorInternal, p.id, "request canceled", err)
		}
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, p.id, "request failed", err)
	}
	defer resp.Body.Close()

	if err := statusError(p.id, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, err
	}

	var out screenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, "decode response", err)
	}
	status := providers.Status(strings.ToUpper(out.Status))
	if status != providers.StatusClear && status != providers.StatusPotentialMatch {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, fmt.Sprintf("unknown status %q", out.Status), nil)
	}
	if out.Findings == nil {
		out.Findings = []providers.Finding{}
	}
	return &providers.Result{
		ProviderID: p.id,
		Kind:       p.kind,
		Subject:    subject,
		Status:     status,
		Findings:   out.Findings,
		CheckedAt:  requestcontext.Now(ctx),
	}, nil
}

func statusError(providerID string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return providers.NewProviderError(providers.ErrorRateLimited, providerID, "rate limited upstream", nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return providers.NewProviderError(providers.ErrorAuthentication, providerID, fmt.Sprintf("status %d", code), nil)
	case code == http.StatusGatewayTimeout || code == http.StatusRequestTimeout:
		return providers.NewProviderError(providers.ErrorTimeout, providerID, fmt.Sprintf("status %d", code), nil)
	case code >= 500:
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID, fmt.Sprintf("status %d", code), nil)
	default:
		return providers.NewProviderError(providers.ErrorBadData, providerID, fmt.Sprintf("unexpected status %d", code), nil)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

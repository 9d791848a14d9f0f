// Package screening runs compliance checks against external screening
// providers and maps their failures onto domain errors.
package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tradegraph/internal/screening/providers"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
)

const (
	MaxBatchSize       = 100
	MaxNameLength      = 200
	DefaultMaxAttempts = 2
	DefaultBackoff     = 200 * time.Millisecond
	DefaultConcurrency = 8
)

type Service struct {
	registry    *providers.Registry
	maxAttempts int
	backoff     time.Duration
	concurrency int
	logger      *slog.Logger
}

type Option func(*Service)

func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// WithConcurrency bounds in-flight provider calls per batch.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(registry *providers.Registry, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("provider registry is required")
	}
	s := &Service{
		registry:    registry,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check screens one company against sanctions lists.
func (s *Service) Check(ctx context.Context, subject providers.Subject) (*providers.Result, error) {
	return s.screen(ctx, providers.KindSanctions, subject)
}

// PEP screens one person against politically exposed person registers.
func (s *Service) PEP(ctx context.Context, subject providers.Subject) (*providers.Result, error) {
	return s.screen(ctx, providers.KindPEP, subject)
}

// AdverseMedia screens one subject against negative news sources.
func (s *Service) AdverseMedia(ctx context.Context, subject providers.Subject) (*providers.Result, error) {
	return s.screen(ctx, providers.KindAdverseMedia, subject)
}

// Batch screens every subject against sanctions lists. The batch succeeds
// or fails as a whole; results keep the input order.
func (s *Service) Batch(ctx context.Context, subjects []providers.Subject) ([]*providers.Result, error) {
	if err := ValidateBatch(subjects); err != nil {
		return nil, err
	}
	results := make([]*providers.Result, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, subject := range subjects {
		g.Go(func() error {
			res, err := s.screen(gctx, providers.KindSanctions, subject)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// NormalizeSubject trims fields and upper-cases the country.
func NormalizeSubject(subject providers.Subject) (providers.Subject, error) {
	subject.Name = strings.Join(strings.Fields(subject.Name), " ")
	subject.CompanyID = strings.TrimSpace(subject.CompanyID)
	if subject.Name == "" {
		return subject, dErrors.Validation("name", "is required")
	}
	if len(subject.Name) > MaxNameLength {
		return subject, dErrors.Validation("name", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	if subject.Country != "" {
		c, err := id.ParseCountryCode(subject.Country)
		if err != nil {
			return subject, dErrors.Validation("country", "must be an ISO 3166-1 alpha-2 code")
		}
		subject.Country = c.String()
	}
	return subject, nil
}

// ValidateBatch enforces the 1..100 batch size and validates every subject.
func ValidateBatch(subjects []providers.Subject) error {
	if len(subjects) == 0 || len(subjects) > MaxBatchSize {
		return dErrors.Validation("companies", fmt.Sprintf("must contain between 1 and %d entries", MaxBatchSize))
	}
	for i := range subjects {
		normalized, err := NormalizeSubject(subjects[i])
		if err != nil {
			if de, ok := dErrors.As(err); ok {
				de.Field = fmt.Sprintf("companies[%d].%s", i, de.Field)
			}
			return err
		}
		subjects[i] = normalized
	}
	return nil
}

func (s *Service) screen(ctx context.Context, kind providers.Kind, subject providers.Subject) (*providers.Result, error) {
	subject, err := NormalizeSubject(subject)
	if err != nil {
		return nil, err
	}
	p, ok := s.registry.Get(kind)
	if !ok {
		return nil, dErrors.Wrap(providers.ErrNoProvider, dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s screening is not configured", kind))
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res, err := p.Screen(ctx, subject)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !providers.IsRetryable(err) || attempt == s.maxAttempts {
			break
		}
		s.logger.WarnContext(ctx, "screening provider call failed, retrying",
			"provider", p.ID(),
			"kind", string(kind),
			"attempt", attempt,
			"error", err,
		)
		if err := sleep(ctx, s.backoff<<(attempt-1)); err != nil {
			lastErr = err
			break
		}
	}
	return nil, toDomainError(ctx, lastErr)
}

func toDomainError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "screening canceled")
	}
	code := providers.GetCategory(err).DomainCode()
	if code == dErrors.CodeUpstreamUnavailable {
		return dErrors.Wrap(err, code, "screening provider unavailable")
	}
	return dErrors.Wrap(err, code, "screening failed")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

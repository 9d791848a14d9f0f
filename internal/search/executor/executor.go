// Package executor runs canonical searches against the shipment index.
//
// A search fetches the requested page and, when asked, the aggregations over
// the full match set. Both run concurrently and succeed or fail together.
// Every index call is bounded by a timeout and retried with exponential
// backoff; a circuit breaker reduces retries to a single attempt while the
// index is failing.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tradegraph/internal/search/aggregation"
	"tradegraph/internal/search/metrics"
	"tradegraph/internal/search/models"
	"tradegraph/internal/search/ports"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/circuit"
	"tradegraph/pkg/requestcontext"
)

const (
	DefaultCallTimeout = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 100 * time.Millisecond
	DefaultCacheTTL    = 5 * time.Minute
)

// Executor is safe for concurrent use.
type Executor struct {
	index       ports.Index
	cache       ports.ResultCache
	cacheTTL    time.Duration
	breaker     *circuit.Breaker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	callTimeout time.Duration
	maxAttempts int
	baseBackoff time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithCache enables result caching. A nil cache disables it.
func WithCache(cache ports.ResultCache, ttl time.Duration) Option {
	return func(e *Executor) {
		e.cache = cache
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(e *Executor) {
		if b != nil {
			e.breaker = b
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCallTimeout bounds each individual index call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

// WithRetry sets the attempt ceiling and the first backoff delay.
func WithRetry(maxAttempts int, baseBackoff time.Duration) Option {
	return func(e *Executor) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if baseBackoff >= 0 {
			e.baseBackoff = baseBackoff
		}
	}
}

func New(index ports.Index, opts ...Option) (*Executor, error) {
	if index == nil {
		return nil, errors.New("shipment index is required")
	}
	e := &Executor{
		index:       index,
		cacheTTL:    DefaultCacheTTL,
		breaker:     circuit.New("search-index"),
		logger:      slog.Default(),
		tracer:      otel.Tracer("tradegraph/search"),
		callTimeout: DefaultCallTimeout,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search executes q. The query must come from the normalizer.
func (e *Executor) Search(ctx context.Context, q *models.SearchQuery) (_ *models.SearchResult, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "search.execute", trace.WithAttributes(
		attribute.Int("search.page", q.Page),
		attribute.Int("search.page_size", q.PageSize),
		attribute.Bool("search.aggregations", q.IncludeAggregations),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.metrics.ObserveSearch(outcome, time.Since(start))
		span.End()
	}()

	key := q.CacheKey()
	if cached := e.cached(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("search.cache_hit", true))
		return cached, nil
	}

	var (
		page *models.Page
		aggs *models.Aggregations
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.withRetry(gctx, "query", func(callCtx context.Context) error {
			var qerr error
			page, qerr = e.index.Query(callCtx, q, q.Window())
			return qerr
		})
	})
	if q.IncludeAggregations {
		g.Go(func() error {
			return e.withRetry(gctx, "aggregate", func(callCtx context.Context) error {
				var aerr error
				aggs, aerr = aggregation.Compute(callCtx, e.index, q)
				return aerr
			})
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "search cancelled")
		}
		return nil, err
	}

	items := page.Items
	if items == nil {
		items = []*models.Shipment{}
	}
	result := &models.SearchResult{
		Items:        items,
		Total:        page.Total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   models.TotalPages(page.Total, q.PageSize),
		Aggregations: aggs,
	}
	span.SetAttributes(attribute.Int("search.total", result.Total))
	e.store(ctx, key, result)
	return result, nil
}

// Page fetches one window of q, bypassing the cache. Each call gets the
// per-call timeout, retries and breaker that Search uses.
func (e *Executor) Page(ctx context.Context, q *models.SearchQuery, w models.Window) (_ *models.Page, err error) {
	ctx, span := e.tracer.Start(ctx, "search.page", trace.WithAttributes(
		attribute.Int("search.offset", w.Offset),
		attribute.Int("search.limit", w.Limit),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var page *models.Page
	err = e.withRetry(ctx, "page", func(callCtx context.Context) error {
		var qerr error
		page, qerr = e.index.Query(callCtx, q, w)
		return qerr
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "page fetch cancelled")
		}
		return nil, err
	}
	return page, nil
}

func (e *Executor) cached(ctx context.Context, key string) *models.SearchResult {
	if e.cache == nil {
		return nil
	}
	result, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		e.metrics.RecordCacheLookup("error")
		e.logger.WarnContext(ctx, "search cache lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	case result == nil:
		e.metrics.RecordCacheLookup("miss")
		return nil
	}
	e.metrics.RecordCacheLookup("hit")
	return result
}

func (e *Executor) store(ctx context.Context, key string, result *models.SearchResult) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, result, e.cacheTTL); err != nil {
		e.logger.WarnContext(ctx, "search cache store failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// withRetry calls fn until it succeeds, the attempt ceiling is reached or the
// caller's context ends. Exhausted retries surface as UpstreamUnavailable.
func (e *Executor) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := e.maxAttempts
	if e.breaker.IsOpen() {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			if _, change := e.breaker.RecordSuccess(); change.Closed {
				e.metrics.SetBreakerOpen(false)
				e.logger.InfoContext(ctx, "search index circuit closed", "breaker", e.breaker.Name())
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isPermanent(err) {
			return err
		}

		lastErr = err
		if _, change := e.breaker.RecordFailure(); change.Opened {
			e.metrics.SetBreakerOpen(true)
			e.logger.WarnContext(ctx, "search index circuit opened", "breaker", e.breaker.Name())
		}
		e.logger.WarnContext(ctx, "search index call failed",
			"op", op,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if attempt == attempts {
			break
		}
		e.metrics.IncrementRetries()
		if err := e.sleep(ctx, e.baseBackoff<<(attempt-1)); err != nil {
			return err
		}
	}
	return dErrors.Wrap(lastErr, dErrors.CodeUpstreamUnavailable, "shipment index unavailable")
}

// isPermanent reports errors that a retry cannot fix.
func isPermanent(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

// Package guard enforces subscription tiers and metered credits around
// every billable operation.
//
// Each call runs CHECK_TIER, then RESERVE_CREDIT for metered operations,
// then the operation itself, then COMMIT on success or RELEASE on any
// failure. The guard is the only component that moves ledger entries
// between states.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tradegraph/internal/entitlement/metrics"
	"tradegraph/internal/entitlement/models"
	"tradegraph/internal/entitlement/ports"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/platform/sentinel"
	"tradegraph/pkg/requestcontext"
)

// DefaultSettleTimeout bounds commit and release calls, which run on a
// context detached from the caller.
const DefaultSettleTimeout = 5 * time.Second

// Guard is safe for concurrent use.
type Guard struct {
	orgs           ports.OrganizationStore
	ledger         ports.LedgerStore
	policies       map[models.Operation]models.Policy
	auditPublisher ports.AuditPublisher
	tx             ports.TxRunner
	auditInTx      bool
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	settleTimeout  time.Duration
}

type Option func(*Guard)

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(g *Guard) {
		g.auditPublisher = publisher
	}
}

// WithTxRunner makes ledger transitions and their audit events atomic: a
// failed audit append rolls the transition back. Without it each store call
// commits on its own and audit failures are only logged.
func WithTxRunner(r ports.TxRunner) Option {
	return func(g *Guard) {
		if r != nil {
			g.tx = r
			g.auditInTx = true
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithPolicies replaces the operation table.
func WithPolicies(policies map[models.Operation]models.Policy) Option {
	return func(g *Guard) {
		if len(policies) > 0 {
			g.policies = policies
		}
	}
}

func WithSettleTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.settleTimeout = d
		}
	}
}

func New(orgs ports.OrganizationStore, ledger ports.LedgerStore, opts ...Option) (*Guard, error) {
	if orgs == nil {
		return nil, errors.New("organization store is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger store is required")
	}
	g := &Guard{
		orgs:          orgs,
		ledger:        ledger,
		policies:      models.Policies,
		tx:            directTx{},
		logger:        slog.Default(),
		tracer:        otel.Tracer("tradegraph/entitlement"),
		settleTimeout: DefaultSettleTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Execute runs fn under the entitlement rules for op. units scales the
// credit cost of metered operations (a batch of 40 companies is 40 units)
// and is ignored otherwise. fn is never called when the tier check or the
// reservation fails.
func (g *Guard) Execute(ctx context.Context, orgID id.OrgID, op models.Operation, units int64, fn func(ctx context.Context) error) (err error) {
	ctx, span := g.tracer.Start(ctx, "entitlement.guard", trace.WithAttributes(
		attribute.String("entitlement.operation", string(op)),
		attribute.String("entitlement.organization_id", orgID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	policy, ok := g.policies[op]
	if !ok {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no entitlement policy for operation %q", op))
	}

	org, err := g.authorize(ctx, orgID, op, policy)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, organizationKey{}, org)

	if !policy.Metered() {
		if err := fn(ctx); err != nil {
			g.metrics.RecordDecision(string(op), metrics.OutcomeFailed)
			return err
		}
		g.metrics.RecordDecision(string(op), metrics.OutcomeAllowed)
		return nil
	}

	if units < 1 {
		return dErrors.Validation("units", "must be at least 1")
	}
	entry, err := g.reserve(ctx, orgID, op, policy, units)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("entitlement.entry_id", entry.ID.String()))

	settled := false
	defer func() {
		if r := recover(); r != nil {
			if !settled {
				g.settle(ctx, entry, models.StateReleased)
			}
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		settled = true
		g.settle(ctx, entry, models.StateReleased)
		g.metrics.RecordDecision(string(op), metrics.OutcomeFailed)
		return err
	}

	settled = true
	if err := g.settle(ctx, entry, models.StateCommitted); err != nil {
		// Leave nothing reserved: the caller sees a failure, so the usage
		// must not be billed either.
		g.settle(ctx, entry, models.StateReleased)
		g.metrics.RecordDecision(string(op), metrics.OutcomeFailed)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit credit usage")
	}
	g.metrics.RecordDecision(string(op), metrics.OutcomeAllowed)
	return nil
}

type organizationKey struct{}

// OrganizationFromContext returns the organization that passed the tier
// check. It is set on the context handed to guarded operations.
func OrganizationFromContext(ctx context.Context) (*models.Organization, bool) {
	org, ok := ctx.Value(organizationKey{}).(*models.Organization)
	return org, ok
}

// Run is Execute for operations that return a value. The zero value is
// returned whenever the guard or fn fails.
func Run[T any](ctx context.Context, g *Guard, orgID id.OrgID, op models.Operation, units int64, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Execute(ctx, orgID, op, units, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (g *Guard) authorize(ctx context.Context, orgID id.OrgID, op models.Operation, policy models.Policy) (*models.Organization, error) {
	org, err := g.organization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Tier.Satisfies(policy.MinTier) {
		return org, nil
	}

	g.metrics.RecordDecision(string(op), metrics.OutcomeTierDenied)
	ports.LogAudit(ctx, g.logger, g.auditPublisher, audit.Event{
		Category:  audit.EventTierDenied.Category(),
		Timestamp: requestcontext.Now(ctx),
		OrgID:     orgID,
		Action:    string(audit.EventTierDenied),
		Operation: string(op),
		Reason:    fmt.Sprintf("tier %s below %s", org.Tier, policy.MinTier),
	}, "tier", org.Tier.String(), "required_tier", policy.MinTier.String())

	return nil, dErrors.New(dErrors.CodeInsufficientTier, fmt.Sprintf("operation %s requires the %s tier", op, policy.MinTier)).
		WithDetail("required_tier", policy.MinTier.String()).
		WithDetail("current_tier", org.Tier.String())
}

func (g *Guard) organization(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "organization is required")
	}
	org, err := g.orgs.FindByID(ctx, orgID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown organization")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

func (g *Guard) reserve(ctx context.Context, orgID id.OrgID, op models.Operation, policy models.Policy, units int64) (*models.LedgerEntry, error) {
	cost := units * policy.UnitCost
	entry := &models.LedgerEntry{
		OrgID:      orgID,
		CreditType: policy.CreditType,
		Amount:     cost,
		Operation:  op,
	}

	var remaining int64
	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		var rerr error
		remaining, rerr = g.ledger.Reserve(ctx, entry)
		if rerr != nil {
			return rerr
		}
		return g.emitEntry(ctx, audit.EventCreditReserved, entry)
	})
	if errors.Is(err, sentinel.ErrInsufficientBalance) {
		g.metrics.RecordDecision(string(op), metrics.OutcomeQuotaExceeded)
		ports.LogAudit(ctx, g.logger, g.auditPublisher, audit.Event{
			Category:   audit.EventQuotaExceeded.Category(),
			Timestamp:  requestcontext.Now(ctx),
			OrgID:      orgID,
			Action:     string(audit.EventQuotaExceeded),
			Operation:  string(op),
			CreditType: policy.CreditType.String(),
			Amount:     cost,
		}, "remaining", remaining)

		return nil, dErrors.New(dErrors.CodeQuotaExceeded, fmt.Sprintf("insufficient %s credits", policy.CreditType)).
			WithDetail("remaining", remaining).
			WithDetail("required", cost).
			WithDetail("credit_type", policy.CreditType.String())
	}
	if err != nil {
		g.metrics.RecordDecision(string(op), metrics.OutcomeFailed)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve credits")
	}
	return entry, nil
}

// settle moves a reservation to its final state on a context that survives
// caller cancellation. Release failures are logged; the returned error only
// matters for commits.
func (g *Guard) settle(ctx context.Context, entry *models.LedgerEntry, to models.EntryState) error {
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.settleTimeout)
	defer cancel()

	transition, event := g.ledger.Release, audit.EventCreditReleased
	if to == models.StateCommitted {
		transition, event = g.ledger.Commit, audit.EventCreditCommitted
	}
	err := g.tx.RunInTx(settleCtx, func(ctx context.Context) error {
		if err := transition(ctx, entry.ID); err != nil {
			return err
		}
		return g.emitEntry(ctx, event, entry)
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to settle credit reservation",
			"entry_id", entry.ID.String(),
			"state", string(to),
			"organization_id", entry.OrgID.String(),
			"error", err,
		)
		return err
	}

	entry.State = to
	g.metrics.RecordSettlement(entry.CreditType.String(), string(to))
	return nil
}

// emitEntry records a ledger transition. Inside a real transaction the
// append error is returned so the transition rolls back with it.
func (g *Guard) emitEntry(ctx context.Context, event audit.AuditEvent, entry *models.LedgerEntry) error {
	return g.emit(ctx, audit.Event{
		Category:   event.Category(),
		Timestamp:  requestcontext.Now(ctx),
		OrgID:      entry.OrgID,
		Action:     string(event),
		Operation:  string(entry.Operation),
		CreditType: entry.CreditType.String(),
		Amount:     entry.Amount,
		EntryID:    entry.ID.String(),
	}, "entry_id", entry.ID.String(), "amount", entry.Amount)
}

func (g *Guard) emit(ctx context.Context, event audit.Event, attrs ...any) error {
	err := ports.EmitAudit(ctx, g.logger, g.auditPublisher, event, attrs...)
	if err == nil {
		return nil
	}
	if g.auditInTx {
		return fmt.Errorf("append %s audit event: %w", event.Action, err)
	}
	g.logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	return nil
}

type directTx struct{}

func (directTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

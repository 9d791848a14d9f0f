// Package requestcontext carries request-scoped values (calling org, request
// id, client address and request clock) through service code without a
// net/http dependency. Middleware sets them; services and tests read or
// inject them directly.
package requestcontext

import (
	"context"
	"time"

	id "tradegraph/pkg/domain"
)

type key int

const (
	orgKey key = iota
	clientIPKey
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// OrgID is the nil UUID when no organization has been resolved.
func OrgID(ctx context.Context) id.OrgID {
	v, _ := value[id.OrgID](ctx, orgKey)
	return v
}

func WithOrgID(ctx context.Context, orgID id.OrgID) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

func ClientIP(ctx context.Context) string {
	v, _ := value[string](ctx, clientIPKey)
	return v
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func RequestID(ctx context.Context) string {
	v, _ := value[string](ctx, requestIDKey)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now returns the instant pinned by WithTime, or the wall clock outside a
// request. Tariff lookups and ledger timestamps resolve against it.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

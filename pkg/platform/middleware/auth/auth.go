package auth

import (
	"log/slog"
	"net/http"

	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/httputil"
	"tradegraph/pkg/requestcontext"
)

// HeaderOrganizationID carries the caller's organization. Identity is
// verified by the fronting gateway, which sets this header after
// authenticating the request; this service trusts it.
const HeaderOrganizationID = "X-Organization-ID"

// RequireOrganization rejects requests without a well-formed organization id
// and stores the parsed id in the request context.
func RequireOrganization(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			orgID, err := id.ParseOrgID(r.Header.Get(HeaderOrganizationID))
			if err != nil {
				logger.WarnContext(ctx, "missing or malformed organization id",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "organization id required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithOrgID(ctx, orgID)))
		})
	}
}

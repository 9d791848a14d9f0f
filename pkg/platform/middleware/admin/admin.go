package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "tradegraph/pkg/domain-errors"
	"tradegraph/pkg/platform/httputil"
	"tradegraph/pkg/requestcontext"
)

const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken guards operator endpoints (organizations, credit grants)
// with a shared token. An empty expected token locks the endpoints.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(expectedToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderAdminToken))
			if len(expected) > 0 && subtle.ConstantTimeCompare(got, expected) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "admin token rejected",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
				"token_present", len(got) > 0,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		})
	}
}

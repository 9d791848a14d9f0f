// Package requesttime pins one "now" per request so tariff windows, ledger
// rows and audit events of the same call agree.
package requesttime

import (
	"net/http"
	"time"

	"tradegraph/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now().UTC())))
	})
}

package middleware

import (
	"log/slog"
	"net/http"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// Header names for the operator surface.
const (
	HeaderAdminToken = "X-Admin-Token"
	HeaderAdminID    = "X-Admin-ID"
)

// RequireAdminToken gates operator routes on a shared admin token and
// records the acting operator for the audit trail. The authenticated
// principal check itself lives upstream of this engine; the token is the
// deployment boundary.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Header.Get(HeaderAdminToken) != token {
				logger.WarnContext(r.Context(), "forbidden - admin token missing or wrong",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			ctx := r.Context()
			if adminID := r.Header.Get(HeaderAdminID); adminID != "" {
				ctx = requestcontext.WithAdminID(ctx, id.AdminID(adminID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

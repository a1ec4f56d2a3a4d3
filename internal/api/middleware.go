package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// RequireRole creates middleware enforcing a simple role allow-list on the
// X-Role header. Authentication itself happens upstream (reverse proxy /
// gateway); this is only the authorization check. An empty allow-list
// leaves the route open.
func RequireRole(allowed []string, logger *zap.Logger) func(http.Handler) http.Handler {
	allowSet := make(map[string]bool, len(allowed))
	for _, role := range allowed {
		allowSet[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			role := r.Header.Get("X-Role")
			if !allowSet[role] {
				logger.Warn("request rejected by role allow-list",
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(ErrorResponse{
					Type:   "forbidden",
					Title:  "Forbidden",
					Status: http.StatusForbidden,
					Detail: "Role is not allowed to perform this operation.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package router

import (
	"net/http"

	"github.com/shandysiswandi/twofa/internal/pkg/config"
)

// middlewareMaintenance blocks the routes listed in app.maintenance.endpoints.
// The list is read per request so a config reload takes effect immediately.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			for _, blocked := range cfg.GetArray("app.maintenance.endpoints") {
				if blocked == route || blocked == "*" {
					writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

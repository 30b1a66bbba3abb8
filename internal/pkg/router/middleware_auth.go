package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
)

func bearerToken(r *http.Request) string {
	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
		return p[1]
	}

	// EventSource cannot set headers, so the stream endpoint also accepts a query token.
	if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return r.URL.Query().Get("access_token")
	}

	return ""
}

func middlewareAuthentication(verifier jwt.JWT, public map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := public[r.Method][matchedRoutePath(r)]; skip {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeJSON(w, errorResponse{Message: "authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeJSON(w, errorResponse{Message: "invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

func middlewareAuthorization(enforcer *casbin.Enforcer, obj, act string) Middleware {
	return func(next http.Handler) http.Handler {
		if enforcer == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clm := jwt.GetAuth(r.Context())
			if clm == nil {
				writeJSON(w, errorResponse{Message: "authentication required"}, http.StatusUnauthorized)
				return
			}

			ok, err := enforcer.Enforce(clm.Role, obj, act)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to enforce policy", "role", clm.Role, "obj", obj, "act", act, "error", err)
				writeJSON(w, errorResponse{Message: "internal server error"}, http.StatusInternalServerError)
				return
			}
			if !ok {
				writeJSON(w, errorResponse{Message: "you do not have permission to perform this action"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

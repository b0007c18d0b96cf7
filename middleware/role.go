package middleware

import (
	"net/http"

	"github.com/MrEthical07/arena"
)

// RequireRole lets through only principals with role. Requests without a
// principal are unauthenticated, not forbidden.
func RequireRole(role arena.Role, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = defaultDeny
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				deny(w, r, arena.ErrUnauthenticated)
				return
			}
			if p.Role != role {
				deny(w, r, arena.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

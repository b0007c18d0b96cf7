package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/arena"
)

type principalContextKey struct{}

// Validator resolves a session token to a principal.
type Validator interface {
	Validate(ctx context.Context, token string) (*arena.Principal, error)
}

// DenyFunc writes the response for a rejected request. err is
// arena.ErrUnauthenticated, arena.ErrForbidden or an error wrapping
// arena.ErrUpstreamUnavailable.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

func PrincipalFromContext(ctx context.Context) (*arena.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*arena.Principal)
	return p, ok && p != nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *arena.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func Guard(v Validator, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = defaultDeny
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				deny(w, r, arena.ErrUnauthenticated)
				return
			}

			token := TokenFromRequest(r)
			if token == "" {
				deny(w, r, arena.ErrUnauthenticated)
				return
			}

			p, err := v.Validate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, arena.ErrUpstreamUnavailable) {
					err = arena.ErrUnauthenticated
				}
				deny(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, arena.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, arena.ErrUpstreamUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

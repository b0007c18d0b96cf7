package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/arena"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// TokenFromRequest returns the session token from the cookie, falling back
// to the Authorization bearer header. It returns "" when neither is set.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// ClientMeta records the client IP and user agent in the request context
// for rate limiting and session binding. Run it after chi's RealIP.
func ClientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := arena.WithClientIP(r.Context(), ClientIP(r))
		ctx = arena.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

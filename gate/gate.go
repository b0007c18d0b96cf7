// Package gate is the edge authorization gate. It runs before any page
// handler, checks only the local validity of the session token, and
// redirects unauthenticated requests for protected pages to the login page.
// It never calls the backend.
package gate

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/jwt"
	"github.com/MrEthical07/arena/middleware"
	"github.com/MrEthical07/arena/routes"
)

// TokenVerifier checks a token's signature and expiry. *jwt.Manager
// satisfies it.
type TokenVerifier interface {
	ParseAccess(token string) (*jwt.AccessClaims, error)
}

var defaultBypass = []string{
	"/static/",
	"/_next/static/",
	"/_next/image/",
	"/favicon.ico",
}

const authAPIPrefix = "/api/auth"

type Gate struct {
	table     *routes.Table
	verifier  TokenVerifier
	loginPath string
	bypass    []string
	metrics   *metrics.Registry
	pipeline  Pipeline
}

type Option func(*Gate)

func WithMetrics(reg *metrics.Registry) Option {
	return func(g *Gate) { g.metrics = reg }
}

func WithLoginPath(p string) Option {
	return func(g *Gate) {
		if p != "" {
			g.loginPath = p
		}
	}
}

// WithBypass adds path prefixes the gate never inspects, on top of the
// static asset defaults.
func WithBypass(prefixes ...string) Option {
	return func(g *Gate) { g.bypass = append(g.bypass, prefixes...) }
}

func New(table *routes.Table, verifier TokenVerifier, opts ...Option) *Gate {
	g := &Gate{
		table:     table,
		verifier:  verifier,
		loginPath: "/login",
		bypass:    append([]string(nil), defaultBypass...),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.pipeline = Pipeline{g.matchGuard, g.classifyGuard}
	return g
}

// Skips reports whether the gate leaves p alone: static assets, and every
// /api path outside /api/auth.
func (g *Gate) Skips(p string) bool {
	p = routes.Normalize(p)
	for _, prefix := range g.bypass {
		if p == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		return !(p == authAPIPrefix || strings.HasPrefix(p, authAPIPrefix+"/"))
	}
	return false
}

func (g *Gate) matchGuard(r *http.Request) (routes.Decision, bool) {
	if g.Skips(r.URL.Path) {
		g.metrics.GateDecision("edge", "bypass", routes.Allow.String())
		return routes.AllowDecision(), true
	}
	return routes.AllowDecision(), false
}

// classifyGuard denies Protected paths without a locally valid token.
// AuthOnly paths are allowed even with a session; the client controller
// sends those visitors away once their role is known.
func (g *Gate) classifyGuard(r *http.Request) (routes.Decision, bool) {
	rule := g.table.Classify(r.URL.Path)

	d := routes.AllowDecision()
	if rule.Category == routes.Protected && !g.hasValidToken(r) {
		d = routes.RedirectTo(g.loginPath)
	}
	g.metrics.GateDecision("edge", rule.Category.String(), d.Kind.String())
	return d, true
}

func (g *Gate) hasValidToken(r *http.Request) bool {
	if g.verifier == nil {
		return false
	}
	token := middleware.TokenFromRequest(r)
	if token == "" {
		return false
	}
	_, err := g.verifier.ParseAccess(token)
	return err == nil
}

// Decide runs the pipeline for r without writing anything.
func (g *Gate) Decide(r *http.Request) routes.Decision {
	return g.pipeline.Evaluate(r)
}

// Middleware enforces the gate. A denied request gets a 307 to the login
// page with no body; the wrapped handler is not called.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)
		if d.IsRedirect() {
			w.Header().Set("Location", d.Location)
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package httpapi is the backend HTTP surface: the /api/auth endpoints,
// search, health and metrics. Every JSON response uses the
// {success, message?, ...} envelope.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/arena"
	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/internal/rate"
	"github.com/MrEthical07/arena/middleware"
	"github.com/MrEthical07/arena/search"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Auth is the part of arena.Engine the API serves.
type Auth interface {
	Login(ctx context.Context, req arena.LoginRequest) (*arena.AuthResult, error)
	Signup(ctx context.Context, req arena.SignupRequest) (*arena.AuthResult, error)
	GoogleAuth(ctx context.Context, credential string) (*arena.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Validate(ctx context.Context, token string) (*arena.Principal, error)
	CurrentUser(ctx context.Context, p *arena.Principal) (*arena.User, error)
	CompleteOnboardingFor(ctx context.Context, p *arena.Principal, data arena.OnboardingData) (*arena.OnboardingResult, error)
	IssueSessionFor(ctx context.Context, caller *arena.Principal, userID string) (string, error)
	ListSessions(ctx context.Context, p *arena.Principal) ([]arena.SessionInfo, error)
	RevokeAllSessions(ctx context.Context, caller *arena.Principal, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Health(ctx context.Context) arena.HealthStatus
}

type Options struct {
	Auth     Auth
	Searcher search.Searcher
	// Window limits requests per client IP under /api. Nil disables it.
	Window  *rate.Window
	Metrics *metrics.Registry
	Logger  *slog.Logger

	SearchLimit   int
	CookieDomain  string
	SecureCookies bool
	// Development adds raw error text to 5xx responses.
	Development bool
	// DatabasePing is reported by /healthz when set.
	DatabasePing func(ctx context.Context) error
}

type Server struct {
	auth         Auth
	searcher     search.Searcher
	window       *rate.Window
	metrics      *metrics.Registry
	logger       *slog.Logger
	searchLimit  int
	cookieDomain string
	secure       bool
	development  bool
	dbPing       func(ctx context.Context) error
}

func New(opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, errors.New("httpapi: auth is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		auth:         opts.Auth,
		searcher:     opts.Searcher,
		window:       opts.Window,
		metrics:      opts.Metrics,
		logger:       logger.With(slog.String("component", "api")),
		searchLimit:  opts.SearchLimit,
		cookieDomain: opts.CookieDomain,
		secure:       opts.SecureCookies,
		development:  opts.Development,
		dbPing:       opts.DatabasePing,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.metrics.Middleware("api"))
	r.Use(middleware.ClientMeta)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{"success": false, "message": "Method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	guard := middleware.Guard(s.auth, s.deny)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/signup", s.handleSignup)
			r.Post("/logout", s.handleLogout)
			r.Post("/google", s.handleGoogle)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/validate-reset-token", s.handleValidateResetToken)
			r.Post("/reset-password", s.handleResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(guard)
				r.Get("/me", s.handleMe)
				r.Post("/complete-onboarding", s.handleCompleteOnboarding)
				r.Get("/session-token/{userId}", s.handleSessionToken)
				r.Get("/sessions", s.handleListSessions)
				r.Post("/logout-all", s.handleLogoutAll)
			})
		})

		r.Get("/search", s.handleSearch)

		r.Route("/admin", func(r chi.Router) {
			r.Use(guard)
			r.Use(middleware.RequireRole(arena.RoleAdmin, s.deny))
			r.Delete("/users/{userId}/sessions", s.handleRevokeUserSessions)
		})
	})

	return r
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	h := s.auth.Health(ctx)
	body := envelope{
		"redis": envelope{
			"available": h.RedisAvailable,
			"latencyMs": h.RedisLatency.Milliseconds(),
		},
	}
	ok := h.RedisAvailable
	if s.dbPing != nil {
		dbErr := s.dbPing(ctx)
		body["database"] = envelope{"available": dbErr == nil}
		ok = ok && dbErr == nil
	}
	body["success"] = ok

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

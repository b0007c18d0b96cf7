// Package web is the page-serving frontend. Every page request passes the
// edge gate first and then the redirect controller, which makes the one
// authoritative session lookup before anything is rendered. A few /api
// routes are proxied to the backend.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/MrEthical07/arena/gate"
	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/middleware"
	"github.com/MrEthical07/arena/proxy"
	"github.com/MrEthical07/arena/redirect"
	"github.com/MrEthical07/arena/routes"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Options struct {
	Gate       *gate.Gate
	Controller *redirect.Controller
	Proxy      *proxy.Proxy
	Metrics    *metrics.Registry
	Logger     *slog.Logger
	// NavigationTimeout bounds the session lookup of one navigation.
	NavigationTimeout time.Duration
}

type Server struct {
	gate       *gate.Gate
	controller *redirect.Controller
	proxy      *proxy.Proxy
	metrics    *metrics.Registry
	logger     *slog.Logger
	navTimeout time.Duration
}

func New(opts Options) (*Server, error) {
	if opts.Gate == nil || opts.Controller == nil || opts.Proxy == nil {
		return nil, errors.New("web: gate, controller and proxy are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.NavigationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Server{
		gate:       opts.Gate,
		controller: opts.Controller,
		proxy:      opts.Proxy,
		metrics:    opts.Metrics,
		logger:     logger.With(slog.String("component", "web")),
		navTimeout: timeout,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.metrics.Middleware("web"))
	r.Use(s.gate.Middleware)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Post("/api/auth/login", s.proxy.Forward("login").ServeHTTP)
	r.Post("/api/auth/complete-onboarding", s.proxy.Forward("complete_onboarding").ServeHTTP)
	r.Get("/api/search", s.proxy.Search().ServeHTTP)
	r.Get("/api/navigation", s.handleNavigation)

	r.Get("/*", s.handlePage)
	return r
}

type pageData struct {
	Title    string
	Path     string
	Category string
	Session  redirect.Resolution
}

func (s *Server) navigate(r *http.Request, path string) (routes.Decision, redirect.Resolution) {
	ctx, cancel := context.WithTimeout(r.Context(), s.navTimeout)
	defer cancel()
	return s.controller.Navigate(ctx, middleware.TokenFromRequest(r), path)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	path := routes.Normalize(r.URL.Path)
	d, res := s.navigate(r, path)

	w.Header().Set("Cache-Control", "no-store")
	// Navigate returns only after the session lookup, so Wait never reaches
	// a page handler.
	if d.IsRedirect() {
		http.Redirect(w, r, d.Location, http.StatusFound)
		return
	}

	s.render(w, "page.html", pageData{
		Title:    titleFor(path),
		Path:     path,
		Category: s.controller.Table().Category(path).String(),
		Session:  res,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page", slog.String("template", name), slog.String("error", err.Error()))
	}
}

type navigationResponse struct {
	Path     string              `json:"path"`
	Category string              `json:"category"`
	Decision routes.Decision     `json:"decision"`
	Session  redirect.Resolution `json:"session"`
}

// handleNavigation lets browser-side routing ask for the controller's
// decision on a path without loading the page.
func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	path := routes.Normalize(r.URL.Query().Get("path"))
	d, res := s.navigate(r, path)
	res.UserID = ""

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(navigationResponse{
		Path:     path,
		Category: s.controller.Table().Category(path).String(),
		Decision: d,
		Session:  res,
	})
}

func titleFor(path string) string {
	if path == "/" {
		return "Home"
	}
	seg := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	words := strings.Fields(strings.ReplaceAll(seg, "-", " "))
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(first)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Package proxy forwards a few frontend API routes to the backend and
// returns the backend's status and body unchanged. When the backend cannot
// be reached or answers with something that is not JSON, the client gets a
// generic 500 instead.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/search"
)

const (
	maxRequestBytes  = 1 << 20
	maxResponseBytes = 4 << 20
	internalError    = "Internal server error"
)

var errNotJSON = errors.New("backend response is not JSON")

// forwardedRequestHeaders are copied from the client request.
var forwardedRequestHeaders = []string{"Content-Type", "Accept", "Cookie", "Authorization", "User-Agent"}

type Proxy struct {
	backend *url.URL
	client  *http.Client
	metrics *metrics.Registry
	logger  *slog.Logger
}

type Option func(*Proxy)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Proxy) { p.metrics = reg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(backendURL string, opts ...Option) (*Proxy, error) {
	u, err := url.Parse(strings.TrimRight(backendURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy: invalid backend url %q", backendURL)
	}
	p := &Proxy{
		backend: u,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type searchFailure struct {
	failure
	*search.Results
}

// Forward returns a handler that sends the request to the same path on the
// backend. route labels metrics and logs.
func (p *Proxy) Forward(route string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			p.fail(w, route, err, nil)
			return
		}
		resp, err := p.roundTrip(r.Context(), r.Method, r.URL.Path, nil, r.Header, body)
		if err != nil {
			p.fail(w, route, err, nil)
			return
		}
		resp.write(w)
	})
}

// Search handles GET /api/search. A blank q is answered locally with empty
// lists; failures are answered with empty lists as well.
func (p *Proxy) Search() http.Handler {
	const route = "search"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.TrimSpace(q) == "" {
			writeJSON(w, http.StatusOK, search.Empty())
			return
		}

		query := url.Values{"q": {q}}
		resp, err := p.roundTrip(r.Context(), http.MethodGet, "/api/search", query, r.Header, nil)
		if err != nil {
			p.fail(w, route, err, search.Empty())
			return
		}
		resp.write(w)
	})
}

type upstreamResponse struct {
	status  int
	header  http.Header
	body    []byte
	cookies []string
}

func (u *upstreamResponse) write(w http.ResponseWriter) {
	for _, c := range u.cookies {
		w.Header().Add("Set-Cookie", c)
	}
	ct := u.header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(u.status)
	_, _ = w.Write(u.body)
}

func (p *Proxy) roundTrip(ctx context.Context, method, path string, query url.Values, in http.Header, body []byte) (*upstreamResponse, error) {
	target := *p.backend
	target.Path = strings.TrimRight(p.backend.Path, "/") + path
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for _, h := range forwardedRequestHeaders {
		if v := in.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: status %d", errNotJSON, resp.StatusCode)
	}

	return &upstreamResponse{
		status:  resp.StatusCode,
		header:  resp.Header,
		body:    data,
		cookies: resp.Header.Values("Set-Cookie"),
	}, nil
}

func (p *Proxy) fail(w http.ResponseWriter, route string, err error, empty *search.Results) {
	p.metrics.ProxyFailure(route)
	p.logger.Error("proxy upstream failure",
		slog.String("route", route),
		slog.String("error", err.Error()),
	)

	f := failure{Success: false, Message: internalError, Status: http.StatusInternalServerError}
	if empty != nil {
		writeJSON(w, http.StatusInternalServerError, searchFailure{failure: f, Results: empty})
		return
	}
	writeJSON(w, http.StatusInternalServerError, f)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package redirect

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/routes"
)

// SessionFetcher asks the backend for the authoritative state behind a
// session token.
type SessionFetcher interface {
	FetchSession(ctx context.Context, token string) (Resolution, error)
}

// Controller runs Decide after resolving the session with one fetch. It
// never returns an error: any fetch failure resolves to unauthenticated.
type Controller struct {
	table   *routes.Table
	fetcher SessionFetcher
	policy  Policy
	metrics *metrics.Registry
	logger  *slog.Logger
}

type Option func(*Controller)

func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Controller) { c.metrics = reg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewController(table *routes.Table, fetcher SessionFetcher, policy Policy, opts ...Option) *Controller {
	c := &Controller{
		table:   table,
		fetcher: fetcher,
		policy:  policy.withDefaults(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Table() *routes.Table { return c.table }

// Resolve fetches the session behind token. An empty token resolves to
// unauthenticated without a fetch.
func (c *Controller) Resolve(ctx context.Context, token string) Resolution {
	if token == "" || c.fetcher == nil {
		return Unauthenticated()
	}
	res, err := c.fetcher.FetchSession(ctx, token)
	if err != nil {
		c.logger.Debug("session fetch failed, treating as signed out", slog.String("error", err.Error()))
		return Unauthenticated()
	}
	res.Pending = false
	return res
}

// Navigate resolves the session and decides on path.
func (c *Controller) Navigate(ctx context.Context, token, path string) (routes.Decision, Resolution) {
	res := c.Resolve(ctx, token)
	return c.Decide(res, path), res
}

// Decide classifies path through the shared table and applies the policy.
func (c *Controller) Decide(res Resolution, path string) routes.Decision {
	rule := c.table.Classify(path)
	d := Decide(res, rule, path, c.policy)
	c.metrics.GateDecision("client", rule.Category.String(), d.Kind.String())
	return d
}

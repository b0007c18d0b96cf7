package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/arena/gate"
	"github.com/MrEthical07/arena/internal/config"
	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/jwt"
	"github.com/MrEthical07/arena/proxy"
	"github.com/MrEthical07/arena/redirect"
	"github.com/MrEthical07/arena/routes"
	"github.com/MrEthical07/arena/web"
	"github.com/spf13/cobra"
)

func webCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Run the page server with the edge gate and API proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWeb(ctx, cfg, logger)
		},
	}
}

func runWeb(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	secret, err := requireSecret(cfg)
	if err != nil {
		return err
	}

	table := routes.Default()
	if cfg.Web.RoutesFile != "" {
		if table, err = routes.LoadFile(cfg.Web.RoutesFile); err != nil {
			return err
		}
	}

	verifier, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.Auth.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        cfg.Auth.Issuer,
		Leeway:        30 * time.Second,
	})
	if err != nil {
		return err
	}

	reg := metrics.New()
	client := &http.Client{Timeout: cfg.Web.UpstreamTimeout}

	policy := redirect.DefaultPolicy()
	policy.RequireOnboarding = cfg.Web.RequireOnboarding

	p, err := proxy.New(cfg.Web.BackendURL,
		proxy.WithHTTPClient(client),
		proxy.WithMetrics(reg),
		proxy.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	site, err := web.New(web.Options{
		Gate: gate.New(table, verifier, gate.WithMetrics(reg)),
		Controller: redirect.NewController(table,
			redirect.NewHTTPFetcher(cfg.Web.BackendURL, client),
			policy,
			redirect.WithMetrics(reg),
			redirect.WithLogger(logger),
		),
		Proxy:             p,
		Metrics:           reg,
		Logger:            logger,
		NavigationTimeout: cfg.Web.UpstreamTimeout,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/", site.Handler())

	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return serve(ctx, srv, logger.With(slog.String("server", "web")))
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/arena"
	"github.com/MrEthical07/arena/httpapi"
	"github.com/MrEthical07/arena/internal/config"
	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/internal/rate"
	"github.com/MrEthical07/arena/mail"
	"github.com/MrEthical07/arena/oauth"
	"github.com/MrEthical07/arena/search"
	"github.com/MrEthical07/arena/store"
	"github.com/spf13/cobra"
)

func apiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the authentication API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runAPI(ctx, cfg, logger)
		},
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	secret, err := requireSecret(cfg)
	if err != nil {
		return err
	}

	redisLazy := redisResource(cfg.Redis.URL)
	defer redisLazy.Close()
	rdb, err := redisLazy.Get(ctx)
	if err != nil {
		return err
	}

	var (
		users    arena.UserStore
		searcher search.Searcher
		dbPing   func(ctx context.Context) error
	)
	if cfg.Database.URL != "" {
		poolLazy := poolResource(cfg.Database)
		defer poolLazy.Close()
		pool, err := poolLazy.Get(ctx)
		if err != nil {
			return err
		}
		if err := store.Migrate(ctx, pool); err != nil {
			return err
		}
		users = store.NewPostgres(pool)
		searcher = search.NewPostgres(pool)
		dbPing = pool.Ping
		logger.Info("using postgres user store")
	} else {
		if cfg.IsProduction() {
			return errors.New("DATABASE_URL is required in production")
		}
		mem := store.NewMemory()
		users = mem
		searcher = search.NewMemory(nil, nil, func() []search.User {
			all := mem.Users()
			out := make([]search.User, 0, len(all))
			for _, u := range all {
				out = append(out, search.User{ID: u.ID, Username: u.Username, Name: u.Name})
			}
			return out
		})
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
	}
	if cfg.Search.CacheTTL > 0 {
		searcher = search.NewCache(rdb, searcher, cfg.Search.CacheTTL, logger)
	}

	var mailer arena.Mailer
	if smtpMailer, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}); err == nil {
		mailer = smtpMailer
	} else if errors.Is(err, mail.ErrNotConfigured) {
		mailer = mail.NewLog(logger)
	} else {
		return err
	}

	reg := metrics.New()

	builder := arena.New().
		WithConfig(engineConfig(cfg, secret)).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer).
		WithAuditSink(arena.NewSlogSink(logger)).
		WithMetrics(reg).
		WithLogger(logger)
	if cfg.Auth.GoogleClientID != "" {
		verifier, err := oauth.NewGoogleVerifier(cfg.Auth.GoogleClientID)
		if err != nil {
			return err
		}
		builder = builder.WithIdentityVerifier(verifier)
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	var window *rate.Window
	if cfg.API.RateLimitPerMinute > 0 {
		window = rate.NewWindow(rdb, "arl", cfg.API.RateLimitPerMinute, time.Minute)
	}

	api, err := httpapi.New(httpapi.Options{
		Auth:          engine,
		Searcher:      searcher,
		Window:        window,
		Metrics:       reg,
		Logger:        logger,
		SearchLimit:   cfg.Search.Limit,
		CookieDomain:  cfg.API.CookieDomain,
		SecureCookies: cfg.IsProduction(),
		Development:   cfg.IsDevelopment(),
		DatabasePing:  dbPing,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return serve(ctx, srv, logger.With(slog.String("server", "api")))
}

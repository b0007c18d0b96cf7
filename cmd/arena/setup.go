package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/arena"
	"github.com/MrEthical07/arena/internal/config"
	"github.com/MrEthical07/arena/internal/resource"
	"github.com/MrEthical07/arena/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func loadConfig(flags *rootFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(cfg.Log.Format)
	if format == "json" || (format == "" && cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func redisResource(url string) *resource.Lazy[*redis.Client] {
	return resource.NewLazy(func(ctx context.Context) (*redis.Client, error) {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return client, nil
	}, func(c *redis.Client) error { return c.Close() })
}

func poolResource(cfg config.DatabaseConfig) *resource.Lazy[*pgxpool.Pool] {
	return resource.NewLazy(func(ctx context.Context) (*pgxpool.Pool, error) {
		return store.OpenPool(ctx, cfg.URL, cfg.MaxConns)
	}, func(p *pgxpool.Pool) error {
		p.Close()
		return nil
	})
}

func engineConfig(cfg *config.Config, secret []byte) arena.Config {
	out := arena.DefaultConfig()
	out.JWT.PrivateKey = secret
	out.JWT.AccessTTL = cfg.Auth.TokenTTL
	out.JWT.Issuer = cfg.Auth.Issuer
	out.PasswordReset.ResetTTL = cfg.Auth.ResetTTL
	out.PasswordReset.LinkBase = cfg.Auth.FrontendURL
	out.Google.ClientID = cfg.Auth.GoogleClientID
	return out
}

func requireSecret(cfg *config.Config) ([]byte, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return []byte(cfg.Auth.JWTSecret), nil
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

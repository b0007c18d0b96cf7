package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrEthical07/arena"
	"github.com/MrEthical07/arena/store"
	"github.com/spf13/cobra"
)

func promoteCmd(flags *rootFlags) *cobra.Command {
	var (
		email string
		role  string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of an existing account and sign it out everywhere",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is required")
			}
			secret, err := requireSecret(cfg)
			if err != nil {
				return err
			}
			target := arena.Role(strings.ToUpper(strings.TrimSpace(role)))
			if !target.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			ctx := cmd.Context()
			poolLazy := poolResource(cfg.Database)
			defer poolLazy.Close()
			pool, err := poolLazy.Get(ctx)
			if err != nil {
				return err
			}
			redisLazy := redisResource(cfg.Redis.URL)
			defer redisLazy.Close()
			rdb, err := redisLazy.Get(ctx)
			if err != nil {
				return err
			}

			users := store.NewPostgres(pool)
			engine, err := arena.New().
				WithConfig(engineConfig(cfg, secret)).
				WithRedis(rdb).
				WithUserStore(users).
				WithAuditSink(arena.NewSlogSink(logger)).
				WithLogger(logger).
				Build()
			if err != nil {
				return err
			}
			defer engine.Close()

			u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return fmt.Errorf("look up %s: %w", email, err)
			}
			if err := engine.SetRole(ctx, u.ID, target); err != nil {
				return err
			}
			logger.Info("role updated", slog.String("user_id", u.ID), slog.String("role", string(target)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s; existing sessions were revoked\n", u.Email, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the account")
	cmd.Flags().StringVar(&role, "role", string(arena.RoleAdmin), "Role to assign (USER or ADMIN)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

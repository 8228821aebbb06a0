// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/driftboard/driftboard/internal/auth"
	authpg "github.com/driftboard/driftboard/internal/auth/postgres"
	authredis "github.com/driftboard/driftboard/internal/auth/redis"
	"github.com/driftboard/driftboard/internal/config"
	"github.com/driftboard/driftboard/internal/httpapi"
	"github.com/driftboard/driftboard/internal/logging"
	"github.com/driftboard/driftboard/internal/mail"
	"github.com/driftboard/driftboard/internal/observability"
	"github.com/driftboard/driftboard/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Driftboard API server",
		Long: `Start the Driftboard API server, which exposes the account,
session, and password-reset endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().AddFlagSet(config.Flags())

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("driftboard", version, cfg.Log.Format)

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPostgresPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("connected to database")

	redisClient, err := store.NewRedisClient(ctx, store.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck // shutdown path
	slog.Info("connected to redis", "addr", cfg.Redis.Addr)

	var sender auth.Mailer
	if cfg.Mail.Token != "" {
		sender = mail.NewClient(cfg.Mail.Token, cfg.Mail.From, cfg.Mail.APIURL)
	} else {
		sender = mail.NewLogSender(slog.Default())
		slog.Warn("no mail token configured, reset mails will be logged only")
	}

	svc, err := auth.NewService(
		authpg.NewUserRepository(pool),
		authredis.NewSessionStore(redisClient),
		authredis.NewTokenStore(redisClient),
		auth.NewArgon2Hasher(),
		sender,
		auth.WithBaseURL(cfg.Server.BaseURL),
	)
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	var ready atomic.Bool
	var metrics *observability.Metrics
	var obs *observability.Server
	var obsErrCh <-chan error

	if cfg.Server.MetricsAddr != "" {
		obs = observability.NewServer(cfg.Server.MetricsAddr, ready.Load)
		obsErrCh, err = obs.Start()
		if err != nil {
			return err
		}
		metrics = obs.Metrics()
	}

	handler := httpapi.NewHandler(svc, cfg.Server.CookieName, cfg.Server.CookieSecure, metrics, slog.Default())
	api := httpapi.NewServer(cfg.Server.Addr, handler)
	apiErrCh, err := api.Start()
	if err != nil {
		return err
	}

	ready.Store(true)
	slog.Info("driftboard ready", "addr", api.Addr())

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err = <-apiErrCh:
		if err != nil {
			slog.Error("api server failed", "error", err)
		}
	case obsErr := <-obsErrCh:
		if obsErr != nil {
			slog.Error("observability server failed", "error", obsErr)
		}
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := api.Stop(shutdownCtx); stopErr != nil {
		slog.Error("api server shutdown failed", "error", stopErr)
	}
	if obs != nil {
		if stopErr := obs.Stop(shutdownCtx); stopErr != nil {
			slog.Error("observability server shutdown failed", "error", stopErr)
		}
	}

	return err
}

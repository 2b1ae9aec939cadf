// Copyright (c) 2026 The Buxxx23 order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Order desk web server
//
// Entry point for the supplier order form. It:
//  1. Loads configuration from .env, config.yaml and the environment
//  2. Connects to Redis and PostgreSQL when configured
//  3. Checks the configured Graph mailbox (non-fatal)
//  4. Serves the order form, PDF export and Graph dispatch
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Buxxx23/order/internal/auth"
	"github.com/Buxxx23/order/internal/config"
	"github.com/Buxxx23/order/internal/dedup"
	"github.com/Buxxx23/order/internal/dispatch"
	"github.com/Buxxx23/order/internal/drafts"
	"github.com/Buxxx23/order/internal/graph"
	"github.com/Buxxx23/order/internal/history"
	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/pdf"
	"github.com/Buxxx23/order/internal/web"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting order desk")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"graph_ready", cfg.Graph.Ready(),
		"folder", cfg.Graph.Folder,
		"recipients", len(cfg.Graph.Recipients),
		"redis", cfg.RedisURL != "",
		"postgres", cfg.DatabaseURL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []web.HealthCheck

	// --- Drafts and submission guard (Redis or memory) ---
	var draftStore drafts.Store = drafts.NewMemoryStore(cfg.DraftTTL)
	var guard dedup.Guard = dedup.NewMemory()
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		redisDrafts := drafts.NewRedisStore(rdb, cfg.DraftTTL)
		if err := redisDrafts.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis")

		draftStore = redisDrafts
		guard = dedup.NewFilter(rdb)
		checks = append(checks, web.HealthCheck{Name: "redis", Ping: redisDrafts.Ping})
	}

	// --- Dispatch history (Postgres or memory) ---
	var recorder interface {
		dispatch.Recorder
		web.HistoryReader
	} = history.NewMemory(100)
	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to PostgreSQL")

		store, err := history.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise history store", "error", err)
			os.Exit(1)
		}
		recorder = store
		checks = append(checks, web.HealthCheck{Name: "postgres", Ping: pgPool.Ping})
	}

	// --- Graph ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	tokens := auth.NewAcquirer(auth.Options{
		AuthorityHost: cfg.AuthorityHost,
		HTTPClient:    httpClient,
		DisableCache:  !cfg.TokenCache,
	})
	graphClient := graph.NewClient(httpClient, cfg.GraphBaseURL)

	preflight(ctx, tokens, graphClient, cfg.Graph)

	renderer := pdf.NewRenderer(pdf.Letterhead{
		Supplier: cfg.Order.Supplier,
		Notice:   cfg.Order.Notice,
	})

	runner := dispatch.NewRunner(dispatch.RunnerConfig{
		Tokens:   tokens,
		Uploader: graphClient,
		Mailer:   graphClient,
		Renderer: renderer,
		Recorder: recorder,
	})

	handler := web.NewHandler(web.HandlerConfig{
		Drafts:     draftStore,
		Guard:      guard,
		History:    recorder,
		Dispatcher: runner,
		Renderer:   renderer,
		Defaults: web.Defaults{
			Meta: models.OrderMeta{
				Company:          cfg.Order.Company,
				ContactPerson:    cfg.Order.ContactPerson,
				Phone:            cfg.Order.Phone,
				Email:            cfg.Order.Email,
				BillTo:           cfg.Order.BillTo,
				FooterLeft:       cfg.Order.FooterLeft,
				FooterRightExtra: cfg.Order.FooterRightExtra,
			},
			Graph:      cfg.Graph,
			AutoUpload: cfg.AutoUpload,
			AutoEmail:  cfg.AutoEmail,
		},
		Checks:        checks,
		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",
	})

	ready, done, err := web.Serve(ctx, cfg.Port, handler.Routes())
	if err != nil {
		slog.Error("failed to start web server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()

	<-done
	slog.Info("order desk stopped")
}

// preflight verifies the configured mailbox is reachable. Failures are
// logged only; users may still enter other credentials on the form.
func preflight(ctx context.Context, tokens *auth.Acquirer, client *graph.Client, settings models.GraphSettings) {
	if !settings.Ready() {
		slog.Info("graph settings incomplete, skipping preflight")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	token, err := tokens.Token(ctx, settings.Credentials)
	if err != nil {
		slog.Warn("graph preflight: token request failed", "error", err)
		return
	}
	user, err := client.LookupUser(ctx, token, settings.UserUPN)
	if err != nil {
		slog.Warn("graph preflight: mailbox lookup failed", "user", settings.UserUPN, "error", err)
		return
	}
	slog.Info("graph preflight ok",
		"user", user.UserPrincipalName,
		"mail", user.Mail,
		"display_name", user.DisplayName,
	)
}

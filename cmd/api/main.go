// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Tsundoku HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the library document (migrated on first load).
//  4. Connect to Redis when REDIS_URL is set.
//  5. Wire services and HTTP handlers.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/tsundoku/internal/api"
	"github.com/taibuivan/tsundoku/internal/collection"
	"github.com/taibuivan/tsundoku/internal/covers"
	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/config"
	"github.com/taibuivan/tsundoku/internal/platform/constants"
	redisstore "github.com/taibuivan/tsundoku/internal/platform/redis"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
	"github.com/taibuivan/tsundoku/internal/search"
	"github.com/taibuivan/tsundoku/internal/users/account"
	"github.com/taibuivan/tsundoku/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("data_file", cfg.DataFile),
	)

	// Root context for startup, bounded so a bad Redis URL fails fast.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Library document ───────────────────────────────────────────────
	repository := library.NewFileRepository(cfg.DataFile, library.Defaults{
		Password:     cfg.DefaultPassword,
		ComicVineKey: cfg.ComicVineAPIKey,
	}, log)
	_, err = repository.Load(startupCtx)
	must(log, err, "open library document")

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	rdb, err := redisstore.Connect(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	if rdb != nil {
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()
	}

	// ── 5. Domain wiring ──────────────────────────────────────────────────
	signer, err := sec.NewSessionSigner(cfg.SessionSecret, constants.SessionIssuer, cfg.SessionTTL)
	must(log, err, "initialize session signer")

	policy := auth.Policy{
		MaxAttempts:     cfg.LoginMaxAttempts,
		LockoutDuration: cfg.LoginLockout,
		AttemptWindow:   cfg.LoginWindow,
		Delays:          cfg.LoginDelays,
	}
	authService := auth.NewService(repository, policy, signer)
	accountService := account.NewService(repository)

	coverCache := covers.NewCache(cfg.CoversDir, nil, cfg.ImageFetchTimeout, log)
	coverService := covers.NewService(coverCache, repository, covers.DefaultProxyHosts, log)
	collectionService := collection.NewService(repository, coverCache, log)

	searchService := search.NewService(searchSources(accountService), search.NewScraper(nil), searchCache(rdb, cfg.SearchCacheTTL, log), log)

	liveness, readiness := api.NewHealthHandlers(healthDependencies(repository, rdb), log)

	handlers := api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Auth:       auth.NewHandler(authService, cfg.IsProduction()),
		Account:    account.NewHandler(accountService),
		Collection: collection.NewHandler(collectionService),
		Covers:     covers.NewHandler(coverService),
		Search:     search.NewHandler(searchService),
	}

	// ── 6. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, signer, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("server_shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// searchSources registers the catalogs in the order the UI lists them.
func searchSources(accountService *account.Service) []search.Source {
	client := search.NewHTTPClient(10 * time.Second)
	return []search.Source{
		search.NewGoogleBooks("", client),
		search.NewOpenLibrary("", client),
		search.NewComicVine("", accountService.ComicVineKey, client),
		search.NewMangaDex("", client),
	}
}

// searchCache returns nil, meaning no cache, when Redis is disabled.
func searchCache(rdb *goredis.Client, ttl time.Duration, log *slog.Logger) search.Cache {
	if rdb == nil {
		return nil
	}
	return search.NewRedisCache(rdb, ttl, log)
}

func healthDependencies(repository *library.FileRepository, rdb *goredis.Client) api.HealthDependencies {
	dependencies := api.HealthDependencies{
		CheckLibrary: func(ctx context.Context) error {
			_, err := repository.Load(ctx)
			return err
		},
	}
	if rdb != nil {
		dependencies.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	}
	return dependencies
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

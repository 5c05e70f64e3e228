// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/lingoclone-go/internal/cache"
	"github.com/olegiv/lingoclone-go/internal/cms"
	"github.com/olegiv/lingoclone-go/internal/config"
	"github.com/olegiv/lingoclone-go/internal/engine"
	"github.com/olegiv/lingoclone-go/internal/handler"
	"github.com/olegiv/lingoclone-go/internal/middleware"
	"github.com/olegiv/lingoclone-go/internal/policy"
	"github.com/olegiv/lingoclone-go/internal/refresh"
	"github.com/olegiv/lingoclone-go/internal/reftree"
	"github.com/olegiv/lingoclone-go/internal/store"
	"github.com/olegiv/lingoclone-go/internal/translator"
	"github.com/olegiv/lingoclone-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "LingoClone - CMS entry cloning and incremental translation\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CMS_MANAGEMENT_TOKEN   CMS Management API token (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATOR_API_KEY     Machine translation API key (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATOR_PROVIDER    Translation provider: deepl|openai (default: deepl)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORT                   Server port (default: 3001)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CMS_SPACE_ID           Default space id\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CMS_ENVIRONMENT_ID     Default environment id (default: master)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRACKING_DIR           Fallback store directory (default: ./data/tracking)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REDIS_URL              Redis URL for shared caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REFRESH_CRON           Snapshot refresh schedule (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// CMS client scoped to the configured space/environment
	cmsClient := cms.NewClient(cms.Options{
		BaseURL:       cfg.CMSBaseURL,
		Token:         cfg.CMSManagementToken,
		SpaceID:       cfg.SpaceID,
		EnvironmentID: cfg.EnvironmentID,
		Logger:        logger,
	})

	// Machine translation provider
	var trans translator.Translator
	switch cfg.TranslatorProvider {
	case config.ProviderOpenAI:
		trans = translator.NewOpenAI(cfg.TranslatorAPIKey)
	default:
		trans = translator.NewDeepL(cfg.TranslatorAPIKey)
	}
	slog.Info("translator initialized", "provider", trans.Name())

	// Relationship store: CMS primary, file fallback
	fileStore, err := store.NewFileStore(cfg.TrackingDir, logger)
	if err != nil {
		return fmt.Errorf("initializing file store: %w", err)
	}
	cmsStore := store.NewCMSStore(cmsClient, cfg.MetadataType, cfg.StorageLocale, logger)
	relStore := store.NewComposite(cmsStore, fileStore, logger)
	slog.Info("relationship store initialized",
		"primary", store.BackendCMS,
		"fallback_dir", cfg.TrackingDir)

	// Policies, tracker and engine
	pol := policy.DefaultPolicy()
	tracker := reftree.New(cmsClient, pol, reftree.Config{
		MaxDepth:             cfg.MaxReferenceDepth,
		AutoTranslateNewRefs: true,
	}, logger)
	eng := engine.New(engine.Options{
		CMS:             cmsClient,
		Translator:      trans,
		Store:           relStore,
		Tracker:         tracker,
		Policy:          pol,
		StorageLocale:   cfg.StorageLocale,
		RootContentType: cfg.RootContentType,
		Logger:          logger,
	})

	// Cache for translator metadata
	metaCache := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
	}, logger)
	defer func() {
		if err := metaCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	// Optional background snapshot refresher
	refresher := refresh.New(cfg.RefreshCron, relStore, eng, logger)
	if err := refresher.Start(); err != nil {
		return fmt.Errorf("starting refresher: %w", err)
	}
	defer refresher.Stop()

	h := handler.New(handler.Options{
		Engine:     eng,
		Translator: trans,
		Store:      relStore,
		Cache:      metaCache,
		Config:     cfg,
		Logger:     logger,
		Version:    versionInfo,
	})

	// Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	rateLimiter := middleware.NewRateLimiter(10, 20)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.Middleware())

		r.Get("/deepl/status", h.DeepLStatus)

		// Clone and update calls traverse reference graphs and may issue
		// many CMS and translator round trips.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(120 * time.Second))
			r.Post("/clone", h.Clone)
			r.Post("/incremental/update", h.IncrementalUpdate)
		})

		r.Get("/incremental/status", h.IncrementalStatus)
		r.Get("/incremental/relationships/{entryId}", h.Relationships)
		r.Get("/incremental/backups/{entryId}", h.Backups)
		r.Get("/incremental/deep-references/{sourceId}/{targetId}", h.DeepReferences)
		r.Post("/incremental/deep-references/{sourceId}/{targetId}", h.RebuildDeepReferences)
		r.Post("/incremental/deep-references/{sourceId}/{targetId}/rebuild", h.RebuildDeepReferences)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      150 * time.Second, // clone requests can run long
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

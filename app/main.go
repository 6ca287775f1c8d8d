package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/api"
	"github.com/Fuyucch1/Vinted-Notifications/app/cache"
	"github.com/Fuyucch1/Vinted-Notifications/app/cfg"
	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
	"github.com/Fuyucch1/Vinted-Notifications/app/sinks"
	"github.com/Fuyucch1/Vinted-Notifications/app/tasks"
	"github.com/Fuyucch1/Vinted-Notifications/app/vinted"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Vinted Notifications", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	searchRepo := database.NewSearchRepository(db)
	itemRepo := database.NewItemRepository(db)
	settingRepo := database.NewSettingRepository(db)
	allowlistRepo := database.NewAllowlistRepository(db)

	// Country lookups are cached in Redis when available, in process
	// otherwise.
	var lookupCache cache.Cache
	if appCfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(appCfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		lookupCache = redisCache
	} else {
		lookupCache = cache.NewMemoryCache()
	}
	defer lookupCache.Close()

	requester, err := vinted.NewRequester(appCfg.ProxyURL)
	if err != nil {
		slog.Error("Failed to create requester", "error", err)
		os.Exit(1)
	}
	fetcher := vinted.NewClient(requester)
	countries := vinted.NewCountryLookup(requester, lookupCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan pipeline.Notification, 100)
	stage := pipeline.NewStage(searchRepo, itemRepo, settingRepo, allowlistRepo, countries, events)
	dispatcher := pipeline.NewDispatcher(events)

	telegramSink := sinks.NewTelegramSink(settingRepo)
	rssSink := sinks.NewRSSSink(settingRepo, appCfg.BaseUrl, appCfg.Version)

	managed := []tasks.ManagedSink{
		{
			Sink:         telegramSink,
			EnableKey:    "telegram_enabled",
			RequiredKeys: []string{"telegram_token", "telegram_chat_id"},
		},
		{
			Sink:      rssSink,
			EnableKey: "rss_enabled",
		},
	}

	go stage.Run(ctx)
	go dispatcher.Run(ctx)
	go telegramSink.Run(ctx)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(searchRepo, itemRepo, settingRepo, fetcher, stage, dispatcher, managed)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(searchRepo, itemRepo, settingRepo, allowlistRepo, dispatcher, rssSink)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Vinted Notifications started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Stops the stage, dispatcher, and sink loops; the scheduler is
	// stopped via defer.
	cancel()

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

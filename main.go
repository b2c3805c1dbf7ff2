package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-journal/config"
	"trade-journal/internal/api"
	"trade-journal/journal"
	"trade-journal/observability"
	"trade-journal/repository"
	"trade-journal/services"

	"github.com/joho/godotenv"
)

func main() {
	syncOnce := flag.Bool("sync", false, "run one synchronization pass and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		observability.Info("no .env file found, using environment variables")
	}

	production := os.Getenv("ENV") == "production"
	observability.InitLogger(production)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		observability.Fatal("failed to open position store", "error", err)
	}
	defer store.Close()
	observability.Info("position store ready", "driver", cfg.Database.Driver)

	var syncer *journal.Syncer
	if cfg.HasBroker() {
		broker := services.NewInvestAPIService(cfg.Broker.Token, cfg.Broker.BaseURL)
		syncer = journal.NewSyncer(store, broker, broker, broker, cfg, observability.GetMetrics())
	} else {
		observability.Warn("no broker token configured, journal is read-only")
	}

	if *syncOnce {
		if syncer == nil {
			observability.Fatal("cannot sync without a broker token")
		}
		syncCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Sync.TimeoutSeconds)*time.Second)
		defer cancel()

		count, err := syncer.Sync(syncCtx)
		if err != nil {
			observability.Fatal("synchronization failed", "error", err)
		}
		observability.Info("synchronization complete", "new_operations", count)
		return
	}

	handler := api.NewHandler(store, syncer, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.Sync.TimeoutSeconds) * time.Second,
	}

	go func() {
		observability.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("server stopped")
}

// openStore selects a store backend from the configured driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Database.Driver == "postgres" {
		return repository.NewRepository(ctx, cfg.Database.URL)
	}
	return repository.NewSQLiteStore(cfg.Database.Path)
}

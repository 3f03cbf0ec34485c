package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/contre95/muscat/src/features/config"
	"github.com/contre95/muscat/src/features/library"
	"github.com/contre95/muscat/src/features/logging"
	"github.com/contre95/muscat/src/features/metrics"
	"github.com/contre95/muscat/src/features/playlists"
	"github.com/contre95/muscat/src/infra/database"
	"github.com/contre95/muscat/src/infra/memory"
	"github.com/contre95/muscat/src/infra/watcher"
	"github.com/contre95/muscat/src/music"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger, logCloser := logging.SetupLogger(cfgManager)
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Open the catalog
	catalog, err := openCatalog(ctx, cfgManager.Get().Database, cfgManager.CatalogOptions())
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer catalog.Close()

	catalogID, err := catalog.CatalogID(ctx)
	if err != nil {
		log.Fatalf("failed to read catalog id: %v", err)
	}
	slog.Info("Catalog opened", "id", catalogID, "driver", cfgManager.Get().Database.Driver, "path", cfgManager.Get().Database.Path)

	recorder := metrics.NewRecorder()
	metricsService := metrics.NewService(catalog, recorder)
	libraryService := library.NewService(catalog, cfgManager, recorder)
	playlistService := playlists.NewService(catalog, recorder)

	// Register the configured library roots
	libs, err := libraryService.EnsureLibraries(ctx, cfgManager.Get().Libraries)
	if err != nil {
		log.Fatalf("failed to register libraries: %v", err)
	}

	stats, err := metricsService.Refresh(ctx)
	if err != nil {
		slog.Warn("Failed to compute catalog stats", "error", err)
	} else {
		slog.Info("Catalog ready", "summary", stats.Summary())
	}

	// Start the watcher on the library roots if enabled
	if cfgManager.Get().Watcher.Enabled && len(libs) > 0 {
		events := make(chan watcher.FileEvent, 64)
		w, err := watcher.NewWatcher(events, cfgManager.Get().Watcher.Extensions, watcher.DefaultDebounce)
		if err != nil {
			log.Fatalf("failed to create watcher: %v", err)
		}
		roots := make([]string, len(libs))
		for i, lib := range libs {
			roots[i] = lib.Path
		}
		if err := w.Start(ctx, roots...); err != nil {
			slog.Error("Failed to start watcher", "error", err)
		} else {
			defer w.Stop()
			go libraryService.Watch(ctx, events)
		}
	}

	// Serve metrics if enabled
	if cfgManager.Get().Metrics.Enabled {
		go func() {
			if err := metricsService.Serve(ctx, cfgManager.Get().Metrics.Address); err != nil {
				slog.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	slog.Info("Muscat started. Press Ctrl+C to shut down.")
	<-ctx.Done()
	slog.Info("Shutting down...")

	// Export playlists before the catalog closes
	if dir := cfgManager.Get().Playlists.ExportDir; dir != "" {
		exportCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := playlistService.ExportAll(exportCtx, dir); err != nil {
			slog.Error("Failed to export playlists", "dir", dir, "error", err)
		}
	}
}

// openCatalog opens the catalog adapter selected by the database config.
func openCatalog(ctx context.Context, db config.Database, opts music.Options) (music.Catalog, error) {
	switch db.Driver {
	case "memory":
		return memory.NewCatalog(opts), nil
	case database.DriverCgo, database.DriverPureGo:
		return database.NewSqliteCatalog(ctx, db.Driver, db.Path, opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

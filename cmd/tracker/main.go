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

	"tasktracker/internal/config"
	"tasktracker/internal/logger"
	"tasktracker/internal/server"
	"tasktracker/internal/service"
	"tasktracker/internal/storage"
	"tasktracker/internal/storage/memory"
	"tasktracker/internal/storage/relational"
	"tasktracker/internal/util"
)

func main() {
	configFlag := flag.String("config", util.EnvOrDefault("TRACKER_CONFIG", ""), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := openStore(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("unable to open storage", slog.String("backend", cfg.Storage.Backend), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Storage.SeedDemo {
		if err := storage.SeedDemo(context.Background(), store, cfg.Storage.OwnerUserID, time.Now()); err != nil {
			log.Error("demo seed failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	tracker := service.New(store,
		service.WithOwner(cfg.Storage.OwnerUserID),
		service.WithLogger(log),
		service.WithRevalidator(service.LogRevalidator{Logger: log}),
	)
	srv := server.New(tracker, log, server.Options{
		StaticDir:   cfg.Server.StaticDir,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("backend", cfg.Storage.Backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
}

// openStore picks the backend once at startup.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		dsn, err := relational.SQLiteDSN(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return relational.Open(ctx, relational.SQLite, dsn, relational.Pool{}, relational.WithLogger(log))
	case config.BackendMySQL:
		db := cfg.Database
		dsn := relational.MySQLConfig(db.Host, db.Port, db.User, db.Password, db.Name).FormatDSN()
		return relational.Open(ctx, relational.MySQL, dsn, relational.Pool{Min: db.PoolMin, Max: db.PoolMax}, relational.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

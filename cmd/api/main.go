package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"person-registry/internal/adapters/storage/postgres"
	"person-registry/internal/platform/config"
	"person-registry/internal/platform/logger"
	"person-registry/internal/router"
)

func main() {
	if err := config.Init(os.Getenv("APP_ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})

	var db *sql.DB
	if dsn := cfg.Database.ConnectionString(); dsn != "" {
		db, err = postgres.Open(dsn)
		if err != nil {
			log.Error("postgres unavailable", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.Migrate(db); err != nil {
			log.Error("migrations failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		log.Info("using postgres storage", nil)
	} else {
		log.Info("no database configured, using in-memory storage", nil)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.NewRouter(router.Options{DB: db, Log: log}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

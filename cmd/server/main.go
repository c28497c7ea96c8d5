package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emmetthe/interactive-db/api"
	"github.com/emmetthe/interactive-db/api/handlers"
	"github.com/emmetthe/interactive-db/internal/config"
	"github.com/emmetthe/interactive-db/internal/db"
	"github.com/emmetthe/interactive-db/internal/logger"
	"github.com/emmetthe/interactive-db/internal/repository"
	"github.com/emmetthe/interactive-db/internal/workspace"
	"github.com/emmetthe/interactive-db/internal/ws"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.IsProduction(), cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := ws.Options{
		MaxMessageSize: cfg.MaxMessageSize,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.OriginAllowed(r.Header.Get("Origin"))
		},
	}

	// Optional activity log
	var activity handlers.ActivityLister
	var database *sql.DB
	if cfg.ActivityLogEnabled() {
		var err error
		database, err = db.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		repo := repository.NewActivityRepository(database)
		opts.Recorder = repo
		activity = repo
	}

	registry := workspace.NewRegistry()
	wsHandler := ws.NewHandler(registry, opts)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(wsHandler, activity),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down server")
		wsHandler.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("WebSocket server is running", "port", cfg.Port, "url", "ws://localhost:"+cfg.Port, "activity_log", cfg.ActivityLogEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	if database != nil {
		database.Close()
	}
}

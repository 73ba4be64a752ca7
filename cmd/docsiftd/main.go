package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsift/docsift/internal/api"
	"github.com/docsift/docsift/internal/async"
	"github.com/docsift/docsift/internal/common"
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/extract/openai"
	"github.com/docsift/docsift/internal/history"
	"github.com/docsift/docsift/internal/templates"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hist, err := openHistory(ctx, cfg, log)
	if err != nil {
		log.Error("open history store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = hist.Close() }()

	tmpl, err := templates.Open(templatesPath(cfg), log)
	if err != nil {
		log.Error("open template store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tmpl.Close() }()

	svc := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, log)

	orch := extract.NewOrchestrator(svc, hist, log)
	board := extract.NewBoard()
	queue := async.NewQueue(orch, board, log,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithJobTimeout(cfg.Queue.Timeout),
	)

	srv := api.NewServer(orch, queue, board, hist, tmpl, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	log.Info("stopped")
}

func openHistory(ctx context.Context, cfg *common.Config, log *slog.Logger) (history.Store, error) {
	if cfg.Store.Driver == "postgres" {
		return history.OpenPostgres(ctx, cfg.Store.DSN, log)
	}
	return history.OpenSQLite(cfg.Store.DSN, log)
}

// templatesPath resolves the sqlite file for the template store. Templates
// stay embedded even when history lives in postgres.
func templatesPath(cfg *common.Config) string {
	if cfg.Store.TemplatesPath != "" {
		return cfg.Store.TemplatesPath
	}
	if cfg.Store.Driver == "sqlite" {
		return cfg.Store.DSN
	}
	return "./docsift-templates.db"
}

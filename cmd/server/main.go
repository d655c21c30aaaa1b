// Command server starts the corpus API.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	-port     HTTP port to listen on (default: 8080, env PORT)
//	-db       SQLite path or postgres:// URL; empty serves an in-memory store (env ATOGEN_DB)
//	-users    regular users generated at startup when the store is empty (default: 500)
//	-seed     seed for the startup corpus (default: 42)
//	-origins  comma-separated CORS origins
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
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"corpuslab/atogen/internal/api"
	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/db"
	"corpuslab/atogen/internal/detect"
	"corpuslab/atogen/internal/store"
	"corpuslab/atogen/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP port")
	dsn := flag.String("db", "", "SQLite path or postgres:// URL; empty for in-memory")
	users := flag.Int("users", 500, "regular users generated at startup when the store is empty")
	seed := flag.Int64("seed", 42, "seed for the startup corpus")
	origins := flag.String("origins", "", "comma-separated CORS origins")
	flag.Parse()

	// PaaS platforms inject PORT; it takes precedence over the -port flag.
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}
	if v := os.Getenv("ATOGEN_DB"); v != "" && *dsn == "" {
		*dsn = v
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx := context.Background()

	// ── Wire dependencies ─────────────────────────────────────────────────────
	cfg := config.Default()
	if path := os.Getenv("ATOGEN_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			slog.Error("config not loaded", "file", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var repo store.Repository = store.NewMemory()
	if *dsn != "" {
		conn, err := db.Open(ctx, *dsn)
		if err != nil {
			slog.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		repo = store.NewSQL(conn)
	}

	hooks := webhook.NewRegistry()
	if u := os.Getenv("ATOGEN_WEBHOOK_URL"); u != "" {
		hooks.Save(&webhook.Config{ID: "env", URL: u, CreatedAt: time.Now().UTC(), Active: true})
	}
	notifier := webhook.New(hooks)
	handler := api.NewHandler(repo, detect.New(detect.DefaultThreshold), hooks, notifier, cfg)

	var allowed []string
	if *origins != "" {
		allowed = strings.Split(*origins, ",")
	}
	router := api.NewRouter(handler, allowed...)

	// ── Startup corpus ────────────────────────────────────────────────────────
	if err := seedIfEmpty(ctx, repo, cfg, *users, *seed); err != nil {
		// Non-fatal: the API works against an empty store.
		slog.Warn("startup corpus not generated", "reason", err.Error())
	}

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "port", *port, "db", *dsn)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	notifier.Wait()
	slog.Info("server stopped")
}

// seedIfEmpty generates and stores a corpus when repo has no users.
func seedIfEmpty(ctx context.Context, repo store.Repository, cfg *config.Config, users int, seed int64) error {
	n, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("store already populated", "users", n)
		return nil
	}
	if users <= 0 {
		return nil
	}
	c, err := corpus.Generate(ctx, corpus.Options{
		Seed:     seed,
		NumUsers: users,
		FraudPct: api.DefaultFraudPct,
		Config:   cfg.Clone(),
	})
	if err != nil {
		return err
	}
	if err := repo.InsertCorpus(ctx, c); err != nil {
		return err
	}
	slog.Info("startup corpus loaded", "run_id", c.RunID, "users", len(c.Users), "interactions", len(c.Interactions))
	return nil
}

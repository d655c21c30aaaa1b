// Command generate builds a synthetic account-takeover corpus and writes it
// to a database, a JSONL directory and/or a Kafka topic.
//
// Usage:
//
//	go run ./cmd/generate [flags]
//
// Flags:
//
//	-users      regular users to generate (default: 1000)
//	-fraud-pct  share of regular users to compromise, 0-100 (default: 5)
//	-seed       random seed (default: 42)
//	-config     YAML file merged over the default configuration
//	-db         SQLite path or postgres:// URL; empty skips the database
//	-out        directory for JSONL export
//	-kafka      comma-separated Kafka brokers
//
// Environment (used when the matching flag is not given): ATOGEN_DB,
// ATOGEN_CONFIG, ATOGEN_KAFKA_BROKERS. ATOGEN_WEBHOOK_URL receives the run
// summary. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/db"
	"corpuslab/atogen/internal/export"
	"corpuslab/atogen/internal/store"
	"corpuslab/atogen/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	users := flag.Int("users", 1000, "regular users to generate")
	pct := flag.Float64("fraud-pct", 5, "share of regular users to compromise (0-100)")
	seed := flag.Int64("seed", 42, "random seed")
	cfgPath := flag.String("config", "", "YAML config file")
	dsn := flag.String("db", "data/atogen.db", "SQLite path or postgres:// URL; empty to skip")
	out := flag.String("out", "", "directory for JSONL export")
	brokers := flag.String("kafka", "", "comma-separated Kafka brokers")
	topic := flag.String("kafka-topic", export.DefaultTopic, "Kafka topic")
	flag.Parse()

	fromEnv(cfgPath, "config", "ATOGEN_CONFIG")
	fromEnv(dsn, "db", "ATOGEN_DB")
	fromEnv(brokers, "kafka", "ATOGEN_KAFKA_BROKERS")

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, params{
		users:   *users,
		pct:     *pct,
		seed:    *seed,
		cfgPath: *cfgPath,
		dsn:     *dsn,
		out:     *out,
		brokers: *brokers,
		topic:   *topic,
		hookURL: os.Getenv("ATOGEN_WEBHOOK_URL"),
	}); err != nil {
		slog.Error("generate failed", "error", err)
		os.Exit(1)
	}
}

type params struct {
	users   int
	pct     float64
	seed    int64
	cfgPath string
	dsn     string
	out     string
	brokers string
	topic   string
	hookURL string
}

func run(ctx context.Context, p params) error {
	cfg := config.Default()
	if p.cfgPath != "" {
		var err error
		if cfg, err = config.Load(p.cfgPath); err != nil {
			return err
		}
	}

	start := time.Now()
	c, err := corpus.Generate(ctx, corpus.Options{
		Seed:     p.seed,
		NumUsers: p.users,
		FraudPct: p.pct,
		Config:   cfg,
	})
	if err != nil {
		return err
	}
	slog.Info("corpus built", "run_id", c.RunID, "duration_ms", time.Since(start).Milliseconds())

	if p.dsn != "" {
		conn, err := db.Open(ctx, p.dsn)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := store.NewSQL(conn).InsertCorpus(ctx, c); err != nil {
			return fmt.Errorf("store corpus: %w", err)
		}
		slog.Info("corpus stored", "dialect", db.Dialect(conn))
	}

	var sinks []export.Sink
	if p.out != "" {
		sinks = append(sinks, export.NewJSONL(p.out))
	}
	if p.brokers != "" {
		k, err := export.NewKafka(export.KafkaConfig{
			Brokers: strings.Split(p.brokers, ","),
			Topic:   p.topic,
		}, slog.Default())
		if err != nil {
			return err
		}
		sinks = append(sinks, k)
	}
	for _, s := range sinks {
		err := s.Write(ctx, c)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}

	if p.hookURL != "" {
		reg := webhook.NewRegistry()
		reg.Save(&webhook.Config{ID: "env", URL: p.hookURL, CreatedAt: time.Now().UTC(), Active: true})
		n := webhook.New(reg)
		n.NotifyAsync(webhook.NewSummary(c, ""))
		n.Wait()
	}

	fmt.Println(render(c))
	return nil
}

// fromEnv replaces *dst with the named variable unless the flag was given.
func fromEnv(dst *string, flagName, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == flagName {
			set = true
		}
	})
	if !set {
		*dst = v
	}
}

// Command detect scores every user of a stored corpus and writes the flagged
// users report.
//
// Usage:
//
//	go run ./cmd/detect [flags]
//
// Flags:
//
//	-db         SQLite path or postgres:// URL (default: data/atogen.db, env ATOGEN_DB)
//	-threshold  flagging probability in (0, 1] (default: 0.5)
//	-out        report path (default: flagged_users.json)
//	-sequences  optional JSONL path for per-user action sequences
//	-seq-len    tokens kept per sequence (default: 128)
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"corpuslab/atogen/internal/db"
	"corpuslab/atogen/internal/detect"
	"corpuslab/atogen/internal/features"
	"corpuslab/atogen/internal/store"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("db", "data/atogen.db", "SQLite path or postgres:// URL")
	threshold := flag.Float64("threshold", detect.DefaultThreshold, "flagging probability in (0, 1]")
	out := flag.String("out", "flagged_users.json", "report path")
	seqPath := flag.String("sequences", "", "JSONL path for action sequences")
	seqLen := flag.Int("seq-len", features.MaxSequence, "tokens kept per sequence")
	flag.Parse()

	set := false
	flag.Visit(func(f *flag.Flag) { set = set || f.Name == "db" })
	if v := os.Getenv("ATOGEN_DB"); v != "" && !set {
		*dsn = v
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dsn, *threshold, *out, *seqPath, *seqLen); err != nil {
		slog.Error("detect failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dsn string, threshold float64, out, seqPath string, seqLen int) error {
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	users, now, err := features.Load(ctx, store.NewSQL(conn))
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("no users in %s; run generate first", dsn)
	}

	report := detect.New(threshold).Run(features.Extract(users, now))
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(out, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	m := report.Evaluate()
	slog.Info("detection complete",
		"users", report.TotalUsers,
		"flagged", report.FlaggedCount,
		"threshold", report.Threshold,
		"precision", fmt.Sprintf("%.3f", m.Precision),
		"recall", fmt.Sprintf("%.3f", m.Recall),
		"out", out,
	)

	if seqPath == "" {
		return nil
	}
	return writeSequences(seqPath, features.Sequences(users, seqLen))
}

func writeSequences(path string, seqs []features.Sequence) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, s := range seqs {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode sequence %s: %w", s.UserID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	slog.Info("sequences written", "users", len(seqs), "out", path)
	return nil
}

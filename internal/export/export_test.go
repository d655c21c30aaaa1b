package export_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/export"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func smallCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.Generate(context.Background(), corpus.Options{
		Seed:     3,
		NumUsers: 25,
		FraudPct: 10,
		Now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return c
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for sc.Scan() {
		var row map[string]any
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("%s: bad line %q: %v", path, sc.Text(), err)
		}
		out = append(out, row)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return out
}

type fakeWriter struct {
	batches [][]kafka.Message
	failAt  int
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.failAt > 0 && len(f.batches)+1 == f.failAt {
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

func TestJSONL_WritesEveryTable(t *testing.T) {
	c := smallCorpus(t)
	dir := filepath.Join(t.TempDir(), "out")

	sink := export.NewJSONL(dir)
	if err := sink.Write(context.Background(), c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	users := readLines(t, filepath.Join(dir, export.UsersFile))
	profiles := readLines(t, filepath.Join(dir, export.ProfilesFile))
	events := readLines(t, filepath.Join(dir, export.InteractionsFile))
	if len(users) != len(c.Users) || len(profiles) != len(c.Profiles) || len(events) != len(c.Interactions) {
		t.Fatalf("rows = %d/%d/%d, want %d/%d/%d",
			len(users), len(profiles), len(events), len(c.Users), len(c.Profiles), len(c.Interactions))
	}
	for i, row := range events {
		if row["interaction_id"] != c.Interactions[i].ID {
			t.Fatalf("line %d is %v, want %s", i+1, row["interaction_id"], c.Interactions[i].ID)
		}
		want, _ := c.Sessions.Lookup(c.Interactions[i].ID)
		if row["session_id"] != want {
			t.Fatalf("line %d session %v, want %s", i+1, row["session_id"], want)
		}
	}
	if users[0]["user_id"] != c.Users[0].UserID {
		t.Errorf("first user %v", users[0]["user_id"])
	}

	raw, err := os.ReadFile(filepath.Join(dir, export.ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m export.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.RunID != c.RunID || m.Interactions != len(c.Interactions) || m.Sessions != c.Sessions.Sessions() {
		t.Errorf("manifest = %+v", m)
	}
}

func TestJSONL_CancelledContext(t *testing.T) {
	c := smallCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := export.NewJSONL(t.TempDir()).Write(ctx, c)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ─── Kafka ────────────────────────────────────────────────────────────────────

func TestKafka_PublishesKeyedBatches(t *testing.T) {
	c := smallCorpus(t)
	w := &fakeWriter{}
	sink := export.NewKafkaWriter(w, "test", 100, nil)

	if err := sink.Write(context.Background(), c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := len(c.Users) + len(c.Profiles) + len(c.Interactions)
	total := 0
	kinds := map[string]int{}
	for _, b := range w.batches {
		if len(b) > 100 {
			t.Errorf("batch of %d exceeds limit", len(b))
		}
		for _, msg := range b {
			total++
			var env struct {
				Kind  string          `json:"kind"`
				RunID string          `json:"run_id"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				t.Fatalf("bad message: %v", err)
			}
			if env.RunID != c.RunID {
				t.Fatalf("run id %q", env.RunID)
			}
			if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != env.Kind {
				t.Fatalf("kind header %v does not match %s", msg.Headers, env.Kind)
			}
			var data struct {
				UserID string `json:"user_id"`
			}
			_ = json.Unmarshal(env.Data, &data)
			if string(msg.Key) != data.UserID {
				t.Fatalf("key %q, record user %q", msg.Key, data.UserID)
			}
			kinds[env.Kind]++
		}
	}
	if total != want {
		t.Errorf("published %d messages, want %d", total, want)
	}
	if kinds[export.KindInteraction] != len(c.Interactions) || kinds[export.KindUser] != len(c.Users) {
		t.Errorf("kinds = %v", kinds)
	}

	if err := sink.Close(); err != nil || !w.closed {
		t.Errorf("Close: %v closed=%v", err, w.closed)
	}
}

func TestKafka_WriteErrorStops(t *testing.T) {
	c := smallCorpus(t)
	w := &fakeWriter{failAt: 2}
	err := export.NewKafkaWriter(w, "test", 10, nil).Write(context.Background(), c)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(w.batches) != 1 {
		t.Errorf("kept writing after failure: %d batches", len(w.batches))
	}
}

func TestNewKafka_RequiresBrokers(t *testing.T) {
	if _, err := export.NewKafka(export.KafkaConfig{}, nil); err == nil {
		t.Error("expected error without brokers")
	}
}

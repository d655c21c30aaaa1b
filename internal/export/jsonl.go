package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"corpuslab/atogen/internal/corpus"
)

// File names written by JSONL.
const (
	UsersFile        = "users.jsonl"
	ProfilesFile     = "profiles.jsonl"
	InteractionsFile = "interactions.jsonl"
	ManifestFile     = "manifest.json"
)

// JSONL writes one newline-delimited JSON file per table into a directory.
type JSONL struct {
	dir string
}

// NewJSONL returns a sink writing under dir. The directory is created on
// first write.
func NewJSONL(dir string) *JSONL { return &JSONL{dir: dir} }

func (j *JSONL) Write(ctx context.Context, c *corpus.Corpus) error {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("export: create %s: %w", j.dir, err)
	}
	if err := writeLines(ctx, filepath.Join(j.dir, UsersFile), c.Users); err != nil {
		return err
	}
	if err := writeLines(ctx, filepath.Join(j.dir, ProfilesFile), c.Profiles); err != nil {
		return err
	}
	if err := writeLines(ctx, filepath.Join(j.dir, InteractionsFile), interactions(c)); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(manifest(c), "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(j.dir, ManifestFile), append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("export: write manifest: %w", err)
	}
	return nil
}

func (j *JSONL) Close() error { return nil }

func writeLines[T any](ctx context.Context, path string, rows []T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, row := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("export: encode %s line %d: %w", filepath.Base(path), i+1, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("export: flush %s: %w", path, err)
	}
	return nil
}

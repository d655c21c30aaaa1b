// Package webhook notifies registered URLs when a corpus run completes.
//
// Deliveries run in goroutines so they never hold up the caller. Failures are
// logged and not retried.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"corpuslab/atogen/internal/corpus"
)

// EventCorpusGenerated is the only event sent today.
const EventCorpusGenerated = "corpus_generated"

// Config is a registered callback.
type Config struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	MinVictims int       `json:"min_victims"` // fire when the run has at least this many victims
	CreatedAt  time.Time `json:"created_at"`
	Active     bool      `json:"active"`
}

// Summary describes a finished run.
type Summary struct {
	RunID        string         `json:"run_id"`
	JobID        string         `json:"job_id,omitempty"`
	Now          time.Time      `json:"now"`
	Users        int            `json:"users"`
	Interactions int            `json:"interactions"`
	Sessions     int            `json:"sessions"`
	Victims      int            `json:"victims"`
	AttackEvents int            `json:"attack_events"`
	Accepts      int            `json:"accepts"`
	Dropped      int            `json:"dropped"`
	ByPattern    map[string]int `json:"by_pattern,omitempty"` // attack events per technique
}

// NewSummary summarises c.
func NewSummary(c *corpus.Corpus, jobID string) Summary {
	s := Summary{
		RunID:        c.RunID,
		JobID:        jobID,
		Now:          c.Now,
		Users:        len(c.Users),
		Interactions: len(c.Interactions),
		Sessions:     c.Sessions.Sessions(),
		Victims:      len(c.VictimPatterns),
		AttackEvents: len(c.Attacks.Events),
		Accepts:      c.Accepted,
		Dropped:      len(c.Dropped),
	}
	for _, l := range c.Attacks.Summary {
		if s.ByPattern == nil {
			s.ByPattern = make(map[string]int)
		}
		s.ByPattern[string(l.Pattern)] += l.Events
	}
	return s
}

// Payload is the body sent to registered URLs.
type Payload struct {
	Event       string    `json:"event"`
	TriggeredAt time.Time `json:"triggered_at"`
	Run         Summary   `json:"run"`
}

// ─── Registry ─────────────────────────────────────────────────────────────────

// Registry holds webhook configurations in memory.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]*Config
}

func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]*Config)}
}

// Save stores or replaces wh.
func (r *Registry) Save(wh *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[wh.ID] = wh
}

// Delete removes a webhook by ID. Returns false if not found.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.hooks[id]
	if exists {
		delete(r.hooks, id)
	}
	return exists
}

// ListActive returns the active webhooks ordered by creation.
func (r *Registry) ListActive() []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Config
	for _, wh := range r.hooks {
		if wh.Active {
			result = append(result, wh)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ─── Notifier ─────────────────────────────────────────────────────────────────

// Notifier sends run summaries to every active webhook.
type Notifier struct {
	registry *Registry
	client   *http.Client
	wg       sync.WaitGroup
}

// New creates a Notifier with a 5s client timeout.
func New(r *Registry) *Notifier {
	return &Notifier{
		registry: r,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NotifyAsync fires a call in the background for every active webhook whose
// victim threshold the run meets.
func (n *Notifier) NotifyAsync(s Summary) {
	for _, wh := range n.registry.ListActive() {
		if s.Victims >= wh.MinVictims {
			n.wg.Add(1)
			go func(wh *Config) {
				defer n.wg.Done()
				n.send(wh, s)
			}(wh)
		}
	}
}

// Wait blocks until every delivery started so far has finished.
func (n *Notifier) Wait() { n.wg.Wait() }

func (n *Notifier) send(wh *Config, s Summary) {
	payload := Payload{
		Event:       EventCorpusGenerated,
		TriggeredAt: time.Now().UTC(),
		Run:         s,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("webhook: failed to marshal payload", "webhook_id", wh.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		slog.Error("webhook: failed to build request", "webhook_id", wh.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Atogen-Event", EventCorpusGenerated)

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("webhook: delivery failed", "webhook_id", wh.ID, "url", wh.URL, "error", err)
		return
	}
	defer resp.Body.Close()

	slog.Info("webhook: delivered",
		"webhook_id", wh.ID,
		"url", wh.URL,
		"status", resp.StatusCode,
		"run_id", s.RunID,
		"victims", s.Victims,
	)
}

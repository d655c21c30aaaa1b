package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/detect"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/features"
	"corpuslab/atogen/internal/store"
	"corpuslab/atogen/internal/webhook"
)

// Bounds on admin regeneration.
const (
	MaxUsers        = 100_000
	DefaultUsers    = 1000
	DefaultFraudPct = 5.0
)

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	repo     store.Repository
	engine   *detect.Engine
	hooks    *webhook.Registry
	notifier *webhook.Notifier
	cfg      *config.Config

	regen sync.Mutex // one regeneration at a time
}

// NewHandler creates a Handler wired to the given dependencies. cfg is the
// generator configuration used by regeneration unless a request overrides it;
// nil means the defaults.
func NewHandler(repo store.Repository, e *detect.Engine, hooks *webhook.Registry, n *webhook.Notifier, cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{repo: repo, engine: e, hooks: hooks, notifier: n, cfg: cfg}
}

// ─── Users ────────────────────────────────────────────────────────────────────

// pageOf is the body of every list response.
type pageOf[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListUsers returns a page of users.
//
// Query params:
//
//	country, pattern   exact match
//	active             true / false
//	limit, offset      paging (limit max 500)
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePage(r)
	if err != nil {
		badRequest(w, "INVALID_PARAM", err.Error())
		return
	}
	f := store.UserFilter{Country: q.Get("country"), Pattern: q.Get("pattern")}
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "INVALID_PARAM", "active must be true or false")
			return
		}
		f.Active = &b
	}

	users, total, err := h.repo.ListUsers(r.Context(), f, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	ok(w, pageOf[domain.User]{Items: users, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// GetUser returns a user together with its profile.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.repo.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, fmt.Sprintf("user '%s' not found", id))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.repo.GetProfile(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, r, err)
		return
	}
	resp := struct {
		User    domain.User         `json:"user"`
		Profile *domain.UserProfile `json:"profile,omitempty"`
	}{User: u}
	if err == nil {
		resp.Profile = &p
	}
	ok(w, resp)
}

// GetUserInteractions returns one user's events in time order.
func (h *Handler) GetUserInteractions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.repo.GetUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, fmt.Sprintf("user '%s' not found", id))
			return
		}
		h.fail(w, r, err)
		return
	}
	events, err := h.repo.InteractionsByUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []store.Interaction{}
	}
	ok(w, events)
}

// ─── Interactions ─────────────────────────────────────────────────────────────

// ListInteractions returns a page of events in corpus order.
//
// Query params:
//
//	user_id, type, attack_pattern   exact match
//	fraud_only                      true to keep attack events only
//	since, until                    RFC 3339; since inclusive, until exclusive
//	limit, offset                   paging (limit max 500)
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePage(r)
	if err != nil {
		badRequest(w, "INVALID_PARAM", err.Error())
		return
	}
	f := store.InteractionFilter{UserID: q.Get("user_id"), AttackPattern: q.Get("attack_pattern")}
	if v := q.Get("type"); v != "" {
		t, err := domain.ParseInteractionType(v)
		if err != nil {
			badRequest(w, "INVALID_TYPE", err.Error())
			return
		}
		f.Type = t
	}
	if v := q.Get("fraud_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "INVALID_PARAM", "fraud_only must be true or false")
			return
		}
		f.FraudOnly = b
	}
	if f.Since, err = parseTime(q.Get("since")); err != nil {
		badRequest(w, "INVALID_PARAM", "since must be an RFC 3339 timestamp")
		return
	}
	if f.Until, err = parseTime(q.Get("until")); err != nil {
		badRequest(w, "INVALID_PARAM", "until must be an RFC 3339 timestamp")
		return
	}

	events, total, err := h.repo.ListInteractions(r.Context(), f, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []store.Interaction{}
	}
	ok(w, pageOf[store.Interaction]{Items: events, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// ─── Reports ──────────────────────────────────────────────────────────────────

// Stats is the corpus overview.
type Stats struct {
	Users        int                            `json:"users"`
	ActiveUsers  int                            `json:"active_users"`
	Interactions int                            `json:"interactions"`
	ByType       map[domain.InteractionType]int `json:"by_type"`
}

// GetStats returns corpus counts.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var s Stats
	var err error
	if s.Users, err = h.repo.CountUsers(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	if s.Interactions, err = h.repo.CountInteractions(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	if s.ByType, err = h.repo.CountInteractionsByType(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	active, err := h.repo.ActiveUserIDs(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s.ActiveUsers = len(active)
	ok(w, s)
}

// GetDetectionReport scores every stored user with the rule engine.
//
// Query params:
//
//	threshold   flagging probability in (0, 1]; defaults to the engine's
//	flagged     true to list flagged users only
func (h *Handler) GetDetectionReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engine := h.engine
	if v := q.Get("threshold"); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil || th <= 0 || th > 1 {
			badRequest(w, "INVALID_PARAM", "threshold must be a number in (0, 1]")
			return
		}
		engine = detect.New(th)
	}

	users, now, err := features.Load(r.Context(), h.repo)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report := engine.Run(features.Extract(users, now))
	if v, _ := strconv.ParseBool(q.Get("flagged")); v {
		for id, res := range report.Users {
			if !res.Flagged {
				delete(report.Users, id)
			}
		}
	}
	ok(w, struct {
		detect.Report
		Metrics detect.Metrics `json:"metrics"`
	}{Report: report, Metrics: report.Evaluate()})
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// RegisterWebhook adds a new webhook endpoint.
func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL        string `json:"url"`
		MinVictims int    `json:"min_victims"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	if req.URL == "" {
		badRequest(w, "MISSING_URL", "url is required")
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		badRequest(w, "INVALID_URL", "url must be http or https")
		return
	}
	if req.MinVictims < 0 {
		badRequest(w, "INVALID_THRESHOLD", "min_victims must not be negative")
		return
	}

	wh := &webhook.Config{
		ID:         uuid.NewString(),
		URL:        req.URL,
		MinVictims: req.MinVictims,
		CreatedAt:  time.Now().UTC(),
		Active:     true,
	}
	h.hooks.Save(wh)
	created(w, wh)
}

// DeleteWebhook removes a webhook.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.hooks.Delete(id) {
		notFound(w, fmt.Sprintf("webhook '%s' not found", id))
		return
	}
	noContent(w)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// RegenerateRequest is the body of POST /admin/regenerate. Zero fields take
// defaults; Config is an optional YAML document merged over the defaults.
type RegenerateRequest struct {
	Seed     int64    `json:"seed"`
	NumUsers int      `json:"num_users"`
	FraudPct *float64 `json:"fraud_pct,omitempty"`
	Config   string   `json:"config,omitempty"`
}

// Regenerate builds a fresh corpus, replaces the stored one and notifies the
// registered webhooks.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	if req.NumUsers == 0 {
		req.NumUsers = DefaultUsers
	}
	if req.NumUsers < 1 || req.NumUsers > MaxUsers {
		badRequest(w, "VALIDATION_ERROR", fmt.Sprintf("num_users must be between 1 and %d", MaxUsers))
		return
	}
	pct := DefaultFraudPct
	if req.FraudPct != nil {
		pct = *req.FraudPct
	}
	if pct < 0 || pct > 100 {
		badRequest(w, "VALIDATION_ERROR", "fraud_pct must be between 0 and 100")
		return
	}
	cfg := h.cfg
	if req.Config != "" {
		parsed, err := config.Parse([]byte(req.Config))
		if err != nil {
			badRequest(w, "INVALID_CONFIG", err.Error())
			return
		}
		cfg = parsed
	}

	if !h.regen.TryLock() {
		conflict(w, "a regeneration is already running")
		return
	}
	defer h.regen.Unlock()

	jobID := uuid.NewString()
	start := time.Now()
	c, err := corpus.Generate(r.Context(), corpus.Options{
		Seed:     req.Seed,
		NumUsers: req.NumUsers,
		FraudPct: pct,
		Config:   cfg.Clone(),
	})
	if err != nil {
		var cerr *config.Error
		if errors.As(err, &cerr) {
			badRequest(w, "INVALID_CONFIG", err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}
	if err := h.repo.InsertCorpus(r.Context(), c); err != nil {
		h.fail(w, r, err)
		return
	}

	summary := webhook.NewSummary(c, jobID)
	h.notifier.NotifyAsync(summary)
	slog.Info("api: corpus regenerated",
		"job_id", jobID,
		"run_id", c.RunID,
		"users", summary.Users,
		"interactions", summary.Interactions,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	created(w, summary)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("api: request failed", "path", r.URL.Path, "error", err)
	internalError(w)
}

func parsePage(r *http.Request) (store.Page, error) {
	q := r.URL.Query()
	var p store.Page
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > store.MaxLimit {
			return p, fmt.Errorf("limit must be an integer between 1 and %d", store.MaxLimit)
		}
		p.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("offset must be a non-negative integer")
		}
		p.Offset = n
	}
	return p.Normalize(), nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

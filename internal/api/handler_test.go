package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"corpuslab/atogen/internal/api"
	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/detect"
	"corpuslab/atogen/internal/store"
	"corpuslab/atogen/internal/webhook"
)

// ─── Test server setup ────────────────────────────────────────────────────────

type testEnv struct {
	srv      *httptest.Server
	corpus   *corpus.Corpus
	notifier *webhook.Notifier
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	c, err := corpus.Generate(context.Background(), corpus.Options{
		Seed:     21,
		NumUsers: 60,
		FraudPct: 10,
		Now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	repo := store.NewMemory()
	if err := repo.InsertCorpus(context.Background(), c); err != nil {
		t.Fatalf("InsertCorpus: %v", err)
	}
	hooks := webhook.NewRegistry()
	n := webhook.New(hooks)
	h := api.NewHandler(repo, detect.New(0), hooks, n, nil)
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, corpus: c, notifier: n}
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func del(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	env := decode(t, resp)
	d, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'data' object: %v", env)
	}
	return d
}

func decodeList(t *testing.T, resp *http.Response) []any {
	t.Helper()
	env := decode(t, resp)
	d, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("response has no 'data' array: %v", env)
	}
	return d
}

func decodeError(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	env := decode(t, resp)
	e, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'error' key: %v", env)
	}
	return e
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d", want, resp.StatusCode)
	}
}

// ─── Health ───────────────────────────────────────────────────────────────────

func TestHealth_Returns200(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/health")
	expectStatus(t, resp, http.StatusOK)
	if d := decodeData(t, resp); d["service"] != "atogen" {
		t.Errorf("service = %v", d["service"])
	}
}

// ─── Users ────────────────────────────────────────────────────────────────────

func TestListUsers_DefaultPage(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/api/v1/users?limit=10&offset=5")
	expectStatus(t, resp, http.StatusOK)

	d := decodeData(t, resp)
	if int(d["total"].(float64)) != len(env.corpus.Users) {
		t.Errorf("total = %v, want %d", d["total"], len(env.corpus.Users))
	}
	items := d["items"].([]any)
	if len(items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(items))
	}
	ids := make([]string, len(env.corpus.Users))
	for i, u := range env.corpus.Users {
		ids[i] = u.UserID
	}
	sort.Strings(ids)
	if first := items[0].(map[string]any); first["user_id"] != ids[5] {
		t.Errorf("first item %v, want %s", first["user_id"], ids[5])
	}
}

func TestListUsers_Filters(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/api/v1/users?active=false&limit=500")
	expectStatus(t, resp, http.StatusOK)

	want := 0
	for _, u := range env.corpus.Users {
		if !u.IsActive {
			want++
		}
	}
	d := decodeData(t, resp)
	if int(d["total"].(float64)) != want {
		t.Errorf("inactive total = %v, want %d", d["total"], want)
	}
	for _, it := range d["items"].([]any) {
		if it.(map[string]any)["is_active"] != false {
			t.Errorf("active user in inactive filter: %v", it)
		}
	}
}

func TestListUsers_BadParams(t *testing.T) {
	env := newTestServer(t)
	for _, q := range []string{"active=maybe", "limit=0", "limit=501", "offset=-1", "limit=abc"} {
		t.Run(q, func(t *testing.T) {
			resp := get(t, env.srv, "/api/v1/users?"+q)
			expectStatus(t, resp, http.StatusBadRequest)
			if e := decodeError(t, resp); e["code"] != "INVALID_PARAM" {
				t.Errorf("code = %v", e["code"])
			}
		})
	}
}

func TestGetUser_WithProfile(t *testing.T) {
	env := newTestServer(t)
	id := env.corpus.Users[0].UserID
	resp := get(t, env.srv, "/api/v1/users/"+id)
	expectStatus(t, resp, http.StatusOK)

	d := decodeData(t, resp)
	if d["user"].(map[string]any)["user_id"] != id {
		t.Errorf("user = %v", d["user"])
	}
	profile, ok := d["profile"].(map[string]any)
	if !ok || profile["user_id"] != id {
		t.Errorf("profile = %v", d["profile"])
	}
}

func TestGetUser_NotFound(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/api/v1/users/nobody")
	expectStatus(t, resp, http.StatusNotFound)
	if e := decodeError(t, resp); e["code"] != "NOT_FOUND" {
		t.Errorf("code = %v", e["code"])
	}
}

func TestGetUserInteractions_TimeOrdered(t *testing.T) {
	env := newTestServer(t)
	id := env.corpus.Users[0].UserID
	resp := get(t, env.srv, "/api/v1/users/"+id+"/interactions")
	expectStatus(t, resp, http.StatusOK)

	events := decodeList(t, resp)
	if len(events) == 0 {
		t.Fatal("user has no events")
	}
	var prev time.Time
	for i, raw := range events {
		ev := raw.(map[string]any)
		if ev["user_id"] != id {
			t.Fatalf("event of %v in %s's list", ev["user_id"], id)
		}
		if ev["session_id"] == "" {
			t.Errorf("event %v has no session", ev["interaction_id"])
		}
		ts, err := time.Parse(time.RFC3339, ev["timestamp"].(string))
		if err != nil {
			t.Fatalf("timestamp: %v", err)
		}
		if i > 0 && ts.Before(prev) {
			t.Fatalf("events out of order at %d", i)
		}
		prev = ts
	}
	if events[0].(map[string]any)["interaction_type"] != "account_creation" {
		t.Errorf("first event is %v", events[0].(map[string]any)["interaction_type"])
	}

	resp = get(t, env.srv, "/api/v1/users/nobody/interactions")
	expectStatus(t, resp, http.StatusNotFound)
}

// ─── Interactions ─────────────────────────────────────────────────────────────

func TestListInteractions_FraudOnly(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/api/v1/interactions?fraud_only=true&limit=500")
	expectStatus(t, resp, http.StatusOK)

	d := decodeData(t, resp)
	items := d["items"].([]any)
	if len(items) == 0 {
		t.Fatal("no attack events in a corpus with 10% victims")
	}
	for _, it := range items {
		if it.(map[string]any)["attack_pattern"] == nil {
			t.Fatalf("untagged event in fraud-only list: %v", it)
		}
	}
}

func TestListInteractions_TypeAndWindow(t *testing.T) {
	env := newTestServer(t)
	since := env.corpus.Now.Add(-7 * 24 * time.Hour).Format(time.RFC3339)
	resp := get(t, env.srv, "/api/v1/interactions?type=login&since="+since)
	expectStatus(t, resp, http.StatusOK)

	want := 0
	for _, ev := range env.corpus.Interactions {
		if ev.Type == "login" && !ev.Timestamp.Before(env.corpus.Now.Add(-7*24*time.Hour)) {
			want++
		}
	}
	d := decodeData(t, resp)
	if int(d["total"].(float64)) != want {
		t.Errorf("total = %v, want %d", d["total"], want)
	}
}

func TestListInteractions_BadParams(t *testing.T) {
	env := newTestServer(t)
	cases := []struct {
		query string
		code  string
	}{
		{"type=teleport", "INVALID_TYPE"},
		{"fraud_only=perhaps", "INVALID_PARAM"},
		{"since=yesterday", "INVALID_PARAM"},
		{"until=2025-13-01", "INVALID_PARAM"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			resp := get(t, env.srv, "/api/v1/interactions?"+tc.query)
			expectStatus(t, resp, http.StatusBadRequest)
			if e := decodeError(t, resp); e["code"] != tc.code {
				t.Errorf("code = %v, want %s", e["code"], tc.code)
			}
		})
	}
}

// ─── Reports ──────────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/api/v1/stats")
	expectStatus(t, resp, http.StatusOK)

	d := decodeData(t, resp)
	if int(d["users"].(float64)) != len(env.corpus.Users) {
		t.Errorf("users = %v", d["users"])
	}
	if int(d["interactions"].(float64)) != len(env.corpus.Interactions) {
		t.Errorf("interactions = %v", d["interactions"])
	}
	byType := d["by_type"].(map[string]any)
	if int(byType["account_creation"].(float64)) < len(env.corpus.Users) {
		t.Errorf("account_creation = %v, want at least one per user", byType["account_creation"])
	}
}

func TestDetectionReport(t *testing.T) {
	env := newTestServer(t)
	resp := get(t, env.srv, "/api/v1/reports/detection")
	expectStatus(t, resp, http.StatusOK)

	d := decodeData(t, resp)
	if d["model_type"] != "rules" || int(d["total_users"].(float64)) != len(env.corpus.Users) {
		t.Errorf("header = %v %v", d["model_type"], d["total_users"])
	}
	if _, ok := d["metrics"].(map[string]any); !ok {
		t.Error("missing metrics")
	}

	resp = get(t, env.srv, "/api/v1/reports/detection?flagged=true")
	d = decodeData(t, resp)
	users, _ := d["users"].(map[string]any)
	if len(users) != int(d["flagged_count"].(float64)) {
		t.Errorf("flagged list has %d users, flagged_count %v", len(users), d["flagged_count"])
	}

	resp = get(t, env.srv, "/api/v1/reports/detection?threshold=2")
	expectStatus(t, resp, http.StatusBadRequest)
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

func TestWebhook_RegisterAndDelete(t *testing.T) {
	env := newTestServer(t)
	resp := post(t, env.srv, "/api/v1/webhooks", map[string]any{"url": "http://example.test/hook"})
	expectStatus(t, resp, http.StatusCreated)
	id := decodeData(t, resp)["id"].(string)

	expectStatus(t, del(t, env.srv, "/api/v1/webhooks/"+id), http.StatusNoContent)
	expectStatus(t, del(t, env.srv, "/api/v1/webhooks/"+id), http.StatusNotFound)
}

func TestWebhook_Validation(t *testing.T) {
	env := newTestServer(t)
	cases := []struct {
		body any
		code string
	}{
		{map[string]any{}, "MISSING_URL"},
		{map[string]any{"url": "ftp://x"}, "INVALID_URL"},
		{map[string]any{"url": "http://x", "min_victims": -1}, "INVALID_THRESHOLD"},
		{"not an object", "INVALID_JSON"},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			resp := post(t, env.srv, "/api/v1/webhooks", tc.body)
			expectStatus(t, resp, http.StatusBadRequest)
			if e := decodeError(t, resp); e["code"] != tc.code {
				t.Errorf("code = %v, want %s", e["code"], tc.code)
			}
		})
	}
}

// ─── Admin ────────────────────────────────────────────────────────────────────

func TestRegenerate_ReplacesCorpusAndNotifies(t *testing.T) {
	env := newTestServer(t)

	var hits atomic.Int32
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hookSrv.Close()
	expectStatus(t, post(t, env.srv, "/api/v1/webhooks", map[string]any{"url": hookSrv.URL}), http.StatusCreated)

	resp := post(t, env.srv, "/api/v1/admin/regenerate", map[string]any{"seed": 7, "num_users": 30, "fraud_pct": 0})
	expectStatus(t, resp, http.StatusCreated)
	d := decodeData(t, resp)
	wantUsers := 30 + config.Default().Fishy.Total()
	if int(d["users"].(float64)) != wantUsers || d["job_id"] == "" || d["run_id"] == "" {
		t.Errorf("summary = %v", d)
	}

	env.notifier.Wait()
	if hits.Load() != 1 {
		t.Errorf("webhook hits = %d", hits.Load())
	}

	stats := decodeData(t, get(t, env.srv, "/api/v1/stats"))
	if int(stats["users"].(float64)) != wantUsers {
		t.Errorf("store still has %v users", stats["users"])
	}
}

func TestRegenerate_Validation(t *testing.T) {
	env := newTestServer(t)
	cases := []struct {
		name string
		body map[string]any
		code string
	}{
		{"too many users", map[string]any{"num_users": api.MaxUsers + 1}, "VALIDATION_ERROR"},
		{"negative users", map[string]any{"num_users": -3}, "VALIDATION_ERROR"},
		{"pct above 100", map[string]any{"num_users": 10, "fraud_pct": 101}, "VALIDATION_ERROR"},
		{"bad config value", map[string]any{"num_users": 10, "config": "connections:\n  accept_rate: 1.5\n"}, "INVALID_CONFIG"},
		{"unknown config key", map[string]any{"num_users": 10, "config": "nonsense: 1\n"}, "INVALID_CONFIG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, env.srv, "/api/v1/admin/regenerate", tc.body)
			expectStatus(t, resp, http.StatusBadRequest)
			if e := decodeError(t, resp); e["code"] != tc.code {
				t.Errorf("code = %v, want %s", e["code"], tc.code)
			}
		})
	}
}

package features_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/features"
	"corpuslab/atogen/internal/store"
	"corpuslab/atogen/internal/validate"
)

var t0 = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func userData(id, country string) features.UserData {
	return features.UserData{
		User: domain.User{
			UserID:        id,
			Country:       country,
			JoinDate:      t0.Add(-30 * 24 * time.Hour),
			EmailVerified: true,
			AccountTier:   domain.TierPremium,
		},
		Profile: domain.UserProfile{UserID: id, ConnectionsCount: 7, HasProfilePhoto: true, ProfileCompleteness: 0.8},
	}
}

type evOpt func(*store.Interaction)

func ev(uid string, typ domain.InteractionType, at time.Duration, opts ...evOpt) store.Interaction {
	e := store.Interaction{
		Interaction: domain.Interaction{
			ID:        fmt.Sprintf("%s-%s-%d", uid, typ, at),
			UserID:    uid,
			Type:      typ,
			Timestamp: t0.Add(at),
			IPAddress: "10.0.0.1",
			IPType:    domain.IPResidential,
			Metadata:  domain.Metadata{domain.MetaUserAgent: "Mozilla/5.0"},
		},
		SessionID: uid + "-s0001",
	}
	for _, o := range opts {
		o(&e)
	}
	return e
}

func failed(e *store.Interaction) { e.Metadata[domain.MetaLoginSuccess] = false }
func succeeded(e *store.Interaction) { e.Metadata[domain.MetaLoginSuccess] = true }
func attacker(e *store.Interaction) {
	e.AttackPattern = "smash_grab"
	e.IPType = domain.IPHosting
	e.IPAddress = "185.0.0.9"
	e.Metadata[domain.MetaAttackerCountry] = "RU"
}
func target(id string) evOpt { return func(e *store.Interaction) { e.TargetUserID = id } }
func ip(addr string) evOpt { return func(e *store.Interaction) { e.IPAddress = addr } }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// takeover builds a victim whose account is drained: three failed logins, a
// success, an export ten minutes later and a message burst five minutes
// after that.
func takeover() features.UserData {
	ud := userData("victim", "US")
	ud.Events = []store.Interaction{
		ev("victim", domain.AccountCreation, -20*24*time.Hour),
		ev("victim", domain.Login, 0, attacker, failed),
		ev("victim", domain.Login, time.Minute, attacker, failed),
		ev("victim", domain.Login, 2*time.Minute, attacker, failed),
		ev("victim", domain.Login, 3*time.Minute, attacker, succeeded),
		ev("victim", domain.DownloadAddressBook, 13*time.Minute, attacker),
	}
	for i := 0; i < 12; i++ {
		ud.Events = append(ud.Events, ev("victim", domain.MessageUser, 18*time.Minute+time.Duration(i)*time.Second,
			attacker, target(fmt.Sprintf("t%02d", i))))
	}
	return ud
}

// ─── Vectors ──────────────────────────────────────────────────────────────────

func TestExtract_VectorShape(t *testing.T) {
	vs := features.Extract([]features.UserData{userData("a", "US"), takeover()}, t0.Add(time.Hour))
	if len(vs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vs))
	}
	for _, v := range vs {
		if len(v.Values) != len(features.Names) {
			t.Errorf("%s: %d values, want %d", v.UserID, len(v.Values), len(features.Names))
		}
	}
	if vs[0].UserID != "a" || vs[1].UserID != "victim" {
		t.Errorf("order not preserved: %s, %s", vs[0].UserID, vs[1].UserID)
	}
}

func TestExtract_NoActivity(t *testing.T) {
	v := features.Extract([]features.UserData{userData("idle", "DE")}, t0)[0]

	if v.Get("days_since_last_activity") != features.NoActivityDays {
		t.Errorf("days_since_last_activity = %v", v.Get("days_since_last_activity"))
	}
	if v.Get("connections_count") != 7 || v.Get("account_tier_premium") != 1 || v.Get("email_verified") != 1 {
		t.Error("account features missing for idle user")
	}
	if v.Get("account_age_days") != 30 {
		t.Errorf("account_age_days = %v", v.Get("account_age_days"))
	}
	if v.Label {
		t.Error("idle user labelled as attacked")
	}
}

func TestExtract_TakeoverSignals(t *testing.T) {
	v := features.Extract([]features.UserData{takeover()}, t0.Add(time.Hour))[0]

	checks := map[string]float64{
		"login_to_download_minutes":        13,
		"download_to_first_spam_minutes":   5,
		"login_failures_before_success":    3,
		"spam_count_last_24h":              12,
		"unique_targets_messaged_last_24h": 12,
		"download_address_book_count":      1,
		"ip_country_mismatch":              1,
		"sessions_last_7d":                 1,
	}
	for name, want := range checks {
		if got := v.Get(name); !near(got, want) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if r := v.Get("ratio_hosting_ips"); !near(r, 17.0/18.0) {
		t.Errorf("ratio_hosting_ips = %v", r)
	}
	if !v.Label {
		t.Error("victim not labelled")
	}
}

func TestExtract_SharedIP(t *testing.T) {
	a, b, c := userData("a", "US"), userData("b", "US"), userData("c", "US")
	a.Events = []store.Interaction{ev("a", domain.Login, 0, ip("1.2.3.4"))}
	b.Events = []store.Interaction{ev("b", domain.Login, time.Hour, ip("1.2.3.4"))}
	c.Events = []store.Interaction{ev("c", domain.Login, 0, ip("5.6.7.8"))}

	vs := features.Extract([]features.UserData{a, b, c}, t0.Add(2*time.Hour))
	if vs[0].Get("same_ip_shared_with_others") != 1 || vs[1].Get("same_ip_shared_with_others") != 1 {
		t.Error("shared address not detected")
	}
	if vs[2].Get("same_ip_shared_with_others") != 0 {
		t.Error("private address reported as shared")
	}
}

func TestExtract_ScriptUserAgent(t *testing.T) {
	cases := map[string]bool{
		"python-requests/2.31":   true,
		"curl/8.4.0":             true,
		"Mozilla/5.0 Chrome/120": false,
		"Go-http-client/1.1":     true,
	}
	for ua, want := range cases {
		if got := features.IsScriptUserAgent(ua); got != want {
			t.Errorf("IsScriptUserAgent(%q) = %v, want %v", ua, got, want)
		}
	}
}

// ─── Sequences ────────────────────────────────────────────────────────────────

func TestSequences_KeepsMostRecent(t *testing.T) {
	ud := userData("u", "US")
	ud.Events = []store.Interaction{
		ev("u", domain.AccountCreation, 0),
		ev("u", domain.Login, 10*time.Minute, succeeded),
		ev("u", domain.ViewJob, 20*time.Minute),
		ev("u", domain.Login, 40*time.Minute, failed),
		ev("u", domain.ViewUserPage, 45*time.Minute, attacker),
	}
	seq := features.Sequences([]features.UserData{ud}, 3)[0]

	if len(seq.Tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(seq.Tokens))
	}
	first := seq.Tokens[0]
	if first.Action != features.ActionVocab[domain.ViewJob] {
		t.Errorf("first kept token is action %d", first.Action)
	}
	if first.DeltaMinutes != 10 {
		t.Errorf("first kept token lost its gap: %v", first.DeltaMinutes)
	}
	if first.Login != features.LoginNA {
		t.Errorf("non-login token has login state %d", first.Login)
	}
	if seq.Tokens[1].Login != features.LoginFalse {
		t.Errorf("failed login token = %d", seq.Tokens[1].Login)
	}
	last := seq.Tokens[2]
	if last.IPType != 2 || last.CountryChanged != 1 {
		t.Errorf("attack token = %+v", last)
	}
	if !seq.Label {
		t.Error("sequence with an attack event not labelled")
	}
}

func TestSequences_GapIsCapped(t *testing.T) {
	ud := userData("u", "US")
	ud.Events = []store.Interaction{
		ev("u", domain.Login, 0),
		ev("u", domain.Login, 30*24*time.Hour),
	}
	seq := features.Sequences([]features.UserData{ud}, 0)[0]
	if seq.Tokens[1].DeltaMinutes != 7*24*60 {
		t.Errorf("gap = %v, want one week", seq.Tokens[1].DeltaMinutes)
	}
	if seq.Tokens[0].Login != features.LoginNA {
		t.Errorf("login without flag = %d", seq.Tokens[0].Login)
	}
}

func TestActionVocab_ReservesPadding(t *testing.T) {
	seen := make(map[int]bool)
	for typ, tok := range features.ActionVocab {
		if tok == 0 {
			t.Errorf("%s mapped to padding", typ)
		}
		if seen[tok] {
			t.Errorf("token %d reused", tok)
		}
		seen[tok] = true
	}
}

// ─── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_ReadsWholeStore(t *testing.T) {
	ctx := context.Background()
	c, err := corpus.Generate(ctx, corpus.Options{
		Seed:     5,
		NumUsers: 40,
		FraudPct: 10,
		Now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	repo := store.NewMemory()
	if err := repo.InsertCorpus(ctx, c); err != nil {
		t.Fatalf("InsertCorpus: %v", err)
	}

	users, now, err := features.Load(ctx, repo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(users) != len(c.Users) {
		t.Fatalf("loaded %d users, want %d", len(users), len(c.Users))
	}
	for i := 1; i < len(users); i++ {
		if users[i].User.UserID <= users[i-1].User.UserID {
			t.Fatal("users not ordered by id")
		}
	}
	if want := c.Interactions[len(c.Interactions)-1].Timestamp; !now.Equal(want) {
		t.Errorf("now = %s, want %s", now, want)
	}

	attacked := make(map[string]bool)
	for _, ev := range c.Interactions {
		if validate.IsFraudEvent(ev) {
			attacked[ev.UserID] = true
		}
	}
	labelled := 0
	for _, v := range features.Extract(users, now) {
		if v.Label != attacked[v.UserID] {
			t.Errorf("%s: label %v, attacked %v", v.UserID, v.Label, attacked[v.UserID])
		}
		if v.Label {
			labelled++
		}
	}
	if labelled == 0 {
		t.Error("no user labelled in a corpus with attacks")
	}
}

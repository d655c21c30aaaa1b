package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/db"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/session"
	"corpuslab/atogen/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

var t0 = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

func user(id, email, country, pattern string, active bool) domain.User {
	return domain.User{
		UserID:              id,
		Email:               email,
		JoinDate:            t0.Add(-90 * 24 * time.Hour),
		Country:             country,
		Language:            "en",
		IPAddress:           "10.0.0.1",
		RegistrationIP:      "10.0.0.1",
		RegistrationCountry: country,
		IPType:              domain.IPResidential,
		IsActive:            active,
		GenerationPattern:   pattern,
		AccountTier:         domain.TierFree,
		EmailVerified:       true,
		UserType:            domain.UserRegular,
	}
}

func profile(id string, groups ...string) domain.UserProfile {
	return domain.UserProfile{
		UserID:              id,
		DisplayName:         "User " + id,
		ProfileCreatedAt:    t0.Add(-90 * 24 * time.Hour),
		ProfileCompleteness: 0.5,
		GroupsJoined:        groups,
	}
}

func event(id, uid string, typ domain.InteractionType, at time.Duration) domain.Interaction {
	return domain.Interaction{
		ID:        id,
		UserID:    uid,
		Type:      typ,
		Timestamp: t0.Add(at),
		IPAddress: "10.0.0.1",
		IPType:    domain.IPResidential,
		Metadata:  domain.Metadata{domain.MetaUserAgent: "test"},
	}
}

// fixture is a tiny three-user corpus. e4 and e5 share a timestamp.
func fixture() *corpus.Corpus {
	view := event("e4", "u-000001", domain.ViewUserPage, 2*time.Hour)
	view.TargetUserID = "u-000002"
	attack := event("f1", "u-000003", domain.Login, time.Hour)
	attack.AttackPattern = "smash_grab"
	attack.IPType = domain.IPHosting
	attack.Metadata = domain.Metadata{domain.MetaAttackerCountry: "RU"}

	return &corpus.Corpus{
		Users: []domain.User{
			user("u-000002", "b@example.com", "DE", domain.PatternClean, true),
			user("u-000001", "a@example.com", "US", domain.PatternClean, true),
			user("u-000003", "c@example.com", "US", "smash_grab", false),
		},
		Profiles: []domain.UserProfile{
			profile("u-000001", "grp-001", "grp-007"),
			profile("u-000002"),
			profile("u-000003"),
		},
		Interactions: []domain.Interaction{
			event("e1", "u-000001", domain.AccountCreation, 0),
			event("e2", "u-000001", domain.Login, time.Hour),
			attack,
			event("e3", "u-000002", domain.AccountCreation, time.Hour),
			view,
			event("e5", "u-000001", domain.ViewJob, 2*time.Hour),
		},
		Sessions: session.Table{
			"e1": "u-000001-s0001", "e2": "u-000001-s0002", "f1": "u-000003-a0001",
			"e3": "u-000002-s0001", "e4": "u-000001-s0002", "e5": "u-000001-s0002",
		},
	}
}

// backends returns every Repository implementation, loaded with fixture.
func backends(t *testing.T) map[string]store.Repository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	repos := map[string]store.Repository{
		"memory": store.NewMemory(),
		"sqlite": store.NewSQL(conn),
	}
	for name, r := range repos {
		if err := r.InsertCorpus(ctx, fixture()); err != nil {
			t.Fatalf("%s: InsertCorpus: %v", name, err)
		}
	}
	return repos
}

func ids(events []store.Interaction) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ─── Lookups ──────────────────────────────────────────────────────────────────

func TestGetUser(t *testing.T) {
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			u, err := r.GetUser(context.Background(), "u-000003")
			if err != nil {
				t.Fatalf("GetUser: %v", err)
			}
			if u.Email != "c@example.com" || u.IsActive || u.GenerationPattern != "smash_grab" {
				t.Errorf("unexpected user %+v", u)
			}
			if !u.JoinDate.Equal(t0.Add(-90 * 24 * time.Hour)) {
				t.Errorf("join date %s", u.JoinDate)
			}
			if _, err := r.GetUser(context.Background(), "u-999999"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestGetProfile_KeepsGroups(t *testing.T) {
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p, err := r.GetProfile(context.Background(), "u-000001")
			if err != nil {
				t.Fatalf("GetProfile: %v", err)
			}
			if !equal(p.GroupsJoined, []string{"grp-001", "grp-007"}) {
				t.Errorf("groups %v", p.GroupsJoined)
			}
			if _, err := r.GetProfile(context.Background(), "nobody"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

// ─── Lists ────────────────────────────────────────────────────────────────────

func TestListUsers(t *testing.T) {
	active := true
	cases := []struct {
		name   string
		filter store.UserFilter
		page   store.Page
		want   []string
		total  int
	}{
		{"all ordered by id", store.UserFilter{}, store.Page{}, []string{"u-000001", "u-000002", "u-000003"}, 3},
		{"by country", store.UserFilter{Country: "US"}, store.Page{}, []string{"u-000001", "u-000003"}, 2},
		{"active only", store.UserFilter{Active: &active}, store.Page{}, []string{"u-000001", "u-000002"}, 2},
		{"by pattern", store.UserFilter{Pattern: "smash_grab"}, store.Page{}, []string{"u-000003"}, 1},
		{"second page", store.UserFilter{}, store.Page{Limit: 2, Offset: 2}, []string{"u-000003"}, 3},
	}
	for name, r := range backends(t) {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				users, total, err := r.ListUsers(context.Background(), tc.filter, tc.page)
				if err != nil {
					t.Fatalf("ListUsers: %v", err)
				}
				got := make([]string, len(users))
				for i, u := range users {
					got[i] = u.UserID
				}
				if !equal(got, tc.want) {
					t.Errorf("got %v, want %v", got, tc.want)
				}
				if total != tc.total {
					t.Errorf("total %d, want %d", total, tc.total)
				}
			})
		}
	}
}

func TestListInteractions(t *testing.T) {
	cases := []struct {
		name   string
		filter store.InteractionFilter
		page   store.Page
		want   []string
		total  int
	}{
		{"all in corpus order", store.InteractionFilter{}, store.Page{}, []string{"e1", "e2", "f1", "e3", "e4", "e5"}, 6},
		{"fraud only", store.InteractionFilter{FraudOnly: true}, store.Page{}, []string{"f1"}, 1},
		{"by type", store.InteractionFilter{Type: domain.AccountCreation}, store.Page{}, []string{"e1", "e3"}, 2},
		{"by user", store.InteractionFilter{UserID: "u-000001"}, store.Page{}, []string{"e1", "e2", "e4", "e5"}, 4},
		{"time window", store.InteractionFilter{Since: t0.Add(time.Hour), Until: t0.Add(2 * time.Hour)}, store.Page{}, []string{"e2", "f1", "e3"}, 3},
		{"paged", store.InteractionFilter{}, store.Page{Limit: 2, Offset: 1}, []string{"e2", "f1"}, 6},
	}
	for name, r := range backends(t) {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				events, total, err := r.ListInteractions(context.Background(), tc.filter, tc.page)
				if err != nil {
					t.Fatalf("ListInteractions: %v", err)
				}
				if got := ids(events); !equal(got, tc.want) {
					t.Errorf("got %v, want %v", got, tc.want)
				}
				if total != tc.total {
					t.Errorf("total %d, want %d", total, tc.total)
				}
			})
		}
	}
}

func TestInteractionsByUser_StableOrderWithSessions(t *testing.T) {
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			events, err := r.InteractionsByUser(context.Background(), "u-000001")
			if err != nil {
				t.Fatalf("InteractionsByUser: %v", err)
			}
			if got := ids(events); !equal(got, []string{"e1", "e2", "e4", "e5"}) {
				t.Fatalf("order %v", got)
			}
			if events[2].SessionID != "u-000001-s0002" {
				t.Errorf("session %q", events[2].SessionID)
			}
			if events[2].TargetUserID != "u-000002" {
				t.Errorf("target %q", events[2].TargetUserID)
			}
			if events[0].Metadata.String(domain.MetaUserAgent) != "test" {
				t.Errorf("metadata %v", events[0].Metadata)
			}
		})
	}
}

func TestAttackEventRoundTrip(t *testing.T) {
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			events, err := r.InteractionsByUser(context.Background(), "u-000003")
			if err != nil {
				t.Fatalf("InteractionsByUser: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			ev := events[0]
			if ev.AttackPattern != "smash_grab" || ev.IPType != domain.IPHosting {
				t.Errorf("unexpected event %+v", ev)
			}
			if ev.Metadata.String(domain.MetaAttackerCountry) != "RU" {
				t.Errorf("attacker country lost: %v", ev.Metadata)
			}
			if !ev.Timestamp.Equal(t0.Add(time.Hour)) {
				t.Errorf("timestamp %s", ev.Timestamp)
			}
		})
	}
}

// ─── Aggregates ───────────────────────────────────────────────────────────────

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if n, _ := r.CountUsers(ctx); n != 3 {
				t.Errorf("CountUsers = %d", n)
			}
			if n, _ := r.CountInteractions(ctx); n != 6 {
				t.Errorf("CountInteractions = %d", n)
			}
			byType, err := r.CountInteractionsByType(ctx)
			if err != nil {
				t.Fatalf("CountInteractionsByType: %v", err)
			}
			if byType[domain.AccountCreation] != 2 || byType[domain.Login] != 2 || byType[domain.ViewJob] != 1 {
				t.Errorf("by type %v", byType)
			}
			active, err := r.ActiveUserIDs(ctx)
			if err != nil {
				t.Fatalf("ActiveUserIDs: %v", err)
			}
			if !equal(active, []string{"u-000001", "u-000002"}) {
				t.Errorf("active %v", active)
			}
		})
	}
}

// ─── Writes ───────────────────────────────────────────────────────────────────

func TestInsertCorpus_Replaces(t *testing.T) {
	ctx := context.Background()
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := fixture()
			c.Users = c.Users[:1]
			c.Profiles = c.Profiles[1:2]
			c.Interactions = []domain.Interaction{c.Interactions[3]}
			if err := r.InsertCorpus(ctx, c); err != nil {
				t.Fatalf("InsertCorpus: %v", err)
			}
			if n, _ := r.CountUsers(ctx); n != 1 {
				t.Errorf("CountUsers = %d after replace", n)
			}
			if n, _ := r.CountInteractions(ctx); n != 1 {
				t.Errorf("CountInteractions = %d after replace", n)
			}
			if _, err := r.GetUser(ctx, "u-000001"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("old user still present: %v", err)
			}
		})
	}
}

func TestInsertCorpus_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := fixture()
			c.Interactions = append(c.Interactions, c.Interactions[0])
			if err := r.InsertCorpus(ctx, c); !errors.Is(err, store.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}
			if n, _ := r.CountInteractions(ctx); n != 6 {
				t.Errorf("rejected insert changed the store: %d interactions", n)
			}
		})
	}
}

func TestSQL_TargetIsNullableForeignKey(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	repo := store.NewSQL(conn)
	if err := repo.InsertCorpus(ctx, fixture()); err != nil {
		t.Fatalf("InsertCorpus: %v", err)
	}

	var untargeted int
	if err := conn.Get(&untargeted, `SELECT COUNT(*) FROM user_interactions WHERE target_user_id IS NULL`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if untargeted != 5 {
		t.Errorf("expected 5 NULL targets, got %d", untargeted)
	}
	var target string
	if err := conn.Get(&target, `SELECT target_user_id FROM user_interactions WHERE interaction_id = 'e4'`); err != nil {
		t.Fatalf("select target: %v", err)
	}
	if target != "u-000002" {
		t.Errorf("target = %q", target)
	}

	c := fixture()
	dangling := event("e9", "u-000001", domain.ViewUserPage, 3*time.Hour)
	dangling.TargetUserID = "u-999999"
	c.Interactions = append(c.Interactions, dangling)
	if err := repo.InsertCorpus(ctx, c); err == nil {
		t.Error("event targeting an unknown user was stored")
	}
}

func TestPage_Normalize(t *testing.T) {
	cases := []struct {
		in, want store.Page
	}{
		{store.Page{}, store.Page{Limit: store.DefaultLimit}},
		{store.Page{Limit: 10, Offset: -4}, store.Page{Limit: 10}},
		{store.Page{Limit: 100000, Offset: 3}, store.Page{Limit: store.MaxLimit, Offset: 3}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

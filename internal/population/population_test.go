package population_test

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/population"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func generate(t *testing.T, seed int64, n int, cfg *config.Config) *population.Population {
	t.Helper()
	pop, err := population.Generate(rand.New(rand.NewSource(seed)), testNow, n, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return pop
}

func noFishy(c *config.Config) { c.Fishy = config.Fishy{} }

// ─── Regular users ────────────────────────────────────────────────────────────

func TestGenerate_RegularUsersOnly(t *testing.T) {
	cfg, _ := config.New(noFishy)
	pop := generate(t, 42, 100, cfg)

	if len(pop.Users) != 100 || len(pop.Profiles) != 100 {
		t.Fatalf("expected 100 users and profiles, got %d/%d", len(pop.Users), len(pop.Profiles))
	}
	if len(pop.FishyIDs()) != 0 {
		t.Errorf("expected no fishy accounts, got %d", len(pop.FishyIDs()))
	}
	for i, u := range pop.Users {
		if u.UserID != population.UserID(i) {
			t.Errorf("user %d has id %s", i, u.UserID)
		}
		if u.GenerationPattern != domain.PatternClean {
			t.Errorf("%s: expected clean pattern, got %s", u.UserID, u.GenerationPattern)
		}
		if !domain.ValidCountry(u.Country) || !domain.ValidLanguage(u.Language) {
			t.Errorf("%s: bad country/language %s/%s", u.UserID, u.Country, u.Language)
		}
	}
}

func TestGenerate_EmailsUnique(t *testing.T) {
	pop := generate(t, 7, 500, config.Default())
	seen := map[string]string{}
	for _, u := range pop.Users {
		if prev, dup := seen[u.Email]; dup {
			t.Fatalf("email %s shared by %s and %s", u.Email, prev, u.UserID)
		}
		seen[u.Email] = u.UserID
		if strings.ContainsAny(u.Email, "äöüß ") {
			t.Errorf("email not normalised: %s", u.Email)
		}
	}
}

func TestGenerate_ProfilesFollowUsers(t *testing.T) {
	pop := generate(t, 3, 200, config.Default())
	for i, p := range pop.Profiles {
		u := pop.Users[i]
		if p.UserID != u.UserID {
			t.Fatalf("profile %d belongs to %s, want %s", i, p.UserID, u.UserID)
		}
		if p.ProfileCreatedAt.Before(u.JoinDate) {
			t.Errorf("%s: profile created before join", u.UserID)
		}
		if p.ProfileCreatedAt.After(testNow) {
			t.Errorf("%s: profile created after now", u.UserID)
		}
		if p.ConnectionsCount != 0 {
			t.Errorf("%s: draft profile should carry no connections, got %d", u.UserID, p.ConnectionsCount)
		}
	}
}

// ─── Fishy accounts ───────────────────────────────────────────────────────────

func TestGenerate_FishyAccountsFollowRegularUsers(t *testing.T) {
	cfg := config.Default()
	pop := generate(t, 11, 50, cfg)

	if want := 50 + cfg.Fishy.Total(); len(pop.Users) != want {
		t.Fatalf("expected %d users, got %d", want, len(pop.Users))
	}
	idx := pop.UserIndex()
	for kind, ids := range pop.Fishy {
		for _, id := range ids {
			u := pop.Users[idx[id]]
			if idx[id] < 50 {
				t.Errorf("fishy %s placed among regular users", id)
			}
			if u.GenerationPattern != string(kind) {
				t.Errorf("%s: pattern %s, want %s", id, u.GenerationPattern, kind)
			}
			if !u.IsActive {
				t.Errorf("%s: fishy account should start active", id)
			}
		}
	}
	if got := len(pop.Fishy[population.KindFakeAccount]); got != cfg.Fishy.FakeAccount {
		t.Errorf("expected %d fake accounts, got %d", cfg.Fishy.FakeAccount, got)
	}
}

func TestGenerate_GroupSpamAccountsHaveGroups(t *testing.T) {
	pop := generate(t, 5, 20, config.Default())
	idx := pop.UserIndex()
	for _, id := range pop.Fishy[population.KindGroupSpam] {
		if len(pop.Profiles[idx[id]].GroupsJoined) == 0 {
			t.Errorf("%s: group spammer without groups", id)
		}
	}
}

// ─── Determinism ──────────────────────────────────────────────────────────────

func TestGenerate_SameSeedSamePopulation(t *testing.T) {
	a := generate(t, 99, 120, config.Default())
	b := generate(t, 99, 120, config.Default())
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different populations")
	}
	c := generate(t, 100, 120, config.Default())
	if reflect.DeepEqual(a.Users, c.Users) {
		t.Error("different seeds produced identical users")
	}
}

func TestRandomIP_Shape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, c := range []string{"US", "RU", "IN", "BR", "NG", "??"} {
		ip := population.RandomIP(rng, c)
		if strings.Count(ip, ".") != 3 {
			t.Errorf("%s: malformed ip %s", c, ip)
		}
	}
}

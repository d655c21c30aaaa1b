package legit_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/legit"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func newUser(t *testing.T, joinedDaysAgo int, active bool, userType domain.UserType) domain.User {
	t.Helper()
	u, err := domain.NewUser(domain.User{
		UserID:              "u-000000",
		Email:               "jane.doe@example.com",
		JoinDate:            testNow.Add(-time.Duration(joinedDaysAgo) * 24 * time.Hour),
		Country:             "US",
		Language:            "en",
		IPAddress:           "73.12.40.8",
		RegistrationIP:      "73.12.40.8",
		RegistrationCountry: "US",
		IPType:              domain.IPResidential,
		IsActive:            active,
		GenerationPattern:   domain.PatternClean,
		AccountTier:         domain.TierFree,
		UserType:            userType,
	}, testNow)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	return u
}

func userIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("u-%06d", i)
	}
	return ids
}

func input(u domain.User, seed int64) legit.Input {
	return legit.Input{
		User:        u,
		UserIDs:     userIDs(60),
		WindowStart: testNow.Add(-60 * 24 * time.Hour),
		Now:         testNow,
		Rng:         rand.New(rand.NewSource(seed)),
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64)",
		Config:      config.Default(),
	}
}

// checkContract asserts the shared rules every archetype obeys.
func checkContract(t *testing.T, in legit.Input, events []domain.Interaction) {
	t.Helper()
	sorted := append([]domain.Interaction(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var lastLogin *time.Time
	viewed := map[string]time.Time{}
	closes := 0
	for i, ev := range sorted {
		if ev.Timestamp.Before(in.Start()) || ev.Timestamp.After(in.Now) {
			t.Errorf("%s at %s outside window", ev.Type, ev.Timestamp)
		}
		if ev.IsFraud() {
			t.Errorf("legit event %s tagged as fraud", ev.ID)
		}
		switch ev.Type {
		case domain.DownloadAddressBook, domain.SessionLogin, domain.PhishingLogin, domain.AccountCreation:
			t.Errorf("forbidden type %s", ev.Type)
		case domain.Login:
			if ev.LoginSucceeded() {
				ts := ev.Timestamp
				lastLogin = &ts
			}
			continue
		case domain.CloseAccount:
			closes++
			if i != len(sorted)-1 {
				t.Errorf("CLOSE_ACCOUNT at index %d of %d", i, len(sorted))
			}
			continue
		case domain.ViewUserPage:
			if _, ok := viewed[ev.TargetUserID]; !ok {
				viewed[ev.TargetUserID] = ev.Timestamp
			}
		}
		if lastLogin == nil || lastLogin.After(ev.Timestamp) {
			t.Errorf("%s %s has no earlier successful login", ev.Type, ev.ID)
		}
		if ev.Type.IsOutreach() {
			if v, ok := viewed[ev.TargetUserID]; !ok || v.After(ev.Timestamp) {
				t.Errorf("%s to %s without an earlier view", ev.Type, ev.TargetUserID)
			}
		}
	}
	if !in.User.IsActive && closes != 1 {
		t.Errorf("inactive user should close exactly once, got %d", closes)
	}
	if in.User.IsActive && closes != 0 {
		t.Errorf("active user closed %d times", closes)
	}
}

// ─── Archetypes ───────────────────────────────────────────────────────────────

func TestGenerate_EveryPatternHonoursContract(t *testing.T) {
	for _, p := range legit.Patterns {
		for seed := int64(1); seed <= 5; seed++ {
			t.Run(fmt.Sprintf("%s/%d", p, seed), func(t *testing.T) {
				joined := 120
				if p == legit.NewUserOnboarding {
					joined = 5
				}
				in := input(newUser(t, joined, seed%2 == 0, domain.UserRegular), seed)
				events, counter, err := legit.Generate(p, in, 10)
				if err != nil {
					t.Fatalf("Generate: %v", err)
				}
				if counter != 10+len(events) {
					t.Errorf("counter %d does not match %d events", counter, len(events))
				}
				for i, ev := range events {
					if ev.ID != legit.EventID(10+i) {
						t.Errorf("event %d has id %s", i, ev.ID)
					}
				}
				checkContract(t, in, events)
			})
		}
	}
}

func TestGenerate_RecruiterSearchesBeforeViewing(t *testing.T) {
	in := input(newUser(t, 200, true, domain.UserRecruiter), 3)
	events, _, err := legit.Generate(legit.Recruiter, in, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	searches, connects := 0, 0
	for _, ev := range events {
		switch ev.Type {
		case domain.SearchCandidates:
			searches++
		case domain.ConnectWithUser:
			connects++
		}
	}
	if searches < 3 || connects < 3*15 {
		t.Errorf("expected a search-heavy funnel, got %d searches and %d connects", searches, connects)
	}
}

func TestGenerate_ExecDelegationLogsInFromPhilippines(t *testing.T) {
	in := input(newUser(t, 200, true, domain.UserRegular), 8)
	events, _, err := legit.Generate(legit.ExecDelegation, in, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	logins := 0
	for _, ev := range events {
		if ev.Type != domain.Login || !ev.LoginSucceeded() {
			continue
		}
		logins++
		if ev.Metadata.String(domain.MetaIPCountry) != "PH" {
			t.Errorf("delegated login from %s", ev.Metadata.String(domain.MetaIPCountry))
		}
		if ok, _ := ev.Metadata.Bool("delegated_access"); !ok {
			t.Error("missing delegated_access flag")
		}
	}
	if logins < 6 {
		t.Errorf("expected at least 6 delegated sessions, got %d", logins)
	}
}

func TestGenerate_UnknownPattern(t *testing.T) {
	in := input(newUser(t, 30, true, domain.UserRegular), 1)
	if _, _, err := legit.Generate(legit.Pattern("doomscroll"), in, 0); err == nil {
		t.Error("expected error for unknown pattern")
	}
}

func TestAccountCreation_AtWindowStartFromRegistrationIP(t *testing.T) {
	u := newUser(t, 400, true, domain.UserRegular)
	in := input(u, 1)
	ev, next, err := legit.AccountCreation(in, 7)
	if err != nil {
		t.Fatalf("AccountCreation: %v", err)
	}
	if next != 8 || ev.ID != "evt-00000007" {
		t.Errorf("unexpected id/counter %s/%d", ev.ID, next)
	}
	if !ev.Timestamp.Equal(in.WindowStart) {
		t.Errorf("old account should open at window start, got %s", ev.Timestamp)
	}
	if ev.IPAddress != u.RegistrationIP {
		t.Errorf("expected registration ip, got %s", ev.IPAddress)
	}
}

// ─── Selection ────────────────────────────────────────────────────────────────

func TestSelect_Overrides(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(1))
	if got := legit.Select(rng, newUser(t, 3, true, domain.UserRecruiter), testNow, cfg); got != legit.Recruiter {
		t.Errorf("recruiter should always be Recruiter, got %s", got)
	}
	if got := legit.Select(rng, newUser(t, 3, true, domain.UserRegular), testNow, cfg); got != legit.NewUserOnboarding {
		t.Errorf("new user should onboard, got %s", got)
	}
}

func TestSelect_WeightedFallbackUsesPositiveWeights(t *testing.T) {
	cfg, err := config.New(func(c *config.Config) {
		c.UsagePatterns.ReturningUserPct = 0
		c.UsagePatterns.CareerUpdatePct = 0
		c.UsagePatterns.ExecDelegationPct = 0
		c.UsagePatterns.DormantAccountPct = 0
		for k := range c.UsagePatterns.PatternWeights {
			c.UsagePatterns.PatternWeights[k] = 0
		}
		c.UsagePatterns.PatternWeights["weekly_check_in"] = 1
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	rng := rand.New(rand.NewSource(2))
	u := newUser(t, 90, true, domain.UserRegular)
	for i := 0; i < 50; i++ {
		if got := legit.Select(rng, u, testNow, cfg); got != legit.WeeklyCheckIn {
			t.Fatalf("expected weekly_check_in, got %s", got)
		}
	}
}

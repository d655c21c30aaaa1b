package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"corpuslab/atogen/internal/domain"
)

var (
	past = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	now  = past.Add(30 * 24 * time.Hour)
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func validUser() domain.User {
	return domain.User{
		UserID:              "u-000001",
		Email:               "ana.silva@example.com",
		JoinDate:            past,
		Country:             "BR",
		Language:            "pt",
		IPAddress:           "177.10.20.30",
		RegistrationIP:      "177.10.20.30",
		RegistrationCountry: "BR",
		IPType:              domain.IPResidential,
		IsActive:            true,
		GenerationPattern:   domain.PatternClean,
		AccountTier:         domain.TierFree,
		UserType:            domain.UserRegular,
	}
}

func validEvent() domain.Interaction {
	return domain.Interaction{
		ID:           "evt-00000001",
		UserID:       "u-000001",
		Type:         domain.MessageUser,
		Timestamp:    past.Add(time.Hour),
		IPAddress:    "177.10.20.30",
		IPType:       domain.IPResidential,
		TargetUserID: "u-000002",
	}
}

func problems(t *testing.T, err error) string {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !errors.Is(err, domain.ErrInvalidEntity) {
		t.Error("validation error does not wrap ErrInvalidEntity")
	}
	return strings.Join(verr.Problems, "; ")
}

// ─── User ─────────────────────────────────────────────────────────────────────

func TestNewUser_Valid(t *testing.T) {
	u := validUser()
	u.JoinDate = past.In(time.FixedZone("BRT", -3*3600))
	got, err := domain.NewUser(u, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.JoinDate.Location() != time.UTC {
		t.Error("join_date not normalised to UTC")
	}
}

func TestNewUser_Rejects(t *testing.T) {
	future := now.Add(time.Hour)
	beforeJoin := past.Add(-time.Hour)
	cases := []struct {
		name   string
		mutate func(*domain.User)
		want   string
	}{
		{"bad email", func(u *domain.User) { u.Email = "not-an-email" }, "email"},
		{"unknown country", func(u *domain.User) { u.Country = "XX" }, "country"},
		{"unknown language", func(u *domain.User) { u.Language = "xx" }, "language"},
		{"bad ip", func(u *domain.User) { u.IPAddress = "999.1.1.1" }, "ip_address"},
		{"bad ip type", func(u *domain.User) { u.IPType = "satellite" }, "ip_type"},
		{"bad tier", func(u *domain.User) { u.AccountTier = "gold" }, "account_tier"},
		{"future join", func(u *domain.User) { u.JoinDate = future }, "join_date must not be in the future"},
		{"password before join", func(u *domain.User) { u.LastPasswordChangeAt = &beforeJoin }, "last_password_change_at must be >= join_date"},
		{"negative streak", func(u *domain.User) { u.FailedLoginStreak = -1 }, "failed_login_streak"},
		{"missing pattern", func(u *domain.User) { u.GenerationPattern = "" }, "generation_pattern"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := validUser()
			tc.mutate(&u)
			_, err := domain.NewUser(u, now)
			if p := problems(t, err); !strings.Contains(p, tc.want) {
				t.Errorf("problems %q do not mention %q", p, tc.want)
			}
		})
	}
}

func TestNewUser_FutureIsRelativeToNow(t *testing.T) {
	ahead := time.Now().UTC().Add(72 * time.Hour)
	u := validUser()
	u.JoinDate = ahead.Add(-time.Hour)
	if _, err := domain.NewUser(u, ahead); err != nil {
		t.Errorf("join before the reference instant rejected: %v", err)
	}
	if _, err := domain.NewUser(u, past); err == nil {
		t.Error("join after the reference instant accepted")
	}

	ev := validEvent()
	ev.Timestamp = ahead.Add(-time.Minute)
	if _, err := domain.NewInteraction(ev, ahead); err != nil {
		t.Errorf("event before the reference instant rejected: %v", err)
	}
	if _, err := domain.NewInteraction(ev, ahead.Add(-2*time.Minute)); err == nil {
		t.Error("event after the reference instant accepted")
	}
}

func TestNewUser_ReportsEveryProblem(t *testing.T) {
	u := validUser()
	u.Country = "XX"
	u.Language = "xx"
	_, err := domain.NewUser(u, now)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", err)
	}
}

func TestUser_CopiesOnChange(t *testing.T) {
	u := validUser()
	v := u.WithGenerationPattern("smash_grab").Deactivated()
	if u.GenerationPattern != domain.PatternClean || !u.IsActive {
		t.Error("original user mutated")
	}
	if v.GenerationPattern != "smash_grab" || v.IsActive {
		t.Errorf("copy = %+v", v)
	}
}

// ─── Profile ──────────────────────────────────────────────────────────────────

func TestNewUserProfile(t *testing.T) {
	p := domain.UserProfile{
		UserID:              "u-000001",
		DisplayName:         "Ana Silva",
		ProfileCreatedAt:    past,
		ProfileCompleteness: 0.6,
	}
	if _, err := domain.NewUserProfile(p, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.DisplayName = " Ana"
	if _, err := domain.NewUserProfile(p, now); !strings.Contains(problems(t, err), "display_name") {
		t.Error("untrimmed display name accepted")
	}

	p.DisplayName = "Ana"
	earlier := past.Add(-time.Minute)
	p.LastUpdatedAt = &earlier
	if _, err := domain.NewUserProfile(p, now); !strings.Contains(problems(t, err), "last_updated_at") {
		t.Error("update before creation accepted")
	}
}

func TestCompleteness(t *testing.T) {
	if got := domain.Completeness("Ana", "", "", true, "Lisbon"); got != 0.6 {
		t.Errorf("Completeness = %v, want 0.6", got)
	}
	if got := domain.Completeness("", "", "", false, ""); got != 0 {
		t.Errorf("empty profile = %v", got)
	}
}

// ─── Interaction ──────────────────────────────────────────────────────────────

func TestNewInteraction_Targets(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Interaction)
		want   string
	}{
		{"missing target", func(i *domain.Interaction) { i.TargetUserID = "" }, "requires target_user_id"},
		{"self target", func(i *domain.Interaction) { i.TargetUserID = i.UserID }, "must differ"},
		{"target on login", func(i *domain.Interaction) { i.Type = domain.Login }, "must not have target_user_id"},
		{"unknown type", func(i *domain.Interaction) { i.Type = "teleport" }, "interaction_type"},
		{"future", func(i *domain.Interaction) { i.Timestamp = now.Add(time.Second) }, "future"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent()
			tc.mutate(&ev)
			_, err := domain.NewInteraction(ev, now)
			if p := problems(t, err); !strings.Contains(p, tc.want) {
				t.Errorf("problems %q do not mention %q", p, tc.want)
			}
		})
	}

	ev := validEvent()
	ev.Type = domain.ApplyToJob
	if _, err := domain.NewInteraction(ev, now); err != nil {
		t.Errorf("optional target rejected: %v", err)
	}
}

func TestNewInteraction_DefaultsMetadata(t *testing.T) {
	ev, err := domain.NewInteraction(validEvent(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Metadata == nil {
		t.Error("metadata left nil")
	}
}

func TestLoginSucceeded(t *testing.T) {
	login := domain.Interaction{Type: domain.Login, Metadata: domain.Metadata{}}
	if !login.LoginSucceeded() {
		t.Error("login without flag should count as success")
	}
	login.Metadata[domain.MetaLoginSuccess] = false
	if login.LoginSucceeded() {
		t.Error("failed login counted as success")
	}
	view := domain.Interaction{Type: domain.ViewJob}
	if view.LoginSucceeded() {
		t.Error("non-login event counted as login")
	}
}

func TestParseInteractionType(t *testing.T) {
	for _, typ := range domain.AllInteractionTypes() {
		if got, err := domain.ParseInteractionType(string(typ)); err != nil || got != typ {
			t.Errorf("ParseInteractionType(%s) = %v, %v", typ, got, err)
		}
	}
	if _, err := domain.ParseInteractionType("LOGIN"); err == nil {
		t.Error("upper-case type accepted")
	}
}

// Package features turns a stored corpus into per-user inputs for detection:
// a fixed-order numeric vector and a tokenized action sequence. The label of
// both is whether the user has any attack event.
package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/store"
	"corpuslab/atogen/internal/validate"
)

// Names lists the vector components in order.
var Names = []string{
	// tempo
	"login_to_download_minutes",
	"download_to_first_spam_minutes",
	"interactions_per_hour_1h",
	"interactions_per_hour_24h",
	"first_login_to_close_hours",
	// geo / ip
	"ip_country_mismatch",
	"ip_country_changes_last_7d",
	"ratio_hosting_ips",
	"num_distinct_ips_last_24h",
	// pattern
	"login_failures_before_success",
	"spam_count_last_24h",
	"unique_targets_messaged_last_24h",
	"download_address_book_count",
	// session
	"same_ip_shared_with_others",
	"sessions_last_7d",
	// profile
	"connections_count",
	"has_profile_photo",
	"profile_completeness",
	"endorsements_count",
	"profile_views_received",
	// account trust
	"email_verified",
	"two_factor_enabled",
	"phone_verified",
	"account_tier_premium",
	"account_tier_enterprise",
	"failed_login_streak",
	"account_age_days",
	// derived
	"hour_of_day_sin",
	"hour_of_day_cos",
	"days_since_last_activity",
	"script_user_agent",
}

var index = func() map[string]int {
	m := make(map[string]int, len(Names))
	for i, n := range Names {
		m[n] = i
	}
	return m
}()

// NoActivityDays is days_since_last_activity for a user without events.
const NoActivityDays = 999

// UserData is one user with everything extraction reads.
type UserData struct {
	User    domain.User
	Profile domain.UserProfile
	Events  []store.Interaction // timestamp order
}

// Vector is the feature row of one user.
type Vector struct {
	UserID string
	Values []float64
	Label  bool
}

// Get returns the named component, or 0 for an unknown name.
func (v Vector) Get(name string) float64 {
	i, ok := index[name]
	if !ok || i >= len(v.Values) {
		return 0
	}
	return v.Values[i]
}

func (v Vector) set(name string, x float64) { v.Values[index[name]] = x }

// Load reads every user, profile and event from repo, ordered by user id,
// and returns the latest event timestamp as the reference instant.
func Load(ctx context.Context, repo store.Repository) ([]UserData, time.Time, error) {
	var out []UserData
	var now time.Time
	for offset := 0; ; {
		users, total, err := repo.ListUsers(ctx, store.UserFilter{}, store.Page{Limit: store.MaxLimit, Offset: offset})
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("features: list users: %w", err)
		}
		for _, u := range users {
			p, err := repo.GetProfile(ctx, u.UserID)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("features: profile %s: %w", u.UserID, err)
			}
			events, err := repo.InteractionsByUser(ctx, u.UserID)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("features: events of %s: %w", u.UserID, err)
			}
			if n := len(events); n > 0 && events[n-1].Timestamp.After(now) {
				now = events[n-1].Timestamp
			}
			out = append(out, UserData{User: u, Profile: p, Events: events})
		}
		offset += len(users)
		if len(users) == 0 || offset >= total {
			break
		}
	}
	return out, now, nil
}

// Label reports whether events contain an attack event.
func Label(events []store.Interaction) bool {
	for _, ev := range events {
		if validate.IsFraudEvent(ev.Interaction) {
			return true
		}
	}
	return false
}

// ─── Vectors ──────────────────────────────────────────────────────────────────

// Extract computes one vector per user, in input order. now anchors the
// recency and age features.
func Extract(users []UserData, now time.Time) []Vector {
	shared := sharedIPs(users)
	out := make([]Vector, len(users))
	for i, ud := range users {
		out[i] = extract(ud, now, shared)
	}
	return out
}

// sharedIPs returns the addresses two or more users touched within 24h of
// their own last event.
func sharedIPs(users []UserData) map[string]bool {
	owners := make(map[string]map[string]bool)
	for _, ud := range users {
		if len(ud.Events) == 0 {
			continue
		}
		since := lastTS(ud.Events).Add(-24 * time.Hour)
		for _, ev := range ud.Events {
			if ev.Timestamp.Before(since) {
				continue
			}
			if owners[ev.IPAddress] == nil {
				owners[ev.IPAddress] = make(map[string]bool)
			}
			owners[ev.IPAddress][ud.User.UserID] = true
		}
	}
	out := make(map[string]bool)
	for ip, users := range owners {
		if len(users) >= 2 {
			out[ip] = true
		}
	}
	return out
}

func lastTS(events []store.Interaction) time.Time {
	var out time.Time
	for _, ev := range events {
		if ev.Timestamp.After(out) {
			out = ev.Timestamp
		}
	}
	return out
}

// ipCountry is the country an event was seen from.
func ipCountry(ev domain.Interaction) string {
	if c := ev.Metadata.String(domain.MetaIPCountry); c != "" {
		return c
	}
	return ev.Metadata.String(domain.MetaAttackerCountry)
}

var scriptHints = []string{
	"python", "requests", "curl", "wget", "httpie", "postman", "scrapy",
	"go-http", "java/", "okhttp", "node-fetch", "axios", "apache-http",
	"slackbot", "bot",
}

// IsScriptUserAgent reports whether ua looks like an automation client.
func IsScriptUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	for _, h := range scriptHints {
		if strings.Contains(ua, h) {
			return true
		}
	}
	return false
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func extract(ud UserData, now time.Time, shared map[string]bool) Vector {
	v := Vector{UserID: ud.User.UserID, Values: make([]float64, len(Names)), Label: Label(ud.Events)}
	accountFeatures(v, ud, now)
	if len(ud.Events) == 0 {
		v.set("days_since_last_activity", NoActivityDays)
		return v
	}

	last := lastTS(ud.Events)
	h1, h24, d7 := last.Add(-time.Hour), last.Add(-24*time.Hour), last.Add(-7*24*time.Hour)

	var (
		firstLogin, firstDownload, firstMessage, firstClose, firstSuccess time.Time
		in1h, in24h, hosting, spam24h, downloads                         int
		first24h                                                         = last
		ips24h                                                           = make(map[string]bool)
		targets24h                                                       = make(map[string]bool)
		sessions7d                                                       = make(map[string]bool)
		countries7d                                                      []string
		mismatch, script, sharedIP                                       bool
	)
	firstOf := func(t *time.Time, ts time.Time) {
		if t.IsZero() || ts.Before(*t) {
			*t = ts
		}
	}
	for _, ev := range ud.Events {
		ts := ev.Timestamp
		switch ev.Type {
		case domain.Login:
			firstOf(&firstLogin, ts)
			if ok, present := ev.Metadata.Bool(domain.MetaLoginSuccess); present && ok {
				firstOf(&firstSuccess, ts)
			}
		case domain.DownloadAddressBook:
			firstOf(&firstDownload, ts)
			downloads++
		case domain.MessageUser:
			firstOf(&firstMessage, ts)
		case domain.CloseAccount:
			firstOf(&firstClose, ts)
		}
		if c := ipCountry(ev.Interaction); c != "" {
			if c != ud.User.Country {
				mismatch = true
			}
			if !ts.Before(d7) {
				countries7d = append(countries7d, c)
			}
		}
		if ev.IPType == domain.IPHosting {
			hosting++
		}
		if IsScriptUserAgent(ev.Metadata.String(domain.MetaUserAgent)) {
			script = true
		}
		if !ts.Before(h1) {
			in1h++
		}
		if !ts.Before(d7) && ev.SessionID != "" {
			sessions7d[ev.SessionID] = true
		}
		if ts.Before(h24) {
			continue
		}
		in24h++
		if ts.Before(first24h) {
			first24h = ts
		}
		ips24h[ev.IPAddress] = true
		if shared[ev.IPAddress] {
			sharedIP = true
		}
		if ev.Type == domain.MessageUser {
			spam24h++
			if ev.TargetUserID != "" {
				targets24h[ev.TargetUserID] = true
			}
		}
	}

	if !firstLogin.IsZero() && !firstDownload.IsZero() && !firstDownload.Before(firstLogin) {
		v.set("login_to_download_minutes", firstDownload.Sub(firstLogin).Minutes())
	}
	if !firstDownload.IsZero() && !firstMessage.IsZero() && !firstMessage.Before(firstDownload) {
		v.set("download_to_first_spam_minutes", firstMessage.Sub(firstDownload).Minutes())
	}
	if !firstLogin.IsZero() && !firstClose.IsZero() && !firstClose.Before(firstLogin) {
		v.set("first_login_to_close_hours", firstClose.Sub(firstLogin).Hours())
	}
	span := math.Max(1.0/24, math.Min(24, last.Sub(first24h).Hours()))
	v.set("interactions_per_hour_1h", float64(in1h))
	v.set("interactions_per_hour_24h", float64(in24h)/span)

	changes := 0
	for i := 1; i < len(countries7d); i++ {
		if countries7d[i] != countries7d[i-1] {
			changes++
		}
	}
	v.set("ip_country_mismatch", flag(mismatch))
	v.set("ip_country_changes_last_7d", float64(changes))
	v.set("ratio_hosting_ips", float64(hosting)/float64(len(ud.Events)))
	v.set("num_distinct_ips_last_24h", float64(len(ips24h)))

	v.set("login_failures_before_success", float64(failuresBeforeSuccess(ud.Events, firstSuccess)))
	v.set("spam_count_last_24h", float64(spam24h))
	v.set("unique_targets_messaged_last_24h", float64(len(targets24h)))
	v.set("download_address_book_count", float64(downloads))

	v.set("same_ip_shared_with_others", flag(sharedIP))
	v.set("sessions_last_7d", float64(len(sessions7d)))

	hour := float64(last.Hour()) + float64(last.Minute())/60
	v.set("hour_of_day_sin", math.Sin(hour*2*math.Pi/24))
	v.set("hour_of_day_cos", math.Cos(hour*2*math.Pi/24))
	v.set("days_since_last_activity", now.Sub(last).Hours()/24)
	v.set("script_user_agent", flag(script))
	return v
}

// failuresBeforeSuccess counts explicit login failures ahead of the first
// explicit success, or all of them when no login succeeded.
func failuresBeforeSuccess(events []store.Interaction, firstSuccess time.Time) int {
	n := 0
	for _, ev := range events {
		if ev.Type != domain.Login {
			continue
		}
		ok, present := ev.Metadata.Bool(domain.MetaLoginSuccess)
		if !present || ok {
			continue
		}
		if firstSuccess.IsZero() || ev.Timestamp.Before(firstSuccess) {
			n++
		}
	}
	return n
}

func accountFeatures(v Vector, ud UserData, now time.Time) {
	u, p := ud.User, ud.Profile
	v.set("connections_count", float64(p.ConnectionsCount))
	v.set("has_profile_photo", flag(p.HasProfilePhoto))
	v.set("profile_completeness", p.ProfileCompleteness)
	v.set("endorsements_count", float64(p.EndorsementsCount))
	v.set("profile_views_received", float64(p.ProfileViewsReceived))
	v.set("email_verified", flag(u.EmailVerified))
	v.set("two_factor_enabled", flag(u.TwoFactorEnabled))
	v.set("phone_verified", flag(u.PhoneVerified))
	v.set("account_tier_premium", flag(u.AccountTier == domain.TierPremium))
	v.set("account_tier_enterprise", flag(u.AccountTier == domain.TierEnterprise))
	v.set("failed_login_streak", float64(u.FailedLoginStreak))
	if age := now.Sub(u.JoinDate); age > 0 {
		v.set("account_age_days", math.Floor(age.Hours()/24))
	}
}

// ─── Sequences ────────────────────────────────────────────────────────────────

// MaxSequence is the default sequence length.
const MaxSequence = 128

// Login outcome tokens.
const (
	LoginPad = iota
	LoginTrue
	LoginFalse
	LoginNA
)

// maxDeltaMinutes caps the gap token at one week.
const maxDeltaMinutes = 7 * 24 * 60

// Token is one event of a sequence. Zero values are padding.
type Token struct {
	Action         int     `json:"action"`
	IPType         int     `json:"ip_type"`
	Login          int     `json:"login"`
	CountryChanged int     `json:"country_changed"`
	DeltaMinutes   float64 `json:"delta_minutes"`
}

// Sequence is the most recent events of one user, oldest first.
type Sequence struct {
	UserID string  `json:"user_id"`
	Tokens []Token `json:"tokens"`
	Label  bool    `json:"label"`
}

// ActionVocab maps interaction types to action tokens; 0 is padding.
var ActionVocab = func() map[domain.InteractionType]int {
	m := make(map[domain.InteractionType]int)
	for i, t := range domain.AllInteractionTypes() {
		m[t] = i + 1
	}
	return m
}()

func ipTypeToken(t domain.IPType) int {
	switch t {
	case domain.IPResidential:
		return 1
	case domain.IPHosting:
		return 2
	}
	return 0
}

func loginToken(ev domain.Interaction) int {
	ok, present := ev.Metadata.Bool(domain.MetaLoginSuccess)
	switch {
	case !present:
		return LoginNA
	case ok:
		return LoginTrue
	}
	return LoginFalse
}

// Sequences tokenizes each user's events and keeps the last maxLen of them.
// Gaps are measured before truncation, so the first kept token still
// carries the distance to the event it followed.
func Sequences(users []UserData, maxLen int) []Sequence {
	if maxLen <= 0 {
		maxLen = MaxSequence
	}
	out := make([]Sequence, len(users))
	for i, ud := range users {
		events := append([]store.Interaction(nil), ud.Events...)
		sort.SliceStable(events, func(a, b int) bool { return events[a].Timestamp.Before(events[b].Timestamp) })

		tokens := make([]Token, len(events))
		for j, ev := range events {
			tok := Token{
				Action: ActionVocab[ev.Type],
				IPType: ipTypeToken(ev.IPType),
				Login:  loginToken(ev.Interaction),
			}
			if c := ipCountry(ev.Interaction); c != "" && c != ud.User.Country {
				tok.CountryChanged = 1
			}
			if j > 0 {
				d := ev.Timestamp.Sub(events[j-1].Timestamp).Minutes()
				tok.DeltaMinutes = math.Min(math.Max(d, 0), maxDeltaMinutes)
			}
			tokens[j] = tok
		}
		if len(tokens) > maxLen {
			tokens = tokens[len(tokens)-maxLen:]
		}
		out[i] = Sequence{UserID: ud.User.UserID, Tokens: tokens, Label: Label(ud.Events)}
	}
	return out
}

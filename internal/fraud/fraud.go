// Package fraud generates account-takeover and platform-abuse event
// sequences. Victim patterns act through compromised regular accounts;
// abuse patterns act through pre-seeded fishy accounts.
package fraud

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Pattern names an attack technique. The value is stamped on every event
// the technique produces.
type Pattern string

// Victim-allocated techniques.
const (
	SmashGrab           Pattern = "smash_grab"
	LowSlow             Pattern = "low_slow"
	CountryHopper       Pattern = "country_hopper"
	DataThief           Pattern = "data_thief"
	CredentialStuffer   Pattern = "credential_stuffer"
	LoginStorm          Pattern = "login_storm"
	StealthTakeover     Pattern = "stealth_takeover"
	ScraperCluster      Pattern = "scraper_cluster"
	SpearPhisher        Pattern = "spear_phisher"
	CredentialTester    Pattern = "credential_tester"
	ConnectionHarvester Pattern = "connection_harvester"
	SleeperAgent        Pattern = "sleeper_agent"
	ProfileDefacement   Pattern = "profile_defacement"
	ExecutiveHunter     Pattern = "executive_hunter"
	RomanceScam         Pattern = "romance_scam"
	SessionHijacking    Pattern = "session_hijacking"
	CredentialPhishing  Pattern = "credential_phishing"
	AdEngagementFraud   Pattern = "ad_engagement_fraud"
)

// Fishy-account techniques.
const (
	FakeAccount              Pattern = "fake_account"
	AccountFarming           Pattern = "account_farming"
	CoordinatedHarassment    Pattern = "coordinated_harassment"
	CoordinatedLikeInflation Pattern = "coordinated_like_inflation"
	ProfileCloning           Pattern = "profile_cloning"
	EndorsementInflation     Pattern = "endorsement_inflation"
	RecommendationFraud      Pattern = "recommendation_fraud"
	JobPostingScam           Pattern = "job_posting_scam"
	InvitationSpam           Pattern = "invitation_spam"
	GroupSpam                Pattern = "group_spam"
)

// VictimPatterns are allocated over regular users, in allocation order.
var VictimPatterns = []Pattern{
	SmashGrab, LowSlow, CountryHopper, DataThief, CredentialStuffer,
	LoginStorm, StealthTakeover, ScraperCluster, SpearPhisher,
	CredentialTester, ConnectionHarvester, SleeperAgent, ProfileDefacement,
	ExecutiveHunter, RomanceScam, SessionHijacking, CredentialPhishing,
	AdEngagementFraud,
}

// FishyPatterns run on pre-seeded accounts.
var FishyPatterns = []Pattern{
	FakeAccount, AccountFarming, CoordinatedHarassment,
	CoordinatedLikeInflation, ProfileCloning, EndorsementInflation,
	RecommendationFraud, JobPostingScam, InvitationSpam, GroupSpam,
}

// ScrapeStrategy selects how scraper_cluster walks the directory.
type ScrapeStrategy string

const (
	ScrapeAlphabetical    ScrapeStrategy = "alphabetical"
	ScrapeRegularInterval ScrapeStrategy = "regular_interval"
	ScrapeCoordinated     ScrapeStrategy = "coordinated"
)

var scrapeStrategies = []ScrapeStrategy{ScrapeAlphabetical, ScrapeRegularInterval, ScrapeCoordinated}

// Env is the population an attack runs against.
type Env struct {
	Rng         *rand.Rand
	Now         time.Time
	WindowStart time.Time
	Config      *config.Config

	UserIDs  []string
	Users    map[string]domain.User
	Profiles map[string]domain.UserProfile

	// Reserved users are never drafted as incidental actors such as job
	// applicants: victims, fishy accounts and closed accounts.
	Reserved map[string]bool
}

// Invocation is one run of a technique.
type Invocation struct {
	Actors []string  // victims, or fishy accounts for abuse patterns
	Base   time.Time // nominal start of the campaign
	Close  bool      // smash_grab and country_hopper: end by closing the account
	// Strategy forces a scraper_cluster strategy; empty picks one at random.
	Strategy ScrapeStrategy
}

// EventID formats the id of the n-th attack event.
func EventID(n int) string { return fmt.Sprintf("fraud-%06d", n) }

// Run executes pattern p and returns its events with ids assigned from
// counter. Timing is fitted to the corpus before any event is built: no
// event precedes its actor's account, and a campaign that would run past
// now is moved back so it ends at now.
func Run(env *Env, p Pattern, inv Invocation, counter int) ([]domain.Interaction, int, error) {
	if len(inv.Actors) == 0 {
		return nil, counter, nil
	}
	for _, id := range inv.Actors {
		if _, ok := env.Users[id]; !ok {
			return nil, counter, fmt.Errorf("fraud %s: unknown actor %s", p, id)
		}
	}
	inv.Base = laterOf(inv.Base, env.earliest(inv.Actors...))

	r := &recorder{env: env, pattern: p}
	switch p {
	case SmashGrab:
		smashGrab(r, inv)
	case LowSlow:
		lowSlow(r, inv)
	case CountryHopper:
		countryHopper(r, inv)
	case DataThief:
		dataThief(r, inv)
	case CredentialStuffer:
		credentialStuffer(r, inv)
	case LoginStorm:
		loginStorm(r, inv)
	case StealthTakeover:
		stealthTakeover(r, inv)
	case ScraperCluster:
		scraperCluster(r, inv)
	case SpearPhisher:
		spearPhisher(r, inv)
	case CredentialTester:
		credentialTester(r, inv)
	case ConnectionHarvester:
		connectionHarvester(r, inv)
	case SleeperAgent:
		sleeperAgent(r, inv)
	case ProfileDefacement:
		profileDefacement(r, inv)
	case ExecutiveHunter:
		executiveHunter(r, inv)
	case RomanceScam:
		romanceScam(r, inv)
	case SessionHijacking:
		sessionHijacking(r, inv)
	case CredentialPhishing:
		credentialPhishing(r, inv)
	case AdEngagementFraud:
		adEngagementFraud(r, inv)
	case FakeAccount:
		fakeAccount(r, inv)
	case AccountFarming:
		accountFarming(r, inv)
	case CoordinatedHarassment:
		coordinatedHarassment(r, inv)
	case CoordinatedLikeInflation:
		coordinatedLikeInflation(r, inv)
	case ProfileCloning:
		profileCloning(r, inv)
	case EndorsementInflation:
		endorsementInflation(r, inv)
	case RecommendationFraud:
		recommendationFraud(r, inv)
	case JobPostingScam:
		jobPostingScam(r, inv)
	case InvitationSpam:
		invitationSpam(r, inv)
	case GroupSpam:
		groupSpam(r, inv)
	default:
		return nil, counter, fmt.Errorf("fraud: unknown pattern %q", p)
	}
	return r.finish(counter)
}

// ─── Env helpers ──────────────────────────────────────────────────────────────

// accountMargin keeps attack activity clear of the account's own creation.
const accountMargin = time.Hour

// earliest is the first instant any of ids may be attacked.
func (e *Env) earliest(ids ...string) time.Time {
	var out time.Time
	for _, id := range ids {
		out = laterOf(out, e.start(id).Add(accountMargin))
	}
	return out
}

func (e *Env) start(id string) time.Time {
	return laterOf(e.Users[id].JoinDate, e.WindowStart)
}

func (e *Env) country(id string) string {
	if u, ok := e.Users[id]; ok && u.Country != "" {
		return u.Country
	}
	return "US"
}

// others returns every user id except those in exclude, in population order.
func (e *Env) others(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]string, 0, len(e.UserIDs))
	for _, id := range e.UserIDs {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}

// shuffledOthers returns up to n distinct users outside exclude.
func (e *Env) shuffledOthers(n int, exclude ...string) []string {
	return randx.Sample(e.Rng, e.others(exclude...), n)
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// ─── Recorder ─────────────────────────────────────────────────────────────────

// actor is the identity an attacker presents while driving an account.
type actor struct {
	id      string
	ip      string
	ipType  domain.IPType
	country string // attacker country shown as ip_country
	ua      string
}

const defaultUA = "Mozilla/5.0 Chrome/120"

// recorder collects draft events. Drafts carry no id and are validated only
// in finish, after their timing has been fitted.
type recorder struct {
	env     *Env
	pattern Pattern
	drafts  []domain.Interaction
}

func (r *recorder) rng() *rand.Rand { return r.env.Rng }

func (r *recorder) emit(a actor, t domain.InteractionType, ts time.Time, target string, meta domain.Metadata) time.Time {
	if meta == nil {
		meta = domain.Metadata{}
	}
	meta[domain.MetaAttackPattern] = string(r.pattern)
	if _, ok := meta[domain.MetaUserAgent]; !ok {
		ua := a.ua
		if ua == "" {
			ua = defaultUA
		}
		meta[domain.MetaUserAgent] = ua
	}
	if _, ok := meta[domain.MetaIPCountry]; !ok && a.country != "" {
		meta[domain.MetaIPCountry] = a.country
	}
	ipType := a.ipType
	if ipType == "" {
		ipType = domain.IPHosting
	}
	r.drafts = append(r.drafts, domain.Interaction{
		UserID:        a.id,
		Type:          t,
		Timestamp:     ts,
		IPAddress:     a.ip,
		IPType:        ipType,
		TargetUserID:  target,
		AttackPattern: string(r.pattern),
		Metadata:      meta,
	})
	return ts
}

// login records failures in [minFail, maxFail], each 5-45 s apart, then a
// success. It returns the time of the successful login.
func (r *recorder) login(a actor, ts time.Time, minFail, maxFail int, extra domain.Metadata) time.Time {
	rng := r.rng()
	for i := randx.Between(rng, minFail, maxFail); i > 0; i-- {
		r.emit(a, domain.Login, ts, "", loginMeta(a, false, extra))
		ts = ts.Add(randx.Seconds(rng, 5, 45))
	}
	return r.emit(a, domain.Login, ts, "", loginMeta(a, true, extra))
}

func loginMeta(a actor, ok bool, extra domain.Metadata) domain.Metadata {
	m := domain.Metadata{
		domain.MetaLoginSuccess:    ok,
		domain.MetaAttackerCountry: a.country,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// spam sends one message per target, spread evenly over window after start.
func (r *recorder) spam(a actor, start time.Time, window time.Duration, targets []string) {
	for i, t := range targets {
		r.emit(a, domain.MessageUser, start.Add(randx.Spread(window, i, len(targets))), t, spamMeta(r.rng()))
	}
}

// finish fits the campaign into the corpus timeline, validates every event
// and assigns ids in generation order.
func (r *recorder) finish(counter int) ([]domain.Interaction, int, error) {
	if len(r.drafts) == 0 {
		return nil, counter, nil
	}
	env := r.env

	var latest time.Time
	for _, d := range r.drafts {
		latest = laterOf(latest, d.Timestamp)
	}
	shift := time.Duration(0)
	if latest.After(env.Now) {
		shift = latest.Sub(env.Now)
	}

	floor := make(map[string]time.Time)
	out := make([]domain.Interaction, 0, len(r.drafts))
	for _, d := range r.drafts {
		ts := d.Timestamp.Add(-shift)
		lo, ok := floor[d.UserID]
		if !ok {
			lo = env.earliest(d.UserID)
			floor[d.UserID] = lo
		}
		// max(ts, lo) is monotone, so each actor's order survives.
		ts = laterOf(ts, lo)
		if ts.After(env.Now) {
			ts = env.Now
		}
		d.Timestamp = ts
		d.ID = EventID(counter)
		ev, err := domain.NewInteraction(d, env.Now)
		if err != nil {
			return nil, counter, fmt.Errorf("fraud %s: %w", r.pattern, err)
		}
		out = append(out, ev)
		counter++
	}
	return out, counter, nil
}

// sortEvents orders events by time, keeping generation order for ties.
func sortEvents(events []domain.Interaction) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

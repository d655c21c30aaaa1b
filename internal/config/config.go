// Package config holds the typed parameter tree every generator reads from.
//
// A Config starts from Default and is optionally overlaid with a YAML file.
// Validate checks the whole tree and reports every violation at once; the
// generators never see an unvalidated Config when it comes through New or Load.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// R is shorthand for Range{Min: lo, Max: hi}.
func R(lo, hi int) Range { return Range{Min: lo, Max: hi} }

// ─── Tree ─────────────────────────────────────────────────────────────────────

// Config is the root of the parameter tree. Every float64 leaf is a
// probability in [0, 1], every int leaf a non-negative count.
type Config struct {
	Corpus        Corpus        `yaml:"corpus"`
	Users         Users         `yaml:"users"`
	Connections   Connections   `yaml:"connections"`
	Profiles      Profiles      `yaml:"profiles"`
	UserAgents    UserAgents    `yaml:"user_agents"`
	Email         Email         `yaml:"email"`
	UsagePatterns UsagePatterns `yaml:"usage_patterns"`
	Common        Common        `yaml:"common"`
	Fraud         Fraud         `yaml:"fraud"`
	Fishy         Fishy         `yaml:"fishy_accounts"`
}

type Corpus struct {
	WindowDays int `yaml:"window_days"`
}

type Users struct {
	InactivePct          float64 `yaml:"inactive_pct"`
	HostingIPPct         float64 `yaml:"hosting_ip_pct"`
	RecruiterPct         float64 `yaml:"recruiter_pct"`
	UnrelatedEmailPct    float64 `yaml:"unrelated_email_pct"`
	EmailVerifiedPct     float64 `yaml:"email_verified_pct"`
	TwoFactorPct         float64 `yaml:"two_factor_pct"`
	PhoneVerifiedPct     float64 `yaml:"phone_verified_pct"`
	PasswordChangedPct   float64 `yaml:"password_changed_pct"`
	AccountTierFree      float64 `yaml:"account_tier_free"`
	AccountTierPremium   float64 `yaml:"account_tier_premium"`
	FailedLoginStreakPct float64 `yaml:"failed_login_streak_pct"`
	MovePct              float64 `yaml:"move_pct"`
	MaxAccountAgeDays    int     `yaml:"max_account_age_days"`
}

type Connections struct {
	ZeroConnectionsPct float64 `yaml:"zero_connections_pct"`
	AcceptRate         float64 `yaml:"accept_rate"`
}

type Profiles struct {
	ProfilePhotoPct   float64 `yaml:"profile_photo_pct"`
	ProfileUpdatedPct float64 `yaml:"profile_updated_pct"`
}

type UserAgents struct {
	NonBrowserUAPct float64 `yaml:"non_browser_ua_pct"`
}

// Email thresholds are cumulative: a roll below FirstLast yields
// first.last, below Firstlast yields firstlast, and so on.
type Email struct {
	FirstLast float64 `yaml:"first_last"`
	Firstlast float64 `yaml:"firstlast"`
	LastFirst float64 `yaml:"last_first"`
	SuffixPct float64 `yaml:"suffix_pct"`
}

type UsagePatterns struct {
	ReturningUserPct  float64            `yaml:"returning_user_pct"`
	CareerUpdatePct   float64            `yaml:"career_update_pct"`
	ExecDelegationPct float64            `yaml:"exec_delegation_pct"`
	DormantAccountPct float64            `yaml:"dormant_account_pct"`
	PatternWeights    map[string]float64 `yaml:"pattern_weights"`

	DormantAccount    DormantAccount    `yaml:"dormant_account"`
	NewUserOnboarding NewUserOnboarding `yaml:"new_user_onboarding"`
	CareerUpdate      CareerUpdate      `yaml:"career_update"`
	ReturningUser     ReturningUser     `yaml:"returning_user"`
	ContentConsumer   ContentConsumer   `yaml:"content_consumer"`
	CasualBrowser     CasualBrowser     `yaml:"casual_browser"`
	Recruiter         MessageOnConnect  `yaml:"recruiter"`
	ExecDelegation    MessageOnConnect  `yaml:"exec_delegation"`
	ActiveJobSeeker   ActiveJobSeeker   `yaml:"active_job_seeker"`
}

type DormantAccount struct {
	LoginOncePct float64 `yaml:"login_once_pct"`
}

type NewUserOnboarding struct {
	ProfileUpdatePct     float64 `yaml:"profile_update_pct"`
	UploadAddressBookPct float64 `yaml:"upload_address_book_pct"`
	MessageOnConnectPct  float64 `yaml:"message_on_connect_pct"`
}

type CareerUpdate struct {
	UpdateTypeHeadline       float64 `yaml:"update_type_headline"`
	UpdateTypeSummary        float64 `yaml:"update_type_summary"`
	SecondUpdateInSessionPct float64 `yaml:"second_update_in_session_pct"`
}

type ReturningUser struct {
	SecondSessionPct float64 `yaml:"second_session_pct"`
}

type ContentConsumer struct {
	ConnectAfterViewPct float64 `yaml:"connect_after_view_pct"`
	MessageAfterViewPct float64 `yaml:"message_after_view_pct"`
}

type CasualBrowser struct {
	MessageAfterViewPct   float64 `yaml:"message_after_view_pct"`
	LikeReactAfterViewPct float64 `yaml:"like_react_after_view_pct"`
}

type MessageOnConnect struct {
	MessageOnConnectPct float64 `yaml:"message_on_connect_pct"`
}

type ActiveJobSeeker struct {
	HeadlineUpdatePct float64 `yaml:"headline_update_pct"`
}

type Common struct {
	LoginFailureBeforeSuccessPct float64 `yaml:"login_failure_before_success_pct"`
}

// Fraud parameterises the attack generators. PatternWeights drives victim
// allocation across the allocatable patterns; the other patterns run on
// pre-seeded fishy accounts.
type Fraud struct {
	PatternWeights           map[string]float64 `yaml:"pattern_weights"`
	DefaultAttackerCountries []string           `yaml:"default_attacker_countries"`

	FakeAccount              FakeAccount              `yaml:"fake_account"`
	ConnectionHarvester      ConnectionHarvester      `yaml:"connection_harvester"`
	CountryHopper            CountryHopper            `yaml:"country_hopper"`
	CredentialStuffer        CredentialStuffer        `yaml:"credential_stuffer"`
	CredentialTester         CredentialTester         `yaml:"credential_tester"`
	SpearPhisher             SpearPhisher             `yaml:"spear_phisher"`
	ProfileDefacement        ProfileDefacement        `yaml:"profile_defacement"`
	ExecutiveHunter          ExecutiveHunter          `yaml:"executive_hunter"`
	AccountFarming           AccountFarming           `yaml:"account_farming"`
	CoordinatedHarassment    CoordinatedHarassment    `yaml:"coordinated_harassment"`
	CoordinatedLikeInflation CoordinatedLikeInflation `yaml:"coordinated_like_inflation"`
	ProfileCloning           ProfileCloning           `yaml:"profile_cloning"`
	EndorsementInflation     EndorsementInflation     `yaml:"endorsement_inflation"`
	RecommendationFraud      RecommendationFraud      `yaml:"recommendation_fraud"`
	JobPostingScam           JobPostingScam           `yaml:"job_posting_scam"`
	InvitationSpam           InvitationSpam           `yaml:"invitation_spam"`
	GroupSpam                GroupSpam                `yaml:"group_spam"`
	RomanceScam              RomanceScam              `yaml:"romance_scam"`
	SessionHijacking         SessionHijacking         `yaml:"session_hijacking"`
	CredentialPhishing       CredentialPhishing       `yaml:"credential_phishing"`
	AdEngagementFraud        AdEngagementFraud        `yaml:"ad_engagement_fraud"`
}

type FakeAccount struct {
	ChangeProfilePct float64 `yaml:"change_profile_pct"`
	ChangeNamePct    float64 `yaml:"change_name_pct"`
}

type ConnectionHarvester struct {
	DownloadAddressBookPct float64 `yaml:"download_address_book_pct"`
	Requests               Range   `yaml:"requests"`
}

type CountryHopper struct {
	ViewDuringHopPct float64 `yaml:"view_during_hop_pct"`
}

type CredentialStuffer struct {
	CloseAccountPct float64 `yaml:"close_account_pct"`
}

type CredentialTester struct {
	FailedLoginFirstPct   float64 `yaml:"failed_login_first_pct"`
	PageViewAfterLoginPct float64 `yaml:"page_view_after_login_pct"`
}

type SpearPhisher struct {
	ProfileTweakPct float64 `yaml:"profile_tweak_pct"`
	ChangeNamePct   float64 `yaml:"change_name_pct"`
}

type ProfileDefacement struct {
	ChangeProfilePct  float64 `yaml:"change_profile_pct"`
	ChangePasswordPct float64 `yaml:"change_password_pct"`
}

type ExecutiveHunter struct {
	ClusterIPsMax   int   `yaml:"cluster_ips_max"`
	Targets         Range `yaml:"targets"`
	FallbackTargets int   `yaml:"fallback_targets"`
}

type AccountFarming struct {
	HoursBetweenAccounts Range   `yaml:"hours_between_accounts"`
	UpdateHeadlinePct    float64 `yaml:"update_headline_pct"`
	UpdateSummaryPct     float64 `yaml:"update_summary_pct"`
}

type CoordinatedHarassment struct {
	ClusterIPsMax int `yaml:"cluster_ips_max"`
	NumTargets    int `yaml:"num_targets"`
}

type CoordinatedLikeInflation struct {
	ClusterIPsMax     int   `yaml:"cluster_ips_max"`
	LikeWindowMinutes Range `yaml:"like_window_minutes"`
}

type ProfileCloning struct {
	ConnectBeforeMessagePct float64 `yaml:"connect_before_message_pct"`
	MessagesPerVictim       Range   `yaml:"messages_per_victim"`
	NumVictims              int     `yaml:"num_victims"`
}

type EndorsementInflation struct {
	ClusterIPsMax        int   `yaml:"cluster_ips_max"`
	EndorsementsPerSkill Range `yaml:"endorsements_per_skill"`
	NumTargets           int   `yaml:"num_targets"`
}

type RecommendationFraud struct {
	ClusterIPsMax int `yaml:"cluster_ips_max"`
	NumTargets    int `yaml:"num_targets"`
}

type JobPostingScam struct {
	ApplicationsPerJob  Range   `yaml:"applications_per_job"`
	PhishingRedirectPct float64 `yaml:"phishing_redirect_pct"`
}

type InvitationSpam struct {
	ClusterIPsMax      int   `yaml:"cluster_ips_max"`
	RequestsPerAccount Range `yaml:"requests_per_account"`
}

type GroupSpam struct {
	PostsPerGroup Range `yaml:"posts_per_group"`
}

type RomanceScam struct {
	MessagesPerVictim Range `yaml:"messages_per_victim"`
	DurationDays      Range `yaml:"duration_days"`
}

type SessionHijacking struct {
	ActionsAfterHijack Range `yaml:"actions_after_hijack"`
}

type CredentialPhishing struct {
	CaptureThenLoginPct float64 `yaml:"capture_then_login_pct"`
}

type AdEngagementFraud struct {
	ClusterIPsMax int   `yaml:"cluster_ips_max"`
	ClicksPerAd   Range `yaml:"clicks_per_ad"`
}

// Fishy counts the pre-seeded abuse accounts per kind. These accounts are
// appended after the regular population and never become victims.
type Fishy struct {
	FakeAccount              int `yaml:"fake_account"`
	PharmacyPhishing         int `yaml:"pharmacy_phishing"`
	CovertPorn               int `yaml:"covert_porn"`
	AccountFarming           int `yaml:"account_farming"`
	CoordinatedHarassment    int `yaml:"coordinated_harassment"`
	CoordinatedLikeInflation int `yaml:"coordinated_like_inflation"`
	ProfileCloning           int `yaml:"profile_cloning"`
	EndorsementInflation     int `yaml:"endorsement_inflation"`
	RecommendationFraud      int `yaml:"recommendation_fraud"`
	JobPostingScam           int `yaml:"job_posting_scam"`
	InvitationSpam           int `yaml:"invitation_spam"`
	GroupSpam                int `yaml:"group_spam"`
}

// Total is the number of fishy accounts across all kinds.
func (f Fishy) Total() int {
	return f.FakeAccount + f.PharmacyPhishing + f.CovertPorn + f.AccountFarming +
		f.CoordinatedHarassment + f.CoordinatedLikeInflation + f.ProfileCloning +
		f.EndorsementInflation + f.RecommendationFraud + f.JobPostingScam +
		f.InvitationSpam + f.GroupSpam
}

// ─── Construction ─────────────────────────────────────────────────────────────

// New returns the default tree with each mutator applied, validated.
func New(mutators ...func(*Config)) (*Config, error) {
	cfg := Default()
	for _, m := range mutators {
		m(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a YAML file over the defaults and validates the result. Keys
// absent from the file keep their default; map entries are merged.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse is Load without the file.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.UsagePatterns.PatternWeights = cloneWeights(c.UsagePatterns.PatternWeights)
	out.Fraud.PatternWeights = cloneWeights(c.Fraud.PatternWeights)
	out.Fraud.DefaultAttackerCountries = append([]string(nil), c.Fraud.DefaultAttackerCountries...)
	return &out
}

// YAML renders c in the same shape Load accepts.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func cloneWeights(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SortedWeightKeys returns the keys of m in lexical order.
func SortedWeightKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// Error aggregates every invariant a Config violates.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return "config invariants violated:\n  " + strings.Join(e.Violations, "\n  ")
}

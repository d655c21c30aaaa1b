// Package detect scores users for account-takeover and abuse risk from their
// feature vectors.
//
// Each rule contributes a non-negative delta; deltas add up and the total is
// clamped to [0, 100]. The probability reported for a user is score/100 and
// a user is flagged when it reaches the threshold.
//
// Rules:
//  1. Velocity: bursts of activity in the last hour and day
//  2. Address book: contact exports, and how soon after login they happen
//  3. Outreach: message volume and breadth right after an export
//  4. Geography: foreign origins and country hopping
//  5. Infrastructure: hosting addresses, shared addresses, script clients
//  6. Credentials: failed logins ahead of the first success
//  7. Account lifecycle: closure soon after a login, very new accounts
package detect

import (
	"fmt"
	"sort"
	"strings"

	"corpuslab/atogen/internal/features"
)

// DefaultThreshold is the probability at which a user is flagged.
const DefaultThreshold = 0.5

// Factor is one rule's contribution to a score.
type Factor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ScoreDelta  int    `json:"score_delta"`
}

// Engine is a stateless rule scorer.
type Engine struct {
	threshold float64
}

// New creates an engine flagging at threshold. Values outside (0, 1] fall
// back to DefaultThreshold.
func New(threshold float64) *Engine {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// Threshold returns the flagging threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// ─── Public API ───────────────────────────────────────────────────────────────

// Score runs every rule over v and returns the clamped score, the factors
// that fired and a one-line explanation.
func (e *Engine) Score(v features.Vector) (score int, factors []Factor, explanation string) {
	rules := []func(features.Vector) []Factor{
		ruleVelocity,
		ruleAddressBook,
		ruleOutreach,
		ruleGeography,
		ruleInfrastructure,
		ruleCredentials,
		ruleLifecycle,
	}
	for _, rule := range rules {
		factors = append(factors, rule(v)...)
	}

	total := 0
	for _, f := range factors {
		total += f.ScoreDelta
	}
	total = clamp(total, 0, 100)
	return total, factors, buildExplanation(total, factors)
}

// Result is the verdict for one user.
type Result struct {
	Prob    float64  `json:"prob"`
	Flagged bool     `json:"flagged"`
	Label   bool     `json:"label"`
	Factors []string `json:"factors,omitempty"`
}

// Report is the output of a detection run.
type Report struct {
	ModelType    string            `json:"model_type"`
	Threshold    float64           `json:"threshold"`
	TotalUsers   int               `json:"total_users"`
	FlaggedCount int               `json:"flagged_count"`
	Users        map[string]Result `json:"users"`
}

// Run scores every vector.
func (e *Engine) Run(vectors []features.Vector) Report {
	r := Report{
		ModelType:  "rules",
		Threshold:  e.threshold,
		TotalUsers: len(vectors),
		Users:      make(map[string]Result, len(vectors)),
	}
	for _, v := range vectors {
		score, factors, _ := e.Score(v)
		prob := float64(score) / 100
		res := Result{Prob: prob, Flagged: prob >= e.threshold, Label: v.Label}
		for _, f := range factors {
			res.Factors = append(res.Factors, f.Name)
		}
		if res.Flagged {
			r.FlaggedCount++
		}
		r.Users[v.UserID] = res
	}
	return r
}

// Metrics compares flags with labels.
type Metrics struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	TrueNegatives  int     `json:"true_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
}

// Evaluate computes the confusion matrix of r.
func (r Report) Evaluate() Metrics {
	var m Metrics
	for _, res := range r.Users {
		switch {
		case res.Flagged && res.Label:
			m.TruePositives++
		case res.Flagged:
			m.FalsePositives++
		case res.Label:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}
	}
	if n := m.TruePositives + m.FalsePositives; n > 0 {
		m.Precision = float64(m.TruePositives) / float64(n)
	}
	if n := m.TruePositives + m.FalseNegatives; n > 0 {
		m.Recall = float64(m.TruePositives) / float64(n)
	}
	return m
}

// Flagged returns the flagged user ids, sorted.
func (r Report) Flagged() []string {
	var out []string
	for id, res := range r.Users {
		if res.Flagged {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ─── Rule 1: Velocity ─────────────────────────────────────────────────────────

func ruleVelocity(v features.Vector) []Factor {
	var factors []Factor
	if n := v.Get("interactions_per_hour_1h"); n >= 20 {
		factors = append(factors, Factor{
			Name:        "velocity_1h",
			Description: fmt.Sprintf("%.0f interactions in the last active hour", n),
			ScoreDelta:  clamp(int(n), 20, 30),
		})
	}
	if r := v.Get("interactions_per_hour_24h"); r >= 10 {
		factors = append(factors, Factor{
			Name:        "velocity_24h",
			Description: fmt.Sprintf("%.1f interactions per hour over the last day", r),
			ScoreDelta:  10,
		})
	}
	return factors
}

// ─── Rule 2: Address book ─────────────────────────────────────────────────────

func ruleAddressBook(v features.Vector) []Factor {
	n := v.Get("download_address_book_count")
	if n == 0 {
		return nil
	}
	factors := []Factor{{
		Name:        "address_book_export",
		Description: fmt.Sprintf("Address book downloaded %.0f time(s)", n),
		ScoreDelta:  35,
	}}
	if m := v.Get("login_to_download_minutes"); m > 0 && m < 60 {
		factors = append(factors, Factor{
			Name:        "export_after_login",
			Description: fmt.Sprintf("Address book downloaded %.0f minutes after login", m),
			ScoreDelta:  10,
		})
	}
	return factors
}

// ─── Rule 3: Outreach ─────────────────────────────────────────────────────────

func ruleOutreach(v features.Vector) []Factor {
	var factors []Factor
	if n := v.Get("spam_count_last_24h"); n >= 10 {
		factors = append(factors, Factor{
			Name:        "message_burst",
			Description: fmt.Sprintf("%.0f messages sent in the last day", n),
			ScoreDelta:  clamp(int(n), 10, 25),
		})
	}
	if n := v.Get("unique_targets_messaged_last_24h"); n >= 10 {
		factors = append(factors, Factor{
			Name:        "message_breadth",
			Description: fmt.Sprintf("%.0f distinct users messaged in the last day", n),
			ScoreDelta:  10,
		})
	}
	if m := v.Get("download_to_first_spam_minutes"); m > 0 && m < 30 {
		factors = append(factors, Factor{
			Name:        "spam_after_export",
			Description: fmt.Sprintf("Messaging started %.0f minutes after an address book export", m),
			ScoreDelta:  15,
		})
	}
	return factors
}

// ─── Rule 4: Geography ────────────────────────────────────────────────────────

func ruleGeography(v features.Vector) []Factor {
	var factors []Factor
	if v.Get("ip_country_mismatch") > 0 {
		factors = append(factors, Factor{
			Name:        "geo_country_mismatch",
			Description: "Activity seen from a country other than the account's",
			ScoreDelta:  15,
		})
	}
	if n := v.Get("ip_country_changes_last_7d"); n >= 2 {
		factors = append(factors, Factor{
			Name:        "geo_country_hopping",
			Description: fmt.Sprintf("Origin country changed %.0f times in the last week", n),
			ScoreDelta:  clamp(5*int(n), 10, 25),
		})
	}
	return factors
}

// ─── Rule 5: Infrastructure ───────────────────────────────────────────────────

func ruleInfrastructure(v features.Vector) []Factor {
	var factors []Factor
	switch r := v.Get("ratio_hosting_ips"); {
	case r >= 0.5:
		factors = append(factors, Factor{
			Name:        "hosting_ips_majority",
			Description: fmt.Sprintf("%.0f%% of activity from hosting addresses", 100*r),
			ScoreDelta:  20,
		})
	case r > 0:
		factors = append(factors, Factor{
			Name:        "hosting_ips_some",
			Description: fmt.Sprintf("%.0f%% of activity from hosting addresses", 100*r),
			ScoreDelta:  10,
		})
	}
	if v.Get("same_ip_shared_with_others") > 0 {
		factors = append(factors, Factor{
			Name:        "shared_ip",
			Description: "Recent address shared with other accounts",
			ScoreDelta:  5,
		})
	}
	if v.Get("script_user_agent") > 0 {
		factors = append(factors, Factor{
			Name:        "script_user_agent",
			Description: "Automation client user agent",
			ScoreDelta:  10,
		})
	}
	return factors
}

// ─── Rule 6: Credentials ──────────────────────────────────────────────────────

func ruleCredentials(v features.Vector) []Factor {
	n := v.Get("login_failures_before_success")
	if n < 3 {
		return nil
	}
	return []Factor{{
		Name:        "login_failures",
		Description: fmt.Sprintf("%.0f failed logins before the first success", n),
		ScoreDelta:  clamp(5*int(n), 15, 25),
	}}
}

// ─── Rule 7: Account lifecycle ────────────────────────────────────────────────

func ruleLifecycle(v features.Vector) []Factor {
	var factors []Factor
	if h := v.Get("first_login_to_close_hours"); h > 0 && h < 24 {
		factors = append(factors, Factor{
			Name:        "fast_close",
			Description: fmt.Sprintf("Account closed %.1f hours after login", h),
			ScoreDelta:  20,
		})
	}
	if d := v.Get("account_age_days"); d < 7 && v.Get("email_verified") == 0 {
		factors = append(factors, Factor{
			Name:        "new_unverified_account",
			Description: fmt.Sprintf("Unverified account created %.0f days ago", d),
			ScoreDelta:  5,
		})
	}
	return factors
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func buildExplanation(score int, factors []Factor) string {
	if len(factors) == 0 {
		return fmt.Sprintf("Risk Score: %d. No significant indicators detected.", score)
	}
	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = fmt.Sprintf("%s (+%d)", f.Description, f.ScoreDelta)
	}
	return fmt.Sprintf("Risk Score: %d. Factors: %s.", score, strings.Join(parts, "; "))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package validate checks an assembled corpus: per-user temporal ordering
// of events, and the cross-entity invariants that tie users, profiles and
// events together.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"corpuslab/atogen/internal/domain"
)

// ErrTemporal is wrapped by every temporal violation.
var ErrTemporal = errors.New("temporal invariant violated")

// Rule names a temporal invariant.
type Rule string

const (
	// Attack subsequences.
	RuleFraudAnchor        Rule = "fraud_anchor"        // no login-like event at all
	RuleFraudBeforeAnchor  Rule = "fraud_before_anchor" // activity ahead of the first login-like event
	RuleMessageNeedsLogin  Rule = "message_needs_login"
	RuleGroupPostNeedsJoin Rule = "group_post_needs_join"

	// Legitimate subsequences.
	RuleCreationFirst      Rule = "account_creation_first"
	RuleForbiddenType      Rule = "forbidden_type"
	RuleActivityNeedsLogin Rule = "activity_needs_login"
	RuleViewBeforeOutreach Rule = "view_before_outreach"

	// Both.
	RuleCloseLast Rule = "close_account_last"
)

// TemporalError identifies the user, event and rule of a violation.
type TemporalError struct {
	UserID        string
	InteractionID string
	Rule          Rule
	Detail        string
}

func (e *TemporalError) Error() string {
	return fmt.Sprintf("user %s: event %s breaks %s: %s", e.UserID, e.InteractionID, e.Rule, e.Detail)
}

func (e *TemporalError) Unwrap() error { return ErrTemporal }

// IsFraudEvent reports whether ev belongs to an attack subsequence. Only the
// attack_pattern tag counts; metadata contents are never inspected.
func IsFraudEvent(ev domain.Interaction) bool {
	return ev.IsFraud()
}

// byUser groups events per user in order of first appearance. Each group is
// stably sorted by timestamp, so an already sorted corpus keeps its tie order.
func byUser(events []domain.Interaction) ([]string, map[string][]domain.Interaction) {
	var order []string
	groups := make(map[string][]domain.Interaction)
	for _, ev := range events {
		if _, ok := groups[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		groups[ev.UserID] = append(groups[ev.UserID], ev)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Timestamp.Before(g[j].Timestamp) })
	}
	return order, groups
}

// EnforceTemporal checks every user's attack and legitimate subsequences
// against their rule sets and returns the first violation as a
// *TemporalError.
func EnforceTemporal(events []domain.Interaction) error {
	order, groups := byUser(events)
	for _, uid := range order {
		var fraud, legit []domain.Interaction
		for _, ev := range groups[uid] {
			if IsFraudEvent(ev) {
				fraud = append(fraud, ev)
			} else {
				legit = append(legit, ev)
			}
		}
		if len(fraud) > 0 {
			if err := checkFraud(uid, fraud); err != nil {
				return err
			}
		}
		if len(legit) > 0 {
			if err := checkLegit(uid, legit); err != nil {
				return err
			}
		}
	}
	return nil
}

func violation(uid string, ev domain.Interaction, rule Rule, format string, args ...any) error {
	return &TemporalError{UserID: uid, InteractionID: ev.ID, Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

func checkFraud(uid string, seq []domain.Interaction) error {
	anchor := -1
	for i, ev := range seq {
		if ev.Type.IsLoginLike() {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return violation(uid, seq[0], RuleFraudAnchor, "attack sequence has no login")
	}
	for i, ev := range seq[:anchor] {
		if ev.Type != domain.Login && ev.Type != domain.PhishingLogin {
			return violation(uid, ev, RuleFraudBeforeAnchor, "%s at index %d precedes the first login", ev.Type, i)
		}
	}
	at := seq[anchor].Timestamp
	for _, ev := range seq[anchor:] {
		if ev.Timestamp.Before(at) {
			return violation(uid, ev, RuleFraudBeforeAnchor, "%s at %s precedes the login at %s", ev.Type, ev.Timestamp, at)
		}
	}

	loggedIn := false
	joined := map[string]bool{}
	for _, ev := range seq {
		switch ev.Type {
		case domain.Login, domain.SessionLogin:
			loggedIn = true
		case domain.MessageUser:
			if !loggedIn {
				return violation(uid, ev, RuleMessageNeedsLogin, "message at %s before any login", ev.Timestamp)
			}
		case domain.JoinGroup:
			joined[ev.Metadata.String(domain.MetaGroupID)] = true
		case domain.PostInGroup:
			if g := ev.Metadata.String(domain.MetaGroupID); !joined[g] {
				return violation(uid, ev, RuleGroupPostNeedsJoin, "post in %q before joining it", g)
			}
		}
	}
	return closeLast(uid, seq)
}

func closeLast(uid string, seq []domain.Interaction) error {
	for i, ev := range seq {
		if ev.Type == domain.CloseAccount && i != len(seq)-1 {
			last := seq[len(seq)-1]
			return violation(uid, last, RuleCloseLast, "%s follows close_account at %s", last.Type, ev.Timestamp)
		}
	}
	return nil
}

// forbiddenLegit never appear outside an attack.
var forbiddenLegit = map[domain.InteractionType]bool{
	domain.DownloadAddressBook: true,
	domain.SessionLogin:        true,
	domain.PhishingLogin:       true,
}

func checkLegit(uid string, seq []domain.Interaction) error {
	for i, ev := range seq {
		if ev.Type == domain.AccountCreation && i != 0 {
			return violation(uid, ev, RuleCreationFirst, "account_creation at index %d, after %s", i, seq[0].Type)
		}
		if forbiddenLegit[ev.Type] {
			return violation(uid, ev, RuleForbiddenType, "%s outside an attack", ev.Type)
		}
	}
	if err := closeLast(uid, seq); err != nil {
		return err
	}

	// Outreach needs a view of the same target at or before its timestamp.
	// Ties pass in either stream order.
	firstView := map[string]time.Time{}
	for _, ev := range seq {
		if ev.Type != domain.ViewUserPage {
			continue
		}
		if t, ok := firstView[ev.TargetUserID]; !ok || ev.Timestamp.Before(t) {
			firstView[ev.TargetUserID] = ev.Timestamp
		}
	}
	// A session opens at a successful login or at account creation; every
	// other activity needs one open at or before it.
	var opened bool
	for _, ev := range seq {
		switch {
		case ev.Type == domain.AccountCreation, ev.LoginSucceeded():
			opened = true
			continue
		case ev.Type == domain.Login, ev.Type == domain.CloseAccount:
			continue
		}
		if !opened {
			return violation(uid, ev, RuleActivityNeedsLogin, "%s at %s before any login", ev.Type, ev.Timestamp)
		}
		if !ev.Type.IsOutreach() || ev.TargetUserID == "" {
			continue
		}
		if t, ok := firstView[ev.TargetUserID]; !ok || t.After(ev.Timestamp) {
			return violation(uid, ev, RuleViewBeforeOutreach, "%s to %s without an earlier view", ev.Type, ev.TargetUserID)
		}
	}
	return nil
}

// Dropped records an event removed by RepairTemporal.
type Dropped struct {
	InteractionID string
	UserID        string
	Rule          Rule
}

// RepairTemporal removes the events that can only come from merging
// independently generated streams: legitimate activity ahead of the
// account's creation, and anything after a user's first close_account.
// The input must be sorted by timestamp; the output keeps its order.
func RepairTemporal(events []domain.Interaction) ([]domain.Interaction, []Dropped) {
	created := make(map[string]bool)
	hasCreation := make(map[string]bool)
	for _, ev := range events {
		if ev.Type == domain.AccountCreation {
			hasCreation[ev.UserID] = true
		}
	}
	closed := make(map[string]bool)

	out := make([]domain.Interaction, 0, len(events))
	var dropped []Dropped
	for _, ev := range events {
		switch {
		case closed[ev.UserID]:
			dropped = append(dropped, Dropped{ev.ID, ev.UserID, RuleCloseLast})
			continue
		case ev.Type == domain.AccountCreation:
			created[ev.UserID] = true
		case hasCreation[ev.UserID] && !created[ev.UserID] && !IsFraudEvent(ev):
			dropped = append(dropped, Dropped{ev.ID, ev.UserID, RuleCreationFirst})
			continue
		}
		if ev.Type == domain.CloseAccount {
			closed[ev.UserID] = true
		}
		out = append(out, ev)
	}
	return out, dropped
}

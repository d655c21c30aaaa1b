package validate

import (
	"errors"
	"fmt"

	"corpuslab/atogen/internal/domain"
)

// ErrCorpus is wrapped by every cross-entity violation.
var ErrCorpus = errors.New("corpus invariant violated")

// CorpusError names the broken invariant and the entity that broke it.
type CorpusError struct {
	Check  string
	ID     string
	Detail string
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Check, e.ID, e.Detail)
}

func (e *CorpusError) Unwrap() error { return ErrCorpus }

func corpusErr(check, id, format string, args ...any) error {
	return &CorpusError{Check: check, ID: id, Detail: fmt.Sprintf(format, args...)}
}

// ValidateCorpus is the last gate before persistence. It checks unique
// user ids and emails, one profile per existing user created no earlier
// than the join date, resolvable and unique interactions, and that every
// profile's connections_count matches the interaction log.
func ValidateCorpus(users []domain.User, profiles []domain.UserProfile, events []domain.Interaction) error {
	byID := make(map[string]domain.User, len(users))
	emails := make(map[string]string, len(users))
	for _, u := range users {
		if _, dup := byID[u.UserID]; dup {
			return corpusErr("user", u.UserID, "duplicate user_id")
		}
		byID[u.UserID] = u
		if other, dup := emails[u.Email]; dup {
			return corpusErr("user", u.UserID, "email %q already used by %s", u.Email, other)
		}
		emails[u.Email] = u.UserID
	}

	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		u, ok := byID[p.UserID]
		if !ok {
			return corpusErr("profile", p.UserID, "references a missing user")
		}
		if seen[p.UserID] {
			return corpusErr("profile", p.UserID, "duplicate profile")
		}
		seen[p.UserID] = true
		if p.ProfileCreatedAt.Before(u.JoinDate) {
			return corpusErr("profile", p.UserID, "created at %s before join date %s", p.ProfileCreatedAt, u.JoinDate)
		}
	}

	ids := make(map[string]bool, len(events))
	for _, ev := range events {
		if _, ok := byID[ev.UserID]; !ok {
			return corpusErr("interaction", ev.ID, "user_id %s references a missing user", ev.UserID)
		}
		if ev.TargetUserID != "" {
			if _, ok := byID[ev.TargetUserID]; !ok {
				return corpusErr("interaction", ev.ID, "target_user_id %s references a missing user", ev.TargetUserID)
			}
		}
		if ids[ev.ID] {
			return corpusErr("interaction", ev.ID, "duplicate interaction_id")
		}
		ids[ev.ID] = true
	}

	conns := ComputeConnections(events)
	for _, p := range profiles {
		if got := conns[p.UserID]; got != p.ConnectionsCount {
			return corpusErr("profile", p.UserID, "connections_count %d, interaction log has %d", p.ConnectionsCount, got)
		}
	}
	return nil
}

type edge struct{ from, to string }

// ComputeConnections counts accepted connections per user. A connection
// exists when A asked B (connect_with_user or send_connection_request) and
// B accepted A; it counts once for each side however often either was
// repeated. Pending requests count for nobody.
func ComputeConnections(events []domain.Interaction) map[string]int {
	requested := make(map[edge]bool)
	for _, ev := range events {
		if ev.Type.IsConnectionRequest() && ev.TargetUserID != "" {
			requested[edge{ev.UserID, ev.TargetUserID}] = true
		}
	}

	counted := make(map[edge]bool)
	out := make(map[string]int)
	for _, ev := range events {
		if ev.Type != domain.AcceptConnectionRequest || ev.TargetUserID == "" {
			continue
		}
		requester, accepter := ev.TargetUserID, ev.UserID
		if !requested[edge{requester, accepter}] {
			continue
		}
		pair := edge{min(requester, accepter), max(requester, accepter)}
		if counted[pair] {
			continue
		}
		counted[pair] = true
		out[requester]++
		out[accepter]++
	}
	return out
}

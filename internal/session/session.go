// Package session groups a time-sorted event stream into per-user sessions.
// Session ids live in a side table keyed by interaction id; events
// themselves are never rewritten.
package session

import (
	"fmt"
	"time"

	"corpuslab/atogen/internal/domain"
)

// Gap is the idle time after which a user's next event opens a new session.
const Gap = 30 * time.Minute

// Id prefixes for legitimate and attack sessions.
const (
	PrefixLegit = "s"
	PrefixFraud = "a"
)

// Table maps interaction ids to session ids.
type Table map[string]string

// Lookup returns the session of interaction id.
func (t Table) Lookup(id string) (string, bool) {
	s, ok := t[id]
	return s, ok
}

// Sessions returns the number of distinct sessions in the table.
func (t Table) Sessions() int {
	seen := make(map[string]bool, len(t))
	for _, s := range t {
		seen[s] = true
	}
	return len(seen)
}

// ID formats the n-th session of user with prefix.
func ID(user, prefix string, n int) string {
	return fmt.Sprintf("%s-%s%04d", user, prefix, n)
}

type cursor struct {
	n    int
	last time.Time
}

type assigner struct {
	table   Table
	cursors map[string]*cursor
}

func newAssigner(size int) *assigner {
	return &assigner{table: make(Table, size), cursors: make(map[string]*cursor)}
}

// opens reports whether ev starts a session by type alone.
func opens(ev domain.Interaction, fraud bool) bool {
	if fraud {
		return ev.Type == domain.Login
	}
	return ev.Type == domain.Login || ev.Type == domain.AccountCreation
}

func (a *assigner) add(ev domain.Interaction, prefix string, fraud bool) {
	key := ev.UserID + "/" + prefix
	c, ok := a.cursors[key]
	switch {
	case !ok:
		c = &cursor{n: 1}
		a.cursors[key] = c
	case opens(ev, fraud), ev.Timestamp.Sub(c.last) > Gap:
		c.n++
	}
	c.last = ev.Timestamp
	a.table[ev.ID] = ID(ev.UserID, prefix, c.n)
}

func checkSorted(events []domain.Interaction) error {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			return fmt.Errorf("session: events not sorted: %s at %s follows %s at %s",
				events[i].ID, events[i].Timestamp, events[i-1].ID, events[i-1].Timestamp)
		}
	}
	return nil
}

// Assign stamps every event of a sorted stream with prefix.
func Assign(events []domain.Interaction, prefix string) (Table, error) {
	if err := checkSorted(events); err != nil {
		return nil, err
	}
	a := newAssigner(len(events))
	fraud := prefix == PrefixFraud
	for _, ev := range events {
		a.add(ev, prefix, fraud)
	}
	return a.table, nil
}

// AssignCorpus stamps a sorted mixed stream. Attack events and legitimate
// events of the same user are counted independently under their own
// prefixes; isFraud decides which stream an event belongs to.
func AssignCorpus(events []domain.Interaction, isFraud func(domain.Interaction) bool) (Table, error) {
	if err := checkSorted(events); err != nil {
		return nil, err
	}
	a := newAssigner(len(events))
	for _, ev := range events {
		if isFraud(ev) {
			a.add(ev, PrefixFraud, true)
		} else {
			a.add(ev, PrefixLegit, false)
		}
	}
	return a.table, nil
}

// Package store persists generated corpora and serves the read paths of the
// API and the detection tools. SQL backs the database-resident corpus; Memory
// serves tests and the standalone server.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/domain"
)

var (
	// ErrNotFound is returned when a user or profile id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a corpus repeats a primary key.
	ErrDuplicate = errors.New("duplicate key")
)

// Repository is the persistence contract shared by every backend.
type Repository interface {
	// InsertCorpus replaces the stored corpus with c.
	InsertCorpus(ctx context.Context, c *corpus.Corpus) error

	GetUser(ctx context.Context, id string) (domain.User, error)
	GetProfile(ctx context.Context, id string) (domain.UserProfile, error)
	ListUsers(ctx context.Context, f UserFilter, p Page) ([]domain.User, int, error)
	ListInteractions(ctx context.Context, f InteractionFilter, p Page) ([]Interaction, int, error)
	// InteractionsByUser returns one user's events in timestamp order, ties
	// in corpus order.
	InteractionsByUser(ctx context.Context, id string) ([]Interaction, error)

	CountUsers(ctx context.Context) (int, error)
	CountInteractions(ctx context.Context) (int, error)
	CountInteractionsByType(ctx context.Context) (map[domain.InteractionType]int, error)
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

// Interaction is a stored event with its session.
type Interaction struct {
	domain.Interaction
	SessionID string `json:"session_id"`
}

// ─── Filters ──────────────────────────────────────────────────────────────────

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Normalize clamps p to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// UserFilter narrows ListUsers. Zero fields match everything.
type UserFilter struct {
	Country string
	Pattern string // generation_pattern
	Active  *bool
}

func (f UserFilter) match(u domain.User) bool {
	return (f.Country == "" || u.Country == f.Country) &&
		(f.Pattern == "" || u.GenerationPattern == f.Pattern) &&
		(f.Active == nil || u.IsActive == *f.Active)
}

// InteractionFilter narrows ListInteractions. Zero fields match everything;
// Since is inclusive and Until exclusive.
type InteractionFilter struct {
	UserID        string
	Type          domain.InteractionType
	AttackPattern string
	FraudOnly     bool
	Since         time.Time
	Until         time.Time
}

func (f InteractionFilter) match(ev domain.Interaction) bool {
	switch {
	case f.UserID != "" && ev.UserID != f.UserID:
		return false
	case f.Type != "" && ev.Type != f.Type:
		return false
	case f.AttackPattern != "" && ev.AttackPattern != f.AttackPattern:
		return false
	case f.FraudOnly && !ev.IsFraud():
		return false
	case !f.Since.IsZero() && ev.Timestamp.Before(f.Since):
		return false
	case !f.Until.IsZero() && !ev.Timestamp.Before(f.Until):
		return false
	}
	return true
}

// checkUnique rejects a corpus that repeats a user, profile or interaction id.
func checkUnique(c *corpus.Corpus) error {
	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if seen[u.UserID] {
			return fmt.Errorf("user %s: %w", u.UserID, ErrDuplicate)
		}
		seen[u.UserID] = true
	}
	profiles := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if profiles[p.UserID] {
			return fmt.Errorf("profile %s: %w", p.UserID, ErrDuplicate)
		}
		profiles[p.UserID] = true
	}
	events := make(map[string]bool, len(c.Interactions))
	for _, ev := range c.Interactions {
		if events[ev.ID] {
			return fmt.Errorf("interaction %s: %w", ev.ID, ErrDuplicate)
		}
		events[ev.ID] = true
	}
	return nil
}

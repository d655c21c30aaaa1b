package store

import (
	"context"
	"sort"
	"sync"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/domain"
)

// Memory is a thread-safe in-memory Repository.
type Memory struct {
	mu sync.RWMutex

	users    map[string]domain.User
	userIDs  []string // sorted
	profiles map[string]domain.UserProfile
	events   []Interaction // corpus order

	// Secondary indexes, rebuilt on every insert: user id and type to
	// positions in events.
	byUser map[string][]int
	byType map[domain.InteractionType]int
}

// NewMemory creates an empty, ready-to-use store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]domain.User),
		profiles: make(map[string]domain.UserProfile),
		byUser:   make(map[string][]int),
		byType:   make(map[domain.InteractionType]int),
	}
}

var _ Repository = (*Memory)(nil)

// ─── Writes ───────────────────────────────────────────────────────────────────

// InsertCorpus replaces the stored corpus. Interactions keep their corpus
// order, which is the tie-break for equal timestamps.
func (s *Memory) InsertCorpus(_ context.Context, c *corpus.Corpus) error {
	if err := checkUnique(c); err != nil {
		return err
	}

	users := make(map[string]domain.User, len(c.Users))
	ids := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		users[u.UserID] = u
		ids = append(ids, u.UserID)
	}
	sort.Strings(ids)

	profiles := make(map[string]domain.UserProfile, len(c.Profiles))
	for _, p := range c.Profiles {
		profiles[p.UserID] = p
	}

	events := make([]Interaction, len(c.Interactions))
	byUser := make(map[string][]int)
	byType := make(map[domain.InteractionType]int)
	for i, ev := range c.Interactions {
		sid, _ := c.Sessions.Lookup(ev.ID)
		events[i] = Interaction{Interaction: ev, SessionID: sid}
		byUser[ev.UserID] = append(byUser[ev.UserID], i)
		byType[ev.Type]++
	}
	for _, idx := range byUser {
		sort.SliceStable(idx, func(a, b int) bool {
			return events[idx[a]].Timestamp.Before(events[idx[b]].Timestamp)
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.userIDs, s.profiles = users, ids, profiles
	s.events, s.byUser, s.byType = events, byUser, byType
	return nil
}

// ─── Reads ────────────────────────────────────────────────────────────────────

func (s *Memory) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (s *Memory) GetProfile(_ context.Context, id string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.UserProfile{}, ErrNotFound
	}
	return p, nil
}

// ListUsers returns one page of matching users ordered by id, and the total
// number of matches.
func (s *Memory) ListUsers(_ context.Context, f UserFilter, p Page) ([]domain.User, int, error) {
	p = p.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.User
	total := 0
	for _, id := range s.userIDs {
		u := s.users[id]
		if !f.match(u) {
			continue
		}
		if total >= p.Offset && len(out) < p.Limit {
			out = append(out, u)
		}
		total++
	}
	return out, total, nil
}

// ListInteractions returns one page of matching events in corpus order, and
// the total number of matches. A user filter walks that user's index only.
func (s *Memory) ListInteractions(_ context.Context, f InteractionFilter, p Page) ([]Interaction, int, error) {
	p = p.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Interaction
	total := 0
	visit := func(ev Interaction) {
		if !f.match(ev.Interaction) {
			return
		}
		if total >= p.Offset && len(out) < p.Limit {
			out = append(out, ev)
		}
		total++
	}
	if f.UserID != "" {
		for _, i := range s.byUser[f.UserID] {
			visit(s.events[i])
		}
		return out, total, nil
	}
	for _, ev := range s.events {
		visit(ev)
	}
	return out, total, nil
}

func (s *Memory) InteractionsByUser(_ context.Context, id string) ([]Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byUser[id]
	out := make([]Interaction, len(idx))
	for i, j := range idx {
		out[i] = s.events[j]
	}
	return out, nil
}

// ─── Aggregates ───────────────────────────────────────────────────────────────

func (s *Memory) CountUsers(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Memory) CountInteractions(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

func (s *Memory) CountInteractionsByType(context.Context) (map[domain.InteractionType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.InteractionType]int, len(s.byType))
	for t, n := range s.byType {
		out[t] = n
	}
	return out, nil
}

// ActiveUserIDs returns the ids of active users, sorted.
func (s *Memory) ActiveUserIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.userIDs {
		if s.users[id].IsActive {
			out = append(out, id)
		}
	}
	return out, nil
}

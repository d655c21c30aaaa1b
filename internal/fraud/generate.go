package fraud

import (
	"fmt"
	"strings"
	"time"

	"corpuslab/atogen/internal/allocate"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
	"corpuslab/atogen/internal/session"
	"corpuslab/atogen/internal/validate"
)

// Input drives one full attack run over a population.
type Input struct {
	Env *Env

	// Pct is the share of the population to compromise, 0-100.
	Pct float64
	// Fishy lists the pre-seeded accounts per abuse technique.
	Fishy map[Pattern][]string
	// Inactive users are never compromised.
	Inactive map[string]bool
	// Connections biases victim choice toward popular users when set.
	Connections map[string]int
	// FirstID is the counter of the first attack event.
	FirstID int
}

// SummaryLine describes one technique's contribution to a run.
type SummaryLine struct {
	Pattern Pattern
	Actors  []string
	Events  int
	Closed  int
}

// Result is everything an attack run produced. Events are sorted by time
// with ties in generation order.
type Result struct {
	Events     []domain.Interaction
	Victims    map[string]Pattern // victim user id to technique
	Summary    []SummaryLine
	Allocation allocate.Allocation
	NextID     int
	// Sessions holds the attack session of every event, prefix "a".
	Sessions session.Table
}

// Days-ago windows each campaign starts in.
var baseDays = map[Pattern][2]int{
	SmashGrab:                {3, 20},
	LowSlow:                  {10, 25},
	CountryHopper:            {15, 28},
	DataThief:                {5, 20},
	CredentialStuffer:        {3, 15},
	LoginStorm:               {5, 20},
	StealthTakeover:          {5, 25},
	ScraperCluster:           {3, 14},
	SpearPhisher:             {3, 18},
	CredentialTester:         {2, 10},
	ConnectionHarvester:      {3, 15},
	SleeperAgent:             {25, 40},
	ProfileDefacement:        {3, 20},
	ExecutiveHunter:          {5, 15},
	RomanceScam:              {60, 75},
	SessionHijacking:         {2, 14},
	CredentialPhishing:       {3, 20},
	AdEngagementFraud:        {1, 10},
	FakeAccount:              {20, 28},
	AccountFarming:           {25, 35},
	CoordinatedHarassment:    {2, 10},
	CoordinatedLikeInflation: {1, 7},
	ProfileCloning:           {5, 20},
	EndorsementInflation:     {3, 15},
	RecommendationFraud:      {3, 15},
	JobPostingScam:           {5, 20},
	InvitationSpam:           {2, 12},
	GroupSpam:                {3, 15},
}

// Techniques that run once over all their actors rather than once per
// victim.
var grouped = map[Pattern]bool{
	ScraperCluster:           true,
	CredentialTester:         true,
	ExecutiveHunter:          true,
	AdEngagementFraud:        true,
	AccountFarming:           true,
	CoordinatedHarassment:    true,
	CoordinatedLikeInflation: true,
	ProfileCloning:           true,
	EndorsementInflation:     true,
	RecommendationFraud:      true,
	JobPostingScam:           true,
	InvitationSpam:           true,
	GroupSpam:                true,
}

type run struct {
	env     *Env
	counter int
	events  []domain.Interaction
	summary []SummaryLine
}

func (g *run) base(p Pattern) time.Time {
	d := baseDays[p]
	rng := g.env.Rng
	return g.env.Now.Add(-randx.Days(rng, d[0], d[1])).Add(randx.Hours(rng, 0, 23))
}

func (g *run) exec(p Pattern, inv Invocation) error {
	if len(inv.Actors) == 0 {
		return nil
	}
	events, next, err := Run(g.env, p, inv, g.counter)
	if err != nil {
		return err
	}
	g.counter = next
	g.events = append(g.events, events...)

	line := SummaryLine{Pattern: p, Actors: inv.Actors, Events: len(events)}
	for _, ev := range events {
		if ev.Type == domain.CloseAccount {
			line.Closed++
		}
	}
	g.summary = append(g.summary, line)
	return nil
}

// GenerateMalicious allocates victims, runs every technique, and checks the
// merged attack stream against the attack ordering rules before returning.
// in.Env is not modified; its Reserved set is replaced on a private copy.
func GenerateMalicious(in Input) (Result, error) {
	env := new(Env)
	*env = *in.Env
	excluded := make(map[string]bool, len(in.Inactive))
	for id := range in.Inactive {
		excluded[id] = true
	}
	for _, ids := range in.Fishy {
		for _, id := range ids {
			excluded[id] = true
		}
	}

	patterns := make([]string, len(VictimPatterns))
	for i, p := range VictimPatterns {
		patterns[i] = string(p)
	}
	alloc := allocate.Allocate(allocate.Request{
		UserIDs:     env.UserIDs,
		Excluded:    excluded,
		Pct:         in.Pct,
		Patterns:    patterns,
		Weights:     env.Config.Fraud.PatternWeights,
		Connections: in.Connections,
	}, env.Rng)

	victims := make(map[string]Pattern, alloc.Total())
	reserved := make(map[string]bool, len(excluded)+alloc.Total())
	for id := range excluded {
		reserved[id] = true
	}
	for id, p := range alloc.PatternOf() {
		victims[id] = Pattern(p)
		reserved[id] = true
	}
	env.Reserved = reserved

	g := &run{env: env, counter: in.FirstID}
	for _, name := range alloc.Order {
		p := Pattern(name)
		if err := g.victimPattern(p, alloc.Victims[name]); err != nil {
			return Result{}, err
		}
	}
	for _, p := range FishyPatterns {
		if err := g.fishyPattern(p, in.Fishy[p]); err != nil {
			return Result{}, err
		}
	}

	sortEvents(g.events)
	if err := validate.EnforceTemporal(g.events); err != nil {
		return Result{}, fmt.Errorf("fraud: generated attack stream: %w", err)
	}
	sessions, err := session.Assign(g.events, session.PrefixFraud)
	if err != nil {
		return Result{}, fmt.Errorf("fraud: attack sessions: %w", err)
	}
	return Result{
		Events:     g.events,
		Victims:    victims,
		Summary:    g.summary,
		Allocation: alloc,
		NextID:     g.counter,
		Sessions:   sessions,
	}, nil
}

func (g *run) victimPattern(p Pattern, ids []string) error {
	switch {
	case p == CredentialStuffer:
		half := (len(ids) + 1) / 2
		for _, batch := range [][]string{ids[:half], ids[half:]} {
			if err := g.exec(p, Invocation{Actors: batch, Base: g.base(p)}); err != nil {
				return err
			}
		}
		return nil
	case grouped[p]:
		return g.exec(p, Invocation{Actors: ids, Base: g.base(p)})
	}
	for i, id := range ids {
		inv := Invocation{Actors: []string{id}, Base: g.base(p)}
		switch p {
		case SmashGrab:
			inv.Close = i < 2
		case CountryHopper:
			inv.Close = i == 0
		}
		if err := g.exec(p, inv); err != nil {
			return err
		}
	}
	return nil
}

func (g *run) fishyPattern(p Pattern, ids []string) error {
	if !grouped[p] {
		for _, id := range ids {
			if err := g.exec(p, Invocation{Actors: []string{id}, Base: g.base(p)}); err != nil {
				return err
			}
		}
		return nil
	}
	return g.exec(p, Invocation{Actors: ids, Base: g.base(p)})
}

// Totals aggregates a run.
type Totals struct {
	Victims        int
	Events         int
	SpamMessages   int
	ClosedAccounts int
}

// Totals counts victims, events, spam and closures across the run.
func (r Result) Totals() Totals {
	t := Totals{Victims: len(r.Victims), Events: len(r.Events)}
	for _, ev := range r.Events {
		switch ev.Type {
		case domain.MessageUser:
			if spam, _ := ev.Metadata.Bool("is_spam"); spam {
				t.SpamMessages++
			}
		case domain.CloseAccount:
			t.ClosedAccounts++
		}
	}
	return t
}

// Report renders the summary as plain text, one line per invocation.
func (r Result) Report() string {
	var b strings.Builder
	for _, l := range r.Summary {
		label := strings.ReplaceAll(string(l.Pattern), "_", " ")
		actors := strings.Join(l.Actors, ", ")
		if len(l.Actors) > 3 {
			actors = fmt.Sprintf("%s, ... (%d accounts)", strings.Join(l.Actors[:3], ", "), len(l.Actors))
		}
		fmt.Fprintf(&b, "  %-26s %4d events", label, l.Events)
		if l.Closed > 0 {
			fmt.Fprintf(&b, ", %d closed", l.Closed)
		}
		fmt.Fprintf(&b, "  [%s]\n", actors)
	}
	t := r.Totals()
	fmt.Fprintf(&b, "Victims: %d\nTotal events: %d\nSpam messages: %d\nAccounts closed: %d\n",
		t.Victims, t.Events, t.SpamMessages, t.ClosedAccounts)
	return b.String()
}

// Package corpus assembles a complete synthetic corpus: population,
// legitimate histories, attack campaigns, synthesized connection accepts,
// derived counts and sessions, checked end to end before it is returned.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/fraud"
	"corpuslab/atogen/internal/legit"
	"corpuslab/atogen/internal/population"
	"corpuslab/atogen/internal/randx"
	"corpuslab/atogen/internal/session"
	"corpuslab/atogen/internal/validate"
)

// Options controls one generation run.
type Options struct {
	Seed     int64
	NumUsers int
	// FraudPct is the share of regular users to compromise, 0-100.
	FraudPct float64
	// Now anchors every timestamp. Zero means the wall clock, truncated to
	// the second.
	Now    time.Time
	Config *config.Config
	Logger *slog.Logger
}

// Corpus is a validated run.
type Corpus struct {
	RunID        string
	Now          time.Time
	Users        []domain.User
	Profiles     []domain.UserProfile
	Interactions []domain.Interaction
	// Sessions maps interaction id to session id.
	Sessions session.Table
	// VictimPatterns maps each compromised user to its technique.
	VictimPatterns map[string]string
	// LegitPatterns maps each regular user to its archetype.
	LegitPatterns map[string]string

	Attacks  fraud.Result
	Dropped  []validate.Dropped
	Accepted int
}

// Namespace for run ids.
var runNamespace = uuid.MustParse("6f1c2a9e-4d0b-5c7e-9a51-0b8e3f2d7c44")

// RunID derives a stable id from everything that determines a run.
func RunID(seed int64, numUsers int, pct float64, now time.Time, cfg *config.Config) (string, error) {
	raw, err := cfg.YAML()
	if err != nil {
		return "", fmt.Errorf("corpus: render config: %w", err)
	}
	name := fmt.Sprintf("%d|%d|%g|%s|", seed, numUsers, pct, now.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(runNamespace, append([]byte(name), raw...)).String(), nil
}

// Generate runs the whole pipeline. The same options always produce the same
// corpus.
func Generate(ctx context.Context, opts Options) (*Corpus, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("corpus: num users must be positive, got %d", opts.NumUsers)
	}
	if opts.FraudPct < 0 || opts.FraudPct > 100 {
		return nil, fmt.Errorf("corpus: fraud pct must be within 0-100, got %g", opts.FraudPct)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now.UTC()
	if opts.Now.IsZero() {
		now = time.Now().UTC().Truncate(time.Second)
	}
	runID, err := RunID(opts.Seed, opts.NumUsers, opts.FraudPct, now, cfg)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		rng:         rand.New(rand.NewSource(opts.Seed)),
		now:         now,
		windowStart: now.AddDate(0, 0, -cfg.Corpus.WindowDays),
		cfg:         cfg,
		log:         log,
		out: &Corpus{
			RunID:          runID,
			Now:            now,
			VictimPatterns: make(map[string]string),
			LegitPatterns:  make(map[string]string),
		},
	}
	steps := []struct {
		name string
		run  func() error
	}{
		{"population", func() error { return p.populate(opts.NumUsers) }},
		{"legitimate activity", p.legitimate},
		{"attacks", func() error { return p.attacks(opts.FraudPct) }},
		{"accepts", p.accepts},
		{"derive", p.derive},
		{"sessions", p.sessions},
		{"validate", p.check},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("corpus: %s: %w", s.name, err)
		}
	}

	log.Info("corpus: generated",
		"run_id", runID,
		"users", len(p.out.Users),
		"interactions", len(p.out.Interactions),
		"victims", len(p.out.VictimPatterns),
		"accepts", p.out.Accepted,
		"sessions", p.out.Sessions.Sessions(),
	)
	return p.out, nil
}

type pipeline struct {
	rng         *rand.Rand
	now         time.Time
	windowStart time.Time
	cfg         *config.Config
	log         *slog.Logger

	pop     *population.Population
	events  []domain.Interaction
	counter int
	out     *Corpus
}

func (p *pipeline) populate(n int) error {
	pop, err := population.Generate(p.rng, p.now, n, p.cfg)
	if err != nil {
		return err
	}
	p.pop = pop
	return nil
}

// legitimate writes every regular user's history and the creation event of
// every fishy account, then repairs the merged stream.
func (p *pipeline) legitimate() error {
	fishy := p.pop.FishyIDs()
	var regular []string
	for _, u := range p.pop.Users {
		if !fishy[u.UserID] {
			regular = append(regular, u.UserID)
		}
	}

	for _, u := range p.pop.Users {
		in := legit.Input{
			User:        u,
			UserIDs:     regular,
			WindowStart: p.windowStart,
			Now:         p.now,
			Rng:         p.rng,
			UserAgent:   p.pop.UserAgents[u.UserID],
			Config:      p.cfg,
		}
		created, next, err := legit.AccountCreation(in, p.counter)
		if err != nil {
			return err
		}
		p.counter = next
		p.events = append(p.events, created)
		if fishy[u.UserID] {
			continue
		}

		pattern := legit.Select(p.rng, u, p.now, p.cfg)
		events, next, err := legit.Generate(pattern, in, p.counter)
		if err != nil {
			return err
		}
		p.counter = next
		p.events = append(p.events, events...)
		p.out.LegitPatterns[u.UserID] = string(pattern)
	}
	p.repair("legitimate")
	return nil
}

func (p *pipeline) repair(phase string) {
	sortEvents(p.events)
	var dropped []validate.Dropped
	p.events, dropped = validate.RepairTemporal(p.events)
	if len(dropped) > 0 {
		p.log.Warn("corpus: repaired events", "phase", phase, "dropped", len(dropped))
		p.out.Dropped = append(p.out.Dropped, dropped...)
	}
}

func (p *pipeline) attacks(pct float64) error {
	env := &fraud.Env{
		Rng:         p.rng,
		Now:         p.now,
		WindowStart: p.windowStart,
		Config:      p.cfg,
		Users:       make(map[string]domain.User, len(p.pop.Users)),
		Profiles:    make(map[string]domain.UserProfile, len(p.pop.Profiles)),
	}
	inactive := make(map[string]bool)
	for _, u := range p.pop.Users {
		env.UserIDs = append(env.UserIDs, u.UserID)
		env.Users[u.UserID] = u
		if !u.IsActive {
			inactive[u.UserID] = true
		}
	}
	for _, pr := range p.pop.Profiles {
		env.Profiles[pr.UserID] = pr
	}

	fishy := make(map[fraud.Pattern][]string)
	for kind, ids := range p.pop.Fishy {
		fishy[fraud.Pattern(kind)] = ids
	}

	res, err := fraud.GenerateMalicious(fraud.Input{
		Env:         env,
		Pct:         pct,
		Fishy:       fishy,
		Inactive:    inactive,
		Connections: p.pop.NetworkSize,
	})
	if err != nil {
		return err
	}
	for _, reason := range res.Allocation.Degraded {
		p.log.Warn("corpus: victim allocation degraded", "reason", reason)
	}
	for id, pattern := range res.Victims {
		p.out.VictimPatterns[id] = string(pattern)
	}
	p.out.Attacks = res
	p.events = append(p.events, res.Events...)
	p.repair("merge")
	return nil
}

// ─── Accept synthesis ─────────────────────────────────────────────────────────

// history is what accept synthesis needs to know about one user.
type history struct {
	logins  []domain.Interaction // successful legitimate logins
	entries []time.Time          // legitimate login-like events
	created bool
	closed  time.Time
}

func (h *history) closedBy(ts time.Time) bool {
	return !h.closed.IsZero() && !h.closed.After(ts)
}

// accepts lets the targets of pending requests answer some of them. The
// accept follows the target's first successful login after the request and
// stays inside that session.
func (p *pipeline) accepts() error {
	users := make(map[string]*history)
	get := func(id string) *history {
		h, ok := users[id]
		if !ok {
			h = &history{}
			users[id] = h
		}
		return h
	}
	for _, ev := range p.events {
		h := get(ev.UserID)
		switch {
		case ev.Type == domain.CloseAccount:
			if h.closed.IsZero() {
				h.closed = ev.Timestamp
			}
		case validate.IsFraudEvent(ev):
		case ev.Type == domain.AccountCreation:
			h.created = true
		case ev.Type.IsLoginLike():
			h.entries = append(h.entries, ev.Timestamp)
			if ev.Type == domain.Login && ev.LoginSucceeded() {
				h.logins = append(h.logins, ev)
			}
		}
	}

	rate := p.cfg.Connections.AcceptRate
	answered := make(map[[2]string]bool)
	var added []domain.Interaction
	for _, req := range p.events {
		if !req.Type.IsConnectionRequest() || req.TargetUserID == "" || req.TargetUserID == req.UserID {
			continue
		}
		pair := [2]string{req.UserID, req.TargetUserID}
		if answered[pair] {
			continue
		}
		answered[pair] = true
		if !randx.Chance(p.rng, rate) {
			continue
		}

		target := get(req.TargetUserID)
		at, login, ok := target.acceptAt(p.rng, req.Timestamp)
		if !ok || !target.created || target.closedBy(at) || get(req.UserID).closedBy(at) || at.After(p.now) {
			continue
		}
		ev, err := domain.NewInteraction(domain.Interaction{
			ID:           legit.EventID(p.counter),
			UserID:       req.TargetUserID,
			Type:         domain.AcceptConnectionRequest,
			Timestamp:    at,
			IPAddress:    login.IPAddress,
			IPType:       login.IPType,
			TargetUserID: req.UserID,
			Metadata: domain.Metadata{
				domain.MetaUserAgent: login.Metadata.String(domain.MetaUserAgent),
				domain.MetaIPCountry: login.Metadata.String(domain.MetaIPCountry),
			},
		}, p.now)
		if err != nil {
			return err
		}
		p.counter++
		added = append(added, ev)
	}

	p.out.Accepted = len(added)
	p.events = append(p.events, added...)
	sortEvents(p.events)
	return nil
}

// acceptAt picks the instant the user answers a request sent at req: a few
// seconds into the first successful login after it, or halfway to the next
// login-like event when that comes sooner.
func (h *history) acceptAt(rng *rand.Rand, req time.Time) (time.Time, domain.Interaction, bool) {
	i := sort.Search(len(h.logins), func(i int) bool { return h.logins[i].Timestamp.After(req) })
	if i == len(h.logins) {
		return time.Time{}, domain.Interaction{}, false
	}
	login := h.logins[i]
	at := login.Timestamp.Add(randx.Seconds(rng, 5, 120))

	j := sort.Search(len(h.entries), func(j int) bool { return h.entries[j].After(login.Timestamp) })
	if j < len(h.entries) && !h.entries[j].After(at) {
		next := h.entries[j]
		gap := next.Sub(login.Timestamp)
		if gap < 2*time.Second {
			return time.Time{}, domain.Interaction{}, false
		}
		at = login.Timestamp.Add(gap / 2).Truncate(time.Second)
	}
	return at, login, true
}

// ─── Derived state ────────────────────────────────────────────────────────────

func (p *pipeline) derive() error {
	counts := validate.ComputeConnections(p.events)
	closed := make(map[string]bool)
	for _, ev := range p.events {
		if ev.Type == domain.CloseAccount {
			closed[ev.UserID] = true
		}
	}

	p.out.Users = make([]domain.User, len(p.pop.Users))
	for i, u := range p.pop.Users {
		if pattern, ok := p.out.VictimPatterns[u.UserID]; ok {
			u = u.WithGenerationPattern(pattern)
		}
		if closed[u.UserID] {
			u = u.Deactivated()
		}
		p.out.Users[i] = u
	}
	p.out.Profiles = make([]domain.UserProfile, len(p.pop.Profiles))
	for i, pr := range p.pop.Profiles {
		p.out.Profiles[i] = pr.WithConnectionsCount(counts[pr.UserID])
	}
	p.out.Interactions = p.events
	return nil
}

func (p *pipeline) sessions() error {
	table, err := session.AssignCorpus(p.out.Interactions, validate.IsFraudEvent)
	if err != nil {
		return err
	}
	p.out.Sessions = table
	return nil
}

func (p *pipeline) check() error {
	if err := validate.EnforceTemporal(p.out.Interactions); err != nil {
		return err
	}
	return validate.ValidateCorpus(p.out.Users, p.out.Profiles, p.out.Interactions)
}

func sortEvents(events []domain.Interaction) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

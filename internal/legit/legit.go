// Package legit generates the event history of ordinary users. Each of the
// eleven archetypes takes one user and returns a session-structured event
// list; the caller picks the archetype with Select.
package legit

import (
	"fmt"
	"math/rand"
	"time"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Pattern is a legitimate behavioural archetype.
type Pattern string

const (
	CasualBrowser     Pattern = "casual_browser"
	ActiveJobSeeker   Pattern = "active_job_seeker"
	Recruiter         Pattern = "recruiter"
	RegularNetworker  Pattern = "regular_networker"
	ReturningUser     Pattern = "returning_user"
	NewUserOnboarding Pattern = "new_user_onboarding"
	WeeklyCheckIn     Pattern = "weekly_check_in"
	ContentConsumer   Pattern = "content_consumer"
	CareerUpdate      Pattern = "career_update"
	ExecDelegation    Pattern = "exec_delegation"
	DormantAccount    Pattern = "dormant_account"
)

// Patterns lists every archetype.
var Patterns = []Pattern{
	CasualBrowser, ActiveJobSeeker, Recruiter, RegularNetworker, ReturningUser,
	NewUserOnboarding, WeeklyCheckIn, ContentConsumer, CareerUpdate,
	ExecDelegation, DormantAccount,
}

// Input is everything a generator needs to write one user's history.
type Input struct {
	User        domain.User
	UserIDs     []string // every user in the corpus, for target picking
	WindowStart time.Time
	Now         time.Time
	Rng         *rand.Rand
	UserAgent   string
	Config      *config.Config
}

// Start is the earliest instant an event of this user may carry.
func (in Input) Start() time.Time {
	if in.User.JoinDate.After(in.WindowStart) {
		return in.User.JoinDate
	}
	return in.WindowStart
}

// EventID formats the id of the n-th legitimate event.
func EventID(n int) string { return fmt.Sprintf("evt-%08d", n) }

// Select picks the archetype for a user. Override rules come first; the
// remaining users get a weighted draw over the positive pattern weights.
func Select(rng *rand.Rand, u domain.User, now time.Time, cfg *config.Config) Pattern {
	up := cfg.UsagePatterns
	days := int(now.Sub(u.JoinDate).Hours() / 24)
	switch {
	case u.UserType == domain.UserRecruiter:
		return Recruiter
	case days <= 7:
		return NewUserOnboarding
	case days >= 30 && randx.Chance(rng, up.ReturningUserPct):
		return ReturningUser
	case days >= 14 && randx.Chance(rng, up.CareerUpdatePct):
		return CareerUpdate
	case isDelegationCountry(u.Country) && randx.Chance(rng, up.ExecDelegationPct):
		return ExecDelegation
	case randx.Chance(rng, up.DormantAccountPct):
		return DormantAccount
	}

	var names []Pattern
	var weights []float64
	for _, p := range Patterns {
		if w := up.PatternWeights[string(p)]; w > 0 {
			names = append(names, p)
			weights = append(weights, w)
		}
	}
	if len(names) == 0 {
		return CasualBrowser
	}
	return names[randx.Weighted(rng, weights)]
}

func isDelegationCountry(c string) bool {
	return c == "US" || c == "GB" || c == "CA" || c == "AU"
}

// Generate runs archetype p for in.User and, when the user ends inactive,
// appends the terminal CLOSE_ACCOUNT. The first construction error aborts.
func Generate(p Pattern, in Input, counter int) ([]domain.Interaction, int, error) {
	b := newBuilder(in, counter)
	switch p {
	case CasualBrowser:
		casualBrowser(b)
	case ActiveJobSeeker:
		activeJobSeeker(b)
	case Recruiter:
		recruiter(b)
	case RegularNetworker:
		regularNetworker(b)
	case ReturningUser:
		returningUser(b)
	case NewUserOnboarding:
		newUserOnboarding(b)
	case WeeklyCheckIn:
		weeklyCheckIn(b)
	case ContentConsumer:
		contentConsumer(b)
	case CareerUpdate:
		careerUpdate(b)
	case ExecDelegation:
		execDelegation(b)
	case DormantAccount:
		dormantAccount(b)
	default:
		return nil, counter, fmt.Errorf("legit: unknown pattern %q", p)
	}
	if !in.User.IsActive {
		b.closeAccount()
	}
	if b.err != nil {
		return nil, counter, fmt.Errorf("legit %s for %s: %w", p, in.User.UserID, b.err)
	}
	return b.events, b.counter, nil
}

// AccountCreation builds the ACCOUNT_CREATION that opens a user's history,
// at the start of the user's window and from the registration address.
func AccountCreation(in Input, counter int) (domain.Interaction, int, error) {
	u := in.User
	ev, err := domain.NewInteraction(domain.Interaction{
		ID:        EventID(counter),
		UserID:    u.UserID,
		Type:      domain.AccountCreation,
		Timestamp: in.Start(),
		IPAddress: u.RegistrationIP,
		IPType:    u.IPType,
		Metadata: domain.Metadata{
			domain.MetaUserAgent: in.UserAgent,
			domain.MetaIPCountry: u.RegistrationCountry,
		},
	}, in.Now)
	if err != nil {
		return domain.Interaction{}, counter, err
	}
	return ev, counter + 1, nil
}

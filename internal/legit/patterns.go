package legit

import (
	"sort"
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/population"
	"corpuslab/atogen/internal/randx"
)

// sessionDays draws n session days in [0, days], ascending.
func (b *builder) sessionDays(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = randx.Between(b.in.Rng, 0, max(0, b.days()))
	}
	sort.Ints(out)
	return out
}

// casualBrowser: one or two short sessions of profile views, sometimes a
// message or a like.
func casualBrowser(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.CasualBrowser
	for _, day := range b.sessionDays(max(1, min(2, b.days()/4))) {
		ts := b.login(b.sessionAt(day, 8, 20), nil)
		targets := b.targets(randx.Between(r, 2, 5))
		for _, t := range targets {
			ts = b.emit(domain.ViewUserPage, ts.Add(randx.Seconds(r, 15, 120)), t, nil)
		}
		if len(targets) == 0 {
			continue
		}
		switch {
		case randx.Chance(r, cfg.MessageAfterViewPct):
			b.message(ts.Add(randx.Seconds(r, 30, 120)), targets[0])
		case randx.Chance(r, cfg.LikeReactAfterViewPct):
			typ := domain.Like
			if randx.Chance(r, 0.5) {
				typ = domain.React
			}
			b.emit(typ, ts.Add(randx.Seconds(r, 5, 60)), randx.Pick(r, targets), nil)
		}
	}
}

// activeJobSeeker: daily-ish sessions with a wide reach-out funnel and an
// occasional headline refresh.
func activeJobSeeker(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.ActiveJobSeeker
	updated := false
	for _, day := range b.sessionDays(min(6, max(2, b.days()))) {
		ts := b.login(b.sessionAt(day, 8, 18), nil)
		if !updated && randx.Chance(r, cfg.HeadlineUpdatePct) {
			ts = b.emit(domain.UpdateHeadline, ts.Add(randx.Seconds(r, 20, 120)), "", domain.Metadata{"reason": "job_change"})
			updated = true
		}
		connects, messages := randx.Between(r, 5, 15), randx.Between(r, 1, 5)
		for i, t := range b.targets(randx.Between(r, 8, 25)) {
			connect := i < connects
			ts = b.reach(ts, t, connect, connect && i < messages)
		}
	}
}

// recruiter: search, then view and connect with many candidates.
func recruiter(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.Recruiter
	queries := []string{"software engineer", "data scientist", "product manager", "sales", "designer", "nurse"}
	for _, day := range b.sessionDays(min(10, max(3, b.days()*2/3))) {
		ts := b.login(b.sessionAt(day, 9, 11), nil)
		for i := randx.Between(r, 1, 4); i > 0; i-- {
			ts = b.emit(domain.SearchCandidates, ts.Add(randx.Seconds(r, 10, 60)), "", domain.Metadata{
				"query":         randx.Pick(r, queries),
				"results_count": randx.Between(r, 20, 200),
			})
		}
		for _, t := range b.targets(randx.Between(r, 15, 40)) {
			ts = b.reach(ts, t, true, randx.Chance(r, cfg.MessageOnConnectPct))
		}
	}
}

// regularNetworker: a few targets per session, mostly views.
func regularNetworker(b *builder) {
	r := b.in.Rng
	for _, day := range b.sessionDays(min(6, max(2, b.days()))) {
		ts := b.login(b.sessionAt(day, 8, 21), nil)
		connects, messages := randx.Between(r, 1, 3), randx.Between(r, 0, 2)
		for i, t := range b.targets(randx.Between(r, 3, 10)) {
			connect := i < connects
			ts = b.reach(ts, t, connect, connect && i < messages)
		}
	}
}

// returningUser: back after a long absence, one recent session with a few
// views and maybe a profile touch-up.
func returningUser(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.ReturningUser
	if b.days() < 7 {
		weeklyCheckIn(b)
		return
	}
	ts := b.login(b.now.Add(-randx.Days(r, 0, 3)).Add(-randx.Hours(r, 0, 23)), nil)
	for _, t := range b.targets(randx.Between(r, 1, 5)) {
		ts = b.emit(domain.ViewUserPage, ts.Add(randx.Seconds(r, 20, 180)), t, nil)
	}
	if randx.Chance(r, cfg.SecondSessionPct) {
		typ := randx.Pick(r, []domain.InteractionType{domain.UpdateHeadline, domain.UpdateSummary, domain.ChangeLastName})
		b.emit(typ, ts.Add(randx.Seconds(r, 30, 300)), "", domain.Metadata{"reason": randx.Pick(r, reasons)})
	}
}

// newUserOnboarding: first session right after sign-up fills in the profile
// and builds a network, with a follow-up the next day.
func newUserOnboarding(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.NewUserOnboarding
	join := b.in.User.JoinDate
	ts := b.login(join.Add(randx.Seconds(r, 60, 600)), nil)
	if randx.Chance(r, cfg.ProfileUpdatePct) {
		typ := domain.UpdateHeadline
		if randx.Chance(r, 0.5) {
			typ = domain.UpdateSummary
		}
		ts = b.emit(typ, ts.Add(randx.Seconds(r, 30, 180)), "", domain.Metadata{"reason": "onboarding"})
	}
	if randx.Chance(r, cfg.UploadAddressBookPct) {
		ts = b.emit(domain.UploadAddressBook, ts.Add(randx.Seconds(r, 30, 180)), "", domain.Metadata{
			domain.MetaContactCount: randx.Between(r, 50, 400),
		})
	}
	for _, t := range b.targets(randx.Between(r, 3, 12)) {
		ts = b.reach(ts, t, true, randx.Chance(r, cfg.MessageOnConnectPct))
	}
	if b.now.Sub(join) < 24*time.Hour {
		return
	}
	day2 := join.Truncate(24 * time.Hour).Add(24 * time.Hour).Add(randx.Hours(r, 8, 20))
	if !day2.After(ts) || day2.After(b.now) {
		return
	}
	ts = b.login(day2, nil)
	for _, t := range b.targets(randx.Between(r, 2, 6)) {
		ts = b.reach(ts, t, true, false)
	}
}

// weeklyCheckIn: one short session a week.
func weeklyCheckIn(b *builder) {
	r := b.in.Rng
	n := max(1, b.days()/7)
	for i := 0; i < n; i++ {
		ts := b.login(b.sessionAt(i*7+randx.Between(r, 0, 2), 9, 18), nil)
		for _, t := range b.targets(randx.Between(r, 1, 5)) {
			ts = b.emit(domain.ViewUserPage, ts.Add(randx.Seconds(r, 20, 240)), t, nil)
		}
	}
}

// contentConsumer: many views with likes and reacts, rarely a connect.
func contentConsumer(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.ContentConsumer
	for _, day := range b.sessionDays(randx.Between(r, 2, 8)) {
		ts := b.login(b.sessionAt(day, 8, 22), nil)
		for _, t := range b.targets(randx.Between(r, 8, 25)) {
			ts = b.emit(domain.ViewUserPage, ts.Add(randx.Seconds(r, 10, 90)), t, nil)
			switch {
			case randx.Chance(r, cfg.ConnectAfterViewPct):
				ts = b.emit(domain.ConnectWithUser, ts.Add(randx.Seconds(r, 5, 60)), t, nil)
			case randx.Chance(r, cfg.MessageAfterViewPct):
				typ := domain.Like
				if randx.Chance(r, 0.4) {
					typ = domain.React
				}
				ts = b.emit(typ, ts.Add(randx.Seconds(r, 3, 30)), t, nil)
			}
		}
	}
}

// careerUpdate: one or two sessions that edit headline, summary or last
// name.
func careerUpdate(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.CareerUpdate
	if b.days() < 14 {
		regularNetworker(b)
		return
	}
	n := randx.Between(r, 1, 2)
	for i := 0; i < n; i++ {
		ts := b.login(b.sessionAt(randx.Between(r, 14, b.days()), 8, 20), nil)
		ts = b.careerEdit(ts)
		if randx.Chance(r, cfg.SecondUpdateInSessionPct) {
			b.careerEdit(ts)
		}
	}
}

func (b *builder) careerEdit(ts time.Time) time.Time {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.CareerUpdate
	typ, reason := domain.ChangeLastName, "marriage"
	switch roll := r.Float64(); {
	case roll < cfg.UpdateTypeHeadline:
		typ, reason = domain.UpdateHeadline, randx.Pick(r, reasons)
	case roll < cfg.UpdateTypeSummary:
		typ, reason = domain.UpdateSummary, randx.Pick(r, reasons)
	}
	return b.emit(typ, ts.Add(randx.Seconds(r, 30, 300)), "", domain.Metadata{"reason": reason})
}

// execDelegation: an assistant abroad logs in for an executive on most
// days. Fraud-looking on purpose, but legitimate.
func execDelegation(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.ExecDelegation
	b.ip, b.ipType, b.ipCountry = population.RandomIP(r, "PH"), domain.IPResidential, "PH"
	for _, day := range b.sessionDays(min(20, max(6, b.days()))) {
		ts := b.login(b.sessionAt(day, 0, 23), domain.Metadata{"delegated_access": true})
		for _, t := range b.targets(randx.Between(r, 3, 15)) {
			ts = b.reach(ts, t, true, randx.Chance(r, cfg.MessageOnConnectPct))
		}
	}
}

// dormantAccount: at most one verification login shortly after sign-up.
func dormantAccount(b *builder) {
	r, cfg := b.in.Rng, b.in.Config.UsagePatterns.DormantAccount
	if !randx.Chance(r, cfg.LoginOncePct) {
		return
	}
	b.login(b.in.User.JoinDate.Add(randx.Hours(r, 1, 48)), nil)
}

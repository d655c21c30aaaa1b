package legit

import (
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

var messageTexts = []string{
	"Hi, great to connect!",
	"Thanks for accepting, looking forward to staying in touch.",
	"Saw your post last week, really insightful.",
	"Are you going to the conference next month?",
	"Would love to hear more about your team.",
	"Congrats on the new role!",
}

var reasons = []string{"job_change", "promotion", "new_skills", "rebranding"}

// builder accumulates one user's events. Every timestamp passes through
// clamp, which is monotone, so events built in order stay in order.
type builder struct {
	in      Input
	lo, now time.Time
	counter int
	events  []domain.Interaction
	err     error

	ip        string
	ipType    domain.IPType
	ipCountry string
}

func newBuilder(in Input, counter int) *builder {
	return &builder{
		in:        in,
		lo:        in.Start(),
		now:       in.Now,
		counter:   counter,
		ip:        in.User.IPAddress,
		ipType:    in.User.IPType,
		ipCountry: in.User.Country,
	}
}

// days is the whole number of days the user's window spans.
func (b *builder) days() int { return int(b.now.Sub(b.lo).Hours() / 24) }

func (b *builder) clamp(ts time.Time) time.Time {
	if ts.Before(b.lo) {
		return b.lo
	}
	if ts.After(b.now) {
		return b.now
	}
	return ts
}

// sessionAt is the instant of a session on the given day of the window,
// between hourLo and hourHi.
func (b *builder) sessionAt(day, hourLo, hourHi int) time.Time {
	r := b.in.Rng
	return b.lo.Add(time.Duration(day) * 24 * time.Hour).Add(randx.Hours(r, hourLo, hourHi)).Add(randx.Minutes(r, 0, 59))
}

func (b *builder) emit(t domain.InteractionType, ts time.Time, target string, meta domain.Metadata) time.Time {
	ts = b.clamp(ts)
	if b.err != nil {
		return ts
	}
	if meta == nil {
		meta = domain.Metadata{}
	}
	if _, ok := meta[domain.MetaUserAgent]; !ok {
		meta[domain.MetaUserAgent] = b.in.UserAgent
	}
	if _, ok := meta[domain.MetaIPCountry]; !ok {
		meta[domain.MetaIPCountry] = b.ipCountry
	}
	ev, err := domain.NewInteraction(domain.Interaction{
		ID:           EventID(b.counter),
		UserID:       b.in.User.UserID,
		Type:         t,
		Timestamp:    ts,
		IPAddress:    b.ip,
		IPType:       b.ipType,
		TargetUserID: target,
		Metadata:     meta,
	}, b.in.Now)
	if err != nil {
		b.err = err
		return ts
	}
	b.counter++
	b.events = append(b.events, ev)
	return ts
}

// login opens a session at ts, sometimes after one failed attempt, and
// returns the time of the successful login.
func (b *builder) login(ts time.Time, extra domain.Metadata) time.Time {
	r := b.in.Rng
	if randx.Chance(r, b.in.Config.Common.LoginFailureBeforeSuccessPct) {
		ts = b.emit(domain.Login, ts, "", b.loginMeta(false, extra))
		ts = ts.Add(randx.Seconds(r, 5, 30))
	}
	return b.emit(domain.Login, ts, "", b.loginMeta(true, extra))
}

func (b *builder) loginMeta(ok bool, extra domain.Metadata) domain.Metadata {
	m := domain.Metadata{domain.MetaLoginSuccess: ok}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func (b *builder) message(ts time.Time, target string) time.Time {
	r := b.in.Rng
	return b.emit(domain.MessageUser, ts, target, domain.Metadata{
		"message_length":      randx.Between(r, 30, 200),
		"is_spam":             false,
		domain.MetaMessageText: randx.Pick(r, messageTexts),
	})
}

// reach views target, then optionally connects and messages. The view
// always comes first so outreach never precedes it.
func (b *builder) reach(ts time.Time, target string, connect, message bool) time.Time {
	r := b.in.Rng
	ts = b.emit(domain.ViewUserPage, ts.Add(randx.Seconds(r, 10, 90)), target, nil)
	if connect {
		ts = b.emit(domain.ConnectWithUser, ts.Add(randx.Seconds(r, 5, 60)), target, nil)
	}
	if message {
		ts = b.message(ts.Add(randx.Seconds(r, 10, 120)), target)
	}
	return ts
}

// targets samples up to n other users. Small draws from a large population
// use index rejection instead of copying the id slice.
func (b *builder) targets(n int) []string {
	ids, self := b.in.UserIDs, b.in.User.UserID
	if n <= 0 {
		return nil
	}
	if len(ids) < 4*(n+1) {
		out := make([]string, 0, n)
		for _, id := range randx.Sample(b.in.Rng, ids, n+1) {
			if id != self && len(out) < n {
				out = append(out, id)
			}
		}
		return out
	}
	seen := make(map[int]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		i := b.in.Rng.Intn(len(ids))
		if seen[i] || ids[i] == self {
			continue
		}
		seen[i] = true
		out = append(out, ids[i])
	}
	return out
}

// last is the latest timestamp emitted so far, or the window start.
func (b *builder) last() time.Time {
	out := b.lo
	for _, ev := range b.events {
		if ev.Timestamp.After(out) {
			out = ev.Timestamp
		}
	}
	return out
}

func (b *builder) closeAccount() {
	b.emit(domain.CloseAccount, b.last().Add(randx.Minutes(b.in.Rng, 5, 60)), "", nil)
}

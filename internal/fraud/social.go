package fraud

import (
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

var romanceTexts = map[string][]string{
	"initial": {
		"Hi, your profile caught my eye. How are you today?",
		"I saw we share some interests, I'd love to get to know you.",
	},
	"middle": {
		"I feel like I've known you forever.",
		"Talking to you is the best part of my day.",
	},
	"ask": {
		"I'm stuck abroad and my card was blocked, could you help me with a transfer?",
		"There's a fee holding up my shipment, I'll pay you back as soon as it clears.",
	},
}

// romanceScam: a compromised account courts one target for weeks from a
// rotating set of residential addresses, ending in a request for money.
func romanceScam(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.RomanceScam
	victim := inv.Actors[0]
	others := r.env.others(victim)
	if len(others) == 0 {
		return
	}
	target := randx.Pick(rng, others)
	a := actor{id: victim, ip: r.residentialIP(), ipType: domain.IPResidential, country: r.attackerCountry(r.env.country(victim))}
	ts := r.login(a, inv.Base, 0, 1, nil)
	ts = ts.Add(randx.Minutes(rng, 5, 30))

	n := max(1, randx.Between(rng, cfg.MessagesPerVictim.Min, cfg.MessagesPerVictim.Max))
	days := randx.Between(rng, cfg.DurationDays.Min, cfg.DurationDays.Max)
	interval := int(time.Duration(days) * 24 * time.Hour / time.Duration(n) / time.Second)
	for i := 0; i < n; i++ {
		phase := "initial"
		switch {
		case i >= 2*n/3:
			phase = "ask"
		case i >= n/3:
			phase = "middle"
		}
		a.ip = r.residentialIP()
		text := randx.Pick(rng, romanceTexts[phase])
		ts = r.emit(a, domain.MessageUser, ts, target, domain.Metadata{
			"scam_phase":           phase,
			"message_length":       len(text),
			domain.MetaMessageText: text,
		})
		ts = ts.Add(randx.Seconds(rng, max(1, interval/2), max(1, interval)))
	}
}

// sessionHijacking: a stolen session token is replayed from a hosting
// address, skipping the login form entirely, followed by browsing.
func sessionHijacking(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.SessionHijacking
	a := r.hijack(inv.Actors[0])
	ts := r.emit(a, domain.SessionLogin, inv.Base, "", domain.Metadata{
		"session_stolen":           true,
		domain.MetaAttackerCountry: a.country,
	})
	ts = ts.Add(randx.Minutes(rng, 1, 5))
	others := r.env.others(a.id)
	if len(others) == 0 {
		return
	}
	for i := randx.Between(rng, cfg.ActionsAfterHijack.Min, cfg.ActionsAfterHijack.Max); i > 0; i-- {
		ts = r.emit(a, domain.ViewUserPage, ts.Add(randx.Minutes(rng, 2, 30)), randx.Pick(rng, others), nil)
	}
}

// credentialPhishing: credentials are captured on a fake login page and,
// usually, replayed against the real one within two days.
func credentialPhishing(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.CredentialPhishing
	a := r.hijack(inv.Actors[0])
	ts := r.emit(a, domain.PhishingLogin, inv.Base, "", domain.Metadata{
		"phishing_site":            "fake-login.net",
		domain.MetaAttackerCountry: a.country,
	})
	if randx.Chance(rng, cfg.CaptureThenLoginPct) {
		r.emit(a, domain.Login, ts.Add(randx.Hours(rng, 1, 48)), "", loginMeta(a, true, domain.Metadata{"captured_credentials": true}))
	}
}

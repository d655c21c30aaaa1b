package fraud

import (
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Single-victim takeovers. Each starts from the attacker's login on the
// victim's account and differs in tempo and what is taken.

// smashGrab: login, address book, 80-200 spam over 1-3 h, optional close.
func smashGrab(r *recorder, inv Invocation) {
	rng := r.rng()
	a := r.hijack(inv.Actors[0])
	ts := r.login(a, inv.Base, 0, 3, nil)
	ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 5, 20)), "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 50, 500),
	})
	targets := r.env.shuffledOthers(randx.Between(rng, 80, 200), a.id)
	r.spam(a, ts.Add(2*time.Minute), randx.HoursF(randx.Uniform(rng, 1, 3)), targets)
	if inv.Close {
		r.emit(a, domain.CloseAccount, r.lastOf(a.id).Add(randx.Minutes(rng, 10, 60)), "", nil)
	}
}

// lowSlow: login, a few scattered views during a 2-5 day lull, then a
// trickle of spam over 2-3 days. Never closes.
func lowSlow(r *recorder, inv Invocation) {
	rng := r.rng()
	a := r.hijack(inv.Actors[0])
	ts := r.login(a, inv.Base, 0, 3, nil)
	dormant := randx.Between(rng, 2, 5)
	others := r.env.others(a.id)
	for i := randx.Between(rng, 3, 8); i > 0 && len(others) > 0; i-- {
		r.emit(a, domain.ViewUserPage, ts.Add(randx.Hours(rng, 6, dormant*24)), randx.Pick(rng, others), nil)
	}
	ts = ts.Add(time.Duration(dormant) * 24 * time.Hour).Add(randx.Hours(rng, 1, 12))
	ts = r.emit(a, domain.DownloadAddressBook, ts, "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 30, 300),
	})
	spamDays := randx.Between(rng, 2, 3)
	for _, t := range randx.Sample(rng, others, randx.Between(rng, 15, 40)) {
		r.emit(a, domain.MessageUser, ts.Add(randx.Hours(rng, 1, spamDays*24)), t, spamMeta(rng))
	}
}

// countryHopper: 3-4 logins from different countries over a week, then a
// final login that downloads and spams.
func countryHopper(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.CountryHopper
	victim := inv.Actors[0]
	home := r.env.country(victim)
	others := r.env.others(victim)
	hops := randx.Between(rng, 3, 4)
	for i := 0; i < hops; i++ {
		a := actor{id: victim, ip: r.hostingIP(), ipType: domain.IPHosting, country: r.attackerCountry(home)}
		at := inv.Base.Add(randx.Days(rng, 0, 6)).Add(randx.Hours(rng, 0, 23))
		at = r.login(a, at, 0, 3, domain.Metadata{"hop_sequence": i + 1})
		if len(others) > 0 && randx.Chance(rng, cfg.ViewDuringHopPct) {
			r.emit(a, domain.ViewUserPage, at.Add(randx.Minutes(rng, 5, 120)), randx.Pick(rng, others), nil)
		}
	}

	a := actor{id: victim, ip: r.hostingIP(), ipType: domain.IPHosting, country: r.attackerCountry(home)}
	ts := inv.Base.Add(7 * 24 * time.Hour).Add(randx.Hours(rng, 0, 12))
	ts = r.login(a, ts, 0, 3, nil)
	ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 3, 15)), "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 50, 400),
	})
	targets := randx.Sample(rng, others, randx.Between(rng, 40, 100))
	r.spam(a, ts.Add(5*time.Minute), randx.HoursF(randx.Uniform(rng, 2, 6)), targets)
	if inv.Close {
		r.emit(a, domain.CloseAccount, r.lastOf(victim).Add(randx.Minutes(rng, 5, 30)), "", nil)
	}
}

// dataThief: login with a scripted client, download, close. No spam.
func dataThief(r *recorder, inv Invocation) {
	rng := r.rng()
	a := r.hijack(inv.Actors[0])
	a.ua = "python-requests/2.31"
	ts := r.login(a, inv.Base, 0, 3, nil)
	ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 1, 5)), "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 100, 1000),
	})
	r.emit(a, domain.CloseAccount, ts.Add(randx.Minutes(rng, 1, 10)), "", nil)
}

// credentialStuffer: one attacker address works through a batch of
// accounts in quick succession. Some accounts are closed afterwards.
func credentialStuffer(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.CredentialStuffer
	ip := r.hostingIP()
	ts := inv.Base
	for i, victim := range inv.Actors {
		a := actor{id: victim, ip: ip, ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(victim))}
		ts = r.login(a, ts.Add(randx.Minutes(rng, 2, 15)), 0, 3, domain.Metadata{
			"batch_index": i + 1,
			"batch_size":  len(inv.Actors),
		})
		ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 2, 8)), "", domain.Metadata{
			domain.MetaContactCount: randx.Between(rng, 30, 300),
		})
		targets := r.env.shuffledOthers(randx.Between(rng, 20, 60), victim)
		r.spam(a, ts.Add(3*time.Minute), randx.HoursF(randx.Uniform(rng, 0.5, 2)), targets)
		last := r.lastOf(victim)
		if randx.Chance(rng, cfg.CloseAccountPct) {
			last = r.emit(a, domain.CloseAccount, last.Add(randx.Minutes(rng, 5, 20)), "", nil)
		}
		ts = last.Add(randx.Minutes(rng, 10, 60))
	}
}

// loginStorm: 5-15 failed logins, success, download, close.
func loginStorm(r *recorder, inv Invocation) {
	rng := r.rng()
	a := r.hijack(inv.Actors[0])
	ts := r.login(a, inv.Base, 5, 15, nil)
	ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 1, 5)), "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 50, 300),
	})
	r.emit(a, domain.CloseAccount, ts.Add(randx.Minutes(rng, 1, 10)), "", nil)
}

// stealthTakeover: failures then success from one host, a second login
// from another country and browser, days of quiet, a download, and a
// close from a residential address in a third country.
func stealthTakeover(r *recorder, inv Invocation) {
	rng := r.rng()
	victim := inv.Actors[0]
	countries := r.distinctCountries(r.env.country(victim), 3)
	for len(countries) < 3 {
		countries = append(countries, countries[len(countries)-1])
	}
	first := actor{id: victim, ip: r.hostingIP(), ipType: domain.IPHosting, country: countries[0]}
	second := actor{id: victim, ip: r.hostingIP(), ipType: domain.IPHosting, country: countries[1], ua: randx.Pick(rng, altUserAgents)}
	closer := actor{id: victim, ip: r.residentialIP(), ipType: domain.IPResidential, country: countries[2]}

	ts := r.login(first, inv.Base, 3, 8, nil)
	ts = r.emit(second, domain.Login, ts.Add(randx.Hours(rng, 2, 12)), "", loginMeta(second, true, nil))
	ts = ts.Add(randx.Days(rng, 2, 5)).Add(randx.Hours(rng, 0, 12)).Add(randx.Minutes(rng, 5, 60))
	ts = r.emit(second, domain.DownloadAddressBook, ts, "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 50, 400),
	})
	r.emit(closer, domain.CloseAccount, ts.Add(randx.Minutes(rng, 10, 120)), "", nil)
}

// spearPhisher: residential address, optional profile tweaks, then a slow
// view-then-message cadence against 5-15 targets. The account stays open.
func spearPhisher(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.SpearPhisher
	victim := inv.Actors[0]
	a := actor{
		id:      victim,
		ip:      r.residentialIP(),
		ipType:  domain.IPResidential,
		country: r.attackerCountry(r.env.country(victim)),
		ua:      randx.Pick(rng, altUserAgents),
	}
	ts := r.login(a, inv.Base, 0, 3, nil)
	ts = ts.Add(randx.Minutes(rng, 2, 20))
	if randx.Chance(rng, cfg.ProfileTweakPct) {
		r.emit(a, domain.ChangeProfile, ts, "", nil)
		ts = ts.Add(randx.Minutes(rng, 1, 5))
	}
	if randx.Chance(rng, cfg.ChangeNamePct) {
		r.emit(a, domain.ChangeName, ts, "", nil)
		ts = ts.Add(randx.Minutes(rng, 1, 5))
	}
	for _, t := range r.env.shuffledOthers(randx.Between(rng, 5, 15), victim) {
		ts = r.emit(a, domain.ViewUserPage, ts.Add(randx.Minutes(rng, 1, 10)), t, domain.Metadata{"recon": true})
		ts = r.emit(a, domain.MessageUser, ts.Add(randx.Minutes(rng, 5, 30)), t, phishMeta(rng, phishPretexts))
		ts = ts.Add(randx.Minutes(rng, 30, 180))
	}
}

// credentialTester: one address checks a batch of leaked credentials, one
// login each and maybe a single confirming view.
func credentialTester(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.CredentialTester
	ip, ua := r.hostingIP(), randx.Pick(rng, botUserAgents)
	ts := inv.Base
	for _, victim := range inv.Actors {
		a := actor{id: victim, ip: ip, ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(victim)), ua: ua}
		if randx.Chance(rng, cfg.FailedLoginFirstPct) {
			r.emit(a, domain.Login, ts, "", loginMeta(a, false, nil))
			ts = ts.Add(randx.Seconds(rng, 2, 8))
		}
		r.emit(a, domain.Login, ts, "", loginMeta(a, true, nil))
		if randx.Chance(rng, cfg.PageViewAfterLoginPct) {
			ts = ts.Add(randx.Seconds(rng, 3, 15))
			if others := r.env.others(victim); len(others) > 0 {
				r.emit(a, domain.ViewUserPage, ts, randx.Pick(rng, others), nil)
			}
		}
		ts = ts.Add(randx.Seconds(rng, 5, 30))
	}
}

// connectionHarvester: login, maybe an address-book pull, then a burst of
// connection requests to inflate the account's network.
func connectionHarvester(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.ConnectionHarvester
	a := r.hijack(inv.Actors[0])
	ts := r.login(a, inv.Base, 0, 3, nil)
	if randx.Chance(rng, cfg.DownloadAddressBookPct) {
		ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 2, 10)), "", domain.Metadata{
			domain.MetaContactCount: randx.Between(rng, 50, 400),
		})
	}
	ts = ts.Add(randx.Minutes(rng, 3, 15))
	targets := r.env.shuffledOthers(randx.Between(rng, cfg.Requests.Min, cfg.Requests.Max), a.id)
	window := randx.HoursF(randx.Uniform(rng, 1, 4))
	for i, t := range targets {
		r.emit(a, domain.ConnectWithUser, ts.Add(randx.Spread(window, i, len(targets))), t, domain.Metadata{"batch_index": i + 1})
	}
}

// sleeperAgent: compromise and password change, weeks of login-only
// check-ins, then activation from a new address with download and spam.
func sleeperAgent(r *recorder, inv Invocation) {
	rng := r.rng()
	a := r.hijack(inv.Actors[0])
	ts := r.login(a, inv.Base, 0, 3, nil)
	ts = r.emit(a, domain.ChangePassword, ts.Add(randx.Minutes(rng, 2, 15)), "", nil)

	span := time.Duration(randx.Between(rng, 2, 4)) * 7 * 24 * time.Hour
	checkins := randx.Between(rng, 6, 12)
	interval := span.Hours() / float64(checkins)
	for i := 0; i < checkins; i++ {
		jitter := randx.Uniform(rng, -interval*0.2, interval*0.2)
		r.emit(a, domain.Login, ts.Add(randx.HoursF(interval*float64(i+1)+jitter)), "", loginMeta(a, true, domain.Metadata{
			"checkin_sequence": i + 1,
		}))
	}

	ts = ts.Add(span).Add(randx.Hours(rng, 1, 12))
	a.ip = r.hostingIP()
	ts = r.emit(a, domain.Login, ts, "", loginMeta(a, true, domain.Metadata{"activation": true}))
	ts = r.emit(a, domain.DownloadAddressBook, ts.Add(randx.Minutes(rng, 3, 15)), "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 50, 400),
	})
	targets := r.env.shuffledOthers(randx.Between(rng, 30, 80), a.id)
	r.spam(a, ts.Add(5*time.Minute), randx.HoursF(randx.Uniform(rng, 1, 4)), targets)
}

// profileDefacement: login, then rename and rewrite the profile, maybe
// locking the owner out. The account stays open so the defacement shows.
func profileDefacement(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.ProfileDefacement
	a := r.hijack(inv.Actors[0])
	a.ua = randx.Pick(rng, altUserAgents)
	ts := r.login(a, inv.Base, 0, 3, nil)
	ts = r.emit(a, domain.ChangeName, ts.Add(randx.Minutes(rng, 2, 15)), "", domain.Metadata{"defacement_type": "display_name"})
	ts = ts.Add(randx.Minutes(rng, 1, 5))
	if randx.Chance(rng, cfg.ChangeProfilePct) {
		r.emit(a, domain.ChangeProfile, ts, "", domain.Metadata{"defacement_type": "headline_summary"})
		ts = ts.Add(randx.Minutes(rng, 1, 5))
	}
	if randx.Chance(rng, cfg.ChangePasswordPct) {
		r.emit(a, domain.ChangePassword, ts, "", nil)
	}
}

// lastOf is the latest drafted timestamp of user id.
func (r *recorder) lastOf(id string) time.Time {
	var out time.Time
	for _, d := range r.drafts {
		if d.UserID == id {
			out = laterOf(out, d.Timestamp)
		}
	}
	return out
}

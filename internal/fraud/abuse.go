package fraud

import (
	"fmt"
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Platform abuse driven by pre-seeded fishy accounts. These accounts are
// the attackers' own, so nothing here counts a victim.

// fakeAccount: a freshly registered bulk account sets itself up from a US
// host, then reappears from abroad to upload a scraped address book and
// spam.
func fakeAccount(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.FakeAccount
	id := inv.Actors[0]
	a := actor{id: id, ip: randx.Pick(rng, usHostingIPs), ipType: domain.IPHosting, country: "US"}
	ts := r.emit(a, domain.Login, inv.Base, "", loginMeta(a, true, nil))
	ts = r.emit(a, domain.ChangePassword, ts.Add(randx.Minutes(rng, 2, 10)), "", nil)
	ts = ts.Add(randx.Minutes(rng, 1, 5))
	if randx.Chance(rng, cfg.ChangeProfilePct) {
		ts = r.emit(a, domain.ChangeProfile, ts, "", nil).Add(randx.Minutes(rng, 1, 3))
	}
	if randx.Chance(rng, cfg.ChangeNamePct) {
		ts = r.emit(a, domain.ChangeName, ts, "", nil).Add(randx.Minutes(rng, 1, 3))
	}

	a.ip, a.country = r.hostingIP(), randx.Pick(rng, []string{"CN", "NG", "UA", "RO"})
	ts = r.emit(a, domain.Login, ts.Add(randx.Hours(rng, 2, 24)), "", loginMeta(a, true, nil))
	ts = r.emit(a, domain.UploadAddressBook, ts.Add(randx.Minutes(rng, 3, 15)), "", domain.Metadata{
		domain.MetaContactCount: randx.Between(rng, 2000, 8000),
	})
	targets := r.env.shuffledOthers(randx.Between(rng, 50, 150), id)
	r.spam(a, ts.Add(randx.Minutes(rng, 5, 30)), randx.HoursF(randx.Uniform(rng, 1, 4)), targets)
}

// accountFarming: a buyer takes delivery of aged accounts one after
// another, locks each to themselves and rebrands it.
func accountFarming(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.AccountFarming
	ip := r.residentialIP()
	ts := inv.Base
	for _, id := range inv.Actors {
		a := actor{id: id, ip: ip, ipType: domain.IPResidential, country: "US"}
		h := cfg.HoursBetweenAccounts
		ts = ts.Add(randx.Hours(rng, h.Min, h.Max)).Add(randx.Minutes(rng, 0, 59))
		ts = r.emit(a, domain.Login, ts, "", loginMeta(a, true, domain.Metadata{"buyer_takeover": true}))
		ts = r.emit(a, domain.ChangePassword, ts.Add(randx.Minutes(rng, 2, 15)), "", nil)
		ts = r.emit(a, domain.ChangeProfile, ts.Add(randx.Minutes(rng, 1, 5)), "", nil)
		ts = r.emit(a, domain.ChangeName, ts.Add(randx.Minutes(rng, 1, 3)), "", nil)
		ts = ts.Add(randx.Minutes(rng, 1, 3))
		if randx.Chance(rng, cfg.UpdateHeadlinePct) {
			ts = r.emit(a, domain.UpdateHeadline, ts, "", nil).Add(randx.Minutes(rng, 1, 2))
		}
		if randx.Chance(rng, cfg.UpdateSummaryPct) {
			r.emit(a, domain.UpdateSummary, ts, "", nil)
		}
	}
}

// ringLogin staggers the ring's logins from base and returns the actors
// and the time the last one is ready.
func (r *recorder) ringLogin(ids []string, maxIPs int, base time.Time, step, settle [2]int) ([]actor, time.Time) {
	rng := r.rng()
	ips := r.clusterIPs(len(ids), maxIPs)
	ring := make([]actor, len(ids))
	ts := base
	for i, id := range ids {
		ring[i] = actor{id: id, ip: ips[i%len(ips)], ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(id))}
		ts = r.login(ring[i], ts.Add(randx.Minutes(rng, step[0], step[1])), 0, 2, domain.Metadata{"ip_cluster": true})
	}
	return ring, ts.Add(randx.Minutes(rng, settle[0], settle[1]))
}

// coordinatedHarassment: every ring member messages each target in turn.
func coordinatedHarassment(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.CoordinatedHarassment
	ring, ts := r.ringLogin(inv.Actors, cfg.ClusterIPsMax, inv.Base, [2]int{1, 15}, [2]int{2, 10})
	for _, t := range r.env.shuffledOthers(cfg.NumTargets, inv.Actors...) {
		for _, a := range ring {
			text := randx.Pick(rng, harassmentTexts)
			ts = r.emit(a, domain.MessageUser, ts.Add(randx.Minutes(rng, 1, 5)), t, domain.Metadata{
				"harassment":           true,
				"message_length":       len(text),
				domain.MetaMessageText: text,
			})
		}
		ts = ts.Add(randx.Minutes(rng, 1, 3))
	}
}

// coordinatedLikeInflation: the ring likes one post within minutes.
func coordinatedLikeInflation(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.CoordinatedLikeInflation
	ring, ts := r.ringLogin(inv.Actors, cfg.ClusterIPsMax, inv.Base, [2]int{1, 15}, [2]int{2, 10})
	others := r.env.others(inv.Actors...)
	if len(others) == 0 {
		return
	}
	author := randx.Pick(rng, others)
	window := randx.Minutes(rng, cfg.LikeWindowMinutes.Min, cfg.LikeWindowMinutes.Max)
	for i, a := range ring {
		r.emit(a, domain.Like, ts.Add(randx.Spread(window, i, len(ring))), author, domain.Metadata{"post_author": author})
	}
}

// profileCloning: each cloner impersonates someone and works through the
// original's contacts with views, connects and a stream of messages.
func profileCloning(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.ProfileCloning
	ts := inv.Base
	for _, id := range inv.Actors {
		a := actor{id: id, ip: r.hostingIP(), ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(id))}
		ts = r.login(a, ts.Add(randx.Minutes(rng, 1, 10)), 0, 2, nil)
		ts = ts.Add(randx.Minutes(rng, 2, 8))
		for _, v := range r.env.shuffledOthers(cfg.NumVictims, inv.Actors...) {
			ts = r.emit(a, domain.ViewUserPage, ts.Add(randx.Minutes(rng, 1, 5)), v, nil)
			if randx.Chance(rng, cfg.ConnectBeforeMessagePct) {
				ts = r.emit(a, domain.ConnectWithUser, ts.Add(randx.Minutes(rng, 1, 3)), v, nil)
			}
			for i := randx.Between(rng, cfg.MessagesPerVictim.Min, cfg.MessagesPerVictim.Max); i > 0; i-- {
				ts = r.emit(a, domain.MessageUser, ts.Add(randx.Minutes(rng, 5, 30)), v, domain.Metadata{"impersonation": true})
			}
		}
	}
}

var endorsedSkills = []string{"python", "leadership", "data_analysis", "project_management"}

// endorsementInflation: the ring piles skill endorsements onto a few
// targets in bursts.
func endorsementInflation(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.EndorsementInflation
	ring, ts := r.ringLogin(inv.Actors, cfg.ClusterIPsMax, inv.Base, [2]int{1, 10}, [2]int{1, 5})
	per := cfg.EndorsementsPerSkill
	for _, t := range r.env.shuffledOthers(cfg.NumTargets, inv.Actors...) {
		for _, skill := range endorsedSkills {
			for _, a := range randx.Sample(rng, ring, randx.Between(rng, per.Min, per.Max)) {
				ts = r.emit(a, domain.EndorseSkill, ts.Add(randx.Seconds(rng, 10, 60)), t, domain.Metadata{domain.MetaSkillID: skill})
			}
		}
	}
}

// recommendationFraud: ring members write recommendations for targets
// they have never worked with.
func recommendationFraud(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.RecommendationFraud
	ring, ts := r.ringLogin(inv.Actors, cfg.ClusterIPsMax, inv.Base, [2]int{1, 10}, [2]int{1, 5})
	for _, t := range r.env.shuffledOthers(cfg.NumTargets, inv.Actors...) {
		ts = r.emit(randx.Pick(rng, ring), domain.GiveRecommendation, ts.Add(randx.Minutes(rng, 2, 15)), t, nil)
	}
}

var jobTitles = []string{
	"Remote Data Entry Clerk", "Work From Home Assistant", "Payment Processing Agent",
	"Package Reshipping Coordinator", "Online Survey Specialist",
}

// jobPostingScam: each scammer posts a bogus job and collects
// applications. Applicants are ordinary members drawn from outside the
// reserved set; some are redirected to a phishing page.
func jobPostingScam(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.JobPostingScam
	pool := r.env.others(inv.Actors...)
	eligible := pool[:0:0]
	for _, id := range pool {
		if !r.env.Reserved[id] {
			eligible = append(eligible, id)
		}
	}
	ts := inv.Base
	for _, id := range inv.Actors {
		a := actor{id: id, ip: r.hostingIP(), ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(id))}
		ts = r.login(a, ts, 0, 1, nil)
		jobID := fmt.Sprintf("job-%06d", randx.Between(rng, 1, 999999))
		ts = r.emit(a, domain.CreateJobPosting, ts.Add(randx.Minutes(rng, 2, 8)), "", domain.Metadata{
			domain.MetaJobID: jobID,
			"job_title":      randx.Pick(rng, jobTitles),
		})
		ts = ts.Add(randx.Minutes(rng, 5, 30))
		apps := cfg.ApplicationsPerJob
		for _, appl := range randx.Sample(rng, eligible, randx.Between(rng, apps.Min, apps.Max)) {
			b := actor{id: appl, ip: r.hostingIP(), ipType: domain.IPHosting, country: r.env.country(appl)}
			ts = r.emit(b, domain.Login, ts.Add(randx.Minutes(rng, 1, 10)), "", loginMeta(b, true, nil))
			ts = r.emit(b, domain.ViewJob, ts.Add(randx.Minutes(rng, 1, 5)), "", domain.Metadata{domain.MetaJobID: jobID})
			meta := domain.Metadata{domain.MetaJobID: jobID}
			if randx.Chance(rng, cfg.PhishingRedirectPct) {
				meta["phishing_url"] = "https://apply-now-" + jobID + ".work/verify"
			}
			ts = r.emit(b, domain.ApplyToJob, ts.Add(randx.Minutes(rng, 1, 5)), id, meta)
		}
	}
}

// invitationSpam: each ring member fires off connection requests at a
// steady machine pace.
func invitationSpam(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.InvitationSpam
	ring, start := r.ringLogin(inv.Actors, cfg.ClusterIPsMax, inv.Base, [2]int{1, 10}, [2]int{1, 5})
	per := cfg.RequestsPerAccount
	for _, a := range ring {
		ts := start
		for _, t := range r.env.shuffledOthers(randx.Between(rng, per.Min, per.Max), a.id) {
			ts = r.emit(a, domain.SendConnectionRequest, ts.Add(randx.Seconds(rng, 5, 45)), t, nil)
		}
	}
}

// groupSpam: each account joins its groups and floods them with posts.
func groupSpam(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.GroupSpam
	ts := inv.Base
	for _, id := range inv.Actors {
		a := actor{id: id, ip: r.hostingIP(), ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(id))}
		ts = r.login(a, ts, 0, 1, nil)
		for _, g := range r.env.Profiles[id].GroupsJoined {
			ts = r.emit(a, domain.JoinGroup, ts.Add(randx.Minutes(rng, 1, 5)), "", domain.Metadata{domain.MetaGroupID: g})
			for i := randx.Between(rng, cfg.PostsPerGroup.Min, cfg.PostsPerGroup.Max); i > 0; i-- {
				meta := spamMeta(rng)
				meta[domain.MetaGroupID] = g
				ts = r.emit(a, domain.PostInGroup, ts.Add(randx.Minutes(rng, 5, 60)), "", meta)
			}
		}
		ts = ts.Add(randx.Minutes(rng, 10, 60))
	}
}

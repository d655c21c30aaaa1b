package fraud

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Coordinated techniques: several compromised accounts share a small pool
// of hosting addresses and split one job between them.

// clusterLogin logs every actor in from the shared pool, each at base plus
// up to spread, and returns the actors and the latest login.
func (r *recorder) clusterLogin(ids, ips []string, base time.Time, spread time.Duration, ua string, meta func(ip string) domain.Metadata) ([]actor, time.Time) {
	rng := r.rng()
	actors := make([]actor, len(ids))
	var latest time.Time
	for i, id := range ids {
		ip := ips[i%len(ips)]
		actors[i] = actor{id: id, ip: ip, ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(id)), ua: ua}
		var extra domain.Metadata
		if meta != nil {
			extra = meta(ip)
		}
		at := base.Add(time.Duration(rng.Int63n(int64(spread) + 1)))
		latest = laterOf(latest, r.login(actors[i], at, 0, 2, extra))
	}
	return actors, latest
}

// scraperCluster walks the member directory with page views. The walk
// order and cadence depend on the strategy.
func scraperCluster(r *recorder, inv Invocation) {
	rng := r.rng()
	strategy := inv.Strategy
	if strategy == "" {
		strategy = randx.Pick(rng, scrapeStrategies)
	}
	ips := r.clusterIPs(len(inv.Actors), 5)
	ua := randx.Pick(rng, botUserAgents)
	scrapers, latest := r.clusterLogin(inv.Actors, ips, inv.Base, 30*time.Minute, ua, nil)

	targets := r.env.others(inv.Actors...)
	switch strategy {
	case ScrapeAlphabetical:
		name := func(id string) string { return strings.ToLower(r.env.Profiles[id].DisplayName) }
		sort.SliceStable(targets, func(i, j int) bool { return name(targets[i]) < name(targets[j]) })
	case ScrapeCoordinated:
		sort.Strings(targets)
	default:
		randx.Shuffle(rng, targets)
	}
	pages := min(len(targets), randx.Between(rng, 200, 600))
	targets = targets[:pages]
	if pages == 0 {
		return
	}
	start := latest.Add(randx.Minutes(rng, 2, 15))
	meta := func(extra domain.Metadata) domain.Metadata {
		extra["scrape_strategy"] = string(strategy)
		extra["is_bot"] = true
		return extra
	}

	switch strategy {
	case ScrapeAlphabetical:
		switchAt := pages
		if len(scrapers) > 1 {
			switchAt = randx.Between(rng, pages/2, pages-1)
		}
		interval := randx.Uniform(rng, 3, 8)
		for i, t := range targets {
			s := scrapers[0]
			if i >= switchAt {
				s = scrapers[1]
			}
			offset := interval*float64(i) + randx.Uniform(rng, -0.5, 0.5)
			r.emit(s, domain.ViewUserPage, start.Add(seconds(max(0, offset))), t, meta(domain.Metadata{"scrape_index": i}))
		}
	case ScrapeRegularInterval:
		interval := randx.Pick(rng, []int{5, 10, 15, 20, 30})
		for i, t := range targets {
			s := scrapers[i%len(scrapers)]
			r.emit(s, domain.ViewUserPage, start.Add(time.Duration(i*interval)*time.Second), t, meta(domain.Metadata{
				"interval_seconds": interval,
			}))
		}
	case ScrapeCoordinated:
		chunk := (pages + len(scrapers) - 1) / len(scrapers)
		for j, s := range scrapers {
			lo := j * chunk
			if lo >= pages {
				break
			}
			hi := min(pages, lo+chunk)
			ts := start.Add(randx.Minutes(rng, 0, 15))
			interval := randx.Uniform(rng, 8, 20)
			for _, t := range targets[lo:hi] {
				ts = ts.Add(seconds(max(1, interval+randx.Uniform(rng, -3, 3))))
				r.emit(s, domain.ViewUserPage, ts, t, meta(domain.Metadata{"segment_index": j}))
			}
		}
	}
}

var execTitles = []string{"ceo", "founder", "chief executive", "co-founder", "managing partner"}

func isExecutive(headline string) bool {
	h := strings.ToLower(headline)
	for _, t := range execTitles {
		if strings.Contains(h, t) {
			return true
		}
	}
	return false
}

// executiveHunter: a cluster shares out the population's executives and
// works each one with a recon view and a tailored phishing message.
func executiveHunter(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.ExecutiveHunter
	ips := r.clusterIPs(len(inv.Actors), cfg.ClusterIPsMax)
	hunters, latest := r.clusterLogin(inv.Actors, ips, inv.Base, 20*time.Minute, "", func(ip string) domain.Metadata {
		return domain.Metadata{"ip_cluster_id": "cluster_" + ip[:min(10, len(ip))]}
	})

	others := r.env.others(inv.Actors...)
	var execs []string
	for _, id := range others {
		if isExecutive(r.env.Profiles[id].Headline) {
			execs = append(execs, id)
		}
	}
	if len(execs) == 0 {
		execs = randx.Sample(rng, others, cfg.FallbackTargets)
	}
	randx.Shuffle(rng, execs)
	execs = execs[:min(len(execs), randx.Between(rng, cfg.Targets.Min, cfg.Targets.Max))]
	if len(execs) == 0 {
		return
	}

	start := latest.Add(randx.Minutes(rng, 10, 30))
	per := len(execs) / len(hunters)
	for i, h := range hunters {
		lo, hi := i*per, (i+1)*per
		if i == len(hunters)-1 {
			hi = len(execs)
		}
		ts := start
		for _, t := range execs[lo:hi] {
			ts = r.emit(h, domain.ViewUserPage, ts.Add(randx.Minutes(rng, 5, 20)), t, domain.Metadata{
				"recon":       true,
				"target_type": "executive",
			})
			ts = r.emit(h, domain.MessageUser, ts.Add(randx.Minutes(rng, 10, 45)), t, phishMeta(rng, execPretexts))
			ts = ts.Add(randx.Minutes(rng, 15, 60))
		}
	}
}

// adEngagementFraud: a bot cluster alternates ad views and clicks on one
// ad to inflate its engagement.
func adEngagementFraud(r *recorder, inv Invocation) {
	rng, cfg := r.rng(), r.env.Config.Fraud.AdEngagementFraud
	ips := r.clusterIPs(len(inv.Actors), cfg.ClusterIPsMax)
	ua := randx.Pick(rng, botUserAgents)
	bots := make([]actor, len(inv.Actors))
	ts := inv.Base
	for i, id := range inv.Actors {
		bots[i] = actor{id: id, ip: ips[i%len(ips)], ipType: domain.IPHosting, country: r.attackerCountry(r.env.country(id)), ua: ua}
		ts = r.login(bots[i], ts.Add(randx.Minutes(rng, 1, 5)), 0, 1, nil)
		ts = ts.Add(randx.Minutes(rng, 1, 3))
	}
	adID := "ad-" + strconv.Itoa(randx.Between(rng, 1000, 9999))
	for i := randx.Between(rng, cfg.ClicksPerAd.Min, cfg.ClicksPerAd.Max); i > 0; i-- {
		b := randx.Pick(rng, bots)
		ts = r.emit(b, domain.AdView, ts.Add(randx.Seconds(rng, 2, 30)), "", domain.Metadata{domain.MetaAdID: adID})
		ts = r.emit(b, domain.AdClick, ts.Add(randx.Seconds(rng, 1, 10)), "", domain.Metadata{domain.MetaAdID: adID})
	}
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

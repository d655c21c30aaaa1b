package fraud

import (
	"math/rand"

	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Attacker infrastructure.
var (
	hostingIPs = []string{
		"45.33.32.156", "104.131.0.69", "185.220.101.34", "193.118.53.202",
		"34.145.89.12", "52.14.201.166", "139.59.100.11", "142.93.12.88",
		"54.210.33.77", "35.188.42.15", "185.100.87.202", "45.155.205.99",
		"104.248.30.5", "52.207.88.14", "193.32.162.70", "34.89.210.44",
	}
	residentialIPs = []string{
		"78.45.12.89", "92.118.34.156", "188.120.45.78", "95.165.33.201",
		"82.65.91.123", "37.230.117.88", "91.205.72.34", "85.26.155.99",
	}
	usHostingIPs = []string{
		"34.145.89.12", "34.89.210.44", "35.188.42.15", "52.14.201.166",
		"52.207.88.14", "104.131.0.69", "104.248.30.5",
	}
	altUserAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0.0.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
	}
	botUserAgents = []string{
		"python-requests/2.31.0",
		"Go-http-client/2.0",
		"Java/17.0.9",
		"node-fetch/3.3.2",
		"axios/1.6.2",
		"okhttp/4.12.0",
		"Apache-HttpClient/5.3",
		"Mozilla/5.0 Chrome/120",
	}
)

// attackerCountries lists where attacks on a victim country come from.
// Countries missing here use the configured defaults.
var attackerCountries = map[string][]string{
	"US": {"RU", "CN", "NG", "UA", "RO"},
	"GB": {"RU", "CN", "NG", "BR", "UA"},
	"CA": {"RU", "CN", "VN", "RO", "NG"},
	"AU": {"CN", "RU", "VN", "ID", "NG"},
	"DE": {"RU", "CN", "UA", "RO", "NG"},
	"FR": {"RU", "CN", "NG", "RO", "UA"},
	"IN": {"RU", "CN", "NG", "RO", "UA"},
	"BR": {"RU", "CN", "NG", "UA", "RO"},
	"JP": {"CN", "RU", "NG", "UA", "KR"},
	"KR": {"CN", "RU", "NG", "JP", "UA"},
}

func (r *recorder) attackerPool(victimCountry string) []string {
	if pool, ok := attackerCountries[victimCountry]; ok {
		return pool
	}
	return r.env.Config.Fraud.DefaultAttackerCountries
}

func (r *recorder) attackerCountry(victimCountry string) string {
	return randx.Pick(r.rng(), r.attackerPool(victimCountry))
}

// distinctCountries returns up to n different attacker countries.
func (r *recorder) distinctCountries(victimCountry string, n int) []string {
	return randx.Sample(r.rng(), r.attackerPool(victimCountry), n)
}

func (r *recorder) hostingIP() string     { return randx.Pick(r.rng(), hostingIPs) }
func (r *recorder) residentialIP() string { return randx.Pick(r.rng(), residentialIPs) }

// clusterIPs draws min(actors+1, max) hosting addresses shared by a
// coordinated group.
func (r *recorder) clusterIPs(actors, maxIPs int) []string {
	n := min(actors+1, max(1, maxIPs))
	out := make([]string, n)
	for i := range out {
		out[i] = r.hostingIP()
	}
	return out
}

// hijack is the identity used to drive a single compromised victim from a
// hosting address abroad.
func (r *recorder) hijack(victim string) actor {
	return actor{
		id:      victim,
		ip:      r.hostingIP(),
		ipType:  domain.IPHosting,
		country: r.attackerCountry(r.env.country(victim)),
	}
}

// Message payloads. The wording is placeholder; detectors key on the flags.
var (
	spamTexts = []string{
		"Check this out! https://bit.ly/xyz123",
		"Your account needs verification: https://verify-site.com",
		"Free money! Visit https://promo.fake today!",
		"You've been selected! Claim your prize: https://winner.lottery",
		"Limited offer at https://deal.com before it expires.",
		"Important message: https://secure-login.net/check",
	}
	phishPretexts = []string{
		"shared_document", "invoice", "calendar_invite", "urgent_request",
		"job_opportunity", "password_reset", "wire_transfer", "contract_review",
	}
	execPretexts = []string{
		"wire_transfer_approval", "board_meeting", "ceo_impersonation",
		"legal_document", "investor_update", "urgent_credentials",
		"acquisition_bid", "payroll_emergency",
	}
	harassmentTexts = []string{
		"Everyone knows what you did.",
		"Nobody wants you here.",
		"We're watching you.",
		"Give up already.",
	}
)

func spamMeta(rng *rand.Rand) domain.Metadata {
	text := randx.Pick(rng, spamTexts)
	return domain.Metadata{
		"message_length":       len(text),
		"contains_url":         true,
		"is_spam":              true,
		domain.MetaMessageText: text,
	}
}

func phishMeta(rng *rand.Rand, pretexts []string) domain.Metadata {
	pretext := randx.Pick(rng, pretexts)
	return domain.Metadata{
		"message_length":       randx.Between(rng, 150, 340),
		"contains_url":         randx.Chance(rng, 0.6),
		"is_spam":              true,
		"phish_pretext":        pretext,
		domain.MetaMessageText: "[" + pretext + "]",
	}
}

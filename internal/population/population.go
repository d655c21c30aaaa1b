// Package population builds the user base of a corpus: regular users with
// their profiles, plus the pre-seeded fishy accounts that abuse patterns
// later act through.
package population

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"corpuslab/atogen/internal/config"
	"corpuslab/atogen/internal/domain"
	"corpuslab/atogen/internal/randx"
)

// Kind names a class of pre-seeded fishy account. The value doubles as the
// user's generation pattern.
type Kind string

const (
	KindFakeAccount              Kind = "fake_account"
	KindPharmacyPhishing         Kind = "pharmacy_phishing"
	KindCovertPorn               Kind = "covert_porn"
	KindAccountFarming           Kind = "account_farming"
	KindCoordinatedHarassment    Kind = "coordinated_harassment"
	KindCoordinatedLikeInflation Kind = "coordinated_like_inflation"
	KindProfileCloning           Kind = "profile_cloning"
	KindEndorsementInflation     Kind = "endorsement_inflation"
	KindRecommendationFraud      Kind = "recommendation_fraud"
	KindJobPostingScam           Kind = "job_posting_scam"
	KindInvitationSpam           Kind = "invitation_spam"
	KindGroupSpam                Kind = "group_spam"
)

// Population is the output of Generate.
type Population struct {
	Users    []domain.User
	Profiles []domain.UserProfile
	// UserAgents is the primary user agent of every user.
	UserAgents map[string]string
	// Fishy lists pre-seeded account ids by kind, in creation order.
	Fishy map[Kind][]string
	// NetworkSize is the sampled popularity of each user. It biases victim
	// selection; the profile's connections_count is derived from the log.
	NetworkSize map[string]int
}

// FishyIDs returns the set of every fishy account id.
func (p *Population) FishyIDs() map[string]bool {
	out := make(map[string]bool)
	for _, ids := range p.Fishy {
		for _, id := range ids {
			out[id] = true
		}
	}
	return out
}

// UserIndex maps user id to position in Users.
func (p *Population) UserIndex() map[string]int {
	out := make(map[string]int, len(p.Users))
	for i, u := range p.Users {
		out[u.UserID] = i
	}
	return out
}

// Generate creates numUsers regular users followed by the fishy accounts the
// config asks for, and a profile for each. Every entity passes the domain
// constructors; the first failure aborts.
func Generate(rng *rand.Rand, now time.Time, numUsers int, cfg *config.Config) (*Population, error) {
	g := &generator{
		rng:    rng,
		now:    now,
		cfg:    cfg,
		emails: make(map[string]bool),
		names:  make(map[string][2]string),
	}
	pop := &Population{
		UserAgents:  make(map[string]string),
		Fishy:       make(map[Kind][]string),
		NetworkSize: make(map[string]int),
	}

	for i := 0; i < numUsers; i++ {
		u, err := g.regularUser(i)
		if err != nil {
			return nil, err
		}
		pop.Users = append(pop.Users, u)
	}

	next := numUsers
	for _, spec := range fishySpecs(cfg.Fishy) {
		for j := 0; j < spec.count; j++ {
			u, err := g.fishyUser(next, spec)
			if err != nil {
				return nil, err
			}
			pop.Users = append(pop.Users, u)
			pop.Fishy[spec.kind] = append(pop.Fishy[spec.kind], u.UserID)
			next++
		}
	}

	for _, u := range pop.Users {
		p, size, err := g.profile(u)
		if err != nil {
			return nil, err
		}
		pop.Profiles = append(pop.Profiles, p)
		pop.NetworkSize[u.UserID] = size
	}

	for _, u := range pop.Users {
		if randx.Chance(rng, cfg.UserAgents.NonBrowserUAPct) {
			pop.UserAgents[u.UserID] = randx.Pick(rng, nonBrowserUserAgents)
		} else {
			pop.UserAgents[u.UserID] = randx.Pick(rng, browserUserAgents)
		}
	}
	return pop, nil
}

type generator struct {
	rng    *rand.Rand
	now    time.Time
	cfg    *config.Config
	emails map[string]bool
	names  map[string][2]string
}

// ─── Regular users ────────────────────────────────────────────────────────────

func (g *generator) regularUser(i int) (domain.User, error) {
	rng, uc := g.rng, g.cfg.Users
	id := UserID(i)

	regCountry := pickCountry(rng)
	country := regCountry
	if randx.Chance(rng, uc.MovePct) {
		for country == regCountry {
			country = pickCountry(rng)
		}
	}
	language := randx.Pick(rng, countryLanguages[country])

	ipType := domain.IPResidential
	if randx.Chance(rng, uc.HostingIPPct) {
		ipType = domain.IPHosting
	}
	regIP := RandomIP(rng, regCountry)
	ip := RandomIP(rng, country)

	join := g.now.Add(-randx.Days(rng, 1, max(1, uc.MaxAccountAgeDays))).Add(-randx.Seconds(rng, 0, 86400))

	first, last := randx.Pick(rng, firstNames), randx.Pick(rng, lastNames)
	g.names[id] = [2]string{first, last}
	var email string
	if randx.Chance(rng, uc.UnrelatedEmailPct) {
		email = g.randomEmail()
	} else {
		email = g.nameEmail(first, last)
	}

	active := !randx.Chance(rng, uc.InactivePct)
	emailVerified := randx.Chance(rng, uc.EmailVerifiedPct)
	twoFactor := randx.Chance(rng, uc.TwoFactorPct)
	phoneVerified := randx.Chance(rng, uc.PhoneVerifiedPct)

	var pwdChange *time.Time
	if randx.Chance(rng, uc.PasswordChangedPct) {
		span := int(g.now.Sub(join) / time.Second)
		t := join.Add(time.Duration(randx.Between(rng, 0, span)) * time.Second)
		pwdChange = &t
	}

	tier := domain.TierEnterprise
	switch roll := rng.Float64(); {
	case roll < uc.AccountTierFree:
		tier = domain.TierFree
	case roll < uc.AccountTierFree+uc.AccountTierPremium:
		tier = domain.TierPremium
	}

	userType := domain.UserRegular
	if randx.Chance(rng, uc.RecruiterPct) {
		userType = domain.UserRecruiter
	}

	streak := 0
	if randx.Chance(rng, uc.FailedLoginStreakPct) {
		streak = randx.Between(rng, 1, 3)
	}

	return domain.NewUser(domain.User{
		UserID:               id,
		Email:                email,
		JoinDate:             join,
		Country:              country,
		Language:             language,
		IPAddress:            ip,
		RegistrationIP:       regIP,
		RegistrationCountry:  regCountry,
		Address:              randx.Pick(rng, locations),
		IPType:               ipType,
		IsActive:             active,
		GenerationPattern:    domain.PatternClean,
		AccountTier:          tier,
		EmailVerified:        emailVerified,
		TwoFactorEnabled:     twoFactor,
		PhoneVerified:        phoneVerified,
		FailedLoginStreak:    streak,
		LastPasswordChangeAt: pwdChange,
		UserType:             userType,
	}, g.now)
}

// ─── Fishy accounts ───────────────────────────────────────────────────────────

type fishySpec struct {
	kind        Kind
	count       int
	emailPrefix string
	joinDays    config.Range
	countries   []string
	fromRing    bool // registered from the shared ring IPs on hosting
}

func fishySpecs(f config.Fishy) []fishySpec {
	ring := []string{"RU"}
	spread := []string{"NG", "IN", "PH", "PK", "US", "GB"}
	return []fishySpec{
		{KindFakeAccount, f.FakeAccount, "fake", config.R(50, 55), ring, true},
		{KindPharmacyPhishing, f.PharmacyPhishing, "pharma", config.R(14, 45), spread, false},
		{KindCovertPorn, f.CovertPorn, "creator", config.R(10, 40), spread, false},
		{KindAccountFarming, f.AccountFarming, "farm", config.R(40, 45), []string{"US"}, true},
		{KindCoordinatedHarassment, f.CoordinatedHarassment, "harass", config.R(30, 50), ring, true},
		{KindCoordinatedLikeInflation, f.CoordinatedLikeInflation, "like", config.R(25, 48), ring, true},
		{KindProfileCloning, f.ProfileCloning, "clone", config.R(20, 50), spread, false},
		{KindEndorsementInflation, f.EndorsementInflation, "endorse", config.R(20, 50), ring, true},
		{KindRecommendationFraud, f.RecommendationFraud, "recommend", config.R(20, 50), ring, true},
		{KindJobPostingScam, f.JobPostingScam, "jobs", config.R(20, 50), spread, false},
		{KindInvitationSpam, f.InvitationSpam, "invite", config.R(20, 50), ring, true},
		{KindGroupSpam, f.GroupSpam, "groups", config.R(20, 50), spread, false},
	}
}

func (g *generator) fishyUser(idx int, spec fishySpec) (domain.User, error) {
	rng := g.rng
	id := UserID(idx)
	country := randx.Pick(rng, spec.countries)

	var ip string
	ipType := domain.IPResidential
	if spec.fromRing {
		ip = randx.Pick(rng, ringIPs)
		if spec.kind != KindFakeAccount {
			ipType = domain.IPHosting
		}
	} else {
		ip = RandomIP(rng, country)
		if randx.Chance(rng, 0.5) {
			ipType = domain.IPHosting
		}
	}

	join := g.now.Add(-randx.Days(rng, spec.joinDays.Min, spec.joinDays.Max)).Add(-randx.Seconds(rng, 0, 86400))

	first, last := randx.Pick(rng, firstNames), randx.Pick(rng, lastNames)
	g.names[id] = [2]string{first, last}
	email := g.uniqueEmail(func(wide bool) string {
		n := randx.Between(rng, 1, 9999)
		if wide {
			n = randx.Between(rng, 1, 99999)
		}
		return fmt.Sprintf("%s%d.%s.%s%d", spec.emailPrefix, idx, asciiLocal(first), asciiLocal(last), n)
	})

	language := "en"
	if country == "RU" && spec.kind == KindFakeAccount {
		language = "ru"
	}

	return domain.NewUser(domain.User{
		UserID:              id,
		Email:               email,
		JoinDate:            join,
		Country:             country,
		Language:            language,
		IPAddress:           ip,
		RegistrationIP:      ip,
		RegistrationCountry: country,
		IPType:              ipType,
		IsActive:            true,
		GenerationPattern:   string(spec.kind),
		AccountTier:         domain.TierFree,
		EmailVerified:       spec.kind == KindPharmacyPhishing || spec.kind == KindCovertPorn,
		UserType:            domain.UserRegular,
	}, g.now)
}

// ─── Profiles ─────────────────────────────────────────────────────────────────

func (g *generator) profile(u domain.User) (domain.UserProfile, int, error) {
	rng, pc := g.rng, g.cfg.Profiles
	name := g.names[u.UserID]
	display := name[0] + " " + name[1]

	var headline, summary, location string
	var photo bool
	var endorsements, views int
	var groups []string

	switch Kind(u.GenerationPattern) {
	case KindPharmacyPhishing:
		headline, summary = randx.Pick(rng, pharmacyHeadlines), randx.Pick(rng, pharmacySummaries)
		photo = randx.Chance(rng, 0.4)
		if randx.Chance(rng, 0.6) {
			location = randx.Pick(rng, locations)
		}
		endorsements, views = randx.Between(rng, 0, 3), randx.Between(rng, 5, 50)
	case KindCovertPorn:
		headline, summary = randx.Pick(rng, covertHeadlines), randx.Pick(rng, covertSummaries)
		photo = randx.Chance(rng, 0.5)
		if randx.Chance(rng, 0.5) {
			location = randx.Pick(rng, locations)
		}
		endorsements, views = randx.Between(rng, 0, 2), randx.Between(rng, 5, 80)
	case KindAccountFarming:
		headline, summary = randx.Pick(rng, farmingHeadlines), randx.Pick(rng, farmingSummaries)
		photo = randx.Chance(rng, 0.3)
		endorsements, views = randx.Between(rng, 0, 2), randx.Between(rng, 0, 20)
	case KindFakeAccount:
		headline, summary = randx.Pick(rng, headlines), randx.Pick(rng, summaries)
		views = randx.Between(rng, 0, 5)
	case KindGroupSpam:
		headline, summary = randx.Pick(rng, headlines), randx.Pick(rng, summaries)
		photo = randx.Chance(rng, 0.3)
		views = randx.Between(rng, 0, 10)
		groups = pickGroups(rng, randx.Between(rng, 1, 3))
	case "":
		return domain.UserProfile{}, 0, fmt.Errorf("user %s has no generation pattern", u.UserID)
	default:
		if u.GenerationPattern != domain.PatternClean {
			headline, summary = randx.Pick(rng, headlines), randx.Pick(rng, summaries)
			photo = randx.Chance(rng, 0.3)
			views = randx.Between(rng, 0, 10)
			break
		}
		headline, summary = randx.Pick(rng, headlines), randx.Pick(rng, summaries)
		photo = randx.Chance(rng, pc.ProfilePhotoPct)
		location = randx.Pick(rng, locations)
		views = min(int(randx.Pareto(rng, 1.1)*10), 50_000)
		if randx.Chance(rng, 0.3) {
			groups = pickGroups(rng, randx.Between(rng, 1, 4))
		}
	}

	size := g.networkSize()
	if u.GenerationPattern == domain.PatternClean {
		endorsements = min(int(randx.Pareto(rng, 1.5)*3), size)
	}

	created := u.JoinDate.Add(randx.Seconds(rng, 60, 3600))
	if created.After(g.now) {
		created = g.now.Add(-time.Second)
	}
	var updated *time.Time
	if randx.Chance(rng, pc.ProfileUpdatedPct) {
		days := max(1, int(g.now.Sub(created).Hours()/24))
		t := created.Add(randx.Days(rng, 1, days))
		if t.After(g.now) {
			t = g.now.Add(-time.Second)
		}
		if !t.Before(created) {
			updated = &t
		}
	}

	p, err := domain.NewUserProfile(domain.UserProfile{
		UserID:               u.UserID,
		DisplayName:          display,
		Headline:             headline,
		Summary:              summary,
		ProfileCreatedAt:     created,
		LastUpdatedAt:        updated,
		HasProfilePhoto:      photo,
		ProfileCompleteness:  domain.Completeness(display, headline, summary, photo, location),
		EndorsementsCount:    endorsements,
		ProfileViewsReceived: views,
		LocationText:         location,
		GroupsJoined:         groups,
	}, g.now)
	return p, size, err
}

// networkSize samples a heavy-tailed popularity: a configured share has
// none, the rest follow Pareto(1.2) scaled by 20 and capped at 30,000.
func (g *generator) networkSize() int {
	if randx.Chance(g.rng, g.cfg.Connections.ZeroConnectionsPct) {
		return 0
	}
	return min(int(randx.Pareto(g.rng, 1.2)*20), 30_000)
}

func pickGroups(rng *rand.Rand, n int) []string {
	seen := make(map[string]bool, n)
	var out []string
	for len(out) < n {
		id := fmt.Sprintf("grp-%03d", randx.Between(rng, 1, 40))
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// UserID formats the canonical id of the i-th user.
func UserID(i int) string { return fmt.Sprintf("u-%06d", i) }

// RandomIP returns a plausible IPv4 address for country, drawn from the
// first octets its regional registry allocates.
func RandomIP(rng *rand.Rand, country string) string {
	octets, ok := countryOctets[country]
	if !ok {
		octets = octetsARIN
	}
	return fmt.Sprintf("%d.%d.%d.%d", randx.Pick(rng, octets), rng.Intn(256), rng.Intn(256), randx.Between(rng, 1, 254))
}

func pickCountry(rng *rand.Rand) string {
	weights := make([]float64, len(countryWeights))
	for i, c := range countryWeights {
		weights[i] = c.weight
	}
	return countryWeights[randx.Weighted(rng, weights)].code
}

func pickDomain(rng *rand.Rand) string {
	weights := make([]float64, len(emailDomains))
	for i, d := range emailDomains {
		weights[i] = d.weight
	}
	return emailDomains[randx.Weighted(rng, weights)].domain
}

var localReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss", "æ", "ae", "ø", "o", "ã", "a", "é", "e", " ", "")

func asciiLocal(s string) string { return localReplacer.Replace(strings.ToLower(s)) }

// uniqueEmail draws locals from next until the address is unused. After the
// first collision next is asked for a wider suffix.
func (g *generator) uniqueEmail(next func(wide bool) string) string {
	domainName := pickDomain(g.rng)
	email := next(false) + "@" + domainName
	for g.emails[email] {
		email = next(true) + "@" + domainName
	}
	g.emails[email] = true
	return email
}

func (g *generator) randomEmail() string {
	prefixes := []string{"user", "contact", "hello", "info", "mail", "box", "id", "acc"}
	return g.uniqueEmail(func(wide bool) string {
		if wide {
			return fmt.Sprintf("%s%d", randx.Pick(g.rng, prefixes), randx.Between(g.rng, 10000, 99999999))
		}
		return fmt.Sprintf("%s%d", randx.Pick(g.rng, prefixes), randx.Between(g.rng, 1000, 999999))
	})
}

func (g *generator) nameEmail(first, last string) string {
	rng, ec := g.rng, g.cfg.Email
	f, l := asciiLocal(first), asciiLocal(last)
	suffix := ""
	if randx.Chance(rng, ec.SuffixPct) {
		suffix = fmt.Sprint(randx.Between(rng, 1, 9999))
	}
	var local string
	switch roll := rng.Float64(); {
	case roll < ec.FirstLast:
		local = f + "." + l + suffix
	case roll < ec.Firstlast:
		if suffix != "" {
			local = f + l + suffix
		} else {
			local = f + "." + l
		}
	case roll < ec.LastFirst:
		local = l + "." + f + suffix
	default:
		local = f + "_" + l + suffix
	}
	tried := false
	return g.uniqueEmail(func(bool) string {
		if !tried {
			tried = true
			return local
		}
		return fmt.Sprintf("%s.%s%d", f, l, randx.Between(rng, 1, 99999))
	})
}

package config

// Legitimate usage patterns that carry a selection weight. Patterns picked
// by override rules (recruiter, onboarding, returning, ...) are listed too so
// a file may set them, but their default weight is zero.
var LegitPatternNames = []string{
	"casual_browser",
	"active_job_seeker",
	"recruiter",
	"regular_networker",
	"returning_user",
	"new_user_onboarding",
	"weekly_check_in",
	"content_consumer",
	"career_update",
	"exec_delegation",
	"dormant_account",
}

// AllocatablePatterns are the attack patterns victims are allocated to, in
// allocation order.
var AllocatablePatterns = []string{
	"smash_grab",
	"low_slow",
	"country_hopper",
	"data_thief",
	"credential_stuffer",
	"login_storm",
	"stealth_takeover",
	"scraper_cluster",
	"spear_phisher",
	"credential_tester",
	"connection_harvester",
	"sleeper_agent",
	"profile_defacement",
	"executive_hunter",
	"romance_scam",
	"session_hijacking",
	"credential_phishing",
	"ad_engagement_fraud",
}

// Default returns the full parameter tree with every value set.
func Default() *Config {
	return &Config{
		Corpus: Corpus{WindowDays: 60},
		Users: Users{
			InactivePct:          0.05,
			HostingIPPct:         0.10,
			RecruiterPct:         0.06,
			UnrelatedEmailPct:    0.05,
			EmailVerifiedPct:     0.95,
			TwoFactorPct:         0.25,
			PhoneVerifiedPct:     0.60,
			PasswordChangedPct:   0.40,
			AccountTierFree:      0.70,
			AccountTierPremium:   0.25,
			FailedLoginStreakPct: 0.05,
			MovePct:              0.04,
			MaxAccountAgeDays:    730,
		},
		Connections: Connections{
			ZeroConnectionsPct: 0.08,
			AcceptRate:         0.60,
		},
		Profiles: Profiles{
			ProfilePhotoPct:   0.75,
			ProfileUpdatedPct: 0.70,
		},
		UserAgents: UserAgents{NonBrowserUAPct: 0.12},
		Email: Email{
			FirstLast: 0.70,
			Firstlast: 0.85,
			LastFirst: 0.92,
			SuffixPct: 0.35,
		},
		UsagePatterns: UsagePatterns{
			ReturningUserPct:  0.05,
			CareerUpdatePct:   0.03,
			ExecDelegationPct: 0.02,
			DormantAccountPct: 0.06,
			PatternWeights: map[string]float64{
				"casual_browser":      0.26,
				"active_job_seeker":   0.11,
				"regular_networker":   0.26,
				"weekly_check_in":     0.16,
				"content_consumer":    0.21,
				"recruiter":           0,
				"new_user_onboarding": 0,
				"returning_user":      0,
				"career_update":       0,
				"exec_delegation":     0,
				"dormant_account":     0,
			},
			DormantAccount: DormantAccount{LoginOncePct: 0.70},
			NewUserOnboarding: NewUserOnboarding{
				ProfileUpdatePct:     0.50,
				UploadAddressBookPct: 0.40,
				MessageOnConnectPct:  0.20,
			},
			CareerUpdate: CareerUpdate{
				UpdateTypeHeadline:       0.55,
				UpdateTypeSummary:        0.85,
				SecondUpdateInSessionPct: 0.30,
			},
			ReturningUser: ReturningUser{SecondSessionPct: 0.40},
			ContentConsumer: ContentConsumer{
				ConnectAfterViewPct: 0.05,
				MessageAfterViewPct: 0.15,
			},
			CasualBrowser: CasualBrowser{
				MessageAfterViewPct:   0.30,
				LikeReactAfterViewPct: 0.40,
			},
			Recruiter:       MessageOnConnect{MessageOnConnectPct: 0.20},
			ExecDelegation:  MessageOnConnect{MessageOnConnectPct: 0.15},
			ActiveJobSeeker: ActiveJobSeeker{HeadlineUpdatePct: 0.20},
		},
		Common: Common{LoginFailureBeforeSuccessPct: 0.03},
		Fraud: Fraud{
			PatternWeights: map[string]float64{
				"smash_grab":           0.073,
				"low_slow":             0.073,
				"country_hopper":       0.073,
				"data_thief":           0.073,
				"credential_stuffer":   0.171,
				"login_storm":          0.049,
				"stealth_takeover":     0.049,
				"scraper_cluster":      0.098,
				"spear_phisher":        0.073,
				"credential_tester":    0.122,
				"connection_harvester": 0.049,
				"sleeper_agent":        0.049,
				"profile_defacement":   0.049,
				"executive_hunter":     0.073,
				"romance_scam":         0.030,
				"session_hijacking":    0.040,
				"credential_phishing":  0.040,
				"ad_engagement_fraud":  0.030,
			},
			DefaultAttackerCountries: []string{"RU", "CN", "NG", "UA", "RO"},
			FakeAccount:              FakeAccount{ChangeProfilePct: 0.70, ChangeNamePct: 0.60},
			ConnectionHarvester:      ConnectionHarvester{DownloadAddressBookPct: 0.50, Requests: R(50, 200)},
			CountryHopper:            CountryHopper{ViewDuringHopPct: 0.60},
			CredentialStuffer:        CredentialStuffer{CloseAccountPct: 0.50},
			CredentialTester:         CredentialTester{FailedLoginFirstPct: 0.30, PageViewAfterLoginPct: 0.40},
			SpearPhisher:             SpearPhisher{ProfileTweakPct: 0.40, ChangeNamePct: 0.30},
			ProfileDefacement:        ProfileDefacement{ChangeProfilePct: 0.85, ChangePasswordPct: 0.40},
			ExecutiveHunter:          ExecutiveHunter{ClusterIPsMax: 4, Targets: R(15, 40), FallbackTargets: 30},
			AccountFarming:           AccountFarming{HoursBetweenAccounts: R(2, 12), UpdateHeadlinePct: 0.70, UpdateSummaryPct: 0.50},
			CoordinatedHarassment:    CoordinatedHarassment{ClusterIPsMax: 4, NumTargets: 5},
			CoordinatedLikeInflation: CoordinatedLikeInflation{ClusterIPsMax: 4, LikeWindowMinutes: R(2, 15)},
			ProfileCloning:           ProfileCloning{ConnectBeforeMessagePct: 0.70, MessagesPerVictim: R(3, 15), NumVictims: 3},
			EndorsementInflation:     EndorsementInflation{ClusterIPsMax: 4, EndorsementsPerSkill: R(5, 20), NumTargets: 3},
			RecommendationFraud:      RecommendationFraud{ClusterIPsMax: 4, NumTargets: 5},
			JobPostingScam:           JobPostingScam{ApplicationsPerJob: R(10, 100), PhishingRedirectPct: 0.40},
			InvitationSpam:           InvitationSpam{ClusterIPsMax: 4, RequestsPerAccount: R(50, 200)},
			GroupSpam:                GroupSpam{PostsPerGroup: R(3, 15)},
			RomanceScam:              RomanceScam{MessagesPerVictim: R(20, 100), DurationDays: R(7, 60)},
			SessionHijacking:         SessionHijacking{ActionsAfterHijack: R(5, 30)},
			CredentialPhishing:       CredentialPhishing{CaptureThenLoginPct: 0.80},
			AdEngagementFraud:        AdEngagementFraud{ClusterIPsMax: 4, ClicksPerAd: R(10, 500)},
		},
		Fishy: Fishy{
			FakeAccount:              5,
			PharmacyPhishing:         25,
			CovertPorn:               20,
			AccountFarming:           15,
			CoordinatedHarassment:    12,
			CoordinatedLikeInflation: 10,
			ProfileCloning:           8,
			EndorsementInflation:     12,
			RecommendationFraud:      10,
			JobPostingScam:           6,
			InvitationSpam:           15,
			GroupSpam:                8,
		},
	}
}

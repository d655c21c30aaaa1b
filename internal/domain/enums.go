// Package domain contains the vocabulary the corpus generator emits: users,
// profiles, interaction events and the closed enums they are built from.
package domain

import "fmt"

// ─── Interaction types ────────────────────────────────────────────────────────

// InteractionType is the closed set of event kinds a user can produce.
type InteractionType string

const (
	// Auth and account lifecycle
	AccountCreation InteractionType = "account_creation"
	Login           InteractionType = "login"
	ChangePassword  InteractionType = "change_password"
	CloseAccount    InteractionType = "close_account"

	// Profile mutation
	ChangeProfile  InteractionType = "change_profile"
	ChangeName     InteractionType = "change_name"
	UpdateHeadline InteractionType = "update_headline"
	UpdateSummary  InteractionType = "update_summary"
	ChangeLastName InteractionType = "change_last_name"

	// Social graph and outreach
	MessageUser             InteractionType = "message_user"
	ViewUserPage            InteractionType = "view_user_page"
	SearchCandidates        InteractionType = "search_candidates"
	Like                    InteractionType = "like"
	React                   InteractionType = "react"
	UploadAddressBook       InteractionType = "upload_address_book"
	DownloadAddressBook     InteractionType = "download_address_book"
	ConnectWithUser         InteractionType = "connect_with_user"
	SendConnectionRequest   InteractionType = "send_connection_request"
	AcceptConnectionRequest InteractionType = "accept_connection_request"

	// Credibility
	EndorseSkill       InteractionType = "endorse_skill"
	GiveRecommendation InteractionType = "give_recommendation"

	// Jobs
	CreateJobPosting InteractionType = "create_job_posting"
	ApplyToJob       InteractionType = "apply_to_job"
	ViewJob          InteractionType = "view_job"

	// Groups
	JoinGroup   InteractionType = "join_group"
	LeaveGroup  InteractionType = "leave_group"
	PostInGroup InteractionType = "post_in_group"

	// Ads
	AdView  InteractionType = "ad_view"
	AdClick InteractionType = "ad_click"

	// Auth anomalies
	SessionLogin  InteractionType = "session_login"  // login via a stolen session token
	PhishingLogin InteractionType = "phishing_login" // credentials captured on a fake page
)

var allInteractionTypes = []InteractionType{
	AccountCreation, Login, ChangePassword, ChangeProfile, ChangeName,
	UpdateHeadline, UpdateSummary, ChangeLastName, MessageUser, ViewUserPage,
	SearchCandidates, Like, React, UploadAddressBook, DownloadAddressBook,
	CloseAccount, ConnectWithUser, EndorseSkill, GiveRecommendation,
	CreateJobPosting, ApplyToJob, ViewJob, SendConnectionRequest,
	AcceptConnectionRequest, JoinGroup, LeaveGroup, PostInGroup, AdView,
	AdClick, SessionLogin, PhishingLogin,
}

var interactionTypeSet = func() map[InteractionType]bool {
	m := make(map[InteractionType]bool, len(allInteractionTypes))
	for _, t := range allInteractionTypes {
		m[t] = true
	}
	return m
}()

// AllInteractionTypes returns every interaction type in declaration order.
func AllInteractionTypes() []InteractionType {
	out := make([]InteractionType, len(allInteractionTypes))
	copy(out, allInteractionTypes)
	return out
}

// Valid reports whether t is a member of the closed set.
func (t InteractionType) Valid() bool { return interactionTypeSet[t] }

// ParseInteractionType converts a wire string into an InteractionType.
func ParseInteractionType(s string) (InteractionType, error) {
	t := InteractionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown interaction type %q", s)
	}
	return t, nil
}

// requiresTarget lists relational types that must name a target user.
var requiresTarget = map[InteractionType]bool{
	MessageUser:             true,
	ViewUserPage:            true,
	ConnectWithUser:         true,
	Like:                    true,
	React:                   true,
	EndorseSkill:            true,
	GiveRecommendation:      true,
	SendConnectionRequest:   true,
	AcceptConnectionRequest: true,
}

// optionalTarget lists types where a target is allowed but not required.
var optionalTarget = map[InteractionType]bool{
	ApplyToJob:  true, // the job poster
	PostInGroup: true, // a reply
}

// RequiresTarget reports whether events of this type must carry a target.
func (t InteractionType) RequiresTarget() bool { return requiresTarget[t] }

// AllowsTarget reports whether events of this type may carry a target.
func (t InteractionType) AllowsTarget() bool { return requiresTarget[t] || optionalTarget[t] }

// IsLoginLike reports whether t authenticates a session in some way.
func (t InteractionType) IsLoginLike() bool {
	return t == Login || t == SessionLogin || t == PhishingLogin
}

// IsConnectionRequest reports whether t asks another user to connect.
func (t InteractionType) IsConnectionRequest() bool {
	return t == ConnectWithUser || t == SendConnectionRequest
}

// IsOutreach reports whether t reaches out to a target who must have been
// viewed first.
func (t InteractionType) IsOutreach() bool {
	return t == MessageUser || t == ConnectWithUser
}

// ─── IP classes ───────────────────────────────────────────────────────────────

// IPType classifies where an IP address lives.
type IPType string

const (
	IPResidential IPType = "residential"
	IPHosting     IPType = "hosting"
)

// Valid reports whether the IP type is known.
func (t IPType) Valid() bool { return t == IPResidential || t == IPHosting }

// ─── Account attributes ───────────────────────────────────────────────────────

// AccountTier is the subscription level of a user.
type AccountTier string

const (
	TierFree       AccountTier = "free"
	TierPremium    AccountTier = "premium"
	TierEnterprise AccountTier = "enterprise"
)

// UserType distinguishes recruiters from everybody else.
type UserType string

const (
	UserRegular   UserType = "regular"
	UserRecruiter UserType = "recruiter"
)

// PatternClean tags users produced by the legitimate population generator.
const PatternClean = "clean"

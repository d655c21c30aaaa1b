package domain

import (
	"math"
	"time"
)

// ─── User ─────────────────────────────────────────────────────────────────────

// User is the identity of a platform account.
//
// A User is never edited in place: the two attributes that legitimately change
// after generation (the generation pattern of a victim and the active flag of
// a closed account) are derived through WithGenerationPattern and Deactivated,
// which return copies.
type User struct {
	UserID               string      `json:"user_id" db:"user_id" validate:"required"`
	Email                string      `json:"email" db:"email" validate:"required,email_shape"`
	JoinDate             time.Time   `json:"join_date" db:"join_date" validate:"required"`
	Country              string      `json:"country" db:"country" validate:"country"`
	Language             string      `json:"language" db:"language" validate:"language"`
	IPAddress            string      `json:"ip_address" db:"ip_address" validate:"ipv4"`
	RegistrationIP       string      `json:"registration_ip" db:"registration_ip" validate:"ipv4"`
	RegistrationCountry  string      `json:"registration_country" db:"registration_country" validate:"country"`
	Address              string      `json:"address" db:"address"`
	IPType               IPType      `json:"ip_type" db:"ip_type" validate:"ip_type"`
	IsActive             bool        `json:"is_active" db:"is_active"`
	GenerationPattern    string      `json:"generation_pattern" db:"generation_pattern" validate:"required"`
	AccountTier          AccountTier `json:"account_tier" db:"account_tier" validate:"oneof=free premium enterprise"`
	EmailVerified        bool        `json:"email_verified" db:"email_verified"`
	TwoFactorEnabled     bool        `json:"two_factor_enabled" db:"two_factor_enabled"`
	PhoneVerified        bool        `json:"phone_verified" db:"phone_verified"`
	FailedLoginStreak    int         `json:"failed_login_streak" db:"failed_login_streak" validate:"gte=0"`
	LastPasswordChangeAt *time.Time  `json:"last_password_change_at,omitempty" db:"last_password_change_at"`
	UserType             UserType    `json:"user_type" db:"user_type" validate:"oneof=regular recruiter"`
}

// NewUser validates u against the reference instant now and returns it with
// its timestamps normalised to UTC.
func NewUser(u User, now time.Time) (User, error) {
	u.JoinDate = u.JoinDate.UTC()
	if u.LastPasswordChangeAt != nil {
		t := u.LastPasswordChangeAt.UTC()
		u.LastPasswordChangeAt = &t
	}

	var problems []string
	problems = append(problems, structProblems(u)...)
	now = now.UTC()
	if u.JoinDate.After(now) {
		problems = append(problems, "join_date must not be in the future")
	}
	if p := u.LastPasswordChangeAt; p != nil {
		if p.After(now) {
			problems = append(problems, "last_password_change_at must not be in the future")
		}
		if p.Before(u.JoinDate) {
			problems = append(problems, "last_password_change_at must be >= join_date")
		}
	}
	if len(problems) > 0 {
		return User{}, &ValidationError{Entity: "user", ID: u.UserID, Problems: problems}
	}
	return u, nil
}

// WithGenerationPattern returns a copy of u tagged with the generator that
// produced its behaviour.
func (u User) WithGenerationPattern(pattern string) User {
	u.GenerationPattern = pattern
	return u
}

// Deactivated returns a copy of u marked inactive.
func (u User) Deactivated() User {
	u.IsActive = false
	return u
}

// ─── UserProfile ──────────────────────────────────────────────────────────────

// UserProfile is the public face of a User. ConnectionsCount is not free: it
// must equal the accepted connections derivable from the interaction log.
type UserProfile struct {
	UserID               string     `json:"user_id" db:"user_id" validate:"required"`
	DisplayName          string     `json:"display_name" db:"display_name" validate:"min=1,max=100,trimmed"`
	Headline             string     `json:"headline" db:"headline" validate:"max=200"`
	Summary              string     `json:"summary" db:"summary" validate:"max=2000"`
	ConnectionsCount     int        `json:"connections_count" db:"connections_count" validate:"gte=0"`
	ProfileCreatedAt     time.Time  `json:"profile_created_at" db:"profile_created_at" validate:"required"`
	LastUpdatedAt        *time.Time `json:"last_updated_at,omitempty" db:"last_updated_at"`
	HasProfilePhoto      bool       `json:"has_profile_photo" db:"has_profile_photo"`
	ProfileCompleteness  float64    `json:"profile_completeness" db:"profile_completeness" validate:"gte=0,lte=1"`
	EndorsementsCount    int        `json:"endorsements_count" db:"endorsements_count" validate:"gte=0"`
	ProfileViewsReceived int        `json:"profile_views_received" db:"profile_views_received" validate:"gte=0"`
	LocationText         string     `json:"location_text" db:"location_text" validate:"max=200"`
	GroupsJoined         []string   `json:"groups_joined" db:"-"`
}

// NewUserProfile validates p against now and returns it with timestamps in UTC.
func NewUserProfile(p UserProfile, now time.Time) (UserProfile, error) {
	p.ProfileCreatedAt = p.ProfileCreatedAt.UTC()
	if p.LastUpdatedAt != nil {
		t := p.LastUpdatedAt.UTC()
		p.LastUpdatedAt = &t
	}

	problems := structProblems(p)
	if p.ProfileCreatedAt.After(now.UTC()) {
		problems = append(problems, "profile_created_at must not be in the future")
	}
	if p.LastUpdatedAt != nil && p.LastUpdatedAt.Before(p.ProfileCreatedAt) {
		problems = append(problems, "last_updated_at must be >= profile_created_at")
	}
	if len(problems) > 0 {
		return UserProfile{}, &ValidationError{Entity: "profile", ID: p.UserID, Problems: problems}
	}
	return p, nil
}

// WithConnectionsCount returns a copy of p carrying the derived count.
func (p UserProfile) WithConnectionsCount(n int) UserProfile {
	p.ConnectionsCount = n
	return p
}

// Completeness is the fraction of {name, headline, summary, photo, location}
// that is filled in, rounded to two decimals.
func Completeness(displayName, headline, summary string, hasPhoto bool, location string) float64 {
	filled := 0
	for _, s := range []string{displayName, headline, summary, location} {
		if s != "" {
			filled++
		}
	}
	if hasPhoto {
		filled++
	}
	return math.Round(float64(filled)/5*100) / 100
}

// ─── Interaction ──────────────────────────────────────────────────────────────

// Interaction is one logged event. Events are values: once constructed they
// are only copied, sorted and filtered. Session identifiers are kept in a
// separate table built after the corpus is sorted.
type Interaction struct {
	ID            string          `json:"interaction_id" validate:"required"`
	UserID        string          `json:"user_id" validate:"required"`
	Type          InteractionType `json:"interaction_type" validate:"interaction_type"`
	Timestamp     time.Time       `json:"timestamp" validate:"required"`
	IPAddress     string          `json:"ip_address" validate:"ipv4"`
	IPType        IPType          `json:"ip_type" validate:"ip_type"`
	TargetUserID  string          `json:"target_user_id,omitempty"`
	AttackPattern string          `json:"attack_pattern,omitempty"` // non-empty only for fraud events
	Metadata      Metadata        `json:"metadata"`
}

// NewInteraction validates i against now and returns it with its timestamp
// in UTC.
func NewInteraction(i Interaction, now time.Time) (Interaction, error) {
	i.Timestamp = i.Timestamp.UTC()
	if i.Metadata == nil {
		i.Metadata = Metadata{}
	}

	problems := structProblems(i)
	if i.Timestamp.After(now.UTC()) {
		problems = append(problems, "timestamp must not be in the future")
	}
	switch {
	case i.Type.RequiresTarget() && i.TargetUserID == "":
		problems = append(problems, string(i.Type)+" requires target_user_id")
	case !i.Type.AllowsTarget() && i.TargetUserID != "":
		problems = append(problems, string(i.Type)+" must not have target_user_id")
	}
	if i.TargetUserID != "" && i.TargetUserID == i.UserID {
		problems = append(problems, "target_user_id must differ from user_id")
	}
	if len(problems) > 0 {
		return Interaction{}, &ValidationError{Entity: "interaction", ID: i.ID, Problems: problems}
	}
	return i, nil
}

// IsFraud reports whether the event was produced by an attack generator.
func (i Interaction) IsFraud() bool { return i.AttackPattern != "" }

// LoginSucceeded reports whether a login-like event authenticated. Events
// without a login_success flag count as successful.
func (i Interaction) LoginSucceeded() bool {
	if !i.Type.IsLoginLike() {
		return false
	}
	ok, present := i.Metadata.Bool(MetaLoginSuccess)
	return !present || ok
}

// ─── Metadata ─────────────────────────────────────────────────────────────────

// Well-known metadata keys.
const (
	MetaUserAgent       = "user_agent"
	MetaIPCountry       = "ip_country"
	MetaAttackerCountry = "attacker_country"
	MetaAttackPattern   = "attack_pattern"
	MetaLoginSuccess    = "login_success"
	MetaContactCount    = "contact_count"
	MetaMessageText     = "message_text"
	MetaGroupID         = "group_id"
	MetaJobID           = "job_id"
	MetaAdID            = "ad_id"
	MetaSkillID         = "skill_id"
)

// Metadata is the open key/value payload of an event.
type Metadata map[string]any

// String returns the value at key when it is a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Bool returns the value at key and whether it was a bool.
func (m Metadata) Bool(key string) (value, ok bool) {
	value, ok = m[key].(bool)
	return value, ok
}

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

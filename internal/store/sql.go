package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/domain"
)

// SQL is a Repository over a database opened by package db.
type SQL struct {
	db    *sqlx.DB
	batch int
}

// NewSQL wraps db. Inserts are sent in batches of batch rows.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, batch: 400}
}

var _ Repository = (*SQL)(nil)

type profileRow struct {
	domain.UserProfile
	Groups string `db:"groups_joined"`
}

func (r profileRow) profile() (domain.UserProfile, error) {
	p := r.UserProfile
	if r.Groups != "" {
		if err := json.Unmarshal([]byte(r.Groups), &p.GroupsJoined); err != nil {
			return domain.UserProfile{}, fmt.Errorf("profile %s groups: %w", p.UserID, err)
		}
	}
	p.ProfileCreatedAt = p.ProfileCreatedAt.UTC()
	if p.LastUpdatedAt != nil {
		t := p.LastUpdatedAt.UTC()
		p.LastUpdatedAt = &t
	}
	return p, nil
}

type interactionRow struct {
	Seq           int64                  `db:"seq"`
	ID            string                 `db:"interaction_id"`
	UserID        string                 `db:"user_id"`
	Type          domain.InteractionType `db:"interaction_type"`
	Timestamp     time.Time              `db:"timestamp"`
	IPAddress     string                 `db:"ip_address"`
	IPType        domain.IPType          `db:"ip_type"`
	TargetUserID  sql.NullString         `db:"target_user_id"`
	AttackPattern string                 `db:"attack_pattern"`
	SessionID     string                 `db:"session_id"`
	Metadata      string                 `db:"metadata"`
}

func (r interactionRow) interaction() (Interaction, error) {
	ev := Interaction{
		Interaction: domain.Interaction{
			ID:            r.ID,
			UserID:        r.UserID,
			Type:          r.Type,
			Timestamp:     r.Timestamp.UTC(),
			IPAddress:     r.IPAddress,
			IPType:        r.IPType,
			TargetUserID:  r.TargetUserID.String,
			AttackPattern: r.AttackPattern,
		},
		SessionID: r.SessionID,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &ev.Metadata); err != nil {
			return Interaction{}, fmt.Errorf("interaction %s metadata: %w", r.ID, err)
		}
	}
	return ev, nil
}

func normalizeUser(u domain.User) domain.User {
	u.JoinDate = u.JoinDate.UTC()
	if u.LastPasswordChangeAt != nil {
		t := u.LastPasswordChangeAt.UTC()
		u.LastPasswordChangeAt = &t
	}
	return u
}

// ─── Writes ───────────────────────────────────────────────────────────────────

const (
	insertUser = `INSERT INTO users (user_id, email, join_date, country, language, ip_address,
  registration_ip, registration_country, address, ip_type, is_active, generation_pattern,
  account_tier, email_verified, two_factor_enabled, phone_verified, failed_login_streak,
  last_password_change_at, user_type)
VALUES (:user_id, :email, :join_date, :country, :language, :ip_address,
  :registration_ip, :registration_country, :address, :ip_type, :is_active, :generation_pattern,
  :account_tier, :email_verified, :two_factor_enabled, :phone_verified, :failed_login_streak,
  :last_password_change_at, :user_type)`

	insertProfile = `INSERT INTO user_profiles (user_id, display_name, headline, summary,
  connections_count, profile_created_at, last_updated_at, has_profile_photo,
  profile_completeness, endorsements_count, profile_views_received, location_text, groups_joined)
VALUES (:user_id, :display_name, :headline, :summary,
  :connections_count, :profile_created_at, :last_updated_at, :has_profile_photo,
  :profile_completeness, :endorsements_count, :profile_views_received, :location_text, :groups_joined)`

	insertInteraction = `INSERT INTO user_interactions (seq, interaction_id, user_id, interaction_type,
  timestamp, ip_address, ip_type, target_user_id, attack_pattern, session_id, metadata)
VALUES (:seq, :interaction_id, :user_id, :interaction_type,
  :timestamp, :ip_address, :ip_type, :target_user_id, :attack_pattern, :session_id, :metadata)`
)

// InsertCorpus replaces the stored corpus in one transaction.
func (s *SQL) InsertCorpus(ctx context.Context, c *corpus.Corpus) error {
	if err := checkUnique(c); err != nil {
		return err
	}

	profiles := make([]profileRow, len(c.Profiles))
	for i, p := range c.Profiles {
		groups := p.GroupsJoined
		if groups == nil {
			groups = []string{}
		}
		raw, err := json.Marshal(groups)
		if err != nil {
			return fmt.Errorf("profile %s groups: %w", p.UserID, err)
		}
		profiles[i] = profileRow{UserProfile: p, Groups: string(raw)}
	}
	events := make([]interactionRow, len(c.Interactions))
	for i, ev := range c.Interactions {
		meta := ev.Metadata
		if meta == nil {
			meta = domain.Metadata{}
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("interaction %s metadata: %w", ev.ID, err)
		}
		sid, _ := c.Sessions.Lookup(ev.ID)
		events[i] = interactionRow{
			Seq:           int64(i),
			ID:            ev.ID,
			UserID:        ev.UserID,
			Type:          ev.Type,
			Timestamp:     ev.Timestamp.UTC(),
			IPAddress:     ev.IPAddress,
			IPType:        ev.IPType,
			TargetUserID:  sql.NullString{String: ev.TargetUserID, Valid: ev.TargetUserID != ""},
			AttackPattern: ev.AttackPattern,
			SessionID:     sid,
			Metadata:      string(raw),
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"user_interactions", "user_profiles", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := insertBatches(ctx, tx, insertUser, c.Users, s.batch); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	if err := insertBatches(ctx, tx, insertProfile, profiles, s.batch); err != nil {
		return fmt.Errorf("insert profiles: %w", err)
	}
	if err := insertBatches(ctx, tx, insertInteraction, events, s.batch); err != nil {
		return fmt.Errorf("insert interactions: %w", err)
	}
	return tx.Commit()
}

func insertBatches[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T, size int) error {
	for lo := 0; lo < len(rows); lo += size {
		hi := min(lo+size, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[lo:hi]); err != nil {
			return err
		}
	}
	return nil
}

// ─── Reads ────────────────────────────────────────────────────────────────────

func (s *SQL) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT * FROM users WHERE user_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return normalizeUser(u), nil
}

func (s *SQL) GetProfile(ctx context.Context, id string) (domain.UserProfile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM user_profiles WHERE user_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return domain.UserProfile{}, err
	}
	return row.profile()
}

// where accumulates filter clauses with ? placeholders.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (s *SQL) ListUsers(ctx context.Context, f UserFilter, p Page) ([]domain.User, int, error) {
	p = p.Normalize()
	var w where
	if f.Country != "" {
		w.add("country = ?", f.Country)
	}
	if f.Pattern != "" {
		w.add("generation_pattern = ?", f.Pattern)
	}
	if f.Active != nil {
		w.add("is_active = ?", *f.Active)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM users"+w.String()), w.args...); err != nil {
		return nil, 0, err
	}
	var users []domain.User
	q := s.db.Rebind("SELECT * FROM users" + w.String() + " ORDER BY user_id LIMIT ? OFFSET ?")
	if err := s.db.SelectContext(ctx, &users, q, append(w.args, p.Limit, p.Offset)...); err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i] = normalizeUser(users[i])
	}
	return users, total, nil
}

func (s *SQL) ListInteractions(ctx context.Context, f InteractionFilter, p Page) ([]Interaction, int, error) {
	p = p.Normalize()
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		w.add("interaction_type = ?", f.Type)
	}
	if f.AttackPattern != "" {
		w.add("attack_pattern = ?", f.AttackPattern)
	}
	if f.FraudOnly {
		w.add("attack_pattern <> ''")
	}
	if !f.Since.IsZero() {
		w.add("timestamp >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		w.add("timestamp < ?", f.Until.UTC())
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM user_interactions"+w.String()), w.args...); err != nil {
		return nil, 0, err
	}
	q := s.db.Rebind("SELECT * FROM user_interactions" + w.String() + " ORDER BY seq LIMIT ? OFFSET ?")
	events, err := s.selectInteractions(ctx, q, append(w.args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *SQL) InteractionsByUser(ctx context.Context, id string) ([]Interaction, error) {
	q := s.db.Rebind(`SELECT * FROM user_interactions WHERE user_id = ? ORDER BY timestamp, seq`)
	return s.selectInteractions(ctx, q, id)
}

func (s *SQL) selectInteractions(ctx context.Context, q string, args ...any) ([]Interaction, error) {
	var rows []interactionRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]Interaction, len(rows))
	for i, r := range rows {
		ev, err := r.interaction()
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

// ─── Aggregates ───────────────────────────────────────────────────────────────

func (s *SQL) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users")
	return n, err
}

func (s *SQL) CountInteractions(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM user_interactions")
	return n, err
}

func (s *SQL) CountInteractionsByType(ctx context.Context) (map[domain.InteractionType]int, error) {
	var rows []struct {
		Type domain.InteractionType `db:"interaction_type"`
		N    int                    `db:"n"`
	}
	q := "SELECT interaction_type, COUNT(*) AS n FROM user_interactions GROUP BY interaction_type"
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	out := make(map[domain.InteractionType]int, len(rows))
	for _, r := range rows {
		out[r.Type] = r.N
	}
	return out, nil
}

func (s *SQL) ActiveUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind("SELECT user_id FROM users WHERE is_active = ? ORDER BY user_id"), true)
	return ids, err
}

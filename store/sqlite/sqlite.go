/*
Package sqlite persists the report's configuration and entry data.

PURPOSE:
  Backs the workspace configuration the engine consumes: users, profiles,
  per-user overrides, holiday and time-off calendars, imported time
  entries, and the global calculation settings. The engine itself never
  touches the database; Snapshot() and ReportInput() assemble the plain
  configuration snapshot it takes as input.

KEY TABLES:
  users:        Report subjects
  profiles:     Optional per-user capacity and working-day set
  overrides:    Per-user parameter overrides; one row per scope
                (mode + scope key), values stored as strings exactly as
                the engine resolves them
  holidays:     Per-user per-date holiday facts
  time_off:     Per-user per-date time-off facts
  time_entries: Imported entries, queried by date range
  settings:     Single-row global calculation parameters

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block
  and crash recovery is cheap. A sync.RWMutex guards the connection; with
  a server database the engine-facing code would not change.

USAGE:
  store, err := sqlite.New(":memory:")
  ...
  input, err := store.ReportInput(ctx, engine.DateRange{Start: ..., End: ...})
  report := engine.Analyze(input)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/overtime-engine/engine"
)

// Store implements configuration persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store with the given database path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		capacity REAL,
		working_days TEXT NOT NULL DEFAULT ''
	);

	-- One row per override scope. mode is the user's override mode;
	-- scope_key is '' for the user-level values, a lowercase weekday name
	-- for weekly rows, or YYYY-MM-DD for per-day rows.
	CREATE TABLE IF NOT EXISTS overrides (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		mode TEXT NOT NULL,
		scope_key TEXT NOT NULL DEFAULT '',
		capacity TEXT NOT NULL DEFAULT '',
		multiplier TEXT NOT NULL DEFAULT '',
		tier2_threshold TEXT NOT NULL DEFAULT '',
		tier2_multiplier TEXT NOT NULL DEFAULT '',
		UNIQUE(user_id, scope_key)
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_user ON overrides(user_id);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		UNIQUE(user_id, date)
	);

	CREATE TABLE IF NOT EXISTS time_off (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		full_day BOOLEAN NOT NULL DEFAULT FALSE,
		hours REAL NOT NULL DEFAULT 0,
		UNIQUE(user_id, date)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL DEFAULT '',
		duration TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		billable BOOLEAN NOT NULL DEFAULT FALSE,
		earned_rate INTEGER NOT NULL DEFAULT 0,
		cost_rate INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_entries_user_start ON time_entries(user_id, start_time);
	CREATE INDEX IF NOT EXISTS idx_entries_start ON time_entries(start_time);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		use_profile_capacity BOOLEAN NOT NULL DEFAULT FALSE,
		use_profile_working_days BOOLEAN NOT NULL DEFAULT FALSE,
		apply_holidays BOOLEAN NOT NULL DEFAULT TRUE,
		apply_time_off BOOLEAN NOT NULL DEFAULT TRUE,
		amount_display TEXT NOT NULL DEFAULT 'earned',
		daily_threshold REAL NOT NULL DEFAULT 8,
		overtime_multiplier REAL NOT NULL DEFAULT 1.5,
		tier2_threshold_hours REAL NOT NULL DEFAULT 0,
		tier2_multiplier REAL NOT NULL DEFAULT 2
	);

	INSERT OR IGNORE INTO settings (id) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS AND PROFILES
// =============================================================================

// UpsertUser creates or updates a user. A blank ID gets a generated one;
// the resulting ID is returned.
func (s *Store) UpsertUser(ctx context.Context, u engine.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		u.ID, u.Name)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return u.ID, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]engine.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM users ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []engine.User
	for rows.Next() {
		var u engine.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserExists reports whether a user with the given ID is stored.
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return true, nil
}

// SaveProfile stores a user's profile, replacing any previous one.
func (s *Store) SaveProfile(ctx context.Context, p engine.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var capacity sql.NullFloat64
	if p.Capacity != nil {
		capacity = sql.NullFloat64{Float64: *p.Capacity, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, capacity, working_days) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			capacity = excluded.capacity,
			working_days = excluded.working_days`,
		p.UserID, capacity, strings.Join(p.WorkingDays, ","))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// =============================================================================
// OVERRIDES
// =============================================================================

// SetOverride replaces a user's override record: the mode, the user-level
// values, and every weekly/per-day scope row.
func (s *Store) SetOverride(ctx context.Context, userID string, ov engine.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin override update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM overrides WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}

	insert := func(scopeKey string, ps engine.ParameterSet) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO overrides (id, user_id, mode, scope_key, capacity, multiplier, tier2_threshold, tier2_multiplier)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), userID, string(ov.Mode), scopeKey,
			ps.Capacity, ps.Multiplier, ps.Tier2Threshold, ps.Tier2Multiplier)
		return err
	}

	if err := insert("", ov.Values); err != nil {
		return fmt.Errorf("insert override values: %w", err)
	}
	for day, ps := range ov.Weekly {
		if err := insert(day, ps); err != nil {
			return fmt.Errorf("insert weekly override: %w", err)
		}
	}
	for date, ps := range ov.Days {
		if err := insert(date, ps); err != nil {
			return fmt.Errorf("insert per-day override: %w", err)
		}
	}

	return tx.Commit()
}

// GetOverride reassembles a user's override record.
func (s *Store) GetOverride(ctx context.Context, userID string) (engine.Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readOverride(ctx, userID)
}

func (s *Store) readOverride(ctx context.Context, userID string) (engine.Override, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mode, scope_key, capacity, multiplier, tier2_threshold, tier2_multiplier
		FROM overrides WHERE user_id = ?`, userID)
	if err != nil {
		return engine.Override{}, false, fmt.Errorf("read overrides: %w", err)
	}
	defer rows.Close()

	ov := engine.Override{
		Weekly: map[string]engine.ParameterSet{},
		Days:   map[string]engine.ParameterSet{},
	}
	found := false
	for rows.Next() {
		var mode, scope string
		var ps engine.ParameterSet
		if err := rows.Scan(&mode, &scope, &ps.Capacity, &ps.Multiplier, &ps.Tier2Threshold, &ps.Tier2Multiplier); err != nil {
			return engine.Override{}, false, err
		}
		found = true
		ov.Mode = engine.OverrideMode(mode)
		switch {
		case scope == "":
			ov.Values = ps
		case len(scope) == len("2006-01-02") && scope[4] == '-':
			ov.Days[scope] = ps
		default:
			ov.Weekly[scope] = ps
		}
	}
	return ov, found, rows.Err()
}

// =============================================================================
// CALENDARS
// =============================================================================

// AddHoliday records a holiday for a user and date, replacing an existing
// record for the same day.
func (s *Store) AddHoliday(ctx context.Context, h engine.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, user_id, date, name, project_id) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			name = excluded.name,
			project_id = excluded.project_id`,
		uuid.NewString(), h.UserID, h.DateKey, h.Name, h.ProjectID)
	if err != nil {
		return fmt.Errorf("add holiday: %w", err)
	}
	return nil
}

// AddTimeOff records time off for a user and date, replacing an existing
// record for the same day.
func (s *Store) AddTimeOff(ctx context.Context, t engine.TimeOffInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_off (id, user_id, date, full_day, hours) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			full_day = excluded.full_day,
			hours = excluded.hours`,
		uuid.NewString(), t.UserID, t.DateKey, t.IsFullDay, t.Hours)
	if err != nil {
		return fmt.Errorf("add time off: %w", err)
	}
	return nil
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// InsertEntries stores a batch of entries. Entries without IDs get
// generated ones; an entry with a known ID is replaced (re-imports are
// idempotent).
func (s *Store) InsertEntries(ctx context.Context, entries []engine.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entry import: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO time_entries
				(id, user_id, user_name, description, start_time, end_time, duration, type, billable, earned_rate, cost_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, e.UserName, e.Description, e.Start, e.End, e.Duration,
			string(e.Type), e.Billable, e.EarnedRate, e.CostRate)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// EntriesInRange returns all entries whose start falls on a date within the
// inclusive range, ordered by start.
func (s *Store) EntriesInRange(ctx context.Context, r engine.DateRange) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readEntries(ctx, r)
}

func (s *Store) readEntries(ctx context.Context, r engine.DateRange) ([]engine.TimeEntry, error) {
	// Date keys prefix ISO timestamps, so comparing the first 10 chars
	// bounds the range inclusively on both ends.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, description, start_time, end_time, duration, type, billable, earned_rate, cost_rate
		FROM time_entries
		WHERE substr(start_time, 1, 10) >= ? AND substr(start_time, 1, 10) <= ?
		ORDER BY start_time, id`, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()

	var entries []engine.TimeEntry
	for rows.Next() {
		var e engine.TimeEntry
		var typ string
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Description, &e.Start, &e.End,
			&e.Duration, &typ, &e.Billable, &e.EarnedRate, &e.CostRate); err != nil {
			return nil, err
		}
		e.Type = engine.EntryType(typ)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// SaveParams stores the global calculation parameters.
func (s *Store) SaveParams(ctx context.Context, p engine.CalculationParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE settings SET
			use_profile_capacity = ?,
			use_profile_working_days = ?,
			apply_holidays = ?,
			apply_time_off = ?,
			amount_display = ?,
			daily_threshold = ?,
			overtime_multiplier = ?,
			tier2_threshold_hours = ?,
			tier2_multiplier = ?
		WHERE id = 1`,
		p.UseProfileCapacity, p.UseProfileWorkingDays, p.ApplyHolidays, p.ApplyTimeOff,
		string(p.Basis()), p.DailyThreshold, p.OvertimeMultiplier, p.Tier2ThresholdHours, p.Tier2Multiplier)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Params loads the global calculation parameters.
func (s *Store) Params(ctx context.Context) (engine.CalculationParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readParams(ctx)
}

func (s *Store) readParams(ctx context.Context) (engine.CalculationParams, error) {
	var p engine.CalculationParams
	var display string
	err := s.db.QueryRowContext(ctx, `
		SELECT use_profile_capacity, use_profile_working_days, apply_holidays, apply_time_off,
		       amount_display, daily_threshold, overtime_multiplier, tier2_threshold_hours, tier2_multiplier
		FROM settings WHERE id = 1`).Scan(
		&p.UseProfileCapacity, &p.UseProfileWorkingDays, &p.ApplyHolidays, &p.ApplyTimeOff,
		&display, &p.DailyThreshold, &p.OvertimeMultiplier, &p.Tier2ThresholdHours, &p.Tier2Multiplier)
	if err != nil {
		return engine.CalculationParams{}, fmt.Errorf("read settings: %w", err)
	}
	p.AmountDisplay = engine.AmountBasis(display)
	return p, nil
}

// =============================================================================
// SNAPSHOT ASSEMBLY
// =============================================================================

// Snapshot assembles the full configuration snapshot the engine consumes.
func (s *Store) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := engine.Snapshot{
		Profiles:  map[string]engine.Profile{},
		Holidays:  map[string]engine.Holiday{},
		TimeOff:   map[string]engine.TimeOffInfo{},
		Overrides: map[string]engine.Override{},
	}

	params, err := s.readParams(ctx)
	if err != nil {
		return engine.Snapshot{}, err
	}
	snap.Params = params

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM users ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshot users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u engine.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return engine.Snapshot{}, err
		}
		snap.Users = append(snap.Users, u)
	}
	if err := rows.Err(); err != nil {
		return engine.Snapshot{}, err
	}

	if err := s.fillProfiles(ctx, &snap); err != nil {
		return engine.Snapshot{}, err
	}
	if err := s.fillCalendars(ctx, &snap); err != nil {
		return engine.Snapshot{}, err
	}
	for _, u := range snap.Users {
		ov, ok, err := s.readOverride(ctx, u.ID)
		if err != nil {
			return engine.Snapshot{}, err
		}
		if ok {
			snap.Overrides[u.ID] = ov
		}
	}
	return snap, nil
}

func (s *Store) fillProfiles(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, capacity, working_days FROM profiles`)
	if err != nil {
		return fmt.Errorf("snapshot profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p engine.Profile
		var capacity sql.NullFloat64
		var days string
		if err := rows.Scan(&p.UserID, &capacity, &days); err != nil {
			return err
		}
		if capacity.Valid {
			v := capacity.Float64
			p.Capacity = &v
		}
		if days != "" {
			p.WorkingDays = strings.Split(days, ",")
		}
		snap.Profiles[p.UserID] = p
	}
	return rows.Err()
}

func (s *Store) fillCalendars(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, date, name, project_id FROM holidays`)
	if err != nil {
		return fmt.Errorf("snapshot holidays: %w", err)
	}
	for rows.Next() {
		var h engine.Holiday
		if err := rows.Scan(&h.UserID, &h.DateKey, &h.Name, &h.ProjectID); err != nil {
			rows.Close()
			return err
		}
		snap.Holidays[engine.CalendarKey(h.UserID, h.DateKey)] = h
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT user_id, date, full_day, hours FROM time_off`)
	if err != nil {
		return fmt.Errorf("snapshot time off: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t engine.TimeOffInfo
		if err := rows.Scan(&t.UserID, &t.DateKey, &t.IsFullDay, &t.Hours); err != nil {
			return err
		}
		snap.TimeOff[engine.CalendarKey(t.UserID, t.DateKey)] = t
	}
	return rows.Err()
}

// ReportInput bundles everything Analyze needs for a range.
func (s *Store) ReportInput(ctx context.Context, r engine.DateRange) (engine.Input, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return engine.Input{}, err
	}

	s.mu.RLock()
	entries, err := s.readEntries(ctx, r)
	s.mu.RUnlock()
	if err != nil {
		return engine.Input{}, err
	}

	return engine.Input{Entries: entries, Range: r, Config: snap}, nil
}

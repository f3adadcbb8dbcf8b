package store

import (
	"database/sql"
	"time"
)

// ActionEntry is one dispatched action in the log.
type ActionEntry struct {
	ID        int64
	SessionID string
	ProfileID string
	Action    string
	App       string
	Success   bool
	CreatedAt time.Time
}

// ActionLogRepository appends to and reads the action log.
type ActionLogRepository struct {
	db *sql.DB
}

// ActionLog returns the action log repository for this store.
func (s *Store) ActionLog() *ActionLogRepository {
	return &ActionLogRepository{db: s.db}
}

// Append inserts e. A zero CreatedAt is set to the current time.
func (r *ActionLogRepository) Append(e *ActionEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var profileID sql.NullString
	if e.ProfileID != "" {
		profileID = sql.NullString{String: e.ProfileID, Valid: true}
	}

	result, err := r.db.Exec(
		`INSERT INTO action_log (session_id, profile_id, action, app, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, profileID, e.Action, e.App, e.Success, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// List returns up to limit entries, newest first.
func (r *ActionLogRepository) List(limit int) ([]*ActionEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, profile_id, action, app, success, created_at
		 FROM action_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ActionEntry
	for rows.Next() {
		e := &ActionEntry{}
		var profileID sql.NullString
		var success int

		if err := rows.Scan(&e.ID, &e.SessionID, &profileID, &e.Action, &e.App, &success, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.ProfileID = profileID.String
		e.Success = success == 1
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Counts returns the number of logged entries per action name.
func (r *ActionLogRepository) Counts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT action, COUNT(*) FROM action_log GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[action] = n
	}

	return counts, rows.Err()
}

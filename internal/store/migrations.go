package store

import "fmt"

// migrations are applied in order. The index of the last applied step is
// kept in PRAGMA user_version, so steps must never be edited or reordered
// once released; append new ones instead.
var migrations = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		hand_size REAL NOT NULL,
		pinch_threshold REAL NOT NULL,
		movement_threshold REAL NOT NULL,
		sensitivity REAL NOT NULL DEFAULT 1.0,
		rest_x REAL NOT NULL DEFAULT 0,
		rest_y REAL NOT NULL DEFAULT 0,
		min_x REAL NOT NULL DEFAULT 0,
		max_x REAL NOT NULL DEFAULT 0,
		min_y REAL NOT NULL DEFAULT 0,
		max_y REAL NOT NULL DEFAULT 0,
		samples INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_profiles_created_at ON profiles(created_at);`,

	`CREATE TABLE action_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		profile_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
		action TEXT NOT NULL,
		app TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_action_log_created_at ON action_log(created_at);
	CREATE INDEX idx_action_log_profile_id ON action_log(profile_id);`,

	`CREATE TABLE settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

// schemaVersion returns the number of applied migrations.
func (s *Store) schemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// migrate applies every pending migration, each in its own transaction.
func (s *Store) migrate() error {
	current, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 1

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sessions (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					watermark TEXT,
					has_watermark INTEGER NOT NULL DEFAULT 0,
					tx_counter INTEGER NOT NULL DEFAULT 0,
					seq_counter INTEGER NOT NULL DEFAULT 0,
					category_counter INTEGER NOT NULL DEFAULT 0,
					rule_counter INTEGER NOT NULL DEFAULT 0,
					goal_counter INTEGER NOT NULL DEFAULT 0,
					request_counter INTEGER NOT NULL DEFAULT 0,
					message_rule_counter INTEGER NOT NULL DEFAULT 0,
					message_counter INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					seq INTEGER NOT NULL,
					date TEXT NOT NULL,
					amount TEXT NOT NULL,
					type TEXT NOT NULL,
					external_iban TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					category_id INTEGER NOT NULL DEFAULT 0,
					internal INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (session_id, id)
				)`,
				`CREATE INDEX idx_transactions_session_date ON transactions(session_id, date, seq)`,

				`CREATE TABLE IF NOT EXISTS categories (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					name TEXT NOT NULL,
					PRIMARY KEY (session_id, id)
				)`,

				`CREATE TABLE IF NOT EXISTS category_rules (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					iban TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL,
					category_id INTEGER NOT NULL,
					apply_on_history INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (session_id, id)
				)`,

				`CREATE TABLE IF NOT EXISTS saving_goals (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					name TEXT NOT NULL,
					goal TEXT NOT NULL,
					save_per_month TEXT NOT NULL,
					min_balance_required TEXT NOT NULL,
					balance TEXT NOT NULL,
					effective_from TEXT NOT NULL,
					notified INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (session_id, id)
				)`,

				`CREATE TABLE IF NOT EXISTS payment_requests (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					due_date TEXT NOT NULL,
					amount TEXT NOT NULL,
					number_of_requests INTEGER NOT NULL,
					filled INTEGER NOT NULL DEFAULT 0,
					fill_notified INTEGER NOT NULL DEFAULT 0,
					expiry_notified INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (session_id, id)
				)`,

				`CREATE TABLE IF NOT EXISTS payment_request_matches (
					session_id TEXT NOT NULL,
					request_id INTEGER NOT NULL,
					position INTEGER NOT NULL,
					transaction_id INTEGER NOT NULL,
					PRIMARY KEY (session_id, request_id, position),
					FOREIGN KEY (session_id, request_id) REFERENCES payment_requests(session_id, id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS message_rules (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					type TEXT NOT NULL,
					value TEXT NOT NULL,
					category_id INTEGER NOT NULL,
					PRIMARY KEY (session_id, id)
				)`,

				`CREATE TABLE IF NOT EXISTS messages (
					session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
					id INTEGER NOT NULL,
					date TEXT NOT NULL,
					type TEXT NOT NULL,
					text TEXT NOT NULL,
					read INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (session_id, id)
				)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("failed to execute %q: %w", q[:40], err)
				}
			}
			return nil
		},
	},
}

// migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_versions`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.Version <= int(current.Int64) {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		slog.Info("applied migration", "version", m.Version, "description", m.Description)
		current = sql.NullInt64{Int64: int64(m.Version), Valid: true}
	}

	if !current.Valid || current.Int64 != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, expected %d", current.Int64, ExpectedSchemaVersion)
	}
	return nil
}

package store

import "fmt"

func (s *Store) migrate() error {
	var migrations []string
	switch s.driver {
	case "mysql":
		// MySQL has no CREATE INDEX IF NOT EXISTS; declare the index inline.
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS access_tokens (
				id VARCHAR(64) PRIMARY KEY,
				owner_id VARCHAR(191) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				scopes TEXT NOT NULL,
				secret_hash VARCHAR(191) NOT NULL,
				created_at DATETIME(6) NOT NULL,
				last_used_at DATETIME(6),
				INDEX idx_access_tokens_owner (owner_id)
			)`,
		}
	case "pgx":
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS access_tokens (
				id VARCHAR(64) PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				scopes TEXT NOT NULL,
				secret_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				last_used_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_access_tokens_owner ON access_tokens(owner_id)`,
		}
	default: // sqlite
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS access_tokens (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				scopes TEXT NOT NULL,
				secret_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				last_used_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_access_tokens_owner ON access_tokens(owner_id)`,
		}
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Package store persists access tokens behind the token.Store contract.
// It is backed by sqlx with three wired drivers: sqlite (the default,
// embedded), postgres, and mysql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/token"
)

// Drivers returns the supported store driver names.
func Drivers() []string {
	return []string{"sqlite", "postgres", "mysql"}
}

// Store is the SQL-backed token store. It implements token.Store.
type Store struct {
	db     *sqlx.DB
	driver string
}

var _ token.Store = (*Store)(nil)

// Open connects to the token database for the given driver and DSN and runs
// migrations. Driver is one of "sqlite", "postgres", "mysql"; for sqlite the
// DSN is a file path (empty means in-memory).
func Open(driver, dsn string) (*Store, error) {
	var driverName string
	switch driver {
	case "sqlite", "":
		driverName = "sqlite"
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		}
	case "postgres":
		driverName = "pgx"
	case "mysql":
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("unsupported store driver %q (supported: sqlite, postgres, mysql)", driver)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}

	if driverName == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	s := &Store{db: db, driver: driverName}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate token database: %w", err)
	}
	return s, nil
}

// OpenDefault opens the embedded sqlite store under dataDir, creating the
// directory if needed. Pass empty string for in-memory.
func OpenDefault(dataDir string) (*Store, error) {
	if dataDir == "" {
		return Open("sqlite", "")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := filepath.Join(dataDir, "keymint.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	return Open("sqlite", dsn)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateToken inserts a new token record. CreatedAt is set at insert time.
func (s *Store) CreateToken(ctx context.Context, tok *model.AccessToken) error {
	tok.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO access_tokens
		(id, owner_id, name, scopes, secret_hash, created_at, last_used_at)
		VALUES
		(:id, :owner_id, :name, :scopes, :secret_hash, :created_at, :last_used_at)`

	if _, err := s.db.NamedExecContext(ctx, q, tok); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetTokenByID looks up a token by its public id, across all owners.
func (s *Store) GetTokenByID(ctx context.Context, id string) (*model.AccessToken, error) {
	var tok model.AccessToken
	q := s.db.Rebind("SELECT * FROM access_tokens WHERE id = ?")
	if err := s.db.GetContext(ctx, &tok, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return &tok, nil
}

// GetTokenByOwnerAndID looks up a token within one owner's namespace. Ids
// under another owner report token.ErrNotFound.
func (s *Store) GetTokenByOwnerAndID(ctx context.Context, ownerID, id string) (*model.AccessToken, error) {
	var tok model.AccessToken
	q := s.db.Rebind("SELECT * FROM access_tokens WHERE owner_id = ? AND id = ?")
	if err := s.db.GetContext(ctx, &tok, q, ownerID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("get token by owner and id: %w", err)
	}
	return &tok, nil
}

// ListTokensByOwner returns all of an owner's tokens in creation order.
func (s *Store) ListTokensByOwner(ctx context.Context, ownerID string) ([]model.AccessToken, error) {
	toks := []model.AccessToken{}
	q := s.db.Rebind("SELECT * FROM access_tokens WHERE owner_id = ? ORDER BY created_at ASC, id ASC")
	if err := s.db.SelectContext(ctx, &toks, q, ownerID); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return toks, nil
}

// DeleteToken hard-deletes a token scoped to its owner.
func (s *Store) DeleteToken(ctx context.Context, ownerID, id string) error {
	q := s.db.Rebind("DELETE FROM access_tokens WHERE owner_id = ? AND id = ?")
	result, err := s.db.ExecContext(ctx, q, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete token rows affected: %w", err)
	}
	if n == 0 {
		return token.ErrNotFound
	}
	return nil
}

// DeleteTokensByOwner hard-deletes every token of an owner in a single
// transaction, so a concurrent reader sees either all rows or none.
func (s *Store) DeleteTokensByOwner(ctx context.Context, ownerID string) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin revoke-all: %w", err)
	}
	defer tx.Rollback()

	q := tx.Rebind("DELETE FROM access_tokens WHERE owner_id = ?")
	result, err := tx.ExecContext(ctx, q, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete tokens by owner: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete tokens rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit revoke-all: %w", err)
	}
	return n, nil
}

// TouchTokenLastUsed sets the last-used timestamp for a token.
func (s *Store) TouchTokenLastUsed(ctx context.Context, id string) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE access_tokens SET last_used_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, now, id)
	if err != nil {
		return fmt.Errorf("touch token last used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch token rows affected: %w", err)
	}
	if n == 0 {
		return token.ErrNotFound
	}
	return nil
}

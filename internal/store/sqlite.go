package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/tripplan/internal/apperr"
)

// tokenKey is the fixed key the bearer token is stored under.
const tokenKey = "access_token"

// SQLiteCredentials implements CredentialStore using SQLite.
type SQLiteCredentials struct {
	db   *sql.DB
	path string
}

// NewSQLiteCredentials opens or creates a SQLite database at the given path.
func NewSQLiteCredentials(dbPath string) (*SQLiteCredentials, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteCredentials{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// The file holds a bearer token; keep it owner-only.
	if err := os.Chmod(dbPath, 0o600); err != nil {
		db.Close()
		return nil, fmt.Errorf("restrict db permissions: %w", err)
	}

	return s, nil
}

func (s *SQLiteCredentials) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		key      TEXT PRIMARY KEY,
		value    TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteCredentials) Path() string { return s.path }

func (s *SQLiteCredentials) Save(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.New(apperr.KindValidation, "save token", "token is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (key, value, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, saved_at = excluded.saved_at`,
		tokenKey, token, now)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *SQLiteCredentials) Load(ctx context.Context) (string, bool, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE key = ?`, tokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load token: %w", err)
	}
	return token, true, nil
}

// SavedAt returns when the token was last saved.
func (s *SQLiteCredentials) SavedAt(ctx context.Context) (time.Time, bool, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM credentials WHERE key = ?`, tokenKey).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load saved_at: %w", err)
	}
	t, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse saved_at: %w", err)
	}
	return t, true, nil
}

func (s *SQLiteCredentials) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, tokenKey)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *SQLiteCredentials) Close() error {
	return s.db.Close()
}

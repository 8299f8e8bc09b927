// Package state persists the small amount of cross-run state the CLI needs:
// provider tokens (Garmin session, Google OAuth) and an audit trail of sync
// runs. It lives in a single SQLite file under the state directory.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite state database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at dir/state.db and applies any
// pending migrations from migrationsPath.
func Open(dir, migrationsPath string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	if err := RunMigrations("sqlite://"+dbPath, migrationsPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	return &Store{db: db}, nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the state database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the stored token blob for a provider, or "" when none exists.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM tokens WHERE provider = ?`, provider).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s token: %w", provider, err)
	}
	return token, nil
}

// SetToken stores (or replaces) the token blob for a provider.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tokens (provider, token, updated_at) VALUES (?, ?, ?)`,
		provider, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing %s token: %w", provider, err)
	}
	return nil
}

// DeleteToken removes the stored token for a provider, if any.
func (s *Store) DeleteToken(ctx context.Context, provider string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE provider = ?`, provider)
	if err != nil {
		return fmt.Errorf("deleting %s token: %w", provider, err)
	}
	return nil
}

// Run is one recorded sync run.
type Run struct {
	ID         string
	Profile    string
	StartDate  string
	EndDate    string
	Days       int
	Updates    int
	Appends    int
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordRun appends one run to the audit trail.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, profile, start_date, end_date, days, updates, appends, status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Profile, r.StartDate, r.EndDate, r.Days, r.Updates, r.Appends, r.Status,
		r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// LastRun returns the most recently finished run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, profile, start_date, end_date, days, updates, appends, status, started_at, finished_at
		 FROM sync_runs ORDER BY finished_at DESC LIMIT 1`).
		Scan(&r.ID, &r.Profile, &r.StartDate, &r.EndDate, &r.Days, &r.Updates, &r.Appends,
			&r.Status, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading last run: %w", err)
	}
	return &r, nil
}

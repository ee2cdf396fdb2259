// Package sqlite persists simulation batches in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/battleforge/internal/simulation"
	"github.com/cory-johannsen/battleforge/internal/storage"
	"github.com/cory-johannsen/battleforge/internal/storage/sqlite/migrations"
)

// Store persists runs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite run store at path and applies embedded migrations.
// ":memory:" opens a private in-memory database.
//
// Postcondition: Returns a ready Store or an error; nothing is left open on error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls and
	// serializes writers.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applyMigrations(sqlDB *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	drv, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close would close sqlDB through the driver.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun inserts the run header and every record in one transaction.
func (s *Store) SaveRun(ctx context.Context, b *simulation.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(b.RunID) == "" {
		return fmt.Errorf("run id is required")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, seed, started_at, encounters) VALUES (?, ?, ?, ?, ?)`,
		b.RunID, b.Scenario, b.Seed, toMillis(b.Started), len(b.Records),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("save run %s: %w", b.RunID, storage.ErrRunExists)
		}
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO encounters (run_id, encounter, seed, winner, round_limited, rounds, survivors, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare encounter insert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range b.Records {
		winner := sql.NullInt64{Int64: int64(rec.Winner), Valid: rec.HasWinner}
		if _, err := stmt.ExecContext(ctx,
			b.RunID, rec.Encounter, rec.Seed, winner, rec.RoundLimited,
			rec.Rounds, rec.Survivors, rec.Duration.Microseconds(),
		); err != nil {
			return fmt.Errorf("insert encounter %d: %w", rec.Encounter, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// GetRun loads a run and its records in encounter order.
func (s *Store) GetRun(ctx context.Context, id string) (*simulation.Batch, error) {
	b := &simulation.Batch{RunID: id}
	var (
		started    int64
		encounters int
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT scenario, seed, started_at, encounters FROM runs WHERE id = ?`, id,
	).Scan(&b.Scenario, &b.Seed, &started, &encounters)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get run %s: %w", id, storage.ErrRunNotFound)
		}
		return nil, fmt.Errorf("query run: %w", err)
	}
	b.Started = fromMillis(started)

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT encounter, seed, winner, round_limited, rounds, survivors, duration_us
		 FROM encounters WHERE run_id = ? ORDER BY encounter`, id)
	if err != nil {
		return nil, fmt.Errorf("query encounters: %w", err)
	}
	defer rows.Close()

	b.Records = make([]simulation.Record, 0, encounters)
	for rows.Next() {
		rec := simulation.Record{RunID: id, Scenario: b.Scenario}
		var (
			winner     sql.NullInt64
			durationUS int64
		)
		if err := rows.Scan(&rec.Encounter, &rec.Seed, &winner, &rec.RoundLimited,
			&rec.Rounds, &rec.Survivors, &durationUS); err != nil {
			return nil, fmt.Errorf("scan encounter: %w", err)
		}
		if winner.Valid {
			rec.Winner, rec.HasWinner = int(winner.Int64), true
		}
		rec.Duration = time.Duration(durationUS) * time.Microsecond
		b.Records = append(b.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encounters: %w", err)
	}
	return b, nil
}

// ListRuns returns run headers, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.RunInfo, error) {
	query := `SELECT id, scenario, seed, started_at, encounters FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []storage.RunInfo
	for rows.Next() {
		var (
			info    storage.RunInfo
			started int64
		)
		if err := rows.Scan(&info.ID, &info.Scenario, &info.Seed, &started, &info.Encounters); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.Started = fromMillis(started)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

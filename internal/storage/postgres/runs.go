package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/battleforge/internal/simulation"
	"github.com/cory-johannsen/battleforge/internal/storage"
)

var encounterColumns = []string{
	"run_id", "encounter", "seed", "winner", "round_limited", "rounds", "survivors", "duration_us",
}

// RunRepository provides run persistence operations.
type RunRepository struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*RunRepository)(nil)

// NewRunRepository creates a RunRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun inserts the run header and copies every record in one transaction.
//
// Precondition: b.RunID must be non-empty.
// Postcondition: Returns storage.ErrRunExists if the id is taken; nothing is
// written on error.
func (r *RunRepository) SaveRun(ctx context.Context, b *simulation.Batch) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, scenario, seed, started_at, encounters)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.RunID, b.Scenario, b.Seed, b.Started, len(b.Records),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("saving run %s: %w", b.RunID, storage.ErrRunExists)
		}
		return fmt.Errorf("inserting run: %w", err)
	}

	rows := make([][]any, len(b.Records))
	for i, rec := range b.Records {
		var winner any
		if rec.HasWinner {
			winner = rec.Winner
		}
		rows[i] = []any{
			b.RunID, rec.Encounter, rec.Seed, winner, rec.RoundLimited,
			rec.Rounds, rec.Survivors, rec.Duration.Microseconds(),
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"encounters"}, encounterColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copying encounters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// GetRun loads a run and its records.
//
// Postcondition: Returns storage.ErrRunNotFound if no run has the id.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*simulation.Batch, error) {
	b := &simulation.Batch{RunID: id}
	var encounters int
	err := r.db.QueryRow(ctx,
		`SELECT scenario, seed, started_at, encounters FROM runs WHERE id = $1`, id,
	).Scan(&b.Scenario, &b.Seed, &b.Started, &encounters)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("getting run %s: %w", id, storage.ErrRunNotFound)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	b.Started = b.Started.UTC()

	rows, err := r.db.Query(ctx,
		`SELECT encounter, seed, winner, round_limited, rounds, survivors, duration_us
		 FROM encounters WHERE run_id = $1 ORDER BY encounter`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying encounters: %w", err)
	}
	defer rows.Close()

	b.Records = make([]simulation.Record, 0, encounters)
	for rows.Next() {
		rec := simulation.Record{RunID: id, Scenario: b.Scenario}
		var (
			winner     *int
			durationUS int64
		)
		if err := rows.Scan(&rec.Encounter, &rec.Seed, &winner, &rec.RoundLimited,
			&rec.Rounds, &rec.Survivors, &durationUS); err != nil {
			return nil, fmt.Errorf("scanning encounter: %w", err)
		}
		if winner != nil {
			rec.Winner, rec.HasWinner = *winner, true
		}
		rec.Duration = time.Duration(durationUS) * time.Microsecond
		b.Records = append(b.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating encounters: %w", err)
	}
	return b, nil
}

// ListRuns returns run headers, most recent first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]storage.RunInfo, error) {
	query := `SELECT id, scenario, seed, started_at, encounters FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []storage.RunInfo
	for rows.Next() {
		var info storage.RunInfo
		if err := rows.Scan(&info.ID, &info.Scenario, &info.Seed, &info.Started, &info.Encounters); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		info.Started = info.Started.UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return out, nil
}

// Close is a no-op; the pool is owned by its creator.
func (r *RunRepository) Close() error { return nil }

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

// Package simulation runs many independent encounters of one scenario and
// collects their outcomes.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/battleforge/internal/game/bestiary"
	"github.com/cory-johannsen/battleforge/internal/game/combat"
	"github.com/cory-johannsen/battleforge/internal/game/condition"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/scripting"
)

// Record is the outcome of one encounter.
type Record struct {
	RunID     string
	Scenario  string
	Encounter int
	Seed      int64
	// Winner is meaningful only when HasWinner is true.
	Winner    int
	HasWinner bool
	// RoundLimited is true when the fight was stopped by its round limit.
	RoundLimited bool
	Rounds       int
	Survivors    int
	Duration     time.Duration
}

// Batch is the result of one Run call.
type Batch struct {
	RunID    string
	Scenario string
	Seed     int64
	Started  time.Time
	Records  []Record
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of encounters played concurrently.
// n <= 0 uses runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithMaxRounds is the round limit used when a scenario sets none.
func WithMaxRounds(n int) Option {
	return func(r *Runner) { r.maxRounds = n }
}

// WithConditions enables condition effects in every encounter.
func WithConditions(reg *condition.Registry) Option {
	return func(r *Runner) { r.conditions = reg }
}

// WithLogger sets the logger for batch progress. Encounters log through a
// child logger tagged with their index.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner plays batches of encounters. It is safe for concurrent use.
type Runner struct {
	builder    *bestiary.Builder
	conditions *condition.Registry
	logger     *zap.Logger
	workers    int
	maxRounds  int
}

// NewRunner creates a Runner that builds rosters with b.
//
// Precondition: b must be non-nil.
func NewRunner(b *bestiary.Builder, opts ...Option) *Runner {
	r := &Runner{builder: b, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// Run plays n encounters of sc. Encounter i rolls everything, HP included,
// from a source seeded with seed+i, so a batch is reproducible from its seed.
// seed == 0 draws a fresh seed.
//
// Precondition: n >= 0.
// Postcondition: Records are in encounter order. Returns an error if a
// roster cannot be built or ctx is cancelled; round-limited fights are
// recorded, not errors.
func (r *Runner) Run(ctx context.Context, sc *scripting.Scenario, n int, seed int64) (*Batch, error) {
	if seed == 0 {
		s, err := dice.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("simulation: drawing seed: %w", err)
		}
		seed = s
	}
	maxRounds := sc.MaxRounds
	if maxRounds == 0 {
		maxRounds = r.maxRounds
	}
	batch := &Batch{
		RunID:    uuid.New().String(),
		Scenario: sc.Name,
		Seed:     seed,
		Started:  time.Now().UTC(),
		Records:  make([]Record, n),
	}
	logger := r.logger.With(zap.String("run_id", batch.RunID), zap.String("scenario", sc.Name))
	logger.Info("batch starting",
		zap.Int("encounters", n),
		zap.Int64("seed", seed),
		zap.Int("workers", r.workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			rec, err := r.play(gctx, logger.With(zap.Int("encounter", i)), sc, maxRounds, seed+int64(i))
			if err != nil {
				return fmt.Errorf("simulation: encounter %d: %w", i, err)
			}
			rec.RunID, rec.Scenario, rec.Encounter = batch.RunID, sc.Name, i
			batch.Records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("batch finished", zap.Duration("elapsed", time.Since(batch.Started)))
	return batch, nil
}

func (r *Runner) play(ctx context.Context, logger *zap.Logger, sc *scripting.Scenario, maxRounds int, seed int64) (Record, error) {
	start := time.Now()
	src := dice.NewSeededSource(seed)
	roster, err := r.builder.WithSource(src).Roster(sc.Spawns)
	if err != nil {
		return Record{}, err
	}
	f := combat.New(roster, src,
		combat.WithLogger(logger),
		combat.WithConditions(r.conditions),
		combat.WithMaxRounds(maxRounds),
	)
	res, err := f.Run(ctx)
	rec := Record{
		Seed:      seed,
		Winner:    res.Winner,
		HasWinner: res.HasWinner,
		Rounds:    res.Rounds,
		Survivors: len(res.Survivors),
	}
	switch {
	case errors.Is(err, combat.ErrRoundLimit):
		rec.RoundLimited = true
	case err != nil:
		return Record{}, err
	}
	rec.Duration = time.Since(start)
	return rec, nil
}

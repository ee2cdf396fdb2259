// Package storage defines persistence of simulation batches. Implementations
// live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cory-johannsen/battleforge/internal/simulation"
)

// ErrRunNotFound is returned when a run lookup yields no results.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when saving a run whose id is already stored.
var ErrRunExists = errors.New("run already exists")

// RunInfo is the header of a stored run.
type RunInfo struct {
	ID         string
	Scenario   string
	Seed       int64
	Started    time.Time
	Encounters int
}

// Store persists simulation batches.
type Store interface {
	// SaveRun stores b and all of its records atomically.
	//
	// Postcondition: Returns ErrRunExists (wrapped) if b.RunID is taken.
	SaveRun(ctx context.Context, b *simulation.Batch) error
	// GetRun loads the batch stored under id with records in encounter order.
	//
	// Postcondition: Returns ErrRunNotFound (wrapped) for an unknown id.
	GetRun(ctx context.Context, id string) (*simulation.Batch, error)
	// ListRuns returns up to limit run headers, most recent first.
	// limit <= 0 returns every run.
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)
	// Close releases the underlying connection.
	Close() error
}

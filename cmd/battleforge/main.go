// Package main provides the battleforge binary that plays batches of scripted
// encounters and reports how often each team wins.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/config"
	"github.com/cory-johannsen/battleforge/internal/game/bestiary"
	"github.com/cory-johannsen/battleforge/internal/game/condition"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/observability"
	"github.com/cory-johannsen/battleforge/internal/scripting"
	"github.com/cory-johannsen/battleforge/internal/simulation"
	"github.com/cory-johannsen/battleforge/internal/storage"
	"github.com/cory-johannsen/battleforge/internal/storage/postgres"
	"github.com/cory-johannsen/battleforge/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and BATTLEFORGE_* env")
	scenarioArg := flag.String("scenario", "", "scenario name or .lua path; empty plays every scenario in content.scenarios_dir")
	encounters := flag.Int("encounters", 0, "encounters per scenario; 0 uses simulation.encounters")
	seed := flag.Int64("seed", 0, "batch seed; 0 uses simulation.seed")
	workers := flag.Int("workers", -1, "concurrent fights; -1 uses simulation.workers")
	csvPath := flag.String("csv", "", "write per-encounter records as CSV to this path")
	listRuns := flag.Int("list", 0, "list the N most recent stored runs and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *encounters > 0 {
		cfg.Simulation.Encounters = *encounters
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *workers >= 0 {
		cfg.Simulation.Workers = *workers
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer closeStore()

	if *listRuns > 0 {
		if err := printRuns(ctx, store, *listRuns); err != nil {
			logger.Fatal("listing runs", zap.Error(err))
		}
		return
	}

	builder, conditions, err := loadContent(cfg.Content, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}

	if cfg.Simulation.Seed == 0 {
		if cfg.Simulation.Seed, err = dice.NewSeed(); err != nil {
			logger.Fatal("drawing seed", zap.Error(err))
		}
	}
	logger.Info("batch seed", zap.Int64("seed", cfg.Simulation.Seed))

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	loader := scripting.NewLoader(roller, logger.Named("scenario"), cfg.Content.ScriptInstructionLimit).
		WithSeed(cfg.Simulation.Seed)
	loader.Known = func(name string) bool {
		_, ok := builder.Monster(name)
		return ok
	}
	scenarios, err := selectScenarios(loader, cfg.Content.ScenariosDir, *scenarioArg)
	if err != nil {
		logger.Fatal("loading scenarios", zap.Error(err))
	}

	runner := simulation.NewRunner(builder,
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithMaxRounds(cfg.Simulation.MaxRounds),
		simulation.WithConditions(conditions),
		simulation.WithLogger(logger),
	)

	var all []simulation.Record
	for _, sc := range scenarios {
		batch, err := runner.Run(ctx, sc, cfg.Simulation.Encounters, cfg.Simulation.Seed)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("interrupted", zap.String("scenario", sc.Name))
				return
			}
			logger.Fatal("running scenario", zap.String("scenario", sc.Name), zap.Error(err))
		}
		if store != nil {
			if err := store.SaveRun(ctx, batch); err != nil {
				logger.Fatal("saving run", zap.String("run_id", batch.RunID), zap.Error(err))
			}
		}
		fmt.Fprintf(os.Stdout, "%s [run %s, seed %d]: %s\n",
			sc.Name, batch.RunID, batch.Seed, simulation.Summarize(batch.Records))
		all = append(all, batch.Records...)
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, all); err != nil {
			logger.Fatal("writing csv", zap.String("path", *csvPath), zap.Error(err))
		}
	}

	logger.Info("battleforge finished",
		zap.Int("scenarios", len(scenarios)),
		zap.Int("encounters", len(all)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// loadContent loads monsters, spells and conditions from the configured
// directories. An empty conditions directory disables conditions.
func loadContent(cfg config.ContentConfig, logger *zap.Logger) (*bestiary.Builder, *condition.Registry, error) {
	loadStart := time.Now()
	monsters, err := bestiary.LoadMonsters(cfg.MonstersDir)
	if err != nil {
		return nil, nil, err
	}
	spells, err := bestiary.LoadSpells(cfg.SpellsDir)
	if err != nil {
		return nil, nil, err
	}
	builder, err := bestiary.NewBuilder(monsters, spells)
	if err != nil {
		return nil, nil, err
	}

	var conditions *condition.Registry
	if cfg.ConditionsDir != "" {
		conditions, err = condition.LoadDirectory(cfg.ConditionsDir)
		if err != nil {
			return nil, nil, err
		}
	}

	fields := []zap.Field{
		zap.Int("monsters", len(monsters)),
		zap.Int("spells", len(spells)),
		zap.Duration("elapsed", time.Since(loadStart)),
	}
	if conditions != nil {
		fields = append(fields, zap.Int("conditions", conditions.Len()))
	}
	logger.Info("content loaded", fields...)
	return builder, conditions, nil
}

// selectScenarios resolves arg to the scenarios to play. arg may be a path to
// a .lua file or the name of a scenario in dir.
func selectScenarios(loader *scripting.Loader, dir, arg string) ([]*scripting.Scenario, error) {
	if filepath.Ext(arg) == ".lua" {
		sc, err := loader.LoadFile(arg)
		if err != nil {
			return nil, err
		}
		return []*scripting.Scenario{sc}, nil
	}
	scenarios, err := loader.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if arg == "" {
		if len(scenarios) == 0 {
			return nil, fmt.Errorf("no scenarios in %q", dir)
		}
		return scenarios, nil
	}
	for _, sc := range scenarios {
		if sc.Name == arg {
			return []*scripting.Scenario{sc}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q in %q", arg, dir)
}

// openStore opens the configured run store. The "none" driver yields a nil
// store and a no-op close.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite storage opened", zap.String("path", cfg.Storage.SQLitePath))
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		dbStart := time.Now()
		if err := postgres.Migrate(cfg.Database.DSN()); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database health check: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		return postgres.NewRunRepository(pool.DB()), pool.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func printRuns(ctx context.Context, store storage.Store, limit int) error {
	if store == nil {
		return fmt.Errorf("storage.driver is %q; nothing to list", config.DriverNone)
	}
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%s  %s  %-20s seed=%d encounters=%d\n",
			r.ID, r.Started.Format(time.RFC3339), r.Scenario, r.Seed, r.Encounters)
	}
	return nil
}

func writeCSV(path string, records []simulation.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := simulation.WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

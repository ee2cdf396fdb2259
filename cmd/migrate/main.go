// Package main applies or rolls back the PostgreSQL run-storage schema from
// the migrations embedded in the binary. SQLite stores migrate themselves on
// open.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/cory-johannsen/battleforge/internal/config"
	"github.com/cory-johannsen/battleforge/migrations"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatalf("opening embedded migrations: %v", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	if err := apply(m, *direction, *steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration %s failed: %v", *direction, err)
	} else if errors.Is(err, migrate.ErrNoChange) {
		report(m, "no changes", start)
		return
	}
	report(m, "migrated "+*direction, start)
}

func apply(m *migrate.Migrate, direction string, steps int) error {
	switch direction {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	case "version":
		return nil
	default:
		return fmt.Errorf("invalid direction %q: must be up, down or version", direction)
	}
}

func report(m *migrate.Migrate, what string, start time.Time) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintf(os.Stdout, "%s: schema empty [%s]\n", what, time.Since(start))
		return
	}
	fmt.Fprintf(os.Stdout, "%s: version=%d dirty=%v [%s]\n", what, version, dirty, time.Since(start))
}

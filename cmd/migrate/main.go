package main

import (
	"errors"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/gridline/fraudgraph/backend/internal/util"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	if len(os.Args) < 2 {
		logger.Fatal("Usage: migrate <up|down [steps]|version>")
	}

	sourceURL := "file://" + util.GetEnvString("MIGRATIONS_PATH", "migrations")
	m, err := migrate.New(sourceURL, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to create migrate instance", "err", err)
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Migration up failed", "err", err)
		}
		logger.Info("Migrations applied")
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil {
				steps = n
			}
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Migration down failed", "err", err)
		}
		logger.Info("Migrations rolled back", "steps", steps)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("No migrations applied yet")
			return
		}
		if err != nil {
			logger.Fatal("Failed to read version", "err", err)
		}
		logger.Info("Current version", "version", version, "dirty", dirty)
	default:
		logger.Fatal("Unknown command", "command", os.Args[1])
	}
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/johnquangdev/transcript-pipeline/internal/infrastructure/database"
	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

// Usage: migrate [-dir migrations] up|down|status
func main() {
	dir := flag.String("dir", "", "migrations directory (defaults to DB_MIGRATIONS_DIR)")
	steps := flag.Int("steps", 1, "migrations to roll back with down, 0 for all")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	// Load configuration; provider keys are not needed here
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dir == "" {
		*dir = cfg.Database.MigrationsDir
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	switch command {
	case "up":
		logger.Info("🔄 Applying migrations", zap.String("dir", *dir))
		n, err := database.RunMigrations(db, *dir)
		if err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("✅ Migrations applied", zap.Int("count", n))

	case "down":
		logger.Info("⏪ Rolling back migrations", zap.String("dir", *dir), zap.Int("steps", *steps))
		n, err := database.RollbackMigrations(db, *dir, *steps)
		if err != nil {
			logger.Fatal("Failed to roll back migrations", zap.Error(err))
		}
		logger.Info("✅ Migrations rolled back", zap.Int("count", n))

	case "status":
		status, order, err := database.MigrationStatus(db, *dir)
		if err != nil {
			logger.Fatal("Failed to read migration status", zap.Error(err))
		}
		for _, id := range order {
			if appliedAt := status[id]; appliedAt != nil {
				fmt.Printf("%-60s applied %s\n", id, appliedAt.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Printf("%-60s pending\n", id)
			}
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, expected up, down or status\n", command)
		os.Exit(2)
	}
}

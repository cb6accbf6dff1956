package main

import (
	"context"
	"flag"
	"log"

	"github.com/azaynul10/CarbonPro-AI/pkg/config"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/azaynul10/CarbonPro-AI/pkg/migration"
	"github.com/azaynul10/CarbonPro-AI/pkg/postgresql"
)

func main() {
	var (
		direction = flag.String("direction", "up", "migration direction: up or down")
		steps     = flag.Int("steps", 0, "number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "internal/infrastructure/postgresql/migrations", "migration directory")
	)
	flag.Parse()

	ctx := context.Background()

	var pgConfig struct {
		config.PostgresConfig `envPrefix:"POSTGRES_"`
	}
	config.MustLoad(&pgConfig)

	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	pgClient, err := postgresql.NewClient(ctx, pgConfig.PostgresConfig)
	if err != nil {
		log.Fatalf("failed to connect to postgresql: %v", err)
	}
	defer pgClient.Close()

	runner := migration.NewRunner(pgClient, appLogger, migration.Config{
		MigrationDir: *dir,
	})

	if err := runner.EnsureTable(ctx); err != nil {
		log.Fatalf("failed to create migration table: %v", err)
	}

	switch *direction {
	case "up":
		if err := runner.Up(ctx, *steps); err != nil {
			log.Fatalf("failed to migrate up: %v", err)
		}
	case "down":
		if err := runner.Down(ctx, *steps); err != nil {
			log.Fatalf("failed to migrate down: %v", err)
		}
	default:
		log.Fatalf("invalid direction: %s (use up or down)", *direction)
	}

	log.Printf("migration %s completed", *direction)
}

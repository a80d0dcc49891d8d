package main

import (
	"context"
	"log"
	"os"

	"gouq/adapters/db/postgres/migrations"
	"gouq/internal/config"
	"gouq/internal/container"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <up|down|status> [database_url]")
	}
	_ = godotenv.Load()

	cfg := config.Default().Database
	cfg.URL = os.Getenv("DATABASE_URL")
	if len(os.Args) > 2 {
		cfg.URL = os.Args[2]
	}

	ctx := context.Background()
	db, err := container.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB)

	switch os.Args[1] {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		if len(applied) == 0 {
			log.Println("Schema is up to date")
		}
		for _, version := range applied {
			log.Printf("Applied %s", version)
		}
	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Printf("Rolled back %s", version)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			log.Printf("%-40s %s", s.Version, state)
		}
	default:
		log.Fatalf("Unknown command %q", os.Args[1])
	}
}

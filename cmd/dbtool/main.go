package main

import (
	"database/sql"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"dispatch-engine/internal/adapters/repositories"
	"dispatch-engine/internal/config"
	"dispatch-engine/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/routes.json")
	if err := initAndSeed(conn, seedPath); err != nil {
		log.Fatal(err)
	}

	// Optional: time-off and substitution fixtures for exercising the
	// availability gate locally.
	if opsPath := os.Getenv("OPS_SEED_PATH"); opsPath != "" {
		log.Println("Seeding driver time off and substitutions...")
		if err := repositories.SeedOperationsFromJSON(conn, opsPath); err != nil {
			log.Fatalf("operations seeding failed: %v", err)
		}
		log.Println("Operations seeding complete.")
	}
}

func initAndSeed(conn *sql.DB, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Println("Seeding routes...")
	if err := repositories.SeedRoutesFromJSON(conn, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")

	return nil
}

package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"dispatch-engine/internal/adapters/audit"
	"dispatch-engine/internal/adapters/auth"
	"dispatch-engine/internal/adapters/cache"
	"dispatch-engine/internal/adapters/collab"
	"dispatch-engine/internal/adapters/repositories"
	"dispatch-engine/internal/adapters/routes"
	"dispatch-engine/internal/api"
	"dispatch-engine/internal/config"
	"dispatch-engine/internal/platform/db"
	"dispatch-engine/internal/ports"
	"dispatch-engine/internal/services"
)

// main is the application composition root. It wires concrete adapters
// (Postgres or SQLite, Redis, AMQP) behind ports and starts the HTTP server.
// With no DATABASE_URL the server runs self-contained on SQLite for local use.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")

	var (
		store        ports.DispatchRepository
		routeSource  ports.RouteProvider
		availability ports.AvailabilityChecker
		substitution ports.SubstitutionFinder
	)

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) != "" {
		conn, err := db.Open(databaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		store = repositories.NewSQLDispatchRepository(conn)
		routeSource = routes.NewSQLRouteProvider(conn)
		availability = collab.NewSQLAvailabilityChecker(conn)
		substitution = collab.NewSQLSubstitutionFinder(conn)
	} else {
		conn, err := openSqlite(config.Get("DB_PATH", "data/dispatch.db"))
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		// Initialize schema and seed demo routes on startup for local runs.
		if err := initAndSeed(conn, config.Get("SEED_PATH", "data/seeds/routes.json")); err != nil {
			log.Fatal(err)
		}

		store = repositories.NewSqliteDispatchRepository(conn)
		routeSource = routes.NewSqliteRouteProvider(conn)
		availability = collab.NewSqliteAvailabilityChecker(conn)
		substitution = collab.NewSqliteSubstitutionFinder(conn)
	}

	// Route templates change rarely, so a small Redis cache in front of the
	// provider saves a read per creation when configured.
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		ttl := config.GetDuration("ROUTE_CACHE_TTL", 10*time.Minute)
		routeSource = routes.NewCachingRouteProvider(routeSource, cache.NewRedisRouteCache(client, ttl))
		log.Printf("Route cache enabled addr=%s ttl=%s", redisAddr, ttl)
	}

	var recorder ports.AuditRecorder = &audit.NoopRecorder{}
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		amqpRecorder, err := audit.NewAMQPRecorder(amqpURL)
		if err != nil {
			log.Fatal(err)
		}
		defer amqpRecorder.Close()
		recorder = amqpRecorder
		log.Println("Audit publishing enabled")
	}

	tolerance := time.Duration(config.GetInt("ON_TIME_TOLERANCE_MIN", 15)) * time.Minute
	svc := services.NewDispatchService(
		store, routeSource, availability, substitution, recorder,
		auth.NewDefaultAuthorizer(),
		services.WithOnTimeTolerance(tolerance),
	)

	router := api.NewRouter(svc)

	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func openSqlite(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openSqlite: open sqlite database %q: %w", dbPath, err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("openSqlite: verify sqlite connection to %q: %w", dbPath, err)
	}

	return conn, nil
}

func initAndSeed(conn *sql.DB, seedPath string) error {
	if err := repositories.InitSqliteSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedSqliteRoutesFromJSON(conn, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

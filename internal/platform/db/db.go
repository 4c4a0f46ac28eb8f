package db

import (
	"database/sql"
	"fmt"
	"time"

	"dispatch-engine/internal/config"
)

// Open connects to Postgres through the pgx stdlib driver. Pool sizing is
// environment-tunable so a terminal running many driver tablets can widen it.
func Open(databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	conn.SetMaxOpenConns(config.GetInt("DB_MAX_OPEN_CONNS", 10))
	conn.SetMaxIdleConns(config.GetInt("DB_MAX_IDLE_CONNS", 10))
	conn.SetConnMaxLifetime(config.GetDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute))

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}

	return conn, nil
}

package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Initialize the SQLite schema for local runs. Mirrors the Postgres schema
// with text timestamps; the same unique index guards duplicate dispatches.
func InitSqliteSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init sqlite schema: DB is nil")
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("init sqlite schema: enable foreign keys: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init sqlite schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			trk_id TEXT NOT NULL,
			terminal_id TEXT NOT NULL,
			default_driver_id TEXT NOT NULL DEFAULT '',
			default_truck_id TEXT NOT NULL DEFAULT '',
			departure_time TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS route_stops (
			id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL CHECK (sequence >= 0),
			planned_eta TEXT NOT NULL DEFAULT '',
			planned_etd TEXT NOT NULL DEFAULT '',
			destination_name TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			UNIQUE (route_id, sequence)
		);`,
		`CREATE TABLE IF NOT EXISTS dispatch_events (
			id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL REFERENCES routes(id),
			terminal_id TEXT NOT NULL,
			execution_date TEXT NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'normal',
			assigned_driver_id TEXT NOT NULL DEFAULT '',
			assigned_truck_id TEXT NOT NULL DEFAULT '',
			assigned_sub_unit_id TEXT NOT NULL DEFAULT '',
			planned_departure_time TEXT NOT NULL DEFAULT '',
			actual_departure_time TEXT,
			estimated_return_time TEXT,
			actual_return_time TEXT,
			estimated_completion_time TEXT,
			actual_completion_time TEXT,
			estimated_delay_minutes INTEGER,
			cancellation_reason TEXT NOT NULL DEFAULT '',
			cancellation_notes TEXT NOT NULL DEFAULT '',
			dispatch_notes TEXT NOT NULL DEFAULT '',
			operational_notes TEXT NOT NULL DEFAULT '',
			total_miles REAL NOT NULL DEFAULT 0,
			total_service_time INTEGER NOT NULL DEFAULT 0,
			fuel_used REAL NOT NULL DEFAULT 0,
			on_time_performance INTEGER,
			last_location_update TEXT,
			last_geotab_sync TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_dispatch_events_route_date
		ON dispatch_events (route_id, execution_date);`,
		`CREATE TABLE IF NOT EXISTS stop_progress (
			id TEXT PRIMARY KEY,
			dispatch_event_id TEXT NOT NULL REFERENCES dispatch_events(id) ON DELETE CASCADE,
			route_stop_id TEXT NOT NULL,
			sequence INTEGER NOT NULL CHECK (sequence >= 0),
			planned_eta TEXT NOT NULL DEFAULT '',
			planned_etd TEXT NOT NULL DEFAULT '',
			actual_arrival_time TEXT,
			actual_departure_time TEXT,
			status TEXT NOT NULL,
			on_time_status TEXT,
			service_time INTEGER,
			latitude REAL,
			longitude REAL,
			odometer REAL,
			fuel_used REAL,
			notes TEXT NOT NULL DEFAULT '',
			exception_reason TEXT NOT NULL DEFAULT '',
			skip_reason TEXT NOT NULL DEFAULT '',
			requires_attention INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stop_progress_event_sequence
		ON stop_progress (dispatch_event_id, sequence);`,
		`CREATE TABLE IF NOT EXISTS driver_time_off (
			driver_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS route_substitutions (
			id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			driver_id TEXT NOT NULL DEFAULT '',
			truck_id TEXT NOT NULL DEFAULT '',
			sub_unit_id TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		);`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init sqlite schema: commit tx: %w", err)
	}

	return nil
}

// Populate the SQLite route template tables from the same JSON seed format
// the Postgres tool consumes.
func SeedSqliteRoutesFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed routes: read %q: %w", jsonPath, err)
	}

	var seeds []RouteSeed
	if err := json.Unmarshal(bytes, &seeds); err != nil {
		return fmt.Errorf("seed routes: parse json: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed routes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertRoute := `
	INSERT OR REPLACE INTO routes (id, trk_id, terminal_id, default_driver_id, default_truck_id, departure_time)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	insertStop := `
	INSERT OR REPLACE INTO route_stops (id, route_id, sequence, planned_eta, planned_etd, destination_name, latitude, longitude)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`

	for i, seed := range seeds {
		routeID, err := uuid.Parse(strings.TrimSpace(seed.RouteID))
		if err != nil {
			return fmt.Errorf("seed routes: route at index %d: invalid route_id: %w", i, err)
		}
		if strings.TrimSpace(seed.TrkID) == "" {
			return fmt.Errorf("seed routes: route at index %d: trk_id cannot be empty", i)
		}

		if _, err := tx.Exec(insertRoute,
			routeID, seed.TrkID, seed.TerminalID,
			seed.DefaultDriverID, seed.DefaultTruckID, seed.DepartureTime,
		); err != nil {
			return fmt.Errorf("seed routes: insert route %s: %w", seed.TrkID, err)
		}

		for _, stop := range seed.Stops {
			if stop.Sequence < 0 {
				return fmt.Errorf("seed routes: route %s: negative sequence %d", seed.TrkID, stop.Sequence)
			}
			if _, err := tx.Exec(insertStop,
				uuid.New(), routeID, stop.Sequence,
				stop.PlannedETA, stop.PlannedETD, stop.DestinationName,
				stop.Latitude, stop.Longitude,
			); err != nil {
				return fmt.Errorf("seed routes: route %s stop seq=%d: %w", seed.TrkID, stop.Sequence, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed routes: commit tx: %w", err)
	}

	return nil
}

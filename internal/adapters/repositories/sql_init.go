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

// Initialize the Postgres schema. The unique index on
// (route_id, execution_date) enforces at-most-one-dispatch-per-route-per-day
// even when two creations race past the application pre-check.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id UUID PRIMARY KEY,
		trk_id TEXT NOT NULL,
		terminal_id TEXT NOT NULL,
		default_driver_id TEXT NOT NULL DEFAULT '',
		default_truck_id TEXT NOT NULL DEFAULT '',
		departure_time TEXT NOT NULL DEFAULT ''
	);
	`

	createRouteStopsQuery := `
	CREATE TABLE IF NOT EXISTS route_stops (
		id UUID PRIMARY KEY,
		route_id UUID NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL CHECK (sequence >= 0),
		planned_eta TEXT NOT NULL DEFAULT '',
		planned_etd TEXT NOT NULL DEFAULT '',
		destination_name TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		UNIQUE (route_id, sequence)
	);
	`

	createDispatchEventsQuery := `
	CREATE TABLE IF NOT EXISTS dispatch_events (
		id UUID PRIMARY KEY,
		route_id UUID NOT NULL REFERENCES routes(id),
		terminal_id TEXT NOT NULL,
		execution_date DATE NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'normal',
		assigned_driver_id TEXT NOT NULL DEFAULT '',
		assigned_truck_id TEXT NOT NULL DEFAULT '',
		assigned_sub_unit_id TEXT NOT NULL DEFAULT '',
		planned_departure_time TEXT NOT NULL DEFAULT '',
		actual_departure_time TIMESTAMPTZ,
		estimated_return_time TIMESTAMPTZ,
		actual_return_time TIMESTAMPTZ,
		estimated_completion_time TIMESTAMPTZ,
		actual_completion_time TIMESTAMPTZ,
		estimated_delay_minutes INTEGER,
		cancellation_reason TEXT NOT NULL DEFAULT '',
		cancellation_notes TEXT NOT NULL DEFAULT '',
		dispatch_notes TEXT NOT NULL DEFAULT '',
		operational_notes TEXT NOT NULL DEFAULT '',
		total_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_service_time INTEGER NOT NULL DEFAULT 0,
		fuel_used DOUBLE PRECISION NOT NULL DEFAULT 0,
		on_time_performance INTEGER,
		last_location_update TIMESTAMPTZ,
		last_geotab_sync TIMESTAMPTZ,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createDispatchUniqueIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS uq_dispatch_events_route_date
	ON dispatch_events (route_id, execution_date);
	`

	createStopProgressQuery := `
	CREATE TABLE IF NOT EXISTS stop_progress (
		id UUID PRIMARY KEY,
		dispatch_event_id UUID NOT NULL REFERENCES dispatch_events(id) ON DELETE CASCADE,
		route_stop_id UUID NOT NULL,
		sequence INTEGER NOT NULL CHECK (sequence >= 0),
		planned_eta TEXT NOT NULL DEFAULT '',
		planned_etd TEXT NOT NULL DEFAULT '',
		actual_arrival_time TIMESTAMPTZ,
		actual_departure_time TIMESTAMPTZ,
		status TEXT NOT NULL,
		on_time_status TEXT,
		service_time INTEGER,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		odometer DOUBLE PRECISION,
		fuel_used DOUBLE PRECISION,
		notes TEXT NOT NULL DEFAULT '',
		exception_reason TEXT NOT NULL DEFAULT '',
		skip_reason TEXT NOT NULL DEFAULT '',
		requires_attention BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createStopProgressIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_stop_progress_event_sequence
	ON stop_progress (dispatch_event_id, sequence);
	`

	createTimeOffQuery := `
	CREATE TABLE IF NOT EXISTS driver_time_off (
		driver_id TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);
	`

	createSubstitutionsQuery := `
	CREATE TABLE IF NOT EXISTS route_substitutions (
		id UUID PRIMARY KEY,
		route_id UUID NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		driver_id TEXT NOT NULL DEFAULT '',
		truck_id TEXT NOT NULL DEFAULT '',
		sub_unit_id TEXT NOT NULL DEFAULT '',
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	statements := []string{
		createRoutesQuery,
		createRouteStopsQuery,
		createDispatchEventsQuery,
		createDispatchUniqueIndexQuery,
		createStopProgressQuery,
		createStopProgressIndexQuery,
		createTimeOffQuery,
		createSubstitutionsQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type RouteStopSeed struct {
	Sequence        int     `json:"sequence"`
	PlannedETA      string  `json:"planned_eta"`
	PlannedETD      string  `json:"planned_etd"`
	DestinationName string  `json:"destination_name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

type RouteSeed struct {
	RouteID         string          `json:"route_id"`
	TrkID           string          `json:"trk_id"`
	TerminalID      string          `json:"terminal_id"`
	DefaultDriverID string          `json:"default_driver_id"`
	DefaultTruckID  string          `json:"default_truck_id"`
	DepartureTime   string          `json:"departure_time"`
	Stops           []RouteStopSeed `json:"stops"`
}

// Populate the route template tables from a JSON file for local runs.
func SeedRoutesFromJSON(db *sql.DB, jsonPath string) error {
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
	INSERT INTO routes (id, trk_id, terminal_id, default_driver_id, default_truck_id, departure_time)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET trk_id = EXCLUDED.trk_id,
		terminal_id = EXCLUDED.terminal_id,
		default_driver_id = EXCLUDED.default_driver_id,
		default_truck_id = EXCLUDED.default_truck_id,
		departure_time = EXCLUDED.departure_time;
	`
	insertStop := `
	INSERT INTO route_stops (id, route_id, sequence, planned_eta, planned_etd, destination_name, latitude, longitude)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (route_id, sequence) DO UPDATE
	SET planned_eta = EXCLUDED.planned_eta,
		planned_etd = EXCLUDED.planned_etd,
		destination_name = EXCLUDED.destination_name,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude;
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

type TimeOffSeed struct {
	DriverID  string `json:"driver_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type SubstitutionSeed struct {
	RouteID   string `json:"route_id"`
	DriverID  string `json:"driver_id"`
	TruckID   string `json:"truck_id"`
	SubUnitID string `json:"sub_unit_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Active    *bool  `json:"active"`
}

type OperationsSeed struct {
	DriverTimeOff []TimeOffSeed      `json:"driver_time_off"`
	Substitutions []SubstitutionSeed `json:"substitutions"`
}

// Populate driver time-off and route substitutions from a JSON file so the
// availability gate and substitution resolution can be exercised locally.
func SeedOperationsFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed operations: read %q: %w", jsonPath, err)
	}

	var seed OperationsSeed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return fmt.Errorf("seed operations: parse json: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed operations: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, t := range seed.DriverTimeOff {
		if strings.TrimSpace(t.DriverID) == "" {
			return fmt.Errorf("seed operations: time off at index %d: driver_id cannot be empty", i)
		}
		if _, err := tx.Exec(
			`INSERT INTO driver_time_off (driver_id, start_date, end_date, reason) VALUES ($1, $2, $3, $4)`,
			t.DriverID, t.StartDate, t.EndDate, t.Reason,
		); err != nil {
			return fmt.Errorf("seed operations: insert time off for %s: %w", t.DriverID, err)
		}
	}

	for i, s := range seed.Substitutions {
		routeID, err := uuid.Parse(strings.TrimSpace(s.RouteID))
		if err != nil {
			return fmt.Errorf("seed operations: substitution at index %d: invalid route_id: %w", i, err)
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		if _, err := tx.Exec(
			`INSERT INTO route_substitutions (id, route_id, driver_id, truck_id, sub_unit_id, start_date, end_date, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), routeID, s.DriverID, s.TruckID, s.SubUnitID, s.StartDate, s.EndDate, active,
		); err != nil {
			return fmt.Errorf("seed operations: insert substitution for route %s: %w", s.RouteID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed operations: commit tx: %w", err)
	}

	return nil
}

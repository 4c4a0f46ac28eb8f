// Package collab holds adapters for the external collaborator services the
// dispatch engine consults: driver availability and route substitutions.
package collab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// Postgres-backed availability check: a driver is available on a date unless
// a time-off entry covers it. The full availability service lives elsewhere;
// the engine needs only this one query.
type SQLAvailabilityChecker struct{ DB *sql.DB }

func NewSQLAvailabilityChecker(db *sql.DB) *SQLAvailabilityChecker {
	return &SQLAvailabilityChecker{DB: db}
}

func (c *SQLAvailabilityChecker) IsDriverAvailable(ctx context.Context, driverID string, date time.Time) (bool, error) {
	if c.DB == nil {
		return false, errors.New("availability checker: db is nil")
	}

	day := domain.NormalizeDate(date)

	var count int
	err := c.DB.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM driver_time_off
	WHERE driver_id = $1 AND start_date <= $2 AND end_date >= $3;
	`, driverID, day, day).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is driver available: %w", err)
	}

	return count == 0, nil
}

// Postgres-backed substitution lookup.
type SQLSubstitutionFinder struct{ DB *sql.DB }

func NewSQLSubstitutionFinder(db *sql.DB) *SQLSubstitutionFinder {
	return &SQLSubstitutionFinder{DB: db}
}

func (f *SQLSubstitutionFinder) FindActiveSubstitution(ctx context.Context, routeID uuid.UUID, date time.Time) (*domain.Substitution, error) {
	if f.DB == nil {
		return nil, errors.New("substitution finder: db is nil")
	}

	day := domain.NormalizeDate(date)

	var sub domain.Substitution
	err := f.DB.QueryRowContext(ctx, `
	SELECT id, route_id, driver_id, truck_id, sub_unit_id
	FROM route_substitutions
	WHERE route_id = $1 AND active AND start_date <= $2 AND end_date >= $3
	ORDER BY start_date DESC
	LIMIT 1;
	`, routeID, day, day).Scan(
		&sub.SubstitutionID, &sub.RouteID, &sub.DriverID, &sub.TruckID, &sub.SubUnitID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active substitution: %w", err)
	}

	return &sub, nil
}

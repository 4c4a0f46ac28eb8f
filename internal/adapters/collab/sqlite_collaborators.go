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

// SQLite variants for local runs; dates compare as YYYY-MM-DD text.

type SqliteAvailabilityChecker struct{ DB *sql.DB }

func NewSqliteAvailabilityChecker(db *sql.DB) *SqliteAvailabilityChecker {
	return &SqliteAvailabilityChecker{DB: db}
}

func (c *SqliteAvailabilityChecker) IsDriverAvailable(ctx context.Context, driverID string, date time.Time) (bool, error) {
	if c.DB == nil {
		return false, errors.New("availability checker: db is nil")
	}

	day := domain.NormalizeDate(date).Format("2006-01-02")

	var count int
	err := c.DB.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM driver_time_off
	WHERE driver_id = ? AND start_date <= ? AND end_date >= ?;
	`, driverID, day, day).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is driver available: %w", err)
	}

	return count == 0, nil
}

type SqliteSubstitutionFinder struct{ DB *sql.DB }

func NewSqliteSubstitutionFinder(db *sql.DB) *SqliteSubstitutionFinder {
	return &SqliteSubstitutionFinder{DB: db}
}

func (f *SqliteSubstitutionFinder) FindActiveSubstitution(ctx context.Context, routeID uuid.UUID, date time.Time) (*domain.Substitution, error) {
	if f.DB == nil {
		return nil, errors.New("substitution finder: db is nil")
	}

	day := domain.NormalizeDate(date).Format("2006-01-02")

	var sub domain.Substitution
	err := f.DB.QueryRowContext(ctx, `
	SELECT id, route_id, driver_id, truck_id, sub_unit_id
	FROM route_substitutions
	WHERE route_id = ? AND active = 1 AND start_date <= ? AND end_date >= ?
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

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

// SQLite-backed implementation of the DispatchRepository port for local runs.
// Timestamps are stored as RFC 3339 text and execution dates as YYYY-MM-DD so
// rows stay portable across drivers.
type SqliteDispatchRepository struct{ DB *sql.DB }

func NewSqliteDispatchRepository(db *sql.DB) *SqliteDispatchRepository {
	return &SqliteDispatchRepository{DB: db}
}

const dateOnly = "2006-01-02"

func (r *SqliteDispatchRepository) CreateDispatchEvent(ctx context.Context, ev *domain.DispatchEvent, stops []*domain.StopProgress) error {
	if r.DB == nil {
		return errors.New("sqlite dispatch repository: db is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create dispatch event: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertEvent := `
	INSERT INTO dispatch_events (` + eventColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
	        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	if _, err := tx.ExecContext(ctx, insertEvent, sqliteEventArgs(ev)...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("create dispatch event: route %s date %s: %w",
				ev.RouteID, ev.ExecutionDate.Format(dateOnly), domain.ErrDuplicateDispatch)
		}
		return fmt.Errorf("create dispatch event: insert event: %w", err)
	}

	insertStop := `
	INSERT INTO stop_progress (` + stopColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	stmt, err := tx.PrepareContext(ctx, insertStop)
	if err != nil {
		return fmt.Errorf("create dispatch event: prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range stops {
		if _, err := stmt.ExecContext(ctx, sqliteStopArgs(sp)...); err != nil {
			return fmt.Errorf("create dispatch event: insert stop seq=%d: %w", sp.Sequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create dispatch event: commit tx: %w", err)
	}

	return nil
}

func (r *SqliteDispatchRepository) GetDispatchEvent(ctx context.Context, id uuid.UUID) (*domain.DispatchEvent, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM dispatch_events WHERE id = ?;`, id)

	ev, err := scanSqliteEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get dispatch event %s: %w", id, domain.ErrDispatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch event: %w", err)
	}
	return ev, nil
}

func (r *SqliteDispatchRepository) FindByRouteAndDate(ctx context.Context, routeID uuid.UUID, date time.Time) (*domain.DispatchEvent, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM dispatch_events WHERE route_id = ? AND execution_date = ?;`,
		routeID, date.Format(dateOnly))

	ev, err := scanSqliteEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find dispatch by route and date: %w", err)
	}
	return ev, nil
}

func (r *SqliteDispatchRepository) ListForTerminal(ctx context.Context, terminalID string, filter ports.DispatchFilter) ([]*domain.DispatchEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM dispatch_events WHERE terminal_id = ?`
	args := []any{terminalID}

	if filter.Date != nil {
		q += " AND execution_date = ?"
		args = append(args, domain.NormalizeDate(*filter.Date).Format(dateOnly))
	}
	if filter.Status != "" {
		q += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.DriverID != "" {
		q += " AND assigned_driver_id = ?"
		args = append(args, filter.DriverID)
	}
	q += " ORDER BY execution_date, planned_departure_time, created_at;"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list dispatch events: query: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.DispatchEvent, 0, 32)
	for rows.Next() {
		ev, err := scanSqliteEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list dispatch events: scan row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dispatch events: row iteration: %w", err)
	}

	return events, nil
}

func (r *SqliteDispatchRepository) ListStops(ctx context.Context, eventID uuid.UUID) ([]*domain.StopProgress, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+stopColumns+` FROM stop_progress WHERE dispatch_event_id = ? ORDER BY sequence;`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list stops: query: %w", err)
	}
	defer rows.Close()

	stops := make([]*domain.StopProgress, 0, 16)
	for rows.Next() {
		sp, err := scanSqliteStop(rows)
		if err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		stops = append(stops, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return stops, nil
}

func (r *SqliteDispatchRepository) GetStop(ctx context.Context, stopID uuid.UUID) (*domain.StopProgress, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM stop_progress WHERE id = ?;`, stopID)

	sp, err := scanSqliteStop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get stop %s: %w", stopID, domain.ErrStopNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get stop: %w", err)
	}
	return sp, nil
}

func (r *SqliteDispatchRepository) UpdateDispatchEvent(ctx context.Context, ev *domain.DispatchEvent) error {
	q := `
	UPDATE dispatch_events SET
		status = ?, priority = ?,
		assigned_driver_id = ?, assigned_truck_id = ?, assigned_sub_unit_id = ?,
		actual_departure_time = ?,
		estimated_return_time = ?, actual_return_time = ?,
		estimated_completion_time = ?, actual_completion_time = ?,
		estimated_delay_minutes = ?,
		cancellation_reason = ?, cancellation_notes = ?,
		dispatch_notes = ?, operational_notes = ?,
		total_miles = ?, total_service_time = ?, fuel_used = ?,
		on_time_performance = ?,
		last_location_update = ?, last_geotab_sync = ?,
		version = ?, updated_at = ?
	WHERE id = ? AND version = ?;
	`
	res, err := r.DB.ExecContext(ctx, q,
		ev.Status, ev.Priority,
		ev.AssignedDriverID, ev.AssignedTruckID, ev.AssignedSubUnitID,
		sqliteTime(ev.ActualDepartureTime),
		sqliteTime(ev.EstimatedReturnTime), sqliteTime(ev.ActualReturnTime),
		sqliteTime(ev.EstimatedCompletionTime), sqliteTime(ev.ActualCompletionTime),
		ev.EstimatedDelayMinutes,
		ev.CancellationReason, ev.CancellationNotes,
		ev.DispatchNotes, ev.OperationalNotes,
		ev.TotalMiles, ev.TotalServiceTime, ev.FuelUsed,
		ev.OnTimePerformance,
		sqliteTime(ev.LastLocationUpdate), sqliteTime(ev.LastGeotabSync),
		ev.Version+1, ev.UpdatedAt.Format(time.RFC3339Nano),
		ev.DispatchEventID, ev.Version,
	)
	if err != nil {
		return fmt.Errorf("update dispatch event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dispatch event: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update dispatch event %s at version %d: %w",
			ev.DispatchEventID, ev.Version, domain.ErrVersionConflict)
	}

	ev.Version++
	return nil
}

func (r *SqliteDispatchRepository) UpdateStop(ctx context.Context, sp *domain.StopProgress) error {
	q := `
	UPDATE stop_progress SET
		actual_arrival_time = ?, actual_departure_time = ?,
		status = ?, on_time_status = ?, service_time = ?,
		latitude = ?, longitude = ?, odometer = ?, fuel_used = ?,
		notes = ?, exception_reason = ?, skip_reason = ?,
		requires_attention = ?, updated_at = ?
	WHERE id = ?;
	`
	res, err := r.DB.ExecContext(ctx, q,
		sqliteTime(sp.ActualArrivalTime), sqliteTime(sp.ActualDepartureTime),
		sp.Status, onTimeText(sp.OnTimeStatus), sp.ServiceTime,
		sp.Latitude, sp.Longitude, sp.Odometer, sp.FuelUsed,
		sp.Notes, sp.ExceptionReason, sp.SkipReason,
		sp.RequiresAttention, sp.UpdatedAt.Format(time.RFC3339Nano),
		sp.StopProgressID,
	)
	if err != nil {
		return fmt.Errorf("update stop: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stop: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update stop %s: %w", sp.StopProgressID, domain.ErrStopNotFound)
	}

	return nil
}

func (r *SqliteDispatchRepository) SkipPendingStops(ctx context.Context, eventID uuid.UUID, reason string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
	UPDATE stop_progress
	SET status = ?, skip_reason = ?, updated_at = ?
	WHERE dispatch_event_id = ? AND status = ?;
	`, domain.StopSkipped, reason, now.Format(time.RFC3339Nano), eventID, domain.StopPending)
	if err != nil {
		return fmt.Errorf("skip pending stops: %w", err)
	}
	return nil
}

func (r *SqliteDispatchRepository) DeleteDispatchEvent(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM dispatch_events WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete dispatch event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dispatch event: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete dispatch event %s: %w", id, domain.ErrDispatchNotFound)
	}

	return nil
}

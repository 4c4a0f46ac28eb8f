package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/platform/obs"
	"dispatch-engine/internal/ports"
)

// Postgres-backed implementation of the DispatchRepository port.
// The unique index on (route_id, execution_date) is the authoritative
// duplicate-dispatch guard; application pre-checks only improve the error.
type SQLDispatchRepository struct{ DB *sql.DB }

func NewSQLDispatchRepository(db *sql.DB) *SQLDispatchRepository {
	return &SQLDispatchRepository{DB: db}
}

const eventColumns = `
	id, route_id, terminal_id, execution_date, status, priority,
	assigned_driver_id, assigned_truck_id, assigned_sub_unit_id,
	planned_departure_time, actual_departure_time,
	estimated_return_time, actual_return_time,
	estimated_completion_time, actual_completion_time,
	estimated_delay_minutes, cancellation_reason, cancellation_notes,
	dispatch_notes, operational_notes,
	total_miles, total_service_time, fuel_used, on_time_performance,
	last_location_update, last_geotab_sync,
	version, created_at, updated_at`

const stopColumns = `
	id, dispatch_event_id, route_stop_id, sequence,
	planned_eta, planned_etd, actual_arrival_time, actual_departure_time,
	status, on_time_status, service_time,
	latitude, longitude, odometer, fuel_used,
	notes, exception_reason, skip_reason, requires_attention,
	created_at, updated_at`

func (r *SQLDispatchRepository) CreateDispatchEvent(ctx context.Context, ev *domain.DispatchEvent, stops []*domain.StopProgress) (err error) {
	defer obs.Time(ctx, "dispatch.repo.Create")(&err)

	if r.DB == nil {
		return errors.New("dispatch repository: db is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create dispatch event: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertEvent := `
	INSERT INTO dispatch_events (` + eventColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29);
	`
	if _, err = tx.ExecContext(ctx, insertEvent, eventArgs(ev)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create dispatch event: route %s date %s: %w",
				ev.RouteID, ev.ExecutionDate.Format("2006-01-02"), domain.ErrDuplicateDispatch)
		}
		return fmt.Errorf("create dispatch event: insert event: %w", err)
	}

	insertStop := `
	INSERT INTO stop_progress (` + stopColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21);
	`
	stmt, err := tx.PrepareContext(ctx, insertStop)
	if err != nil {
		return fmt.Errorf("create dispatch event: prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range stops {
		if _, err = stmt.ExecContext(ctx, stopArgs(sp)...); err != nil {
			return fmt.Errorf("create dispatch event: insert stop seq=%d: %w", sp.Sequence, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("create dispatch event: commit tx: %w", err)
	}

	return nil
}

func (r *SQLDispatchRepository) GetDispatchEvent(ctx context.Context, id uuid.UUID) (_ *domain.DispatchEvent, err error) {
	defer obs.Time(ctx, "dispatch.repo.Get")(&err)

	row := r.DB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM dispatch_events WHERE id = $1;`, id)

	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get dispatch event %s: %w", id, domain.ErrDispatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch event: %w", err)
	}
	return ev, nil
}

func (r *SQLDispatchRepository) FindByRouteAndDate(ctx context.Context, routeID uuid.UUID, date time.Time) (*domain.DispatchEvent, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM dispatch_events WHERE route_id = $1 AND execution_date = $2;`,
		routeID, date)

	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find dispatch by route and date: %w", err)
	}
	return ev, nil
}

func (r *SQLDispatchRepository) ListForTerminal(ctx context.Context, terminalID string, filter ports.DispatchFilter) (_ []*domain.DispatchEvent, err error) {
	defer obs.Time(ctx, "dispatch.repo.ListForTerminal")(&err)

	q := `SELECT ` + eventColumns + ` FROM dispatch_events WHERE terminal_id = $1`
	args := []any{terminalID}

	if filter.Date != nil {
		args = append(args, domain.NormalizeDate(*filter.Date))
		q += fmt.Sprintf(" AND execution_date = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		q += fmt.Sprintf(" AND assigned_driver_id = $%d", len(args))
	}
	q += " ORDER BY execution_date, planned_departure_time, created_at;"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list dispatch events: query: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.DispatchEvent, 0, 32)
	for rows.Next() {
		ev, err := scanEvent(rows)
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

func (r *SQLDispatchRepository) ListStops(ctx context.Context, eventID uuid.UUID) ([]*domain.StopProgress, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+stopColumns+` FROM stop_progress WHERE dispatch_event_id = $1 ORDER BY sequence;`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list stops: query: %w", err)
	}
	defer rows.Close()

	stops := make([]*domain.StopProgress, 0, 16)
	for rows.Next() {
		sp, err := scanStop(rows)
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

func (r *SQLDispatchRepository) GetStop(ctx context.Context, stopID uuid.UUID) (*domain.StopProgress, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM stop_progress WHERE id = $1;`, stopID)

	sp, err := scanStop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get stop %s: %w", stopID, domain.ErrStopNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get stop: %w", err)
	}
	return sp, nil
}

// UpdateDispatchEvent performs a compare-and-swap on the version column.
func (r *SQLDispatchRepository) UpdateDispatchEvent(ctx context.Context, ev *domain.DispatchEvent) (err error) {
	defer obs.Time(ctx, "dispatch.repo.UpdateEvent")(&err)

	q := `
	UPDATE dispatch_events SET
		status = $1, priority = $2,
		assigned_driver_id = $3, assigned_truck_id = $4, assigned_sub_unit_id = $5,
		actual_departure_time = $6,
		estimated_return_time = $7, actual_return_time = $8,
		estimated_completion_time = $9, actual_completion_time = $10,
		estimated_delay_minutes = $11,
		cancellation_reason = $12, cancellation_notes = $13,
		dispatch_notes = $14, operational_notes = $15,
		total_miles = $16, total_service_time = $17, fuel_used = $18,
		on_time_performance = $19,
		last_location_update = $20, last_geotab_sync = $21,
		version = $22, updated_at = $23
	WHERE id = $24 AND version = $25;
	`
	res, err := r.DB.ExecContext(ctx, q,
		ev.Status, ev.Priority,
		ev.AssignedDriverID, ev.AssignedTruckID, ev.AssignedSubUnitID,
		ev.ActualDepartureTime,
		ev.EstimatedReturnTime, ev.ActualReturnTime,
		ev.EstimatedCompletionTime, ev.ActualCompletionTime,
		ev.EstimatedDelayMinutes,
		ev.CancellationReason, ev.CancellationNotes,
		ev.DispatchNotes, ev.OperationalNotes,
		ev.TotalMiles, ev.TotalServiceTime, ev.FuelUsed,
		ev.OnTimePerformance,
		ev.LastLocationUpdate, ev.LastGeotabSync,
		ev.Version+1, ev.UpdatedAt,
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

func (r *SQLDispatchRepository) UpdateStop(ctx context.Context, sp *domain.StopProgress) (err error) {
	defer obs.Time(ctx, "dispatch.repo.UpdateStop")(&err)

	q := `
	UPDATE stop_progress SET
		actual_arrival_time = $1, actual_departure_time = $2,
		status = $3, on_time_status = $4, service_time = $5,
		latitude = $6, longitude = $7, odometer = $8, fuel_used = $9,
		notes = $10, exception_reason = $11, skip_reason = $12,
		requires_attention = $13, updated_at = $14
	WHERE id = $15;
	`
	res, err := r.DB.ExecContext(ctx, q,
		sp.ActualArrivalTime, sp.ActualDepartureTime,
		sp.Status, onTimeText(sp.OnTimeStatus), sp.ServiceTime,
		sp.Latitude, sp.Longitude, sp.Odometer, sp.FuelUsed,
		sp.Notes, sp.ExceptionReason, sp.SkipReason,
		sp.RequiresAttention, sp.UpdatedAt,
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

func (r *SQLDispatchRepository) SkipPendingStops(ctx context.Context, eventID uuid.UUID, reason string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
	UPDATE stop_progress
	SET status = $1, skip_reason = $2, updated_at = $3
	WHERE dispatch_event_id = $4 AND status = $5;
	`, domain.StopSkipped, reason, now, eventID, domain.StopPending)
	if err != nil {
		return fmt.Errorf("skip pending stops: %w", err)
	}
	return nil
}

// DeleteDispatchEvent relies on the ON DELETE CASCADE from stop_progress.
func (r *SQLDispatchRepository) DeleteDispatchEvent(ctx context.Context, id uuid.UUID) (err error) {
	defer obs.Time(ctx, "dispatch.repo.Delete")(&err)

	res, err := r.DB.ExecContext(ctx, `DELETE FROM dispatch_events WHERE id = $1;`, id)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

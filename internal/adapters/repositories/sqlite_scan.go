package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"dispatch-engine/internal/domain"
)

// Text-based time handling for the SQLite store. The Postgres adapter scans
// native timestamptz columns; here everything round-trips through RFC 3339.

func sqliteTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseSqliteTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored time %q: %w", s.String, err)
	}
	return &t, nil
}

func sqliteEventArgs(ev *domain.DispatchEvent) []any {
	return []any{
		ev.DispatchEventID, ev.RouteID, ev.TerminalID, ev.ExecutionDate.Format(dateOnly),
		ev.Status, ev.Priority,
		ev.AssignedDriverID, ev.AssignedTruckID, ev.AssignedSubUnitID,
		ev.PlannedDepartureTime, sqliteTime(ev.ActualDepartureTime),
		sqliteTime(ev.EstimatedReturnTime), sqliteTime(ev.ActualReturnTime),
		sqliteTime(ev.EstimatedCompletionTime), sqliteTime(ev.ActualCompletionTime),
		ev.EstimatedDelayMinutes, ev.CancellationReason, ev.CancellationNotes,
		ev.DispatchNotes, ev.OperationalNotes,
		ev.TotalMiles, ev.TotalServiceTime, ev.FuelUsed, ev.OnTimePerformance,
		sqliteTime(ev.LastLocationUpdate), sqliteTime(ev.LastGeotabSync),
		ev.Version,
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		ev.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func sqliteStopArgs(sp *domain.StopProgress) []any {
	return []any{
		sp.StopProgressID, sp.DispatchEventID, sp.RouteStopID, sp.Sequence,
		sp.PlannedETA, sp.PlannedETD,
		sqliteTime(sp.ActualArrivalTime), sqliteTime(sp.ActualDepartureTime),
		sp.Status, onTimeText(sp.OnTimeStatus), sp.ServiceTime,
		sp.Latitude, sp.Longitude, sp.Odometer, sp.FuelUsed,
		sp.Notes, sp.ExceptionReason, sp.SkipReason, sp.RequiresAttention,
		sp.CreatedAt.UTC().Format(time.RFC3339Nano),
		sp.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func scanSqliteEvent(s scanner) (*domain.DispatchEvent, error) {
	var (
		ev               domain.DispatchEvent
		execDate         string
		actualDep        sql.NullString
		estReturn        sql.NullString
		actReturn        sql.NullString
		estDone          sql.NullString
		actDone          sql.NullString
		delayMinutes     sql.NullInt64
		onTimePerf       sql.NullInt64
		lastLocation     sql.NullString
		lastGeotab       sql.NullString
		created, updated string
	)

	err := s.Scan(
		&ev.DispatchEventID, &ev.RouteID, &ev.TerminalID, &execDate,
		&ev.Status, &ev.Priority,
		&ev.AssignedDriverID, &ev.AssignedTruckID, &ev.AssignedSubUnitID,
		&ev.PlannedDepartureTime, &actualDep,
		&estReturn, &actReturn,
		&estDone, &actDone,
		&delayMinutes, &ev.CancellationReason, &ev.CancellationNotes,
		&ev.DispatchNotes, &ev.OperationalNotes,
		&ev.TotalMiles, &ev.TotalServiceTime, &ev.FuelUsed, &onTimePerf,
		&lastLocation, &lastGeotab,
		&ev.Version, &created, &updated,
	)
	if err != nil {
		return nil, err
	}

	if ev.ExecutionDate, err = time.Parse(dateOnly, execDate); err != nil {
		return nil, fmt.Errorf("parse execution date %q: %w", execDate, err)
	}
	if ev.ActualDepartureTime, err = parseSqliteTime(actualDep); err != nil {
		return nil, err
	}
	if ev.EstimatedReturnTime, err = parseSqliteTime(estReturn); err != nil {
		return nil, err
	}
	if ev.ActualReturnTime, err = parseSqliteTime(actReturn); err != nil {
		return nil, err
	}
	if ev.EstimatedCompletionTime, err = parseSqliteTime(estDone); err != nil {
		return nil, err
	}
	if ev.ActualCompletionTime, err = parseSqliteTime(actDone); err != nil {
		return nil, err
	}
	if ev.LastLocationUpdate, err = parseSqliteTime(lastLocation); err != nil {
		return nil, err
	}
	if ev.LastGeotabSync, err = parseSqliteTime(lastGeotab); err != nil {
		return nil, err
	}
	if ev.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if ev.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	ev.EstimatedDelayMinutes = intPtr(delayMinutes)
	ev.OnTimePerformance = intPtr(onTimePerf)

	return &ev, nil
}

func scanSqliteStop(s scanner) (*domain.StopProgress, error) {
	var (
		sp               domain.StopProgress
		arrival          sql.NullString
		departure        sql.NullString
		onTime           sql.NullString
		serviceTime      sql.NullInt64
		lat, lon         sql.NullFloat64
		odometer, fuel   sql.NullFloat64
		created, updated string
	)

	err := s.Scan(
		&sp.StopProgressID, &sp.DispatchEventID, &sp.RouteStopID, &sp.Sequence,
		&sp.PlannedETA, &sp.PlannedETD, &arrival, &departure,
		&sp.Status, &onTime, &serviceTime,
		&lat, &lon, &odometer, &fuel,
		&sp.Notes, &sp.ExceptionReason, &sp.SkipReason, &sp.RequiresAttention,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	if sp.ActualArrivalTime, err = parseSqliteTime(arrival); err != nil {
		return nil, err
	}
	if sp.ActualDepartureTime, err = parseSqliteTime(departure); err != nil {
		return nil, err
	}
	if onTime.Valid && onTime.String != "" {
		status := domain.OnTimeStatus(onTime.String)
		sp.OnTimeStatus = &status
	}
	sp.ServiceTime = intPtr(serviceTime)
	sp.Latitude = floatPtr(lat)
	sp.Longitude = floatPtr(lon)
	sp.Odometer = floatPtr(odometer)
	sp.FuelUsed = floatPtr(fuel)
	if sp.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if sp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}

	return &sp, nil
}

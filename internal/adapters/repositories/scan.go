package repositories

import (
	"database/sql"
	"time"

	"dispatch-engine/internal/domain"
)

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*domain.DispatchEvent, error) {
	var (
		ev               domain.DispatchEvent
		actualDeparture  sql.NullTime
		estimatedReturn  sql.NullTime
		actualReturn     sql.NullTime
		estimatedDone    sql.NullTime
		actualDone       sql.NullTime
		delayMinutes     sql.NullInt64
		onTimePerf       sql.NullInt64
		lastLocation     sql.NullTime
		lastGeotab       sql.NullTime
	)

	err := s.Scan(
		&ev.DispatchEventID, &ev.RouteID, &ev.TerminalID, &ev.ExecutionDate,
		&ev.Status, &ev.Priority,
		&ev.AssignedDriverID, &ev.AssignedTruckID, &ev.AssignedSubUnitID,
		&ev.PlannedDepartureTime, &actualDeparture,
		&estimatedReturn, &actualReturn,
		&estimatedDone, &actualDone,
		&delayMinutes, &ev.CancellationReason, &ev.CancellationNotes,
		&ev.DispatchNotes, &ev.OperationalNotes,
		&ev.TotalMiles, &ev.TotalServiceTime, &ev.FuelUsed, &onTimePerf,
		&lastLocation, &lastGeotab,
		&ev.Version, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.ActualDepartureTime = timePtr(actualDeparture)
	ev.EstimatedReturnTime = timePtr(estimatedReturn)
	ev.ActualReturnTime = timePtr(actualReturn)
	ev.EstimatedCompletionTime = timePtr(estimatedDone)
	ev.ActualCompletionTime = timePtr(actualDone)
	ev.EstimatedDelayMinutes = intPtr(delayMinutes)
	ev.OnTimePerformance = intPtr(onTimePerf)
	ev.LastLocationUpdate = timePtr(lastLocation)
	ev.LastGeotabSync = timePtr(lastGeotab)
	ev.ExecutionDate = domain.NormalizeDate(ev.ExecutionDate)

	return &ev, nil
}

func scanStop(s scanner) (*domain.StopProgress, error) {
	var (
		sp          domain.StopProgress
		arrival     sql.NullTime
		departure   sql.NullTime
		onTime      sql.NullString
		serviceTime sql.NullInt64
		lat, lon    sql.NullFloat64
		odometer    sql.NullFloat64
		fuel        sql.NullFloat64
	)

	err := s.Scan(
		&sp.StopProgressID, &sp.DispatchEventID, &sp.RouteStopID, &sp.Sequence,
		&sp.PlannedETA, &sp.PlannedETD, &arrival, &departure,
		&sp.Status, &onTime, &serviceTime,
		&lat, &lon, &odometer, &fuel,
		&sp.Notes, &sp.ExceptionReason, &sp.SkipReason, &sp.RequiresAttention,
		&sp.CreatedAt, &sp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sp.ActualArrivalTime = timePtr(arrival)
	sp.ActualDepartureTime = timePtr(departure)
	if onTime.Valid && onTime.String != "" {
		status := domain.OnTimeStatus(onTime.String)
		sp.OnTimeStatus = &status
	}
	sp.ServiceTime = intPtr(serviceTime)
	sp.Latitude = floatPtr(lat)
	sp.Longitude = floatPtr(lon)
	sp.Odometer = floatPtr(odometer)
	sp.FuelUsed = floatPtr(fuel)

	return &sp, nil
}

func eventArgs(ev *domain.DispatchEvent) []any {
	return []any{
		ev.DispatchEventID, ev.RouteID, ev.TerminalID, ev.ExecutionDate,
		ev.Status, ev.Priority,
		ev.AssignedDriverID, ev.AssignedTruckID, ev.AssignedSubUnitID,
		ev.PlannedDepartureTime, ev.ActualDepartureTime,
		ev.EstimatedReturnTime, ev.ActualReturnTime,
		ev.EstimatedCompletionTime, ev.ActualCompletionTime,
		ev.EstimatedDelayMinutes, ev.CancellationReason, ev.CancellationNotes,
		ev.DispatchNotes, ev.OperationalNotes,
		ev.TotalMiles, ev.TotalServiceTime, ev.FuelUsed, ev.OnTimePerformance,
		ev.LastLocationUpdate, ev.LastGeotabSync,
		ev.Version, ev.CreatedAt, ev.UpdatedAt,
	}
}

func stopArgs(sp *domain.StopProgress) []any {
	return []any{
		sp.StopProgressID, sp.DispatchEventID, sp.RouteStopID, sp.Sequence,
		sp.PlannedETA, sp.PlannedETD, sp.ActualArrivalTime, sp.ActualDepartureTime,
		sp.Status, onTimeText(sp.OnTimeStatus), sp.ServiceTime,
		sp.Latitude, sp.Longitude, sp.Odometer, sp.FuelUsed,
		sp.Notes, sp.ExceptionReason, sp.SkipReason, sp.RequiresAttention,
		sp.CreatedAt, sp.UpdatedAt,
	}
}

func onTimeText(s *domain.OnTimeStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

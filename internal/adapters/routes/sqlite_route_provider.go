package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// SQLite-backed implementation of the RouteProvider port for local runs.
type SqliteRouteProvider struct{ DB *sql.DB }

func NewSqliteRouteProvider(db *sql.DB) *SqliteRouteProvider {
	return &SqliteRouteProvider{DB: db}
}

func (p *SqliteRouteProvider) GetRoute(ctx context.Context, routeID uuid.UUID) (*domain.Route, error) {
	if p.DB == nil {
		return nil, errors.New("sqlite route provider: db is nil")
	}

	q := `
	SELECT id, trk_id, terminal_id, default_driver_id, default_truck_id, departure_time
	FROM routes
	WHERE id = ?;
	`
	var route domain.Route
	err := p.DB.QueryRowContext(ctx, q, routeID).Scan(
		&route.RouteID, &route.TrkID, &route.TerminalID,
		&route.DefaultDriverID, &route.DefaultTruckID, &route.DepartureTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %s: %w", routeID, domain.ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}

	return &route, nil
}

func (p *SqliteRouteProvider) ListRouteStops(ctx context.Context, routeID uuid.UUID) ([]*domain.RouteStopTemplate, error) {
	q := `
	SELECT id, route_id, sequence, planned_eta, planned_etd, destination_name, latitude, longitude
	FROM route_stops
	WHERE route_id = ?
	ORDER BY sequence;
	`
	rows, err := p.DB.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, fmt.Errorf("list route stops: query: %w", err)
	}
	defer rows.Close()

	stops := make([]*domain.RouteStopTemplate, 0, 16)
	for rows.Next() {
		var tpl domain.RouteStopTemplate
		if err := rows.Scan(
			&tpl.RouteStopID, &tpl.RouteID, &tpl.Sequence,
			&tpl.PlannedETA, &tpl.PlannedETD, &tpl.DestinationName,
			&tpl.Latitude, &tpl.Longitude,
		); err != nil {
			return nil, fmt.Errorf("list route stops: scan row: %w", err)
		}
		stops = append(stops, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list route stops: row iteration: %w", err)
	}

	return stops, nil
}

package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/platform/obs"
)

// Postgres-backed implementation of the RouteProvider port. Route templates
// belong to the external route CRUD; this adapter only reads its tables.
type SQLRouteProvider struct{ DB *sql.DB }

func NewSQLRouteProvider(db *sql.DB) *SQLRouteProvider {
	return &SQLRouteProvider{DB: db}
}

func (p *SQLRouteProvider) GetRoute(ctx context.Context, routeID uuid.UUID) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.provider.Get")(&err)

	if p.DB == nil {
		return nil, errors.New("route provider: db is nil")
	}

	q := `
	SELECT id, trk_id, terminal_id, default_driver_id, default_truck_id, departure_time
	FROM routes
	WHERE id = $1;
	`
	var route domain.Route
	err = p.DB.QueryRowContext(ctx, q, routeID).Scan(
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

func (p *SQLRouteProvider) ListRouteStops(ctx context.Context, routeID uuid.UUID) (_ []*domain.RouteStopTemplate, err error) {
	defer obs.Time(ctx, "routes.provider.ListStops")(&err)

	q := `
	SELECT id, route_id, sequence, planned_eta, planned_etd, destination_name, latitude, longitude
	FROM route_stops
	WHERE route_id = $1
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

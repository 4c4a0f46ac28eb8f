package ports

import (
	"context"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// Port: read-only access to route templates owned by the external route CRUD.
type RouteProvider interface {
	// Returns domain.ErrRouteNotFound when the route does not exist.
	GetRoute(ctx context.Context, routeID uuid.UUID) (*domain.Route, error)

	// Stop templates in sequence order.
	ListRouteStops(ctx context.Context, routeID uuid.UUID) ([]*domain.RouteStopTemplate, error)
}

// Port: a cache for route templates and their stops. Misses return ok=false;
// cache failures are soft (callers fall through to the provider).
type RouteCache interface {
	Get(ctx context.Context, routeID uuid.UUID) (*domain.Route, []*domain.RouteStopTemplate, bool, error)
	Put(ctx context.Context, route *domain.Route, stops []*domain.RouteStopTemplate) error
}

package routes

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// MockRouteProvider serves fixed route templates from memory (tests).
type MockRouteProvider struct {
	Routes map[uuid.UUID]*domain.Route
	Stops  map[uuid.UUID][]*domain.RouteStopTemplate
}

func NewMockRouteProvider() *MockRouteProvider {
	return &MockRouteProvider{
		Routes: make(map[uuid.UUID]*domain.Route),
		Stops:  make(map[uuid.UUID][]*domain.RouteStopTemplate),
	}
}

// Add registers a route and its stop templates.
func (p *MockRouteProvider) Add(route *domain.Route, stops []*domain.RouteStopTemplate) {
	p.Routes[route.RouteID] = route
	p.Stops[route.RouteID] = stops
}

func (p *MockRouteProvider) GetRoute(_ context.Context, routeID uuid.UUID) (*domain.Route, error) {
	route, ok := p.Routes[routeID]
	if !ok {
		return nil, fmt.Errorf("mock route provider: get route %s: %w", routeID, domain.ErrRouteNotFound)
	}
	return route, nil
}

func (p *MockRouteProvider) ListRouteStops(_ context.Context, routeID uuid.UUID) ([]*domain.RouteStopTemplate, error) {
	return p.Stops[routeID], nil
}

package routes

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

// CachingRouteProvider fronts a RouteProvider with a RouteCache. Route
// templates change rarely, so cache failures are soft: a broken cache degrades
// to the underlying provider, never to an error.
type CachingRouteProvider struct {
	Provider ports.RouteProvider
	Cache    ports.RouteCache
}

func NewCachingRouteProvider(provider ports.RouteProvider, cache ports.RouteCache) *CachingRouteProvider {
	return &CachingRouteProvider{Provider: provider, Cache: cache}
}

func (p *CachingRouteProvider) GetRoute(ctx context.Context, routeID uuid.UUID) (*domain.Route, error) {
	route, _, ok, err := p.Cache.Get(ctx, routeID)
	if err != nil {
		log.Printf("route cache get failed: route_id=%s err=%v", routeID, err)
	}
	if ok {
		return route, nil
	}

	route, stops, err := p.fetch(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if err := p.Cache.Put(ctx, route, stops); err != nil {
		log.Printf("route cache put failed: route_id=%s err=%v", routeID, err)
	}
	return route, nil
}

func (p *CachingRouteProvider) ListRouteStops(ctx context.Context, routeID uuid.UUID) ([]*domain.RouteStopTemplate, error) {
	_, stops, ok, err := p.Cache.Get(ctx, routeID)
	if err != nil {
		log.Printf("route cache get failed: route_id=%s err=%v", routeID, err)
	}
	if ok {
		return stops, nil
	}

	route, stops, err := p.fetch(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if err := p.Cache.Put(ctx, route, stops); err != nil {
		log.Printf("route cache put failed: route_id=%s err=%v", routeID, err)
	}
	return stops, nil
}

// fetch loads the route and its stops together so the cache always holds a
// consistent pair.
func (p *CachingRouteProvider) fetch(ctx context.Context, routeID uuid.UUID) (*domain.Route, []*domain.RouteStopTemplate, error) {
	route, err := p.Provider.GetRoute(ctx, routeID)
	if err != nil {
		return nil, nil, err
	}

	stops, err := p.Provider.ListRouteStops(ctx, routeID)
	if err != nil {
		return nil, nil, fmt.Errorf("caching route provider: list stops: %w", err)
	}

	return route, stops, nil
}

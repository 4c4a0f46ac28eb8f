package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/platform/obs"
)

// Redis-backed cache for route templates and their stops, stored together as
// one JSON value so readers always see a consistent pair.
type RedisRouteCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisRouteCache{Client: client, TTL: ttl}
}

type cachedRoute struct {
	Route *domain.Route               `json:"route"`
	Stops []*domain.RouteStopTemplate `json:"stops"`
}

func routeKey(routeID uuid.UUID) string {
	return "route:" + routeID.String()
}

// Fetch a cached route. ok=false on a miss; decode problems are errors so the
// caller can log and fall through to the provider.
func (c *RedisRouteCache) Get(ctx context.Context, routeID uuid.UUID) (_ *domain.Route, _ []*domain.RouteStopTemplate, _ bool, err error) {
	defer obs.Time(ctx, "routes.cache.Get")(&err)

	if c.Client == nil {
		return nil, nil, false, errors.New("route cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, routeKey(routeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("get route cache: %w", err)
	}

	var entry cachedRoute
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, nil, false, fmt.Errorf("get route cache: decode: %w", err)
	}
	if entry.Route == nil {
		return nil, nil, false, errors.New("get route cache: entry has no route")
	}

	return entry.Route, entry.Stops, true, nil
}

// Store a route and its stops under a single TTL-bounded key.
func (c *RedisRouteCache) Put(ctx context.Context, route *domain.Route, stops []*domain.RouteStopTemplate) error {
	if c.Client == nil {
		return errors.New("route cache: client is nil")
	}
	if route == nil {
		return errors.New("put route cache: route is nil")
	}

	raw, err := json.Marshal(cachedRoute{Route: route, Stops: stops})
	if err != nil {
		return fmt.Errorf("put route cache: encode: %w", err)
	}

	if err := c.Client.Set(ctx, routeKey(route.RouteID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("put route cache: %w", err)
	}

	return nil
}

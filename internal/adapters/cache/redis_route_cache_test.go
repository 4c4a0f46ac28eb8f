package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dispatch-engine/internal/domain"
)

func newTestCache(t *testing.T) *RedisRouteCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRouteCache(client, time.Minute)
}

func TestRedisRouteCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	route := &domain.Route{
		RouteID:       uuid.New(),
		TrkID:         "TRK-101",
		TerminalID:    "PHX",
		DepartureTime: "07:30",
	}
	stops := []*domain.RouteStopTemplate{
		{RouteStopID: uuid.New(), RouteID: route.RouteID, Sequence: 0, PlannedETA: "08:00", DestinationName: "Mesa"},
		{RouteStopID: uuid.New(), RouteID: route.RouteID, Sequence: 1, PlannedETA: "09:15", DestinationName: "Tempe"},
	}

	if err := c.Put(ctx, route, stops); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, gotStops, ok, err := c.Get(ctx, route.RouteID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.TrkID != "TRK-101" || got.DepartureTime != "07:30" {
		t.Fatalf("cached route = %+v", got)
	}
	if len(gotStops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(gotStops))
	}
	if gotStops[1].DestinationName != "Tempe" {
		t.Fatalf("second stop = %+v", gotStops[1])
	}
}

func TestRedisRouteCacheMiss(t *testing.T) {
	c := newTestCache(t)

	_, _, ok, err := c.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

// In-memory implementation of the DispatchRepository port. A single mutex
// makes creation atomic with the duplicate check, matching the guarantee the
// SQL stores get from their unique index, so concurrency tests exercise the
// same semantics.
type MemoryDispatchRepository struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.DispatchEvent
	stops  map[uuid.UUID]*domain.StopProgress
	byKey  map[string]uuid.UUID // routeID|date -> event id
}

func NewMemoryDispatchRepository() *MemoryDispatchRepository {
	return &MemoryDispatchRepository{
		events: make(map[uuid.UUID]*domain.DispatchEvent),
		stops:  make(map[uuid.UUID]*domain.StopProgress),
		byKey:  make(map[string]uuid.UUID),
	}
}

func naturalKey(routeID uuid.UUID, date time.Time) string {
	return routeID.String() + "|" + domain.NormalizeDate(date).Format("2006-01-02")
}

func (r *MemoryDispatchRepository) CreateDispatchEvent(_ context.Context, ev *domain.DispatchEvent, stops []*domain.StopProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := naturalKey(ev.RouteID, ev.ExecutionDate)
	if _, ok := r.byKey[key]; ok {
		return fmt.Errorf("create dispatch event: route %s date %s: %w",
			ev.RouteID, ev.ExecutionDate.Format("2006-01-02"), domain.ErrDuplicateDispatch)
	}

	r.events[ev.DispatchEventID] = copyEvent(ev)
	r.byKey[key] = ev.DispatchEventID
	for _, sp := range stops {
		r.stops[sp.StopProgressID] = copyStop(sp)
	}
	return nil
}

func (r *MemoryDispatchRepository) GetDispatchEvent(_ context.Context, id uuid.UUID) (*domain.DispatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, fmt.Errorf("get dispatch event %s: %w", id, domain.ErrDispatchNotFound)
	}
	return copyEvent(ev), nil
}

func (r *MemoryDispatchRepository) FindByRouteAndDate(_ context.Context, routeID uuid.UUID, date time.Time) (*domain.DispatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[naturalKey(routeID, date)]
	if !ok {
		return nil, nil
	}
	return copyEvent(r.events[id]), nil
}

func (r *MemoryDispatchRepository) ListForTerminal(_ context.Context, terminalID string, filter ports.DispatchFilter) ([]*domain.DispatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.DispatchEvent, 0, len(r.events))
	for _, ev := range r.events {
		if ev.TerminalID != terminalID {
			continue
		}
		if filter.Date != nil && !ev.ExecutionDate.Equal(domain.NormalizeDate(*filter.Date)) {
			continue
		}
		if filter.Status != "" && ev.Status != filter.Status {
			continue
		}
		if filter.DriverID != "" && ev.AssignedDriverID != filter.DriverID {
			continue
		}
		out = append(out, copyEvent(ev))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExecutionDate.Equal(out[j].ExecutionDate) {
			return out[i].ExecutionDate.Before(out[j].ExecutionDate)
		}
		return out[i].PlannedDepartureTime < out[j].PlannedDepartureTime
	})
	return out, nil
}

func (r *MemoryDispatchRepository) ListStops(_ context.Context, eventID uuid.UUID) ([]*domain.StopProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.StopProgress, 0, 8)
	for _, sp := range r.stops {
		if sp.DispatchEventID == eventID {
			out = append(out, copyStop(sp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *MemoryDispatchRepository) GetStop(_ context.Context, stopID uuid.UUID) (*domain.StopProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sp, ok := r.stops[stopID]
	if !ok {
		return nil, fmt.Errorf("get stop %s: %w", stopID, domain.ErrStopNotFound)
	}
	return copyStop(sp), nil
}

func (r *MemoryDispatchRepository) UpdateDispatchEvent(_ context.Context, ev *domain.DispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[ev.DispatchEventID]
	if !ok {
		return fmt.Errorf("update dispatch event %s: %w", ev.DispatchEventID, domain.ErrDispatchNotFound)
	}
	if stored.Version != ev.Version {
		return fmt.Errorf("update dispatch event %s at version %d: %w",
			ev.DispatchEventID, ev.Version, domain.ErrVersionConflict)
	}

	ev.Version++
	r.events[ev.DispatchEventID] = copyEvent(ev)
	return nil
}

func (r *MemoryDispatchRepository) UpdateStop(_ context.Context, sp *domain.StopProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stops[sp.StopProgressID]; !ok {
		return fmt.Errorf("update stop %s: %w", sp.StopProgressID, domain.ErrStopNotFound)
	}
	r.stops[sp.StopProgressID] = copyStop(sp)
	return nil
}

func (r *MemoryDispatchRepository) SkipPendingStops(_ context.Context, eventID uuid.UUID, reason string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sp := range r.stops {
		if sp.DispatchEventID == eventID && sp.Status == domain.StopPending {
			sp.Status = domain.StopSkipped
			sp.SkipReason = reason
			sp.UpdatedAt = now
		}
	}
	return nil
}

func (r *MemoryDispatchRepository) DeleteDispatchEvent(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return fmt.Errorf("delete dispatch event %s: %w", id, domain.ErrDispatchNotFound)
	}

	delete(r.byKey, naturalKey(ev.RouteID, ev.ExecutionDate))
	delete(r.events, id)
	for stopID, sp := range r.stops {
		if sp.DispatchEventID == id {
			delete(r.stops, stopID)
		}
	}
	return nil
}

// StopCount reports how many stop records exist for an event (test helper).
func (r *MemoryDispatchRepository) StopCount(eventID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, sp := range r.stops {
		if sp.DispatchEventID == eventID {
			n++
		}
	}
	return n
}

func copyEvent(ev *domain.DispatchEvent) *domain.DispatchEvent {
	c := *ev
	c.ActualDepartureTime = copyTime(ev.ActualDepartureTime)
	c.EstimatedReturnTime = copyTime(ev.EstimatedReturnTime)
	c.ActualReturnTime = copyTime(ev.ActualReturnTime)
	c.EstimatedCompletionTime = copyTime(ev.EstimatedCompletionTime)
	c.ActualCompletionTime = copyTime(ev.ActualCompletionTime)
	c.EstimatedDelayMinutes = copyInt(ev.EstimatedDelayMinutes)
	c.OnTimePerformance = copyInt(ev.OnTimePerformance)
	c.LastLocationUpdate = copyTime(ev.LastLocationUpdate)
	c.LastGeotabSync = copyTime(ev.LastGeotabSync)
	return &c
}

func copyStop(sp *domain.StopProgress) *domain.StopProgress {
	c := *sp
	c.ActualArrivalTime = copyTime(sp.ActualArrivalTime)
	c.ActualDepartureTime = copyTime(sp.ActualDepartureTime)
	c.ServiceTime = copyInt(sp.ServiceTime)
	c.Latitude = copyFloat(sp.Latitude)
	c.Longitude = copyFloat(sp.Longitude)
	c.Odometer = copyFloat(sp.Odometer)
	c.FuelUsed = copyFloat(sp.FuelUsed)
	if sp.OnTimeStatus != nil {
		v := *sp.OnTimeStatus
		c.OnTimeStatus = &v
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

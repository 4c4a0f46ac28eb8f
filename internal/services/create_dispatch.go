package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

type CreateDispatchRequest struct {
	RouteID       uuid.UUID
	TerminalID    string
	ExecutionDate time.Time
	Priority      domain.Priority
	Actor         ports.Actor
}

// CreateDispatchEvent dispatches a route for one calendar day: it validates
// the route, guards the (route, date) natural key, resolves any active
// substitution into the assignment fields, and bulk-creates one pending stop
// record per route-stop template in the same transaction as the event insert.
func (s *DispatchService) CreateDispatchEvent(ctx context.Context, req CreateDispatchRequest) (*domain.DispatchEvent, []*domain.StopProgress, error) {
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !domain.ValidPriority(priority) {
		return nil, nil, fmt.Errorf("create dispatch event: priority %q: %w", req.Priority, domain.ErrValidation)
	}

	route, err := s.routes.GetRoute(ctx, req.RouteID)
	if err != nil {
		return nil, nil, fmt.Errorf("create dispatch event: %w", err)
	}

	date := domain.NormalizeDate(req.ExecutionDate)

	// Fast-path duplicate check for a friendly conflict error. The unique
	// index enforced by the store still decides the race between two
	// concurrent creations.
	existing, err := s.store.FindByRouteAndDate(ctx, req.RouteID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("create dispatch event: duplicate pre-check: %w", err)
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("create dispatch event: route %s on %s: %w",
			route.TrkID, date.Format("2006-01-02"), domain.ErrDuplicateDispatch)
	}

	terminalID := req.TerminalID
	if terminalID == "" {
		terminalID = route.TerminalID
	}

	now := s.now().UTC()
	ev := &domain.DispatchEvent{
		DispatchEventID:      uuid.New(),
		RouteID:              route.RouteID,
		TerminalID:           terminalID,
		ExecutionDate:        date,
		Status:               domain.StatusPlanned,
		Priority:             priority,
		PlannedDepartureTime: route.DepartureTime,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	sub, err := s.substitutions.FindActiveSubstitution(ctx, route.RouteID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("create dispatch event: find substitution: %w", err)
	}
	if sub != nil {
		ev.AssignedDriverID = sub.DriverID
		ev.AssignedTruckID = sub.TruckID
		ev.AssignedSubUnitID = sub.SubUnitID
		if sub.TruckID == "" {
			ev.AssignedTruckID = route.DefaultTruckID
		}
		if ev.AssignedDriverID != "" {
			ev.Status = domain.StatusAssigned
		}
	}

	templates, err := s.routes.ListRouteStops(ctx, route.RouteID)
	if err != nil {
		return nil, nil, fmt.Errorf("create dispatch event: list route stops: %w", err)
	}

	stops := domain.StopsFromTemplates(ev.DispatchEventID, templates, now)

	if err := s.store.CreateDispatchEvent(ctx, ev, stops); err != nil {
		return nil, nil, fmt.Errorf("create dispatch event: %w", err)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "dispatch.created",
		ActorID:  req.Actor.ID,
		EntityID: ev.DispatchEventID.String(),
		Metadata: map[string]any{
			"route_id":       route.RouteID.String(),
			"trk_id":         route.TrkID,
			"execution_date": date.Format("2006-01-02"),
			"status":         string(ev.Status),
		},
	})

	return ev, stops, nil
}

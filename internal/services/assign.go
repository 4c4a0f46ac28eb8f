package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

// AssignDriver validates availability and applies a driver assignment.
// A planned event auto-advances to assigned; no write happens when the driver
// is unavailable.
func (s *DispatchService) AssignDriver(ctx context.Context, eventID uuid.UUID, driverID string, actor ports.Actor) (*domain.DispatchEvent, error) {
	if driverID == "" {
		return nil, fmt.Errorf("assign driver: empty driver id: %w", domain.ErrValidation)
	}

	ev, err := s.store.GetDispatchEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}

	available, err := s.availability.IsDriverAvailable(ctx, driverID, ev.ExecutionDate)
	if err != nil {
		return nil, fmt.Errorf("assign driver: availability check: %w", err)
	}
	if !available {
		return nil, fmt.Errorf("assign driver: driver %s on %s: %w",
			driverID, ev.ExecutionDate.Format("2006-01-02"), domain.ErrDriverUnavailable)
	}

	ev.AssignedDriverID = driverID
	if ev.Status == domain.StatusPlanned {
		ev.Status = domain.StatusAssigned
	}
	ev.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateDispatchEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "dispatch.driver_assigned",
		ActorID:  actor.ID,
		EntityID: ev.DispatchEventID.String(),
		Metadata: map[string]any{"driver_id": driverID},
	})

	return ev, nil
}

// AssignTruck applies a truck (and optional sub-unit) assignment. Equipment
// conflicts are out of scope, so there is no availability gate here.
func (s *DispatchService) AssignTruck(ctx context.Context, eventID uuid.UUID, truckID, subUnitID string, actor ports.Actor) (*domain.DispatchEvent, error) {
	if truckID == "" && subUnitID == "" {
		return nil, fmt.Errorf("assign truck: empty truck and sub-unit id: %w", domain.ErrValidation)
	}

	ev, err := s.store.GetDispatchEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("assign truck: %w", err)
	}

	if truckID != "" {
		ev.AssignedTruckID = truckID
	}
	if subUnitID != "" {
		ev.AssignedSubUnitID = subUnitID
	}
	ev.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateDispatchEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("assign truck: %w", err)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "dispatch.truck_assigned",
		ActorID:  actor.ID,
		EntityID: ev.DispatchEventID.String(),
		Metadata: map[string]any{"truck_id": truckID, "sub_unit_id": subUnitID},
	})

	return ev, nil
}

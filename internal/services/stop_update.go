package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

// StopPatch carries the client-settable stop fields. Nil means "leave as is".
// onTimeStatus and serviceTime are derived here and are not patchable.
type StopPatch struct {
	Status              *domain.StopStatus
	ActualArrivalTime   *time.Time
	ActualDepartureTime *time.Time
	Notes               *string
	ExceptionReason     *string
	SkipReason          *string
	Latitude            *float64
	Longitude           *float64
	Odometer            *float64
	FuelUsed            *float64
	RequiresAttention   *bool
}

// UpdateStop applies a per-stop execution update and re-evaluates the parent
// event: on-time classification when an arrival lands, service time when both
// actuals are present, then the status cascade and the event-level on-time
// aggregate. The returned event is non-nil only when the cascade or the
// aggregate changed it.
func (s *DispatchService) UpdateStop(ctx context.Context, eventID, stopID uuid.UUID, patch StopPatch, actor ports.Actor) (*domain.StopProgress, *domain.DispatchEvent, error) {
	ev, err := s.store.GetDispatchEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("update stop: %w", err)
	}

	sp, err := s.store.GetStop(ctx, stopID)
	if err != nil {
		return nil, nil, fmt.Errorf("update stop: %w", err)
	}

	// A stop id from another event must look absent, not forbidden, so ids
	// cannot be probed across events.
	if sp.DispatchEventID != ev.DispatchEventID {
		return nil, nil, fmt.Errorf("update stop: stop %s not in event %s: %w", stopID, eventID, domain.ErrStopNotFound)
	}

	if patch.Status != nil && !domain.ValidStopStatus(*patch.Status) {
		return nil, nil, fmt.Errorf("update stop: unknown stop status %q: %w", *patch.Status, domain.ErrValidation)
	}

	arrivalWasSet := sp.ActualArrivalTime != nil

	applyStopPatch(sp, patch)

	// Classify the arrival against the planned ETA the first time an actual
	// arrival lands, and re-classify if the arrival time is corrected.
	if sp.ActualArrivalTime != nil && sp.PlannedETA != "" &&
		(!arrivalWasSet || patch.ActualArrivalTime != nil) {
		status, err := domain.ClassifyArrival(sp.PlannedETA, *sp.ActualArrivalTime, s.tolerance)
		if err != nil {
			return nil, nil, fmt.Errorf("update stop: %w: %w", err, domain.ErrValidation)
		}
		sp.OnTimeStatus = &status
	}

	if sp.ActualArrivalTime != nil && sp.ActualDepartureTime != nil {
		minutes := int(sp.ActualDepartureTime.Sub(*sp.ActualArrivalTime).Minutes())
		sp.ServiceTime = &minutes
	}

	sp.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateStop(ctx, sp); err != nil {
		return nil, nil, fmt.Errorf("update stop: %w", err)
	}

	updatedEv, err := s.recomputeEvent(ctx, ev)
	if err != nil {
		return nil, nil, fmt.Errorf("update stop: %w", err)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "dispatch.stop_updated",
		ActorID:  actor.ID,
		EntityID: ev.DispatchEventID.String(),
		Metadata: map[string]any{
			"stop_id":  sp.StopProgressID.String(),
			"sequence": sp.Sequence,
			"status":   string(sp.Status),
		},
	})

	return sp, updatedEv, nil
}

func applyStopPatch(sp *domain.StopProgress, patch StopPatch) {
	if patch.Status != nil {
		sp.Status = *patch.Status
	}
	if patch.ActualArrivalTime != nil {
		t := patch.ActualArrivalTime.UTC()
		sp.ActualArrivalTime = &t
	}
	if patch.ActualDepartureTime != nil {
		t := patch.ActualDepartureTime.UTC()
		sp.ActualDepartureTime = &t
	}
	if patch.Notes != nil {
		sp.Notes = *patch.Notes
	}
	if patch.ExceptionReason != nil {
		sp.ExceptionReason = *patch.ExceptionReason
	}
	if patch.SkipReason != nil {
		sp.SkipReason = *patch.SkipReason
	}
	if patch.Latitude != nil {
		sp.Latitude = patch.Latitude
	}
	if patch.Longitude != nil {
		sp.Longitude = patch.Longitude
	}
	if patch.Odometer != nil {
		sp.Odometer = patch.Odometer
	}
	if patch.FuelUsed != nil {
		sp.FuelUsed = patch.FuelUsed
	}
	if patch.RequiresAttention != nil {
		sp.RequiresAttention = *patch.RequiresAttention
	}
}

// recomputeEvent re-reads the full stop set, derives the cascaded event status
// and the on-time aggregate, and writes the event under optimistic
// concurrency. A lost race is retried once against fresh state; both attempts
// read all stops before deciding, so the second attempt folds in whatever the
// concurrent writer changed.
func (s *DispatchService) recomputeEvent(ctx context.Context, ev *domain.DispatchEvent) (*domain.DispatchEvent, error) {
	for attempt := 0; ; attempt++ {
		stops, err := s.store.ListStops(ctx, ev.DispatchEventID)
		if err != nil {
			return nil, fmt.Errorf("recompute event: list stops: %w", err)
		}

		changed := false
		now := s.now().UTC()

		derived, statusChanged := domain.DeriveEventStatus(ev.Status, stops)
		if statusChanged {
			ev.Status = derived
			changed = true
			switch derived {
			case domain.StatusInTransit:
				if ev.ActualDepartureTime == nil {
					ev.ActualDepartureTime = &now
				}
			case domain.StatusCompleted:
				if ev.ActualCompletionTime == nil {
					ev.ActualCompletionTime = &now
				}
			}
		}

		perf := domain.OnTimePerformance(stops)
		if !equalIntPtr(perf, ev.OnTimePerformance) {
			ev.OnTimePerformance = perf
			changed = true
		}

		if total := totalServiceTime(stops); total != ev.TotalServiceTime {
			ev.TotalServiceTime = total
			changed = true
		}

		if !changed {
			return nil, nil
		}

		ev.UpdatedAt = now
		err = s.store.UpdateDispatchEvent(ctx, ev)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt > 0 {
			return nil, fmt.Errorf("recompute event: %w", err)
		}

		ev, err = s.store.GetDispatchEvent(ctx, ev.DispatchEventID)
		if err != nil {
			return nil, fmt.Errorf("recompute event: reload after conflict: %w", err)
		}
	}
}

func totalServiceTime(stops []*domain.StopProgress) int {
	total := 0
	for _, sp := range stops {
		if sp.ServiceTime != nil {
			total += *sp.ServiceTime
		}
	}
	return total
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

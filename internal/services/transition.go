package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

type TransitionOptions struct {
	CancellationReason    string
	CancellationNotes     string
	EstimatedDelayMinutes *int
	Actor                 ports.Actor
}

// TransitionStatus applies a client-requested status change, validated against
// the explicit transition table. Nothing is written on rejection.
func (s *DispatchService) TransitionStatus(ctx context.Context, eventID uuid.UUID, target domain.EventStatus, opts TransitionOptions) (*domain.DispatchEvent, error) {
	if !domain.ValidEventStatus(target) {
		return nil, fmt.Errorf("transition status: unknown status %q: %w", target, domain.ErrValidation)
	}

	ev, err := s.store.GetDispatchEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("transition status: %w", err)
	}

	if !domain.CanTransition(ev.Status, target) {
		return nil, fmt.Errorf("transition status: %s -> %s: %w", ev.Status, target, domain.ErrInvalidTransition)
	}

	if target == domain.StatusCancelled && opts.CancellationReason == "" {
		return nil, fmt.Errorf("transition status: cancellation reason is required: %w", domain.ErrValidation)
	}

	now := s.now().UTC()
	from := ev.Status
	ev.Status = target
	ev.UpdatedAt = now

	switch target {
	case domain.StatusCancelled:
		ev.CancellationReason = opts.CancellationReason
		ev.CancellationNotes = opts.CancellationNotes
	case domain.StatusDelayed:
		if opts.EstimatedDelayMinutes != nil {
			ev.EstimatedDelayMinutes = opts.EstimatedDelayMinutes
		}
	case domain.StatusInTransit:
		if ev.ActualDepartureTime == nil {
			ev.ActualDepartureTime = &now
		}
	case domain.StatusCompleted:
		if ev.ActualCompletionTime == nil {
			ev.ActualCompletionTime = &now
		}
	}

	if err := s.store.UpdateDispatchEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("transition status: %w", err)
	}

	// Cancelling closes out open stops so dashboards and on-time figures do
	// not keep counting them as outstanding work.
	if target == domain.StatusCancelled {
		if err := s.store.SkipPendingStops(ctx, ev.DispatchEventID, domain.SkipReasonCancelled, now); err != nil {
			return nil, fmt.Errorf("transition status: skip pending stops: %w", err)
		}
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "dispatch.status_changed",
		ActorID:  opts.Actor.ID,
		EntityID: ev.DispatchEventID.String(),
		Metadata: map[string]any{"from": string(from), "to": string(target)},
	})

	return ev, nil
}

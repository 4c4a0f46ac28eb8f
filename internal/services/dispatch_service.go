package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

// DispatchService orchestrates the dispatch event lifecycle. All business
// rules are validated before any write; side-effect emission (audit) happens
// after the write and never fails the primary operation.
type DispatchService struct {
	store         ports.DispatchRepository
	routes        ports.RouteProvider
	availability  ports.AvailabilityChecker
	substitutions ports.SubstitutionFinder
	audit         ports.AuditRecorder
	authorizer    ports.RoleAuthorizer

	tolerance time.Duration
	now       func() time.Time
}

type DispatchServiceOption func(*DispatchService)

// WithOnTimeTolerance overrides the on-time classification window.
func WithOnTimeTolerance(d time.Duration) DispatchServiceOption {
	return func(s *DispatchService) { s.tolerance = d }
}

// WithClock pins the service clock (tests).
func WithClock(now func() time.Time) DispatchServiceOption {
	return func(s *DispatchService) { s.now = now }
}

func NewDispatchService(
	store ports.DispatchRepository,
	routes ports.RouteProvider,
	availability ports.AvailabilityChecker,
	substitutions ports.SubstitutionFinder,
	audit ports.AuditRecorder,
	authorizer ports.RoleAuthorizer,
	opts ...DispatchServiceOption,
) *DispatchService {
	s := &DispatchService{
		store:         store,
		routes:        routes,
		availability:  availability,
		substitutions: substitutions,
		audit:         audit,
		authorizer:    authorizer,
		tolerance:     domain.DefaultOnTimeTolerance,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DispatchService) GetDispatchEvent(ctx context.Context, id uuid.UUID) (*domain.DispatchEvent, error) {
	ev, err := s.store.GetDispatchEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get dispatch event: %w", err)
	}
	return ev, nil
}

// GetDispatchEventWithStops returns the event together with its stop records
// in sequence order.
func (s *DispatchService) GetDispatchEventWithStops(ctx context.Context, id uuid.UUID) (*domain.DispatchEvent, []*domain.StopProgress, error) {
	ev, err := s.store.GetDispatchEvent(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get dispatch event with stops: %w", err)
	}

	stops, err := s.store.ListStops(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get dispatch event with stops: list stops: %w", err)
	}

	return ev, stops, nil
}

func (s *DispatchService) ListDispatchEventsForTerminal(ctx context.Context, terminalID string, filter ports.DispatchFilter) ([]*domain.DispatchEvent, error) {
	if filter.Status != "" && !domain.ValidEventStatus(filter.Status) {
		return nil, fmt.Errorf("list dispatch events: status %q: %w", filter.Status, domain.ErrValidation)
	}

	events, err := s.store.ListForTerminal(ctx, terminalID, filter)
	if err != nil {
		return nil, fmt.Errorf("list dispatch events for terminal %q: %w", terminalID, err)
	}
	return events, nil
}

// DeleteDispatchEvent removes an event and, by cascade, all of its stop
// records. The capability hook gates the operation; everything else about
// authorization lives outside this engine.
func (s *DispatchService) DeleteDispatchEvent(ctx context.Context, id uuid.UUID, actor ports.Actor) error {
	if !s.authorizer.Can(actor, "dispatch.delete") {
		return fmt.Errorf("delete dispatch event: role %q: %w", actor.Role, domain.ErrForbidden)
	}

	if _, err := s.store.GetDispatchEvent(ctx, id); err != nil {
		return fmt.Errorf("delete dispatch event: %w", err)
	}

	if err := s.store.DeleteDispatchEvent(ctx, id); err != nil {
		return fmt.Errorf("delete dispatch event: %w", err)
	}

	s.audit.Record(ctx, ports.AuditEntry{
		Action:   "dispatch.deleted",
		ActorID:  actor.ID,
		EntityID: id.String(),
	})

	return nil
}

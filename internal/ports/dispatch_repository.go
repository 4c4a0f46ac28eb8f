package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// Optional filters for terminal-scoped event listings.
type DispatchFilter struct {
	Date     *time.Time
	Status   domain.EventStatus
	DriverID string
}

// Port: the persistence boundary for dispatch events and their stop records.
type DispatchRepository interface {
	// Atomically insert an event together with its stop records. The storage
	// layer's unique constraint on (routeID, executionDate) is the
	// authoritative duplicate guard; a violation surfaces as
	// domain.ErrDuplicateDispatch.
	CreateDispatchEvent(ctx context.Context, ev *domain.DispatchEvent, stops []*domain.StopProgress) error

	GetDispatchEvent(ctx context.Context, id uuid.UUID) (*domain.DispatchEvent, error)

	// Fast-path duplicate pre-check. Returns (nil, nil) when no event exists
	// for the pair.
	FindByRouteAndDate(ctx context.Context, routeID uuid.UUID, date time.Time) (*domain.DispatchEvent, error)

	ListForTerminal(ctx context.Context, terminalID string, filter DispatchFilter) ([]*domain.DispatchEvent, error)

	// Stops are returned in sequence order.
	ListStops(ctx context.Context, eventID uuid.UUID) ([]*domain.StopProgress, error)
	GetStop(ctx context.Context, stopID uuid.UUID) (*domain.StopProgress, error)

	// Compare-and-swap write keyed on ev.Version; a stale version surfaces as
	// domain.ErrVersionConflict and the stored row is left untouched.
	UpdateDispatchEvent(ctx context.Context, ev *domain.DispatchEvent) error

	UpdateStop(ctx context.Context, sp *domain.StopProgress) error

	// Mark all still-pending stops of an event skipped with the given reason.
	SkipPendingStops(ctx context.Context, eventID uuid.UUID, reason string, now time.Time) error

	// Deleting an event cascades to its stop records.
	DeleteDispatchEvent(ctx context.Context, id uuid.UUID) error
}

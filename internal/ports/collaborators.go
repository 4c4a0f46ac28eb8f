package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// Port: the external availability service, reduced to its single query.
type AvailabilityChecker interface {
	IsDriverAvailable(ctx context.Context, driverID string, date time.Time) (bool, error)
}

// Port: the external route-substitution service. Returns (nil, nil) when no
// substitution is active for the route on the date.
type SubstitutionFinder interface {
	FindActiveSubstitution(ctx context.Context, routeID uuid.UUID, date time.Time) (*domain.Substitution, error)
}

// AuditEntry is the fact emitted after a successful dispatch operation.
type AuditEntry struct {
	Action   string
	ActorID  string
	EntityID string
	Metadata map[string]any
}

// Port: fire-and-forget audit/notification sink. Implementations must never
// fail the primary operation; delivery problems are logged and dropped.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// Actor identifies the caller of a service operation for auditing and the
// deletion capability check.
type Actor struct {
	ID   string
	Role string
}

// Port: capability hook consulted before role-gated operations. Authorization
// itself is an external concern; the engine only asks yes or no.
type RoleAuthorizer interface {
	Can(actor Actor, action string) bool
}

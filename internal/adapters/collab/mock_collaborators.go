package collab

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/domain"
)

// MockAvailabilityChecker marks listed drivers unavailable (tests).
type MockAvailabilityChecker struct {
	Unavailable map[string]bool
	Err         error
}

func NewMockAvailabilityChecker(unavailable ...string) *MockAvailabilityChecker {
	m := make(map[string]bool, len(unavailable))
	for _, d := range unavailable {
		m[d] = true
	}
	return &MockAvailabilityChecker{Unavailable: m}
}

func (c *MockAvailabilityChecker) IsDriverAvailable(_ context.Context, driverID string, _ time.Time) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	return !c.Unavailable[driverID], nil
}

// MockSubstitutionFinder serves a fixed substitution per route (tests).
type MockSubstitutionFinder struct {
	Subs map[uuid.UUID]*domain.Substitution
}

func NewMockSubstitutionFinder() *MockSubstitutionFinder {
	return &MockSubstitutionFinder{Subs: make(map[uuid.UUID]*domain.Substitution)}
}

func (f *MockSubstitutionFinder) FindActiveSubstitution(_ context.Context, routeID uuid.UUID, _ time.Time) (*domain.Substitution, error) {
	return f.Subs[routeID], nil
}

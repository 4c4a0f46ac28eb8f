package domain

import "github.com/google/uuid"

// Route is the immutable template a dispatch event is created from.
// Routes are owned by an external CRUD system; this engine only reads them.
type Route struct {
	RouteID         uuid.UUID
	TrkID           string // human-readable route code
	TerminalID      string
	DefaultDriverID string
	DefaultTruckID  string
	DepartureTime   string // HH:MM, terminal-local
}

// RouteStopTemplate is one planned stop on a route template.
// Sequence numbers are unique and non-negative within a route; gaps are allowed.
type RouteStopTemplate struct {
	RouteStopID     uuid.UUID
	RouteID         uuid.UUID
	Sequence        int
	PlannedETA      string // HH:MM
	PlannedETD      string // HH:MM
	DestinationName string
	Latitude        float64
	Longitude       float64
}

// Substitution is a dated override of a route's default driver/equipment,
// resolved by an external substitution service.
type Substitution struct {
	SubstitutionID uuid.UUID
	RouteID        uuid.UUID
	DriverID       string
	TruckID        string
	SubUnitID      string
}

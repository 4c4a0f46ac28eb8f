package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"dispatch-engine/internal/adapters/audit"
	"dispatch-engine/internal/adapters/auth"
	"dispatch-engine/internal/adapters/collab"
	"dispatch-engine/internal/adapters/repositories"
	"dispatch-engine/internal/adapters/routes"
	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/ports"
)

var (
	testActor  = ports.Actor{ID: "user-1", Role: "dispatcher"}
	adminActor = ports.Actor{ID: "admin-1", Role: "admin"}
)

type testEnv struct {
	svc      *DispatchService
	store    *repositories.MemoryDispatchRepository
	provider *routes.MockRouteProvider
	avail    *collab.MockAvailabilityChecker
	subs     *collab.MockSubstitutionFinder
	audit    *audit.RecordingAuditLog
	route    *domain.Route
}

func newTestEnv(t *testing.T, stopCount int) *testEnv {
	t.Helper()

	store := repositories.NewMemoryDispatchRepository()
	provider := routes.NewMockRouteProvider()
	avail := collab.NewMockAvailabilityChecker()
	subs := collab.NewMockSubstitutionFinder()
	auditLog := &audit.RecordingAuditLog{}

	route := &domain.Route{
		RouteID:        uuid.New(),
		TrkID:          "TRK-42",
		TerminalID:     "PHX",
		DefaultTruckID: "T-100",
		DepartureTime:  "07:00",
	}
	templates := make([]*domain.RouteStopTemplate, 0, stopCount)
	for i := 0; i < stopCount; i++ {
		templates = append(templates, &domain.RouteStopTemplate{
			RouteStopID: uuid.New(),
			RouteID:     route.RouteID,
			Sequence:    i,
			PlannedETA:  "09:00",
			PlannedETD:  "09:30",
		})
	}
	provider.Add(route, templates)

	svc := NewDispatchService(store, provider, avail, subs, auditLog, auth.NewDefaultAuthorizer(),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC) }),
	)

	return &testEnv{
		svc:      svc,
		store:    store,
		provider: provider,
		avail:    avail,
		subs:     subs,
		audit:    auditLog,
		route:    route,
	}
}

func mustCreate(t *testing.T, env *testEnv, date time.Time) (*domain.DispatchEvent, []*domain.StopProgress) {
	t.Helper()

	ev, stops, err := env.svc.CreateDispatchEvent(context.Background(), CreateDispatchRequest{
		RouteID:       env.route.RouteID,
		ExecutionDate: date,
		Actor:         testActor,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ev, stops
}

func TestCreateDispatchEvent(t *testing.T) {
	env := newTestEnv(t, 3)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ev, stops := mustCreate(t, env, date)

	if ev.Status != domain.StatusPlanned {
		t.Errorf("status = %s, want planned", ev.Status)
	}
	if ev.TerminalID != "PHX" {
		t.Errorf("terminal = %q, want PHX (denormalized from route)", ev.TerminalID)
	}
	if ev.PlannedDepartureTime != "07:00" {
		t.Errorf("planned departure = %q, want 07:00", ev.PlannedDepartureTime)
	}
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(stops))
	}
	for i, sp := range stops {
		if sp.Sequence != i {
			t.Errorf("stop %d sequence = %d", i, sp.Sequence)
		}
		if sp.Status != domain.StopPending {
			t.Errorf("stop %d status = %s, want pending", i, sp.Status)
		}
		if sp.DispatchEventID != ev.DispatchEventID {
			t.Errorf("stop %d not owned by event", i)
		}
	}

	entries := env.audit.Entries()
	if len(entries) != 1 || entries[0].Action != "dispatch.created" {
		t.Errorf("audit entries = %+v, want one dispatch.created", entries)
	}
}

func TestCreateDispatchEventRouteNotFound(t *testing.T) {
	env := newTestEnv(t, 1)

	_, _, err := env.svc.CreateDispatchEvent(context.Background(), CreateDispatchRequest{
		RouteID:       uuid.New(),
		ExecutionDate: time.Now(),
		Actor:         testActor,
	})
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}
}

func TestCreateDispatchEventDuplicate(t *testing.T) {
	env := newTestEnv(t, 2)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mustCreate(t, env, date)

	// Same calendar day at a different hour still collides.
	_, _, err := env.svc.CreateDispatchEvent(context.Background(), CreateDispatchRequest{
		RouteID:       env.route.RouteID,
		ExecutionDate: date.Add(10 * time.Hour),
		Actor:         testActor,
	})
	if !errors.Is(err, domain.ErrDuplicateDispatch) {
		t.Fatalf("err = %v, want ErrDuplicateDispatch", err)
	}
}

// Concurrent creations race past the application pre-check; the store's
// atomic uniqueness guard must let exactly one through.
func TestCreateDispatchEventConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t, 1)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = env.svc.CreateDispatchEvent(context.Background(), CreateDispatchRequest{
				RouteID:       env.route.RouteID,
				ExecutionDate: date,
				Actor:         testActor,
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicateDispatch):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("created %d events, want exactly 1", created)
	}
}

func TestCreateDispatchEventSubstitution(t *testing.T) {
	env := newTestEnv(t, 1)
	env.subs.Subs[env.route.RouteID] = &domain.Substitution{
		SubstitutionID: uuid.New(),
		RouteID:        env.route.RouteID,
		DriverID:       "drv-sub",
		SubUnitID:      "SU-9",
	}

	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	if ev.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want assigned (substitution supplied a driver)", ev.Status)
	}
	if ev.AssignedDriverID != "drv-sub" {
		t.Errorf("driver = %q, want drv-sub", ev.AssignedDriverID)
	}
	if ev.AssignedTruckID != "T-100" {
		t.Errorf("truck = %q, want route default T-100", ev.AssignedTruckID)
	}
	if ev.AssignedSubUnitID != "SU-9" {
		t.Errorf("sub unit = %q, want SU-9", ev.AssignedSubUnitID)
	}
}

func TestAssignDriver(t *testing.T) {
	env := newTestEnv(t, 1)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	got, err := env.svc.AssignDriver(context.Background(), ev.DispatchEventID, "drv-7", testActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AssignedDriverID != "drv-7" {
		t.Errorf("driver = %q, want drv-7", got.AssignedDriverID)
	}
	if got.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want assigned", got.Status)
	}
}

func TestAssignDriverUnavailable(t *testing.T) {
	env := newTestEnv(t, 1)
	env.avail.Unavailable["drv-off"] = true
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	_, err := env.svc.AssignDriver(context.Background(), ev.DispatchEventID, "drv-off", testActor)
	if !errors.Is(err, domain.ErrDriverUnavailable) {
		t.Fatalf("err = %v, want ErrDriverUnavailable", err)
	}

	stored, err := env.svc.GetDispatchEvent(context.Background(), ev.DispatchEventID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.AssignedDriverID != "" || stored.Status != domain.StatusPlanned {
		t.Fatalf("event changed after rejected assignment: %+v", stored)
	}
}

func TestAssignDriverAvailabilityOutage(t *testing.T) {
	env := newTestEnv(t, 1)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	env.avail.Err = errors.New("availability service unreachable")

	_, err := env.svc.AssignDriver(context.Background(), ev.DispatchEventID, "drv-7", testActor)
	if err == nil {
		t.Fatal("expected error")
	}
	// A dependency failure must not masquerade as a business rejection.
	if errors.Is(err, domain.ErrDriverUnavailable) {
		t.Fatalf("outage classified as DRIVER_UNAVAILABLE: %v", err)
	}
}

func TestTransitionStatusRejectsIllegalMoves(t *testing.T) {
	env := newTestEnv(t, 1)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	// planned -> in_transit is not in the table.
	_, err := env.svc.TransitionStatus(context.Background(), ev.DispatchEventID, domain.StatusInTransit, TransitionOptions{Actor: testActor})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	stored, _ := env.svc.GetDispatchEvent(context.Background(), ev.DispatchEventID)
	if stored.Status != domain.StatusPlanned {
		t.Fatalf("status changed on rejected transition: %s", stored.Status)
	}
}

func TestTransitionStatusTerminalIsImmutable(t *testing.T) {
	env := newTestEnv(t, 1)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	if _, err := env.svc.TransitionStatus(context.Background(), ev.DispatchEventID, domain.StatusCancelled,
		TransitionOptions{CancellationReason: "weather", Actor: testActor}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, target := range []domain.EventStatus{
		domain.StatusPlanned, domain.StatusAssigned, domain.StatusDispatched,
		domain.StatusInTransit, domain.StatusCompleted, domain.StatusDelayed,
	} {
		_, err := env.svc.TransitionStatus(context.Background(), ev.DispatchEventID, target, TransitionOptions{Actor: testActor})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("cancelled -> %s: err = %v, want ErrInvalidTransition", target, err)
		}
	}
}

func TestTransitionStatusCancelRequiresReason(t *testing.T) {
	env := newTestEnv(t, 1)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	_, err := env.svc.TransitionStatus(context.Background(), ev.DispatchEventID, domain.StatusCancelled, TransitionOptions{Actor: testActor})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTransitionStatusCancelSkipsPendingStops(t *testing.T) {
	env := newTestEnv(t, 2)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	if _, err := env.svc.TransitionStatus(context.Background(), ev.DispatchEventID, domain.StatusCancelled,
		TransitionOptions{CancellationReason: "truck breakdown", Actor: testActor}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, stops, err := env.svc.GetDispatchEventWithStops(context.Background(), ev.DispatchEventID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sp := range stops {
		if sp.Status != domain.StopSkipped || sp.SkipReason != domain.SkipReasonCancelled {
			t.Errorf("stop seq=%d = (%s, %q), want (skipped, dispatch_cancelled)", sp.Sequence, sp.Status, sp.SkipReason)
		}
	}
}

func TestUpdateStopScoping(t *testing.T) {
	env := newTestEnv(t, 2)
	evA, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	_, stopsB := mustCreate(t, env, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))

	status := domain.StopArrived
	_, _, err := env.svc.UpdateStop(context.Background(), evA.DispatchEventID, stopsB[0].StopProgressID,
		StopPatch{Status: &status}, testActor)
	if !errors.Is(err, domain.ErrStopNotFound) {
		t.Fatalf("err = %v, want ErrStopNotFound for cross-event stop id", err)
	}
}

// The end-to-end flow from the operational playbook: dispatch, assign,
// work the stops, finish.
func TestDispatchLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ev, stops := mustCreate(t, env, date)
	if ev.Status != domain.StatusPlanned || len(stops) != 2 {
		t.Fatalf("created = (%s, %d stops), want (planned, 2)", ev.Status, len(stops))
	}

	if _, err := env.svc.AssignDriver(ctx, ev.DispatchEventID, "drv-1", testActor); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Stop 0 arrives 10 minutes after its 09:00 ETA: inside tolerance.
	arrived := domain.StopArrived
	arrival := time.Date(2026, 3, 1, 9, 10, 0, 0, time.UTC)
	sp, updatedEv, err := env.svc.UpdateStop(ctx, ev.DispatchEventID, stops[0].StopProgressID,
		StopPatch{Status: &arrived, ActualArrivalTime: &arrival}, testActor)
	if err != nil {
		t.Fatalf("update stop 0: %v", err)
	}
	if sp.OnTimeStatus == nil || *sp.OnTimeStatus != domain.OnTimeOK {
		t.Fatalf("stop 0 on-time = %v, want on_time", sp.OnTimeStatus)
	}
	if updatedEv == nil || updatedEv.Status != domain.StatusInTransit {
		t.Fatalf("event after first arrival = %+v, want in_transit", updatedEv)
	}

	// Stop 0 departs; service time derives from the actuals.
	completed := domain.StopCompleted
	departure := arrival.Add(25 * time.Minute)
	sp, _, err = env.svc.UpdateStop(ctx, ev.DispatchEventID, stops[0].StopProgressID,
		StopPatch{Status: &completed, ActualDepartureTime: &departure}, testActor)
	if err != nil {
		t.Fatalf("complete stop 0: %v", err)
	}
	if sp.ServiceTime == nil || *sp.ServiceTime != 25 {
		t.Fatalf("stop 0 service time = %v, want 25", sp.ServiceTime)
	}

	// Stop 1 arrives late and completes; the event finishes.
	lateArrival := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sp, updatedEv, err = env.svc.UpdateStop(ctx, ev.DispatchEventID, stops[1].StopProgressID,
		StopPatch{Status: &completed, ActualArrivalTime: &lateArrival}, testActor)
	if err != nil {
		t.Fatalf("complete stop 1: %v", err)
	}
	if sp.OnTimeStatus == nil || *sp.OnTimeStatus != domain.OnTimeLate {
		t.Fatalf("stop 1 on-time = %v, want late", sp.OnTimeStatus)
	}
	if updatedEv == nil || updatedEv.Status != domain.StatusCompleted {
		t.Fatalf("event after all stops terminal = %+v, want completed", updatedEv)
	}
	if updatedEv.ActualCompletionTime == nil {
		t.Fatal("actual completion time not stamped")
	}
	if updatedEv.OnTimePerformance == nil || *updatedEv.OnTimePerformance != 50 {
		t.Fatalf("on-time performance = %v, want 50", updatedEv.OnTimePerformance)
	}

	// completed -> anything is rejected, whoever asks.
	for _, actor := range []ports.Actor{testActor, adminActor} {
		_, err := env.svc.TransitionStatus(ctx, ev.DispatchEventID, domain.StatusPlanned, TransitionOptions{Actor: actor})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("completed -> planned as %s: err = %v, want ErrInvalidTransition", actor.Role, err)
		}
	}
}

func TestDeleteDispatchEvent(t *testing.T) {
	env := newTestEnv(t, 2)
	ev, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	err := env.svc.DeleteDispatchEvent(context.Background(), ev.DispatchEventID, testActor)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("dispatcher delete: err = %v, want ErrForbidden", err)
	}

	if err := env.svc.DeleteDispatchEvent(context.Background(), ev.DispatchEventID, adminActor); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	if _, err := env.svc.GetDispatchEvent(context.Background(), ev.DispatchEventID); !errors.Is(err, domain.ErrDispatchNotFound) {
		t.Fatalf("err = %v, want ErrDispatchNotFound after delete", err)
	}
	if n := env.store.StopCount(ev.DispatchEventID); n != 0 {
		t.Fatalf("stop records left after cascade delete: %d", n)
	}
}

func TestListDispatchEventsForTerminal(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	ev1, _ := mustCreate(t, env, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	ev2, _ := mustCreate(t, env, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if _, err := env.svc.AssignDriver(ctx, ev2.DispatchEventID, "drv-9", testActor); err != nil {
		t.Fatalf("assign: %v", err)
	}

	all, err := env.svc.ListDispatchEventsForTerminal(ctx, "PHX", ports.DispatchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("listed %d events, want 2", len(all))
	}
	if !all[0].ExecutionDate.Before(all[1].ExecutionDate) {
		t.Error("events not ordered by execution date")
	}

	byDriver, err := env.svc.ListDispatchEventsForTerminal(ctx, "PHX", ports.DispatchFilter{DriverID: "drv-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byDriver) != 1 || byDriver[0].DispatchEventID != ev2.DispatchEventID {
		t.Fatalf("driver filter returned %d events", len(byDriver))
	}

	status := domain.StatusPlanned
	byStatus, err := env.svc.ListDispatchEventsForTerminal(ctx, "PHX", ports.DispatchFilter{Status: status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].DispatchEventID != ev1.DispatchEventID {
		t.Fatalf("status filter returned %d events", len(byStatus))
	}
}

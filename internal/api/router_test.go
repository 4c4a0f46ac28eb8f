package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"dispatch-engine/internal/adapters/audit"
	"dispatch-engine/internal/adapters/auth"
	"dispatch-engine/internal/adapters/collab"
	"dispatch-engine/internal/adapters/repositories"
	"dispatch-engine/internal/adapters/routes"
	"dispatch-engine/internal/api/dto"
	"dispatch-engine/internal/domain"
	"dispatch-engine/internal/services"
)

func newTestRouter(t *testing.T) (http.Handler, *domain.Route) {
	t.Helper()

	provider := routes.NewMockRouteProvider()
	route := &domain.Route{
		RouteID:        uuid.New(),
		TrkID:          "PHX-101",
		TerminalID:     "PHX",
		DefaultTruckID: "truck-21",
		DepartureTime:  "06:30",
	}
	provider.Add(route, []*domain.RouteStopTemplate{
		{RouteStopID: uuid.New(), RouteID: route.RouteID, Sequence: 0, PlannedETA: "07:15", PlannedETD: "07:40"},
		{RouteStopID: uuid.New(), RouteID: route.RouteID, Sequence: 1, PlannedETA: "08:20", PlannedETD: "08:45"},
	})

	svc := services.NewDispatchService(
		repositories.NewMemoryDispatchRepository(),
		provider,
		collab.NewMockAvailabilityChecker(),
		collab.NewMockSubstitutionFinder(),
		&audit.NoopRecorder{},
		auth.NewDefaultAuthorizer(),
	)

	return NewRouter(svc), route
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Actor-ID", "tester")
	req.Header.Set("X-Actor-Role", "dispatcher")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEvent(t *testing.T, rec *httptest.ResponseRecorder) dto.DispatchEventResponse {
	t.Helper()

	var ev dto.DispatchEventResponse
	if err := json.NewDecoder(rec.Body).Decode(&ev); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return ev
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestCreateAndGetDispatchEvent(t *testing.T) {
	router, route := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events", dto.CreateDispatchEventRequest{
		RouteID:       route.RouteID.String(),
		ExecutionDate: "2026-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	created := decodeEvent(t, rec)
	if created.Status != "planned" || len(created.Stops) != 2 {
		t.Fatalf("created = (%s, %d stops), want (planned, 2)", created.Status, len(created.Stops))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/dispatch-events/"+created.DispatchEventID+"?expand=stops", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decodeEvent(t, rec)
	if got.DispatchEventID != created.DispatchEventID || len(got.Stops) != 2 {
		t.Fatalf("get returned %d stops for %s", len(got.Stops), got.DispatchEventID)
	}

	// Second create for the same route and date conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events", dto.CreateDispatchEventRequest{
		RouteID:       route.RouteID.String(),
		ExecutionDate: "2026-03-01",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", rec.Code)
	}
	var errResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp["error"] != "DUPLICATE_DISPATCH" {
		t.Errorf("error = %q, want DUPLICATE_DISPATCH", errResp["error"])
	}
}

func TestGetDispatchEventNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/dispatch-events/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/dispatch-events/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed id", rec.Code)
	}
}

func TestStatusTransitionEndpoint(t *testing.T) {
	router, route := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events", dto.CreateDispatchEventRequest{
		RouteID:       route.RouteID.String(),
		ExecutionDate: "2026-03-01",
	})
	created := decodeEvent(t, rec)

	// planned -> in_transit skips assignment and dispatch, rejected.
	rec = doJSON(t, router, http.MethodPatch, "/api/v1/dispatch-events/"+created.DispatchEventID+"/status",
		dto.TransitionStatusRequest{Status: "in_transit"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("illegal transition status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events/"+created.DispatchEventID+"/assign-driver",
		dto.AssignDriverRequest{DriverID: "drv-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign driver status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ev := decodeEvent(t, rec); ev.Status != "assigned" || ev.AssignedDriverID != "drv-1" {
		t.Fatalf("after assign = (%s, %q)", ev.Status, ev.AssignedDriverID)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/dispatch-events/"+created.DispatchEventID+"/status",
		dto.TransitionStatusRequest{Status: "dispatched"})
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch transition status = %d", rec.Code)
	}
	if ev := decodeEvent(t, rec); ev.Status != "dispatched" {
		t.Fatalf("status = %s, want dispatched", ev.Status)
	}

	// Cancelling without a reason is a validation failure.
	rec = doJSON(t, router, http.MethodPatch, "/api/v1/dispatch-events/"+created.DispatchEventID+"/status",
		dto.TransitionStatusRequest{Status: "cancelled"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("cancel without reason status = %d, want 400", rec.Code)
	}
}

func TestUpdateStopEndpoint(t *testing.T) {
	router, route := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events", dto.CreateDispatchEventRequest{
		RouteID:       route.RouteID.String(),
		ExecutionDate: "2026-03-01",
	})
	created := decodeEvent(t, rec)

	doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events/"+created.DispatchEventID+"/assign-driver",
		dto.AssignDriverRequest{DriverID: "drv-1"})

	status := "arrived"
	path := fmt.Sprintf("/api/v1/dispatch-events/%s/stops/%s", created.DispatchEventID, created.Stops[0].StopProgressID)
	rec = doJSON(t, router, http.MethodPatch, path, dto.UpdateStopRequest{Status: &status})
	if rec.Code != http.StatusOK {
		t.Fatalf("update stop status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var res dto.UpdateStopResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Stop.Status != "arrived" {
		t.Errorf("stop status = %s, want arrived", res.Stop.Status)
	}
	if res.Event == nil || res.Event.Status != "in_transit" {
		t.Fatalf("cascaded event = %+v, want in_transit", res.Event)
	}

	// Unknown fields in the patch are rejected.
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(`{"bogus_field": 1}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestDeleteRequiresElevatedRole(t *testing.T) {
	router, route := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events", dto.CreateDispatchEventRequest{
		RouteID:       route.RouteID.String(),
		ExecutionDate: "2026-03-01",
	})
	created := decodeEvent(t, rec)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/dispatch-events/"+created.DispatchEventID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("dispatcher delete status = %d, want 403", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/dispatch-events/"+created.DispatchEventID, nil)
	req.Header.Set("X-Actor-ID", "boss")
	req.Header.Set("X-Actor-Role", "terminal_manager")
	adminRec := httptest.NewRecorder()
	router.ServeHTTP(adminRec, req)
	if adminRec.Code != http.StatusNoContent {
		t.Fatalf("manager delete status = %d, want 204", adminRec.Code)
	}
}

func TestListForTerminalEndpoint(t *testing.T) {
	router, route := newTestRouter(t)

	for _, date := range []string{"2026-03-01", "2026-03-02"} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/dispatch-events", dto.CreateDispatchEventRequest{
			RouteID:       route.RouteID.String(),
			ExecutionDate: date,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create for %s status = %d", date, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/terminals/PHX/dispatch-events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list dto.ListDispatchEventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Events) != 2 {
		t.Fatalf("listed %d events, want 2", len(list.Events))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/terminals/PHX/dispatch-events?date=2026-03-02", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered list status = %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Events) != 1 || list.Events[0].ExecutionDate != "2026-03-02" {
		t.Fatalf("date filter returned %d events", len(list.Events))
	}
}

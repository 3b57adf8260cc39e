package callstatus

import (
	"context"
	"net/http"
	"testing"
	"time"

	"callbook/internal/client"
	"callbook/internal/models"
	"callbook/internal/store"
	"callbook/internal/testutil"
)

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, backend *testutil.Backend) *Service {
	t.Helper()
	c, err := client.NewClient(
		client.WithBaseURL(backend.URL()),
		client.WithCredentials("svc-user", "svc-pass"),
		client.WithTokenStore(store.NewInMemoryStore()),
	)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	svc := NewService(c)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func statusPayload(scheduled, status string, isFuture bool, phone string) models.ScheduledCallStatus {
	return models.ScheduledCallStatus{
		HasScheduledCall:     true,
		NextScheduledCall:    &models.NextScheduledCall{Scheduled: scheduled, Status: status},
		IsFuture:             isFuture,
		CandidatePhoneNumber: phone,
	}
}

func TestFetchActiveCall(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK,
		statusPayload("2025-03-10T14:30:00Z", "scheduled", true, "07700 123456"))

	svc := newTestService(t, backend)
	call, err := svc.Fetch(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if call == nil {
		t.Fatal("expected an active call")
	}
	if !call.ScheduledAt.Equal(time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected scheduled instant: %v", call.ScheduledAt)
	}
	if call.Phone != "+447700123456" {
		t.Errorf("expected normalized candidate phone, got %q", call.Phone)
	}
}

func TestFetchUnknownSubjectIsAbsence(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	// No handler registered: the backend answers 404.

	svc := newTestService(t, backend)
	call, err := svc.Fetch(context.Background(), "subj-unknown")
	if err != nil {
		t.Fatalf("expected 404 to map to absence, got error: %v", err)
	}
	if call != nil {
		t.Errorf("expected nil call, got %+v", call)
	}
}

func TestFetchBackendFailureIsError(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusInternalServerError,
		map[string]string{"detail": "backend down"})

	svc := newTestService(t, backend)
	if _, err := svc.Fetch(context.Background(), "subj-1"); err == nil {
		t.Error("expected non-404 failure to surface as an error")
	}
}

func TestFetchFiltering(t *testing.T) {
	cases := []struct {
		name    string
		payload models.ScheduledCallStatus
	}{
		{"no scheduled call", models.ScheduledCallStatus{HasScheduledCall: false}},
		{"nil next call", models.ScheduledCallStatus{HasScheduledCall: true, IsFuture: true}},
		{"canceled status", statusPayload("2025-03-10T14:30:00Z", "CANCELED", true, "")},
		{"british spelling", statusPayload("2025-03-10T14:30:00Z", "cancelled", true, "")},
		{"future flag unset", statusPayload("2025-03-10T14:30:00Z", "scheduled", false, "")},
		{"instant already passed", statusPayload("2025-03-10T11:00:00Z", "scheduled", true, "")},
		{"instant equal to now", statusPayload("2025-03-10T12:00:00Z", "scheduled", true, "")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			backend := testutil.NewBackend("token-1")
			defer backend.Close()
			backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK, c.payload)

			svc := newTestService(t, backend)
			call, err := svc.Fetch(context.Background(), "subj-1")
			if err != nil {
				t.Fatalf("Fetch returned error: %v", err)
			}
			if call != nil {
				t.Errorf("expected call to be filtered out, got %+v", call)
			}
		})
	}
}

func TestFetchUnparseableInstantIsError(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK,
		statusPayload("next Tuesday", "scheduled", true, ""))

	svc := newTestService(t, backend)
	if _, err := svc.Fetch(context.Background(), "subj-1"); err == nil {
		t.Error("expected unparseable instant to surface as an error")
	}
}

// TestFetchSequentialUpdates checks that each fetch reflects the backend's
// current answer rather than caching an earlier one.
func TestFetchSequentialUpdates(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK,
		statusPayload("2025-03-10T14:30:00Z", "scheduled", true, ""))

	svc := newTestService(t, backend)
	first, err := svc.Fetch(context.Background(), "subj-1")
	if err != nil || first == nil {
		t.Fatalf("expected active call, got %v / %v", first, err)
	}

	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK,
		statusPayload("2025-03-10T14:30:00Z", "canceled", true, ""))
	second, err := svc.Fetch(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if second != nil {
		t.Errorf("expected canceled call to be filtered, got %+v", second)
	}
}

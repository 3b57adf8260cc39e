package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"callbook/internal/booking"
	"callbook/internal/callstatus"
	"callbook/internal/civiltime"
	"callbook/internal/client"
	"callbook/internal/models"
	"callbook/internal/store"
	"callbook/internal/testutil"
)

func newTestServer(t *testing.T, backend *testutil.Backend) *Server {
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
	fixed, err := civiltime.FixedZone("UTC")
	if err != nil {
		t.Fatalf("FixedZone returned error: %v", err)
	}
	manager := booking.NewManager(c, callstatus.NewService(c), fixed, booking.WithLocalPolicy(fixed))
	return NewServer(manager, c, nil)
}

// createSession drives POST /sessions and returns the new session ID.
func createSession(t *testing.T, mux *http.ServeMux, body interface{}) string {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions", body))
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create session")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("create response carried no result: %v", resp)
	}
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("create response carried no session ID")
	}
	return id
}

func TestCreateSessionEndpoint(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	srv := newTestServer(t, backend)
	mux := srv.Routes()

	id := createSession(t, mux, map[string]interface{}{"subject_id": "subj-1"})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/sessions/"+id, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get session")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	if result["state"] != string(models.StateIdle) {
		t.Errorf("expected IDLE, got %v", result["state"])
	}
	if result["flow"] != string(models.FlowCallScheduling) {
		t.Errorf("expected call-scheduling flow, got %v", result["flow"])
	}
}

func TestCreateSessionValidation(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	srv := newTestServer(t, backend)
	mux := srv.Routes()

	// Missing subject ID.
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions", map[string]interface{}{}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "missing subject")
	testutil.AssertJSONResponse(t, rr, "error")

	// Malformed JSON.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	mux.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty body")

	// Wrong method.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/sessions", nil))
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "wrong method")
}

func TestSessionSelectionEndpoints(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	srv := newTestServer(t, backend)
	mux := srv.Routes()
	id := createSession(t, mux, map[string]interface{}{"subject_id": "subj-1"})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/date",
		map[string]string{"date": "2025-03-10"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "select date")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if resp["result"].(map[string]interface{})["state"] != string(models.StateDateSelected) {
		t.Errorf("expected DATE_SELECTED, got %v", resp["result"])
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/time",
		map[string]string{"time": "2:30 PM"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "select time")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/phone",
		map[string]string{"phone": "07700123456"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "set phone")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	if valid, _ := resp["result"].(map[string]interface{})["phone_valid"].(bool); !valid {
		t.Error("expected phone_valid true")
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/confirm", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "open confirmation")

	backend.HandleJSON(http.MethodPost, "/calls/scheduled", http.StatusOK, models.CallRecord{ID: "call-1", Status: "scheduled"})
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/submit", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "submit")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	if resp["result"].(map[string]interface{})["state"] != string(models.StateSucceeded) {
		t.Errorf("expected SUCCEEDED, got %v", resp["result"])
	}
}

func TestSessionErrorMapping(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	srv := newTestServer(t, backend)
	mux := srv.Routes()

	// Unknown session maps to 404.
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/sessions/no-such-session", nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown session")
	testutil.AssertJSONResponse(t, rr, "error")

	id := createSession(t, mux, map[string]interface{}{"subject_id": "subj-1"})

	// Selection errors map to 400.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/date",
		map[string]string{"date": "not a date"}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid date")

	// Nothing to cancel maps to 409.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/cancel", nil))
	testutil.AssertHTTPStatus(t, http.StatusConflict, rr.Code, "nothing to cancel")

	// An unsubscribed session maps to 410.
	backend.HandleJSON(http.MethodPost, "/unsubscribe/subj-1", http.StatusOK, map[string]string{"status": "ok"})
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/unsubscribe", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "unsubscribe")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/date",
		map[string]string{"date": "2025-03-10"}))
	testutil.AssertHTTPStatus(t, http.StatusGone, rr.Code, "action after unsubscribe")

	// Unknown sub-path maps to 404.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/frobnicate", nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown endpoint")
}

func TestBackendFailureMapsToBadGateway(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	backend.HandleJSON(http.MethodPost, "/calls/immediate", http.StatusServiceUnavailable,
		map[string]string{"detail": "dialer offline"})

	srv := newTestServer(t, backend)
	mux := srv.Routes()
	id := createSession(t, mux, map[string]interface{}{"subject_id": "subj-1"})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/call-now",
		map[string]string{"phone": "07700123456"}))
	testutil.AssertHTTPStatus(t, http.StatusBadGateway, rr.Code, "backend failure")
	resp := testutil.AssertJSONResponse(t, rr, "error")
	if resp["message"] != "dialer offline" {
		t.Errorf("expected backend detail verbatim, got %v", resp["message"])
	}
}

func TestCancelConfirmEndpoints(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK, models.ScheduledCallStatus{
		HasScheduledCall: true,
		NextScheduledCall: &models.NextScheduledCall{
			Scheduled: "2125-01-01T10:00:00Z",
			Status:    "scheduled",
		},
		IsFuture: true,
	})
	backend.HandleJSON(http.MethodPost, "/cancel-scheduled-call/subj-1", http.StatusOK, models.CancelResult{CanceledCount: 1})

	srv := newTestServer(t, backend)
	mux := srv.Routes()
	id := createSession(t, mux, map[string]interface{}{"subject_id": "subj-1"})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/cancel", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "request cancel")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/cancel/abort", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "abort cancel")

	mux.ServeHTTP(httptest.NewRecorder(), testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/cancel", nil))
	backend.HandleJSON(http.MethodGet, "/scheduled-call-status/subj-1", http.StatusOK,
		models.ScheduledCallStatus{HasScheduledCall: false})

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodPost, "/sessions/"+id+"/cancel/confirm", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "confirm cancel")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if resp["result"].(map[string]interface{})["state"] != string(models.StateIdle) {
		t.Errorf("expected IDLE after cancel, got %v", resp["result"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	backend := testutil.NewBackend("token-1")
	defer backend.Close()
	srv := newTestServer(t, backend)
	mux := srv.Routes()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	resp := testutil.AssertJSONResponse(t, rr, "healthy")
	if resp["timestamp"] == nil {
		t.Error("expected timestamp in health payload")
	}
}

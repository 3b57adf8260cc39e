// Package testutil provides common test utilities and helpers for CallBook tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Backend is a fake scheduling backend for tests. It serves POST /auth/login
// with a configurable token and dispatches every other request to the handler
// registered under "METHOD /path".
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	loginCount  int
	token       string
	loginStatus int
	handlers    map[string]http.HandlerFunc
}

// NewBackend starts a fake backend issuing the given token on login.
func NewBackend(token string) *Backend {
	b := &Backend{
		token:       token,
		loginStatus: http.StatusOK,
		handlers:    make(map[string]http.HandlerFunc),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.dispatch))
	return b
}

func (b *Backend) dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == "/auth/login" {
		b.mu.Lock()
		b.loginCount++
		status, token := b.loginStatus, b.token
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"detail":"invalid credentials"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": token})
		return
	}

	b.mu.Lock()
	handler, ok := b.handlers[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"detail":"Not Found"}`)
		return
	}
	handler(w, r)
}

// Handle registers a handler for the given method and path.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method+" "+path] = h
}

// HandleJSON registers a handler that answers with the given status and
// JSON-encoded body.
func (b *Backend) HandleJSON(method, path string, status int, body interface{}) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
}

// SetToken changes the token returned by subsequent logins.
func (b *Backend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// SetLoginStatus makes subsequent logins answer with the given HTTP status.
func (b *Backend) SetLoginStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginStatus = status
}

// LoginCount reports how many login requests the backend has served.
func (b *Backend) LoginCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCount
}

// URL returns the backend's base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close shuts the backend down.
func (b *Backend) Close() {
	b.Server.Close()
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response envelope and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails the test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

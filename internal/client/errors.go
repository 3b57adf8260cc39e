package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error response body is read when
// extracting a message.
const maxErrorBody = 64 * 1024

// APIError is a backend failure with its HTTP status attached. Backend
// failures never escape the client as anything else, so callers can always
// inspect the status.
type APIError struct {
	Status int
	Detail string
}

// Error returns the extracted detail message.
func (e *APIError) Error() string {
	return e.Detail
}

// decodeAPIError extracts a human-readable message from a non-2xx response.
// Structured error bodies contribute their "detail" field; other non-empty
// bodies are used verbatim; an empty body falls back to the HTTP status line.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Detail string `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		detail = payload.Detail
	} else if s := strings.TrimSpace(string(body)); s != "" {
		detail = s
	} else {
		detail = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return &APIError{Status: resp.StatusCode, Detail: detail}
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Package callstatus queries the backend for a subject's scheduled-call state
// and reduces it to what the booking flow may display.
//
// The backend reports a future-flag, but the two clocks can disagree near the
// boundary, so "active" is re-verified client-side: a call counts only when
// the backend says one exists, its status is not a canceled spelling, the
// future-flag is set, and the instant is strictly later than now.
package callstatus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"callbook/internal/client"
	"callbook/internal/models"
	"callbook/internal/phone"
)

// Service fetches and filters scheduled-call status.
type Service struct {
	client *client.Client
	now    func() time.Time
}

// NewService creates a status service over the backend client.
func NewService(c *client.Client) *Service {
	return &Service{client: c, now: time.Now}
}

// Fetch returns the subject's active scheduled call, or nil when there is
// none. An unknown subject (backend 404) is absence, not an error. Any other
// failure is returned as-is and the caller must drop whatever state it was
// holding rather than keep showing stale data.
func (s *Service) Fetch(ctx context.Context, subjectID string) (*models.ActiveCall, error) {
	status, err := s.client.ScheduledCallStatus(ctx, subjectID)
	if err != nil {
		if client.IsNotFound(err) {
			slog.Debug("Service.Fetch: subject unknown to backend", "subjectID", subjectID)
			return nil, nil
		}
		slog.Error("Service.Fetch: status lookup failed", "error", err, "subjectID", subjectID)
		return nil, err
	}

	if !status.HasScheduledCall || status.NextScheduledCall == nil {
		slog.Debug("Service.Fetch: no scheduled call reported", "subjectID", subjectID)
		return nil, nil
	}
	next := status.NextScheduledCall
	if models.IsCanceledStatus(next.Status) {
		slog.Debug("Service.Fetch: scheduled call is canceled", "subjectID", subjectID, "status", next.Status)
		return nil, nil
	}
	if !status.IsFuture {
		slog.Debug("Service.Fetch: backend reports call not in the future", "subjectID", subjectID)
		return nil, nil
	}

	scheduledAt, err := time.Parse(time.RFC3339, next.Scheduled)
	if err != nil {
		slog.Warn("Service.Fetch: unparseable scheduled instant", "subjectID", subjectID, "scheduled", next.Scheduled, "error", err)
		return nil, fmt.Errorf("unparseable scheduled instant %q: %w", next.Scheduled, err)
	}
	if !scheduledAt.After(s.now()) {
		slog.Debug("Service.Fetch: scheduled instant already passed", "subjectID", subjectID, "scheduled_at", scheduledAt)
		return nil, nil
	}

	call := &models.ActiveCall{ScheduledAt: scheduledAt, Status: next.Status}
	if status.CandidatePhoneNumber != "" {
		call.Phone = phone.Normalize(status.CandidatePhoneNumber)
	}
	slog.Debug("Service.Fetch: active scheduled call", "subjectID", subjectID, "scheduled_at", scheduledAt, "phone_set", call.Phone != "")
	return call, nil
}

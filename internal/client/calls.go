package client

import (
	"context"
	"net/http"
	"net/url"

	"callbook/internal/models"
)

// Typed wrappers for the call-scheduling endpoints.

// ScheduledCallStatus fetches the backend's scheduled-call state for a
// subject. A 404 surfaces as an *APIError; mapping it to absence is the
// caller's decision.
func (c *Client) ScheduledCallStatus(ctx context.Context, subjectID string) (*models.ScheduledCallStatus, error) {
	var status models.ScheduledCallStatus
	if err := c.Send(ctx, http.MethodGet, "/scheduled-call-status/"+url.PathEscape(subjectID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ScheduleCall books a call at a UTC instant. The backend replaces any
// existing scheduled call for the subject, so reschedule uses this too.
func (c *Client) ScheduleCall(ctx context.Context, req models.ScheduleCallRequest) (*models.CallRecord, error) {
	var rec models.CallRecord
	if err := c.Send(ctx, http.MethodPost, "/calls/scheduled", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ImmediateCall asks the backend to dispatch a call right now.
func (c *Client) ImmediateCall(ctx context.Context, req models.ImmediateCallRequest) (*models.CallRecord, error) {
	var rec models.CallRecord
	if err := c.Send(ctx, http.MethodPost, "/calls/immediate", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CancelScheduledCall cancels the subject's scheduled call. The backend
// reports how many records were affected; zero means there was nothing to
// cancel.
func (c *Client) CancelScheduledCall(ctx context.Context, subjectID string) (*models.CancelResult, error) {
	var res models.CancelResult
	if err := c.Send(ctx, http.MethodPost, "/cancel-scheduled-call/"+url.PathEscape(subjectID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Unsubscribe opts the subject out of the campaign.
func (c *Client) Unsubscribe(ctx context.Context, subjectID string) error {
	return c.Send(ctx, http.MethodPost, "/unsubscribe/"+url.PathEscape(subjectID), nil, nil)
}

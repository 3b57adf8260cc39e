// Package models defines the core data structures for CallBook.
//
// It includes the wire contracts of the scheduling backend, the booking
// session types, and the API response envelope shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// AttemptKind identifies what a booking submission is trying to do.
type AttemptKind string

const (
	// AttemptSchedule books a new scheduled call.
	AttemptSchedule AttemptKind = "schedule"
	// AttemptReschedule replaces an existing scheduled call.
	AttemptReschedule AttemptKind = "reschedule"
	// AttemptImmediateCall triggers a call right now.
	AttemptImmediateCall AttemptKind = "immediate_call"
	// AttemptCancel cancels the existing scheduled call.
	AttemptCancel AttemptKind = "cancel"
	// AttemptUnsubscribe opts the subject out of the campaign.
	AttemptUnsubscribe AttemptKind = "unsubscribe"
)

// Error variables for better error handling and testability
var (
	ErrMissingSubjectID    = errors.New("subject ID is required")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD form")
	ErrInvalidTimeLabel    = errors.New("time must match H:MM AM/PM")
	ErrInvalidPhoneNumber  = errors.New("phone number is not a valid national number")
	ErrNoDateSelected      = errors.New("no date selected")
	ErrNoTimeSelected      = errors.New("no time selected")
	ErrNoConfirmation      = errors.New("confirmation step is not open")
	ErrNoCancelPending     = errors.New("cancel has not been requested")
	ErrSubmissionInFlight  = errors.New("a submission is already in flight")
	ErrSessionUnsubscribed = errors.New("session is unsubscribed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNothingToCancel     = errors.New("no scheduled call to cancel")

	ErrImmediateCallUnavailable = errors.New("immediate calls are not available for generic bookings")
)

// canceledStatuses lists the status spellings the backend uses for a
// canceled call. Comparison is case-insensitive.
var canceledStatuses = []string{"canceled", "cancelled"}

// IsCanceledStatus reports whether a backend call status means canceled.
func IsCanceledStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, c := range canceledStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// ScheduledCallStatus mirrors GET /scheduled-call-status/{subjectID}.
type ScheduledCallStatus struct {
	HasScheduledCall     bool               `json:"has_scheduled_call"`
	NextScheduledCall    *NextScheduledCall `json:"next_scheduled_call"`
	IsFuture             bool               `json:"is_future"`
	CandidatePhoneNumber string             `json:"candidate_phone_number"`
}

// NextScheduledCall is the backend's view of the upcoming call.
type NextScheduledCall struct {
	Scheduled string `json:"scheduled"` // UTC instant, RFC 3339
	Status    string `json:"status"`
}

// ActiveCall is a scheduled call that passed client-side verification:
// not canceled, flagged future by the backend, and strictly later than the
// evaluation instant.
type ActiveCall struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Phone       string    `json:"phone,omitempty"` // normalized E.164 when the backend supplied one
}

// LoginResponse carries the bearer token from POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// ScheduleCallRequest is the body of POST /calls/scheduled.
type ScheduleCallRequest struct {
	SubjectID       string `json:"subjectId"`
	PhoneNumberE164 string `json:"phoneNumberE164"`
	ScheduledAt     string `json:"scheduledAt"` // UTC instant
}

// ImmediateCallRequest is the body of POST /calls/immediate.
type ImmediateCallRequest struct {
	SubjectID       string `json:"subjectId"`
	PhoneNumberE164 string `json:"phoneNumberE164"`
}

// CallRecord is the backend's record of a dispatched or scheduled call.
type CallRecord struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subjectId"`
	PhoneNumber string `json:"phoneNumberE164,omitempty"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CancelResult is the body of POST /cancel-scheduled-call/{subjectID}.
type CancelResult struct {
	CanceledCount int `json:"canceled_count"`
}

// BookingRequest is the body of POST /bookings (legacy generic-booking flow).
type BookingRequest struct {
	SubjectID       string `json:"subjectId"`
	RelatedPartyID  string `json:"relatedPartyId,omitempty"`
	ScheduledAt     string `json:"scheduledAt"` // local wall clock with numeric offset
	DurationMinutes int    `json:"durationMinutes"`
	Timezone        string `json:"timezone"`
}

// BookingRecord is the backend's booking entity.
type BookingRecord struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	ScheduledAt     string `json:"scheduledAt"`
	DurationMinutes int    `json:"durationMinutes"`
	MeetingLink     string `json:"meetingLink,omitempty"`
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

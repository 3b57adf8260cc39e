// Package models defines session state structures for CallBook booking flows.
package models

// FlowType represents which booking flow a session runs.
type FlowType string

const (
	// FlowCallScheduling is the phone-call scheduling flow (subject + phone,
	// wall clock pinned to the campaign's civil zone).
	FlowCallScheduling FlowType = "call_scheduling"
	// FlowGenericBooking is the legacy generic-booking flow (subject +
	// related party + duration, wall clock in the viewer's local zone).
	FlowGenericBooking FlowType = "generic_booking"
)

// SessionState represents a specific state within a booking session.
type SessionState string

const (
	// StateIdle is the initial state, before any selection.
	StateIdle SessionState = "IDLE"
	// StateDateSelected means a calendar date has been chosen.
	StateDateSelected SessionState = "DATE_SELECTED"
	// StateTimeSelected means a date and a time slot have been chosen.
	StateTimeSelected SessionState = "TIME_SELECTED"
	// StateConfirmationPending means the confirmation step is open.
	StateConfirmationPending SessionState = "CONFIRMATION_PENDING"
	// StateSubmitting means a schedule/reschedule/call-now request is in flight.
	StateSubmitting SessionState = "SUBMITTING"
	// StateSucceeded means the last submission completed and status was refreshed.
	StateSucceeded SessionState = "SUCCEEDED"
	// StateCancelPending means the user asked to cancel and must confirm.
	StateCancelPending SessionState = "CANCEL_PENDING"
	// StateCanceling means the cancel request is in flight.
	StateCanceling SessionState = "CANCELING"
	// StateUnsubscribing means the unsubscribe request is in flight.
	StateUnsubscribing SessionState = "UNSUBSCRIBING"
	// StateUnsubscribed is terminal; the session permits no further actions.
	StateUnsubscribed SessionState = "UNSUBSCRIBED"
)

// InFlight reports whether the state has a submission outstanding.
// A session in an in-flight state rejects every other action.
func (s SessionState) InFlight() bool {
	switch s {
	case StateSubmitting, StateCanceling, StateUnsubscribing:
		return true
	default:
		return false
	}
}

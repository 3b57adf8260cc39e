// Package booking implements the call-booking session state machine.
//
// A session walks Idle -> DateSelected -> TimeSelected -> ConfirmationPending
// -> Submitting, with parallel cancel and unsubscribe sub-flows. The manager
// owns all mutable session state; the converter, phone, client, and status
// modules it calls are stateless.
package booking

import (
	"time"

	"callbook/internal/civiltime"
	"callbook/internal/models"
	"callbook/internal/phone"
)

// Session is the per-subject booking state. All fields are owned by the
// Manager and read or written only under its lock.
type Session struct {
	ID              string
	SubjectID       string
	RelatedPartyID  string
	DurationMinutes int
	Flow            models.FlowType
	State           models.SessionState

	SelectedDate *civiltime.CivilDate
	SelectedTime string // 12-hour label as entered
	Phone        string // raw contact number as entered or prefilled

	ActiveCall  *models.ActiveCall    // call-scheduling flow: verified upcoming call
	LastBooking *models.BookingRecord // legacy flow: booking being managed

	IsImmediate bool   // set while a call-now attempt is being confirmed/submitted
	LastError   string // backend message of the last failed attempt, verbatim

	// ReturnState is where the session goes back to if the cancel gate is
	// declined or the cancel attempt fails.
	ReturnState models.SessionState

	UpdatedAt time.Time
}

// clearSelection drops the date/time selection and the immediate flag after a
// completed cancel.
func (s *Session) clearSelection() {
	s.SelectedDate = nil
	s.SelectedTime = ""
	s.IsImmediate = false
	s.LastError = ""
}

// View is the read-only projection of a session returned to API callers.
type View struct {
	ID              string              `json:"id"`
	SubjectID       string              `json:"subject_id"`
	RelatedPartyID  string              `json:"related_party_id,omitempty"`
	Flow            models.FlowType     `json:"flow"`
	State           models.SessionState `json:"state"`
	DurationMinutes int                 `json:"duration_minutes"`

	SelectedDate string `json:"selected_date,omitempty"`
	SelectedTime string `json:"selected_time,omitempty"`

	Phone      string `json:"phone,omitempty"`
	PhoneValid bool   `json:"phone_valid"`

	// SelectionDisplay renders the chosen date/time in the flow's civil zone
	// once both are picked.
	SelectionDisplay *civiltime.Display `json:"selection_display,omitempty"`

	ActiveCall *models.ActiveCall `json:"active_call,omitempty"`
	// ActiveCallDisplay renders the existing call so a reschedule confirmation
	// can show what is being replaced.
	ActiveCallDisplay *civiltime.Display `json:"active_call_display,omitempty"`

	LastBooking *models.BookingRecord `json:"last_booking,omitempty"`
	IsImmediate bool                  `json:"is_immediate,omitempty"`
	LastError   string                `json:"last_error,omitempty"`
}

// view builds the projection. Callers must hold the manager lock.
func (m *Manager) view(s *Session) *View {
	v := &View{
		ID:              s.ID,
		SubjectID:       s.SubjectID,
		RelatedPartyID:  s.RelatedPartyID,
		Flow:            s.Flow,
		State:           s.State,
		DurationMinutes: s.DurationMinutes,
		SelectedTime:    s.SelectedTime,
		Phone:           s.Phone,
		ActiveCall:      s.ActiveCall,
		LastBooking:     s.LastBooking,
		IsImmediate:     s.IsImmediate,
		LastError:       s.LastError,
	}
	if s.SelectedDate != nil {
		v.SelectedDate = s.SelectedDate.String()
	}
	// Validity is recomputed on every projection so the confirm control can
	// follow the phone field keystroke by keystroke.
	if s.Phone != "" {
		v.PhoneValid = phone.IsValid(phone.Normalize(s.Phone))
	}

	policy := m.policyFor(s)
	loc := policy.Location()
	if s.SelectedDate != nil && s.SelectedTime != "" {
		if instant, err := civiltime.ToUTC(*s.SelectedDate, s.SelectedTime, loc); err == nil {
			d := civiltime.ToDisplay(instant, loc)
			v.SelectionDisplay = &d
		}
	}
	if s.ActiveCall != nil {
		d := civiltime.ToDisplay(s.ActiveCall.ScheduledAt, loc)
		v.ActiveCallDisplay = &d
	}
	return v
}

// policyFor returns the civil-zone policy of the session's flow.
func (m *Manager) policyFor(s *Session) civiltime.Policy {
	if s.Flow == models.FlowGenericBooking {
		return m.localPolicy
	}
	return m.fixedPolicy
}

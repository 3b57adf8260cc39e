package booking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"callbook/internal/callstatus"
	"callbook/internal/civiltime"
	"callbook/internal/client"
	"callbook/internal/models"
	"callbook/internal/phone"
)

// Default call durations per flow, in minutes.
const (
	DefaultCallDurationMinutes    = 5
	DefaultBookingDurationMinutes = 30
)

// DefaultSessionTTL is how long an idle session survives before the reaper
// removes it.
const DefaultSessionTTL = 30 * time.Minute

// Opts holds configuration options for the session manager.
type Opts struct {
	SessionTTL  time.Duration
	LocalPolicy civiltime.Policy
	Now         func() time.Time
}

// Option defines a configuration option for the session manager.
type Option func(*Opts)

// WithSessionTTL sets how long idle sessions are kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.SessionTTL = ttl }
}

// WithLocalPolicy overrides the viewer-local zone policy (used by tests).
func WithLocalPolicy(p civiltime.Policy) Option {
	return func(o *Opts) { o.LocalPolicy = p }
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Manager owns every booking session and sequences their submissions against
// the backend. Only one submission may be in flight per session; a second
// attempt while one is outstanding is rejected, it does not queue.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	client      *client.Client
	status      *callstatus.Service
	fixedPolicy civiltime.Policy
	localPolicy civiltime.Policy
	now         func() time.Time
	sessionTTL  time.Duration
}

// NewManager creates a session manager. fixedPolicy is the campaign's civil
// zone used by the call-scheduling flow.
func NewManager(c *client.Client, status *callstatus.Service, fixedPolicy civiltime.Policy, opts ...Option) *Manager {
	cfg := Opts{
		SessionTTL:  DefaultSessionTTL,
		LocalPolicy: civiltime.ViewerLocal(),
		Now:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		client:      c,
		status:      status,
		fixedPolicy: fixedPolicy,
		localPolicy: cfg.LocalPolicy,
		now:         cfg.Now,
		sessionTTL:  cfg.SessionTTL,
	}
}

// CreateSession starts a booking session for a subject. A related-party ID
// selects the legacy generic-booking flow; otherwise the session runs the
// call-scheduling flow and the subject's current scheduled-call status is
// fetched up front (a fetch failure degrades to "no call shown", it does not
// block session creation).
func (m *Manager) CreateSession(ctx context.Context, subjectID, relatedPartyID string, durationMinutes int) (*View, error) {
	if subjectID == "" {
		return nil, models.ErrMissingSubjectID
	}

	s := &Session{
		ID:             uuid.NewString(),
		SubjectID:      subjectID,
		RelatedPartyID: relatedPartyID,
		State:          models.StateIdle,
	}
	if relatedPartyID != "" {
		s.Flow = models.FlowGenericBooking
		s.DurationMinutes = DefaultBookingDurationMinutes
	} else {
		s.Flow = models.FlowCallScheduling
		s.DurationMinutes = DefaultCallDurationMinutes
	}
	if durationMinutes > 0 {
		s.DurationMinutes = durationMinutes
	}

	if s.Flow == models.FlowCallScheduling {
		active, err := m.status.Fetch(ctx, subjectID)
		if err != nil {
			slog.Warn("Manager.CreateSession: status fetch failed, starting without call info", "error", err, "subjectID", subjectID)
		} else if active != nil {
			s.ActiveCall = active
			s.Phone = active.Phone
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = m.now()
	m.sessions[s.ID] = s
	slog.Info("Manager.CreateSession: session created", "sessionID", s.ID, "subjectID", subjectID, "flow", s.Flow)
	return m.view(s), nil
}

// Get returns the current projection of a session.
func (m *Manager) Get(id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return m.view(s), nil
}

// lookup fetches a session and applies the common guards. Callers must hold
// the manager lock.
func (m *Manager) lookup(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if s.State == models.StateUnsubscribed {
		return nil, models.ErrSessionUnsubscribed
	}
	if s.State.InFlight() {
		return nil, models.ErrSubmissionInFlight
	}
	return s, nil
}

// SelectDate picks a calendar date. A date change invalidates everything
// downstream: the selected time, an open confirmation step, and the immediate
// flag are all cleared.
func (m *Manager) SelectDate(id, date string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	d, err := civiltime.ParseDate(date)
	if err != nil {
		return m.view(s), err
	}
	s.SelectedDate = &d
	s.SelectedTime = ""
	s.IsImmediate = false
	s.LastError = ""
	s.State = models.StateDateSelected
	s.UpdatedAt = m.now()
	slog.Debug("Manager.SelectDate: date selected", "sessionID", id, "date", d.String())
	return m.view(s), nil
}

// SelectTime picks a time slot for the selected date. It does not open the
// confirmation step; that takes an explicit advance.
func (m *Manager) SelectTime(id, label string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.SelectedDate == nil {
		return m.view(s), models.ErrNoDateSelected
	}
	if _, _, err := civiltime.ParseTimeLabel(label); err != nil {
		return m.view(s), err
	}
	s.SelectedTime = label
	s.LastError = ""
	s.State = models.StateTimeSelected
	s.UpdatedAt = m.now()
	slog.Debug("Manager.SelectTime: time selected", "sessionID", id, "time", label)
	return m.view(s), nil
}

// SetPhone records the contact number as entered. The projection reports
// whether it currently validates, so the confirm control can track the field.
func (m *Manager) SetPhone(id, raw string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	s.Phone = raw
	s.UpdatedAt = m.now()
	return m.view(s), nil
}

// OpenConfirmation advances a time-selected session to the confirmation step.
// When an active call already exists the returned view carries its display
// alongside the new selection, so a reschedule shows what is being replaced.
func (m *Manager) OpenConfirmation(id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.State != models.StateTimeSelected {
		if s.SelectedDate == nil {
			return m.view(s), models.ErrNoDateSelected
		}
		return m.view(s), models.ErrNoTimeSelected
	}
	s.State = models.StateConfirmationPending
	s.UpdatedAt = m.now()
	slog.Debug("Manager.OpenConfirmation: confirmation open", "sessionID", id, "reschedule", s.ActiveCall != nil)
	return m.view(s), nil
}

// Submit commits the confirmed selection: a schedule when no call exists yet,
// a reschedule when one does. On failure the confirmation step stays open
// with the backend's message so the user can correct the number and retry.
// On success the scheduled-call status is re-fetched before the session
// finalizes, so the view reflects server truth rather than the optimistic
// local selection.
func (m *Manager) Submit(ctx context.Context, id, rawPhone string) (*View, error) {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.State != models.StateConfirmationPending {
		defer m.mu.Unlock()
		return m.view(s), models.ErrNoConfirmation
	}
	if rawPhone != "" {
		s.Phone = rawPhone
	}

	var e164 string
	if s.Flow == models.FlowCallScheduling {
		e164 = phone.Normalize(s.Phone)
		if !phone.IsValid(e164) {
			defer m.mu.Unlock()
			return m.view(s), models.ErrInvalidPhoneNumber
		}
	}

	policy := m.policyFor(s)
	instant, err := civiltime.ToUTC(*s.SelectedDate, s.SelectedTime, policy.Location())
	if err != nil {
		defer m.mu.Unlock()
		return m.view(s), err
	}

	kind := models.AttemptSchedule
	if (s.Flow == models.FlowCallScheduling && s.ActiveCall != nil) ||
		(s.Flow == models.FlowGenericBooking && s.LastBooking != nil) {
		kind = models.AttemptReschedule
	}

	subjectID := s.SubjectID
	relatedPartyID := s.RelatedPartyID
	duration := s.DurationMinutes
	flow := s.Flow
	bookingID := ""
	if s.LastBooking != nil {
		bookingID = s.LastBooking.ID
	}
	s.State = models.StateSubmitting
	s.LastError = ""
	s.UpdatedAt = m.now()
	m.mu.Unlock()

	slog.Info("Manager.Submit: submitting", "sessionID", id, "kind", kind, "scheduled_at", policy.FormatWire(instant))

	var booking *models.BookingRecord
	var submitErr error
	if flow == models.FlowCallScheduling {
		_, submitErr = m.client.ScheduleCall(ctx, models.ScheduleCallRequest{
			SubjectID:       subjectID,
			PhoneNumberE164: e164,
			ScheduledAt:     policy.FormatWire(instant),
		})
	} else if kind == models.AttemptReschedule {
		booking, submitErr = m.client.UpdateBooking(ctx, bookingID, map[string]interface{}{
			"scheduledAt": policy.FormatWire(instant),
			"timezone":    policy.Name(),
		})
	} else {
		booking, submitErr = m.client.CreateBooking(ctx, models.BookingRequest{
			SubjectID:       subjectID,
			RelatedPartyID:  relatedPartyID,
			ScheduledAt:     policy.FormatWire(instant),
			DurationMinutes: duration,
			Timezone:        policy.Name(),
		})
	}

	if submitErr != nil {
		return m.finishFailure(id, models.StateConfirmationPending, submitErr, false)
	}
	return m.finishSuccess(ctx, id, booking)
}

// CallNow triggers an immediate call. No date or time is needed; only the
// phone number gates the action.
func (m *Manager) CallNow(ctx context.Context, id, rawPhone string) (*View, error) {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.Flow != models.FlowCallScheduling {
		defer m.mu.Unlock()
		return m.view(s), models.ErrImmediateCallUnavailable
	}
	if rawPhone != "" {
		s.Phone = rawPhone
	}
	e164 := phone.Normalize(s.Phone)
	if !phone.IsValid(e164) {
		defer m.mu.Unlock()
		return m.view(s), models.ErrInvalidPhoneNumber
	}

	subjectID := s.SubjectID
	prev := s.State
	s.IsImmediate = true
	s.State = models.StateSubmitting
	s.LastError = ""
	s.UpdatedAt = m.now()
	m.mu.Unlock()

	slog.Info("Manager.CallNow: dispatching immediate call", "sessionID", id)
	_, submitErr := m.client.ImmediateCall(ctx, models.ImmediateCallRequest{
		SubjectID:       subjectID,
		PhoneNumberE164: e164,
	})

	if submitErr != nil {
		// The immediate flag is dropped only now that the attempt is
		// terminal, never while it is still in flight.
		return m.finishFailure(id, prev, submitErr, true)
	}
	return m.finishSuccess(ctx, id, nil)
}

// RequestCancel opens the yes/no cancel gate. Nothing is sent until the user
// confirms.
func (m *Manager) RequestCancel(id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.Flow == models.FlowCallScheduling && s.ActiveCall == nil {
		return m.view(s), models.ErrNothingToCancel
	}
	if s.Flow == models.FlowGenericBooking && s.LastBooking == nil {
		return m.view(s), models.ErrNothingToCancel
	}
	s.ReturnState = s.State
	s.State = models.StateCancelPending
	s.UpdatedAt = m.now()
	slog.Debug("Manager.RequestCancel: awaiting confirmation", "sessionID", id)
	return m.view(s), nil
}

// AbortCancel answers the cancel gate with "no" and restores the prior state.
func (m *Manager) AbortCancel(id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.State != models.StateCancelPending {
		return m.view(s), models.ErrNoCancelPending
	}
	s.State = s.ReturnState
	s.UpdatedAt = m.now()
	return m.view(s), nil
}

// ConfirmCancel sends the cancel request. A backend report of zero affected
// records is an informational error, not a success: the session returns to
// its prior state and keeps the local date/time selection.
func (m *Manager) ConfirmCancel(ctx context.Context, id string) (*View, error) {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.State != models.StateCancelPending {
		defer m.mu.Unlock()
		return m.view(s), models.ErrNoCancelPending
	}
	subjectID := s.SubjectID
	flow := s.Flow
	returnState := s.ReturnState
	bookingID := ""
	if s.LastBooking != nil {
		bookingID = s.LastBooking.ID
	}
	s.State = models.StateCanceling
	s.LastError = ""
	s.UpdatedAt = m.now()
	m.mu.Unlock()

	slog.Info("Manager.ConfirmCancel: canceling", "sessionID", id, "flow", flow)

	if flow == models.FlowGenericBooking {
		booking, cancelErr := m.client.CancelBooking(ctx, bookingID)
		if cancelErr != nil {
			return m.finishFailure(id, returnState, cancelErr, false)
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.sessions[id]; ok {
			s.LastBooking = booking
			s.clearSelection()
			s.State = models.StateIdle
			s.UpdatedAt = m.now()
			return m.view(s), nil
		}
		return nil, models.ErrSessionNotFound
	}

	res, cancelErr := m.client.CancelScheduledCall(ctx, subjectID)
	if cancelErr != nil {
		return m.finishFailure(id, returnState, cancelErr, false)
	}
	if res.CanceledCount == 0 {
		slog.Warn("Manager.ConfirmCancel: backend had nothing to cancel", "sessionID", id)
		return m.finishFailure(id, returnState, models.ErrNothingToCancel, false)
	}

	// Re-fetch status after the mutation so the session reflects server truth.
	active, refreshErr := m.status.Fetch(ctx, subjectID)
	if refreshErr != nil {
		slog.Warn("Manager.ConfirmCancel: status refresh failed, dropping call info", "error", refreshErr, "sessionID", id)
		active = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.ActiveCall = active
		s.clearSelection()
		s.State = models.StateIdle
		s.UpdatedAt = m.now()
		return m.view(s), nil
	}
	return nil, models.ErrSessionNotFound
}

// Unsubscribe opts the subject out. Success is terminal for the session: no
// further booking action is possible without a full reset.
func (m *Manager) Unsubscribe(ctx context.Context, id string) (*View, error) {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	subjectID := s.SubjectID
	prev := s.State
	s.State = models.StateUnsubscribing
	s.LastError = ""
	s.UpdatedAt = m.now()
	m.mu.Unlock()

	slog.Info("Manager.Unsubscribe: unsubscribing", "sessionID", id, "subjectID", subjectID)
	if unsubErr := m.client.Unsubscribe(ctx, subjectID); unsubErr != nil {
		return m.finishFailure(id, prev, unsubErr, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.State = models.StateUnsubscribed
		s.UpdatedAt = m.now()
		slog.Info("Manager.Unsubscribe: session unsubscribed", "sessionID", id)
		return m.view(s), nil
	}
	return nil, models.ErrSessionNotFound
}

// finishFailure records a failed attempt: prior state restored, selections
// kept, backend message surfaced verbatim.
func (m *Manager) finishFailure(id string, returnTo models.SessionState, cause error, clearImmediate bool) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	s.State = returnTo
	s.LastError = cause.Error()
	if clearImmediate {
		s.IsImmediate = false
	}
	s.UpdatedAt = m.now()
	slog.Warn("Manager.finishFailure: attempt failed", "sessionID", id, "error", cause, "state", s.State)
	return m.view(s), cause
}

// finishSuccess refreshes server state strictly after the mutation response
// and finalizes the session. booking is non-nil for the legacy flow.
func (m *Manager) finishSuccess(ctx context.Context, id string, booking *models.BookingRecord) (*View, error) {
	var active *models.ActiveCall
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}
	subjectID := s.SubjectID
	flow := s.Flow
	m.mu.Unlock()

	if flow == models.FlowCallScheduling {
		var refreshErr error
		active, refreshErr = m.status.Fetch(ctx, subjectID)
		if refreshErr != nil {
			slog.Warn("Manager.finishSuccess: status refresh failed, dropping call info", "error", refreshErr, "sessionID", id)
			active = nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if flow == models.FlowCallScheduling {
		s.ActiveCall = active
	} else if booking != nil {
		s.LastBooking = booking
	}
	s.State = models.StateSucceeded
	s.LastError = ""
	s.UpdatedAt = m.now()
	slog.Info("Manager.finishSuccess: attempt succeeded", "sessionID", id)
	return m.view(s), nil
}

// ExpireIdle removes sessions idle past the TTL. Sessions with a submission
// in flight are left alone. Returns how many were removed.
func (m *Manager) ExpireIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.sessionTTL)
	removed := 0
	for id, s := range m.sessions {
		if s.State.InFlight() {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Manager.ExpireIdle: sessions expired", "count", removed)
	}
	return removed
}

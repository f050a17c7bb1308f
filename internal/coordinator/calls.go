package coordinator

import (
	"time"

	"signalhub-backend/internal/domain"
	"signalhub-backend/pkg/constants"
	apperrors "signalhub-backend/pkg/errors"
)

// Call is the in-memory lifecycle record of one voice/video call. The expiry
// timer lives on the record so removing a call and cancelling its timer is a
// single step.
type Call struct {
	ID         string
	Type       string // audio, video
	CallerID   string
	CalleeID   string
	CallerName string
	State      domain.CallState
	CreatedAt  time.Time

	timer *time.Timer
}

// IsParty reports whether userID is the caller or callee
func (c *Call) IsParty(userID string) bool {
	return c.CallerID == userID || c.CalleeID == userID
}

// OtherParty returns the counterpart of userID, or "" if not a party
func (c *Call) OtherParty(userID string) string {
	switch userID {
	case c.CallerID:
		return c.CalleeID
	case c.CalleeID:
		return c.CallerID
	}
	return ""
}

// DurationSeconds is the elapsed whole seconds since the call was created
func (c *Call) DurationSeconds(now time.Time) int {
	return int(now.Sub(c.CreatedAt).Seconds())
}

func (c *Call) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// CallManager owns every active call record and validates state transitions.
// Calls in a terminal state are removed immediately; everything in the map
// is RINGING or ACCEPTED.
type CallManager struct {
	calls       map[string]*Call
	ringTimeout time.Duration

	// onExpire is invoked from the timer goroutine when a ringing call's
	// deadline fires; it must hand control back to the coordinator loop.
	onExpire func(callID string)
}

// NewCallManager creates a call manager. ringTimeout <= 0 falls back to the
// default ring deadline.
func NewCallManager(ringTimeout time.Duration, onExpire func(callID string)) *CallManager {
	if ringTimeout <= 0 {
		ringTimeout = constants.CallRingTimeout
	}
	return &CallManager{
		calls:       make(map[string]*Call),
		ringTimeout: ringTimeout,
		onExpire:    onExpire,
	}
}

// Initiate creates a new ringing call and starts its expiry timer.
// It fails with Busy if the callee already has a ringing or accepted call.
func (m *CallManager) Initiate(callID, callerID, calleeID, callType, callerName string) (*Call, error) {
	if _, exists := m.calls[callID]; exists {
		return nil, apperrors.ValidationError("call ID already in use")
	}
	// Linear scan by callee: call volume per process is small relative to
	// connected users. Index by participant if that ever changes.
	for _, c := range m.calls {
		if c.CalleeID == calleeID {
			return nil, apperrors.BusyError(calleeID)
		}
	}

	call := &Call{
		ID:         callID,
		Type:       callType,
		CallerID:   callerID,
		CalleeID:   calleeID,
		CallerName: callerName,
		State:      domain.CallStateRinging,
		CreatedAt:  time.Now(),
	}
	if m.onExpire != nil {
		call.timer = time.AfterFunc(m.ringTimeout, func() {
			m.onExpire(callID)
		})
	}
	m.calls[callID] = call
	return call, nil
}

// Accept transitions a ringing call to accepted and cancels its timer.
func (m *CallManager) Accept(callID, acceptorID string) (*Call, error) {
	call, ok := m.calls[callID]
	if !ok {
		return nil, apperrors.CallNotFoundError(callID)
	}
	if call.CalleeID != acceptorID {
		return nil, apperrors.ForbiddenError("only the callee may accept this call")
	}
	if call.State != domain.CallStateRinging {
		return nil, apperrors.ValidationError("call is not ringing")
	}
	call.State = domain.CallStateAccepted
	call.stopTimer()
	return call, nil
}

// Reject removes the call record. Returns (nil, false) when the call is
// unknown; callers treat that as a no-op.
func (m *CallManager) Reject(callID string) (*Call, bool) {
	return m.remove(callID)
}

// End removes the call record. Returns (nil, false) when the call is
// unknown; callers treat that as a no-op.
func (m *CallManager) End(callID string) (*Call, bool) {
	return m.remove(callID)
}

// Expire removes a call whose ring deadline fired. It re-checks existence
// and state, so a timer racing a completed transition is a no-op.
func (m *CallManager) Expire(callID string) (*Call, bool) {
	call, ok := m.calls[callID]
	if !ok || call.State != domain.CallStateRinging {
		return nil, false
	}
	return m.remove(callID)
}

// Get returns the active call for an ID, or nil
func (m *CallManager) Get(callID string) *Call {
	return m.calls[callID]
}

// CallsFor returns every active call in which userID is a party
func (m *CallManager) CallsFor(userID string) []*Call {
	var out []*Call
	for _, c := range m.calls {
		if c.IsParty(userID) {
			out = append(out, c)
		}
	}
	return out
}

// Active returns the number of non-terminal calls
func (m *CallManager) Active() int {
	return len(m.calls)
}

func (m *CallManager) remove(callID string) (*Call, bool) {
	call, ok := m.calls[callID]
	if !ok {
		return nil, false
	}
	call.stopTimer()
	delete(m.calls, callID)
	return call, true
}

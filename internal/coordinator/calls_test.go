package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub-backend/internal/domain"
	apperrors "signalhub-backend/pkg/errors"
)

func TestCallManagerInitiate(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	call, err := m.Initiate("c1", "u1", "u2", "video", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateRinging, call.State)
	assert.Equal(t, "u1", call.CallerID)
	assert.Equal(t, "u2", call.CalleeID)
	assert.Equal(t, 1, m.Active())
}

func TestCallManagerDuplicateCallID(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	_, err := m.Initiate("c1", "u1", "u2", "video", "")
	require.NoError(t, err)

	_, err = m.Initiate("c1", "u3", "u4", "audio", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	assert.Equal(t, 1, m.Active())
}

func TestCallManagerCalleeBusy(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	_, err := m.Initiate("c1", "u1", "u2", "video", "")
	require.NoError(t, err)

	// Second call targeting the same callee fails while c1 is ringing.
	_, err = m.Initiate("c2", "u3", "u2", "audio", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBusy))

	// Still busy once the call is accepted.
	_, err = m.Accept("c1", "u2")
	require.NoError(t, err)
	_, err = m.Initiate("c3", "u3", "u2", "audio", "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBusy))

	// Free again after the call ends.
	_, ok := m.End("c1")
	require.True(t, ok)
	_, err = m.Initiate("c4", "u3", "u2", "audio", "")
	assert.NoError(t, err)
}

func TestCallManagerAccept(t *testing.T) {
	m := NewCallManager(time.Minute, func(string) {})

	call, err := m.Initiate("c1", "u1", "u2", "video", "")
	require.NoError(t, err)
	require.NotNil(t, call.timer)

	_, err = m.Accept("missing", "u2")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = m.Accept("c1", "u1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeForbidden), "caller must not accept their own call")

	accepted, err := m.Accept("c1", "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateAccepted, accepted.State)
	assert.Nil(t, accepted.timer, "accept cancels the ring timer")

	_, err = m.Accept("c1", "u2")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation), "double accept is rejected")
}

func TestCallManagerExpireOnlyWhileRinging(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	_, err := m.Initiate("c1", "u1", "u2", "audio", "")
	require.NoError(t, err)

	_, err = m.Accept("c1", "u2")
	require.NoError(t, err)

	// A timer racing the accept finds a non-ringing call and does nothing.
	_, ok := m.Expire("c1")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Active())

	// Expiring an unknown call is equally harmless.
	_, ok = m.Expire("missing")
	assert.False(t, ok)
}

func TestCallManagerExpireRemovesRingingCall(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	_, err := m.Initiate("c1", "u1", "u2", "audio", "")
	require.NoError(t, err)

	expired, ok := m.Expire("c1")
	require.True(t, ok)
	assert.Equal(t, "c1", expired.ID)
	assert.Equal(t, 0, m.Active())
}

func TestCallManagerRejectAndEndUnknown(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	_, ok := m.Reject("missing")
	assert.False(t, ok)
	_, ok = m.End("missing")
	assert.False(t, ok)
}

func TestCallManagerCallsFor(t *testing.T) {
	m := NewCallManager(time.Minute, nil)

	_, err := m.Initiate("c1", "u1", "u2", "video", "")
	require.NoError(t, err)
	_, err = m.Initiate("c2", "u1", "u3", "audio", "")
	require.NoError(t, err)

	assert.Len(t, m.CallsFor("u1"), 2)
	assert.Len(t, m.CallsFor("u2"), 1)
	assert.Empty(t, m.CallsFor("u4"))
}

func TestCallOtherParty(t *testing.T) {
	c := &Call{CallerID: "u1", CalleeID: "u2"}
	assert.Equal(t, "u2", c.OtherParty("u1"))
	assert.Equal(t, "u1", c.OtherParty("u2"))
	assert.Equal(t, "", c.OtherParty("u3"))
	assert.True(t, c.IsParty("u1"))
	assert.False(t, c.IsParty("u3"))
}

func TestCallDurationSeconds(t *testing.T) {
	start := time.Now()
	c := &Call{CreatedAt: start}
	assert.Equal(t, 42, c.DurationSeconds(start.Add(42*time.Second)))
	assert.Equal(t, 0, c.DurationSeconds(start.Add(500*time.Millisecond)))
}

func TestCallManagerRingTimerFires(t *testing.T) {
	fired := make(chan string, 1)
	m := NewCallManager(15*time.Millisecond, func(callID string) {
		fired <- callID
	})

	_, err := m.Initiate("c1", "u1", "u2", "audio", "")
	require.NoError(t, err)

	select {
	case id := <-fired:
		assert.Equal(t, "c1", id)
	case <-time.After(time.Second):
		t.Fatal("ring timer never fired")
	}
}

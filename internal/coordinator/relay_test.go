package coordinator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub-backend/internal/domain"
)

func setupRingingCall(t *testing.T) (*Coordinator, *fakeTransport, domain.Session, domain.Session) {
	t.Helper()
	c, transport, _ := newTestCoordinator(t, time.Minute)
	caller, callee := session("u1"), session("u2")
	connect(c, caller)
	connect(c, callee)
	clientEvent(c, caller, domain.EventCallInitiate, domain.CallInitiatePayload{
		CallID: "c1", CalleeID: "u2", CallType: "video",
	})
	return c, transport, caller, callee
}

func TestSignalOfferForwardedToCallee(t *testing.T) {
	c, transport, caller, _ := setupRingingCall(t)

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0..."}`)
	clientEvent(c, caller, domain.EventSignalOffer, domain.SignalPayload{CallID: "c1", Payload: sdp})

	offers := transport.byEvent(domain.EventSignalOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "u2", offers[0].user)
	fwd := offers[0].payload.(domain.SignalForwardPayload)
	assert.Equal(t, "c1", fwd.CallID)
	assert.Equal(t, "u1", fwd.FromUserID)
	assert.JSONEq(t, string(sdp), string(fwd.Payload))
}

func TestSignalAnswerForwardedToCaller(t *testing.T) {
	c, transport, _, callee := setupRingingCall(t)

	clientEvent(c, callee, domain.EventSignalAnswer, domain.SignalPayload{
		CallID: "c1", Payload: json.RawMessage(`{"type":"answer"}`),
	})

	answers := transport.byEvent(domain.EventSignalAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "u1", answers[0].user)
	fwd := answers[0].payload.(domain.SignalForwardPayload)
	assert.Equal(t, "u2", fwd.FromUserID)
}

func TestSignalOfferUnknownCallReportsError(t *testing.T) {
	c, transport, caller, _ := setupRingingCall(t)

	clientEvent(c, caller, domain.EventSignalOffer, domain.SignalPayload{
		CallID: "no-such-call", Payload: json.RawMessage(`{}`),
	})

	errs := transport.byEvent(domain.EventSignalError)
	require.Len(t, errs, 1)
	assert.Equal(t, caller.ConnID, errs[0].conn)
	pl := errs[0].payload.(domain.SignalErrorPayload)
	assert.Equal(t, "no-such-call", pl.CallID)
	assert.Equal(t, domain.EventSignalOffer, pl.Event)
	assert.Equal(t, "not-found", pl.Reason)
}

func TestSignalICEUnknownCallDroppedSilently(t *testing.T) {
	c, transport, caller, _ := setupRingingCall(t)
	before := transport.count()

	// Late candidates after teardown are expected traffic, not errors.
	clientEvent(c, caller, domain.EventSignalICE, domain.SignalPayload{
		CallID: "no-such-call", Payload: json.RawMessage(`{"candidate":"..."}`),
	})

	assert.Equal(t, before, transport.count())
}

func TestSignalFromNonParty(t *testing.T) {
	c, transport, _, _ := setupRingingCall(t)
	outsider := session("u3")
	connect(c, outsider)

	clientEvent(c, outsider, domain.EventSignalOffer, domain.SignalPayload{
		CallID: "c1", Payload: json.RawMessage(`{}`),
	})
	errs := transport.byEvent(domain.EventSignalError)
	require.Len(t, errs, 1)
	assert.Equal(t, "forbidden", errs[0].payload.(domain.SignalErrorPayload).Reason)

	// The same probe over the ICE channel leaks nothing.
	before := transport.count()
	clientEvent(c, outsider, domain.EventSignalICE, domain.SignalPayload{
		CallID: "c1", Payload: json.RawMessage(`{}`),
	})
	assert.Equal(t, before, transport.count())
}

func TestSignalMissingCallID(t *testing.T) {
	c, transport, caller, _ := setupRingingCall(t)

	clientEvent(c, caller, domain.EventSignalOffer, domain.SignalPayload{
		Payload: json.RawMessage(`{}`),
	})

	errs := transport.byEvent(domain.EventSignalError)
	require.Len(t, errs, 1)
	assert.Equal(t, "invalid-payload", errs[0].payload.(domain.SignalErrorPayload).Reason)
}

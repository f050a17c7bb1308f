package coordinator

import (
	"encoding/json"

	"signalhub-backend/internal/domain"
	apperrors "signalhub-backend/pkg/errors"
)

func (c *Coordinator) handleSignalOffer(s domain.Session, data json.RawMessage) ([]Effect, error) {
	return c.relaySignal(s, data, domain.EventSignalOffer)
}

func (c *Coordinator) handleSignalAnswer(s domain.Session, data json.RawMessage) ([]Effect, error) {
	return c.relaySignal(s, data, domain.EventSignalAnswer)
}

func (c *Coordinator) handleSignalICE(s domain.Session, data json.RawMessage) ([]Effect, error) {
	return c.relaySignal(s, data, domain.EventSignalICE)
}

// relaySignal forwards an opaque negotiation payload (offer, answer, or ICE
// candidate) to the other party of the call, tagged with the sender.
//
// ICE candidates may legitimately arrive just after call teardown, so an
// unknown call drops them silently. A missing call during offer/answer
// exchange is a protocol desync the client should react to, so those
// surface an explicit error.
func (c *Coordinator) relaySignal(s domain.Session, data json.RawMessage, event string) ([]Effect, error) {
	var p domain.SignalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallID == "" {
		return nil, apperrors.ValidationError("call_id required")
	}

	call := c.calls.Get(p.CallID)
	if call == nil {
		if event == domain.EventSignalICE {
			return nil, nil
		}
		return nil, apperrors.CallNotFoundError(p.CallID)
	}
	if !call.IsParty(s.UserID) {
		if event == domain.EventSignalICE {
			return nil, nil
		}
		return nil, apperrors.ForbiddenError("not a party to this call")
	}

	return []Effect{
		emitToUser(call.OtherParty(s.UserID), event, domain.SignalForwardPayload{
			CallID:     call.ID,
			FromUserID: s.UserID,
			Payload:    p.Payload,
		}),
	}, nil
}

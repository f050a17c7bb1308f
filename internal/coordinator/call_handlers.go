package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"signalhub-backend/internal/domain"
	"signalhub-backend/pkg/constants"
	apperrors "signalhub-backend/pkg/errors"
	"signalhub-backend/pkg/logger"
	"signalhub-backend/pkg/metrics"
)

// handleCallInitiate validates the initiation, creates the ringing call, and
// notifies both parties. An offline callee is rejected immediately: a call
// with no reachable callee cannot meaningfully ring.
func (c *Coordinator) handleCallInitiate(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.CallInitiatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperrors.ValidationError("malformed call-initiate payload")
	}
	if p.CallID == "" || p.CalleeID == "" {
		return nil, apperrors.ValidationError("call_id and callee_id required")
	}
	if p.CallType != constants.CallTypeAudio && p.CallType != constants.CallTypeVideo {
		return nil, apperrors.ValidationError("call_type must be audio or video")
	}
	if p.CallerID != "" && p.CallerID != s.UserID {
		return nil, apperrors.UnauthorizedError("caller_id does not match the authenticated user")
	}
	if p.CalleeID == s.UserID {
		return nil, apperrors.ValidationError("cannot call yourself")
	}
	if !c.presence.IsOnline(p.CalleeID) {
		return nil, apperrors.UnreachableError(p.CalleeID)
	}

	callerName := p.CallerName
	if callerName == "" {
		callerName = s.DisplayName
	}
	call, err := c.calls.Initiate(p.CallID, s.UserID, p.CalleeID, p.CallType, callerName)
	if err != nil {
		return nil, err
	}

	metrics.CallsInitiatedTotal.WithLabelValues(call.Type).Inc()
	metrics.CallsActive.Set(float64(c.calls.Active()))
	logger.Info("call ringing",
		zap.String("call_id", call.ID),
		zap.String("caller_id", call.CallerID),
		zap.String("callee_id", call.CalleeID),
		zap.String("call_type", call.Type))

	return []Effect{
		emitToUser(call.CalleeID, domain.EventCallInvitation, domain.CallInvitationPayload{
			CallID:     call.ID,
			CallerID:   call.CallerID,
			CallerName: call.CallerName,
			CallType:   call.Type,
		}),
		emitToConn(s.ConnID, domain.EventCallInitiatedAck, domain.CallInitiatedAckPayload{
			CallID: call.ID,
			Status: string(domain.CallStateRinging),
		}),
	}, nil
}

// handleCallAccept transitions the call to accepted and tells the caller.
// A missing call is a genuine error here, unlike the terminal actions.
func (c *Coordinator) handleCallAccept(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.CallAcceptPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallID == "" {
		return nil, apperrors.ValidationError("call_id required")
	}

	call, err := c.calls.Accept(p.CallID, s.UserID)
	if err != nil {
		return nil, err
	}

	logger.Info("call accepted",
		zap.String("call_id", call.ID),
		zap.String("acceptor_id", s.UserID))

	return []Effect{
		emitToUser(call.CallerID, domain.EventCallAccepted, domain.CallAcceptedPayload{
			CallID:     call.ID,
			AcceptorID: s.UserID,
		}),
	}, nil
}

// handleCallReject removes the call and notifies the caller. An unknown call
// ID is tolerated as a no-op.
func (c *Coordinator) handleCallReject(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.CallRejectPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallID == "" {
		return nil, apperrors.ValidationError("call_id required")
	}

	existing := c.calls.Get(p.CallID)
	if existing == nil {
		return nil, nil
	}
	if !existing.IsParty(s.UserID) {
		return nil, apperrors.ForbiddenError("not a party to this call")
	}

	call, _ := c.calls.Reject(p.CallID)
	c.finalizeCall(call, domain.CallOutcomeRejected)

	return []Effect{
		emitToUser(call.CallerID, domain.EventCallRejected, domain.CallRejectedPayload{
			CallID:     call.ID,
			RejectorID: s.UserID,
			Reason:     p.Reason,
		}),
	}, nil
}

// handleCallEnd removes the call, computes its duration, and notifies the
// other party. An unknown call ID is tolerated as a no-op.
func (c *Coordinator) handleCallEnd(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.CallEndPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallID == "" {
		return nil, apperrors.ValidationError("call_id required")
	}

	existing := c.calls.Get(p.CallID)
	if existing == nil {
		return nil, nil
	}
	if !existing.IsParty(s.UserID) {
		return nil, apperrors.ForbiddenError("not a party to this call")
	}

	call, _ := c.calls.End(p.CallID)
	outcome := domain.CallOutcomeEnded
	if call.State == domain.CallStateRinging {
		// Caller hung up before the callee answered.
		outcome = domain.CallOutcomeMissed
	}
	c.finalizeCall(call, outcome)

	return []Effect{
		emitToUser(call.OtherParty(s.UserID), domain.EventCallEnded, domain.CallEndedPayload{
			CallID:   call.ID,
			EnderID:  s.UserID,
			Reason:   "hangup",
			Duration: call.DurationSeconds(time.Now()),
		}),
	}, nil
}

// handleRingTimeout forces the TIMED_OUT transition when a ring deadline
// fires. The call is re-checked at fire time; a timer racing a completed
// transition is a no-op.
func (c *Coordinator) handleRingTimeout(callID string) []Effect {
	call, ok := c.calls.Expire(callID)
	if !ok {
		return nil
	}

	c.finalizeCall(call, domain.CallOutcomeTimedOut)
	logger.Info("call timed out", zap.String("call_id", call.ID))

	payload := domain.CallTimedOutPayload{CallID: call.ID}
	return []Effect{
		emitToUser(call.CallerID, domain.EventCallTimedOut, payload),
		emitToUser(call.CalleeID, domain.EventCallTimedOut, payload),
	}
}

// finalizeCall updates metrics and hands the terminal record to the history
// collaborator without blocking the loop.
func (c *Coordinator) finalizeCall(call *Call, outcome domain.CallOutcome) {
	now := time.Now()
	metrics.CallsActive.Set(float64(c.calls.Active()))
	metrics.CallsTerminatedTotal.WithLabelValues(string(outcome)).Inc()
	if call.State == domain.CallStateAccepted {
		metrics.CallDurationSeconds.Observe(now.Sub(call.CreatedAt).Seconds())
	}

	if c.history == nil {
		return
	}
	rec := &domain.CallHistoryRecord{
		CallID:    call.ID,
		CallerID:  call.CallerID,
		CalleeID:  call.CalleeID,
		CallType:  call.Type,
		StartTime: call.CreatedAt,
		EndTime:   now,
		Duration:  call.DurationSeconds(now),
		Outcome:   outcome,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.history.Record(ctx, rec); err != nil {
			metrics.CallHistoryPublishedTotal.WithLabelValues("error").Inc()
			logger.Warn("failed to record call history",
				zap.String("call_id", rec.CallID),
				zap.Error(err))
			return
		}
		metrics.CallHistoryPublishedTotal.WithLabelValues("ok").Inc()
	}()
}

// mirrorOnline pushes the presence change to the optional Redis mirror
func (c *Coordinator) mirrorOnline(userID string, online bool) {
	if c.mirror == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		if online {
			err = c.mirror.SetUserOnline(ctx, userID)
		} else {
			err = c.mirror.SetUserOffline(ctx, userID)
		}
		if err != nil {
			logger.Warn("presence mirror update failed",
				zap.String("user_id", userID),
				zap.Bool("online", online),
				zap.Error(err))
		}
	}()
}

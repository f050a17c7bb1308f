package coordinator

import (
	"time"

	"go.uber.org/zap"

	"signalhub-backend/internal/domain"
	"signalhub-backend/pkg/logger"
)

// handleDisconnect tears down all state owned by a departing connection.
// The order matters: peers must receive their notifications while the
// departing user is still known to the system, so room fan-out and call
// termination happen before the presence record is removed.
//
// The whole sequence is gated on handle identity: a disconnect from a
// superseded connection (the user reconnected) must not evict the fresh
// registration or end calls the user is still holding on the new
// connection.
func (c *Coordinator) handleDisconnect(s domain.Session) []Effect {
	u := c.presence.Get(s.UserID)
	if u == nil || u.Session.ConnID != s.ConnID {
		logger.Debug("stale disconnect ignored",
			zap.String("user_id", s.UserID),
			zap.String("conn_id", s.ConnID.String()))
		return nil
	}

	var effects []Effect

	// 1. Fan out "member left" to every room the user had joined.
	for _, key := range u.Rooms {
		effects = append(effects,
			emitToRoom(key, domain.EventPeerLeftConv, domain.PeerConversationPayload{
				ConversationKey: key,
				UserID:          s.UserID,
			}, s.UserID),
			leaveRoom(s.ConnID, key),
		)
	}

	// 2. Terminate every call the user participates in.
	now := time.Now()
	for _, call := range c.calls.CallsFor(s.UserID) {
		ended, _ := c.calls.End(call.ID)
		outcome := domain.CallOutcomeEnded
		if ended.State == domain.CallStateRinging {
			outcome = domain.CallOutcomeMissed
		}
		c.finalizeCall(ended, outcome)

		effects = append(effects,
			emitToUser(ended.OtherParty(s.UserID), domain.EventCallEnded, domain.CallEndedPayload{
				CallID:   ended.ID,
				EnderID:  s.UserID,
				Reason:   "peer-disconnected",
				Duration: ended.DurationSeconds(now),
			}),
		)
		logger.Info("call ended by disconnect",
			zap.String("call_id", ended.ID),
			zap.String("user_id", s.UserID))
	}

	// 3. Only now drop the presence record, guarded by handle identity.
	c.presence.Unregister(s.UserID, s.ConnID)
	c.mirrorOnline(s.UserID, false)

	return effects
}

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

// EventKind distinguishes the sources feeding the coordinator loop
type EventKind int

const (
	// EventKindClient is an event issued by an authenticated connection
	EventKindClient EventKind = iota
	// EventKindConnect marks a connection whose identity just resolved
	EventKindConnect
	// EventKindDisconnect marks a connection whose transport signaled loss
	EventKindDisconnect
	// EventKindTimerFired is posted by a call's ring-deadline timer
	EventKindTimerFired
)

// Event is one unit of work for the coordinator loop
type Event struct {
	Kind    EventKind
	Session domain.Session
	Name    string          // client event name (EventKindClient only)
	Payload json.RawMessage // client event payload
	CallID  string          // timer events only
}

// HistoryRecorder receives a record on every terminal call transition. The
// coordinator never blocks on it.
type HistoryRecorder interface {
	Record(ctx context.Context, rec *domain.CallHistoryRecord) error
}

// PresenceMirror is an optional, best-effort external view of the online
// set. Failures are logged and never affect the core.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Config holds the coordinator's tunables
type Config struct {
	RingTimeout time.Duration
	RoomMaxIdle time.Duration
	SweepEvery  time.Duration
}

type handlerFunc func(s domain.Session, data json.RawMessage) ([]Effect, error)

// Coordinator owns all presence, conversation, and call state for the
// process. A single goroutine (Run) drains the inbox and executes every
// handler to completion, so the state maps need no locking.
type Coordinator struct {
	cfg       Config
	transport Transport
	history   HistoryRecorder
	mirror    PresenceMirror

	presence *PresenceRegistry
	rooms    *RoomTracker
	calls    *CallManager

	inbox    chan Event
	handlers map[string]handlerFunc
}

// New constructs a coordinator bound to a transport. history and mirror are
// optional collaborators; pass nil to disable them.
func New(cfg Config, transport Transport, history HistoryRecorder, mirror PresenceMirror) *Coordinator {
	if cfg.RingTimeout <= 0 {
		cfg.RingTimeout = constants.CallRingTimeout
	}
	if cfg.RoomMaxIdle <= 0 {
		cfg.RoomMaxIdle = constants.RoomMaxIdle
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = constants.RoomIdleSweepInterval
	}

	c := &Coordinator{
		cfg:       cfg,
		transport: transport,
		history:   history,
		mirror:    mirror,
		presence:  NewPresenceRegistry(),
		rooms:     NewRoomTracker(),
		inbox:     make(chan Event, constants.CoordinatorInboxBuffer),
	}
	c.calls = NewCallManager(cfg.RingTimeout, func(callID string) {
		c.Enqueue(Event{Kind: EventKindTimerFired, CallID: callID})
	})

	c.handlers = map[string]handlerFunc{
		domain.EventJoinConversation:  c.handleJoinConversation,
		domain.EventLeaveConversation: c.handleLeaveConversation,
		domain.EventSendMessage:       c.handleSendMessage,
		domain.EventTypingStart:       c.handleTypingStart,
		domain.EventTypingStop:        c.handleTypingStop,
		domain.EventCallInitiate:      c.handleCallInitiate,
		domain.EventCallAccept:        c.handleCallAccept,
		domain.EventCallReject:        c.handleCallReject,
		domain.EventCallEnd:           c.handleCallEnd,
		domain.EventSignalOffer:       c.handleSignalOffer,
		domain.EventSignalAnswer:      c.handleSignalAnswer,
		domain.EventSignalICE:         c.handleSignalICE,
	}
	return c
}

// Enqueue posts an event to the loop. It blocks when the inbox is full so
// per-connection ordering is preserved.
func (c *Coordinator) Enqueue(ev Event) {
	c.inbox <- ev
	metrics.CoordinatorInboxLength.Set(float64(len(c.inbox)))
}

// Run drains the inbox until ctx is cancelled. It also drives the optional
// idle-room sweep.
func (c *Coordinator) Run(ctx context.Context) {
	sweep := time.NewTicker(c.cfg.SweepEvery)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.inbox:
			c.Process(ev)
			metrics.CoordinatorInboxLength.Set(float64(len(c.inbox)))
		case <-sweep.C:
			if n := c.rooms.PruneIdle(c.cfg.RoomMaxIdle); n > 0 {
				logger.Debug("swept idle conversation rooms", zap.Int("removed", n))
			}
		}
	}
}

// Process dispatches a single event and applies the resulting effects.
// Exported so tests can drive the coordinator synchronously.
func (c *Coordinator) Process(ev Event) {
	c.apply(c.dispatch(ev))
}

func (c *Coordinator) dispatch(ev Event) []Effect {
	switch ev.Kind {
	case EventKindConnect:
		return c.handleConnect(ev.Session)
	case EventKindDisconnect:
		return c.handleDisconnect(ev.Session)
	case EventKindTimerFired:
		return c.handleRingTimeout(ev.CallID)
	case EventKindClient:
		handler, ok := c.handlers[ev.Name]
		if !ok {
			metrics.EventsDispatchedTotal.WithLabelValues(ev.Name, "error").Inc()
			return []Effect{emitToConn(ev.Session.ConnID, domain.EventError, domain.ErrorPayload{
				Event:  ev.Name,
				Code:   string(apperrors.ErrCodeValidation),
				Reason: "unknown event",
			})}
		}
		effects, err := handler(ev.Session, ev.Payload)
		if err != nil {
			metrics.EventsDispatchedTotal.WithLabelValues(ev.Name, "error").Inc()
			return c.failureEffects(ev, err)
		}
		metrics.EventsDispatchedTotal.WithLabelValues(ev.Name, "ok").Inc()
		return effects
	}
	return nil
}

// failureEffects converts a handler error into a structured failure event
// for the acting connection only. Counterparties are never notified of
// attempts they were not already aware of.
func (c *Coordinator) failureEffects(ev Event, err error) []Effect {
	appErr := apperrors.GetAppError(err)
	logger.Debug("event rejected",
		zap.String("event", ev.Name),
		zap.String("user_id", ev.Session.UserID),
		zap.String("code", string(appErr.Code)))

	switch ev.Name {
	case domain.EventCallInitiate, domain.EventCallAccept, domain.EventCallReject, domain.EventCallEnd:
		metrics.CallFailuresTotal.WithLabelValues(appErr.Reason()).Inc()
		return []Effect{emitToConn(ev.Session.ConnID, domain.EventCallFailed, domain.CallFailedPayload{
			CallID: peekCallID(ev.Payload),
			Reason: appErr.Reason(),
		})}
	case domain.EventSignalOffer, domain.EventSignalAnswer, domain.EventSignalICE:
		return []Effect{emitToConn(ev.Session.ConnID, domain.EventSignalError, domain.SignalErrorPayload{
			CallID: peekCallID(ev.Payload),
			Event:  ev.Name,
			Reason: appErr.Reason(),
		})}
	default:
		return []Effect{emitToConn(ev.Session.ConnID, domain.EventError, domain.ErrorPayload{
			Event:  ev.Name,
			Code:   string(appErr.Code),
			Reason: appErr.Reason(),
		})}
	}
}

// peekCallID extracts the call_id field without binding the full payload
func peekCallID(data json.RawMessage) string {
	var probe struct {
		CallID string `json:"call_id"`
	}
	_ = json.Unmarshal(data, &probe)
	return probe.CallID
}

// handleConnect registers presence for a freshly authenticated connection.
// A reconnect supersedes the previous handle; in-flight calls are left
// untouched and keep running against the user ID.
func (c *Coordinator) handleConnect(s domain.Session) []Effect {
	superseded := c.presence.Register(s)
	if superseded != nil {
		logger.Info("connection superseded",
			zap.String("user_id", s.UserID),
			zap.String("old_conn", superseded.ConnID.String()),
			zap.String("new_conn", s.ConnID.String()))
	}
	c.mirrorOnline(s.UserID, true)

	return []Effect{emitToConn(s.ConnID, domain.EventConnected, domain.ConnectedPayload{
		UserID: s.UserID,
	})}
}

// handleJoinConversation creates/touches the room, tracks membership, and
// notifies the peer.
func (c *Coordinator) handleJoinConversation(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.JoinConversationPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		return nil, apperrors.ValidationError("peer_id required")
	}
	if p.PeerID == s.UserID {
		return nil, apperrors.ValidationError("cannot join a conversation with yourself")
	}

	room := c.rooms.Join(s.UserID, p.PeerID)
	c.presence.AddRoom(s.UserID, room.Key)

	return []Effect{
		joinRoom(s.ConnID, room.Key),
		emitToConn(s.ConnID, domain.EventConvJoined, domain.ConversationJoinedPayload{
			ConversationKey: room.Key,
			MembersOnline:   c.rooms.MembersOnline(room.Key, c.presence),
		}),
		emitToRoom(room.Key, domain.EventPeerJoinedConv, domain.PeerConversationPayload{
			ConversationKey: room.Key,
			UserID:          s.UserID,
		}, s.UserID),
	}, nil
}

// handleLeaveConversation releases the transport subscription; the room
// record persists as a logical entity.
func (c *Coordinator) handleLeaveConversation(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.LeaveConversationPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		return nil, apperrors.ValidationError("peer_id required")
	}

	key := ConversationKey(s.UserID, p.PeerID)
	c.presence.RemoveRoom(s.UserID, key)
	c.rooms.Touch(key)

	return []Effect{
		emitToRoom(key, domain.EventPeerLeftConv, domain.PeerConversationPayload{
			ConversationKey: key,
			UserID:          s.UserID,
		}, s.UserID),
		leaveRoom(s.ConnID, key),
	}, nil
}

// handleSendMessage multicasts the message to the room and acks the sender.
// Persistence is a separate collaborator's concern; first message creates
// the room record lazily.
func (c *Coordinator) handleSendMessage(s domain.Session, data json.RawMessage) ([]Effect, error) {
	var p domain.SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		return nil, apperrors.ValidationError("peer_id required")
	}
	if p.Content == "" {
		return nil, apperrors.ValidationError("content required")
	}

	room := c.rooms.Join(s.UserID, p.PeerID)
	now := time.Now()

	return []Effect{
		emitToRoom(room.Key, domain.EventMessage, domain.MessageEventPayload{
			ConversationKey: room.Key,
			MessageID:       p.MessageID,
			SenderID:        s.UserID,
			Content:         p.Content,
			Timestamp:       now,
		}, s.UserID),
		emitToConn(s.ConnID, domain.EventMessageDelivered, domain.MessageDeliveredPayload{
			ConversationKey: room.Key,
			MessageID:       p.MessageID,
			Timestamp:       now,
		}),
	}, nil
}

func (c *Coordinator) handleTypingStart(s domain.Session, data json.RawMessage) ([]Effect, error) {
	return c.relayTyping(s, data, domain.EventTypingStart)
}

func (c *Coordinator) handleTypingStop(s domain.Session, data json.RawMessage) ([]Effect, error) {
	return c.relayTyping(s, data, domain.EventTypingStop)
}

// relayTyping forwards a typing indicator to the peer. Typing against a
// room nobody opened carries no information and is dropped.
func (c *Coordinator) relayTyping(s domain.Session, data json.RawMessage, event string) ([]Effect, error) {
	var p domain.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		return nil, apperrors.ValidationError("peer_id required")
	}

	key := ConversationKey(s.UserID, p.PeerID)
	if c.rooms.Get(key) == nil {
		return nil, nil
	}
	c.rooms.Touch(key)

	return []Effect{
		emitToRoom(key, event, domain.TypingEventPayload{
			ConversationKey: key,
			UserID:          s.UserID,
		}, s.UserID),
	}, nil
}

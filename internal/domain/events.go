package domain

import (
	"encoding/json"
	"time"
)

// Client-issued event names
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventSendMessage       = "send-message"
	EventTypingStart       = "typing-start"
	EventTypingStop        = "typing-stop"
	EventCallInitiate      = "call-initiate"
	EventCallAccept        = "call-accept"
	EventCallReject        = "call-reject"
	EventCallEnd           = "call-end"
	EventSignalOffer       = "signaling-offer"
	EventSignalAnswer      = "signaling-answer"
	EventSignalICE         = "signaling-ice-candidate"
)

// Client-facing event names
const (
	EventConnected         = "connected"
	EventConvJoined        = "conversation-joined"
	EventPeerJoinedConv    = "peer-joined-conversation"
	EventPeerLeftConv      = "peer-left-conversation"
	EventMessage           = "message"
	EventMessageDelivered  = "message-delivered"
	EventCallInvitation    = "call-invitation"
	EventCallInitiatedAck  = "call-initiated-ack"
	EventCallAccepted      = "call-accepted"
	EventCallRejected      = "call-rejected"
	EventCallEnded         = "call-ended"
	EventCallTimedOut      = "call-timed-out"
	EventCallFailed        = "call-failed"
	EventSignalError       = "signaling-error"
	EventError             = "error"
)

// Envelope is the wire frame for every event in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type JoinConversationPayload struct {
	PeerID string `json:"peer_id"`
}

type LeaveConversationPayload struct {
	PeerID string `json:"peer_id"`
}

type SendMessagePayload struct {
	PeerID    string `json:"peer_id"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content"`
}

type TypingPayload struct {
	PeerID string `json:"peer_id"`
}

type CallInitiatePayload struct {
	CallID     string `json:"call_id"`
	CallerID   string `json:"caller_id"`
	CalleeID   string `json:"callee_id"`
	CallType   string `json:"call_type"` // audio, video
	CallerName string `json:"caller_name,omitempty"`
}

type CallAcceptPayload struct {
	CallID string `json:"call_id"`
}

type CallRejectPayload struct {
	CallID string `json:"call_id"`
	Reason string `json:"reason,omitempty"`
}

type CallEndPayload struct {
	CallID string `json:"call_id"`
}

// SignalPayload carries an opaque negotiation blob (SDP or ICE candidate).
// The coordinator relays it untouched.
type SignalPayload struct {
	CallID  string          `json:"call_id"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound payloads

type ConnectedPayload struct {
	UserID string `json:"user_id"`
}

type ConversationJoinedPayload struct {
	ConversationKey string   `json:"conversation_key"`
	MembersOnline   []string `json:"members_online"`
}

type PeerConversationPayload struct {
	ConversationKey string `json:"conversation_key"`
	UserID          string `json:"user_id"`
}

type MessageEventPayload struct {
	ConversationKey string    `json:"conversation_key"`
	MessageID       string    `json:"message_id,omitempty"`
	SenderID        string    `json:"sender_id"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
}

type MessageDeliveredPayload struct {
	ConversationKey string    `json:"conversation_key"`
	MessageID       string    `json:"message_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

type TypingEventPayload struct {
	ConversationKey string `json:"conversation_key"`
	UserID          string `json:"user_id"`
}

type CallInvitationPayload struct {
	CallID     string `json:"call_id"`
	CallerID   string `json:"caller_id"`
	CallerName string `json:"caller_name,omitempty"`
	CallType   string `json:"call_type"`
}

type CallInitiatedAckPayload struct {
	CallID string `json:"call_id"`
	Status string `json:"status"` // ringing
}

type CallAcceptedPayload struct {
	CallID     string `json:"call_id"`
	AcceptorID string `json:"acceptor_id"`
}

type CallRejectedPayload struct {
	CallID     string `json:"call_id"`
	RejectorID string `json:"rejector_id"`
	Reason     string `json:"reason,omitempty"`
}

type CallEndedPayload struct {
	CallID   string `json:"call_id"`
	EnderID  string `json:"ender_id,omitempty"`
	Reason   string `json:"reason,omitempty"` // hangup, peer-disconnected
	Duration int    `json:"duration"`         // in seconds
}

type CallTimedOutPayload struct {
	CallID string `json:"call_id"`
}

type CallFailedPayload struct {
	CallID string `json:"call_id,omitempty"`
	Reason string `json:"reason"` // unauthorized, busy, unreachable, not-found
}

// SignalForwardPayload is the relayed form of a SignalPayload, tagged with
// the sender so the receiving peer can attribute it.
type SignalForwardPayload struct {
	CallID     string          `json:"call_id"`
	FromUserID string          `json:"from_user_id"`
	Payload    json.RawMessage `json:"payload"`
}

type SignalErrorPayload struct {
	CallID string `json:"call_id,omitempty"`
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Event  string `json:"event,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

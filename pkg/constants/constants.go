// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout is the per-message write deadline
	WebSocketWriteTimeout = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute
)

// Call-related constants
const (
	// CallRingTimeout is how long an unanswered call rings before timing out
	CallRingTimeout = 30 * time.Second

	// CallTypeAudio indicates an audio-only call
	CallTypeAudio = "audio"

	// CallTypeVideo indicates a video call
	CallTypeVideo = "video"
)

// Conversation-related constants
const (
	// RoomIdleSweepInterval is how often idle conversation rooms are swept
	RoomIdleSweepInterval = 10 * time.Minute

	// RoomMaxIdle is how long a room may stay inactive before the sweep drops it
	RoomMaxIdle = 24 * time.Hour
)

// Presence-related constants
const (
	// PresenceMirrorTTL is the TTL on the per-user presence key in Redis
	PresenceMirrorTTL = 5 * time.Minute
)

// Transport limits
const (
	// MaxEventPayloadBytes caps a single inbound client event
	MaxEventPayloadBytes = 64 * 1024

	// ClientSendBuffer is the per-connection outbound queue size
	ClientSendBuffer = 256

	// CoordinatorInboxBuffer is the event loop inbox size
	CoordinatorInboxBuffer = 1024
)

package domain

import "time"

// CallState is the lifecycle state of a call while it lives in memory.
// Terminal states are not represented here: a call reaching one is removed.
type CallState string

const (
	CallStateRinging  CallState = "ringing"
	CallStateAccepted CallState = "accepted"
)

// CallOutcome labels the terminal transition recorded to the history store
type CallOutcome string

const (
	CallOutcomeEnded    CallOutcome = "ended"
	CallOutcomeRejected CallOutcome = "rejected"
	CallOutcomeTimedOut CallOutcome = "timed_out"
	CallOutcomeMissed   CallOutcome = "missed" // rang but was never accepted
)

// CallHistoryRecord is emitted to the durable history collaborator on every
// terminal call transition. The coordinator never blocks on this write.
type CallHistoryRecord struct {
	CallID    string      `json:"call_id"`
	CallerID  string      `json:"caller_id"`
	CalleeID  string      `json:"callee_id"`
	CallType  string      `json:"call_type"` // audio, video
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Duration  int         `json:"duration"` // in seconds
	Outcome   CallOutcome `json:"outcome"`
}

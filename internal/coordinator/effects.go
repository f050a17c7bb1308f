package coordinator

import "github.com/google/uuid"

// Transport is the boundary the coordinator emits through. The WebSocket
// gateway implements it; tests substitute a recorder.
type Transport interface {
	// EmitToUser delivers an event to the user's currently registered connection
	EmitToUser(userID, event string, payload any)
	// EmitToConn delivers an event to one specific connection
	EmitToConn(connID uuid.UUID, event string, payload any)
	// EmitToRoom multicasts an event to every connection subscribed to a room,
	// skipping exceptUserID when non-empty
	EmitToRoom(room, event string, payload any, exceptUserID string)
	// JoinRoom subscribes a connection to a room
	JoinRoom(connID uuid.UUID, room string)
	// LeaveRoom releases a connection's room subscription
	LeaveRoom(connID uuid.UUID, room string)
}

// EffectOp identifies the kind of side effect a handler requests
type EffectOp int

const (
	OpEmitToUser EffectOp = iota
	OpEmitToConn
	OpEmitToRoom
	OpJoinRoom
	OpLeaveRoom
)

// Effect is a notification or subscription change returned by a handler as
// data. The event loop applies effects through the Transport after the
// handler's state mutations are complete, so handlers stay testable without
// a live transport.
type Effect struct {
	Op      EffectOp
	UserID  string
	ConnID  uuid.UUID
	Room    string
	Except  string // EmitToRoom: user ID to skip
	Event   string
	Payload any
}

func emitToUser(userID, event string, payload any) Effect {
	return Effect{Op: OpEmitToUser, UserID: userID, Event: event, Payload: payload}
}

func emitToConn(connID uuid.UUID, event string, payload any) Effect {
	return Effect{Op: OpEmitToConn, ConnID: connID, Event: event, Payload: payload}
}

func emitToRoom(room, event string, payload any, except string) Effect {
	return Effect{Op: OpEmitToRoom, Room: room, Event: event, Payload: payload, Except: except}
}

func joinRoom(connID uuid.UUID, room string) Effect {
	return Effect{Op: OpJoinRoom, ConnID: connID, Room: room}
}

func leaveRoom(connID uuid.UUID, room string) Effect {
	return Effect{Op: OpLeaveRoom, ConnID: connID, Room: room}
}

// apply pushes a batch of effects through the transport
func (c *Coordinator) apply(effects []Effect) {
	for _, e := range effects {
		switch e.Op {
		case OpEmitToUser:
			c.transport.EmitToUser(e.UserID, e.Event, e.Payload)
		case OpEmitToConn:
			c.transport.EmitToConn(e.ConnID, e.Event, e.Payload)
		case OpEmitToRoom:
			c.transport.EmitToRoom(e.Room, e.Event, e.Payload, e.Except)
		case OpJoinRoom:
			c.transport.JoinRoom(e.ConnID, e.Room)
		case OpLeaveRoom:
			c.transport.LeaveRoom(e.ConnID, e.Room)
		}
	}
}

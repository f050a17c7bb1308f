package coordinator

import (
	"time"
)

// ConversationKey derives the canonical room key for a two-party
// conversation. It is order-independent, so both parties always compute the
// same key.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// ConversationRoom is the logical record of one two-party conversation. The
// participant pair is always exactly the two IDs the key was derived from.
type ConversationRoom struct {
	Key          string
	ParticipantA string
	ParticipantB string
	LastActivity time.Time
}

// HasParticipant reports whether userID is one of the room's two parties
func (r *ConversationRoom) HasParticipant(userID string) bool {
	return r.ParticipantA == userID || r.ParticipantB == userID
}

// OtherParticipant returns the peer of userID, or "" if userID is not a party
func (r *ConversationRoom) OtherParticipant(userID string) string {
	switch userID {
	case r.ParticipantA:
		return r.ParticipantB
	case r.ParticipantB:
		return r.ParticipantA
	}
	return ""
}

// RoomTracker owns the conversation room records. Rooms are created lazily
// on first join or first message and never explicitly deleted; PruneIdle is
// an optional sweep, not required for correctness.
type RoomTracker struct {
	rooms map[string]*ConversationRoom
}

// NewRoomTracker creates an empty tracker
func NewRoomTracker() *RoomTracker {
	return &RoomTracker{rooms: make(map[string]*ConversationRoom)}
}

// Join computes the canonical key for the pair, creates the room record if
// absent, touches last-activity, and returns the room.
func (t *RoomTracker) Join(userA, userB string) *ConversationRoom {
	key := ConversationKey(userA, userB)
	room, ok := t.rooms[key]
	if !ok {
		a, b := userA, userB
		if a > b {
			a, b = b, a
		}
		room = &ConversationRoom{Key: key, ParticipantA: a, ParticipantB: b}
		t.rooms[key] = room
	}
	room.LastActivity = time.Now()
	return room
}

// Get returns the room for a key, or nil
func (t *RoomTracker) Get(key string) *ConversationRoom {
	return t.rooms[key]
}

// Touch updates a room's last-activity time if the room exists
func (t *RoomTracker) Touch(key string) {
	if room, ok := t.rooms[key]; ok {
		room.LastActivity = time.Now()
	}
}

// MembersOnline intersects the room's logical participants with the
// presence registry's online set.
func (t *RoomTracker) MembersOnline(key string, presence *PresenceRegistry) []string {
	room, ok := t.rooms[key]
	if !ok {
		return nil
	}
	online := make([]string, 0, 2)
	for _, id := range []string{room.ParticipantA, room.ParticipantB} {
		if presence.IsOnline(id) {
			online = append(online, id)
		}
	}
	return online
}

// PruneIdle drops rooms inactive for longer than maxIdle and returns how
// many were removed.
func (t *RoomTracker) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for key, room := range t.rooms {
		if room.LastActivity.Before(cutoff) {
			delete(t.rooms, key)
			removed++
		}
	}
	return removed
}

// Count returns the number of tracked rooms
func (t *RoomTracker) Count() int {
	return len(t.rooms)
}

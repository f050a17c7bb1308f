package coordinator

import (
	"github.com/google/uuid"

	"signalhub-backend/internal/domain"
)

// ConnectedUser is the presence record for one online user. The Rooms slice
// is the ordered set of conversation keys the user has joined on this
// connection; it only drives disconnect fan-out.
type ConnectedUser struct {
	Session domain.Session
	Rooms   []string
}

// PresenceRegistry maps online user IDs to their live connection. All access
// happens on the coordinator loop, so no locking is needed.
type PresenceRegistry struct {
	users map[string]*ConnectedUser
}

// NewPresenceRegistry creates an empty registry
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{users: make(map[string]*ConnectedUser)}
}

// Register inserts or overwrites the mapping for a user. On reconnect the
// old handle is superseded; its eventual disconnect must not evict this
// registration (Unregister guards by connection ID). Returns the superseded
// session, if any.
func (p *PresenceRegistry) Register(s domain.Session) (superseded *domain.Session) {
	if prev, ok := p.users[s.UserID]; ok && prev.Session.ConnID != s.ConnID {
		old := prev.Session
		superseded = &old
	}
	p.users[s.UserID] = &ConnectedUser{Session: s}
	return superseded
}

// IsOnline reports whether the user currently holds a registered connection
func (p *PresenceRegistry) IsOnline(userID string) bool {
	_, ok := p.users[userID]
	return ok
}

// Get returns the presence record for a user, or nil
func (p *PresenceRegistry) Get(userID string) *ConnectedUser {
	return p.users[userID]
}

// Unregister removes the mapping only if the stored handle matches the
// connection initiating the removal. A stale disconnect from a superseded
// connection is a no-op.
func (p *PresenceRegistry) Unregister(userID string, connID uuid.UUID) bool {
	u, ok := p.users[userID]
	if !ok || u.Session.ConnID != connID {
		return false
	}
	delete(p.users, userID)
	return true
}

// AddRoom records that the user joined a conversation room
func (p *PresenceRegistry) AddRoom(userID, key string) {
	u, ok := p.users[userID]
	if !ok {
		return
	}
	for _, k := range u.Rooms {
		if k == key {
			return
		}
	}
	u.Rooms = append(u.Rooms, key)
}

// RemoveRoom drops a conversation room from the user's joined set
func (p *PresenceRegistry) RemoveRoom(userID, key string) {
	u, ok := p.users[userID]
	if !ok {
		return
	}
	for i, k := range u.Rooms {
		if k == key {
			u.Rooms = append(u.Rooms[:i], u.Rooms[i+1:]...)
			return
		}
	}
}

// Count returns the number of online users
func (p *PresenceRegistry) Count() int {
	return len(p.users)
}

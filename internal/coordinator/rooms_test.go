package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKeyOrderIndependent(t *testing.T) {
	assert.Equal(t, "alice:bob", ConversationKey("alice", "bob"))
	assert.Equal(t, "alice:bob", ConversationKey("bob", "alice"))
	assert.Equal(t, ConversationKey("u1", "u2"), ConversationKey("u2", "u1"))
}

func TestRoomTrackerJoinIsIdempotent(t *testing.T) {
	tr := NewRoomTracker()

	r1 := tr.Join("bob", "alice")
	r2 := tr.Join("alice", "bob")
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, tr.Count())

	assert.Equal(t, "alice", r1.ParticipantA)
	assert.Equal(t, "bob", r1.ParticipantB)
	assert.True(t, r1.HasParticipant("alice"))
	assert.False(t, r1.HasParticipant("carol"))
	assert.Equal(t, "bob", r1.OtherParticipant("alice"))
	assert.Equal(t, "", r1.OtherParticipant("carol"))
}

func TestRoomTrackerMembersOnline(t *testing.T) {
	tr := NewRoomTracker()
	p := NewPresenceRegistry()

	room := tr.Join("alice", "bob")

	assert.Empty(t, tr.MembersOnline(room.Key, p))

	p.Register(session("alice"))
	assert.Equal(t, []string{"alice"}, tr.MembersOnline(room.Key, p))

	p.Register(session("bob"))
	assert.ElementsMatch(t, []string{"alice", "bob"}, tr.MembersOnline(room.Key, p))

	assert.Nil(t, tr.MembersOnline("no:room", p))
}

func TestRoomTrackerTouch(t *testing.T) {
	tr := NewRoomTracker()
	room := tr.Join("alice", "bob")

	room.LastActivity = time.Now().Add(-time.Hour)
	tr.Touch(room.Key)
	assert.WithinDuration(t, time.Now(), room.LastActivity, time.Second)

	// Touching an unknown key does not create a room.
	tr.Touch("no:room")
	assert.Equal(t, 1, tr.Count())
}

func TestRoomTrackerPruneIdle(t *testing.T) {
	tr := NewRoomTracker()

	stale := tr.Join("alice", "bob")
	stale.LastActivity = time.Now().Add(-48 * time.Hour)
	tr.Join("alice", "carol")

	removed := tr.PruneIdle(24 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tr.Count())
	assert.Nil(t, tr.Get(stale.Key))
	require.NotNil(t, tr.Get(ConversationKey("alice", "carol")))
}

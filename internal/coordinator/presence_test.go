package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRegisterAndUnregister(t *testing.T) {
	p := NewPresenceRegistry()
	s := session("u1")

	assert.False(t, p.IsOnline("u1"))
	superseded := p.Register(s)
	assert.Nil(t, superseded)
	assert.True(t, p.IsOnline("u1"))
	assert.Equal(t, 1, p.Count())

	assert.True(t, p.Unregister("u1", s.ConnID))
	assert.False(t, p.IsOnline("u1"))
	assert.Equal(t, 0, p.Count())
}

func TestPresenceReconnectSupersedes(t *testing.T) {
	p := NewPresenceRegistry()
	old := session("u1")
	p.Register(old)

	fresh := session("u1")
	superseded := p.Register(fresh)
	require.NotNil(t, superseded)
	assert.Equal(t, old.ConnID, superseded.ConnID)
	assert.Equal(t, 1, p.Count())

	// The stale handle cannot evict the fresh registration.
	assert.False(t, p.Unregister("u1", old.ConnID))
	assert.True(t, p.IsOnline("u1"))
	assert.Equal(t, fresh.ConnID, p.Get("u1").Session.ConnID)

	assert.True(t, p.Unregister("u1", fresh.ConnID))
	assert.False(t, p.IsOnline("u1"))
}

func TestPresenceReRegisterSameConnNotSuperseded(t *testing.T) {
	p := NewPresenceRegistry()
	s := session("u1")
	p.Register(s)

	assert.Nil(t, p.Register(s))
}

func TestPresenceRoomSet(t *testing.T) {
	p := NewPresenceRegistry()
	s := session("u1")
	p.Register(s)

	p.AddRoom("u1", "a:b")
	p.AddRoom("u1", "a:c")
	p.AddRoom("u1", "a:b") // duplicate join is idempotent
	assert.Equal(t, []string{"a:b", "a:c"}, p.Get("u1").Rooms)

	p.RemoveRoom("u1", "a:b")
	assert.Equal(t, []string{"a:c"}, p.Get("u1").Rooms)

	p.RemoveRoom("u1", "never-joined")
	assert.Equal(t, []string{"a:c"}, p.Get("u1").Rooms)

	// Operations against unknown users are no-ops.
	p.AddRoom("ghost", "a:b")
	p.RemoveRoom("ghost", "a:b")
	assert.Nil(t, p.Get("ghost"))
}

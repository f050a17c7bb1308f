package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub-backend/internal/coordinator"
	"signalhub-backend/internal/domain"
	"signalhub-backend/pkg/jwt"
	"signalhub-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	os.Setenv("LOG_LEVEL", "error")
	logger.InitDefault()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestClient(g *Gateway, userID string) *Client {
	return &Client{
		gateway: g,
		send:    make(chan []byte, 8),
		done:    make(chan struct{}),
		session: domain.Session{UserID: userID, ConnID: uuid.New()},
	}
}

func readFrame(t *testing.T, client *Client) domain.Envelope {
	t.Helper()
	select {
	case frame := <-client.send:
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return domain.Envelope{}
	}
}

func TestEmitToUserDeliversEnvelope(t *testing.T) {
	g := NewGateway(nil, nil, 10)
	client := newTestClient(g, "u1")
	g.addClient(client)

	g.EmitToUser("u1", domain.EventConnected, domain.ConnectedPayload{UserID: "u1"})

	env := readFrame(t, client)
	assert.Equal(t, domain.EventConnected, env.Event)
	var pl domain.ConnectedPayload
	require.NoError(t, json.Unmarshal(env.Data, &pl))
	assert.Equal(t, "u1", pl.UserID)
}

func TestEmitToUnknownTargetsIsNoop(t *testing.T) {
	g := NewGateway(nil, nil, 10)

	g.EmitToUser("nobody", domain.EventConnected, nil)
	g.EmitToConn(uuid.New(), domain.EventConnected, nil)
	g.EmitToRoom("no:room", domain.EventMessage, nil, "")
}

func TestRoomMulticastSkipsExcludedUser(t *testing.T) {
	g := NewGateway(nil, nil, 10)
	alice := newTestClient(g, "alice")
	bob := newTestClient(g, "bob")
	g.addClient(alice)
	g.addClient(bob)

	room := "alice:bob"
	g.JoinRoom(alice.session.ConnID, room)
	g.JoinRoom(bob.session.ConnID, room)

	g.EmitToRoom(room, domain.EventTypingStart, domain.TypingEventPayload{
		ConversationKey: room,
		UserID:          "alice",
	}, "alice")

	env := readFrame(t, bob)
	assert.Equal(t, domain.EventTypingStart, env.Event)
	assert.Empty(t, alice.send, "sender must not receive their own typing event")
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	g := NewGateway(nil, nil, 10)
	client := newTestClient(g, "u1")
	g.addClient(client)

	room := "u1:u2"
	g.JoinRoom(client.session.ConnID, room)
	g.LeaveRoom(client.session.ConnID, room)

	g.EmitToRoom(room, domain.EventMessage, nil, "")
	assert.Empty(t, client.send)
}

func TestRemoveClientTearsDownSubscriptions(t *testing.T) {
	g := NewGateway(nil, nil, 10)
	client := newTestClient(g, "u1")
	g.addClient(client)
	g.JoinRoom(client.session.ConnID, "u1:u2")

	g.removeClient(client)

	select {
	case <-client.done:
	default:
		t.Fatal("done channel not closed on removal")
	}

	g.EmitToUser("u1", domain.EventConnected, nil)
	g.EmitToRoom("u1:u2", domain.EventMessage, nil, "")
	assert.Empty(t, client.send)

	// Removing twice is harmless.
	g.removeClient(client)
}

func TestLastRegisteredConnectionWins(t *testing.T) {
	g := NewGateway(nil, nil, 10)
	old := newTestClient(g, "u1")
	fresh := newTestClient(g, "u1")
	g.addClient(old)
	g.addClient(fresh)

	g.EmitToUser("u1", domain.EventConnected, domain.ConnectedPayload{UserID: "u1"})
	assert.Empty(t, old.send)
	assert.Len(t, fresh.send, 1)

	// The old connection's teardown must not unmap the fresh one.
	g.removeClient(old)
	g.EmitToUser("u1", domain.EventConnected, domain.ConnectedPayload{UserID: "u1"})
	assert.Len(t, fresh.send, 2)
}

func TestDeliverDropsWhenQueueFull(t *testing.T) {
	g := NewGateway(nil, nil, 10)
	client := &Client{
		gateway: g,
		send:    make(chan []byte, 1),
		done:    make(chan struct{}),
		session: domain.Session{UserID: "u1", ConnID: uuid.New()},
	}
	g.addClient(client)

	// Second frame must be dropped, not block the caller.
	g.EmitToUser("u1", domain.EventMessage, nil)
	finished := make(chan struct{})
	go func() {
		g.EmitToUser("u1", domain.EventMessage, nil)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked on a full queue")
	}
	assert.Len(t, client.send, 1)
}

// Handshake tests exercise the full HTTP path with a real client connection.

func newTestServer(t *testing.T) (*httptest.Server, *jwt.Manager) {
	t.Helper()
	jwtManager := jwt.NewManager("test-secret-abcdefghijklmnopqrstuvwxyz", time.Hour)
	gateway := NewGateway(jwtManager, nil, 10)
	coord := coordinator.New(coordinator.Config{}, gateway, nil, nil)
	gateway.SetCoordinator(coord)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go coord.Run(ctx)

	router := gin.New()
	router.GET("/ws", gateway.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, jwtManager
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func TestServeWSAcceptsValidToken(t *testing.T) {
	srv, jwtManager := newTestServer(t)

	token, err := jwtManager.GenerateToken("u1", "Alice")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env domain.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, domain.EventConnected, env.Event)

	var pl domain.ConnectedPayload
	require.NoError(t, json.Unmarshal(env.Data, &pl))
	assert.Equal(t, "u1", pl.UserID)
}

func TestServeWSRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWSRejectsInvalidToken(t *testing.T) {
	srv, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=not-a-token"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWSBearerHeader(t *testing.T) {
	srv, jwtManager := newTestServer(t)

	token, err := jwtManager.GenerateToken("u2", "")
	require.NoError(t, err)

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env domain.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, domain.EventConnected, env.Event)
}

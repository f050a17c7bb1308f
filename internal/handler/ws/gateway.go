package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signalhub-backend/internal/coordinator"
	"signalhub-backend/internal/domain"
	"signalhub-backend/pkg/constants"
	"signalhub-backend/pkg/jwt"
	"signalhub-backend/pkg/logger"
	"signalhub-backend/pkg/metrics"
)

// Gateway upgrades client connections, resolves their identity, and bridges
// the socket to the coordinator loop. It implements coordinator.Transport.
type Gateway struct {
	jwtManager *jwt.Manager
	coord      *coordinator.Coordinator

	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader

	// Concurrency limit for open connections
	maxConnections int
	semaphore      chan struct{}

	mu     sync.RWMutex
	byConn map[uuid.UUID]*Client
	byUser map[string]*Client // last registered connection wins
	rooms  map[string]map[uuid.UUID]*Client
}

// Client represents one WebSocket connection
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{} // closed on teardown; guards send
	session domain.Session
}

// NewGateway creates a gateway. allowedOrigins empty means any origin is
// accepted (development); otherwise the Origin header must match exactly.
func NewGateway(jwtManager *jwt.Manager, allowedOrigins []string, maxConnections int) *Gateway {
	if maxConnections <= 0 {
		maxConnections = 1000
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}

	g := &Gateway{
		jwtManager:     jwtManager,
		allowedOrigins: origins,
		maxConnections: maxConnections,
		semaphore:      make(chan struct{}, maxConnections),
		byConn:         make(map[uuid.UUID]*Client),
		byUser:         make(map[string]*Client),
		rooms:          make(map[string]map[uuid.UUID]*Client),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(g.allowedOrigins) == 0 {
				return true
			}
			return g.allowedOrigins[r.Header.Get("Origin")]
		},
	}
	return g
}

// SetCoordinator wires the coordinator after construction (the coordinator
// needs the gateway as its transport, so the two are built in sequence).
func (g *Gateway) SetCoordinator(c *coordinator.Coordinator) {
	g.coord = c
}

// ServeWS handles a WebSocket connection request. The credential is resolved
// before the upgrade; a failed resolution terminates the attempt with no
// state created.
func (g *Gateway) ServeWS(c *gin.Context) {
	select {
	case g.semaphore <- struct{}{}:
	default:
		metrics.WebSocketConnectionsRejectedTotal.WithLabelValues("capacity").Inc()
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", g.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}
	released := false
	release := func() {
		if !released {
			released = true
			<-g.semaphore
		}
	}
	defer func() {
		// Released here only when the handshake failed; a live connection
		// hands the slot to readPump.
		release()
	}()

	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		metrics.WebSocketConnectionsRejectedTotal.WithLabelValues("auth").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "credential required"})
		return
	}

	claims, err := g.jwtManager.ValidateToken(token)
	if err != nil {
		metrics.WebSocketConnectionsRejectedTotal.WithLabelValues("auth").Inc()
		logger.Debug("credential rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		metrics.WebSocketConnectionsRejectedTotal.WithLabelValues("origin").Inc()
		logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return
	}

	client := &Client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, constants.ClientSendBuffer),
		done:    make(chan struct{}),
		session: domain.Session{
			UserID:      claims.UserID,
			DisplayName: claims.DisplayName,
			ConnID:      uuid.New(),
		},
	}

	g.addClient(client)
	metrics.WebSocketConnectionsActive.Inc()
	logger.Info("connection established",
		zap.String("user_id", client.session.UserID),
		zap.String("conn_id", client.session.ConnID.String()))

	g.coord.Enqueue(coordinator.Event{Kind: coordinator.EventKindConnect, Session: client.session})

	// The slot now belongs to the connection; readPump releases it.
	released = true
	go client.writePump()
	go client.readPump()
}

// readPump reads client events and feeds them to the coordinator in arrival
// order. Connection teardown runs exactly once, from here.
func (c *Client) readPump() {
	defer func() {
		c.gateway.coord.Enqueue(coordinator.Event{
			Kind:    coordinator.EventKindDisconnect,
			Session: c.session,
		})
		c.gateway.removeClient(c)
		c.conn.Close()
		<-c.gateway.semaphore
		metrics.WebSocketConnectionsActive.Dec()
		logger.Info("connection closed",
			zap.String("user_id", c.session.UserID),
			zap.String("conn_id", c.session.ConnID.String()))
	}()

	c.conn.SetReadLimit(constants.MaxEventPayloadBytes)
	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket read error",
					zap.String("user_id", c.session.UserID),
					zap.Error(err))
			}
			break
		}

		var env domain.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			logger.Debug("invalid event frame",
				zap.String("user_id", c.session.UserID))
			continue
		}

		c.gateway.coord.Enqueue(coordinator.Event{
			Kind:    coordinator.EventKindClient,
			Session: c.session,
			Name:    env.Event,
			Payload: env.Data,
		})
	}
}

// writePump writes outbound frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) addClient(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byConn[client.session.ConnID] = client
	g.byUser[client.session.UserID] = client
}

func (g *Gateway) removeClient(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	connID := client.session.ConnID
	if _, ok := g.byConn[connID]; !ok {
		return
	}
	delete(g.byConn, connID)
	if cur, ok := g.byUser[client.session.UserID]; ok && cur.session.ConnID == connID {
		delete(g.byUser, client.session.UserID)
	}
	for room, members := range g.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(g.rooms, room)
			}
		}
	}
	close(client.done)
}

// Transport implementation. These are called from the coordinator loop.

// EmitToUser delivers an event to the user's currently registered connection
func (g *Gateway) EmitToUser(userID, event string, payload any) {
	g.mu.RLock()
	client := g.byUser[userID]
	g.mu.RUnlock()
	if client == nil {
		return
	}
	g.deliver(client, event, payload)
}

// EmitToConn delivers an event to one specific connection
func (g *Gateway) EmitToConn(connID uuid.UUID, event string, payload any) {
	g.mu.RLock()
	client := g.byConn[connID]
	g.mu.RUnlock()
	if client == nil {
		return
	}
	g.deliver(client, event, payload)
}

// EmitToRoom multicasts an event to every subscribed connection, skipping
// exceptUserID when non-empty
func (g *Gateway) EmitToRoom(room, event string, payload any, exceptUserID string) {
	g.mu.RLock()
	members := make([]*Client, 0, len(g.rooms[room]))
	for _, client := range g.rooms[room] {
		if exceptUserID != "" && client.session.UserID == exceptUserID {
			continue
		}
		members = append(members, client)
	}
	g.mu.RUnlock()

	for _, client := range members {
		g.deliver(client, event, payload)
	}
}

// JoinRoom subscribes a connection to a room
func (g *Gateway) JoinRoom(connID uuid.UUID, room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	client, ok := g.byConn[connID]
	if !ok {
		return
	}
	if g.rooms[room] == nil {
		g.rooms[room] = make(map[uuid.UUID]*Client)
	}
	g.rooms[room][connID] = client
}

// LeaveRoom releases a connection's room subscription
func (g *Gateway) LeaveRoom(connID uuid.UUID, room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(g.rooms, room)
	}
}

func (g *Gateway) deliver(client *Client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal event payload",
			zap.String("event", event),
			zap.Error(err))
		return
	}
	frame, err := json.Marshal(domain.Envelope{Event: event, Data: data})
	if err != nil {
		return
	}

	select {
	case <-client.done:
	case client.send <- frame:
	default:
		// Slow consumer: drop the frame rather than block the loop.
		logger.Warn("outbound queue full, dropping event",
			zap.String("event", event),
			zap.String("user_id", client.session.UserID))
	}
}

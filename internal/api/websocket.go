package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/earnest-s/slate-core/internal/infrastructure/config"
	"github.com/earnest-s/slate-core/internal/infrastructure/logging"
)

// Message types of the WebSocket protocol. Clients send subscribe,
// unsubscribe, and ping; the daemon answers with response, error, and
// pong, and pushes event frames for subscribed channels.
const (
	wsMsgSubscribe   = "subscribe"
	wsMsgUnsubscribe = "unsubscribe"
	wsMsgPing        = "ping"
	wsMsgPong        = "pong"
	wsMsgEvent       = "event"
	wsMsgResponse    = "response"
	wsMsgError       = "error"
)

// wsSendBufferSize is the per-client outbound buffer. A client that
// falls this far behind starts losing event frames rather than
// blocking the broadcaster.
const wsSendBufferSize = 256

// Event channels pushed by the daemon. A tray applet typically
// subscribes to feature.state_changed; a dashboard to all three.
//
//	feature.state_changed  - any feature changed state (bus or API)
//	automation.executed    - an automation run finished
//	macro.replayed         - a macro replay finished
type wsMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// wsChannels is the payload of subscribe and unsubscribe messages.
type wsChannels struct {
	Channels []string `json:"channels"`
}

// Hub fans daemon events out to connected WebSocket clients. The
// automation engine and the MQTT state relay both publish through it.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// wsClient is one connected WebSocket peer.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subMu         sync.RWMutex
	subscriptions map[string]struct{}

	sendMu sync.Mutex
	closed bool
}

// upgrader performs the HTTP to WebSocket upgrade. Origins are not
// filtered here; the CORS middleware and the loopback bind handle
// cross-origin policy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.shutdown()
		delete(h.clients, client)
	}
}

// register adds a connected client.
func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// unregister removes a client and stops its send channel. The map
// delete decides which caller shuts the client down, so a racing
// disconnect and hub shutdown cannot double-close.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if present {
		c.shutdown()
	}
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast pushes an event frame to every client subscribed to the
// channel. Slow clients drop frames instead of blocking the caller;
// retained MQTT topics and the REST API carry the authoritative state.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := json.Marshal(wsMessage{
		Type:      wsMsgEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling broadcast frame", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range targets {
		if client.subscribed(channel) && client.trySend(frame) {
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection and starts the client's read
// and write pumps. Connections are unauthenticated; the API binds to
// loopback.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// keepaliveWindow is how long a connection may stay silent before the
// read side gives up: one ping interval plus the pong grace period.
func keepaliveWindow(cfg config.WebSocketConfig) time.Duration {
	return time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
}

// readPump consumes client messages until the connection drops, then
// unregisters the client.
func (c *wsClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	window := keepaliveWindow(cfg)
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // deadline on a fresh connection cannot fail usefully
	c.conn.SetReadDeadline(time.Now().Add(window))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(window))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any traffic proves liveness, not just pong frames.
		//nolint:errcheck // best effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(window))
		c.handleMessage(data)
	}
}

// writePump drains the send channel onto the connection and keeps the
// peer alive with periodic pings.
func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				//nolint:errcheck // best effort close frame on shutdown
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // write error below ends the pump anyway
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // ping error below ends the pump anyway
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound client message.
func (c *wsClient) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case wsMsgSubscribe:
		c.updateSubscriptions(msg, true)
	case wsMsgUnsubscribe:
		c.updateSubscriptions(msg, false)
	case wsMsgPing:
		c.sendFrame(wsMessage{Type: wsMsgPong, ID: msg.ID})
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// updateSubscriptions adds or removes the channels named in a
// subscribe or unsubscribe message and confirms the change.
func (c *wsClient) updateSubscriptions(msg wsMessage, add bool) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	var req wsChannels
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}

	c.subMu.Lock()
	for _, ch := range req.Channels {
		if add {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.subMu.Unlock()

	key := "unsubscribed"
	if add {
		key = "subscribed"
		c.hub.logger.Debug("websocket subscription added", "channels", req.Channels)
	}
	c.sendFrame(wsMessage{
		Type:    wsMsgResponse,
		ID:      msg.ID,
		Payload: map[string]any{key: req.Channels},
	})
}

// subscribed reports whether the client listens on the channel.
func (c *wsClient) subscribed(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// trySend queues a frame for the write pump. Returns false if the
// client is gone or its buffer is full.
func (c *wsClient) trySend(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown stops the send channel exactly once, releasing the write
// pump. Safe against concurrent trySend.
func (c *wsClient) shutdown() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// sendFrame marshals and queues a protocol frame for this client.
func (c *wsClient) sendFrame(msg wsMessage) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(frame)
}

// sendError queues an error frame for this client.
func (c *wsClient) sendError(id, message string) {
	c.sendFrame(wsMessage{
		Type:    wsMsgError,
		ID:      id,
		Payload: map[string]string{"message": message},
	})
}

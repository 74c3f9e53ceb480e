package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/kalaha-game/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Outgoing event names
const (
	EventStateUpdate = "state_update"
	EventError       = "error"
)

// Client actions
const (
	ActionMove  = "move"
	ActionReset = "reset"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API has no auth, so neither does the socket
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message represents a WebSocket message sent to clients
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// Action is a request sent by a client
type Action struct {
	Action         string `json:"action"`
	Pit            int    `json:"pit,omitempty"`
	StartingStones int    `json:"starting_stones,omitempty"`
}

// ErrorData is the payload of an "error" event
type ErrorData struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ActionHandler executes a client action against a session. Successful
// actions are expected to broadcast the new state themselves; a returned
// error is sent back to the requesting client only.
type ActionHandler func(ctx context.Context, sessionID string, action Action) error

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages. Only the
// Run goroutine touches the session map.
type Hub struct {
	sessions map[string]map[*Client]bool

	broadcast  chan *Message
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	inspect    chan func(map[string]map[*Client]bool)

	handler ActionHandler
	logger  *zap.Logger
	done    chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, engine.WebSocketBufferSize),
		direct:     make(chan directMessage, engine.WebSocketBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inspect:    make(chan func(map[string]map[*Client]bool)),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetActionHandler installs the handler for client actions. Call it before
// serving connections.
func (h *Hub) SetActionHandler(handler ActionHandler) {
	h.handler = handler
}

// Run starts the hub's event loop. It returns when ctx is done, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case msg := <-h.direct:
			if clients, ok := h.sessions[msg.client.sessionID]; ok && clients[msg.client] {
				h.deliver(msg.client, msg.data)
			}

		case fn := <-h.inspect:
			fn(h.sessions)
		}
	}
}

// Done is closed when Run returns
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ServeWS upgrades the request and attaches the connection to sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, engine.WebSocketBufferSize),
		sessionID: sessionKey(sessionID),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.enqueue(&Message{
		SessionID: sessionKey(sessionID),
		GameState: state,
		Event:     EventStateUpdate,
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{
		SessionID: sessionKey(sessionID),
		Event:     event,
		Data:      data,
	})
}

// ClientCount returns the number of clients attached to a session
func (h *Hub) ClientCount(sessionID string) int {
	result := make(chan int, 1)
	fn := func(sessions map[string]map[*Client]bool) {
		result <- len(sessions[sessionKey(sessionID)])
	}
	select {
	case h.inspect <- fn:
		return <-result
	case <-h.done:
		return 0
	}
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			zap.String("session", message.SessionID), zap.String("event", message.Event))
	}
}

// sendTo queues data for one client through the hub goroutine
func (h *Hub) sendTo(client *Client, data []byte) {
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.done:
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.logger.Debug("client registered",
		zap.String("session", client.sessionID),
		zap.Int("clients", len(h.sessions[client.sessionID])))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.logger.Debug("client unregistered",
		zap.String("session", client.sessionID),
		zap.Int("clients", len(clients)))
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	for client := range clients {
		h.deliver(client, data)
	}
}

// deliver drops clients whose send buffer is full
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

func sessionKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

// readPump reads client actions until the connection fails
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("session", c.sessionID), zap.Error(err))
			}
			return
		}
		c.handleAction(payload)
	}
}

func (c *Client) handleAction(payload []byte) {
	var action Action
	if err := json.Unmarshal(payload, &action); err != nil {
		c.replyError(ErrorData{Error: "invalid message", Code: "bad_request"})
		return
	}

	switch action.Action {
	case ActionMove, ActionReset:
	default:
		c.replyError(ErrorData{Error: "unknown action " + action.Action, Code: "bad_request"})
		return
	}

	if c.hub.handler == nil {
		c.replyError(ErrorData{Error: "actions are not supported", Code: "unsupported"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	if err := c.hub.handler(ctx, c.sessionID, action); err != nil {
		c.replyError(ErrorData{Error: err.Error(), Code: engine.ErrorCode(err)})
	}
}

func (c *Client) replyError(payload ErrorData) {
	data, err := json.Marshal(&Message{SessionID: c.sessionID, Event: EventError, Data: payload})
	if err != nil {
		return
	}
	c.hub.sendTo(c, data)
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

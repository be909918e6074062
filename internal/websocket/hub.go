// Package websocket maintains per-user WebSocket connections and pushes
// booking notifications to them. The Hub is constructed and injected at
// startup rather than held in package state, so tests can run isolated
// instances.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// PushMessage is the envelope sent to connected clients
type PushMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub tracks connected clients keyed by user ID
type Hub struct {
	mu      sync.RWMutex
	clients map[int]map[*Client]bool
	logger  *logrus.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[int]map[*Client]bool),
		logger:  logger,
	}
}

// Register attaches a connection to a user and starts its pump goroutines
func (h *Hub) Register(userID int, conn *websocket.Conn) *Client {
	client := &Client{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 16),
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]bool)
	}
	h.clients[userID][client] = true
	h.mu.Unlock()

	go client.writePump()
	go client.readPump()

	h.logger.WithField("user_id", userID).Debug("WebSocket client connected")
	return client
}

// unregister detaches a client and closes its send channel
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}
}

// SendToUser pushes a message to every connection a user has open.
// Slow clients with full buffers are dropped.
func (h *Hub) SendToUser(userID int, msgType string, payload interface{}) {
	data, err := json.Marshal(PushMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal push message")
		return
	}

	h.mu.RLock()
	var stale []*Client
	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.unregister(client)
	}
}

// Broadcast pushes a message to every open connection. Used for admin
// announcements.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(PushMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal push message")
		return
	}

	h.mu.RLock()
	var stale []*Client
	for _, conns := range h.clients {
		for client := range conns {
			select {
			case client.send <- data:
			default:
				stale = append(stale, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.unregister(client)
	}
}

// ConnectedUsers returns the number of users with at least one open connection
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one WebSocket connection belonging to a user
type Client struct {
	hub    *Hub
	userID int
	conn   *websocket.Conn
	send   chan []byte
}

// readPump drains inbound frames to process pongs and detect closure
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued messages and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

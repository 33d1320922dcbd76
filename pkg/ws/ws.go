// Package ws pushes server-side events to browsers over gorilla/websocket.
//
// Connections are grouped by owner (the user id) so a change is only sent
// to the pages of the user it belongs to:
//
//	hub := ws.NewHub()
//	go hub.Run(ctx)
//
//	// in a handler, after authentication:
//	ws.Upgrade(w, r, hub, user.ID)
//
//	// anywhere:
//	hub.Publish(user.ID, []byte(`{"op":"created"}`))
//
// The feed is one-way; messages sent by clients are discarded.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// CheckOrigin is nil, so gorilla rejects cross-origin upgrades.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one connected browser tab.
type Client struct {
	hub   *Hub
	owner uint
	conn  *websocket.Conn
	send  chan []byte
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "error", err, "owner", c.owner)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type envelope struct {
	owner uint
	data  []byte
}

type countQuery struct {
	owner uint
	reply chan int
}

// Hub tracks connections per owner. All state is owned by Run.
type Hub struct {
	clients    map[uint]map[*Client]struct{}
	publish    chan envelope
	register   chan *Client
	unregister chan *Client
	count      chan countQuery
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		publish:    make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan countQuery),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is cancelled, closing every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = map[uint]map[*Client]struct{}{}
			return

		case c := <-h.register:
			set := h.clients[c.owner]
			if set == nil {
				set = map[*Client]struct{}{}
				h.clients[c.owner] = set
			}
			set[c] = struct{}{}
			logger.Debug("ws: client connected", "owner", c.owner, "total", len(set))

		case c := <-h.unregister:
			h.drop(c)

		case env := <-h.publish:
			for c := range h.clients[env.owner] {
				select {
				case c.send <- env.data:
				default:
					// Slow reader: cut it loose.
					h.drop(c)
				}
			}

		case q := <-h.count:
			q.reply <- len(h.clients[q.owner])
		}
	}
}

func (h *Hub) drop(c *Client) {
	set := h.clients[c.owner]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.owner)
	}
}

// Publish queues data for every connection of owner. It never blocks the
// caller for long; when the hub is stopped the message is dropped.
func (h *Hub) Publish(owner uint, data []byte) {
	select {
	case h.publish <- envelope{owner: owner, data: data}:
	case <-h.done:
	}
}

// ClientCount returns the number of open connections of owner.
func (h *Hub) ClientCount(owner uint) int {
	q := countQuery{owner: owner, reply: make(chan int, 1)}
	select {
	case h.count <- q:
		return <-q.reply
	case <-h.done:
		return 0
	}
}

// Upgrade upgrades the connection and registers it under owner.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, owner uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &Client{hub: hub, owner: owner, conn: conn, send: make(chan []byte, 16)}
	select {
	case hub.register <- c:
	case <-hub.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

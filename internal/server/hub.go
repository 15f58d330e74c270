package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relicforge/relic-server-go/internal/events"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSMessage is the envelope written to event stream clients.
type WSMessage struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
	// Target is set on subscribe acknowledgements.
	Target string `json:"target,omitempty"`
}

// subscribeRequest lets a client narrow its stream to one character.
type subscribeRequest struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// client fields other than conn are owned by the hub goroutine once registered.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	target string
}

func (c *client) wants(evt events.Event) bool {
	return c.target == "" || evt.TargetID == "" || c.target == evt.TargetID
}

type subscription struct {
	client *client
	target string
}

// Hub fans engine events out to websocket clients.
type Hub struct {
	logger     *zap.Logger
	clients    map[*client]bool
	broadcast  chan events.Event
	register   chan *client
	unregister chan *client
	subscribe  chan subscription
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub; call Run to start dispatching.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan events.Event, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
	}
}

// Attach forwards every event published on bus to the hub.
func (h *Hub) Attach(bus *events.EventBus) int {
	return bus.Subscribe(h.Publish)
}

// Publish queues an event for delivery. Events are dropped when the queue is full.
func (h *Hub) Publish(evt events.Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("event hub queue full, dropping event", zap.String("type", string(evt.Type)))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Run dispatches until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.logger.Debug("event client registered", zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount(len(h.clients))
				h.logger.Debug("event client unregistered", zap.Int("clients", len(h.clients)))
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			sub.client.target = sub.target
			ack, _ := json.Marshal(WSMessage{Type: "subscribed", Target: sub.target})
			select {
			case sub.client.send <- ack:
			default:
			}

		case evt := <-h.broadcast:
			evtCopy := evt
			message, err := json.Marshal(WSMessage{Type: "event", Event: &evtCopy})
			if err != nil {
				h.logger.Error("failed to encode event", zap.Error(err))
				continue
			}
			for c := range h.clients {
				if !c.wants(evt) {
					continue
				}
				select {
				case c.send <- message:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
					h.setCount(len(h.clients))
				}
			}
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ServeWS upgrades the request and registers the connection. A "target" query
// parameter limits the stream to one character.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		target: r.URL.Query().Get("target"),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.logger.Debug("ignoring malformed client message", zap.Error(err))
			continue
		}
		if req.Type != "subscribe" {
			continue
		}
		select {
		case h.subscribe <- subscription{client: c, target: req.Target}:
		case <-h.done:
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

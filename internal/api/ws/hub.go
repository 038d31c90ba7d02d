package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/danwiki/internal/domain/fetch"
	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local front ends run on arbitrary ports
	},
}

// Message is a client request.
type Message struct {
	Type string `json:"type"`
	Tag  string `json:"tag,omitempty"`
	// URL is a wiki page address, such as an error event's suggestion.
	URL string `json:"url,omitempty"`
}

// Envelope is a server message.
type Envelope struct {
	Type      string         `json:"type"`
	Event     *fetch.Event   `json:"event,omitempty"`
	Request   *fetch.Request `json:"request,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan Envelope
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans fetch events out to WebSocket clients.
type Hub struct {
	fetcher *fetch.Fetcher
	metrics *monitoring.Metrics
	log     *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub that accepts fetch requests for fetcher.
func NewHub(fetcher *fetch.Fetcher, metrics *monitoring.Metrics, log *logging.Logger) *Hub {
	return &Hub{
		fetcher: fetcher,
		metrics: metrics,
		log:     log.Named("ws"),
		clients: make(map[*client]struct{}),
	}
}

// Run broadcasts events until the channel closes or ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context, events <-chan fetch.Event) {
	defer h.shutdown()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(Envelope{Type: "fetch_event", Event: &ev})
		case <-ctx.Done():
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and serves the client until it leaves.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan Envelope, sendBuffer)}
	if !h.register(cl) {
		_ = conn.Close()
		return
	}
	defer h.unregister(cl)

	go h.writePump(cl)

	h.reply(cl, Envelope{Type: "system", Message: "connected"})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.reply(cl, Envelope{Type: "pong"})
		case "fetch":
			h.handleFetch(c.Request.Context(), cl, msg)
		default:
			h.reply(cl, Envelope{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Hub) handleFetch(ctx context.Context, cl *client, msg Message) {
	tag := msg.Tag
	if tag == "" {
		tag = suggest.TagFromURL(msg.URL)
	}
	req, err := h.fetcher.Fetch(ctx, tag)
	if err != nil {
		h.reply(cl, Envelope{Type: "error", Message: err.Error()})
		return
	}
	h.reply(cl, Envelope{Type: "accepted", Request: &req})
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	h.metrics.IncWSConnections()
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		cl.close()
		h.metrics.DecWSConnections()
	}
}

// reply queues env for one client; a full queue disconnects it.
func (h *Hub) reply(cl *client, env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		h.enqueue(cl, env)
	}
}

func (h *Hub) broadcast(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.enqueue(cl, env)
	}
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(cl *client, env Envelope) {
	env.Timestamp = time.Now().Unix()
	select {
	case cl.send <- env:
	default:
		h.log.Warn("websocket client too slow, disconnecting")
		delete(h.clients, cl)
		cl.close()
		h.metrics.DecWSConnections()
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		cl.close()
		h.metrics.DecWSConnections()
	}
}

func (h *Hub) writePump(cl *client) {
	defer cl.conn.Close()
	for env := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteJSON(env); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			return
		}
		h.metrics.RecordWSMessage("out", env.Type)
	}
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

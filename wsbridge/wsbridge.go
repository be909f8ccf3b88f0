// Package wsbridge accepts touch contacts from remote clients over a
// websocket and broadcasts recognized gestures back to them.
package wsbridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/phanxgames/gesture"
)

// ContactStride separates the contact id ranges of connected clients. Client
// contact ids must lie in [0, ContactStride).
const ContactStride = 1 << 16

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message is a contact transition sent by a client.
type Message struct {
	Type   string  `json:"type"`
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target string  `json:"target,omitempty"`
}

// Notice is sent from the bridge to clients.
type Notice struct {
	Type       string    `json:"type"`
	Identifier string    `json:"identifier,omitempty"`
	Target     any       `json:"target,omitempty"`
	Data       any       `json:"data,omitempty"`
	Episode    string    `json:"episode,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notice types.
const (
	NoticeGesture = "gesture"
	NoticeEpisode = "episode"
	NoticeError   = "error"
)

// Native is attached to RawEvents coming from the bridge.
type Native struct {
	Client  uint64
	Message Message
}

// Server upgrades HTTP requests and relays contacts into an Arbiter.
type Server struct {
	arbiter  *gesture.Arbiter
	upgrader websocket.Upgrader
	log      zerolog.Logger
	resolve  func(string) any

	mu      sync.RWMutex
	clients map[*client]struct{}
	nextID  atomic.Uint64
}

type client struct {
	id     uint64
	conn   *websocket.Conn
	send   chan []byte
	server *Server

	// contacts currently held down, keyed by the client's own id.
	held map[int]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = gesture.ComponentLogger(l, "wsbridge") }
}

// WithOriginCheck sets the upgrade origin check. By default only requests
// without an Origin header or from the same host are accepted.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// WithTargetResolver maps the target names sent by clients to application
// elements. Without one the name itself is the target.
func WithTargetResolver(fn func(name string) any) Option {
	return func(s *Server) { s.resolve = fn }
}

// New creates a bridge feeding a. Episode summaries are broadcast to every
// client.
func New(a *gesture.Arbiter, opts ...Option) *Server {
	s := &Server{
		arbiter: a,
		log:     zerolog.Nop(),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	a.OnEpisodeEnd(func(ep gesture.Episode) {
		s.Broadcast(Notice{
			Type:      NoticeEpisode,
			Target:    ep.Target,
			Episode:   ep.ID.String(),
			Data:      len(ep.Matches),
			Timestamp: ep.Ended,
		})
	})
	return s
}

// Listener returns a gesture listener broadcasting every match it receives.
func (s *Server) Listener() gesture.Listener {
	return func(ev *gesture.Event) error {
		s.Broadcast(Notice{
			Type:       NoticeGesture,
			Identifier: ev.Identifier,
			Target:     ev.Target,
			Data:       ev.Data,
			Timestamp:  time.Now(),
		})
		return nil
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast queues n for every connected client. Clients with a full send
// buffer miss the notice.
func (s *Server) Broadcast(n Notice) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error().Err(err).Str("type", n.Type).Msg("marshal notice")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			s.log.Warn().Uint64("client", c.id).Msg("send buffer full, dropping notice")
		}
	}
}

// ServeHTTP upgrades the request and starts the client's pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := s.nextID.Add(1)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
		held:   make(map[int]struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug().Uint64("client", c.id).Str("remote", r.RemoteAddr).Msg("client connected")

	go c.writePump()
	go c.readPump()
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*client]struct{})
	for c := range clients {
		close(c.send)
	}
	s.mu.Unlock()
	for c := range clients {
		_ = c.conn.Close()
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	s.log.Debug().Uint64("client", c.id).Msg("client disconnected")
}

func (c *client) contactID(id int) int {
	return int(c.id)*ContactStride + id
}

func (c *client) target(name string) any {
	if c.server.resolve != nil {
		return c.server.resolve(name)
	}
	if name == "" {
		return nil
	}
	return name
}

func (c *client) sendError(msg string) {
	payload, err := json.Marshal(Notice{Type: NoticeError, Error: msg, Timestamp: time.Now()})
	if err != nil {
		return
	}
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if _, ok := c.server.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *client) handle(msg Message) {
	if msg.ID < 0 || msg.ID >= ContactStride {
		c.sendError(fmt.Sprintf("contact id %d out of range [0, %d)", msg.ID, ContactStride))
		return
	}
	a := c.server.arbiter
	ev := gesture.RawEvent{Target: c.target(msg.Target), Native: Native{Client: c.id, Message: msg}}
	cid := c.contactID(msg.ID)

	switch msg.Type {
	case "down":
		c.held[msg.ID] = struct{}{}
		a.PointerDown(ev, cid, msg.X, msg.Y)
	case "move":
		a.PointerMove(ev, cid, msg.X, msg.Y)
	case "up", "cancel":
		delete(c.held, msg.ID)
		a.PointerUp(ev, cid)
	default:
		c.sendError("unknown message type " + msg.Type)
	}
}

// release lifts every contact the client still holds.
func (c *client) release() {
	for id := range c.held {
		c.server.arbiter.PointerUp(gesture.RawEvent{Native: Native{Client: c.id}}, c.contactID(id))
	}
	clear(c.held)
}

func (c *client) readPump() {
	defer func() {
		c.release()
		c.server.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Warn().Err(err).Uint64("client", c.id).Msg("websocket read")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message: " + err.Error())
			continue
		}
		c.handle(msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

package newchat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"snap2sell/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// AllRoom receives every event regardless of topic.
const AllRoom = "all"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Room string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans bus events out to browser tabs connected over websocket. A client joins one room:
// a topic such as "cart" or "session", or AllRoom.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
	log        logrus.FieldLogger
	upgrader   websocket.Upgrader
}

// NewHub builds a hub whose upgrades accept the given origins; empty allows any.
func NewHub(log logrus.FieldLogger, allowedOrigins []string) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		quit:       make(chan struct{}),
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for room, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.Room]; conns != nil && conns[c] {
				delete(conns, c)
				close(c.Send)
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					// slow consumer
					close(c.Send)
					delete(h.rooms[m.Room], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// reply queues data for c alone. It reports false when c has left or its queue is full.
func (h *Hub) reply(c *Client, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.rooms[c.Room][c] {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Clients counts connected clients across rooms.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, conns := range h.rooms {
		n += len(conns)
	}
	return n
}

// outboundPayload is what every client receives.
type outboundPayload struct {
	Action    string `json:"action"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Attach forwards every bus event to its topic room ("cart.changed" goes to "cart") and to
// AllRoom.
func (h *Hub) Attach(bus *mq.Bus) {
	bus.Subscribe("", func(_ context.Context, ev mq.Event) {
		data, err := json.Marshal(outboundPayload{Action: ev.Name, Payload: ev.Payload, Timestamp: time.Now().Unix()})
		if err != nil {
			h.log.WithError(err).WithField("event", ev.Name).Warn("Hub encode error")
			return
		}
		h.Publish(topicOf(ev.Name), data)
		h.Publish(AllRoom, data)
	})
}

// Publish queues data for room without blocking the emitter; a full queue drops it.
func (h *Hub) Publish(room string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
	case <-h.quit:
	default:
		h.log.WithField("room", room).Warn("Hub queue full, dropping event")
	}
}

func topicOf(event string) string {
	if i := strings.IndexByte(event, '.'); i > 0 {
		return event[:i]
	}
	return event
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// inboundPayload represents what clients send us.
type inboundPayload struct {
	Action string `json:"action"` // "ping"
}

// WebSocketHandler upgrades GET /ws/:room and streams the room's events.
func WebSocketHandler(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := ps.ByName("room")
		if room == "" {
			room = AllRoom
		}

		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.WithError(err).Warn("WebSocket upgrade error")
			return
		}
		client := &Client{
			Conn: conn,
			Send: make(chan []byte, 256),
			Room: room,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			conn.Close()
			return
		}
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(c *Client, hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.quit:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}

		var in inboundPayload
		if err := json.Unmarshal(raw, &in); err != nil {
			hub.log.WithError(err).Debug("invalid payload")
			continue
		}
		switch in.Action {
		case "ping":
			data, _ := json.Marshal(outboundPayload{Action: "pong", Timestamp: time.Now().Unix()})
			if !hub.reply(c, data) {
				hub.log.WithField("room", c.Room).Debug("pong dropped")
			}
		default:
			hub.log.WithField("action", in.Action).Debug("unknown action")
		}
	}
}

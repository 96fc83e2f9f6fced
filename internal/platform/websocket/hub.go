// Package websocket pushes reconciliation and statement updates to browser
// clients. Clients subscribe to topics such as "reconciliation:2026-01" and
// receive every event published to those topics.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// ReconciliationTopic is the topic carrying reconciliation views for a period.
func ReconciliationTopic(period string) string { return "reconciliation:" + period }

// StatementsTopic is the topic carrying statement bundle updates for a period.
func StatementsTopic(period string) string { return "statements:" + period }

// Event is one message pushed to subscribers.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Period    string          `json:"period,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an Event for topic.
func NewEvent(eventType, topic, period string, payload any) (Event, error) {
	ev := Event{Type: eventType, Topic: topic, Period: period, Timestamp: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Data = data
	}
	return ev, nil
}

// ClientMessage is what browsers send: {"action":"subscribe","topics":[...]}.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Publisher is implemented by Hub; producers depend on this.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Client struct {
	ID     string
	Topics map[string]struct{}
	Send   chan []byte
}

func NewClient() *Client {
	return &Client{
		ID:     uuid.New().String(),
		Topics: make(map[string]struct{}),
		Send:   make(chan []byte, sendBuffer),
	}
}

// Hub tracks connected clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	dropped uint64
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Client]struct{}),
		all:    make(map[*Client]struct{}),
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[c] = struct{}{}
	for t := range c.Topics {
		h.addLocked(c, t)
	}
}

// Unregister removes c everywhere and closes its Send channel. Calling it
// twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	for t := range c.Topics {
		h.removeLocked(c, t)
	}
	delete(h.all, c)
	close(c.Send)
}

func (h *Hub) Subscribe(c *Client, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	for _, t := range topics {
		c.Topics[t] = struct{}{}
		h.addLocked(c, t)
	}
}

func (h *Hub) Unsubscribe(c *Client, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		delete(c.Topics, t)
		h.removeLocked(c, t)
	}
}

func (h *Hub) addLocked(c *Client, topic string) {
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
}

func (h *Hub) removeLocked(c *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// ProcessMessage applies a subscribe/unsubscribe request. Unknown actions
// are ignored.
func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics...)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics...)
	}
}

// Publish delivers event to every subscriber of event.Topic. Slow clients
// whose buffer is full miss the event rather than blocking the publisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.topics[event.Topic] {
		select {
		case c.Send <- data:
		default:
			h.dropped++
			h.logger.Warn().Str("client", c.ID).Str("topic", event.Topic).Msg("send buffer full, event dropped")
		}
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped is the number of events discarded because a client was too slow.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Handler upgrades /ws requests and runs the read/write pumps.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler accepts connections whose Origin is in allowedOrigins. An empty
// list or "*" accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	_, anyOrigin := allowed["*"]
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || anyOrigin || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
}

// Connect upgrades the request. Topics may also be given up front with
// ?topic=reconciliation:2026-01 (repeatable).
func (h *Handler) Connect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := NewClient()
	for _, t := range c.QueryParams()["topic"] {
		client.Topics[t] = struct{}{}
	}
	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()
	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.hub.ProcessMessage(client, msg)
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

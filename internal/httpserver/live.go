// internal/httpserver/live.go
//
// Live admin feed over WebSocket. The game handlers publish an event when
// a game starts or finishes; every connected admin client receives the
// stream. Clients only listen; inbound messages are discarded.

package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types published on the feed.
const (
	eventHello        = "hello"
	eventGameStarted  = "game_started"
	eventGameFinished = "game_finished"
)

// liveEvent is one feed entry.
type liveEvent struct {
	Type        string    `json:"type"`
	GameID      string    `json:"gameId,omitempty"`
	Username    string    `json:"username,omitempty"`
	State       string    `json:"state,omitempty"`
	GuessesUsed int       `json:"guessesUsed,omitempty"`
	Word        string    `json:"word,omitempty"` // only on game_finished
	At          time.Time `json:"at"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan liveEvent
}

// hub fans events out to connected clients. All client set mutation
// happens on the run goroutine; handlers only touch the channels.
type hub struct {
	clients    map[*liveClient]bool
	register   chan *liveClient
	unregister chan *liveClient
	events     chan liveEvent
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*liveClient]bool),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		events:     make(chan liveEvent, 32),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			c.send <- liveEvent{Type: eventHello, At: time.Now()}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case ev := <-h.events:
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					// Slow consumer; drop it rather than stall the feed.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// broadcast publishes an event without blocking the caller. If the feed
// backlog is full the event is dropped; the feed is advisory, games do not
// depend on it.
func (h *hub) broadcast(ev liveEvent) {
	select {
	case h.events <- ev:
	default:
		log.Debug().Str("type", ev.Type).Msg("live feed backlog full, dropped event")
	}
}

// handleLive upgrades the connection and streams events until the client
// goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.cfg.ClientOrigin
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("live feed upgrade")
		return
	}

	c := &liveClient{
		conn: conn,
		send: make(chan liveEvent, 8),
	}
	s.hub.register <- c

	go c.writePump()
	c.readPump(s.hub)
}

func (c *liveClient) readPump(h *hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *liveClient) writePump() {
	defer c.conn.Close()

	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

package brackets

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/courtside/bracket-engine/models"
)

const (
	EventMatchCreated = "MATCH_CREATED"
	EventMatchUpdated = "MATCH_UPDATED"
)

// MatchEvent is what subscribers of a bracket room receive: the raw match
// row, no joined display metadata. Delivery is at-least-once and unordered;
// viewers reconcile by replacing the cached row by id.
type MatchEvent struct {
	Type            string               `json:"type"`
	EventID         string               `json:"event_id"`
	BracketConfigID int                  `json:"bracket_config_id"`
	Match           *models.BracketMatch `json:"match"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	ConfigID int
	isClosed bool
	mu       sync.Mutex
}

// Hub fans match events out to every viewer subscribed to a bracket
// configuration. Sends are best-effort: a slow client's backlog is dropped,
// never propagated back to the publisher.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[int]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[int]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.ConfigID]; !ok {
				h.rooms[client.ConfigID] = make(map[*Client]bool)
			}
			h.rooms[client.ConfigID][client] = true
			log.Printf("viewer joined bracket %d (%d connected)", client.ConfigID, len(h.rooms[client.ConfigID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.ConfigID]; ok {
				if _, okClient := room[client]; okClient {
					client.close()
					delete(room, client)
					if len(room) == 0 {
						delete(h.rooms, client.ConfigID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastMatchEvent delivers the event to every client in the bracket's
// room. Marshal or transport problems are logged and skipped; the next
// event or a manual refresh reconciles the viewer.
func (h *Hub) BroadcastMatchEvent(event *MatchEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[event.BracketConfigID]
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal match event for bracket %d: %v", event.BracketConfigID, err)
		return
	}

	for client := range room {
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("viewer send buffer full for bracket %d, dropping event", event.BracketConfigID)
		}
		client.mu.Unlock()
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
	c.mu.Unlock()
}

// ReadPump drains the connection until the viewer disconnects. Inbound
// messages are ignored; the channel is one-way.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("viewer read error for bracket %d: %v", c.ConfigID, err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush anything already queued behind this message.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/courtside/bracket-engine/brackets"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin once it is deployed.
		return true
	},
}

type WebSocketHandler struct {
	hub *brackets.Hub
	log *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log}
}

// ServeWs subscribes the caller to live match events for one bracket
// configuration. Clients connect to /ws/brackets/{configID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Warn("websocket upgrade failed", "config_id", configID, "error", err)
		return
	}

	client := &brackets.Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		ConfigID: configID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.log.Debug("viewer subscribed", "config_id", configID)
}

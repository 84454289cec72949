package handlers

import (
	"log"
	"net/http"

	gws "github.com/gorilla/websocket"
	"github.com/sam/code-clash/internal/service"
	"github.com/sam/code-clash/internal/ws"
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type WebSocketHandler struct {
	hub         *ws.Hub
	authService *service.AuthService
}

func NewWebSocketHandler(hub *ws.Hub, authService *service.AuthService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
	}
}

// Handle authenticates via the token query parameter, then upgrades. Browser
// websocket clients cannot set an Authorization header.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	identity, err := h.authService.Identity(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, identity.ID, identity.Username)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

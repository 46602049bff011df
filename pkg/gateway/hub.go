package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Hub accepts WebSocket connections, authenticates them with a
// challenge-response handshake, and fans service events out to every
// authenticated client. It mounts onto an existing mux rather than
// running its own HTTP server.
type Hub struct {
	upgrader       websocket.Upgrader
	clients        *ClientRegistry
	authHandler    *AuthHandler
	broadcaster    *EventBroadcaster
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
}

// NewHub creates a new event hub
func NewHub(sharedSecret string, logger zerolog.Logger) (*Hub, error) {
	if sharedSecret == "" {
		return nil, fmt.Errorf("shared secret is required")
	}

	clients := NewClientRegistry()

	return &Hub{
		clients:     clients,
		authHandler: NewAuthHandler(sharedSecret),
		broadcaster: NewEventBroadcaster(clients, logger),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}, nil
}

// Broadcast sends an event to all authenticated clients. Safe to call on
// a nil hub so callers don't have to guard the disabled case.
func (h *Hub) Broadcast(event string, data interface{}) {
	if h == nil {
		return
	}
	h.broadcaster.Broadcast(event, data)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	return h.clients.Count()
}

// HandleWebSocket upgrades an HTTP request to a WebSocket connection and
// starts the authentication handshake.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.shutdownMu.RLock()
	if h.isShuttingDown {
		h.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	h.shutdownMu.RUnlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := &Client{
		ID:            clientID,
		Conn:          conn,
		Authenticated: false,
		ConnectedAt:   time.Now(),
		LastActivity:  time.Now(),
		IPAddress:     r.RemoteAddr,
		AuthAttempts:  0,
		State:         StateConnecting,
	}

	h.clients.Add(client)

	h.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	if err := h.sendAuthChallenge(client); err != nil {
		h.logger.Error().Err(err).Str("clientId", clientID).Msg("Failed to send auth challenge")
		conn.Close()
		h.clients.Remove(clientID)
		return
	}

	go h.handleClient(client)
}

func (h *Hub) sendAuthChallenge(client *Client) error {
	challenge, err := h.authHandler.GenerateChallenge()
	if err != nil {
		return err
	}

	client.Challenge = challenge
	client.State = StateAuthenticating

	msg := AuthChallenge{
		Event:     "auth.challenge",
		Challenge: challenge,
	}

	return client.WriteJSON(msg)
}

// handleClient reads messages from a client until it disconnects.
func (h *Hub) handleClient(client *Client) {
	defer func() {
		client.Conn.Close()
		h.clients.Remove(client.ID)
		h.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
	}()

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Unexpected close")
			}
			return
		}

		h.clients.UpdateActivity(client.ID)

		var msg AuthResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug().Err(err).Str("clientId", client.ID).Msg("Ignoring malformed message")
			continue
		}

		switch msg.Method {
		case "auth":
			h.handleAuth(client, msg.Signature)
		case "ping":
			_ = client.WriteJSON(map[string]string{"event": "pong"})
		default:
			// Unauthenticated clients get exactly one verb.
			if !client.Authenticated {
				_ = client.WriteJSON(AuthResult{
					Event:   "auth.failure",
					Message: "Authentication required",
				})
			}
		}
	}
}

func (h *Hub) handleAuth(client *Client, signature string) {
	result := h.authHandler.HandleAuthResponse(client, signature)

	if err := client.WriteJSON(result); err != nil {
		h.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Failed to send auth result")
		return
	}

	if result.Success {
		h.logger.Info().Str("clientId", client.ID).Msg("Client authenticated")
		return
	}

	h.logger.Warn().
		Str("clientId", client.ID).
		Str("reason", result.Message).
		Msg("Client authentication failed")

	if result.Message == "Too many failed attempts" {
		client.Conn.Close()
	}
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	if h == nil {
		return
	}

	h.shutdownMu.Lock()
	h.isShuttingDown = true
	h.shutdownMu.Unlock()

	h.Broadcast("server.shutdown", map[string]interface{}{
		"message": "Server is shutting down",
	})

	for _, client := range h.clients.GetAll() {
		client.Conn.Close()
		h.clients.Remove(client.ID)
	}
}

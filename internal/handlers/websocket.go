package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	JobID   string      `json:"job_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// WebSocketHandler broadcasts job lifecycle events to connected clients.
// High-frequency progress events are throttled with a rate limiter so a
// many-slide analysis does not flood the socket.
type WebSocketHandler struct {
	logger            arbor.ILogger
	clients           map[*websocket.Conn]bool
	clientMutex       map[*websocket.Conn]*sync.Mutex
	mu                sync.RWMutex
	eventService      interfaces.EventService
	progressThrottler *rate.Limiter
	allowedEvents     map[string]bool // Whitelist of events to broadcast (empty = allow all)
	serverInstanceID  string          // Unique ID generated on startup - clients use to detect server restart
}

// NewWebSocketHandler creates the handler and subscribes it to job events
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
	}

	if config != nil && config.ProgressThrottle != "" {
		if duration, err := time.ParseDuration(config.ProgressThrottle); err == nil {
			h.progressThrottler = rate.NewLimiter(rate.Every(duration), 1)
		} else {
			logger.Warn().
				Err(err).
				Str("interval", config.ProgressThrottle).
				Msg("Failed to parse progress throttle interval - throttler disabled")
		}
	}

	if eventService != nil {
		h.subscribeToJobEvents()
	}

	return h
}

// subscribeToJobEvents wires every job event type to the broadcaster
func (h *WebSocketHandler) subscribeToJobEvents() {
	jobEvents := []interfaces.EventType{
		interfaces.EventJobCreated,
		interfaces.EventJobProgress,
		interfaces.EventJobAnalyzed,
		interfaces.EventJobCompleted,
		interfaces.EventJobFailed,
		interfaces.EventJobDeleted,
	}
	for _, eventType := range jobEvents {
		h.eventService.Subscribe(eventType, h.handleJobEvent)
	}
}

// handleJobEvent forwards a job event to all connected clients
func (h *WebSocketHandler) handleJobEvent(ctx context.Context, event interfaces.Event) error {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[string(event.Type)] {
		return nil
	}

	// Progress events fire per slide; drop what the throttler rejects.
	if event.Type == interfaces.EventJobProgress && h.progressThrottler != nil {
		if !h.progressThrottler.Allow() {
			return nil
		}
	}

	h.broadcast(WSMessage{
		Type:    string(event.Type),
		JobID:   event.JobID,
		Payload: event.Payload,
	})
	return nil
}

// broadcast sends a message to every connected client
func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.removeClient(conn)
		}
	}
}

// HandleWebSocket handles WebSocket connections on /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("total", total).Msg("WebSocket client connected")

	// Greeting lets clients detect a server restart and resubscribe.
	h.sendTo(conn, WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
		},
	})

	// Drain reads so close frames are processed; clients never send data.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) sendTo(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()
	conn.WriteMessage(websocket.TextMessage, data)
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

package api

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gouq/internal"
)

// Event types streamed for a run
const (
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// RunEvent is one progress or lifecycle update of a sampling run
type RunEvent struct {
	RunID     string    `json:"run_id"`
	EventType string    `json:"event_type"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Progress  float64   `json:"progress"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Terminal reports whether no further events follow for the run
func (e RunEvent) Terminal() bool {
	return e.EventType == EventCompleted || e.EventType == EventFailed
}

// SSEHub fans run events out to Server-Sent Events subscribers
type SSEHub struct {
	clients   map[string]map[chan RunEvent]bool
	clientsMu sync.RWMutex
	broadcast chan RunEvent
	done      chan struct{}
	keepAlive time.Duration
	logger    *internal.Logger
}

// NewSSEHub creates a new SSE hub and starts its dispatch loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		clients:   make(map[string]map[chan RunEvent]bool),
		broadcast: make(chan RunEvent, 100),
		done:      make(chan struct{}),
		keepAlive: 30 * time.Second,
		logger:    logger.With("SSE"),
	}

	go hub.run()
	return hub
}

// Close stops the dispatch loop
func (h *SSEHub) Close() {
	close(h.done)
}

// run processes SSE hub operations
func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.RunID] {
				select {
				case clientChan <- event:
				default:
					h.logger.Warn("client channel full for run %s, skipping %s event",
						event.RunID, event.EventType)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast sends an event to all clients listening to a run
func (h *SSEHub) Broadcast(event RunEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping %s event", event.EventType)
	}
}

// Subscribe registers a channel for a run's events. Registration is complete
// when Subscribe returns. The returned function unregisters the channel.
func (h *SSEHub) Subscribe(runID string) (<-chan RunEvent, func()) {
	ch := make(chan RunEvent, 10)
	h.clientsMu.Lock()
	if h.clients[runID] == nil {
		h.clients[runID] = make(map[chan RunEvent]bool)
	}
	h.clients[runID][ch] = true
	h.logger.Debug("client registered for run %s (total clients: %d)", runID, len(h.clients[runID]))
	h.clientsMu.Unlock()

	return ch, func() {
		h.clientsMu.Lock()
		defer h.clientsMu.Unlock()
		if clients, exists := h.clients[runID]; exists {
			delete(clients, ch)
			if len(clients) == 0 {
				delete(h.clients, runID)
			}
		}
	}
}

// ClientCount returns the number of active clients for a run
func (h *SSEHub) ClientCount(runID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[runID])
}

// stream writes events from ch to the client until a terminal event, a
// client disconnect or stop.
func (h *SSEHub) stream(c *gin.Context, ch <-chan RunEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-ch:
			eventJSON, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			return !event.Terminal()

		case <-time.After(h.keepAlive):
			// Send ping to keep connection alive
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false

		case <-h.done:
			return false
		}
	})
}

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/financeguru/advisor/internal/domain"
)

// Event types pushed to UI subscribers.
const (
	EventMessage = "message"
	EventStatus  = "status"
	EventLoading = "loading"
)

// Event is one UI-facing signal: an appended message, a connectivity
// state change, or the loading flag flipping.
type Event struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message,omitempty"`
	Status  string          `json:"status,omitempty"`
	Loading bool            `json:"loading,omitempty"`
}

// subscriberBuffer bounds each subscriber's backlog. A slow client
// drops events rather than stalling the dispatcher.
const subscriberBuffer = 32

// Hub fans events out to WebSocket subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int64]chan Event
	nextID int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]chan Event)}
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("Dropping event for slow subscriber", "subscriber_id", id, "type", ev.Type)
		}
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (h *Hub) Subscribe() (int64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber.
func (h *Hub) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// ServeWS upgrades the request to a WebSocket and streams events as
// JSON text frames until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	id, events := h.Subscribe()
	defer h.Unsubscribe(id)
	slog.Info("Event stream subscriber connected", "subscriber_id", id, "ip", r.RemoteAddr)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := writeEvent(ctx, ws, ev); err != nil {
				slog.Debug("Event stream write failed", "error", err, "subscriber_id", id)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, ws *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

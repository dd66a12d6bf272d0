package player

import (
	"sync"
	"time"

	"midnightmedia/pkg/models"
)

// Status is a point-in-time snapshot of the playback session
type Status struct {
	SessionID string        `json:"sessionId"`
	State     State         `json:"state"`
	Index     int           `json:"index"`
	Media     *models.Media `json:"media,omitempty"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	Shuffled  bool          `json:"shuffled"`
	Looped    bool          `json:"looped"`
	Muted     bool          `json:"muted"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// statusHub fans status snapshots out to subscribers so a presentation shell
// can render without polling session internals.
type statusHub struct {
	mutex     sync.Mutex
	listeners []chan Status
}

func newStatusHub() *statusHub {
	return &statusHub{
		listeners: make([]chan Status, 0),
	}
}

// Subscribe adds a listener for status changes
func (h *statusHub) Subscribe() <-chan Status {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ch := make(chan Status, 10) // Buffered channel to prevent blocking
	h.listeners = append(h.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (h *statusHub) Unsubscribe(ch <-chan Status) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for i, listener := range h.listeners {
		if listener == ch {
			close(listener)
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			break
		}
	}
}

// publish sends a snapshot to all subscribers, dropping any listener whose
// channel is full rather than blocking the session.
func (h *statusHub) publish(status Status) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	kept := h.listeners[:0]
	for _, listener := range h.listeners {
		select {
		case listener <- status:
			kept = append(kept, listener)
		default:
			close(listener)
		}
	}
	h.listeners = kept
}

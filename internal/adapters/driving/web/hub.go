package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// DefaultWriteTimeout bounds one write to one subscriber.
const DefaultWriteTimeout = 5 * time.Second

// errSubscriberClosed is returned when writing to a removed subscriber.
var errSubscriberClosed = errors.New("subscriber closed")

// Ensure Hub implements the interface.
var _ driven.EventPublisher = (*Hub)(nil)

// Hub fans progress events out to every open event stream.
//
// The registry lock only guards add, remove and snapshot. Publish writes to a
// snapshot outside that lock, so a slow stream delays only itself and at most
// by the write timeout. Events are not buffered: a stream opened after an
// event was published never sees it.
type Hub struct {
	mu           sync.Mutex
	subs         map[*Subscriber]struct{}
	closed       bool
	writeTimeout time.Duration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:         make(map[*Subscriber]struct{}),
		writeTimeout: DefaultWriteTimeout,
	}
}

// Subscriber is one open event stream.
type Subscriber struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	rc     *http.ResponseController
	closed bool
	done   chan struct{}
}

// Done is closed when the subscriber is removed from the hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// send writes one frame and flushes it. Writes are serialised per subscriber,
// so frames reach a stream in the order they were sent.
func (s *Subscriber) send(frame []byte, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSubscriberClosed
	}
	// Not every ResponseWriter supports deadlines; the write still proceeds.
	_ = s.rc.SetWriteDeadline(time.Now().Add(timeout))
	defer func() { _ = s.rc.SetWriteDeadline(time.Time{}) }()

	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	return s.rc.Flush()
}

// close marks the subscriber closed, waiting for an in-flight write to end.
func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Subscribe registers w as an event stream. The caller must have written the
// stream headers already and must call Unsubscribe before its handler returns.
func (h *Hub) Subscribe(w http.ResponseWriter) *Subscriber {
	sub := &Subscriber{
		w:    w,
		rc:   http.NewResponseController(w),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.closed = true
		close(sub.done)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Publish sends {"type": eventType, "data": payload} to every subscriber.
// A subscriber whose write fails is dropped; errors never reach the caller.
func (h *Hub) Publish(eventType domain.EventType, payload any) {
	data, err := json.Marshal(domain.ProgressEvent{Type: eventType, Data: payload})
	if err != nil {
		logger.Warn("Dropping %s event: %v", eventType, err)
		return
	}
	frame := []byte(fmt.Sprintf("data: %s\n\n", data))

	for _, sub := range h.snapshot() {
		if err := sub.send(frame, h.writeTimeout); err != nil {
			logger.Debug("Dropping event subscriber: %v", err)
			h.Unsubscribe(sub)
		}
	}
}

// Comment sends an SSE comment line to one subscriber.
func (h *Hub) Comment(sub *Subscriber, text string) error {
	return sub.send([]byte(": "+text+"\n\n"), h.writeTimeout)
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (h *Hub) snapshot() []*Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	return subs
}

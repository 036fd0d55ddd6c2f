package engine

import (
	"sync"
	"time"

	"PolyCorr/internal/domain/models"
	xlogger "PolyCorr/pkg/logger"
)

// EventKind identifies a hub notification.
type EventKind string

const (
	EventRelationAdded       EventKind = "relationAdded"
	EventCorrelationDetected EventKind = "correlationDetected"
	EventCriticalCorrelation EventKind = "criticalCorrelation"
)

// Event is delivered synchronously to subscribed handlers. Exactly one of
// Relation or Correlation is set depending on Kind.
type Event struct {
	Kind        EventKind
	Relation    *models.MarketRelation
	Correlation *models.Correlation
	At          time.Time
}

// Handler receives hub events. Handlers run synchronously on the emitting
// goroutine; a panicking handler is recovered and logged and does not stop
// delivery to the remaining handlers.
type Handler func(Event)

// Hub is a typed in-process pub/sub registry.
type Hub struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
	logger   *xlogger.Logger
}

// NewHub creates an event hub. Logger may be nil.
func NewHub(l *xlogger.Logger) *Hub {
	return &Hub{handlers: make(map[EventKind][]Handler), logger: l}
}

// Subscribe registers a handler for one event kind.
func (h *Hub) Subscribe(kind EventKind, fn Handler) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.handlers[kind] = append(h.handlers[kind], fn)
	h.mu.Unlock()
}

// Publish delivers the event to every handler registered for its kind.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	hs := h.handlers[ev.Kind]
	h.mu.RUnlock()
	for _, fn := range hs {
		h.dispatch(ev, fn)
	}
}

func (h *Hub) dispatch(ev Event, fn Handler) {
	defer func() {
		if r := recover(); r != nil && h.logger != nil {
			h.logger.Error("event handler panic",
				xlogger.String("event", string(ev.Kind)),
				xlogger.Any("panic", r),
			)
		}
	}()
	fn(ev)
}

package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Type identifies a kind of notification
type Type string

// SubscriberId identifies a subscription for later cancellation
type SubscriberId int

// HandlerFunc processes a published event
type HandlerFunc func(Event)

// Event is a single append-only log entry. Events are facts for external
// indexers; nothing in the system reads them back as control flow.
type Event struct {
	Id        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// New creates an event with a fresh id
func New(eventType Type, data any) Event {
	return Event{
		Id:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type busMetrics struct {
	eventsTotal *prometheus.CounterVec
}

// Bus dispatches events to subscribers and retains the full history.
// Dispatch is synchronous: every mutating operation in the system runs to
// completion before the next starts, and handlers run inside that window.
type Bus struct {
	subscribers map[Type]map[SubscriberId]HandlerFunc
	history     []Event
	lastSubId   SubscriberId
	metrics     *busMetrics
	logger      *slog.Logger
	mutex       sync.RWMutex
}

// NewBus creates a new event bus
func NewBus(promRegistry prometheus.Registerer, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		subscribers: make(map[Type]map[SubscriberId]HandlerFunc),
		logger:      logger,
	}
	if promRegistry != nil {
		b.metrics = &busMetrics{
			eventsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "govnode_events_total",
					Help: "Total number of events published, by type",
				},
				[]string{"type"},
			),
		}
		promRegistry.MustRegister(b.metrics.eventsTotal)
	}
	return b
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType Type, handler HandlerFunc) SubscriberId {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.lastSubId++
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[SubscriberId]HandlerFunc)
	}
	b.subscribers[eventType][b.lastSubId] = handler
	return b.lastSubId
}

// Unsubscribe removes a subscription
func (b *Bus) Unsubscribe(eventType Type, id SubscriberId) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.subscribers[eventType], id)
}

// Publish appends an event to the history and delivers it to subscribers
func (b *Bus) Publish(eventType Type, data any) {
	evt := New(eventType, data)

	b.mutex.Lock()
	b.history = append(b.history, evt)
	handlers := make([]HandlerFunc, 0, len(b.subscribers[eventType]))
	for _, handler := range b.subscribers[eventType] {
		handlers = append(handlers, handler)
	}
	b.mutex.Unlock()

	if b.metrics != nil {
		b.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
	b.logger.Debug("event published", "type", eventType, "id", evt.Id)

	for _, handler := range handlers {
		handler(evt)
	}
}

// History returns a copy of all published events in publication order
func (b *Bus) History() []Event {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// HistoryByType returns published events of one type in publication order
func (b *Bus) HistoryByType(eventType Type) []Event {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]Event, 0)
	for _, evt := range b.history {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

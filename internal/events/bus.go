// Package events carries pipeline notifications from the conversion engine
// to logging, metrics and tracing subscribers.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Type names a pipeline event.
type Type string

const (
	ConversionStarted   Type = "conversion.started"
	FormatDetected      Type = "format.detected"
	ParseCompleted      Type = "parse.completed"
	TransposeCompleted  Type = "transpose.completed"
	RenderCompleted     Type = "render.completed"
	ConversionCompleted Type = "conversion.completed"
	ConversionFailed    Type = "conversion.failed"
)

// Types lists every event type in pipeline order.
var Types = []Type{
	ConversionStarted, FormatDetected, ParseCompleted, TransposeCompleted,
	RenderCompleted, ConversionCompleted, ConversionFailed,
}

// Fields holds event payload values.
type Fields map[string]interface{}

// Event is one notification. RequestID ties together the events of one
// conversion.
type Event struct {
	Type      Type          `json:"type"`
	RequestID string        `json:"request_id"`
	At        time.Time     `json:"at"`
	Duration  time.Duration `json:"duration,omitempty"`
	Fields    Fields        `json:"fields,omitempty"`
}

// Handler receives events.
type Handler func(Event)

// Bus delivers events synchronously, in publish order, to the handlers
// subscribed to their type and to wildcard handlers. A panicking handler
// does not stop delivery to the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler
	onPanic  func(Event, interface{})
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

// Subscribe registers h for one event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// OnPanic sets a callback for handler panics. The default drops them.
func (b *Bus) OnPanic(fn func(Event, interface{})) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPanic = fn
}

// Publish delivers e. A nil bus drops events so callers need no guard.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Type])+len(b.all))
	handlers = append(handlers, b.handlers[e.Type]...)
	handlers = append(handlers, b.all...)
	onPanic := b.onPanic
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(h, e, onPanic)
	}
}

func deliver(h Handler, e Event, onPanic func(Event, interface{})) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(e, r)
		}
	}()
	h(e)
}

// String renders the event for log lines.
func (e Event) String() string {
	return fmt.Sprintf("%s request=%s", e.Type, e.RequestID)
}

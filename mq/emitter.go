package mq

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event is one notification on the bus.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Handler reacts to an event. Handlers run on the emitting goroutine, in subscription order.
type Handler func(ctx context.Context, ev Event)

// Bus is the in-process event bus through which the session, the cart and the storefront
// server tell each other about state transitions.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
	log      logrus.FieldLogger
}

func NewBus(log logrus.FieldLogger) *Bus {
	return &Bus{handlers: make(map[string][]Handler), log: log}
}

// Subscribe registers h for name; an empty name receives every event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		b.all = append(b.all, h)
		return
	}
	b.handlers[name] = append(b.handlers[name], h)
}

// Emit delivers the event to its subscribers. A nil Bus drops it.
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[name])+len(b.all))
	hs = append(hs, b.handlers[name]...)
	hs = append(hs, b.all...)
	b.mu.RUnlock()

	if b.log != nil {
		b.log.WithField("event", name).Debug("emit")
	}
	ev := Event{Name: name, Payload: payload}
	for _, h := range hs {
		h(ctx, ev)
	}
}

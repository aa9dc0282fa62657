// Package event provides a synchronous lifecycle signal bus implementing ecs.EventSystem
package event

import (
	"sync"

	"github.com/plus3/entitypool/ecs"
	"go.uber.org/zap"
)

// Handler receives a signal for an entity
type Handler func(h *ecs.Handle, signal ecs.Signal)

// Bus delivers signals to subscribed handlers on the sender's goroutine, in subscription order
// Subscribing and sending may happen concurrently
type Bus struct {
	mu       sync.RWMutex
	handlers map[ecs.Signal][]Handler
	all      []Handler
	log      *zap.Logger
}

// NewBus creates an empty bus. A nil logger disables logging
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[ecs.Signal][]Handler),
		log:      log,
	}
}

// Subscribe registers fn for one signal
func (b *Bus) Subscribe(signal ecs.Signal, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[signal] = append(b.handlers[signal], fn)
}

// SubscribeAll registers fn for every signal
func (b *Bus) SubscribeAll(fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, fn)
}

// Send delivers signal for h. Signals for inactive handles are dropped
func (b *Bus) Send(h *ecs.Handle, signal ecs.Signal) {
	if !h.IsActive() {
		b.log.Debug("signal for inactive entity dropped",
			zap.Uint64("entity", uint64(h.Id())),
			zap.Stringer("signal", signal))
		return
	}

	b.mu.RLock()
	handlers := b.handlers[signal]
	all := b.all
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(h, signal)
	}
	for _, fn := range all {
		fn(h, signal)
	}
}

// Package event provides a small in-process event dispatcher.
//
//	bus := event.NewBus()
//	bus.Listen("product.created", func(ctx context.Context, payload interface{}) { ... })
//	bus.Fire(ctx, "product.created", p)
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload interface{})

// Bus routes events to listeners by name.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     *workerpool.Pool
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers a handler for the given event name.
func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) listeners(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[event]...)
}

// Fire runs every listener of event in registration order. A panicking
// listener is logged and does not stop the others.
func (b *Bus) Fire(ctx context.Context, event string, payload interface{}) {
	for _, h := range b.listeners(event) {
		b.call(ctx, event, h, payload)
	}
}

func (b *Bus) call(ctx context.Context, event string, h Handler, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event listener panicked", "event", event, "panic", fmt.Sprint(rec))
		}
	}()
	h(ctx, payload)
}

// UsePool makes FireAsync run listeners on pool instead of fresh goroutines.
func (b *Bus) UsePool(pool *workerpool.Pool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pool = pool
}

// FireAsync runs the listeners in the background and returns at once. ctx
// should outlive the request; pass context.WithoutCancel(r.Context()). When
// the pool is full or closed the listener runs inline.
func (b *Bus) FireAsync(ctx context.Context, event string, payload interface{}) {
	b.mu.RLock()
	pool := b.pool
	b.mu.RUnlock()

	for _, h := range b.listeners(event) {
		h := h
		if pool == nil {
			go b.call(ctx, event, h, payload)
			continue
		}
		if err := pool.Submit(func() { b.call(ctx, event, h, payload) }); err != nil {
			logger.WithCtx(ctx).Warn("event listener ran inline", "event", event, "reason", err)
			b.call(ctx, event, h, payload)
		}
	}
}

// Reset removes all listeners.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}

// Package eventbus is a small in-process pub/sub used to decouple the
// engine and transports from observability wiring. Publishers fire typed
// events; subscribers register per event type on a process-global bus.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type subscription struct {
	id int64
	fn func(context.Context, any)
}

// Bus dispatches events to handlers registered for their dynamic type.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[reflect.Type][]subscription
}

func New() *Bus {
	return &Bus{subs: map[reflect.Type][]subscription{}}
}

func (b *Bus) subscribe(t reflect.Type, fn func(context.Context, any)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, s := range subs {
			if s.id == id {
				b.subs[t] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subs[t]) == 0 {
			delete(b.subs, t)
		}
	}
}

func (b *Bus) publish(ctx context.Context, e any) {
	t := reflect.TypeOf(e)
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[t]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use installs b as the process-global bus. Passing nil disables publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h on the global bus for events of type T. The
// returned function removes the registration; it is a no-op when no bus is
// installed.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(t, func(ctx context.Context, e any) { h(ctx, e.(T)) })
}

// Publish sends e to the global bus subscribers of its type.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.publish(ctx, e)
	}
}

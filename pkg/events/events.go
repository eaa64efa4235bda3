// Package events implements a small synchronous publish/subscribe bus used
// to announce debugger lifecycle changes.
package events

import "sync"

// DebuggerStarted is emitted as soon as the debug server launch has been
// requested, before the process is known to be up.
const DebuggerStarted = "debugger:started"

// Handler receives the arguments passed to Emit.
type Handler func(args ...interface{})

// Emitter publishes named events.
type Emitter interface {
	Emit(name string, args ...interface{})
}

// Bus is an Emitter that dispatches events to the handlers subscribed to
// their name, in subscription order, on the goroutine calling Emit.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscription
}

type subscription struct {
	id int
	fn Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for events called name. The returned function
// removes the subscription.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[string][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[name]
		for i := range subs {
			if subs[i].id == id {
				b.subs[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every handler subscribed to name. Handlers may subscribe or
// unsubscribe while being called, the change applies to the next Emit.
func (b *Bus) Emit(name string, args ...interface{}) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[name]...)
	b.mu.Unlock()
	for _, s := range subs {
		s.fn(args...)
	}
}

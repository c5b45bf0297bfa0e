// Package registry is the channel-keyed fan-out between the live connection
// and the widgets that display its data.
package registry

import (
	"slices"
	"sync"
)

// Channel names one notification stream.
type Channel string

const (
	Metrics     Channel = "metrics"
	Events      Channel = "events"
	Devices     Channel = "devices"
	Geographic  Channel = "geographic"
	Performance Channel = "performance"
	Connection  Channel = "connection"
)

// Channels lists every channel in display order.
var Channels = []Channel{Metrics, Events, Devices, Geographic, Performance, Connection}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	for _, k := range Channels {
		if c == k {
			return true
		}
	}
	return false
}

type listener struct {
	id uint64
	fn func(any)
}

// Registry maps channels to their listeners. The zero value is not usable;
// call New.
type Registry struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[Channel][]listener
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{listeners: make(map[Channel][]listener)}
}

// Subscribe registers fn on ch. The returned function removes exactly this
// registration; calling it again is a no-op.
func (r *Registry) Subscribe(ch Channel, fn func(any)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[ch] = append(r.listeners[ch], listener{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(ch, id) })
	}
}

func (r *Registry) remove(ch Channel, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls := r.listeners[ch]
	for i, l := range ls {
		if l.id != id {
			continue
		}
		next := slices.Delete(ls, i, i+1)
		if len(next) == 0 {
			delete(r.listeners, ch)
		} else {
			r.listeners[ch] = next
		}
		return
	}
}

// Notify calls every listener registered on ch at the time of the call, in
// registration order, with the same value. Listeners may subscribe or
// unsubscribe from inside the callback.
func (r *Registry) Notify(ch Channel, v any) {
	r.mu.Lock()
	snapshot := make([]listener, len(r.listeners[ch]))
	copy(snapshot, r.listeners[ch])
	r.mu.Unlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}

// Count returns the number of listeners on ch.
func (r *Registry) Count(ch Channel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[ch])
}

// On subscribes a typed callback. Values of any other type are skipped.
func On[T any](r *Registry, ch Channel, fn func(T)) (unsubscribe func()) {
	return r.Subscribe(ch, func(v any) {
		if t, ok := v.(T); ok {
			fn(t)
		}
	})
}

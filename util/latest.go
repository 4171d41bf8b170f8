package util

import "sync"

// Latest is a single-slot mailbox: Publish overwrites the stored value
// and raises a notification, Get reads the most recent value. Slow
// consumers only ever see the newest value, intermediate ones are
// dropped.
type Latest[T any] struct {
	mu     sync.Mutex
	value  T
	notify chan struct{}
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{notify: make(chan struct{}, 1)}
}

// Publish stores value and signals the channel. Never blocks.
func (l *Latest[T]) Publish(value T) {
	l.mu.Lock()
	l.value = value
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
		// A notification is already pending.
	}
}

// Channel fires when a new value has been published since the last Get.
// Intended for use in select loops.
func (l *Latest[T]) Channel() <-chan struct{} {
	return l.notify
}

// Get returns the most recently published value.
func (l *Latest[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Pending reports whether a notification is waiting.
func (l *Latest[T]) Pending() bool {
	return len(l.notify) > 0
}

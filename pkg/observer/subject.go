// Package observer provides a typed in-process event fan-out.
package observer

import (
	"context"
	"slices"
	"sync"
)

// Observer defines the callback contract for receiving published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a standalone function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

// Notify executes the wrapped function.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Publisher publishes events to downstream observers.
type Publisher[T any] interface {
	Publish(context.Context, T)
}

type subscription[T any] struct {
	obs Observer[T]
	id  uint64
}

// Subject delivers every published event to its observers synchronously,
// in subscription order.
type Subject[T any] struct {
	onError func(error)
	subs    []subscription[T]
	nextID  uint64
	mu      sync.RWMutex
}

// NewSubject constructs a Subject with optional initial observers.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	s := &Subject[T]{}
	s.Attach(observers...)
	return s
}

// Publish invokes every observer with the provided event. Observer errors go
// to the error handler and never stop delivery to the others.
func (s *Subject[T]) Publish(ctx context.Context, evt T) {
	if s == nil {
		return
	}
	s.mu.RLock()
	subs := slices.Clone(s.subs)
	errHandler := s.onError
	s.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.obs.Notify(ctx, evt); err != nil && errHandler != nil {
			errHandler(err)
		}
	}
}

// Attach registers observers for the lifetime of the subject.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	for _, o := range observers {
		s.Subscribe(o)
	}
}

// Subscribe registers one observer and returns a function removing it again.
// The returned function is safe to call more than once.
func (s *Subject[T]) Subscribe(o Observer[T]) (unsubscribe func()) {
	if s == nil || o == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{obs: o, id: id})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscription[T]) bool { return sub.id == id })
		})
	}
}

// Len returns the number of registered observers.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Clear removes every observer.
func (s *Subject[T]) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
}

// SetErrorHandler configures a callback for observer failures.
func (s *Subject[T]) SetErrorHandler(fn func(error)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

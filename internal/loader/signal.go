package loader

import (
	"sync"

	"github.com/opsdeck/opsdeck/internal/ability"
)

// Session is the readiness signal the loader gates on. The loader only runs
// an initialization pass while Authenticated is true and Loading is false.
type Session struct {
	Authenticated bool
	Loading       bool
	Role          ability.Role
}

// Ready reports whether the session allows an initialization pass.
func (s Session) Ready() bool {
	return s.Authenticated && !s.Loading
}

// Signal is an observable holder for the current Session. Auth handlers set
// it on login and logout; the loader subscribes to it.
type Signal struct {
	mu        sync.Mutex
	current   Session
	listeners []sessionListener
	nextID    int
}

type sessionListener struct {
	id int
	fn func(Session)
}

// NewSignal creates a Signal in the unauthenticated state.
func NewSignal() *Signal {
	return &Signal{}
}

// Get returns the current session snapshot.
func (s *Signal) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the session and synchronously notifies listeners with the
// new snapshot, in subscription order.
func (s *Signal) Set(sess Session) {
	s.mu.Lock()
	s.current = sess
	fns := make([]func(Session), len(s.listeners))
	for i, l := range s.listeners {
		fns[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *Signal) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, sessionListener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

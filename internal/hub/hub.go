// Package hub implements the in-process fan-out used to push live updates
// (registry changes, chat traffic) to connected browsers.
package hub

import "log/slog"

// Subscriber represents a single client that can receive broadcast payloads
// from the Hub. The client owns reading from Send.
type Subscriber struct {
	// Send is a buffered channel of outbound messages. The Hub sends
	// messages to this channel, and the client is responsible for reading
	// from it.
	Send chan []byte
}

// NewSubscriber creates a subscriber with a small outbound buffer.
func NewSubscriber() *Subscriber {
	return &Subscriber{Send: make(chan []byte, 16)}
}

// Hub is a generic, concurrent event bus. It maintains the set of active
// subscribers and broadcasts messages to them.
type Hub struct {
	subscribers map[*Subscriber]bool

	// Broadcast is the channel for inbound messages from any component.
	Broadcast chan []byte

	// Register is a channel for new subscribers to register with the hub.
	Register chan *Subscriber

	// Unregister is a channel for subscribers to unregister from the hub.
	Unregister chan *Subscriber

	done chan struct{}
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Broadcast:   make(chan []byte),
		Register:    make(chan *Subscriber),
		Unregister:  make(chan *Subscriber),
		subscribers: make(map[*Subscriber]bool),
		done:        make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It must be run in a
// separate goroutine and exits when Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for sub := range h.subscribers {
				close(sub.Send)
				delete(h.subscribers, sub)
			}
			return

		case subscriber := <-h.Register:
			h.subscribers[subscriber] = true
			slog.Debug("New live-update subscriber", "total_subscribers", len(h.subscribers))

		case subscriber := <-h.Unregister:
			if _, ok := h.subscribers[subscriber]; ok {
				delete(h.subscribers, subscriber)
				close(subscriber.Send)
				slog.Debug("Live-update subscriber left", "total_subscribers", len(h.subscribers))
			}

		case message := <-h.Broadcast:
			for subscriber := range h.subscribers {
				// Non-blocking send. A full buffer suggests the client is
				// lagging or disconnected, so it gets dropped.
				select {
				case subscriber.Send <- message:
				default:
					close(subscriber.Send)
					delete(h.subscribers, subscriber)
					slog.Warn("Unregistering slow subscriber", "total_subscribers", len(h.subscribers))
				}
			}
		}
	}
}

// Stop shuts the hub down and closes all subscriber channels.
func (h *Hub) Stop() {
	close(h.done)
}

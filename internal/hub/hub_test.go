package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	a := NewSubscriber()
	b := NewSubscriber()
	h.Register <- a
	h.Register <- b

	h.Broadcast <- []byte("hello")

	for _, sub := range []*Subscriber{a, b} {
		select {
		case msg := <-sub.Send:
			assert.Equal(t, "hello", string(msg))
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	sub := NewSubscriber()
	h.Register <- sub
	h.Unregister <- sub

	select {
	case _, open := <-sub.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestStopClosesRemainingSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()

	sub := NewSubscriber()
	h.Register <- sub
	h.Stop()

	select {
	case _, open := <-sub.Send:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown close")
	}
}

// Package websocket connects browsers to the in-process hub over a
// WebSocket endpoint and bridges the message bus into it.
package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck/internal/hub"
	"github.com/opsdeck/opsdeck/internal/pubsub"
)

const writeTimeout = 10 * time.Second

// Handler upgrades the request and pumps hub broadcasts to the client until
// it disconnects. Incoming frames are discarded; the live socket is
// push-only.
func Handler(h *hub.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		defer conn.Close(websocket.StatusInternalError, "closing")

		sub := hub.NewSubscriber()
		h.Register <- sub
		defer func() { h.Unregister <- sub }()

		ctx := c.Request().Context()

		// Drain the read side so pings and client close frames are handled.
		go func() {
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()

		for msg := range sub.Send {
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				slog.Debug("Live socket write failed, dropping client", "error", err)
				return nil
			}
		}

		conn.Close(websocket.StatusNormalClosure, "hub closed")
		return nil
	}
}

// Bridge forwards bus topics into the hub so every connected browser sees
// them. It returns once the subscriptions are active.
func Bridge(ctx context.Context, sub pubsub.Subscriber, h *hub.Hub, topics ...string) error {
	for _, topic := range topics {
		err := sub.Subscribe(ctx, topic, func(ctx context.Context, msg pubsub.Message) error {
			payload := msg.Payload
			if len(payload) == 0 {
				// Change notifications carry no payload; push the topic
				// name so clients know what happened.
				payload = []byte(msg.Topic)
			}
			h.Broadcast <- payload
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

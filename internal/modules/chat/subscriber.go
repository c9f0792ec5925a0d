package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/hub"
	"github.com/opsdeck/opsdeck/internal/pubsub"
	"github.com/opsdeck/opsdeck/internal/rendering"
)

// subscriber listens for chat messages on the bus, renders them to HTML
// fragments and broadcasts them through the hub.
type subscriber struct {
	bus      pubsub.Subscriber
	renderer rendering.Renderer
	hub      *hub.Hub
}

func newSubscriber(bus pubsub.Subscriber, renderer rendering.Renderer, h *hub.Hub) *subscriber {
	return &subscriber{bus: bus, renderer: renderer, hub: h}
}

func (s *subscriber) start(ctx context.Context) error {
	return s.bus.Subscribe(ctx, pubsub.TopicChatMessage, s.handleMessage)
}

func (s *subscriber) handleMessage(ctx context.Context, msg pubsub.Message) error {
	var incoming payload
	if err := json.Unmarshal(msg.Payload, &incoming); err != nil {
		slog.Error("Failed to unmarshal chat message", "error", err, "payload", string(msg.Payload))
		return err
	}

	sender := msg.UserID
	if sender == "" {
		sender = "anonymous"
	}

	rendered, err := s.renderer.RenderComponent(ctx, messageBubble(sender, incoming.Content, time.Now()))
	if err != nil {
		return fmt.Errorf("render chat message: %w", err)
	}

	s.hub.Broadcast <- rendered
	return nil
}

func messageBubble(sender, content string, at time.Time) g.Node {
	return h.Div(
		h.Class("chat-message"),
		h.Span(h.Class("chat-sender"), g.Text(sender)),
		h.Span(h.Class("chat-time"), g.Text(at.Format("15:04:05"))),
		h.P(g.Text(content)),
	)
}

// Package chat gives operators a shared message channel. Messages travel
// over the bus and reach browsers through the live-update hub, so every
// connected session sees them without polling.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/hub"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/pubsub"
	"github.com/opsdeck/opsdeck/internal/rendering"
	"github.com/opsdeck/opsdeck/internal/view"
)

const ModuleID = "chat"

type Dependencies struct {
	RenderPage view.PageRenderer
	Renderer   rendering.Renderer
	Hub        *hub.Hub
}

func New(deps Dependencies) module.Definition {
	m := &chat{
		renderPage: deps.RenderPage,
		renderer:   deps.Renderer,
		hub:        deps.Hub,
	}

	useChat := []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectChat}}

	return module.Definition{
		ID:      ModuleID,
		Name:    "Chat",
		Version: "1.0.0",
		Routes: []module.Route{{
			Path:    "/chat",
			Handler: m.pageGet,
			Require: useChat,
			Children: []module.Route{{
				Path:    "/message",
				Handler: m.messagePost,
				Require: []ability.Rule{{Action: ability.ActionCreate, Subject: ability.SubjectChat}},
			}},
		}},
		Navigation: []module.NavItem{{
			ID:      ModuleID,
			Label:   "Chat",
			Path:    "/app/chat",
			Require: useChat,
		}},
		OnInit: m.init,
	}
}

// payload is the bus message body for TopicChatMessage.
type payload struct {
	Content string `json:"content"`
}

type chat struct {
	renderPage view.PageRenderer
	renderer   rendering.Renderer
	hub        *hub.Hub

	publisher pubsub.Publisher
}

// init wires the bus subscriber that renders incoming messages and pushes
// them to every connected browser.
func (m *chat) init(ctx context.Context, mc *module.Context) error {
	m.publisher = mc.Publisher
	if mc.Subscriber == nil {
		return nil
	}
	sub := newSubscriber(mc.Subscriber, m.renderer, m.hub)
	return sub.start(ctx)
}

func (m *chat) pageGet(c echo.Context) error {
	content := h.Section(
		h.H1(g.Text("Operator Chat")),
		h.Div(h.ID("chat-messages")),
		h.Form(
			h.Method("post"),
			h.Action("/app/chat/message"),
			h.Input(h.Type("text"), h.Name("content"), h.Placeholder("Say something..."), g.Attr("autocomplete", "off")),
			h.Button(h.Type("submit"), g.Text("Send")),
		),
	)
	return m.renderPage(c, "Chat", content)
}

func (m *chat) messagePost(c echo.Context) error {
	content := c.FormValue("content")
	if content == "" {
		return c.NoContent(http.StatusNoContent)
	}

	sender, _ := c.Get(middleware.UserContextKey).(string)
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return err
	}

	err = m.publisher.Publish(c.Request().Context(), pubsub.Message{
		Topic:    pubsub.TopicChatMessage,
		UserID:   sender,
		Payload:  body,
		Metadata: map[string]string{"sent_at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

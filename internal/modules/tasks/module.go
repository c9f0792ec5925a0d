// Package tasks contributes the task queue pages and keeps a live feed of
// task events from the message bus. Tasks are executed by agents, so this
// module depends on the agents module.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/modules/agents"
	"github.com/opsdeck/opsdeck/internal/pubsub"
	"github.com/opsdeck/opsdeck/internal/view"
)

const ModuleID = "tasks"

// feedLimit caps how many recent task events the page shows.
const feedLimit = 50

type Dependencies struct {
	RenderPage view.PageRenderer
}

func New(deps Dependencies) module.Definition {
	m := &tasks{renderPage: deps.RenderPage}

	readTasks := []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectTask}}

	return module.Definition{
		ID:           ModuleID,
		Name:         "Tasks",
		Version:      "1.0.0",
		Dependencies: []string{agents.ModuleID},
		Routes: []module.Route{{
			Path:    "/tasks",
			Handler: m.queueGet,
			Require: readTasks,
			Children: []module.Route{{
				Path:    "/replay",
				Handler: m.replayPost,
				Require: []ability.Rule{{Action: ability.ActionUpdate, Subject: ability.SubjectTask}},
			}},
		}},
		Navigation: []module.NavItem{{
			ID:      ModuleID,
			Label:   "Tasks",
			Path:    "/app/tasks",
			Require: readTasks,
			Children: []module.NavItem{{
				ID:      "tasks-queue",
				Label:   "Queue",
				Path:    "/app/tasks",
				Require: readTasks,
			}, {
				ID:      "tasks-replay",
				Label:   "Replay",
				Path:    "/app/tasks/replay",
				Require: []ability.Rule{{Action: ability.ActionUpdate, Subject: ability.SubjectTask}},
			}},
		}},
		OnInit: m.init,
	}
}

// TaskEvent is the bus payload agents publish on pubsub.TopicTaskEvent.
type TaskEvent struct {
	ID    string    `json:"id"`
	Task  string    `json:"task"`
	Agent string    `json:"agent"`
	State string    `json:"state"`
	At    time.Time `json:"at"`
}

type tasks struct {
	renderPage view.PageRenderer
	publisher  pubsub.Publisher

	mu   sync.RWMutex
	feed []TaskEvent
}

// init subscribes to the task event feed. The subscription uses the bus
// from the loader's context, so it only exists once a session is ready.
func (m *tasks) init(ctx context.Context, mc *module.Context) error {
	m.publisher = mc.Publisher
	if mc.Subscriber == nil {
		return nil
	}
	return mc.Subscriber.Subscribe(ctx, pubsub.TopicTaskEvent, m.handleEvent)
}

func (m *tasks) handleEvent(ctx context.Context, msg pubsub.Message) error {
	var ev TaskEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return err
	}
	m.record(ev)
	return nil
}

func (m *tasks) record(ev TaskEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feed = append(m.feed, ev)
	if len(m.feed) > feedLimit {
		m.feed = m.feed[len(m.feed)-feedLimit:]
	}
}

// Feed returns a snapshot of the recent task events, newest last.
func (m *tasks) snapshot() []TaskEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TaskEvent(nil), m.feed...)
}

// replayPost republishes the feed's failed events so agents pick them up
// again, then sends the operator back to the queue.
func (m *tasks) replayPost(c echo.Context) error {
	replayed := 0
	if m.publisher != nil {
		for _, ev := range m.snapshot() {
			if ev.State != "failed" {
				continue
			}
			// A replay is a new event, not a mutation of the old one.
			ev.ID = uuid.NewString()
			ev.State = "queued"
			ev.At = time.Now().UTC()
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := m.publisher.Publish(c.Request().Context(), pubsub.Message{
				Topic:   pubsub.TopicTaskEvent,
				Payload: payload,
			}); err != nil {
				return err
			}
			replayed++
		}
	}
	view.SetFlashSuccess(c, fmt.Sprintf("Replayed %d failed tasks.", replayed))
	return c.Redirect(http.StatusSeeOther, "/app/tasks")
}

func (m *tasks) queueGet(c echo.Context) error {
	events := m.snapshot()
	rows := make([]g.Node, 0, len(events))
	for _, ev := range events {
		rows = append(rows, h.Tr(
			h.Td(g.Text(ev.Task)),
			h.Td(g.Text(ev.Agent)),
			h.Td(g.Text(ev.State)),
			h.Td(g.Text(ev.At.Format(time.RFC3339))),
		))
	}

	content := h.Section(
		h.H1(g.Text("Task Queue")),
		h.Table(
			h.THead(h.Tr(h.Th(g.Text("Task")), h.Th(g.Text("Agent")), h.Th(g.Text("State")), h.Th(g.Text("At")))),
			h.TBody(g.Group(rows)),
		),
	)
	return m.renderPage(c, "Tasks", content)
}

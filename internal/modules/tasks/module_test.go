package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "maragu.dev/gomponents"

	"github.com/opsdeck/opsdeck/internal/pubsub"
)

type capturePublisher struct {
	messages []pubsub.Message
}

func (p *capturePublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func noopRenderPage(c echo.Context, title string, content g.Node) error {
	return c.HTML(http.StatusOK, title)
}

func TestRecordKeepsBoundedFeed(t *testing.T) {
	m := &tasks{}
	for i := 0; i < feedLimit+10; i++ {
		m.record(TaskEvent{Task: "t", State: "done"})
	}
	assert.Len(t, m.snapshot(), feedLimit)
}

func TestReplayPostRepublishesOnlyFailedEvents(t *testing.T) {
	pub := &capturePublisher{}
	m := &tasks{renderPage: noopRenderPage, publisher: pub}
	m.record(TaskEvent{ID: "1", Task: "backup", Agent: "collector-a", State: "failed", At: time.Now()})
	m.record(TaskEvent{ID: "2", Task: "rotate", Agent: "collector-b", State: "done", At: time.Now()})
	m.record(TaskEvent{ID: "3", Task: "scan", Agent: "indexer", State: "failed", At: time.Now()})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/app/tasks/replay", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("_session_store", sessions.NewCookieStore([]byte("test-secret")))

	require.NoError(t, m.replayPost(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app/tasks", rec.Header().Get("Location"))

	require.Len(t, pub.messages, 2)
	for _, msg := range pub.messages {
		assert.Equal(t, pubsub.TopicTaskEvent, msg.Topic)

		var ev TaskEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "queued", ev.State)
		assert.NotEmpty(t, ev.ID)
		assert.NotContains(t, []string{"1", "3"}, ev.ID)
	}
}

func TestInitRecordsBusEvents(t *testing.T) {
	m := &tasks{}
	handlerErr := m.handleEvent(context.Background(), pubsub.Message{
		Topic:   pubsub.TopicTaskEvent,
		Payload: []byte(`{"id":"e1","task":"backup","agent":"collector-a","state":"running"}`),
	})
	require.NoError(t, handlerErr)

	feed := m.snapshot()
	require.Len(t, feed, 1)
	assert.Equal(t, "backup", feed[0].Task)
	assert.Equal(t, "running", feed[0].State)
}

func TestHandleEventRejectsMalformedPayload(t *testing.T) {
	m := &tasks{}
	err := m.handleEvent(context.Background(), pubsub.Message{
		Topic:   pubsub.TopicTaskEvent,
		Payload: []byte("not json"),
	})
	assert.Error(t, err)
	assert.Empty(t, m.snapshot())
}

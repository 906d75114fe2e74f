package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/identity"
	"github.com/ashureev/agent-studio/internal/studio"
)

type fakeSource struct {
	mu         sync.Mutex
	ch         chan studio.Event
	subscribed chan struct{}
	cancelled  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan studio.Event, 8), subscribed: make(chan struct{})}
}

func (f *fakeSource) Subscribe(int) (<-chan studio.Event, func()) {
	close(f.subscribed)
	return f.ch, func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubRegister(t *testing.T) {
	t.Parallel()
	h := NewHub(newFakeSource(), "*", true, quietLogger())
	conn := &websocket.Conn{}

	h.Register("op", "tab-1", conn)
	assert.Same(t, conn, h.GetActive("op", "tab-1"))
	assert.Equal(t, 1, h.Count())

	h.Unregister("op", "tab-1", conn)
	assert.Nil(t, h.GetActive("op", "tab-1"))
	assert.Zero(t, h.Count())
}

func TestHubUnregisterStale(t *testing.T) {
	t.Parallel()
	h := NewHub(newFakeSource(), "*", true, quietLogger())
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	h.Register("op", "tab-1", conn1)
	h.Register("op", "tab-2", conn2)
	h.Unregister("op", "tab-1", conn1)

	assert.Same(t, conn2, h.GetActive("op", "tab-2"))
}

func TestHubConcurrentAccess(t *testing.T) {
	t.Parallel()
	h := NewHub(newFakeSource(), "*", true, quietLogger())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Register("op", "tab-"+strconv.Itoa(i), &websocket.Conn{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.GetActive("op", "tab-"+strconv.Itoa(i))
		}
	}()
	wg.Wait()
	assert.Equal(t, 500, h.Count())
}

func TestHubStreamsEvents(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	h := NewHub(src, "*", true, quietLogger())
	srv := httptest.NewServer(identity.Middleware(true)(h))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?session_id=tab-1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	<-src.subscribed
	src.ch <- studio.Event{
		Type:    studio.EventMessageAppended,
		Key:     "blueprint:CostAgent",
		Message: &domain.StoredMessage{ID: "m1", Role: "user", Content: "hi"},
	}

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var got studio.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, studio.EventMessageAppended, got.Type)
	assert.Equal(t, "blueprint:CostAgent", got.Key)
	require.NotNil(t, got.Message)
	assert.Equal(t, "hi", got.Message.Content)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
	assert.Equal(t, 1, h.Count())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.cancelled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	h := NewHub(newFakeSource(), "https://studio.example.com", false, quietLogger())

	req := httptest.NewRequest("GET", "/ws/events", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, 403, rec.Code)
}

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/agentdash/pkg/logger"
	"github.com/mwhitton/agentdash/pkg/metrics"
)

var upgrader = websocket.Upgrader{}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newConnection(t *testing.T, url string, mutate func(*Config)) *ChatConnection {
	t.Helper()

	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Format: "text"})
	m := metrics.NewMetrics(false, log)

	cfg := Config{
		URL:                  url,
		AgentID:              "agent-1",
		StoreID:              "store-1",
		Logger:               log,
		Metrics:              &m,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: 5,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	conn, err := NewChatConnection(cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Disconnect)
	return conn
}

func TestConnectIsIdempotent(t *testing.T) {
	var opened, live atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		opened.Add(1)
		live.Add(1)
		defer live.Add(-1)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	conn := newConnection(t, wsURL(server), nil)
	require.NoError(t, conn.Connect(context.Background()))
	require.NoError(t, conn.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return opened.Load() == 2 && live.Load() == 1
	}, 2*time.Second, 10*time.Millisecond, "first socket must close before the second opens")
	assert.True(t, conn.IsConnected())
}

func TestQueuedMessagesFlushInOrder(t *testing.T) {
	received := make(chan OutboundMessage, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			var msg OutboundMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	defer server.Close()

	conn := newConnection(t, wsURL(server), nil)

	assert.False(t, conn.SendMessage("A", true), "message before connect must queue")
	assert.False(t, conn.SendMessage("B", false))
	assert.False(t, conn.SendMessage("C", false))
	assert.Equal(t, 3, conn.QueuedMessages())

	require.NoError(t, conn.Connect(context.Background()))

	var got []string
	for len(got) < 3 {
		select {
		case msg := <-received:
			assert.Equal(t, "comprehensive_chat", msg.Type)
			assert.Equal(t, "agent-1", msg.AgentID)
			assert.Equal(t, "store-1", msg.StoreID)
			assert.True(t, msg.IncludeTimestamp)
			got = append(got, msg.Message)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for flush, received %v", got)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)
	assert.Equal(t, 0, conn.QueuedMessages())

	// No duplicates after the flush.
	select {
	case msg := <-received:
		t.Fatalf("unexpected extra message %q", msg.Message)
	case <-time.After(100 * time.Millisecond):
	}

	assert.True(t, conn.SendMessage("D", false), "live socket sends immediately")
}

func TestReconnectAttemptsAreBounded(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		dials.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	conn := newConnection(t, wsURL(server), nil)
	assert.Error(t, conn.Connect(context.Background()))

	// Initial dial plus five bounded retries.
	assert.Eventually(t, func() bool {
		return dials.Load() == 6
	}, 3*time.Second, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(6), dials.Load(), "no attempt beyond the retry budget")
	assert.False(t, conn.IsConnected())
}

func TestDisconnectSendsNormalClosureAndStopsReconnects(t *testing.T) {
	var opened atomic.Int32
	closeCodes := make(chan int, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		opened.Add(1)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if closeErr, ok := err.(*websocket.CloseError); ok {
					closeCodes <- closeErr.Code
				}
				return
			}
		}
	}))
	defer server.Close()

	conn := newConnection(t, wsURL(server), nil)
	require.NoError(t, conn.Connect(context.Background()))

	conn.Disconnect()

	select {
	case code := <-closeCodes:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a close frame")
	}

	// Wait well past the retry interval: no reconnect may fire.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), opened.Load())
	assert.False(t, conn.IsConnected())
	assert.Equal(t, 0, conn.QueuedMessages())
}

func TestUnintentionalCloseTriggersReconnect(t *testing.T) {
	var opened atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := opened.Add(1)
		if n == 1 {
			// Drop the first socket without a close frame.
			_ = ws.Close()
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	states := make(chan bool, 8)
	conn := newConnection(t, wsURL(server), func(cfg *Config) {
		cfg.OnStateChange = func(connected bool) { states <- connected }
	})
	require.NoError(t, conn.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return opened.Load() == 2 && conn.IsConnected()
	}, 3*time.Second, 20*time.Millisecond, "one automatic reconnect expected")

	// connected, dropped, reconnected.
	assert.True(t, <-states)
	assert.False(t, <-states)
	assert.True(t, <-states)
}

func TestInboundEventDispatch(t *testing.T) {
	frames := []string{
		`{"type":"chat_response","response":"hello"}`,
		`{"type":"comprehensive_chat_response","response":"hi there","customer_id":"cust-7"}`,
		`{"type":"customer_id","customer_id":"cust-8"}`,
		`{"type":"error","message":"agent offline"}`,
		`{"type":"mystery"}`,
		`not json at all`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, frame := range frames {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	events := make(chan Event, 16)
	conn := newConnection(t, wsURL(server), func(cfg *Config) {
		cfg.OnEvent = func(e Event) { events <- e }
	})
	require.NoError(t, conn.Connect(context.Background()))

	var got []Event
	for len(got) < 4 {
		select {
		case e := <-events:
			got = append(got, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, received %d events", len(got))
		}
	}

	assert.Equal(t, ChatResponse{Response: "hello"}, got[0])
	assert.Equal(t, ComprehensiveChatResponse{Response: "hi there", CustomerID: "cust-7"}, got[1])
	assert.Equal(t, CustomerIDUpdate{CustomerID: "cust-8"}, got[2])
	assert.Equal(t, ErrorEvent{Message: "agent offline"}, got[3])

	// The two bad frames were dropped without killing the connection.
	select {
	case e := <-events:
		t.Fatalf("unexpected event %#v", e)
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, conn.IsConnected())

	// The most recent customer attribution sticks to outbound messages.
	assert.Equal(t, "cust-8", conn.CustomerID())
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := decodeEvent([]byte(`{"type":"nope"}`))
	assert.Error(t, err)

	_, err = decodeEvent([]byte(`{{{`))
	assert.Error(t, err)
}

func TestNewChatConnectionValidation(t *testing.T) {
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Format: "text"})
	m := metrics.NewMetrics(false, log)

	_, err := NewChatConnection(Config{AgentID: "a", StoreID: "s", Logger: log, Metrics: &m})
	assert.Error(t, err, "URL required")

	_, err = NewChatConnection(Config{URL: "ws://x", Logger: log, Metrics: &m})
	assert.Error(t, err, "agent and store required")
}

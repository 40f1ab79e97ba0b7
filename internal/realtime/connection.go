// Package realtime maintains the live chat socket for one agent/store
// pair: connect and bounded reconnect, store-and-forward queueing while
// disconnected, and typed dispatch of inbound events.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mwhitton/agentdash/pkg/logger"
	"github.com/mwhitton/agentdash/pkg/metrics"
)

const (
	// DefaultReconnectDelay is the fixed wait between reconnect attempts.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultMaxReconnectAttempts bounds automatic reconnects. The counter
	// resets on every successful open and on explicit Connect/Disconnect.
	DefaultMaxReconnectAttempts = 5

	closeWriteTimeout = time.Second
)

// Config holds the settings for a ChatConnection. URL, AgentID, StoreID,
// Logger and Metrics are required.
type Config struct {
	URL     string
	AgentID string
	StoreID string

	Logger  logger.Logger
	Metrics *metrics.Metrics

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// OnEvent receives every decoded inbound frame. Called from the read
	// loop goroutine; handlers must not block for long.
	OnEvent func(Event)

	// OnStateChange reports transitions between connected and
	// disconnected, including reconnects.
	OnStateChange func(connected bool)
}

// ChatConnection is one logical realtime session. Messages sent while the
// socket is down are queued and flushed in FIFO order on the next open;
// unintentional closes trigger bounded automatic reconnects.
type ChatConnection struct {
	url     string
	agentID string
	storeID string

	log         logger.Logger
	metrics     *metrics.Metrics
	dialer      *websocket.Dialer
	delay       time.Duration
	maxAttempts int
	onEvent     func(Event)
	onState     func(bool)

	mu             sync.Mutex
	conn           *websocket.Conn
	connected      bool
	attempts       int
	queue          []OutboundMessage
	reconnectTimer *time.Timer
	customerID     string

	// generation invalidates read loops and reconnect timers belonging to
	// a superseded socket. Bumped by Connect and Disconnect.
	generation int
}

// NewChatConnection creates a ChatConnection. No socket is opened until
// Connect is called.
func NewChatConnection(cfg Config) (*ChatConnection, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket URL is required")
	}
	if cfg.AgentID == "" || cfg.StoreID == "" {
		return nil, fmt.Errorf("agent and store IDs are required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics is required")
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxReconnectAttempts
	}

	return &ChatConnection{
		url:         cfg.URL,
		agentID:     cfg.AgentID,
		storeID:     cfg.StoreID,
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
		dialer:      dialer,
		delay:       delay,
		maxAttempts: maxAttempts,
		onEvent:     cfg.OnEvent,
		onState:     cfg.OnStateChange,
	}, nil
}

// Connect opens the socket, closing any previous one first so two live
// sockets never coexist. Pending queued messages are flushed in FIFO
// order once the socket is open. Safe to call repeatedly.
func (c *ChatConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.attempts = 0
	c.cancelReconnectLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()

	return c.dial(ctx, gen)
}

// dial opens a socket for the given generation. A failed dial counts as a
// reconnect-worthy failure; a superseded generation aborts silently.
func (c *ChatConnection) dial(ctx context.Context, gen int) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.log.Warn("realtime dial failed",
			logger.StringField("url", c.url),
			logger.ErrorField(err))
		c.mu.Lock()
		if gen == c.generation {
			c.scheduleReconnectLocked(gen)
		}
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.attempts = 0

	pending := c.queue
	c.queue = nil
	for i, msg := range pending {
		if err := conn.WriteJSON(msg); err != nil {
			// Put the unsent tail back; the close handler takes it from
			// here.
			c.queue = append(pending[i:], c.queue...)
			break
		}
		c.metrics.RealtimeMessagesSent.Inc()
	}
	c.mu.Unlock()

	c.log.Info("realtime connected",
		logger.StringField("agent_id", c.agentID),
		logger.StringField("store_id", c.storeID),
		logger.IntField("flushed", len(pending)))
	c.notifyState(true)

	go c.readLoop(conn, gen)
	return nil
}

// SendMessage sends text as a chat message, or queues it when the socket
// is down. Returns true when the message was written to the wire.
func (c *ChatConnection) SendMessage(text string, newConversation bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := OutboundMessage{
		Type:             outboundChatType,
		Message:          text,
		AgentID:          c.agentID,
		StoreID:          c.storeID,
		CustomerID:       c.customerID,
		NewConversation:  newConversation,
		IncludeTimestamp: true,
	}

	if !c.connected || c.conn == nil {
		c.queue = append(c.queue, msg)
		c.metrics.RealtimeMessagesQueued.Inc()
		c.log.Debug("realtime message queued", logger.IntField("queue_len", len(c.queue)))
		return false
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Warn("realtime write failed, queueing message", logger.ErrorField(err))
		c.queue = append(c.queue, msg)
		c.metrics.RealtimeMessagesQueued.Inc()
		return false
	}
	c.metrics.RealtimeMessagesSent.Inc()
	return true
}

// Disconnect tears the connection down intentionally: the reconnect timer
// is cancelled before the socket closes (so no reconnect can fire
// afterwards), a normal-closure frame is sent, and the queue and attempt
// counter are reset.
func (c *ChatConnection) Disconnect() {
	c.mu.Lock()
	c.generation++
	c.cancelReconnectLocked()
	c.attempts = 0
	c.queue = nil
	conn := c.conn
	c.conn = nil
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(closeWriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"), deadline)
		_ = conn.Close()
	}

	if wasConnected {
		c.log.Info("realtime disconnected",
			logger.StringField("agent_id", c.agentID))
		c.notifyState(false)
	}
}

// IsConnected reports whether the socket is currently open.
func (c *ChatConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// CustomerID returns the customer identity the backend attributed to this
// conversation, if any.
func (c *ChatConnection) CustomerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerID
}

// QueuedMessages reports how many outbound messages are waiting for the
// next successful open.
func (c *ChatConnection) QueuedMessages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// readLoop consumes inbound frames until the socket dies, then hands off
// to the close handler. One bad frame is logged and dropped; it never
// takes the connection down.
func (c *ChatConnection) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}

		event, err := decodeEvent(data)
		if err != nil {
			c.metrics.RealtimeParseFailures.Inc()
			c.log.Warn("dropping unreadable realtime frame", logger.ErrorField(err))
			continue
		}

		switch e := event.(type) {
		case CustomerIDUpdate:
			c.setCustomerID(e.CustomerID)
		case ComprehensiveChatResponse:
			c.setCustomerID(e.CustomerID)
		}

		if c.onEvent != nil {
			c.onEvent(event)
		}
	}
}

// handleClose runs when the read loop dies. Intentional closes (normal
// closure, or a socket superseded by Connect/Disconnect) end quietly;
// anything else schedules a bounded reconnect.
func (c *ChatConnection) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.mu.Unlock()
		c.log.Info("realtime closed by server", logger.StringField("agent_id", c.agentID))
		c.notifyState(false)
		return
	}

	c.log.Warn("realtime connection lost",
		logger.StringField("agent_id", c.agentID),
		logger.ErrorField(err))
	c.scheduleReconnectLocked(gen)
	c.mu.Unlock()

	c.notifyState(false)
}

// scheduleReconnectLocked arms the fixed-delay reconnect timer, giving up
// once the attempt budget is spent. Caller must hold c.mu.
func (c *ChatConnection) scheduleReconnectLocked(gen int) {
	if c.attempts >= c.maxAttempts {
		c.log.Error("realtime reconnect attempts exhausted",
			logger.StringField("agent_id", c.agentID),
			logger.IntField("attempts", c.attempts))
		return
	}
	c.attempts++
	c.metrics.RealtimeReconnects.Inc()
	attempt := c.attempts

	c.reconnectTimer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		stale := gen != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		c.log.Info("realtime reconnecting",
			logger.StringField("agent_id", c.agentID),
			logger.IntField("attempt", attempt))
		_ = c.dial(context.Background(), gen)
	})
}

func (c *ChatConnection) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *ChatConnection) setCustomerID(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.customerID = id
	c.mu.Unlock()
}

func (c *ChatConnection) notifyState(connected bool) {
	if c.onState != nil {
		c.onState(connected)
	}
}

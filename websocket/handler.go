package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vishal2612200/websocket-relay/bus"
	"github.com/vishal2612200/websocket-relay/config"
	"github.com/vishal2612200/websocket-relay/metrics"
	"github.com/vishal2612200/websocket-relay/registry"
	"github.com/vishal2612200/websocket-relay/session"
	"github.com/vishal2612200/websocket-relay/work"
)

const (
	blockPrefix    = "block:"
	defaultBlockMs = 100
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades websocket requests and runs one connection state machine
// per client. Shared state (stores, registry, bus, worker pool) is injected
// at construction.
type Handler struct {
	memory   session.Store
	redis    session.Store
	registry *registry.Registry
	bus      *bus.GroupBus
	pool     *work.Pool
	cfg      *config.AppConfig
	logger   *slog.Logger
}

// NewHandler creates a websocket handler. redisStore may be nil when the
// external store is not configured; connections requesting it fall back to
// the in-memory cache.
func NewHandler(memoryStore, redisStore session.Store, reg *registry.Registry, groupBus *bus.GroupBus, pool *work.Pool, cfg *config.AppConfig, logger *slog.Logger) *Handler {
	return &Handler{
		memory:   memoryStore,
		redis:    redisStore,
		registry: reg,
		bus:      groupBus,
		pool:     pool,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "ws_handler")),
	}
}

// HandleWebSocket handles an incoming websocket connection from handshake to
// close.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sessionID := query.Get("session")
	external := strings.EqualFold(query.Get("redis_persistence"), "true")

	store := h.memory
	ttl := time.Duration(h.cfg.WebSocket.MemorySessionTTL) * time.Second
	if external {
		if h.redis != nil {
			store = h.redis
			ttl = time.Duration(h.cfg.Redis.SessionTTL) * time.Second
		} else {
			external = false
			h.logger.Warn("redis persistence requested but no redis store is configured, using in-memory cache",
				slog.String("session_id", sessionID))
		}
	}

	// Seed the counter before accepting; a store failure counts as absent.
	count := 0
	if sessionID != "" {
		state, err := store.Get(r.Context(), sessionID)
		if err != nil {
			h.logger.Warn("failed to load session state, starting fresh",
				slog.String("session_id", sessionID), slog.Any("error", err))
		} else if state != nil {
			count = state.Count
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", slog.Any("error", err))
		return
	}
	conn.SetReadLimit(int64(h.cfg.WebSocket.MessageSizeLimit))

	client := NewClient(uuid.New().String(), conn, &h.cfg.WebSocket, h.logger)

	sub := h.bus.Subscribe(h.cfg.WebSocket.InboxBuffer)
	h.bus.Join(bus.BroadcastGroup, sub)
	if sessionID != "" {
		h.bus.Join(bus.HeartbeatGroup(sessionID), sub)
		h.registry.Add(sessionID)
	}

	metrics.ConnectionsOpened.Inc()
	metrics.ActiveConnections.Inc()

	c := &connection{
		client:    client,
		sub:       sub,
		store:     store,
		ttl:       ttl,
		registry:  h.registry,
		bus:       h.bus,
		pool:      h.pool,
		sessionID: sessionID,
		external:  external,
		count:     count,
		flushWait: time.Duration(h.cfg.Shutdown.ByeFlushDelayMs) * time.Millisecond,
		done:      make(chan struct{}),
		logger: h.logger.With(
			slog.String("conn_id", client.ID()),
			slog.String("session_id", sessionID),
		),
	}
	c.logger.Info("ws_connect", slog.Bool("redis_persistence", external), slog.Int("count", count))
	c.run()
}

// connection is the per-client state machine. Its run loop is the single
// consumer of both inbound frames and group envelopes, so inbound messages
// are processed strictly in arrival order.
type connection struct {
	client    *Client
	sub       *bus.Subscription
	store     session.Store
	ttl       time.Duration
	registry  *registry.Registry
	bus       *bus.GroupBus
	pool      *work.Pool
	sessionID string
	external  bool
	count     int
	flushWait time.Duration

	done           chan struct{}
	closeOnce      sync.Once
	byeSent        bool
	shutdownReason string
	logger         *slog.Logger
}

func (c *connection) run() {
	defer c.teardown(websocket.CloseNormalClosure, "connection closed")

	inbound := make(chan []byte)
	go c.readPump(inbound)

	for {
		select {
		case data, ok := <-inbound:
			if !ok {
				// Client-initiated close or transport error.
				return
			}
			if err := c.handleInbound(data); err != nil {
				metrics.Errors.Inc()
				c.logger.Error("message processing failed", slog.Any("error", err))
				c.teardown(websocket.CloseInternalServerErr, "processing error")
				return
			}
		case env := <-c.sub.Inbox():
			if c.handleEnvelope(env) {
				return
			}
		}
	}
}

func (c *connection) readPump(inbound chan<- []byte) {
	defer close(inbound)
	for {
		data, err := c.client.Read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				c.logger.Debug("read error", slog.Any("error", err))
			}
			return
		}
		select {
		case inbound <- data:
		case <-c.done:
			return
		}
	}
}

// handleInbound processes one client frame: count, echo, optional simulated
// blocking I/O, persist. An error return is fatal to this connection only.
func (c *connection) handleInbound(data []byte) error {
	c.count++
	metrics.MessagesReceived.Inc()

	echo := ""
	if utf8.Valid(data) {
		echo = string(data)
	}

	if strings.HasPrefix(echo, blockPrefix) {
		durationMs, err := strconv.Atoi(echo[len(blockPrefix):])
		if err != nil {
			durationMs = defaultBlockMs
		}
		// The sleep runs on the worker pool, not this goroutine; other
		// connections keep their own loops while we wait for the result.
		<-c.pool.Block(durationMs)
	}

	resp := echoResponse{Count: c.count, Echo: echo}
	if err := c.client.SafeWriteJSON(resp); err != nil {
		return err
	}
	metrics.MessagesSent.Inc()

	if c.sessionID != "" {
		if c.external && echo != "" {
			msg := session.Message{
				Content:   echo,
				Timestamp: time.Now().UnixMilli(),
				IsSent:    true,
				SessionID: c.sessionID,
			}
			if err := c.store.AppendMessage(context.Background(), c.sessionID, msg, c.ttl); err != nil {
				c.logger.Warn("failed to store message history", slog.Any("error", err))
			}
		}
		c.persistState("")
	}

	c.logger.Debug("ws_receive", slog.Int("count", c.count))
	return nil
}

// handleEnvelope dispatches one group-delivered envelope. It reports whether
// the connection should close.
func (c *connection) handleEnvelope(env bus.Envelope) bool {
	switch env.Kind {
	case bus.KindHeartbeat:
		msg := heartbeatMessage{TS: strconv.FormatInt(env.Timestamp, 10)}
		if err := c.client.SafeWriteJSON(msg); err != nil {
			metrics.Errors.Inc()
			c.logger.Warn("failed to send heartbeat", slog.Any("error", err))
			return false
		}
		metrics.MessagesSent.Inc()

	case bus.KindBroadcast:
		msg := broadcastMessage{
			Type:      "broadcast",
			Message:   env.Message,
			Timestamp: env.Timestamp,
			Level:     env.Level,
			Title:     env.Title,
		}
		if err := c.client.SafeWriteJSON(msg); err != nil {
			metrics.Errors.Inc()
			c.logger.Warn("failed to send broadcast", slog.Any("error", err))
			return false
		}
		metrics.MessagesSent.Inc()

		notice := newMessagesNotice{
			Type:      "new_messages_available",
			SessionID: c.sessionIDPtr(),
			Timestamp: time.Now().UnixMilli(),
			Source:    "broadcast",
		}
		if err := c.client.SafeWriteJSON(notice); err != nil {
			metrics.Errors.Inc()
			c.logger.Warn("failed to send new messages notice", slog.Any("error", err))
			return false
		}
		metrics.MessagesSent.Inc()

	case bus.KindNewMessages:
		notice := newMessagesNotice{
			Type:      "new_messages_available",
			SessionID: c.sessionIDPtr(),
			Timestamp: env.Timestamp,
			Source:    env.Source,
		}
		if err := c.client.SafeWriteJSON(notice); err != nil {
			metrics.Errors.Inc()
			c.logger.Warn("failed to send new messages notice", slog.Any("error", err))
			return false
		}
		metrics.MessagesSent.Inc()

	case bus.KindShutdown:
		c.shutdownClose(env.Reason)
		return true
	}
	return false
}

// shutdownClose reacts to a shutdown notice: bye with reason, brief pause so
// already-queued sends flush, persist, then close going-away.
func (c *connection) shutdownClose(reason string) {
	if reason == "" {
		reason = "Server is shutting down gracefully"
	}
	bye := byeMessage{Bye: true, Total: c.count, Message: reason}
	if err := c.client.SafeWriteJSON(bye); err != nil {
		c.logger.Warn("failed to send shutdown bye", slog.Any("error", err))
	} else {
		metrics.MessagesSent.Inc()
		c.byeSent = true
	}

	time.Sleep(c.flushWait)

	c.shutdownReason = "graceful_shutdown"
	c.persistStateFinal(c.shutdownReason)
	c.client.Close(websocket.CloseGoingAway, "server shutting down")
	c.logger.Info("ws_shutdown_completed", slog.Int("total", c.count))
}

// teardown runs the closing path exactly once, regardless of how many paths
// (client close, transport error, processing error, shutdown) reach it.
func (c *connection) teardown(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		if !c.byeSent {
			// Best-effort; the transport may already be unusable.
			if err := c.client.SafeWriteJSON(byeMessage{Bye: true, Total: c.count}); err == nil {
				metrics.MessagesSent.Inc()
			}
		}

		c.bus.Leave(bus.BroadcastGroup, c.sub)
		if c.sessionID != "" {
			c.bus.Leave(bus.HeartbeatGroup(c.sessionID), c.sub)
			c.registry.Remove(c.sessionID)
		}

		c.persistStateFinal(c.shutdownReason)

		metrics.ConnectionMessages.Observe(float64(c.count))
		metrics.ActiveConnections.Dec()
		metrics.ConnectionsClosed.Inc()

		c.client.Close(code, reason)
		c.logger.Info("ws_disconnect", slog.Int("total", c.count))
	})
}

func (c *connection) persistState(shutdownReason string) {
	c.writeState(&session.State{
		Count:          c.count,
		LastActivity:   nowSeconds(),
		ShutdownReason: shutdownReason,
	})
}

func (c *connection) persistStateFinal(shutdownReason string) {
	c.writeState(&session.State{
		Count:          c.count,
		LastActivity:   nowSeconds(),
		DisconnectedAt: nowSeconds(),
		ShutdownReason: shutdownReason,
	})
}

func (c *connection) writeState(state *session.State) {
	if c.sessionID == "" {
		return
	}
	// The request context may already be cancelled when we get here.
	if err := c.store.Put(context.Background(), c.sessionID, state, c.ttl); err != nil {
		c.logger.Warn("failed to persist session state", slog.Any("error", err))
	}
}

func (c *connection) sessionIDPtr() *string {
	if c.sessionID == "" {
		return nil
	}
	id := c.sessionID
	return &id
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

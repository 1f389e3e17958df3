package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/vishal2612200/websocket-relay/config"
)

const writeRetryDelay = 200 * time.Millisecond

// Client wraps one websocket connection with serialized, deadline-bounded
// writes. gorilla/websocket allows only one concurrent writer, and a stalled
// peer must never hold a write past the configured timeout.
type Client struct {
	id        string
	conn      *websocket.Conn
	cfg       *config.WebSocketConfig
	logger    *slog.Logger
	mu        sync.Mutex
	closeOnce sync.Once
}

func NewClient(id string, conn *websocket.Conn, cfg *config.WebSocketConfig, logger *slog.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		cfg:    cfg,
		logger: logger.With(slog.String("conn_id", id)),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Read blocks until the next data frame from the peer.
func (c *Client) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// SafeWriteJSON writes data to the websocket with bounded retry. Each attempt
// carries a fresh write deadline so a permanently stalled peer costs at most
// (retries+1) * writeTimeout.
func (c *Client) SafeWriteJSON(data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	writeTimeout := time.Duration(c.cfg.WriteTimeout) * time.Second

	operation := func() error {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return c.conn.WriteJSON(data)
	}

	backoffStrategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(writeRetryDelay),
			uint64(c.cfg.SendRetries),
		),
		context.Background(),
	)

	return backoff.RetryNotify(operation, backoffStrategy, func(err error, d time.Duration) {
		c.logger.Warn("retrying WebSocket write",
			slog.Any("error", err),
			slog.Duration("next_attempt_in", d),
		)
	})
}

// Close sends a close frame and tears down the transport. Safe to call more
// than once.
func (c *Client) Close(code int, text string) {
	c.closeOnce.Do(func() {
		writeTimeout := time.Duration(c.cfg.WriteTimeout) * time.Second
		err := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, text),
			time.Now().Add(writeTimeout),
		)
		if err != nil {
			c.logger.Debug("failed to send close frame", slog.Any("error", err))
		}
		c.conn.Close()
	})
}

// Package broadcast publishes operator-initiated notices to every connected
// client and persists a history record per known session. When a message
// broker is configured, notices travel through it so every relay instance
// delivers them to its own connections.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vishal2612200/websocket-relay/broker"
	"github.com/vishal2612200/websocket-relay/bus"
	"github.com/vishal2612200/websocket-relay/metrics"
	"github.com/vishal2612200/websocket-relay/registry"
	"github.com/vishal2612200/websocket-relay/session"
)

// ValidLevels are the accepted broadcast severity levels.
var ValidLevels = map[string]bool{
	"info":    true,
	"warning": true,
	"error":   true,
	"success": true,
}

type Broadcaster struct {
	bus      *bus.GroupBus
	store    session.Store
	registry *registry.Registry
	broker   broker.MessageBroker // nil when running single-instance
	channel  string
	serverID string
	ttl      time.Duration
	logger   *slog.Logger
}

func New(groupBus *bus.GroupBus, store session.Store, reg *registry.Registry, messageBroker broker.MessageBroker, channel, serverID string, ttl time.Duration, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		bus:      groupBus,
		store:    store,
		registry: reg,
		broker:   messageBroker,
		channel:  channel,
		serverID: serverID,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "broadcaster")),
	}
}

// Broadcast persists one history record per active session, then delivers the
// notice to the broadcast group, directly or via the broker when one is
// configured. It returns the number of sessions whose history was updated.
func (b *Broadcaster) Broadcast(ctx context.Context, message, title, level string) (int, error) {
	if message == "" {
		return 0, fmt.Errorf("message is required")
	}
	if title == "" {
		title = "System Message"
	}
	if level == "" {
		level = "info"
	}
	if !ValidLevels[level] {
		return 0, fmt.Errorf("invalid level: %s", level)
	}

	timestamp := time.Now().UnixMilli()
	broadcastID := "broadcast_" + uuid.New().String()
	content := fmt.Sprintf("[%s] %s", title, message)

	stored := 0
	for _, sessionID := range b.registry.Snapshot() {
		record := session.Message{
			Content:        content,
			Timestamp:      timestamp,
			IsSent:         false,
			SessionID:      sessionID,
			IsBroadcast:    true,
			BroadcastLevel: level,
			BroadcastID:    broadcastID,
		}
		if err := b.store.AppendMessage(ctx, sessionID, record, b.ttl); err != nil {
			b.logger.Warn("failed to store broadcast record",
				slog.String("session_id", sessionID), slog.Any("error", err))
			continue
		}
		stored++
	}

	if b.broker != nil {
		err := b.broker.Publish(ctx, b.channel, broker.Message{
			ServerID:  b.serverID,
			Body:      message,
			Title:     title,
			Level:     level,
			Timestamp: timestamp,
		})
		if err != nil {
			// Deliver locally anyway; connections on this instance should not
			// miss the notice because the broker is down.
			b.logger.Error("broker publish failed, delivering locally", slog.Any("error", err))
			b.deliverLocal(message, title, level, timestamp)
			return stored, nil
		}
		metrics.BrokerMessagesPublished.WithLabelValues(b.broker.Type()).Inc()
		return stored, nil
	}

	b.deliverLocal(message, title, level, timestamp)
	return stored, nil
}

// Run consumes broker notices and fans them out to this instance's broadcast
// group. It returns when the broker is not configured or ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.broker == nil {
		return nil
	}
	messages, err := b.broker.Subscribe(ctx, b.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				b.logger.Info("broker channel closed")
				return nil
			}
			b.deliverLocal(message.Body, message.Title, message.Level, message.Timestamp)
		}
	}
}

func (b *Broadcaster) deliverLocal(message, title, level string, timestamp int64) {
	b.bus.Publish(bus.BroadcastGroup, bus.Envelope{
		Kind:      bus.KindBroadcast,
		Timestamp: timestamp,
		Message:   message,
		Title:     title,
		Level:     level,
	})
}

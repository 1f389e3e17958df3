// Package heartbeat runs the process-wide ticker that publishes one
// heartbeat envelope per active session group on every tick.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/vishal2612200/websocket-relay/bus"
	"github.com/vishal2612200/websocket-relay/registry"
)

type Ticker struct {
	interval time.Duration
	registry *registry.Registry
	bus      *bus.GroupBus
	halted   func() bool
	logger   *slog.Logger
	done     chan struct{}
}

// New creates a heartbeat ticker. halted is consulted at each iteration
// boundary; once it reports true the ticker stops permanently. It may be nil.
func New(interval time.Duration, reg *registry.Registry, groupBus *bus.GroupBus, halted func() bool, logger *slog.Logger) *Ticker {
	return &Ticker{
		interval: interval,
		registry: reg,
		bus:      groupBus,
		halted:   halted,
		logger:   logger.With(slog.String("component", "heartbeat")),
		done:     make(chan struct{}),
	}
}

// Start runs the ticker loop in a background goroutine until ctx is
// cancelled or the halted check trips.
func (t *Ticker) Start(ctx context.Context) {
	go t.run(ctx)
}

// Done is closed once the ticker loop has fully stopped.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

func (t *Ticker) run(ctx context.Context) {
	defer close(t.done)
	defer t.logger.Info("heartbeat ticker stopped")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		// Checked before scheduling the next sleep and again after waking,
		// so a shutdown during the interval costs at most one tick.
		if t.halted != nil && t.halted() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if t.halted != nil && t.halted() {
			return
		}
		t.tick()
	}
}

func (t *Ticker) tick() {
	ts := time.Now().UnixMilli()
	sessions := t.registry.Snapshot()
	for _, sessionID := range sessions {
		// Publish is best-effort per session; one dead group never stops the
		// rest of the tick.
		t.bus.Publish(bus.HeartbeatGroup(sessionID), bus.Envelope{
			Kind:      bus.KindHeartbeat,
			Timestamp: ts,
		})
	}
	t.logger.Debug("heartbeat tick", slog.Int("sessions", len(sessions)))
}

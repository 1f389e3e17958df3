// Package shutdown implements the bounded, ordered graceful-shutdown
// protocol: flag, shutdown notice, drain window, ticker stop, duration
// observation, host signal. The whole sequence completes within a hard
// ceiling even when connections are stalled.
package shutdown

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vishal2612200/websocket-relay/bus"
	"github.com/vishal2612200/websocket-relay/config"
	"github.com/vishal2612200/websocket-relay/metrics"
)

type Coordinator struct {
	bus    *bus.GroupBus
	cfg    *config.ShutdownConfig
	logger *slog.Logger

	shuttingDown atomic.Bool
	once         sync.Once
	done         chan struct{}

	stopTicker context.CancelFunc
	tickerDone <-chan struct{}

	// OnBegin runs as soon as shutdown is triggered, before the notice is
	// published (e.g. flip readiness off). OnComplete runs after the duration
	// histogram is observed. Both may be nil.
	OnBegin    func()
	OnComplete func()
}

func New(groupBus *bus.GroupBus, cfg *config.ShutdownConfig, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		bus:    groupBus,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "shutdown")),
		done:   make(chan struct{}),
	}
}

// BindTicker hands the coordinator the heartbeat ticker's cancel function and
// completion channel so step 4 can stop it and wait, bounded.
func (c *Coordinator) BindTicker(cancel context.CancelFunc, done <-chan struct{}) {
	c.stopTicker = cancel
	c.tickerDone = done
}

// ShuttingDown reports whether shutdown has been triggered. The heartbeat
// ticker checks it before scheduling another tick.
func (c *Coordinator) ShuttingDown() bool {
	return c.shuttingDown.Load()
}

// Trigger starts the shutdown sequence. Idempotent: a second trigger is a
// no-op.
func (c *Coordinator) Trigger() {
	c.once.Do(func() {
		c.shuttingDown.Store(true)
		go c.run()
	})
}

// Done is closed once the full sequence has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) run() {
	start := time.Now()
	c.logger.Info("graceful shutdown started")

	if c.OnBegin != nil {
		c.OnBegin()
	}

	// Every wait below is additionally bounded by the overall ceiling.
	ceiling := time.Duration(c.cfg.CeilingMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), ceiling)
	defer cancel()

	c.bus.Publish(bus.BroadcastGroup, bus.Envelope{
		Kind:      bus.KindShutdown,
		Timestamp: time.Now().UnixMilli(),
		Reason:    "Server is shutting down gracefully",
	})

	drain := time.Duration(c.cfg.DrainWindowMs) * time.Millisecond
	select {
	case <-time.After(drain):
	case <-ctx.Done():
		c.logger.Warn("shutdown ceiling reached during drain window")
	}

	if c.stopTicker != nil {
		c.stopTicker()
	}
	if c.tickerDone != nil {
		stopWait := time.Duration(c.cfg.TickerStopTimeoutMs) * time.Millisecond
		select {
		case <-c.tickerDone:
		case <-time.After(stopWait):
			c.logger.Warn("heartbeat ticker did not stop in time")
		case <-ctx.Done():
			c.logger.Warn("shutdown ceiling reached waiting for heartbeat ticker")
		}
	}

	elapsed := time.Since(start)
	metrics.ShutdownDuration.Observe(elapsed.Seconds())
	c.logger.Info("graceful shutdown completed", slog.Duration("elapsed", elapsed))

	if c.OnComplete != nil {
		c.OnComplete()
	}
	close(c.done)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/vishal2612200/websocket-relay/broadcast"
	"github.com/vishal2612200/websocket-relay/broker"
	"github.com/vishal2612200/websocket-relay/bus"
	"github.com/vishal2612200/websocket-relay/config"
	"github.com/vishal2612200/websocket-relay/heartbeat"
	"github.com/vishal2612200/websocket-relay/registry"
	"github.com/vishal2612200/websocket-relay/server"
	"github.com/vishal2612200/websocket-relay/services"
	"github.com/vishal2612200/websocket-relay/session"
	"github.com/vishal2612200/websocket-relay/shutdown"
	"github.com/vishal2612200/websocket-relay/websocket"
	"github.com/vishal2612200/websocket-relay/work"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	if err := config.Initialize(env); err != nil {
		logger.Error("failed to initialize config", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := config.Get()

	serverID := uuid.New().String()
	logger.Info("starting relay instance", slog.String("server_id", serverID))

	// External session store (optional). Connections opt in per handshake.
	var redisStore session.Store
	var sessionClient, messageClient *redis.Client
	if cfg.Redis.Enabled {
		var err error
		sessionClient, err = services.NewSessionClient(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer services.CloseRedisClient(sessionClient)

		// Message history may live on a second Redis instance; both sit
		// behind the one store interface.
		messageClient, err = services.NewMessageClient(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to message Redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer services.CloseRedisClient(messageClient)

		redisStore = session.NewRedisStore(sessionClient, messageClient, logger)
	}

	memoryStore := session.NewMemoryStore(logger)
	activeSessions := registry.New()
	groupBus := bus.New(logger)
	pool := work.NewPool(cfg.Worker.PoolSize)

	// Optional cross-instance broadcast relay.
	var messageBroker broker.MessageBroker
	switch strings.ToLower(cfg.Broker.Type) {
	case "none", "":
	case "redis":
		messageBroker = broker.NewRedisBroker(sessionClient, logger)
	case "kafka":
		var err error
		messageBroker, err = broker.NewKafkaBroker(cfg.Broker.Kafka.Brokers, cfg.Broker.Kafka.GroupID, logger)
		if err != nil {
			logger.Error("failed to create Kafka broker", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if messageBroker != nil {
		defer messageBroker.Close()
	}

	coordinator := shutdown.New(groupBus, &cfg.Shutdown, logger)

	tickerCtx, tickerCancel := context.WithCancel(ctx)
	ticker := heartbeat.New(
		time.Duration(cfg.Heartbeat.Interval)*time.Second,
		activeSessions, groupBus, coordinator.ShuttingDown, logger,
	)
	coordinator.BindTicker(tickerCancel, ticker.Done())

	// The query/admin APIs read the external store when configured.
	apiStore := redisStore
	historyTTL := time.Duration(cfg.Redis.SessionTTL) * time.Second
	if apiStore == nil {
		apiStore = memoryStore
		historyTTL = time.Duration(cfg.WebSocket.MemorySessionTTL) * time.Second
	}

	broadcaster := broadcast.New(groupBus, apiStore, activeSessions, messageBroker, cfg.Broker.Channel, serverID, historyTTL, logger)
	wsHandler := websocket.NewHandler(memoryStore, redisStore, activeSessions, groupBus, pool, cfg, logger)

	readiness := &server.Readiness{}
	coordinator.OnBegin = func() { readiness.Set(false) }

	srv := server.New(
		cfg.Server.Port,
		time.Duration(cfg.Server.ReadTimeout)*time.Second,
		time.Duration(cfg.Server.WriteTimeout)*time.Second,
		wsHandler.HandleWebSocket,
		apiStore,
		broadcaster,
		readiness,
		logger,
	)

	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			logger.Error("broadcast relay stopped", slog.Any("error", err))
		}
	}()

	ticker.Start(tickerCtx)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server stopped", slog.Any("error", err))
			coordinator.Trigger()
		}
	}()
	readiness.Set(true)
	logger.Info("relay started", slog.Int("port", cfg.Server.Port))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// A listener failure triggers the coordinator without a signal ever
	// arriving; wait on whichever comes first.
	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		coordinator.Trigger()
	case <-coordinator.Done():
	}
	<-coordinator.Done()

	// The coordinator has drained; give the listener a moment to close.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.Any("error", err))
	}
	logger.Info("relay stopped")
}

// Package server exposes the relay's HTTP surface: the websocket upgrade
// route, health and readiness probes, Prometheus metrics, the operator
// broadcast trigger and the session introspection API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vishal2612200/websocket-relay/broadcast"
	"github.com/vishal2612200/websocket-relay/session"
)

// Readiness is the process readiness flag: set after startup, cleared when
// shutdown begins.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) Set(ready bool) {
	r.ready.Store(ready)
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

type Server struct {
	http      *http.Server
	readiness *Readiness
	logger    *slog.Logger
}

// New builds the router and server. wsHandler serves the websocket upgrade;
// store backs the session API; broadcaster serves the operator trigger.
func New(port int, readTimeout, writeTimeout time.Duration, wsHandler http.HandlerFunc, store session.Store, broadcaster *broadcast.Broadcaster, readiness *Readiness, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		readiness: readiness,
		logger:    logger.With(slog.String("component", "server")),
	}

	router.GET("/ws", gin.WrapF(wsHandler))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/readyz", func(c *gin.Context) {
		if readiness.Ready() {
			c.JSON(http.StatusOK, gin.H{"ready": true})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	registerSessionRoutes(api, store, logger)
	registerBroadcastRoute(api, broadcaster, logger)

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
		// Full read/write timeouts would kill long-lived websocket
		// connections; only bound the handshake.
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       writeTimeout,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting new connections and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Package server wires the relay handler, the HTTP router and the WebSocket
// clients together and manages their shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/relay"
)

// Server owns the relay handler and every WebSocket client goroutine.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	relay    *relay.Handler
	registry *prometheus.Registry
	origins  *originPolicy
	upgrader websocket.Upgrader
	started  time.Time
	wg       sync.WaitGroup
}

// New creates a Server from a sanitized copy of cfg.
func New(cfg Config, log zerolog.Logger) *Server {
	cfg = Sanitize(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:      cfg,
		log:      logging.Component(log, "server"),
		registry: registry,
		origins:  newOriginPolicy(cfg.AllowedOrigins, logging.Component(log, "origin")),
		started:  time.Now(),
		relay: relay.NewHandler(
			relay.WithLogger(logging.Component(log, "relay")),
			relay.WithMetrics(relay.NewMetrics(registry)),
			relay.WithHistoryCapacity(cfg.HistorySize),
		),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Relay returns the lifecycle handler behind the server.
func (s *Server) Relay() *relay.Handler {
	return s.relay
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.cfg
}

// StartRelay runs the relay event loop in its own goroutine until ctx is
// cancelled. It must be called before clients connect.
func (s *Server) StartRelay(ctx context.Context) {
	go func() {
		if err := s.relay.Run(ctx); err != nil {
			s.log.Error().Err(err).Msg("Relay handler stopped with error")
		}
	}()
}

// Run listens on the configured address and serves until ctx is cancelled.
// ready, when set, is called once the listener is bound.
func (s *Server) Run(ctx context.Context, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln, ready)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// HTTP server, the relay and every client down.
func (s *Server) Serve(ctx context.Context, ln net.Listener, ready func(net.Addr)) error {
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	s.StartRelay(relayCtx)

	stats, err := s.startStatsReporter()
	if err != nil {
		_ = ln.Close()
		return err
	}

	httpServer := CreateServer(ln.Addr().String(), s.Routes())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- StartServer(httpServer, ln, s.log)
	}()

	if ready != nil {
		ready(ln.Addr())
	}

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	if stats != nil {
		<-stats.Stop().Done()
	}

	shutdownErr := ShutdownServer(httpServer, s.cfg.ShutdownTimeout, s.log)
	stopRelay()
	return errors.Join(runErr, shutdownErr, s.Shutdown(s.cfg.ShutdownTimeout))
}

// Shutdown waits for the relay loop and all client goroutines to finish.
// The relay must already be stopping; Shutdown returns
// context.DeadlineExceeded when timeout elapses first.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.log.Info().Msg("Waiting for client connections to drain...")
	deadline := time.After(timeout)

	select {
	case <-s.relay.Done():
	case <-deadline:
		s.log.Warn().Msg("Relay shutdown timeout reached")
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("Shutdown completed successfully")
		return nil
	case <-deadline:
		s.log.Warn().Msg("Shutdown timeout reached, some client goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// startClient launches the pumps of a client the relay has accepted.
func (s *Server) startClient(client *Client) {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
}

// Package server constructs and starts the chatrelay HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// CreateServer creates and configures an HTTP server with the specified address and handler.
// It sets reasonable timeout values for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer serves HTTP on ln until the server is shut down.
func StartServer(server *http.Server, ln net.Listener, log zerolog.Logger) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("Server listening")
	return server.Serve(ln)
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active requests to complete or until the timeout is reached. Hijacked
// WebSocket connections are not tracked by the HTTP server and are drained separately.
func ShutdownServer(server *http.Server, timeout time.Duration, log zerolog.Logger) error {
	log.Info().Msg("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
		return err
	}

	log.Info().Msg("HTTP server shutdown completed")
	return nil
}

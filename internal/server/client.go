// Package server manages WebSocket clients: read and write pumps, per-connection
// rate limiting, and the non-blocking outbound queue the relay writes to.
package server

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Submitter accepts inbound events for the relay loop.
type Submitter interface {
	Submit(ctx context.Context, ev relay.Event) error
}

// Client represents a WebSocket client connection in the chat system.
// It owns the socket, the outbound frame queue, and the per-connection
// rate limiter. Client implements relay.Conn.
type Client struct {
	id             string
	conn           *websocket.Conn
	relay          Submitter
	addr           string
	log            zerolog.Logger
	maxMessageSize int64
	rateLimiter    *rate.Limiter
	rateLimit      RateLimitConfig

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a new Client for conn with a fresh connection id. The
// send queue is buffered so broadcasts never wait on the socket.
func NewClient(conn *websocket.Conn, sub Submitter, addr string, cfg Config, log zerolog.Logger) *Client {
	cfg = Sanitize(cfg)
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		relay:          sub,
		addr:           addr,
		log:            log.With().Str("conn_id", id).Str("remote_addr", addr).Logger(),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
		send:           make(chan []byte, cfg.SendBufferSize),
	}
}

// ID returns the connection id assigned when the client was created.
func (c *Client) ID() string { return c.id }

// Enqueue queues frame for the write pump without blocking. It reports false
// when the queue is full or the client is closed.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close closes the send queue, which makes the write pump send a close frame
// and tear the socket down. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn().Err(err).Msg("Error setting read deadline in pong handler")
		}
		return nil
	})
}

// logReadError logs the reason a read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("max_bytes", c.maxMessageSize).Msg("Message exceeded maximum size")

	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug().Err(err).Msg("Client disconnected")

	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("Client connection closed")

	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn().Err(err).Msg("Unexpected WebSocket error")

	default:
		c.log.Warn().Err(err).Msg("WebSocket read error")
	}
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the frame should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		c.log.Warn().
			Int("burst", c.rateLimit.Burst).
			Dur("interval", c.rateLimit.RefillInterval).
			Msg("Rate limit exceeded; discarding frame")
		return false
	}
	return true
}

// processFrame decodes a raw frame and submits the resulting event. Frames
// that cannot be decoded are dropped.
func (c *Client) processFrame(ctx context.Context, raw []byte) bool {
	ev, err := relay.DecodeEvent(c.id, raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("Discarding invalid frame")
		return false
	}

	if err := c.relay.Submit(ctx, ev); err != nil {
		c.log.Debug().Err(err).Msg("Relay rejected event")
		return false
	}
	return true
}

func (c *Client) readPump() {
	ctx := context.Background()
	defer func() {
		if err := c.relay.Submit(ctx, relay.Disconnect{ConnID: c.id}); err != nil && !errors.Is(err, relay.ErrHandlerStopped) {
			c.log.Warn().Err(err).Msg("Error reporting disconnect")
		}
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processFrame(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		return c.handleFrame(frame, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection closes the socket, ignoring errors caused by a concurrent close
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn().Err(err).Msg("Error closing connection")
	}
}

// handleFrame writes one outgoing frame and returns false if the connection should be closed
func (c *Client) handleFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting write deadline")
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("Error writing frame")
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("Error writing close message")
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug().Err(err).Msg("Error writing ping message")
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

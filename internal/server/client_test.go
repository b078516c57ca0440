package server

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

var _ relay.Conn = (*Client)(nil)

func TestNewClient(t *testing.T) {
	req := require.New(t)

	a := NewClient(nil, nil, "127.0.0.1:12345", DefaultConfig(), zerolog.Nop())
	b := NewClient(nil, nil, "127.0.0.1:12346", DefaultConfig(), zerolog.Nop())

	req.NotEmpty(a.ID())
	req.NotEqual(a.ID(), b.ID(), "every connection gets its own identity")
	req.Equal(defaultSendBufferSize, cap(a.send))
	req.Equal(int64(defaultMaxMessageSize), a.maxMessageSize)
}

func TestClientEnqueueNeverBlocks(t *testing.T) {
	req := require.New(t)
	cfg := DefaultConfig()
	cfg.SendBufferSize = 2
	client := NewClient(nil, nil, "127.0.0.1:12345", cfg, zerolog.Nop())

	req.True(client.Enqueue([]byte("one")))
	req.True(client.Enqueue([]byte("two")))
	req.False(client.Enqueue([]byte("three")), "a full queue rejects instead of blocking")

	req.Equal("one", string(<-client.send))
	req.True(client.Enqueue([]byte("three")))
}

func TestClientCloseIsIdempotent(t *testing.T) {
	req := require.New(t)
	client := NewClient(nil, nil, "127.0.0.1:12345", DefaultConfig(), zerolog.Nop())
	req.True(client.Enqueue([]byte("queued")))

	client.Close()
	client.Close()

	req.False(client.Enqueue([]byte("late")))

	frame, ok := <-client.send
	req.True(ok)
	req.Equal("queued", string(frame))
	_, ok = <-client.send
	req.False(ok, "the queue is closed once drained")
}

func TestClientCheckRateLimit(t *testing.T) {
	req := require.New(t)
	cfg := DefaultConfig()
	cfg.RateLimit = RateLimitConfig{Burst: 2, RefillInterval: time.Minute}
	client := NewClient(nil, nil, "127.0.0.1:12345", cfg, zerolog.Nop())

	req.True(client.checkRateLimit())
	req.True(client.checkRateLimit())
	req.False(client.checkRateLimit())
}

func TestIsExpectedCloseError(t *testing.T) {
	req := require.New(t)

	req.True(isExpectedCloseError(nil))
	req.True(isExpectedCloseError(errors.New("write tcp: use of closed network connection")))
	req.True(isExpectedCloseError(errors.New("websocket: close sent")))
	req.True(isExpectedCloseError(errors.New("write: broken pipe")))
	req.False(isExpectedCloseError(errors.New("something else")))
}

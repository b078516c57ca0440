package server_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/relay"
	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/Tyrowin/chatrelay/internal/session"
	"github.com/Tyrowin/chatrelay/internal/testhelpers"
)

const eventTimeout = 2 * time.Second

// newTestServer starts a relay and serves its routes on an httptest server.
func newTestServer(t *testing.T, mutate func(*server.Config)) (*server.Server, *httptest.Server) {
	t.Helper()

	cfg := server.DefaultConfig()
	cfg.StatsSchedule = "off"
	cfg.RateLimit.Burst = 1000
	if mutate != nil {
		mutate(&cfg)
	}

	srv := server.New(cfg, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	srv.StartRelay(ctx)
	ts := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		cancel()
		if err := srv.Shutdown(5 * time.Second); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
		ts.Close()
	})
	return srv, ts
}

// dial opens a socket to ts and closes it when the test ends.
func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// joinAs dials, joins as username and waits until the joiner's own roster
// arrives. It returns the socket and the roster it saw.
func joinAs(t *testing.T, ts *httptest.Server, username string) (*websocket.Conn, []session.Session) {
	t.Helper()
	conn := dial(t, ts)
	require.NoError(t, testhelpers.SendEvent(conn, relay.EventJoin, map[string]string{
		"username": username,
		"avatar":   username + ".png",
	}))

	testhelpers.WaitForEvent(t, conn, relay.EventMessageHistory, eventTimeout)
	roster := testhelpers.DecodeData[[]session.Session](t,
		testhelpers.WaitForEvent(t, conn, relay.EventUserList, eventTimeout))
	return conn, roster
}

// waitForRoster blocks until the relay reports n joined sessions.
func waitForRoster(t *testing.T, srv *server.Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		roster, err := srv.Relay().Roster(ctx)
		return err == nil && len(roster) == n
	}, eventTimeout, 10*time.Millisecond)
}

func usernames(roster []session.Session) []string {
	names := make([]string, 0, len(roster))
	for _, s := range roster {
		names = append(names, s.Username)
	}
	return names
}

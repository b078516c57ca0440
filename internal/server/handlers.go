// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, the roster query, and the built-in test page.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// webSocketHandler upgrades the request, hands the new client to the relay
// and starts the client's read/write pumps.
func (s *Server) webSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.relay, r.RemoteAddr, s.cfg, s.log)

	// The Connect event is queued before the read pump starts, so it always
	// precedes the client's own events.
	if err := s.relay.Submit(r.Context(), relay.Connect{Conn: client}); err != nil {
		s.log.Warn().Err(err).Str("conn_id", client.ID()).Msg("Relay refused connection")
		_ = conn.Close()
		return
	}

	s.startClient(client)
}

// healthHandler always reports the server as running.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Message: "Chat server is running"})
}

// usersHandler returns the current roster in the same shape as userList.
func (s *Server) usersHandler(w http.ResponseWriter, r *http.Request) {
	roster, err := s.relay.Roster(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("Roster query failed")
		http.Error(w, "Roster unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

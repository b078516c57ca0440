// Package session tracks which connections have joined the chat and the
// display identity each of them announced.
package session

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
)

// Session binds a connection identity to a joined user's display identity.
// Avatar is whatever JSON value the client announced, kept verbatim.
type Session struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Avatar   json.RawMessage `json:"avatar"`
	JoinedAt time.Time       `json:"-"`
}

// Registry maps connection ids to sessions and remembers insertion order so
// roster snapshots are deterministic. It is not safe for concurrent use.
type Registry struct {
	sessions map[string]Session
	order    []string
	now      func() time.Time
}

// NewRegistry returns an empty Registry. A nil clock defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sessions: make(map[string]Session),
		now:      now,
	}
}

// Register inserts or overwrites the session for id and reports whether an
// earlier session was replaced. A replaced session keeps its roster position
// and original join time.
func (r *Registry) Register(id, username string, avatar json.RawMessage) (Session, bool) {
	prev, replaced := r.sessions[id]

	s := Session{ID: id, Username: username, Avatar: avatar, JoinedAt: r.now()}
	if replaced {
		s.JoinedAt = prev.JoinedAt
	} else {
		r.order = append(r.order, id)
	}
	r.sessions[id] = s
	return s, replaced
}

// Lookup returns the session for id. A miss means the connection has not
// joined.
func (r *Registry) Lookup(id string) (Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Unregister removes and returns the session for id, if any.
func (r *Registry) Unregister(id string) (Session, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, id)
	r.order = lo.Without(r.order, id)
	return s, true
}

// List returns every current session in join order. The result is never nil.
func (r *Registry) List() []Session {
	return lo.Map(r.order, func(id string, _ int) Session { return r.sessions[id] })
}

// Len reports the number of joined sessions.
func (r *Registry) Len() int { return len(r.sessions) }

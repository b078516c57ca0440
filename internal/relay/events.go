package relay

import "encoding/json"

// Event is an inbound connection event. The set of implementations is closed:
// Connect, Join, SendMessage, Typing and Disconnect.
type Event interface {
	ConnectionID() string
	sealed()
}

// Connect announces a freshly established transport connection.
type Connect struct {
	Conn Conn
}

// Join registers the connection under a display identity.
type Join struct {
	ConnID   string
	Username string
	Avatar   json.RawMessage
}

// SendMessage carries a chat message from a joined connection.
type SendMessage struct {
	ConnID    string
	Content   string
	Timestamp json.RawMessage
}

// Typing toggles the typing indicator of a joined connection.
type Typing struct {
	ConnID   string
	IsTyping bool
}

// Disconnect reports that the transport connection is gone.
type Disconnect struct {
	ConnID string
}

func (e Connect) ConnectionID() string {
	if e.Conn == nil {
		return ""
	}
	return e.Conn.ID()
}

func (e Join) ConnectionID() string        { return e.ConnID }
func (e SendMessage) ConnectionID() string { return e.ConnID }
func (e Typing) ConnectionID() string      { return e.ConnID }
func (e Disconnect) ConnectionID() string  { return e.ConnID }

func (Connect) sealed()     {}
func (Join) sealed()        {}
func (SendMessage) sealed() {}
func (Typing) sealed()      {}
func (Disconnect) sealed()  {}

func eventName(ev Event) string {
	switch ev.(type) {
	case Connect:
		return "connect"
	case Join:
		return EventJoin
	case SendMessage:
		return EventSendMessage
	case Typing:
		return EventTyping
	case Disconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// State is the lifecycle position of a single connection.
type State int

const (
	// StateClosed covers connections that were never seen or are gone.
	StateClosed State = iota
	StateConnected
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	default:
		return "closed"
	}
}

package relay

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	EventJoin        = "join"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
)

// Outbound event names.
const (
	EventMessageHistory = "messageHistory"
	EventUserJoined     = "userJoined"
	EventUserList       = "userList"
	EventNewMessage     = "newMessage"
	EventUserTyping     = "userTyping"
	EventUserLeft       = "userLeft"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserJoined is sent to everyone but the joiner.
type UserJoined struct {
	Username string          `json:"username"`
	Avatar   json.RawMessage `json:"avatar"`
	ID       string          `json:"id"`
}

// UserTyping is sent to everyone but the typist.
type UserTyping struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// UserLeft is sent to everyone but the departing connection.
type UserLeft struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

type joinPayload struct {
	Username *string         `json:"username" validate:"required"`
	Avatar   json.RawMessage `json:"avatar"`
}

type sendMessagePayload struct {
	Content   *string         `json:"content" validate:"required"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type typingPayload struct {
	IsTyping *bool `json:"isTyping" validate:"required"`
}

var validate = validator.New()

// Encode wraps payload in an Envelope and returns the wire bytes.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// DecodeEvent parses one inbound frame received on connection connID.
// Frames that cannot be used yield an error wrapping ErrMalformedEvent or
// ErrUnknownEvent; callers drop them.
func DecodeEvent(connID string, raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Event {
	case EventJoin:
		var p joinPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return Join{ConnID: connID, Username: *p.Username, Avatar: p.Avatar}, nil

	case EventSendMessage:
		var p sendMessagePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return SendMessage{ConnID: connID, Content: *p.Content, Timestamp: p.Timestamp}, nil

	case EventTyping:
		var p typingPayload
		if flag, ok := bareBool(env.Data); ok {
			p.IsTyping = &flag
		} else if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return Typing{ConnID: connID, IsTyping: *p.IsTyping}, nil

	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func decodePayload(env Envelope, dst any) error {
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%w: %s without data", ErrMalformedEvent, env.Event)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	return nil
}

// bareBool accepts typing payloads sent as a plain JSON boolean.
func bareBool(data json.RawMessage) (bool, bool) {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

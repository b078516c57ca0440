// Package history keeps the bounded window of recent chat messages that is
// replayed to every newly joined client.
package history

import "encoding/json"

// DefaultCapacity is the number of messages retained when no explicit
// capacity is configured.
const DefaultCapacity = 100

// Message is a single chat message as relayed to clients. It is never
// mutated once appended. Avatar and Timestamp are carried exactly as the
// client sent them.
type Message struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Username  string          `json:"username"`
	Avatar    json.RawMessage `json:"avatar"`
	Timestamp json.RawMessage `json:"timestamp"`
	UserID    string          `json:"userId"`
}

// Buffer is a fixed-capacity FIFO of messages ordered oldest to newest.
// It is not safe for concurrent use; the relay handler owns it from a
// single goroutine.
type Buffer struct {
	items    []Message
	head     int
	size     int
	capacity int
}

// New creates a Buffer that holds at most capacity messages. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		items:    make([]Message, capacity),
		capacity: capacity,
	}
}

// Append adds msg at the tail. When the buffer is already full the oldest
// message is overwritten.
func (b *Buffer) Append(msg Message) {
	tail := (b.head + b.size) % b.capacity
	b.items[tail] = msg
	if b.size < b.capacity {
		b.size++
		return
	}
	b.head = (b.head + 1) % b.capacity
}

// Snapshot returns a copy of the retained messages, oldest first. The
// result is never nil so it encodes as an empty JSON array.
func (b *Buffer) Snapshot() []Message {
	out := make([]Message, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(b.head+i)%b.capacity])
	}
	return out
}

// Len reports how many messages are currently retained.
func (b *Buffer) Len() int { return b.size }

// Cap reports the maximum number of retained messages.
func (b *Buffer) Cap() int { return b.capacity }

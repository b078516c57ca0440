package relay

//go:generate mockgen -source=conn.go -destination=mocks/mock_conn.go -package=mocks

// Conn is one live client connection as seen by the broadcaster.
type Conn interface {
	// ID returns the transport-assigned identity, unique per connection.
	ID() string
	// Enqueue hands a fully encoded frame to the connection's writer. It must
	// not block and reports false when the frame could not be queued.
	Enqueue(frame []byte) bool
	// Close stops the connection's writer. It must be safe to call more than
	// once.
	Close()
}

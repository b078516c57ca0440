package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatrelay/internal/history"
	"github.com/Tyrowin/chatrelay/internal/session"
)

const defaultQueueSize = 256

// Stats is a point-in-time view of the handler's state.
type Stats struct {
	Connections     int
	Sessions        int
	HistoryMessages int
	HistoryCapacity int
}

type options struct {
	log             zerolog.Logger
	metrics         *Metrics
	historyCapacity int
	queueSize       int
	newID           func() string
	now             func() time.Time
}

// Option configures a Handler.
type Option func(*options)

// WithLogger sets the handler's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the collectors updated by the handler.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHistoryCapacity sets how many messages are replayed to new joiners.
func WithHistoryCapacity(n int) Option {
	return func(o *options) { o.historyCapacity = n }
}

// WithQueueSize sets the capacity of the inbound event queue.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithIDGenerator replaces the message id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithClock replaces the clock used for session join times.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Handler drives the per-connection lifecycle. Every event is handled to
// completion, including all of its broadcasts, before the next one starts.
type Handler struct {
	log      zerolog.Logger
	metrics  *Metrics
	sessions *session.Registry
	history  *history.Buffer
	out      *Broadcaster
	newID    func() string

	events  chan Event
	queries chan func()
	done    chan struct{}
}

// NewHandler creates a Handler with empty registry, history and live set.
func NewHandler(opts ...Option) *Handler {
	o := options{
		log:             zerolog.Nop(),
		historyCapacity: history.DefaultCapacity,
		queueSize:       defaultQueueSize,
		newID:           newMessageID,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	if o.queueSize < 0 {
		o.queueSize = 0
	}

	return &Handler{
		log:      o.log,
		metrics:  o.metrics,
		sessions: session.NewRegistry(o.now),
		history:  history.New(o.historyCapacity),
		out:      NewBroadcaster(o.log, o.metrics),
		newID:    o.newID,
		events:   make(chan Event, o.queueSize),
		queries:  make(chan func()),
		done:     make(chan struct{}),
	}
}

// newMessageID returns a time-ordered UUID, unique even for messages created
// within the same millisecond.
func newMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run processes events until ctx is cancelled, then closes every live
// connection. Run must be called at most once.
func (h *Handler) Run(ctx context.Context) error {
	defer close(h.done)
	h.log.Info().Msg("Relay handler started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case ev := <-h.events:
			h.Handle(ev)
		case query := <-h.queries:
			h.drain()
			query()
		}
	}
}

// drain handles every event already queued so a query observes all events
// submitted before it.
func (h *Handler) drain() {
	for {
		select {
		case ev := <-h.events:
			h.Handle(ev)
		default:
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Submit queues ev for the event loop.
func (h *Handler) Submit(ctx context.Context, ev Event) error {
	select {
	case <-h.done:
		return ErrHandlerStopped
	default:
	}

	select {
	case h.events <- ev:
		return nil
	case <-h.done:
		return ErrHandlerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Roster returns the joined sessions in join order.
func (h *Handler) Roster(ctx context.Context) ([]session.Session, error) {
	return ask(ctx, h, h.sessions.List)
}

// Stats returns current connection, session and history counts.
func (h *Handler) Stats(ctx context.Context) (Stats, error) {
	return ask(ctx, h, h.stats)
}

// State returns the lifecycle state of connection id.
func (h *Handler) State(ctx context.Context, id string) (State, error) {
	return ask(ctx, h, func() State { return h.state(id) })
}

// ask runs fn inside the event loop and waits for its result.
func ask[T any](ctx context.Context, h *Handler, fn func() T) (T, error) {
	var zero T
	reply := make(chan T, 1)

	select {
	case h.queries <- func() { reply <- fn() }:
	case <-h.done:
		return zero, ErrHandlerStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHandlerStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Handle applies a single event. It is called by Run; tests may call it
// directly as long as Run is not running concurrently.
func (h *Handler) Handle(ev Event) {
	if ev == nil {
		return
	}
	h.metrics.events.WithLabelValues(eventName(ev)).Inc()

	switch e := ev.(type) {
	case Connect:
		h.connect(e)
	case Join:
		h.join(e)
	case SendMessage:
		h.sendMessage(e)
	case Typing:
		h.typing(e)
	case Disconnect:
		h.disconnect(e.ConnID)
	}

	h.reapEvicted()
}

func (h *Handler) state(id string) State {
	if !h.out.Live(id) {
		return StateClosed
	}
	if _, ok := h.sessions.Lookup(id); ok {
		return StateJoined
	}
	return StateConnected
}

func (h *Handler) stats() Stats {
	return Stats{
		Connections:     h.out.Len(),
		Sessions:        h.sessions.Len(),
		HistoryMessages: h.history.Len(),
		HistoryCapacity: h.history.Cap(),
	}
}

func (h *Handler) connect(e Connect) {
	if e.Conn == nil {
		h.log.Warn().Msg("Received nil connection; skipping")
		return
	}
	h.out.Attach(e.Conn)
	h.log.Debug().
		Str("conn_id", e.Conn.ID()).
		Int("connections", h.out.Len()).
		Msg("Connection registered")
}

func (h *Handler) join(e Join) {
	if h.state(e.ConnID) == StateClosed {
		h.drop(e, "closed")
		return
	}

	s, replaced := h.sessions.Register(e.ConnID, e.Username, e.Avatar)
	h.metrics.sessions.Set(float64(h.sessions.Len()))

	h.out.SendToOne(e.ConnID, EventMessageHistory, h.history.Snapshot())
	h.out.SendToAllExcept(e.ConnID, EventUserJoined, UserJoined{
		Username: s.Username,
		Avatar:   s.Avatar,
		ID:       s.ID,
	})
	h.out.SendToAll(EventUserList, h.sessions.List())

	h.log.Info().
		Str("conn_id", s.ID).
		Str("username", s.Username).
		Bool("rejoin", replaced).
		Int("sessions", h.sessions.Len()).
		Msg("User joined the chat")
}

func (h *Handler) sendMessage(e SendMessage) {
	s, ok := h.joined(e)
	if !ok {
		return
	}

	msg := history.Message{
		ID:        h.newID(),
		Content:   e.Content,
		Username:  s.Username,
		Avatar:    s.Avatar,
		Timestamp: e.Timestamp,
		UserID:    s.ID,
	}
	h.history.Append(msg)
	h.metrics.messages.Inc()
	h.metrics.historySize.Set(float64(h.history.Len()))

	h.out.SendToAll(EventNewMessage, msg)

	h.log.Info().
		Str("conn_id", s.ID).
		Str("username", s.Username).
		Str("message_id", msg.ID).
		Int("length", len(msg.Content)).
		Msg("Message relayed")
}

func (h *Handler) typing(e Typing) {
	s, ok := h.joined(e)
	if !ok {
		return
	}
	h.out.SendToAllExcept(s.ID, EventUserTyping, UserTyping{
		Username: s.Username,
		IsTyping: e.IsTyping,
	})
}

// joined returns the sender's session, dropping the event when the sender
// is closed or has not joined.
func (h *Handler) joined(ev Event) (session.Session, bool) {
	id := ev.ConnectionID()
	switch h.state(id) {
	case StateClosed:
		h.drop(ev, "closed")
		return session.Session{}, false
	case StateConnected:
		h.drop(ev, "unjoined")
		return session.Session{}, false
	}
	s, _ := h.sessions.Lookup(id)
	return s, true
}

func (h *Handler) disconnect(id string) {
	conn, live := h.out.Detach(id)
	if live {
		conn.Close()
	}
	h.leave(id)
	h.log.Debug().
		Str("conn_id", id).
		Bool("was_live", live).
		Int("connections", h.out.Len()).
		Msg("Connection unregistered")
}

// leave removes the session of id, if any, and tells everyone else.
func (h *Handler) leave(id string) {
	s, ok := h.sessions.Unregister(id)
	if !ok {
		return
	}
	h.metrics.sessions.Set(float64(h.sessions.Len()))

	h.out.SendToAllExcept(id, EventUserLeft, UserLeft{Username: s.Username, ID: s.ID})
	h.out.SendToAll(EventUserList, h.sessions.List())

	h.log.Info().
		Str("conn_id", id).
		Str("username", s.Username).
		Int("sessions", h.sessions.Len()).
		Msg("User left the chat")
}

// reapEvicted runs the leave transition for connections the broadcaster
// dropped while handling the current event. Leaving can evict further
// connections, so it repeats until nothing is left.
func (h *Handler) reapEvicted() {
	for ids := h.out.TakeEvicted(); len(ids) > 0; ids = h.out.TakeEvicted() {
		for _, id := range ids {
			h.leave(id)
		}
	}
}

func (h *Handler) drop(ev Event, reason string) {
	name := eventName(ev)
	h.metrics.dropped.WithLabelValues(name, reason).Inc()
	h.log.Debug().
		Str("conn_id", ev.ConnectionID()).
		Str("event", name).
		Str("reason", reason).
		Msg("Ignoring event")
}

func (h *Handler) shutdown() {
	h.log.Info().Msg("Shutting down all client connections...")

	conns := h.out.Conns()
	for _, conn := range conns {
		h.out.Detach(conn.ID())
		conn.Close()
	}

	h.log.Info().Int("closed", len(conns)).Msg("Closed client connections")
}

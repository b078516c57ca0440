package relay

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Broadcaster holds the live connection set and fans encoded frames out to
// it. Delivery is fire-and-forget: a recipient that cannot accept a frame is
// evicted and closed without affecting anyone else. Broadcaster is not safe
// for concurrent use.
type Broadcaster struct {
	log     zerolog.Logger
	metrics *Metrics
	conns   map[string]Conn
	order   []string
	evicted []string
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster(log zerolog.Logger, metrics *Metrics) *Broadcaster {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Broadcaster{
		log:     log,
		metrics: metrics,
		conns:   make(map[string]Conn),
	}
}

// Attach adds conn to the live set.
func (b *Broadcaster) Attach(conn Conn) {
	id := conn.ID()
	if _, exists := b.conns[id]; !exists {
		b.order = append(b.order, id)
	}
	b.conns[id] = conn
	b.metrics.connections.Set(float64(len(b.conns)))
}

// Detach removes id from the live set and returns the connection it held.
// The connection is not closed.
func (b *Broadcaster) Detach(id string) (Conn, bool) {
	conn, ok := b.conns[id]
	if !ok {
		return nil, false
	}
	delete(b.conns, id)
	b.order = lo.Without(b.order, id)
	b.metrics.connections.Set(float64(len(b.conns)))
	return conn, true
}

// Live reports whether id is in the live set.
func (b *Broadcaster) Live(id string) bool {
	_, ok := b.conns[id]
	return ok
}

// Len reports the number of live connections.
func (b *Broadcaster) Len() int { return len(b.conns) }

// Conns returns the live connections in attach order.
func (b *Broadcaster) Conns() []Conn {
	return lo.Map(b.order, func(id string, _ int) Conn { return b.conns[id] })
}

// SendToOne delivers to a single connection. Unknown ids are ignored.
func (b *Broadcaster) SendToOne(id, event string, payload any) {
	conn, ok := b.conns[id]
	if !ok {
		return
	}
	b.fanout(event, payload, []Conn{conn})
}

// SendToAllExcept delivers to every live connection other than id.
func (b *Broadcaster) SendToAllExcept(id, event string, payload any) {
	targets := lo.Filter(b.Conns(), func(conn Conn, _ int) bool { return conn.ID() != id })
	b.fanout(event, payload, targets)
}

// SendToAll delivers to every live connection.
func (b *Broadcaster) SendToAll(event string, payload any) {
	b.fanout(event, payload, b.Conns())
}

// TakeEvicted returns the ids evicted since the previous call.
func (b *Broadcaster) TakeEvicted() []string {
	ids := b.evicted
	b.evicted = nil
	return ids
}

func (b *Broadcaster) fanout(event string, payload any, targets []Conn) {
	if len(targets) == 0 {
		return
	}

	frame, err := Encode(event, payload)
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("Dropping undeliverable broadcast")
		return
	}

	delivered := 0
	for _, conn := range targets {
		if conn.Enqueue(frame) {
			delivered++
			continue
		}
		b.evict(conn)
	}

	b.metrics.deliveries.WithLabelValues(event).Add(float64(delivered))
	b.log.Debug().
		Str("event", event).
		Int("targets", len(targets)).
		Int("delivered", delivered).
		Msg("Broadcast issued")
}

func (b *Broadcaster) evict(conn Conn) {
	id := conn.ID()
	if _, ok := b.Detach(id); !ok {
		return
	}
	conn.Close()
	b.evicted = append(b.evicted, id)
	b.metrics.evictions.Inc()
	b.log.Warn().Str("conn_id", id).Msg("Connection removed due to full send buffer")
}

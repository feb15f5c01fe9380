package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/cortex/internal/metrics"
)

const subscriberBufSize = 256

// Event is one notification pushed to the UI layer.
type Event struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Broker fans out events to all subscribed clients. It remembers the latest
// event of each kind and replays those to new subscribers, so a client that
// connects late starts from the current state.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	latest      map[string]Event
	order       []string
	nextID      atomic.Int64
	closed      bool
	metrics     *metrics.Metrics
}

// NewBroker creates a new event broker. m may be nil.
func NewBroker(m *metrics.Metrics) *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
		latest:      make(map[string]Event),
		metrics:     m,
	}
}

// Subscribe registers a new client. Returns the subscriber ID and a channel
// to receive events on, primed with the latest event of every kind. The
// channel is buffered; slow consumers will have events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return id, ch
	}
	for _, kind := range b.order {
		ch <- b.latest[kind]
	}
	b.subscribers[id] = ch
	n := len(b.subscribers)
	b.mu.Unlock()
	b.metrics.SetEventClients(n)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	b.metrics.SetEventClients(n)
}

// Publish sends an event to all subscribers. Non-blocking: slow clients
// have events dropped.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.latest[evt.Kind]; !seen {
		b.order = append(b.order, evt.Kind)
	}
	b.latest[evt.Kind] = evt
	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			slog.Debug("event dropped for slow client", "subscriber", id, "kind", evt.Kind)
		}
	}
}

// Notify encodes payload as JSON and publishes it under kind. It implements
// shell.Notifier.
func (b *Broker) Notify(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("encode notification", "kind", kind, "error", err)
		return
	}
	b.Publish(Event{Kind: kind, Payload: data})
}

// Close disconnects every subscriber. Later subscribers get a closed
// channel.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
	b.metrics.SetEventClients(0)
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

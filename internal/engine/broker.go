package engine

import (
	"sync"

	"github.com/seantiz/pomoflow/internal/model"
)

// subscriberBufferSize is the channel buffer for each subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Event types published by the engine.
const (
	EventState = "state"
	EventCue   = "cue"
)

// Cue actions carried by EventCue.
const (
	CuePlay = "play"
	CueStop = "stop"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Type  string            `json:"type"`
	State *model.TimerState `json:"state,omitempty"`
	Cue   string            `json:"cue,omitempty"`
}

// Broker fans engine events out to subscribers. It is safe for concurrent use.
//
// After Close, Subscribe returns an already closed channel so late
// subscribers never block.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBroker creates a new broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel that receives events and an unsubscribe
// function.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish sends ev to all subscribers. Events are dropped for subscribers
// whose buffers are full.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Never block the engine on a slow reader.
		}
	}
}

// Close closes every subscriber channel. It is safe to call more than once.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

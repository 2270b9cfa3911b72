package notify

import (
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Change describes one mutation of the event store. It replaces the DOM
// "coreDataChanged" broadcast of the original frontend with a typed,
// in-process channel that read-side refreshers subscribe to.
type Change struct {
	Schema string
	ID     string
	Action string
	At     time.Time
}

// Broker fans Change notifications out to subscribers. Publish never blocks:
// a subscriber that falls behind its buffer misses notifications, which is
// acceptable because readers re-query the store anyway.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Change
	log    *zap.Logger
}

func NewBroker(log *zap.Logger) *Broker {
	return &Broker{
		subs: make(map[int]chan Change),
		log:  log.Named("notify"),
	}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the subscription; the channel is closed by cancel.
func (b *Broker) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Change, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Broker) Publish(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
			b.log.Debug("subscriber buffer full, dropping change",
				zap.String("schema", change.Schema),
				zap.String("action", change.Action),
			)
		}
	}
}

var Module = fx.Module("notify",
	fx.Provide(NewBroker),
)

package quest

import (
	"context"
	"sync"
)

type EventKind string

const (
	EventCompleted EventKind = "quest-completed"
	EventReset     EventKind = "quest-reset"
)

// Event is broadcast after a ledger mutation has been persisted.
// QuestID and XP are only set for EventCompleted.
type Event struct {
	Kind    EventKind `json:"type"`
	Owner   string    `json:"owner"`
	QuestID ID        `json:"questId,omitempty"`
	XP      int       `json:"xp,omitempty"`
}

// Publisher receives ledger events.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Listener is a Bus subscriber.
type Listener func(ctx context.Context, ev Event)

// Bus is an in-process publish/subscribe hub. Listeners are called in
// registration order on the publishing goroutine; callers must not rely on
// that order.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener
	order     []uint64
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[uint64]Listener)}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to a snapshot of the current listeners.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, ev)
	}
}

// Len reports the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

var _ Publisher = (*Bus)(nil)

// Package bus carries the process-wide "selection changed" broadcast.
// The signal has no payload; subscribers re-pull from the backend.
package bus

import (
	"sync"

	"github.com/google/uuid"
)

type Bus struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan struct{}
}

func New() *Bus {
	return &Bus{subs: make(map[uuid.UUID]chan struct{})}
}

// Publish signals every subscriber without blocking. A subscriber that
// already has a pending signal is left as-is; refreshes coalesce.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *Bus) Subscribe() (uuid.UUID, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	ch := make(chan struct{}, 1)
	b.subs[id] = ch
	return id, ch
}

func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

// Broadcaster fans approval changes out to in-process subscribers.
// Slow subscribers miss events rather than block publishers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]chan domain.ApprovalChange
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]chan domain.ApprovalChange)}
}

// Subscribe registers a subscriber that is dropped, and its channel closed, when ctx ends.
func (b *Broadcaster) Subscribe(ctx context.Context) <-chan domain.ApprovalChange {
	id := uuid.New().String()
	ch := make(chan domain.ApprovalChange, 16) // buffer for bursts

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func (b *Broadcaster) Publish(c domain.ApprovalChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Len reports the current subscriber count.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

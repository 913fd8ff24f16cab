// Package feed carries "user changed" notifications between writers and the
// live nearby-user subscriptions.
package feed

import (
	"context"
	"sync"
)

// Event types
const (
	EventLocation = "location"
	EventPresence = "presence"
)

// Event says that a users/{uid} document changed
type Event struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	At     int64  `json:"at"` // Unix ms
}

// Feed publishes change events and fans them out to subscribers
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers events until ctx is done, then closes the channel
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// MemoryFeed is a single-process Feed
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewMemoryFeed creates an in-process feed
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan Event)}
}

// Publish delivers ev to every subscriber. Slow subscribers drop events.
func (f *MemoryFeed) Publish(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (f *MemoryFeed) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 64)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

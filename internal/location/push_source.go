package location

import (
	"context"
	"sync"

	"github.com/nearu/nearu-backend/internal/models"
)

type watcher struct {
	onSample func(models.Location)
	onError  func(error)
}

// PushSource is a Source fed by raw samples that clients upload. Each user
// session on the server owns one.
type PushSource struct {
	mu       sync.Mutex
	nextID   int
	watchers map[int]watcher
	waiters  []chan models.Location
}

// NewPushSource creates an empty push source
func NewPushSource() *PushSource {
	return &PushSource{watchers: make(map[int]watcher)}
}

// Watch registers a watcher until cancel is called
func (p *PushSource) Watch(_ Options, onSample func(models.Location), onError func(error)) (func(), error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = watcher{onSample: onSample, onError: onError}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
		})
	}, nil
}

// Current waits for the next pushed sample
func (p *PushSource) Current(ctx context.Context, _ Options) (models.Location, error) {
	ch := make(chan models.Location, 1)
	p.mu.Lock()
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case loc := <-ch:
		return loc, nil
	case <-ctx.Done():
		p.removeWaiter(ch)
		return models.Location{}, ctx.Err()
	}
}

func (p *PushSource) removeWaiter(ch chan models.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

// Push delivers a raw sample to every watcher and pending Current call.
// Watchers run synchronously on the caller's goroutine.
func (p *PushSource) Push(loc models.Location) {
	p.mu.Lock()
	ws := make([]watcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		ws = append(ws, w)
	}
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, ch := range waiters {
		ch <- loc
	}
	for _, w := range ws {
		if w.onSample != nil {
			w.onSample(loc)
		}
	}
}

// PushError reports a source failure to every watcher
func (p *PushSource) PushError(err error) {
	p.mu.Lock()
	ws := make([]watcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		ws = append(ws, w)
	}
	p.mu.Unlock()

	for _, w := range ws {
		if w.onError != nil {
			w.onError(err)
		}
	}
}

// Watchers returns the number of active watches
func (p *PushSource) Watchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}

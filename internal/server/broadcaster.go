package server

import (
	"sync"

	"github.com/park285/mystic-pawn/internal/trainer"
)

const subscriberBuffer = 16

// Broadcaster fans session snapshots out to websocket clients.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan trainer.Snapshot]struct{}
	latest *trainer.Snapshot
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan trainer.Snapshot]struct{}),
	}
}

// Subscribe registers a new subscriber. The latest snapshot, if any, is queued first.
func (b *Broadcaster) Subscribe() chan trainer.Snapshot {
	ch := make(chan trainer.Snapshot, subscriberBuffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	if b.latest != nil {
		ch <- *b.latest
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan trainer.Snapshot) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish never blocks; a lagging subscriber misses the snapshot and catches up on the next one.
func (b *Broadcaster) Publish(s trainer.Snapshot) {
	b.mu.Lock()
	b.latest = &s
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects every subscriber. Later subscribers get a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Package watch provides in-process topic subscriptions with explicit,
// cancellable handles. Every committed store write publishes its topic's
// latest snapshot; subscribers that fall behind see intermediate snapshots
// coalesced away, which matches the last-write-wins content model.
package watch

import "sync"

// Subscription delivers snapshots published to one topic. The channel holds
// at most one pending value; a newer snapshot replaces an unconsumed older
// one so a slow reader never blocks a writer.
type Subscription[T any] struct {
	ch     chan T
	cancel func(s *Subscription[T])
	once   sync.Once
}

// Updates returns the receive channel. It is closed after Cancel.
func (s *Subscription[T]) Updates() <-chan T {
	return s.ch
}

// Cancel detaches the subscription from its topic and closes the update
// channel. Idempotent.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() { s.cancel(s) })
}

// Broker fans out published values to all subscriptions of a topic.
type Broker[T any] struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription[T]]struct{}
}

// NewBroker creates an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		topics: make(map[string]map[*Subscription[T]]struct{}),
	}
}

// Subscribe attaches a new subscription to topic. The caller owns the handle
// and must Cancel it to free the topic slot.
func (b *Broker[T]) Subscribe(topic string) *Subscription[T] {
	sub := &Subscription[T]{
		ch: make(chan T, 1),
		cancel: func(s *Subscription[T]) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.topics[topic]; ok {
				delete(subs, s)
				if len(subs) == 0 {
					delete(b.topics, topic)
				}
			}
			close(s.ch)
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription[T]]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish delivers v to every subscription of topic, replacing any pending
// undelivered value.
func (b *Broker[T]) Publish(topic string, v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.topics[topic] {
		deliver(sub, v)
	}
}

// Subscribers reports how many subscriptions a topic currently has.
// Stores use it to skip building snapshots nobody is listening for.
func (b *Broker[T]) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Prime delivers v to a single subscription unless a newer value is already
// pending. Stores use it to seed a fresh subscription with current state
// without racing a concurrent commit.
func (b *Broker[T]) Prime(sub *Subscription[T], v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case sub.ch <- v:
	default:
		// A publish that happened after Subscribe already filled the slot
		// with a newer snapshot; keep it.
	}
}

// deliver is called with b.mu held, which makes the drain/send pair atomic
// with respect to other publishers and Cancel.
func deliver[T any](sub *Subscription[T], v T) {
	select {
	case sub.ch <- v:
	default:
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- v
	}
}

package watch

import (
	"testing"
	"time"
)

func recvTimeout[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		panic("unreachable")
	}
}

func TestBrokerDeliversToTopicSubscribers(t *testing.T) {
	b := NewBroker[int]()

	sub := b.Subscribe("a")
	defer sub.Cancel()
	other := b.Subscribe("b")
	defer other.Cancel()

	b.Publish("a", 42)

	if got := recvTimeout(t, sub.Updates()); got != 42 {
		t.Errorf("received %d, want 42", got)
	}

	select {
	case v := <-other.Updates():
		t.Errorf("topic b received %d, want nothing", v)
	default:
	}
}

func TestBrokerCoalescesToLatest(t *testing.T) {
	b := NewBroker[int]()
	sub := b.Subscribe("a")
	defer sub.Cancel()

	// The subscriber is not reading; only the newest value may survive.
	b.Publish("a", 1)
	b.Publish("a", 2)
	b.Publish("a", 3)

	if got := recvTimeout(t, sub.Updates()); got != 3 {
		t.Errorf("received %d, want latest value 3", got)
	}
}

func TestBrokerPrimeSeedsWithoutOverwritingNewer(t *testing.T) {
	b := NewBroker[int]()

	sub := b.Subscribe("a")
	defer sub.Cancel()
	b.Prime(sub, 10)
	if got := recvTimeout(t, sub.Updates()); got != 10 {
		t.Errorf("primed value = %d, want 10", got)
	}

	// A publish that lands between Subscribe and Prime must win.
	raced := b.Subscribe("a")
	defer raced.Cancel()
	b.Publish("a", 20)
	b.Prime(raced, 10)
	if got := recvTimeout(t, raced.Updates()); got != 20 {
		t.Errorf("received %d, want newer published value 20", got)
	}
}

func TestSubscriptionCancelClosesChannel(t *testing.T) {
	b := NewBroker[int]()
	sub := b.Subscribe("a")

	sub.Cancel()
	sub.Cancel() // idempotent

	if _, open := <-sub.Updates(); open {
		t.Error("channel still open after Cancel")
	}

	// Publishing after cancel must not panic or deliver.
	b.Publish("a", 1)
}

func TestBrokerSubscribers(t *testing.T) {
	b := NewBroker[int]()
	if n := b.Subscribers("a"); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}

	sub := b.Subscribe("a")
	if n := b.Subscribers("a"); n != 1 {
		t.Errorf("Subscribers() = %d, want 1", n)
	}

	sub.Cancel()
	if n := b.Subscribers("a"); n != 0 {
		t.Errorf("Subscribers() after cancel = %d, want 0", n)
	}
}

func TestDeriveProjectsAndPropagatesClose(t *testing.T) {
	b := NewBroker[int]()
	src := b.Subscribe("a")

	derived := Derive(src, func(v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})

	b.Publish("a", 3)
	if got := recvTimeout(t, derived.Updates()); got != "odd" {
		t.Errorf("derived value = %q, want %q", got, "odd")
	}

	src.Cancel()
	for {
		if _, open := <-derived.Updates(); !open {
			return
		}
	}
}

func TestDeriveCancelStopsSource(t *testing.T) {
	b := NewBroker[int]()
	src := b.Subscribe("a")

	derived := Derive(src, func(v int) int { return v * 2 })
	derived.Cancel()

	// Source cancellation is asynchronous only through channel close; the
	// derived Cancel cancels the source directly.
	if _, open := <-src.Updates(); open {
		t.Error("source still open after derived Cancel")
	}
}

package watch

// Derive builds a subscription that transforms every value of src through
// fn. Cancelling the derived handle cancels src; cancelling src closes the
// derived channel once the pump drains. Query projections and presence
// filters are Derive calls over raw store subscriptions.
func Derive[S, T any](src *Subscription[S], fn func(S) T) *Subscription[T] {
	dst := &Subscription[T]{
		ch: make(chan T, 1),
		cancel: func(*Subscription[T]) {
			src.Cancel()
		},
	}

	go func() {
		for v := range src.Updates() {
			out := fn(v)
			// Single pump goroutine, so the drain/send pair cannot race
			// with another sender.
			select {
			case dst.ch <- out:
			default:
				select {
				case <-dst.ch:
				default:
				}
				dst.ch <- out
			}
		}
		close(dst.ch)
	}()

	return dst
}

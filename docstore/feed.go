package docstore

import "sync"

// Feed is a Subscription backed by an unbounded queue, so producers never
// block on slow consumers. Backends push snapshots into it.
type Feed struct {
	mu    sync.Mutex
	queue []Snapshot
	wake  chan struct{}
	out   chan Snapshot
	done  chan struct{}

	stopOnce sync.Once
	onStop   func()
}

// NewFeed starts a feed. onStop, if not nil, runs once when the feed is stopped.
func NewFeed(onStop func()) *Feed {
	f := &Feed{
		wake:   make(chan struct{}, 1),
		out:    make(chan Snapshot),
		done:   make(chan struct{}),
		onStop: onStop,
	}
	go f.pump()
	return f
}

// Push enqueues a snapshot. It reports false once the feed is stopped.
func (f *Feed) Push(s Snapshot) bool {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return false
	default:
	}
	f.queue = append(f.queue, s)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
	return true
}

// Snapshots implements Subscription.
func (f *Feed) Snapshots() <-chan Snapshot {
	return f.out
}

// Stop implements Subscription.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		close(f.done)
		f.queue = nil
		f.mu.Unlock()
		if f.onStop != nil {
			f.onStop()
		}
	})
}

// Done is closed when the feed is stopped.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (f *Feed) pump() {
	defer close(f.out)
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			select {
			case <-f.wake:
				continue
			case <-f.done:
				return
			}
		}
		next := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()

		select {
		case f.out <- next:
		case <-f.done:
			return
		}
	}
}

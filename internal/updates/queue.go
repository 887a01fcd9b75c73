// Package updates implements the per-session queue of pending parameter
// changes.
//
// The queue is keyed by URI. Delivery order is the order in which each URI
// was FIRST pushed since it was last popped; a later push to a URI that is
// already queued replaces its value and timestamp in place without moving
// it. A slow consumer therefore holds at most one entry per subscribed URI
// and always receives the newest value when it finally drains.
//
//	Push(a,1) Push(b,1) Push(a,2)   ->   [a=2, b=1]
//	PopFront()                      ->   a=2, [b=1]
//	Push(a,3)                       ->   [b=1, a=3]
package updates

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// ErrEmpty is returned by PopFront when no updates are pending.
var ErrEmpty = errors.New("updates: queue empty")

// Update is one pending change.
type Update struct {
	URI   string
	Value value.Value
	Time  time.Time
}

// Queue is a coalescing FIFO of pending updates. It is safe for concurrent
// use; Push never blocks on the consumer.
type Queue struct {
	mu      sync.Mutex
	pending *orderedmap.OrderedMap[string, Update]
	clock   clock.Clock
	ready   chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock sets the time source used to stamp updates.
func WithClock(c clock.Clock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

// NewQueue creates an empty queue stamped with the wall clock unless
// overridden.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		pending: orderedmap.New[string, Update](),
		clock:   clock.New(),
		ready:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push records that uri now holds v.
func (q *Queue) Push(uri string, v value.Value) {
	q.mu.Lock()
	q.pending.Set(uri, Update{URI: uri, Value: v, Time: q.clock.Now()})
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// PopFront removes and returns the oldest pending update.
func (q *Queue) PopFront() (Update, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	head := q.pending.Oldest()
	if head == nil {
		return Update{}, ErrEmpty
	}
	q.pending.Delete(head.Key)
	return head.Value, nil
}

// Drain pops every pending update in order and passes it to fn. It returns
// the number of updates delivered.
func (q *Queue) Drain(fn func(Update)) int {
	n := 0
	for {
		u, err := q.PopFront()
		if err != nil {
			return n
		}
		fn(u)
		n++
	}
}

// IsEmpty reports whether no updates are pending.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of distinct URIs pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Clear discards every pending update.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = orderedmap.New[string, Update]()
	q.mu.Unlock()
}

// Ready returns a channel that receives a value after at least one Push
// since the last receive. Consumers wait on it and then drain until
// ErrEmpty.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

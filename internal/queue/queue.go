package queue

import (
	"container/heap"
	"sync"
)

// Queue is a thread-safe priority queue with a single logical consumer.
// Producers never block: Put either accepts the item or fails fast.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   itemHeap
	nextSeq uint64
	cap     int // 0 means unbounded
	closed  bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity bounds the queue; Put fails with ErrFull beyond the bound.
// Zero or negative means unbounded.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.cap = n
		}
	}
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{nextSeq: 1}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Put assigns the item's sequence and inserts it, waking the consumer if
// it is waiting. Safe from any goroutine.
func (q *Queue) Put(it *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.cap > 0 && q.items.Len() >= q.cap {
		return ErrFull
	}

	it.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.items, it)
	q.cond.Signal()
	return nil
}

// Take blocks until an item is available and returns the lowest
// (priority, sequence) item. After Close it keeps returning the remaining
// items until the queue is empty, then ErrClosed. Only one logical
// consumer is supported.
func (q *Queue) Take() (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return nil, ErrClosed
	}
	return heap.Pop(&q.items).(*Item), nil
}

// Drain atomically removes and returns every pending item in dispatch
// order. Used by the discard shutdown policy so blocked callers can be
// released.
func (q *Queue) Drain() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Item, 0, q.items.Len())
	for q.items.Len() > 0 {
		out = append(out, heap.Pop(&q.items).(*Item))
	}
	return out
}

// Close stops admission and wakes a waiting consumer. Already queued items
// remain takeable; Take reports ErrClosed only once they are gone.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether the queue has been closed.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns a consistent snapshot of the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// IsEmpty reports whether no items are pending.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// itemHeap implements heap.Interface ordered by (priority, sequence).
type itemHeap []*Item

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)         { *h = append(*h, x.(*Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

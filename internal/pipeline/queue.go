package pipeline

import "sync"

// Item is either a payload or the termination marker. Terminated is the
// only thing consumers check; Value is zero on the marker.
type Item[T any] struct {
	Value      T
	Terminated bool
}

// Queue is an unbounded FIFO shared by one stage pair. The termination
// marker is enqueued at most once and anything pushed after it is dropped,
// since every consumer stops at the first marker it sees.
type Queue[T any] struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []Item[T]
	terminated bool
}

func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends v and reports whether it was accepted.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminated {
		return false
	}
	q.items = append(q.items, Item[T]{Value: v})
	q.cond.Signal()
	return true
}

// Terminate enqueues the termination marker. It reports false if the
// marker was already enqueued.
func (q *Queue[T]) Terminate() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminated {
		return false
	}
	q.terminated = true
	q.items = append(q.items, Item[T]{Terminated: true})
	q.cond.Broadcast()
	return true
}

// Pop blocks until an item is available.
func (q *Queue[T]) Pop() Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	it := q.items[0]
	q.items[0] = Item[T]{}
	q.items = q.items[1:]
	return it
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Package queue implements the bounded single-producer/single-consumer
// channels that carry frames and audio blocks across thread boundaries.
// Capacity is fixed at creation; a push onto a full queue applies the
// configured overflow policy instead of blocking, so device callbacks and
// capture loops are never stalled by a slow consumer.
package queue

import (
	"sync/atomic"
	"time"
)

// OverflowPolicy selects what happens when Push finds the queue full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest unread item to make room. Used for video
	// frames, where the pacer fills holes by duplication.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming item. Used for audio, where evicting
	// already-queued samples would shear the mixer's contiguity window.
	DropNewest
)

// Queue is a fixed-capacity FIFO. Push is non-blocking and O(1); Pop and
// PopWait are consumer-side. Exactly one producer and one consumer are
// assumed, matching the one-queue-per-source pipeline layout.
type Queue[T any] struct {
	ch      chan T
	policy  OverflowPolicy
	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// New creates a queue with the given capacity and overflow policy.
func New[T any](capacity int, policy OverflowPolicy) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity), policy: policy}
}

// Push enqueues v without blocking. If the queue is full the overflow policy
// is applied; the return value is false when any item was dropped (the
// incoming one under DropNewest, the evicted one under DropOldest).
func (q *Queue[T]) Push(v T) bool {
	select {
	case q.ch <- v:
		q.pushed.Add(1)
		return true
	default:
	}

	if q.policy == DropNewest {
		q.dropped.Add(1)
		return false
	}

	// DropOldest: evict one, then retry. With a single producer the slot
	// freed here cannot be stolen, so the second send always succeeds.
	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}
	select {
	case q.ch <- v:
		q.pushed.Add(1)
	default:
		q.dropped.Add(1)
	}
	return false
}

// Pop removes and returns the oldest item, or false if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// PopWait removes the oldest item, waiting up to timeout for one to arrive.
func (q *Queue[T]) PopWait(timeout time.Duration) (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-q.ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Drain removes and returns everything currently queued.
func (q *Queue[T]) Drain() []T {
	var items []T
	for {
		select {
		case v := <-q.ch:
			items = append(items, v)
		default:
			return items
		}
	}
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Pushed returns the total number of successfully enqueued items.
func (q *Queue[T]) Pushed() uint64 { return q.pushed.Load() }

// Dropped returns the total number of items lost to overflow.
func (q *Queue[T]) Dropped() uint64 { return q.dropped.Load() }

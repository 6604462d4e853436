package queue

import (
	"testing"
	"time"
)

func TestPushPopOrder(t *testing.T) {
	q := New[int](4, DropOldest)
	for i := 1; i <= 3; i++ {
		q.Push(i)
	}
	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on empty queue returned ok")
	}
}

func TestDropOldestEvictsHead(t *testing.T) {
	q := New[int](2, DropOldest)
	q.Push(1)
	q.Push(2)
	if ok := q.Push(3); ok {
		t.Fatal("overflow push reported no drop")
	}

	got, _ := q.Pop()
	if got != 2 {
		t.Fatalf("head = %d, want 2 (oldest evicted)", got)
	}
	got, _ = q.Pop()
	if got != 3 {
		t.Fatalf("second = %d, want 3", got)
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", q.Dropped())
	}
}

func TestDropNewestKeepsQueued(t *testing.T) {
	q := New[int](2, DropNewest)
	q.Push(1)
	q.Push(2)
	if ok := q.Push(3); ok {
		t.Fatal("overflow push reported no drop")
	}

	got, _ := q.Pop()
	if got != 1 {
		t.Fatalf("head = %d, want 1 (incoming dropped)", got)
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", q.Dropped())
	}
}

func TestPopWaitTimesOut(t *testing.T) {
	q := New[int](1, DropOldest)
	start := time.Now()
	if _, ok := q.PopWait(20 * time.Millisecond); ok {
		t.Fatal("PopWait on empty queue returned ok")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("PopWait returned before timeout")
	}
}

func TestPopWaitReceivesFromProducer(t *testing.T) {
	q := New[int](1, DropOldest)
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(42)
	}()
	got, ok := q.PopWait(500 * time.Millisecond)
	if !ok || got != 42 {
		t.Fatalf("PopWait = (%d, %v), want (42, true)", got, ok)
	}
}

func TestDrain(t *testing.T) {
	q := New[int](8, DropOldest)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	items := q.Drain()
	if len(items) != 5 {
		t.Fatalf("Drain returned %d items, want 5", len(items))
	}
	if q.Len() != 0 {
		t.Fatalf("Len after drain = %d", q.Len())
	}
}

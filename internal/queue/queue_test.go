package queue

import (
	"context"
	"errors"
	"testing"
)

func TestFIFOOrder(t *testing.T) {
	q := NewInMemoryQueue()

	for i := 1; i <= 3; i++ {
		if err := q.Push(&Task{Number: i, URL: "https://www.amazon.co.uk/dp/B0EXAMPLE1"}); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}

	if q.Size() != 3 {
		t.Fatalf("expected size 3, got %d", q.Size())
	}

	for i := 1; i <= 3; i++ {
		task, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("pop %d failed: %v", i, err)
		}
		if task.Number != i {
			t.Errorf("expected task %d, got %d", i, task.Number)
		}
	}
}

func TestPopAfterCloseDrains(t *testing.T) {
	q := NewInMemoryQueue()
	q.Push(&Task{Number: 1, URL: "u"})
	q.Close()

	if _, err := q.Pop(context.Background()); err != nil {
		t.Fatalf("expected remaining task after close, got %v", err)
	}

	_, err := q.Pop(context.Background())
	if !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestPushAfterClose(t *testing.T) {
	q := NewInMemoryQueue()
	q.Close()

	err := q.Push(&Task{Number: 1, URL: "u"})
	if !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestPopEmptyDoesNotBlock(t *testing.T) {
	q := NewInMemoryQueue()

	_, err := q.Pop(context.Background())
	if !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}

	// A cancelled context on a non-empty queue still stops the drain.
	q.Push(&Task{Number: 1, URL: "u"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Pop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPopRespectsCancellation(t *testing.T) {
	q := NewInMemoryQueue()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPushSetsCreatedAt(t *testing.T) {
	q := NewInMemoryQueue()
	task := &Task{Number: 1, URL: "u"}
	q.Push(task)

	if task.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set on push")
	}
}

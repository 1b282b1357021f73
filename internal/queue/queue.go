package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Task is one batch item: a normalized product URL and its 1-based position
// in the input file, which becomes product_number in the output workbook.
type Task struct {
	Number    int
	URL       string
	CreatedAt time.Time
}

type Queue interface {
	Push(task *Task) error
	Pop(ctx context.Context) (*Task, error)
	Size() int
	Close() error
}

// InMemoryQueue is a FIFO of batch tasks. The batch runner is the only
// consumer: it fills the queue, closes it, then drains it sequentially, so
// Pop never needs to block waiting for a producer.
type InMemoryQueue struct {
	tasks  []*Task
	mu     sync.Mutex
	closed bool
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make([]*Task, 0),
	}
}

func (q *InMemoryQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	q.tasks = append(q.tasks, task)

	return nil
}

func (q *InMemoryQueue) Pop(ctx context.Context) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		return nil, ErrQueueEmpty
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]

	return task, nil
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true

	return nil
}

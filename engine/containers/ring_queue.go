package containers

import "errors"

var (
	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
)

// RingQueue is a FIFO over a circular buffer. Enqueue respects the capacity
// given at construction, Push doubles the buffer instead.
type RingQueue[T any] struct {
	data  []T
	head  int
	count int
}

func NewRingQueue[T any](capacity int) *RingQueue[T] {
	return &RingQueue[T]{data: make([]T, capacity)}
}

func (rq *RingQueue[T]) tail() int {
	return (rq.head + rq.count) % len(rq.data)
}

func (rq *RingQueue[T]) Enqueue(value T) error {
	if rq.IsFull() {
		return ErrQueueFull
	}
	rq.data[rq.tail()] = value
	rq.count++
	return nil
}

// Push appends value, growing the buffer when it is full.
func (rq *RingQueue[T]) Push(value T) {
	if rq.IsFull() {
		rq.grow()
	}
	rq.data[rq.tail()] = value
	rq.count++
}

func (rq *RingQueue[T]) grow() {
	data := make([]T, max(2*len(rq.data), 4))
	// unwrap so the front lands at index 0
	n := copy(data, rq.data[rq.head:])
	copy(data[n:], rq.data[:rq.head])
	rq.data = data
	rq.head = 0
}

func (rq *RingQueue[T]) Dequeue() (T, error) {
	var zero T
	if rq.IsEmpty() {
		return zero, ErrQueueEmpty
	}
	value := rq.data[rq.head]
	rq.data[rq.head] = zero
	rq.head = (rq.head + 1) % len(rq.data)
	rq.count--
	return value, nil
}

// Peek returns the front element without removing it.
func (rq *RingQueue[T]) Peek() (T, error) {
	if rq.IsEmpty() {
		var zero T
		return zero, ErrQueueEmpty
	}
	return rq.data[rq.head], nil
}

// Clear drops every element and keeps the buffer.
func (rq *RingQueue[T]) Clear() {
	clear(rq.data)
	rq.head, rq.count = 0, 0
}

func (rq *RingQueue[T]) Len() int {
	return rq.count
}

func (rq *RingQueue[T]) Cap() int {
	return len(rq.data)
}

func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.count == 0
}

func (rq *RingQueue[T]) IsFull() bool {
	return rq.count == len(rq.data)
}

package sim

import "container/heap"

type queuedEvent struct {
	ev  Event
	seq uint64
}

// EventQueue is a priority queue of pending events with deterministic ordering.
// Order by: timestamp → scheduling sequence (FIFO on equal timestamps).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue struct {
	items   []queuedEvent
	nextSeq uint64
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{items: make([]queuedEvent, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *EventQueue) Len() int { return len(q.items) }

// Less implements heap.Interface
func (q *EventQueue) Less(i, j int) bool {
	ei, ej := q.items[i], q.items[j]
	if ei.ev.Timestamp() != ej.ev.Timestamp() {
		return ei.ev.Timestamp() < ej.ev.Timestamp()
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (q *EventQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

// Push implements heap.Interface
func (q *EventQueue) Push(x any) {
	q.items = append(q.items, x.(queuedEvent))
}

// Pop implements heap.Interface
func (q *EventQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[0 : n-1]
	return item
}

// Schedule adds an event, stamping it with the next sequence number.
func (q *EventQueue) Schedule(ev Event) {
	heap.Push(q, queuedEvent{ev: ev, seq: q.nextSeq})
	q.nextSeq++
}

// PopNext removes and returns the earliest event, or nil when empty.
func (q *EventQueue) PopNext() Event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(queuedEvent).ev
}

// Peek returns the earliest event without removing it, or nil when empty.
func (q *EventQueue) Peek() Event {
	if q.Len() == 0 {
		return nil
	}
	return q.items[0].ev
}

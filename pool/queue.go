/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package pool

// queue is a bounded FIFO of pending tasks. It is not self-synchronizing: it carries no lock
// of its own. Pool drives it directly under its own mutex instead, so that queue state, the
// worker map, and the worker-count counters all stay consistent behind one critical section
// rather than several locks that could be acquired out of order.
//
// The backing array only grows; a consumed prefix is compacted back to the front once it is
// longer than 64 entries and longer than what is left, so a long-running pool doesn't retain an ever-growing
// array under light, steady load.
type queue struct {
	items []*queuedTask
	head  int
	max   int
}

// newQueue creates a queue bounded at max elements. max must be at least 1.
func newQueue(max int) *queue {
	return &queue{max: max}
}

// len returns the number of tasks currently queued.
func (q *queue) len() int {
	return len(q.items) - q.head
}

// full reports whether the queue is at capacity.
func (q *queue) full() bool {
	return q.len() >= q.max
}

// push appends a task to the tail. Caller must have already checked full().
func (q *queue) push(t *queuedTask) {
	q.items = append(q.items, t)
}

// pop removes and returns the task at the head, or nil if the queue is empty.
func (q *queue) pop() *queuedTask {
	if q.len() == 0 {
		return nil
	}

	t := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix outweighs what's left, so the backing array doesn't
	// grow without bound under sustained push/pop traffic.
	if q.head > 64 && q.head*2 > len(q.items) {
		remaining := copy(q.items, q.items[q.head:])
		q.items = q.items[:remaining]
		q.head = 0
	}

	return t
}

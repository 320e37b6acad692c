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

import "sync"

// ResultHandle is a one-shot rendezvous carrying the value a worker computed for one Task
// from that worker back to whoever is awaiting it. Ownership is shared between the
// submitter and the Task it was attached to: nothing ties a ResultHandle's lifetime to the
// submitter's stack, so a handle may safely be stashed away and awaited long after the call
// to Submit that produced it has returned.
//
// A ResultHandle is created in one of two states. A valid handle expects exactly one
// worker to call publish; an invalid one (submission was rejected) is already resolved to
// Empty and Await on it never blocks.
type ResultHandle struct {
	mu   sync.Mutex
	cond *sync.Cond

	value interface{}
	err   error
}

// newResultHandle creates a valid ResultHandle: a worker is expected to publish into it
// exactly once.
func newResultHandle() *ResultHandle {
	h := &ResultHandle{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// newInvalidResultHandle creates a ResultHandle that is already resolved to Empty. It is
// returned by Submit when admission failed; Await on it returns immediately.
func newInvalidResultHandle() *ResultHandle {
	return &ResultHandle{value: Empty}
}

// publish stores the value and error and wakes any caller blocked in Await. Calling publish
// on an invalid handle (cond == nil) is a no-op. The pool's protocol guarantees that publish
// is called at most once on any given valid handle — exactly one worker owns a handle
// through the Task it was attached to — so no double-publish guard is needed here.
func (h *ResultHandle) publish(value interface{}, err error) {
	h.mu.Lock()

	if h.cond == nil {
		// Handle was constructed invalid; nothing to deliver into.
		h.mu.Unlock()
		return
	}

	h.value = value
	h.err = err

	// Wake every waiter; in practice there is at most one.
	h.cond.Broadcast()

	// Nil-ing cond marks the handle as delivered and lets hasResult be checked without
	// touching value/err.
	h.cond = nil

	h.mu.Unlock()
}

// hasResult reports whether the handle has been delivered (or was never valid to begin
// with). Caller must hold h.mu.
func (h *ResultHandle) hasResult() bool {
	return h.cond == nil
}

// Await blocks the caller until the task's result has been published, then returns it. On
// an invalid handle it returns Empty immediately without blocking. Await may be called at
// most once per handle; calling it again after it has already returned is safe but will
// simply replay the same stored value.
func (h *ResultHandle) Await() (interface{}, error) {
	h.mu.Lock()

	if !h.hasResult() {
		h.cond.Wait()
	}

	value, err := h.value, h.err
	h.mu.Unlock()

	return value, err
}

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

// Package pool implements a bounded worker pool with two operating modes.
//
// In FIXED mode the pool starts a fixed number of workers and keeps exactly that many for
// its lifetime. In ELASTIC mode the pool starts with a floor of workers and grows, one
// worker per submission that observes backlog, up to a configured ceiling; workers above
// the floor that sit idle past idleTimeout retire themselves.
//
//	p := pool.New()
//	p.SetMode(pool.Elastic)
//	p.SetThreadSizeMax(16)
//	p.Start(4)
//	defer p.Shutdown()
//
//	handle := p.Submit(pool.TaskFunc(func() (interface{}, error) {
//		return doWork(), nil
//	}))
//	result, err := handle.Await()
//
// Submit never blocks longer than one second: if the queue stays full that long, Submit
// returns a handle whose Await resolves immediately to the empty sentinel (pool.Empty)
// instead of a real result. Shutdown does not cancel work already sitting in the queue —
// workers keep draining it — but any task that loses the race against a worker that has
// already observed an empty queue and exited is dropped, and its handle is never delivered.
// Callers that need every handle accounted for after Shutdown should await them with a
// timeout rather than unconditionally; see DESIGN.md.
package pool

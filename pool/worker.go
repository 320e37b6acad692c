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

import "time"

// worker is a long-lived consumer of one Pool's queue. It is not an exported type: the only
// handle a caller ever gets is the Pool itself plus the ResultHandles it hands out.
type worker struct {
	id   uint64
	pool *Pool

	// lastActive is read and written only by this worker's own goroutine, so it needs no
	// synchronization of its own.
	lastActive time.Time
}

// run drains the queue until it's empty, then either waits for more work or retires,
// depending on what it finds once the queue is empty: a shutdown request, having sat idle
// past idleTimeout in ELASTIC mode while the pool is above its floor, or just nothing to do
// yet. It owns the
// worker's entire lifetime: it returns exactly once, when the worker has removed itself from
// the pool's worker map.
func (w *worker) run() {
	p := w.pool

	for {
		p.mu.Lock()

		for p.q.len() == 0 {
			if p.shuttingDown.Load() {
				p.removeWorkerLocked(w)
				p.mu.Unlock()
				return
			}

			if p.mode == Elastic {
				deadline := time.Now().Add(elasticPollTimeout)
				if p.waitUntilLocked(p.notEmpty, deadline) {
					if time.Since(w.lastActive) > idleTimeout && p.curThreads.Load() > p.initThreads.Load() {
						p.retireIdleWorkerLocked(w)
						p.mu.Unlock()
						return
					}
					// Not eligible to retire yet; loop around and recheck shutdown/queue.
				}
			} else {
				p.notEmpty.Wait()
			}
		}

		p.idleThreads.Add(-1)
		qt := p.q.pop()

		if p.q.len() > 0 {
			// More work for other idle workers to pick up.
			p.notEmpty.Broadcast()
		}
		p.notFull.Broadcast()

		p.mu.Unlock()

		// Execute strictly outside the mutex.
		qt.execute()

		p.idleThreads.Add(1)
		w.lastActive = time.Now()
	}
}

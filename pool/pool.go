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

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Mode selects a Pool's worker-lifecycle policy.
type Mode int32

const (
	// Fixed keeps exactly initThreadSize workers for the pool's entire lifetime.
	Fixed Mode = iota
	// Elastic grows the worker count on backlog up to the SetThreadSizeMax ceiling and
	// shrinks idle workers above the floor back down after idleTimeout.
	Elastic
)

func (m Mode) String() string {
	if m == Elastic {
		return "ELASTIC"
	}
	return "FIXED"
}

const (
	// DefaultThreadSizeMax is the elastic-mode ceiling used when SetThreadSizeMax is never
	// called. Generous enough that it's rarely the thing limiting growth in practice, without
	// being unbounded.
	DefaultThreadSizeMax = 1024

	// DefaultTaskQueueMax approximates "effectively unbounded" for a bounded buffer.
	DefaultTaskQueueMax = math.MaxInt32
)

// These three durations are constants from the public API's point of view — nothing in Pool
// exposes a way to change them — but are declared as package-level vars rather than consts
// so that white-box tests in this package can shrink idleTimeout for the idle-reclamation
// scenario without an actual 65-second sleep.
var (
	// idleTimeout is how long an elastic worker above the floor waits for work before
	// retiring itself.
	idleTimeout = 60 * time.Second

	// elasticPollTimeout is the slice an elastic worker waits on notEmpty before rechecking
	// whether it should retire.
	elasticPollTimeout = 1 * time.Second

	// admissionTimeout bounds how long Submit waits for room in the queue.
	admissionTimeout = 1 * time.Second
)

// Pool owns the task queue and the worker set. It implements submission policy, the
// FIXED/ELASTIC mode semantics, elastic growth, and orderly shutdown.
//
// A Pool must not be copied after first use.
type Pool struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	exitCond *sync.Cond

	q *queue

	mode          Mode
	taskQueueMax  int32
	threadSizeMax int32
	started       bool

	shuttingDown atomic.Bool

	curThreads  atomic.Int32
	idleThreads atomic.Int32
	initThreads atomic.Int32

	nextWorkerID atomic.Uint64
	workers      map[uint64]*worker
}

// New creates a Pool in FIXED mode with default thresholds. Configure it with SetMode,
// SetTaskQueueMax and SetThreadSizeMax before calling Start.
func New() *Pool {
	p := &Pool{
		taskQueueMax:  DefaultTaskQueueMax,
		threadSizeMax: DefaultThreadSizeMax,
		workers:       make(map[uint64]*worker),
	}
	p.notFull = sync.NewCond(&p.mu)
	p.notEmpty = sync.NewCond(&p.mu)
	p.exitCond = sync.NewCond(&p.mu)
	p.q = newQueue(DefaultTaskQueueMax)
	return p
}

// SetMode sets the pool's worker-lifecycle policy. It is rejected with a logged diagnostic
// if the pool has already started.
func (p *Pool) SetMode(mode Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		log.Printf("pool: SetMode ignored: pool is already running")
		return
	}
	p.mode = mode
}

// SetTaskQueueMax sets the bound on the pending-task queue. n must be at least 1. Rejected
// with a logged diagnostic if the pool has already started or n is out of range.
func (p *Pool) SetTaskQueueMax(n int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		log.Printf("pool: SetTaskQueueMax ignored: pool is already running")
		return
	}
	if n < 1 {
		log.Printf("pool: SetTaskQueueMax ignored: %d must be at least 1", n)
		return
	}
	p.taskQueueMax = n
	p.q = newQueue(int(n))
}

// SetThreadSizeMax sets the elastic-mode ceiling on curThreads. n must be in [1, 1024].
// Rejected with a logged diagnostic if the pool has already started or is not in ELASTIC
// mode.
func (p *Pool) SetThreadSizeMax(n int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		log.Printf("pool: SetThreadSizeMax ignored: pool is already running")
		return
	}
	if p.mode != Elastic {
		log.Printf("pool: SetThreadSizeMax ignored: pool is not in ELASTIC mode")
		return
	}
	if n < 1 || n > 1024 {
		log.Printf("pool: SetThreadSizeMax ignored: %d must be in [1, 1024]", n)
		return
	}
	p.threadSizeMax = n
}

// Start launches initThreadSize workers and locks in the pool's mode and thresholds. The
// caller contract is a single Start call; Start does not guard against being called twice.
func (p *Pool) Start(initThreadSize int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = true
	p.shuttingDown.Store(false)

	p.initThreads.Store(initThreadSize)
	p.curThreads.Store(initThreadSize)

	for i := int32(0); i < initThreadSize; i++ {
		p.startWorkerLocked()
	}
}

// startWorkerLocked creates a worker record under a fresh id and starts its goroutine.
// Caller must hold p.mu. It does not touch curThreads; callers that grow the pool after
// Start must bump curThreads themselves so the increment and the worker's insertion into the
// map happen under the same critical section.
func (p *Pool) startWorkerLocked() {
	id := p.nextWorkerID.Add(1)
	w := &worker{id: id, pool: p, lastActive: time.Now()}
	p.workers[id] = w
	p.idleThreads.Add(1)
	go w.run()
}

// Submit enqueues task for execution and returns a handle for its eventual result. Submit
// never blocks longer than admissionTimeout; if the queue is still full after that, it
// returns an invalid handle whose Await resolves immediately to Empty.
func (p *Pool) Submit(task Task) *ResultHandle {
	p.mu.Lock()

	qt := &queuedTask{task: task}

	if !p.tryPushLocked(qt, admissionTimeout) {
		p.mu.Unlock()
		log.Printf("pool: submission rejected after %s: queue is full", admissionTimeout)
		return newInvalidResultHandle()
	}

	handle := newResultHandle()
	qt.handle = handle

	p.notEmpty.Signal()

	// Elastic grow check, still holding mu: one new worker per admitted submission that
	// observes backlog, bounded by threadSizeMax. There is no shrink path here; shrinking
	// happens solely through worker idle-timeout self-retirement.
	if p.mode == Elastic {
		taskSize := int32(p.q.len())
		if taskSize > p.idleThreads.Load() && p.curThreads.Load() < p.threadSizeMax {
			p.startWorkerLocked()
			p.curThreads.Add(1)
		}
	}

	p.mu.Unlock()
	return handle
}

// tryPushLocked waits on notFull up to timeout for room in the queue, then pushes qt. Caller
// must hold p.mu. Returns false without modifying queue state if the wait timed out.
func (p *Pool) tryPushLocked(qt *queuedTask, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for p.q.full() {
		if p.waitUntilLocked(p.notFull, deadline) {
			return false
		}
	}

	p.q.push(qt)
	return true
}

// waitUntilLocked waits on cond until either it is signaled or deadline passes, whichever
// comes first. Caller must hold p.mu; cond must be one of p's own condition variables so
// that a deadline-driven wakeup can safely re-acquire p.mu. Returns true if the deadline has
// passed when it returns.
func (p *Pool) waitUntilLocked(cond *sync.Cond, deadline time.Time) (expired bool) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return true
	}

	timer := time.AfterFunc(remaining, func() {
		p.mu.Lock()
		cond.Broadcast()
		p.mu.Unlock()
	})
	cond.Wait()
	timer.Stop()

	return !time.Now().Before(deadline)
}

// Shutdown signals every worker to exit once it next observes an empty queue, and blocks
// until the worker census reaches zero. It does not cancel tasks already sitting in the
// queue — workers keep draining a non-empty queue regardless of the shutdown flag — but a
// task that loses the race against a worker that has already observed an empty queue and
// exited is dropped, and its ResultHandle is never delivered.
func (p *Pool) Shutdown() {
	p.shuttingDown.Store(true)

	p.mu.Lock()
	p.notEmpty.Broadcast()
	for p.curThreads.Load() != 0 {
		p.exitCond.Wait()
	}
	p.mu.Unlock()
}

// CurThreads returns the number of live workers. Safe to call without holding any lock.
func (p *Pool) CurThreads() int32 {
	return p.curThreads.Load()
}

// IdleThreads returns the number of live workers that are not currently executing a task.
// Safe to call without holding any lock.
func (p *Pool) IdleThreads() int32 {
	return p.idleThreads.Load()
}

// removeWorkerLocked erases w's record, decrements curThreads and idleThreads, and wakes
// anyone blocked in Shutdown. Caller must hold p.mu. Used on the shutdown exit path; both
// counters are decremented together because a worker that has removed itself no longer
// qualifies as "live and idle" either — see DESIGN.md.
func (p *Pool) removeWorkerLocked(w *worker) {
	delete(p.workers, w.id)
	p.curThreads.Add(-1)
	p.idleThreads.Add(-1)
	p.exitCond.Broadcast()
}

// retireIdleWorkerLocked erases w's record and decrements curThreads and idleThreads. Used
// on the idle-reclamation path; no exit notification is needed because nobody waits on
// exitCond outside of Shutdown.
func (p *Pool) retireIdleWorkerLocked(w *worker) {
	delete(p.workers, w.id)
	p.curThreads.Add(-1)
	p.idleThreads.Add(-1)
}

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

import "fmt"

// Task represents an opaque unit of work submitted to a Pool. Run is called at most once per
// Task instance, on whichever worker goroutine dequeues it.
type Task interface {
	// Run performs the work and returns the value to be delivered to the submitter's
	// ResultHandle. A non-nil error is delivered alongside the returned value unchanged; Run
	// never needs to know whether anyone is actually waiting on the result.
	Run() (interface{}, error)
}

// The TaskFunc type is an adapter to allow the use of ordinary functions as a Task.
type TaskFunc func() (interface{}, error)

var _ Task = (TaskFunc)(nil)

// Run implements Task. It calls f().
func (f TaskFunc) Run() (interface{}, error) {
	return f()
}

// emptyResult is the concrete type behind Empty. It is unexported so that no caller-provided
// task result can accidentally compare equal to it other than by using Empty itself.
type emptyResult struct{}

// Empty is the sentinel value returned by ResultHandle.Await for a submission that was
// rejected (an invalid handle) and, defensively, for a task whose body panicked. It is a
// distinct typed value rather than Go's nil so that a task legitimately returning nil is
// never confused with "no result was ever delivered."
var Empty interface{} = emptyResult{}

// taskPanicError wraps a value recovered from a panicking task body. queuedTask.execute,
// which the worker loop calls, recovers around Task.Run so that one misbehaving task cannot
// take curThreads out of sync with the live worker goroutines.
type taskPanicError struct {
	recovered interface{}
}

func (e *taskPanicError) Error() string {
	return fmt.Sprintf("pool: task panicked: %v", e.recovered)
}

// queuedTask pairs a submitted Task with the ResultHandle it was admitted with. It is the
// unit that actually flows through the queue; handle is nil only in tests that exercise the
// queue directly without going through Pool.Submit.
type queuedTask struct {
	task   Task
	handle *ResultHandle
}

// execute runs the wrapped task and publishes its outcome into handle, recovering a panic
// from the task body so one misbehaving task can't take down its worker goroutine and leave
// the pool's live-worker bookkeeping out of sync with reality.
func (qt *queuedTask) execute() {
	defer func() {
		if r := recover(); r != nil {
			if qt.handle != nil {
				qt.handle.publish(Empty, &taskPanicError{recovered: r})
			}
		}
	}()

	value, err := qt.task.Run()
	if qt.handle != nil {
		qt.handle.publish(value, err)
	}
}

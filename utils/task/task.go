// Package task is a small fork-join task graph. A task runs on its own goroutine once
// all of its prerequisites have completed. A panic inside a task is captured and
// re-raised by Wait, and skips every task that depends on it.
package task

import (
	"sync/atomic"
)

type Task struct {
	done     chan struct{}
	panicked atomic.Pointer[panicValue]
}

type panicValue struct {
	v any
}

// Launch starts fn after every prerequisite has completed. Nil prerequisites are ignored.
func Launch(fn func(), prerequisites ...*Task) *Task {
	t := &Task{done: make(chan struct{})}
	deps := make([]*Task, 0, len(prerequisites))
	for _, p := range prerequisites {
		if p != nil {
			deps = append(deps, p)
		}
	}
	go t.run(fn, deps)
	return t
}

// Completed returns an already finished task, useful as a neutral prerequisite.
func Completed() *Task {
	t := &Task{done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *Task) run(fn func(), deps []*Task) {
	defer close(t.done)
	for _, p := range deps {
		<-p.done
		if pv := p.panicked.Load(); pv != nil {
			t.panicked.Store(pv)
			return
		}
	}
	defer func() {
		if r := recover(); r != nil {
			t.panicked.Store(&panicValue{r})
		}
	}()
	fn()
}

// Done is closed once the task finished, including when it was skipped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// IsComplete reports whether the task finished without blocking.
func (t *Task) IsComplete() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task completed and re-panics with the task's panic value, if any.
func (t *Task) Wait() {
	<-t.done
	if pv := t.panicked.Load(); pv != nil {
		panic(pv.v)
	}
}

// WaitAll waits for every task, then re-panics with the first captured panic.
func WaitAll(tasks ...*Task) {
	var first *panicValue
	for _, t := range tasks {
		if t == nil {
			continue
		}
		<-t.done
		if pv := t.panicked.Load(); pv != nil && first == nil {
			first = pv
		}
	}
	if first != nil {
		panic(first.v)
	}
}

// Chain runs tasks one after another, moving a value of type T from each task to the next.
// Only the goroutine building the chain may call Then; the value is owned by the running
// task until it returns it.
type Chain[T any] struct {
	tail  *Task
	value T
}

func NewChain[T any](value T) *Chain[T] {
	return &Chain[T]{value: value}
}

// Then appends fn to the chain. It starts once the previous link and every prerequisite completed.
func (c *Chain[T]) Then(fn func(T) T, prerequisites ...*Task) *Chain[T] {
	deps := make([]*Task, 0, len(prerequisites)+1)
	deps = append(deps, c.tail)
	deps = append(deps, prerequisites...)
	c.tail = Launch(func() {
		c.value = fn(c.value)
	}, deps...)
	return c
}

// Task returns the last link, or nil if nothing was chained.
func (c *Chain[T]) Task() *Task {
	return c.tail
}

// Wait waits for the last link and hands the value back to the caller.
func (c *Chain[T]) Wait() T {
	if c.tail != nil {
		c.tail.Wait()
	}
	return c.value
}

// Package task runs keyed work exactly once.
package task

import "sync"

// Group executes keyed tasks exactly once and remembers their result. It
// behaves very similarly to sync.Once, except different tasks can be invoked
// with different keys and the produced value is handed to every caller.
//
// The zero value is ready to use.
type Group[T any] struct {
	mu    sync.Mutex
	tasks map[string]*task[T]
}

type task[T any] struct {
	once sync.Once
	val  T
	err  error
}

// Do invokes fn exactly once for the given key. Concurrent calls with the
// same key block until the first one has finished. Calls with another key do
// not block.
//
// Calls after the first call return the value and error of the first call
// without invoking fn.
func (g *Group[T]) Do(key string, fn func() (T, error)) (T, error) {
	g.mu.Lock()
	if g.tasks == nil {
		g.tasks = make(map[string]*task[T])
	}
	t, ok := g.tasks[key]
	if !ok {
		t = &task[T]{}
		g.tasks[key] = t
	}
	g.mu.Unlock()

	t.once.Do(func() { t.val, t.err = fn() })

	return t.val, t.err
}

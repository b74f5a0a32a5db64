package kernel

import "sync/atomic"

// Cell owns a value that is only reachable through an exclusive Guard.
//
// The kernel runs one task at a time, so the cell never waits: a second
// acquisition while a guard is outstanding is a kernel bug and is fatal.
type Cell[T any] struct {
	borrowed atomic.Bool
	v        T
}

// NewCell wraps v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Exclusive grants sole access to the value until Release.
func (c *Cell[T]) Exclusive() *Guard[T] {
	if !c.borrowed.CompareAndSwap(false, true) {
		Fatal("already borrowed: exclusive access is not re-entrant")
	}
	return &Guard[T]{c: c}
}

// With runs fn under a guard that is released on every exit path,
// including a panic inside fn.
func (c *Cell[T]) With(fn func(*T)) {
	g := c.Exclusive()
	defer g.Release()
	fn(g.Get())
}

// Guard is a scoped handle over a Cell's value.
type Guard[T any] struct {
	c        *Cell[T]
	released bool
}

// Get returns the guarded value. The pointer must not outlive the guard.
func (g *Guard[T]) Get() *T {
	if g.released {
		Fatal("guard used after release")
	}
	return &g.c.v
}

// Release gives up access. Releasing twice is a no-op.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.c.borrowed.Store(false)
}

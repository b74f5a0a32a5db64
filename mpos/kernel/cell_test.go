package kernel

import "testing"

func expectFatal(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if _, ok := r.(*FatalError); !ok {
			t.Fatalf("recover() = %v, want *FatalError", r)
		}
	}()
	fn()
}

func TestCellWithReleases(t *testing.T) {
	c := NewCell(0)
	c.With(func(v *int) { *v = 41 })
	c.With(func(v *int) { *v++ })

	g := c.Exclusive()
	defer g.Release()
	if got := *g.Get(); got != 42 {
		t.Fatalf("value = %d, want 42", got)
	}
}

func TestCellReentrantIsFatal(t *testing.T) {
	c := NewCell(0)
	g := c.Exclusive()
	expectFatal(t, func() { c.Exclusive() })
	g.Release()

	// Still usable once the outstanding guard is gone.
	c.With(func(v *int) { *v = 1 })
}

func TestCellWithReleasesOnPanic(t *testing.T) {
	c := NewCell(0)
	func() {
		defer func() { _ = recover() }()
		c.With(func(*int) { panic("boom") })
	}()

	g := c.Exclusive()
	g.Release()
}

func TestGuardReleaseTwice(t *testing.T) {
	c := NewCell("x")
	g := c.Exclusive()
	g.Release()
	g.Release()

	g2 := c.Exclusive()
	g2.Release()
	expectFatal(t, func() { g.Get() })
}

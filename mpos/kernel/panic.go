package kernel

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// PanicInfo contains details about a fatal kernel condition.
type PanicInfo struct {
	TaskID TaskID
	Value  any
	Stack  []byte
}

// FatalError is the panic value raised by Fatal. Task trampolines never
// recover it.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string { return "kernel fatal: " + e.Msg }

var (
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)

	// currentForPanic is the last dispatched task, reported in PanicInfo.
	currentForPanic atomic.Uint32
)

// InPanicMode reports whether the kernel has hit a fatal condition.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once (on the first fatal condition). It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

// Fatal reports an unrecoverable kernel bug and panics with a *FatalError.
func Fatal(format string, args ...any) {
	err := &FatalError{Msg: fmt.Sprintf(format, args...)}
	triggerPanic(PanicInfo{TaskID: TaskID(currentForPanic.Load()), Value: err})
	panic(err)
}

func triggerPanic(info PanicInfo) {
	panicOnce.Do(func() {
		panicActive.Store(true)
		info.Stack = debug.Stack()
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

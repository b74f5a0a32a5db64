package kernel

import (
	"context"
	"runtime"
)

// Each task runs on its own goroutine, parked on its resume channel. Handing
// the CPU to a task means sending on its channel; the caller then parks on
// its own channel (suspend) or ends its goroutine (exit). Only one task
// goroutine is ever between a resume and its next hand-off.

// Run admits every task, dispatches the first one and blocks until all
// tasks have exited or ctx is done. A task that never yields cannot be
// interrupted by ctx.
func (m *TaskManager) Run(ctx context.Context) error {
	if m.numApp == 0 {
		return ErrNoTasks
	}
	if !m.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	var first TaskID
	m.Admit()
	m.inner.With(func(t *TaskTable) {
		m.markRunning(t, first)
	})
	m.log.Debugf("run first task %d of %d", first, m.numApp)
	m.notifySwitch(first, first)
	m.dispatch(first)

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SuspendCurrentAndRunNext marks the running task Ready and switches to the
// next Ready task. It returns once the caller is scheduled again.
func (m *TaskManager) SuspendCurrentAndRunNext() {
	var cur, next TaskID
	var park chan struct{}
	m.inner.With(func(t *TaskTable) {
		tcb := t.Current()
		if tcb == nil {
			Fatal("suspend with no current task")
		}
		if tcb.Info.Status != Running {
			Fatal("suspend of task %d in state %s", t.current, tcb.Info.Status)
		}
		tcb.Info.Status = Ready
		cur = t.current
		park = tcb.resume

		n, ok := m.findNext(t)
		if !ok {
			Fatal("no ready task after suspending task %d", cur)
		}
		next = n
		m.markRunning(t, next)
	})

	m.log.Tracef("switch %d -> %d (yield)", cur, next)
	m.notifySwitch(cur, next)
	if next == cur {
		return
	}
	m.dispatch(next)
	<-park
}

// ExitCurrentAndRunNext marks the running task Exited with code and ends the
// calling goroutine. The next Ready task is dispatched by handOff once the
// task's deferred calls have finished. It must be called on a task goroutine.
func (m *TaskManager) ExitCurrentAndRunNext(code int32) {
	now := m.clock.NowMicros()
	m.inner.With(func(t *TaskTable) {
		tcb := t.Current()
		if tcb == nil {
			Fatal("exit with no current task")
		}
		if tcb.Info.Status != Running {
			Fatal("exit of task %d in state %s", t.current, tcb.Info.Status)
		}
		tcb.AccountTime(now)
		tcb.Info.Status = Exited
		tcb.ExitCode = code
	})
	runtime.Goexit()
}

// handOff passes the CPU on after task id has exited. It is deferred first in
// the trampoline so it runs after every deferred call of the task body. A
// goroutine unwinding a panic has not exited and hands nothing off.
func (m *TaskManager) handOff(id TaskID) {
	var next TaskID
	var exited, ok bool
	m.inner.With(func(t *TaskTable) {
		if t.Tasks[id].Info.Status != Exited {
			return
		}
		exited = true
		next, ok = m.findNext(t)
		if ok {
			m.markRunning(t, next)
		}
	})
	if !exited {
		return
	}

	if ok {
		m.log.Tracef("switch %d -> %d (exit)", id, next)
		m.notifySwitch(id, next)
		m.dispatch(next)
		return
	}
	m.notifySwitch(id, id)
	m.finish()
}

// findNext searches round-robin from current+1, wrapping to current itself.
func (m *TaskManager) findNext(t *TaskTable) (TaskID, bool) {
	n := len(t.Tasks)
	for i := 1; i <= n; i++ {
		id := (int(t.current) + i) % n
		if t.Tasks[id].Info.Status == Ready {
			return TaskID(id), true
		}
	}
	return 0, false
}

func (m *TaskManager) markRunning(t *TaskTable, id TaskID) {
	tcb := &t.Tasks[id]
	if tcb.Info.Status != Ready {
		Fatal("dispatch of task %d in state %s", id, tcb.Info.Status)
	}
	tcb.Info.Status = Running
	if !tcb.scheduled {
		tcb.scheduled = true
		tcb.startUs = m.clock.NowMicros()
	}
	t.current = id
	t.scheduled = true
	currentForPanic.Store(uint32(id))
}

// dispatch hands the CPU to task id, starting its goroutine on first use.
func (m *TaskManager) dispatch(id TaskID) {
	var resume chan struct{}
	var spawn bool
	m.inner.With(func(t *TaskTable) {
		tcb := &t.Tasks[id]
		resume = tcb.resume
		if !tcb.spawned {
			tcb.spawned = true
			spawn = true
		}
	})
	if spawn {
		go m.trampoline(id, resume)
	}
	resume <- struct{}{}
}

// trampoline is the body of a task goroutine. An entry that returns is
// exited with its return value.
func (m *TaskManager) trampoline(id TaskID, resume chan struct{}) {
	defer m.handOff(id)
	<-resume
	var entry Entry
	m.inner.With(func(t *TaskTable) {
		entry = t.Tasks[id].entry
	})
	code := m.runEntry(id, entry)
	m.ExitCurrentAndRunNext(code)
}

func (m *TaskManager) runEntry(id TaskID, entry Entry) (code int32) {
	if entry == nil {
		return 0
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if fe, ok := r.(*FatalError); ok {
			panic(fe)
		}
		m.log.Errorf("task %d panicked: %v, kernel killed it.", id, r)
		code = -1
	}()
	return entry()
}

package kernel

import (
	"errors"
	"sync"
	"sync/atomic"

	"kos/mpos/klog"
)

var (
	ErrNoTasks      = errors.New("no tasks to run")
	ErrTooManyTasks = errors.New("too many tasks")
	ErrRunning      = errors.New("task manager already running")
)

// TaskTable is the state guarded by the TaskManager: the TCB sequence and
// the index of the task holding the CPU.
type TaskTable struct {
	Tasks []TaskControlBlock

	current   TaskID
	scheduled bool
}

// Current returns the running task's TCB, or nil before the first schedule.
func (t *TaskTable) Current() *TaskControlBlock {
	if !t.scheduled {
		return nil
	}
	return &t.Tasks[t.current]
}

// TaskManager owns the fixed task pool and is its only mutator.
type TaskManager struct {
	clock Clock
	log   *klog.Logger
	inner *Cell[TaskTable]

	numApp int

	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once

	hookMu sync.Mutex
	hook   func(from, to TaskID)
}

// New builds the task pool from entries. Every task starts UnInit.
func New(clock Clock, log *klog.Logger, entries ...Entry) (*TaskManager, error) {
	if len(entries) > MaxAppNum {
		return nil, ErrTooManyTasks
	}
	tasks := make([]TaskControlBlock, len(entries))
	for i, e := range entries {
		tasks[i] = TaskControlBlock{
			entry:  e,
			resume: make(chan struct{}, 1),
		}
	}
	return &TaskManager{
		clock:  clock,
		log:    log,
		inner:  NewCell(TaskTable{Tasks: tasks}),
		numApp: len(entries),
		done:   make(chan struct{}),
	}, nil
}

// NumApp returns the pool size.
func (m *TaskManager) NumApp() int { return m.numApp }

// Clock returns the clock source used for time accounting.
func (m *TaskManager) Clock() Clock { return m.clock }

// Exclusive grants mutable access to the task table. The caller must
// Release the guard before any call that may switch tasks.
func (m *TaskManager) Exclusive() *Guard[TaskTable] {
	return m.inner.Exclusive()
}

// Admit moves every UnInit task to Ready and returns how many it moved.
func (m *TaskManager) Admit() int {
	n := 0
	m.inner.With(func(t *TaskTable) {
		for i := range t.Tasks {
			if t.Tasks[i].Info.Status == UnInit {
				t.Tasks[i].Info.Status = Ready
				n++
			}
		}
	})
	return n
}

// CurrentTaskID returns the index of the running task. Calling it before the
// first task has been scheduled is fatal.
func (m *TaskManager) CurrentTaskID() TaskID {
	g := m.inner.Exclusive()
	defer g.Release()
	t := g.Get()
	if !t.scheduled {
		Fatal("no current task: nothing has been scheduled yet")
	}
	return t.current
}

// CountSyscall increments the running task's counter for syscall id.
func (m *TaskManager) CountSyscall(id int) {
	m.inner.With(func(t *TaskTable) {
		cur := t.Current()
		if cur == nil {
			Fatal("syscall %d with no current task", id)
		}
		if cur.Info.Status == Exited {
			Fatal("syscall %d from exited task %d", id, t.current)
		}
		if !cur.CountSyscall(id) {
			Fatal("syscall id %d out of range", id)
		}
	})
}

// Snapshot copies the TCB state of task id.
func (m *TaskManager) Snapshot(id TaskID) (TaskSnapshot, bool) {
	var snap TaskSnapshot
	var ok bool
	m.inner.With(func(t *TaskTable) {
		if int(id) >= len(t.Tasks) {
			return
		}
		tcb := &t.Tasks[id]
		snap = TaskSnapshot{ID: id, Info: tcb.Info, ExitCode: tcb.ExitCode}
		ok = true
	})
	return snap, ok
}

// ExitCode returns the exit code of task id. ok is false if id is out of
// range or the task has not exited.
func (m *TaskManager) ExitCode(id TaskID) (code int32, ok bool) {
	m.inner.With(func(t *TaskTable) {
		if int(id) >= len(t.Tasks) || t.Tasks[id].Info.Status != Exited {
			return
		}
		code, ok = t.Tasks[id].ExitCode, true
	})
	return code, ok
}

// Tasks copies the whole table.
func (m *TaskManager) Tasks() []TaskSnapshot {
	var out []TaskSnapshot
	m.inner.With(func(t *TaskTable) {
		out = make([]TaskSnapshot, len(t.Tasks))
		for i := range t.Tasks {
			out[i] = TaskSnapshot{ID: TaskID(i), Info: t.Tasks[i].Info, ExitCode: t.Tasks[i].ExitCode}
		}
	})
	return out
}

// Done is closed once every task has exited.
func (m *TaskManager) Done() <-chan struct{} { return m.done }

// SetSwitchHook registers fn to run after each scheduling decision, outside
// the exclusive guard, on the goroutine of the task giving up the CPU.
func (m *TaskManager) SetSwitchHook(fn func(from, to TaskID)) {
	m.hookMu.Lock()
	m.hook = fn
	m.hookMu.Unlock()
}

func (m *TaskManager) notifySwitch(from, to TaskID) {
	m.hookMu.Lock()
	fn := m.hook
	m.hookMu.Unlock()
	if fn != nil {
		fn(from, to)
	}
}

func (m *TaskManager) finish() {
	m.doneOnce.Do(func() {
		m.log.Infof("All applications completed!")
		close(m.done)
	})
}

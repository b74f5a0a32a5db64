package kernel

// TaskID indexes the task pool.
type TaskID uint8

// TaskStatus is a task's lifecycle state.
type TaskStatus uint8

const (
	UnInit TaskStatus = iota
	Ready
	Running
	Exited
)

func (s TaskStatus) String() string {
	switch s {
	case UnInit:
		return "UnInit"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Exited:
		return "Exited"
	default:
		return "unknown"
	}
}

// TaskInfo is the per-task accounting record. It is a plain value: copying it
// yields a snapshot that later kernel updates do not touch.
type TaskInfo struct {
	Status       TaskStatus
	SyscallTimes [MaxSyscallNum]uint32
	// Time is milliseconds elapsed since the task was first scheduled.
	Time uint64
}

// Entry is a task body. Its return value becomes the exit code when it
// returns without calling exit.
type Entry func() int32

// TaskControlBlock holds one task's state. It is only reachable through the
// TaskManager's exclusive guard.
type TaskControlBlock struct {
	Info     TaskInfo
	ExitCode int32

	entry  Entry
	resume chan struct{}

	spawned   bool
	scheduled bool
	startUs   uint64
}

// Scheduled reports whether the task has ever held the CPU.
func (t *TaskControlBlock) Scheduled() bool { return t.scheduled }

// CountSyscall records one invocation of syscall id.
func (t *TaskControlBlock) CountSyscall(id int) bool {
	if id < 0 || id >= MaxSyscallNum {
		return false
	}
	t.Info.SyscallTimes[id]++
	return true
}

// AccountTime refreshes Info.Time from the clock reading nowUs.
func (t *TaskControlBlock) AccountTime(nowUs uint64) {
	if !t.scheduled || nowUs < t.startUs {
		return
	}
	t.Info.Time = (nowUs - t.startUs) / 1000
}

// TaskSnapshot is a copy of one table row, for reporting.
type TaskSnapshot struct {
	ID       TaskID
	Info     TaskInfo
	ExitCode int32
}

// TotalSyscalls sums all syscall counters.
func (s TaskSnapshot) TotalSyscalls() uint64 {
	var n uint64
	for _, c := range s.Info.SyscallTimes {
		n += uint64(c)
	}
	return n
}

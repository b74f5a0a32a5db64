// Package syscalls is the kernel's syscall surface: exit, yield, get_time,
// task_info and write, on top of the task manager.
package syscalls

import (
	"kos/hal"
	"kos/mpos/kernel"
	"kos/mpos/klog"
)

// ID is a syscall number.
type ID uint16

const (
	SysWrite    ID = 64
	SysExit     ID = 93
	SysYield    ID = 124
	SysGetTime  ID = 169
	SysTaskInfo ID = 410
)

func (id ID) String() string {
	switch id {
	case SysWrite:
		return "write"
	case SysExit:
		return "exit"
	case SysYield:
		return "yield"
	case SysGetTime:
		return "get_time"
	case SysTaskInfo:
		return "task_info"
	default:
		return "unknown"
	}
}

func (id ID) known() bool {
	switch id {
	case SysWrite, SysExit, SysYield, SysGetTime, SysTaskInfo:
		return true
	}
	return false
}

// FdStdout is the only file descriptor write accepts.
const FdStdout = 1

// TimeVal is seconds and microseconds since boot.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

// TimeValFromMicros splits a microsecond count.
func TimeValFromMicros(us uint64) TimeVal {
	return TimeVal{Sec: us / 1_000_000, Usec: us % 1_000_000}
}

// Micros joins tv back into microseconds.
func (tv TimeVal) Micros() uint64 {
	return tv.Sec*1_000_000 + tv.Usec
}

// Millis returns tv in milliseconds.
func (tv TimeVal) Millis() uint64 {
	return tv.Sec*1_000 + tv.Usec/1_000
}

// Layer implements the syscall handlers.
type Layer struct {
	tm     *kernel.TaskManager
	clock  kernel.Clock
	log    *klog.Logger
	stdout hal.Logger
}

// New returns a syscall layer over tm. write(1, ...) lines go to stdout.
func New(tm *kernel.TaskManager, log *klog.Logger, stdout hal.Logger) *Layer {
	return &Layer{tm: tm, clock: tm.Clock(), log: log, stdout: stdout}
}

// Exit terminates the calling task and runs the next one. It does not return.
func (l *Layer) Exit(code int32) {
	l.log.Infof("Application exited with code %d", code)
	l.tm.ExitCurrentAndRunNext(code)
	kernel.Fatal("unreachable in sys_exit")
}

// Yield updates the caller's time accounting and gives up the CPU. It
// returns 0 once the caller is scheduled again.
func (l *Layer) Yield() int {
	l.log.Tracef("kernel: sys_yield")
	id := l.tm.CurrentTaskID()
	now := l.clock.NowMicros()

	g := l.tm.Exclusive()
	g.Get().Tasks[id].AccountTime(now)
	g.Release()

	l.tm.SuspendCurrentAndRunNext()
	return 0
}

// GetTime writes the clock reading into ts. The timezone argument is ignored.
func (l *Layer) GetTime(ts *TimeVal, _ uintptr) int {
	l.log.Tracef("kernel: sys_get_time")
	if ts == nil {
		return -1
	}
	*ts = TimeValFromMicros(l.clock.NowMicros())
	return 0
}

// TaskInfo copies a snapshot of the calling task's accounting into ti.
func (l *Layer) TaskInfo(ti *kernel.TaskInfo) int {
	l.log.Tracef("kernel: sys_task_info")
	if ti == nil {
		return -1
	}
	id := l.tm.CurrentTaskID()
	now := l.clock.NowMicros()

	g := l.tm.Exclusive()
	defer g.Release()
	tcb := &g.Get().Tasks[id]
	tcb.Info.Status = kernel.Running
	tcb.AccountTime(now)
	*ti = tcb.Info
	return 0
}

// Write prints buf to stdout and returns its length.
func (l *Layer) Write(fd uint64, buf []byte) int {
	l.log.Tracef("kernel: sys_write")
	if fd != FdStdout {
		kernel.Fatal("Unsupported fd in sys_write: %d", fd)
	}
	if l.stdout != nil {
		l.stdout.WriteLineBytes(trimNewline(buf))
	}
	return len(buf)
}

func trimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		return b[:n-1]
	}
	return b
}

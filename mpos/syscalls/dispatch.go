package syscalls

import (
	"fmt"

	"kos/mpos/kernel"
	"kos/mpos/proto"
)

// Args are the syscall arguments after address translation.
//
// A0 carries the scalar argument (exit code, fd, timezone) and Buf the
// caller's buffer: the bytes to write, or the output location for
// get_time and task_info. A nil Buf is a null output location.
type Args struct {
	A0  int64
	Buf []byte
}

// Dispatch counts the call against the running task and runs the handler.
//
// A task_info call with a null or too short output location is rejected
// before it is counted, so it leaves no trace in the task's state.
func (l *Layer) Dispatch(id ID, args Args) int {
	if id == SysTaskInfo && len(args.Buf) < proto.TaskInfoSize {
		l.log.Tracef("kernel: sys_task_info")
		return -1
	}
	if !id.known() {
		kernel.Fatal("Unsupported syscall_id: %d", id)
	}
	l.tm.CountSyscall(int(id))

	switch id {
	case SysWrite:
		return l.Write(uint64(args.A0), args.Buf)
	case SysExit:
		l.Exit(int32(args.A0))
		return 0
	case SysYield:
		return l.Yield()
	case SysGetTime:
		return l.getTimeOut(args.Buf, uintptr(args.A0))
	case SysTaskInfo:
		return l.taskInfoOut(args.Buf)
	default:
		kernel.Fatal("Unsupported syscall_id: %d", id)
		return -1
	}
}

func (l *Layer) getTimeOut(out []byte, tz uintptr) int {
	var tv TimeVal
	if r := l.GetTime(&tv, tz); r != 0 {
		return r
	}
	if !proto.PutTimeVal(out, tv.Sec, tv.Usec) {
		return -1
	}
	return 0
}

func (l *Layer) taskInfoOut(out []byte) int {
	var ti kernel.TaskInfo
	if r := l.TaskInfo(&ti); r != 0 {
		return r
	}
	proto.PutTaskInfo(out, &ti)
	return 0
}

// Context is the user-side trap gate handed to each task body. Every call
// goes through Dispatch.
type Context struct {
	l *Layer
}

// Context returns a trap gate into l.
func (l *Layer) Context() *Context {
	return &Context{l: l}
}

// Write writes buf to fd.
func (c *Context) Write(fd uint64, buf []byte) int {
	return c.l.Dispatch(SysWrite, Args{A0: int64(fd), Buf: buf})
}

// Printf formats to stdout.
func (c *Context) Printf(format string, args ...any) int {
	return c.Write(FdStdout, []byte(fmt.Sprintf(format, args...)))
}

// Exit terminates the calling task. It does not return.
func (c *Context) Exit(code int32) {
	c.l.Dispatch(SysExit, Args{A0: int64(code)})
}

// Yield gives up the CPU.
func (c *Context) Yield() int {
	return c.l.Dispatch(SysYield, Args{})
}

// GetTime fills tv with the time since boot.
func (c *Context) GetTime(tv *TimeVal) int {
	if tv == nil {
		return c.l.Dispatch(SysGetTime, Args{})
	}
	buf := make([]byte, proto.TimeValSize)
	if r := c.l.Dispatch(SysGetTime, Args{Buf: buf}); r != 0 {
		return r
	}
	sec, usec, _ := proto.DecodeTimeVal(buf)
	*tv = TimeVal{Sec: sec, Usec: usec}
	return 0
}

// GetTimeMillis returns the time since boot in milliseconds, or -1.
func (c *Context) GetTimeMillis() int64 {
	var tv TimeVal
	if c.GetTime(&tv) != 0 {
		return -1
	}
	return int64(tv.Millis())
}

// TaskInfo fills ti with the calling task's accounting snapshot.
func (c *Context) TaskInfo(ti *kernel.TaskInfo) int {
	if ti == nil {
		return c.l.Dispatch(SysTaskInfo, Args{})
	}
	buf := make([]byte, proto.TaskInfoSize)
	if r := c.l.Dispatch(SysTaskInfo, Args{Buf: buf}); r != 0 {
		return r
	}
	info, ok := proto.DecodeTaskInfo(buf)
	if !ok {
		return -1
	}
	*ti = info
	return 0
}

// Sleep yields until at least ms milliseconds have passed.
func (c *Context) Sleep(ms int64) {
	start := c.GetTimeMillis()
	for c.GetTimeMillis() < start+ms {
		c.Yield()
	}
}

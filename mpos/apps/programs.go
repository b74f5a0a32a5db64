package apps

import (
	"strings"

	"kos/mpos/kernel"
	"kos/mpos/syscalls"
)

const yieldRounds = 5

func hello(c *syscalls.Context) int32 {
	c.Printf("Hello world from user mode program!\n")
	return 0
}

func yieldLoop(tag string) Main {
	line := strings.Repeat(tag, 10)
	return func(c *syscalls.Context) int32 {
		for i := 0; i < yieldRounds; i++ {
			c.Printf("%s [%d/%d]\n", line, i+1, yieldRounds)
			c.Yield()
		}
		c.Printf("Test write_%s OK!\n", strings.ToLower(tag))
		return 0
	}
}

func sleep(c *syscalls.Context) int32 {
	start := c.GetTimeMillis()
	want := start + 100
	for c.GetTimeMillis() < want {
		c.Yield()
	}
	c.Printf("Test sleep OK!\n")
	return 0
}

func taskInfo(c *syscalls.Context) int32 {
	t1 := c.GetTimeMillis()
	var info kernel.TaskInfo
	c.GetTimeMillis()
	c.Sleep(500)
	t2 := c.GetTimeMillis()
	if c.TaskInfo(&info) != 0 {
		c.Printf("FAIL: task_info returned an error\n")
		return -1
	}
	t3 := c.GetTimeMillis()

	checks := []struct {
		ok   bool
		what string
	}{
		{info.SyscallTimes[syscalls.SysGetTime] >= 3, "get_time counted"},
		{info.SyscallTimes[syscalls.SysTaskInfo] == 1, "task_info counted once"},
		{info.SyscallTimes[syscalls.SysWrite] == 0, "no write yet"},
		{info.SyscallTimes[syscalls.SysYield] > 0, "yield counted"},
		{info.SyscallTimes[syscalls.SysExit] == 0, "no exit yet"},
		{uint64(t2-t1) <= info.Time+1, "time covers the sleep"},
		{int64(info.Time) < t3-t1+100, "time bounded by wall clock"},
		{info.Status == kernel.Running, "status is Running"},
	}
	for _, chk := range checks {
		if !chk.ok {
			c.Printf("FAIL: %s\n", chk.what)
			return -1
		}
	}
	c.Printf("Test task info OK!\n")
	return 0
}

const (
	powerMod   = 998244353
	powerSteps = 20000
	powerEvery = 5000
)

func power(c *syscalls.Context) int32 {
	p := uint64(3)
	v := uint64(1)
	for i := 1; i <= powerSteps; i++ {
		v = v * p % powerMod
		if i%powerEvery == 0 {
			c.Printf("power_3 [%d/%d] = %d\n", i, powerSteps, v)
			c.Yield()
		}
	}
	c.Printf("Test power_3 OK!\n")
	return 0
}

func badExit(c *syscalls.Context) int32 {
	c.Printf("exiting with a negative code\n")
	c.Exit(-3)
	c.Printf("FAIL: exit returned\n")
	return 0
}

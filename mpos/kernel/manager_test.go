package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func runManager(t *testing.T, m *TaskManager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}

func TestNewStartsUnInit(t *testing.T) {
	m, err := New(&ManualClock{}, nil, func() int32 { return 0 }, func() int32 { return 0 })
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	if m.NumApp() != 2 {
		t.Fatalf("NumApp() = %d, want 2", m.NumApp())
	}
	for _, s := range m.Tasks() {
		if s.Info.Status != UnInit {
			t.Fatalf("task %d status = %s, want UnInit", s.ID, s.Info.Status)
		}
	}
}

func TestNewTooManyTasks(t *testing.T) {
	entries := make([]Entry, MaxAppNum+1)
	if _, err := New(&ManualClock{}, nil, entries...); !errors.Is(err, ErrTooManyTasks) {
		t.Fatalf("New() err = %v, want ErrTooManyTasks", err)
	}
}

func TestRunEmptyPool(t *testing.T) {
	m, _ := New(&ManualClock{}, nil)
	if err := m.Run(context.Background()); !errors.Is(err, ErrNoTasks) {
		t.Fatalf("Run() = %v, want ErrNoTasks", err)
	}
}

func TestCurrentTaskIDBeforeScheduleIsFatal(t *testing.T) {
	m, _ := New(&ManualClock{}, nil, func() int32 { return 0 })
	expectFatal(t, func() { m.CurrentTaskID() })
}

func TestRoundRobinOrder(t *testing.T) {
	var m *TaskManager
	var trace []string
	worker := func(name string) Entry {
		return func() int32 {
			for i := 0; i < 3; i++ {
				trace = append(trace, fmt.Sprintf("%s%d", name, i))
				m.SuspendCurrentAndRunNext()
			}
			return 0
		}
	}
	m, _ = New(&ManualClock{}, nil, worker("a"), worker("b"), worker("c"))
	runManager(t, m)

	want := []string{"a0", "b0", "c0", "a1", "b1", "c1", "a2", "b2", "c2"}
	if fmt.Sprint(trace) != fmt.Sprint(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	if err := m.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Fatalf("second Run() = %v, want ErrRunning", err)
	}
}

func TestStatusesWhileRunning(t *testing.T) {
	var m *TaskManager
	var seen []TaskStatus
	first := func() int32 {
		self, _ := m.Snapshot(0)
		other, _ := m.Snapshot(1)
		seen = append(seen, self.Info.Status, other.Info.Status)
		m.SuspendCurrentAndRunNext()
		self, _ = m.Snapshot(0)
		seen = append(seen, self.Info.Status)
		return 0
	}
	second := func() int32 {
		prev, _ := m.Snapshot(0)
		seen = append(seen, prev.Info.Status)
		return 0
	}
	m, _ = New(&ManualClock{}, nil, first, second)
	runManager(t, m)

	want := []TaskStatus{Running, Ready, Ready, Running}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("statuses = %v, want %v", seen, want)
	}
	for _, s := range m.Tasks() {
		if s.Info.Status != Exited {
			t.Fatalf("task %d status = %s, want Exited", s.ID, s.Info.Status)
		}
	}
}

func TestSingleTaskYieldReturnsToSelf(t *testing.T) {
	var m *TaskManager
	yields := 0
	m, _ = New(&ManualClock{}, nil, func() int32 {
		for i := 0; i < 3; i++ {
			m.SuspendCurrentAndRunNext()
			yields++
			if id := m.CurrentTaskID(); id != 0 {
				t.Errorf("CurrentTaskID() = %d, want 0", id)
			}
		}
		return 0
	})
	runManager(t, m)
	if yields != 3 {
		t.Fatalf("yields = %d, want 3", yields)
	}
}

func TestExitCodes(t *testing.T) {
	var m *TaskManager
	reachedAfterExit := false
	m, _ = New(&ManualClock{}, nil,
		func() int32 { return 7 },
		func() int32 { panic("user fault") },
		func() int32 {
			m.ExitCurrentAndRunNext(-3)
			reachedAfterExit = true
			return 0
		},
	)
	runManager(t, m)

	if reachedAfterExit {
		t.Fatal("code after ExitCurrentAndRunNext ran")
	}
	want := []int32{7, -1, -3}
	for i, code := range want {
		s, ok := m.Snapshot(TaskID(i))
		if !ok {
			t.Fatalf("Snapshot(%d) missing", i)
		}
		if s.ExitCode != code {
			t.Fatalf("task %d exit code = %d, want %d", i, s.ExitCode, code)
		}
	}
	if _, ok := m.Snapshot(9); ok {
		t.Fatal("Snapshot(9) ok = true, want false")
	}
}

func TestTimeAccountedFromFirstSchedule(t *testing.T) {
	clock := &ManualClock{}
	clock.Set(1_000_000)

	var m *TaskManager
	m, _ = New(clock, nil,
		func() int32 {
			clock.Advance(2_000)
			m.SuspendCurrentAndRunNext()
			clock.Advance(3_000)
			return 0
		},
		func() int32 {
			clock.Advance(10_000)
			return 0
		},
	)
	runManager(t, m)

	a, _ := m.Snapshot(0)
	if a.Info.Time != 15 {
		t.Fatalf("task 0 time = %d ms, want 15", a.Info.Time)
	}
	b, _ := m.Snapshot(1)
	if b.Info.Time != 10 {
		t.Fatalf("task 1 time = %d ms, want 10", b.Info.Time)
	}
}

func TestSwitchHook(t *testing.T) {
	var m *TaskManager
	var switches [][2]TaskID
	m, _ = New(&ManualClock{}, nil,
		func() int32 { m.SuspendCurrentAndRunNext(); return 0 },
		func() int32 { return 0 },
	)
	m.SetSwitchHook(func(from, to TaskID) {
		// The guard must already be released here.
		_ = m.Tasks()
		switches = append(switches, [2]TaskID{from, to})
	})
	runManager(t, m)

	want := [][2]TaskID{{0, 0}, {0, 1}, {1, 0}, {0, 0}}
	if fmt.Sprint(switches) != fmt.Sprint(want) {
		t.Fatalf("switches = %v, want %v", switches, want)
	}
}

func TestRunCanceled(t *testing.T) {
	release := make(chan struct{})
	m, _ := New(&ManualClock{}, nil, func() int32 {
		<-release
		return 0
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish after release")
	}
}

func TestCountSyscall(t *testing.T) {
	var m *TaskManager
	m, _ = New(&ManualClock{}, nil, func() int32 {
		m.CountSyscall(124)
		m.CountSyscall(124)
		m.CountSyscall(64)
		return 0
	})
	runManager(t, m)

	s, _ := m.Snapshot(0)
	if s.Info.SyscallTimes[124] != 2 || s.Info.SyscallTimes[64] != 1 {
		t.Fatalf("syscall times yield=%d write=%d, want 2 and 1", s.Info.SyscallTimes[124], s.Info.SyscallTimes[64])
	}
	if s.TotalSyscalls() != 3 {
		t.Fatalf("TotalSyscalls() = %d, want 3", s.TotalSyscalls())
	}
}

func TestAdmit(t *testing.T) {
	m, _ := New(&ManualClock{}, nil, func() int32 { return 0 }, func() int32 { return 0 })
	if n := m.Admit(); n != 2 {
		t.Fatalf("Admit() = %d, want 2", n)
	}
	for _, s := range m.Tasks() {
		if s.Info.Status != Ready {
			t.Fatalf("task %d status = %s, want Ready", s.ID, s.Info.Status)
		}
	}
	if n := m.Admit(); n != 0 {
		t.Fatalf("second Admit() = %d, want 0", n)
	}
}

func TestExitCode(t *testing.T) {
	m, _ := New(&ManualClock{}, nil,
		func() int32 { return 4 },
		func() int32 { return -2 },
	)
	if _, ok := m.ExitCode(0); ok {
		t.Fatal("ExitCode(0) before Run ok = true, want false")
	}
	runManager(t, m)

	for id, want := range []int32{4, -2} {
		code, ok := m.ExitCode(TaskID(id))
		if !ok || code != want {
			t.Fatalf("ExitCode(%d) = %d, %v, want %d, true", id, code, ok, want)
		}
	}
	if _, ok := m.ExitCode(5); ok {
		t.Fatal("ExitCode(5) ok = true, want false")
	}
}

func TestExitDefersRunBeforeNextTask(t *testing.T) {
	var m *TaskManager
	var nextStarted atomic.Bool
	var overlapped atomic.Bool
	var deferCurrent TaskID = 99
	var deferStatus TaskStatus

	m, _ = New(&ManualClock{}, nil,
		func() int32 {
			defer func() {
				time.Sleep(20 * time.Millisecond)
				if nextStarted.Load() {
					overlapped.Store(true)
				}
				deferCurrent = m.CurrentTaskID()
				s, _ := m.Snapshot(0)
				deferStatus = s.Info.Status
			}()
			m.ExitCurrentAndRunNext(0)
			return 0
		},
		func() int32 {
			nextStarted.Store(true)
			return 0
		},
	)
	runManager(t, m)

	if overlapped.Load() {
		t.Fatal("task 1 ran while task 0 was still running its deferred calls")
	}
	if deferCurrent != 0 {
		t.Fatalf("current task during deferred call = %d, want 0", deferCurrent)
	}
	if deferStatus != Exited {
		t.Fatalf("status during deferred call = %s, want Exited", deferStatus)
	}
	if !nextStarted.Load() {
		t.Fatal("task 1 never ran")
	}
	s, _ := m.Snapshot(1)
	if s.TotalSyscalls() != 0 {
		t.Fatalf("task 1 syscalls = %d, want 0", s.TotalSyscalls())
	}
}

func TestCountSyscallAfterExitIsFatal(t *testing.T) {
	m, _ := New(&ManualClock{}, nil, func() int32 { return 0 })
	g := m.Exclusive()
	tbl := g.Get()
	tbl.scheduled = true
	tbl.current = 0
	tbl.Tasks[0].Info.Status = Exited
	g.Release()

	expectFatal(t, func() { m.CountSyscall(64) })
	s, _ := m.Snapshot(0)
	if s.Info.SyscallTimes[64] != 0 {
		t.Fatalf("write count = %d, want 0", s.Info.SyscallTimes[64])
	}
}

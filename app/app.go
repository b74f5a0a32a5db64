package app

import (
	"context"
	"strings"
	"sync"

	"kos/hal"
	"kos/internal/buildinfo"
	"kos/mpos/apps"
	"kos/mpos/kernel"
	"kos/mpos/klog"
	"kos/mpos/services/console"
	"kos/mpos/syscalls"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/xerrors"
)

type system struct {
	h       hal.HAL
	cfg     Config
	log     *klog.Logger
	tm      *kernel.TaskManager
	sys     *syscalls.Layer
	console *console.Service

	startOnce sync.Once
	done      chan struct{}
	err       error
}

// NewWithConfig boots the kernel on h and returns the host step function.
//
// The first step starts the task pool; each step presents console output.
// Once every task has exited the step returns hal.ErrHalted.
func NewWithConfig(h hal.HAL, cfg Config) (func() error, error) {
	s, err := newSystem(h, cfg)
	if err != nil {
		return nil, err
	}
	return s.step, nil
}

// Run boots the kernel on h and blocks until all tasks have exited.
func Run(ctx context.Context, h hal.HAL, cfg Config) error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return err
	}
	s.start(ctx)
	<-s.done
	return s.err
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := klog.Parse(cfg.LogLevel)
	log := klog.New(h.Logger(), level)
	installPanicHandler(h, log)

	s := &system{h: h, cfg: cfg, log: log, done: make(chan struct{})}

	entries := make([]kernel.Entry, len(cfg.Apps))
	for i, name := range cfg.Apps {
		m, _ := apps.Lookup(name)
		entries[i] = func() int32 { return m(s.sys.Context()) }
	}
	tm, err := kernel.New(h.Time(), log, entries...)
	if err != nil {
		return nil, xerrors.Errorf("build task pool: %w", err)
	}
	s.tm = tm
	s.sys = syscalls.New(tm, log, s.stdout())

	if cfg.Console {
		c := console.New(h.Display())
		if c.Start() {
			s.console = c
			log.Tee(c.WriteLine)
			tm.SetSwitchHook(func(from, to kernel.TaskID) {
				c.ShowTasks(tm.Tasks())
			})
		} else {
			log.Warnf("console requested but no framebuffer is available")
		}
	}
	return s, nil
}

// stdout routes user writes to the host logger and the console.
func (s *system) stdout() hal.Logger {
	return stdoutSink{s: s}
}

type stdoutSink struct{ s *system }

func (w stdoutSink) WriteLineString(line string) {
	if l := w.s.h.Logger(); l != nil {
		l.WriteLineString(line)
	}
	if w.s.console != nil {
		w.s.console.WriteLine(line)
	}
}

func (w stdoutSink) WriteLineBytes(b []byte) { w.WriteLineString(string(b)) }

func (s *system) start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.log.Infof("mpos %s: %d apps: %s", buildinfo.String(), len(s.cfg.Apps), strings.Join(s.cfg.Apps, " "))
		go func() {
			defer close(s.done)
			s.err = s.tm.Run(ctx)
			if s.err == nil && s.cfg.Dump {
				s.dump()
			}
		}()
	})
}

func (s *system) step() error {
	s.start(context.Background())
	if s.console != nil {
		s.console.Flush()
	}
	select {
	case <-s.done:
		if s.err != nil {
			return s.err
		}
		return hal.ErrHalted
	default:
		return nil
	}
}

func (s *system) dump() {
	l := s.h.Logger()
	if l == nil {
		return
	}
	cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true, DisableCapacities: true}
	for _, t := range s.tm.Tasks() {
		summary := taskSummary{
			ID:       t.ID,
			App:      s.cfg.Apps[t.ID],
			Status:   t.Info.Status.String(),
			ExitCode: t.ExitCode,
			TimeMs:   t.Info.Time,
			Syscalls: nonZeroSyscalls(t.Info),
		}
		for _, line := range strings.Split(strings.TrimRight(cfg.Sdump(summary), "\n"), "\n") {
			l.WriteLineString(line)
		}
	}
}

type taskSummary struct {
	ID       kernel.TaskID
	App      string
	Status   string
	ExitCode int32
	TimeMs   uint64
	Syscalls map[syscalls.ID]uint32
}

func nonZeroSyscalls(info kernel.TaskInfo) map[syscalls.ID]uint32 {
	out := make(map[syscalls.ID]uint32)
	for id, n := range info.SyscallTimes {
		if n != 0 {
			out[syscalls.ID(id)] = n
		}
	}
	return out
}

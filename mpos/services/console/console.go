// Package console mirrors kernel output and a task table onto the
// framebuffer through a tinyterm terminal.
package console

import (
	"fmt"
	"strings"
	"sync"

	"kos/hal"
	"kos/mpos/kernel"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Service owns the terminal. Writers run on task goroutines while Flush runs
// on the host loop, so every terminal access holds mu.
type Service struct {
	disp hal.Display

	mu    sync.Mutex
	fb    hal.Framebuffer
	d     *fbDisplay
	t     *tinyterm.Terminal
	dirty bool
}

func New(disp hal.Display) *Service {
	return &Service{disp: disp}
}

// Start sets up the terminal. It reports false if there is no framebuffer.
func (s *Service) Start() bool {
	if s.disp == nil {
		return false
	}
	fb := s.disp.Framebuffer()
	if fb == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fb = fb
	s.d = newFBDisplay(fb)
	s.reset()
	return true
}

func (s *Service) reset() {
	s.fb.ClearRGB(0, 0, 0)
	s.t = tinyterm.NewTerminal(s.d)
	s.t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	s.dirty = true
}

// WriteLine appends one line of text.
func (s *Service) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t == nil {
		return
	}
	fmt.Fprintf(s.t, "%s\r\n", strings.TrimRight(line, "\r\n"))
	s.dirty = true
}

// ShowTasks appends a compact task table row set.
func (s *Service) ShowTasks(tasks []kernel.TaskSnapshot) {
	if len(tasks) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("tasks:")
	for _, t := range tasks {
		fmt.Fprintf(&b, " %d:%s/%d/%dms", t.ID, statusTag(t.Info.Status), t.TotalSyscalls(), t.Info.Time)
	}
	s.WriteLine(b.String())
}

// Flush presents pending output. It is called once per host frame.
func (s *Service) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t == nil || !s.dirty {
		return
	}
	s.t.Display()
	s.dirty = false
}

func statusTag(st kernel.TaskStatus) string {
	switch st {
	case kernel.UnInit:
		return "U"
	case kernel.Ready:
		return "R"
	case kernel.Running:
		return "*"
	case kernel.Exited:
		return "X"
	default:
		return "?"
	}
}

package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kos/hal"
	"kos/mpos/kernel"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", Config{Apps: []string{"hello"}}, true},
		{"empty", Config{}, false},
		{"unknown app", Config{Apps: []string{"hello", "nope"}}, false},
		{"bad level", Config{Apps: []string{"hello"}, LogLevel: "loud"}, false},
		{"too many", Config{Apps: make([]string, kernel.MaxAppNum+1)}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: Validate() = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}

	err := Config{Apps: make([]string, kernel.MaxAppNum+1)}.Validate()
	if !errors.Is(err, kernel.ErrTooManyTasks) {
		t.Fatalf("Validate() = %v, want ErrTooManyTasks in chain", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"apps":["hello","power"],"log_level":"trace","dump":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Console = true
	if err := LoadConfig(good, &cfg); err != nil {
		t.Fatalf("LoadConfig() err = %v", err)
	}
	if strings.Join(cfg.Apps, ",") != "hello,power" || cfg.LogLevel != "trace" || !cfg.Dump || !cfg.Console {
		t.Fatalf("LoadConfig() = %+v", cfg)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"apps":["hello"],"priority":3}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadConfig(bad, &cfg); err == nil {
		t.Fatal("LoadConfig() accepted an unknown field")
	}

	if err := LoadConfig(filepath.Join(dir, "missing.json"), &cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadConfig(missing) = %v, want ErrNotExist in chain", err)
	}
}

func TestParseAppList(t *testing.T) {
	got := ParseAppList(" hello, ,yield_a,")
	if strings.Join(got, "|") != "hello|yield_a" {
		t.Fatalf("ParseAppList() = %q", got)
	}
}

func TestRunToCompletion(t *testing.T) {
	out := &syncBuffer{}
	h := hal.NewWithOutput(out)
	cfg := Config{Apps: []string{"hello", "yield_a", "bad_exit"}, LogLevel: "info", Dump: true}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Run(ctx, h, cfg); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Hello world from user mode program!",
		"Test write_a OK!",
		"Application exited with code -3",
		"All applications completed!",
		"bad_exit",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestStepHaltsWithConsole(t *testing.T) {
	h := hal.NewWithOutput(&syncBuffer{})
	step, err := NewWithConfig(h, Config{Apps: []string{"hello", "yield_b"}, LogLevel: "off", Console: true})
	if err != nil {
		t.Fatalf("NewWithConfig() err = %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		err := step()
		if errors.Is(err, hal.ErrHalted) {
			break
		}
		if err != nil {
			t.Fatalf("step() = %v", err)
		}
		select {
		case <-deadline:
			t.Fatal("system did not halt")
		case <-time.After(time.Millisecond):
		}
	}

	fb := h.Display().Framebuffer()
	lit := false
	for _, b := range fb.Buffer() {
		if b != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatal("console drew nothing")
	}
}

package app

import (
	"encoding/json"
	"os"
	"strings"

	"kos/mpos/apps"
	"kos/mpos/kernel"
	"kos/mpos/klog"

	"golang.org/x/xerrors"
)

// Config selects what the kernel boots.
type Config struct {
	// Apps are built-in program names, loaded in order as tasks 0..n-1.
	Apps []string `json:"apps"`
	// LogLevel is one of off, error, warn, info, debug, trace.
	LogLevel string `json:"log_level"`
	// Console mirrors output and the task table onto the framebuffer.
	Console bool `json:"console"`
	// Dump prints the final task table when all tasks have exited.
	Dump bool `json:"dump"`
}

// DefaultConfig boots the default app set at the LOG environment level.
func DefaultConfig() Config {
	return Config{
		Apps:     append([]string(nil), apps.DefaultSet...),
		LogLevel: os.Getenv("LOG"),
	}
}

// LoadConfig overlays the JSON file at path onto cfg.
func LoadConfig(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return xerrors.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// ParseAppList splits a comma separated list of app names.
func ParseAppList(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks app names, pool size and log level.
func (c Config) Validate() error {
	if len(c.Apps) == 0 {
		return xerrors.New("no apps configured")
	}
	if len(c.Apps) > kernel.MaxAppNum {
		return xerrors.Errorf("%d apps configured: %w", len(c.Apps), kernel.ErrTooManyTasks)
	}
	for _, name := range c.Apps {
		if _, ok := apps.Lookup(name); !ok {
			return xerrors.Errorf("unknown app %q (have %s)", name, strings.Join(apps.Names(), ", "))
		}
	}
	if _, ok := klog.Parse(c.LogLevel); !ok {
		return xerrors.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

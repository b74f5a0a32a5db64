// Package apps holds the built-in user programs loaded into the task pool.
package apps

import (
	"sort"

	"kos/mpos/syscalls"
)

// Main is a user program body. Its return value is the exit code.
type Main func(c *syscalls.Context) int32

var registry = map[string]Main{
	"hello":    hello,
	"yield_a":  yieldLoop("A"),
	"yield_b":  yieldLoop("B"),
	"yield_c":  yieldLoop("C"),
	"sleep":    sleep,
	"taskinfo": taskInfo,
	"power":    power,
	"bad_exit": badExit,
}

// DefaultSet is the pool loaded when no app list is configured.
var DefaultSet = []string{"hello", "yield_a", "yield_b", "yield_c", "sleep", "taskinfo", "power"}

// Lookup returns the program registered under name.
func Lookup(name string) (Main, bool) {
	m, ok := registry[name]
	return m, ok
}

// Names lists every registered program.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

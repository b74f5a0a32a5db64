//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"kos/app"
	"kos/hal"
	"kos/mpos/apps"
)

func main() {
	cfg := app.DefaultConfig()

	var hcfg hal.HeadlessConfig
	var configPath, appList, logLevel string
	var console, dump, listApps bool
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Step rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N steps in headless mode (0 = run until all tasks exit).")
	flag.StringVar(&configPath, "config", "", "JSON config file.")
	flag.StringVar(&appList, "apps", "", "Comma separated apps to load (default: "+strings.Join(apps.DefaultSet, ",")+").")
	flag.StringVar(&logLevel, "log", "", "Log level: off, error, warn, info, debug, trace (default $LOG or info).")
	flag.BoolVar(&console, "console", false, "Mirror output and the task table onto the framebuffer.")
	flag.BoolVar(&dump, "dump", false, "Dump the task table after all tasks exit.")
	flag.BoolVar(&listApps, "list", false, "List built-in apps and exit.")
	flag.Parse()

	if listApps {
		for _, name := range apps.Names() {
			fmt.Println(name)
		}
		return
	}

	if configPath != "" {
		if err := app.LoadConfig(configPath, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "apps":
			cfg.Apps = app.ParseAppList(appList)
		case "log":
			cfg.LogLevel = logLevel
		case "console":
			cfg.Console = console
		case "dump":
			cfg.Dump = dump
		}
	})

	newApp := func(h hal.HAL) (func() error, error) {
		return app.NewWithConfig(h, cfg)
	}

	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, hal.New(), newApp, hcfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg.Console = true
	if err := hal.RunWindow(hal.New(), newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package app

import (
	"fmt"
	"strings"

	"kos/hal"
	"kos/mpos/kernel"
	"kos/mpos/klog"
)

func installPanicHandler(h hal.HAL, log *klog.Logger) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		l := h.Logger()
		if l == nil {
			return
		}
		l.WriteLineString(fmt.Sprintf("[kernel] Panicked: task=%d %v", info.TaskID, info.Value))
		if !log.Enabled(klog.Debug) || len(info.Stack) == 0 {
			return
		}
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			l.WriteLineString(line)
		}
	})
}

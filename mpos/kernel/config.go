package kernel

const (
	// MaxAppNum bounds the task pool built at boot.
	MaxAppNum = 16

	// MaxSyscallNum bounds syscall identifiers counted per task.
	MaxSyscallNum = 500
)

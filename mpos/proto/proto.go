// Package proto defines the byte layouts that syscalls copy out to a
// caller's output location.
package proto

import (
	"encoding/binary"

	"kos/mpos/kernel"
)

// TimeValSize is the encoded size of a TimeVal.
//
// Layout (little-endian):
//   - u64: sec
//   - u64: usec
const TimeValSize = 16

// TaskInfoSize is the encoded size of a TaskInfo.
//
// Layout (little-endian, C alignment):
//   - u32: status
//   - u32[MaxSyscallNum]: syscall_times
//   - u32: padding
//   - u64: time (ms)
const TaskInfoSize = 4 + 4*kernel.MaxSyscallNum + 4 + 8

const (
	taskInfoTimesOff = 4
	taskInfoTimeOff  = taskInfoTimesOff + 4*kernel.MaxSyscallNum + 4
)

// PutTimeVal writes sec/usec into dst. It reports false if dst is too short.
func PutTimeVal(dst []byte, sec, usec uint64) bool {
	if len(dst) < TimeValSize {
		return false
	}
	binary.LittleEndian.PutUint64(dst[0:8], sec)
	binary.LittleEndian.PutUint64(dst[8:16], usec)
	return true
}

// DecodeTimeVal decodes a PutTimeVal payload.
func DecodeTimeVal(payload []byte) (sec, usec uint64, ok bool) {
	if len(payload) < TimeValSize {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint64(payload[0:8]), binary.LittleEndian.Uint64(payload[8:16]), true
}

// PutTaskInfo writes info into dst. It reports false if dst is too short.
func PutTaskInfo(dst []byte, info *kernel.TaskInfo) bool {
	if len(dst) < TaskInfoSize || info == nil {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:4], uint32(info.Status))
	for i, n := range info.SyscallTimes {
		off := taskInfoTimesOff + 4*i
		binary.LittleEndian.PutUint32(dst[off:off+4], n)
	}
	binary.LittleEndian.PutUint32(dst[taskInfoTimeOff-4:taskInfoTimeOff], 0)
	binary.LittleEndian.PutUint64(dst[taskInfoTimeOff:taskInfoTimeOff+8], info.Time)
	return true
}

// DecodeTaskInfo decodes a PutTaskInfo payload.
func DecodeTaskInfo(payload []byte) (info kernel.TaskInfo, ok bool) {
	if len(payload) < TaskInfoSize {
		return kernel.TaskInfo{}, false
	}
	status := binary.LittleEndian.Uint32(payload[0:4])
	if status > uint32(kernel.Exited) {
		return kernel.TaskInfo{}, false
	}
	info.Status = kernel.TaskStatus(status)
	for i := range info.SyscallTimes {
		off := taskInfoTimesOff + 4*i
		info.SyscallTimes[i] = binary.LittleEndian.Uint32(payload[off : off+4])
	}
	info.Time = binary.LittleEndian.Uint64(payload[taskInfoTimeOff : taskInfoTimeOff+8])
	return info, true
}

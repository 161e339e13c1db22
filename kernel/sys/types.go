package sys

import "encoding/binary"

// MaxSyscallNum is the size of the per-task syscall invocation counter
// table exposed through TaskInfo.
const MaxSyscallNum = 500

// TaskStatus describes the scheduler state of a task.
type TaskStatus uint8

// Task states reported through TaskInfo.
const (
	TaskStatusUnInit TaskStatus = iota
	TaskStatusReady
	TaskStatusRunning
	TaskStatusExited
)

// TimeVal is the user-visible timestamp written by the get-time syscall.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

const timeValSize = 16

// encode returns the fixed little-endian layout user programs read.
func (tv TimeVal) encode() []byte {
	buf := make([]byte, timeValSize)
	binary.LittleEndian.PutUint64(buf[0:], tv.Sec)
	binary.LittleEndian.PutUint64(buf[8:], tv.Usec)
	return buf
}

// TaskInfo is the user-visible snapshot of the running task written by the
// task-info syscall. The scheduler owns the bookkeeping behind it; this
// package only copies the snapshot out.
type TaskInfo struct {
	Status       TaskStatus
	SyscallTimes [MaxSyscallNum]uint32
	Time         uint64
}

const taskInfoSize = 8 + 4*MaxSyscallNum + 8

// encode returns the fixed little-endian layout user programs read: the
// status padded to a full word, the per-syscall counters, then the elapsed
// time.
func (ti TaskInfo) encode() []byte {
	buf := make([]byte, taskInfoSize)
	binary.LittleEndian.PutUint64(buf[0:], uint64(ti.Status))
	for i, count := range ti.SyscallTimes {
		binary.LittleEndian.PutUint32(buf[8+i*4:], count)
	}
	binary.LittleEndian.PutUint64(buf[8+4*MaxSyscallNum:], ti.Time)
	return buf
}

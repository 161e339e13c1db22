// Package sys implements the memory-facing syscall handlers. Argument
// decoding from trap registers happens one layer up; the handlers here
// consume decoded values and drive the virtual memory manager. The
// scheduler and clock are consumed as injected capabilities so the package
// can be exercised without a running task subsystem.
package sys

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
	"rvos/kernel/mm/vmm"
)

var (
	// panicFn is mocked by tests that need to exercise kernel-bug paths
	// without halting the test process.
	panicFn = kfmt.Panic

	errExitReturned = &kernel.Error{Module: "sys", Message: "scheduler returned control to an exited task"}
)

// portReadable, portWritable and portExecutable are the permission bits of
// the mmap port argument. All other bits are invalid.
const (
	portReadable   = 0x1
	portWritable   = 0x2
	portExecutable = 0x4
	portMask       = portReadable | portWritable | portExecutable
)

// TaskService is the view of the scheduler/process subsystem consumed by
// the syscall handlers.
type TaskService interface {
	// CurrentUserToken returns the page-table token of the running task.
	CurrentUserToken() uint64

	// CurrentSpace returns the address space of the running task.
	CurrentSpace() *vmm.AddressSpace

	// CurrentTaskInfo returns a snapshot of the running task's status,
	// per-syscall invocation counts and elapsed time.
	CurrentTaskInfo() TaskInfo

	// Suspend gives the CPU up to the next ready task.
	Suspend()

	// Exit terminates the running task and schedules the next one. It
	// never returns control to the caller.
	Exit(code int)
}

// Clock provides the wall time consumed by the get-time syscall.
type Clock interface {
	// TimeMicros returns the number of microseconds since boot.
	TimeMicros() uint64
}

// Handler implements the syscall entry points over injected collaborators.
type Handler struct {
	mem   *pmm.Memory
	tasks TaskService
	clock Clock
}

// NewHandler returns a Handler operating on the supplied physical memory,
// task service and clock.
func NewHandler(mem *pmm.Memory, tasks TaskService, clock Clock) *Handler {
	return &Handler{
		mem:   mem,
		tasks: tasks,
		clock: clock,
	}
}

// GetTime writes the current timestamp into user memory at ts, split into
// seconds and microseconds. The second argument is the unused timezone
// pointer mandated by the syscall ABI.
func (h *Handler) GetTime(ts mm.VirtAddr, _ uintptr) int {
	us := h.clock.TimeMicros()
	tv := TimeVal{
		Sec:  us / 1_000_000,
		Usec: us % 1_000_000,
	}

	vmm.CopyOut(h.mem, h.tasks.CurrentUserToken(), ts, tv.encode())
	return 0
}

// TaskInfo writes a snapshot of the running task into user memory at ti.
func (h *Handler) TaskInfo(ti mm.VirtAddr) int {
	info := h.tasks.CurrentTaskInfo()
	vmm.CopyOut(h.mem, h.tasks.CurrentUserToken(), ti, info.encode())
	return 0
}

// Mmap maps [start, start+length) in the running task's address space with
// the permissions requested by port, backing every page with a freshly
// allocated frame. It returns 0 on success and -1 when the arguments are
// invalid or the range cannot be mapped; a failed call leaves the address
// space unchanged.
func (h *Handler) Mmap(start, length, port uintptr) int {
	startAddr := mm.VirtAddr(start)
	if !startAddr.Aligned() || port&^uintptr(portMask) != 0 || port&portMask == 0 {
		return -1
	}

	if length == 0 {
		return 0
	}

	if err := h.tasks.CurrentSpace().MapRegion(startAddr, length, portFlags(port)); err != nil {
		return -1
	}

	return 0
}

// Munmap removes the mappings covering [start, start+length) from the
// running task's address space and releases the frames backing them. It
// returns 0 on success and -1 when the arguments are invalid or part of the
// range is not mapped; a failed call leaves the address space unchanged.
func (h *Handler) Munmap(start, length uintptr) int {
	startAddr := mm.VirtAddr(start)
	if !startAddr.Aligned() {
		return -1
	}

	if length == 0 {
		return 0
	}

	if err := h.tasks.CurrentSpace().UnmapRegion(startAddr, length); err != nil {
		return -1
	}

	return 0
}

// Yield gives the CPU up to the next ready task.
func (h *Handler) Yield() int {
	h.tasks.Suspend()
	return 0
}

// Exit terminates the running task. It does not return.
func (h *Handler) Exit(code int) {
	kfmt.Printf("[kernel] Application exited with code %d\n", code)
	h.tasks.Exit(code)

	// The scheduler must never resume an exited task
	panicFn(errExitReturned)
}

// portFlags converts the mmap port bits into leaf entry flags. Pages mapped
// through mmap always belong to the user address space.
func portFlags(port uintptr) vmm.PageTableEntryFlag {
	flags := vmm.FlagUser
	if port&portReadable != 0 {
		flags |= vmm.FlagRead
	}
	if port&portWritable != 0 {
		flags |= vmm.FlagWrite
	}
	if port&portExecutable != 0 {
		flags |= vmm.FlagExec
	}

	return flags
}

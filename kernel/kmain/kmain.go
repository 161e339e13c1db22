// Package kmain contains the bring-up glue that wires the physical memory
// arena, the frame allocator and the syscall handler together.
package kmain

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
	"rvos/kernel/mm/vmm"
	"rvos/kernel/sys"
)

// Kernel aggregates the subsystems created by Bootstrap.
type Kernel struct {
	Mem      *pmm.Memory
	Alloc    *pmm.BitmapAllocator
	Syscalls *sys.Handler
}

// Bootstrap provisions a physical memory arena with the given number of
// frames, brings up the frame allocator over it and wires the syscall
// handler to the supplied task service and clock.
func Bootstrap(frameCount int, tasks sys.TaskService, clock sys.Clock) *Kernel {
	kfmt.Printf("[kmain] provisioning physical memory: %d frames (%d KB)\n",
		frameCount, uintptr(frameCount)*mm.PageSize/1024)

	mem := pmm.NewMemory(frameCount)
	alloc := pmm.NewBitmapAllocator(mem)

	kfmt.Printf("[kmain] frame allocator ready: %d free frames\n", alloc.FreeFrameCount())

	return &Kernel{
		Mem:      mem,
		Alloc:    alloc,
		Syscalls: sys.NewHandler(mem, tasks, clock),
	}
}

// NewAddressSpace creates an empty address space that draws its frames from
// the kernel allocator. The task subsystem calls this once per created
// task.
func (k *Kernel) NewAddressSpace() (*vmm.AddressSpace, *kernel.Error) {
	return vmm.NewAddressSpace(k.Mem, k.Alloc.AllocFrame)
}

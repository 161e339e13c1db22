// Package pmm contains code that manages physical memory frames. Physical
// memory is modeled as a flat arena of page frames addressed by frame
// number; the arena stands in for the machine's RAM so that page tables and
// frame contents can be inspected directly.
package pmm

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
)

var (
	// panicFn is mocked by tests that need to trigger kernel bugs
	// without halting the test process.
	panicFn = kfmt.Panic

	errFrameNotManaged = &kernel.Error{Module: "pmm", Message: "frame is not backed by this memory arena"}
)

// Memory models the machine's physical memory. Each frame in the arena
// occupies mm.PageSize bytes; frame numbers index the arena starting at 0.
type Memory struct {
	frameCount int
	bytes      []byte
}

// NewMemory provisions an arena backed by frameCount page frames.
func NewMemory(frameCount int) *Memory {
	return &Memory{
		frameCount: frameCount,
		bytes:      make([]byte, uintptr(frameCount)*mm.PageSize),
	}
}

// FrameCount returns the number of frames in the arena.
func (m *Memory) FrameCount() int {
	return m.frameCount
}

// FrameBytes returns the contents of the given frame. The returned slice
// aliases the arena so writes through it are visible to every holder of the
// frame. Requesting a frame outside the arena is a kernel bug.
func (m *Memory) FrameBytes(frame mm.Frame) []byte {
	if uintptr(frame) >= uintptr(m.frameCount) {
		panicFn(errFrameNotManaged)
		return nil
	}

	start := uintptr(frame) * mm.PageSize
	return m.bytes[start : start+mm.PageSize : start+mm.PageSize]
}

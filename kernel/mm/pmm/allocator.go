package pmm

import (
	"math"
	"math/bits"

	"rvos/kernel"
	"rvos/kernel/mm"
)

var (
	errBitmapAllocOutOfMemory     = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
	errBitmapAllocDoubleFree      = &kernel.Error{Module: "pmm", Message: "frame is already free"}
	errBitmapAllocFrameNotManaged = &kernel.Error{Module: "pmm", Message: "frame not managed by this allocator"}
)

type markAs bool

const (
	markReserved markAs = true
	markFree     markAs = false
)

// BitmapAllocator implements a physical frame allocator that tracks frame
// reservations over a memory arena using a free bitmap. A set bit indicates
// a reserved frame.
type BitmapAllocator struct {
	mem *Memory

	// totalFrames tracks the number of frames managed by this allocator.
	totalFrames uint32

	// reservedFrames tracks the number of reserved frames. The allocator
	// can use this field to fail fast when the arena is exhausted.
	reservedFrames uint32

	freeBitmap []uint64
}

// NewBitmapAllocator creates a frame allocator that serves frames out of the
// supplied memory arena. All frames are initially free.
func NewBitmapAllocator(mem *Memory) *BitmapAllocator {
	totalFrames := uint32(mem.FrameCount())
	alloc := &BitmapAllocator{
		mem:         mem,
		totalFrames: totalFrames,
		freeBitmap:  make([]uint64, (totalFrames+63)>>6),
	}

	// The bitmap tail may contain bits with no backing frame; flag them
	// as reserved so the scan below can never hand them out.
	for bit := totalFrames; bit < uint32(len(alloc.freeBitmap))<<6; bit++ {
		alloc.freeBitmap[bit>>6] |= 1 << (bit & 63)
	}

	return alloc
}

// AllocFrame reserves the lowest free frame, clears its contents and returns
// a FrameTracker that owns it. AllocFrame returns an error if all frames are
// reserved.
func (alloc *BitmapAllocator) AllocFrame() (*FrameTracker, *kernel.Error) {
	if alloc.reservedFrames == alloc.totalFrames {
		return nil, errBitmapAllocOutOfMemory
	}

	for blockIndex, block := range alloc.freeBitmap {
		if block == math.MaxUint64 {
			continue
		}

		frame := mm.Frame(blockIndex<<6 + bits.TrailingZeros64(^block))
		alloc.markFrame(frame, markReserved)

		// Fresh frames must not leak the previous owner's contents
		frameBytes := alloc.mem.FrameBytes(frame)
		for i := range frameBytes {
			frameBytes[i] = 0
		}

		return &FrameTracker{frame: frame, alloc: alloc}, nil
	}

	return nil, errBitmapAllocOutOfMemory
}

// FreeFrame returns the given frame to the free pool. Freeing a frame that
// is already free or is not managed by this allocator is an error.
func (alloc *BitmapAllocator) FreeFrame(frame mm.Frame) *kernel.Error {
	if uintptr(frame) >= uintptr(alloc.totalFrames) {
		return errBitmapAllocFrameNotManaged
	}

	if alloc.freeBitmap[frame>>6]&(1<<(uintptr(frame)&63)) == 0 {
		return errBitmapAllocDoubleFree
	}

	alloc.markFrame(frame, markFree)
	return nil
}

// FreeFrameCount returns the number of frames that are currently available
// for allocation.
func (alloc *BitmapAllocator) FreeFrameCount() uint32 {
	return alloc.totalFrames - alloc.reservedFrames
}

// markFrame updates the reservation bit for the given frame. Calling
// markFrame with a frame outside the managed range is a no-op.
func (alloc *BitmapAllocator) markFrame(frame mm.Frame, flag markAs) {
	if uintptr(frame) >= uintptr(alloc.totalFrames) {
		return
	}

	mask := uint64(1) << (uintptr(frame) & 63)
	if flag == markReserved {
		alloc.freeBitmap[frame>>6] |= mask
		alloc.reservedFrames++
	} else {
		alloc.freeBitmap[frame>>6] &^= mask
		alloc.reservedFrames--
	}
}

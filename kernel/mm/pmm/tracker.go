package pmm

import (
	"rvos/kernel"
	"rvos/kernel/mm"
)

var errTrackerDoubleRelease = &kernel.Error{Module: "pmm", Message: "frame tracker released more than once"}

// FrameTracker represents exclusive ownership of a single physical frame.
// Trackers are created only by a frame allocator. Moving a tracker into a
// container transfers the release obligation along with it; whoever ends up
// holding the tracker must call Release exactly once, at which point the
// frame returns to the allocator's free pool.
type FrameTracker struct {
	frame mm.Frame
	alloc *BitmapAllocator
}

// Frame returns the physical frame owned by this tracker.
func (ft *FrameTracker) Frame() mm.Frame {
	return ft.frame
}

// Release returns the owned frame to its allocator. Releasing a tracker
// twice is a kernel bug.
func (ft *FrameTracker) Release() {
	if ft.alloc == nil {
		panicFn(errTrackerDoubleRelease)
		return
	}

	if err := ft.alloc.FreeFrame(ft.frame); err != nil {
		panicFn(err)
		return
	}

	ft.alloc = nil
}

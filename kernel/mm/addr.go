// Package mm declares the value types shared by the physical and virtual
// memory managers: virtual/physical addresses and their page/frame numbers.
package mm

import "math"

// VirtAddr describes a virtual memory address.
type VirtAddr uintptr

// PageOffset returns the offset of this address inside its containing page.
func (v VirtAddr) PageOffset() uintptr {
	return uintptr(v) & (PageSize - 1)
}

// Aligned returns true if this address points to the start of a page.
func (v VirtAddr) Aligned() bool {
	return v.PageOffset() == 0
}

// PhysAddr describes a physical memory address.
type PhysAddr uintptr

// PageOffset returns the offset of this address inside its containing frame.
func (p PhysAddr) PageOffset() uintptr {
	return uintptr(p) & (PageSize - 1)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address where this Page begins.
func (p Page) Address() VirtAddr {
	return VirtAddr(p << PageShift)
}

// PageFromAddress returns the Page that contains the given virtual address.
// This function can handle both page-aligned and not aligned addresses. In
// the latter case, the input address will be rounded down to the page that
// contains it.
func PageFromAddress(virtAddr VirtAddr) Page {
	return Page(uintptr(virtAddr) >> PageShift)
}

// PageFromAddressRoundUp returns the lowest Page whose start address is
// greater than or equal to the given virtual address.
func PageFromAddressRoundUp(virtAddr VirtAddr) Page {
	return Page((uintptr(virtAddr) + PageSize - 1) >> PageShift)
}

// Frame describes a physical memory page index.
type Frame uintptr

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address where this Frame begins.
func (f Frame) Address() PhysAddr {
	return PhysAddr(f << PageShift)
}

// FrameFromAddress returns the Frame that contains the given physical
// address, rounding down when the address is not frame-aligned.
func FrameFromAddress(physAddr PhysAddr) Frame {
	return Frame(uintptr(physAddr) >> PageShift)
}

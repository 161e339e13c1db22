package vmm

import (
	"rvos/kernel"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
)

var errCopyOutCrossesPage = &kernel.Error{Module: "vmm", Message: "copy-out destination crosses a page boundary"}

// GatherUserRange returns the ordered physical byte slices covering the
// virtual range [addr, addr+length) in the address space described by
// token. A range spanning several pages yields one slice per page; the
// pages need not be physically contiguous. Each returned slice aliases one
// frame of the arena, so reads and writes through it operate directly on
// the target address space. The range is assumed to be fully backed;
// gathering an unmapped page is a kernel bug.
func GatherUserRange(mem *pmm.Memory, token uint64, addr mm.VirtAddr, length uintptr) [][]byte {
	table := ViewFromToken(mem, token)

	var bufs [][]byte
	cursor := uintptr(addr)
	end := cursor + length
	for cursor < end {
		cursorAddr := mm.VirtAddr(cursor)
		page := mm.PageFromAddress(cursorAddr)

		pte, err := table.Translate(page)
		if err != nil {
			panicFn(err)
			return nil
		}

		// The slice runs to the end of the page or of the range,
		// whichever comes first
		sliceEnd := uintptr(page+1) << mm.PageShift
		if sliceEnd > end {
			sliceEnd = end
		}

		frameBytes := mem.FrameBytes(pte.Frame())
		startOffset := cursorAddr.PageOffset()
		bufs = append(bufs, frameBytes[startOffset:startOffset+(sliceEnd-cursor)])

		cursor = sliceEnd
	}

	return bufs
}

// CopyOut copies src into user memory at dst in the address space described
// by token. The destination window must fit inside a single page; this
// variant exists for structured values whose size guarantees that. A window
// crossing a page boundary or an unmapped destination page is a kernel bug.
func CopyOut(mem *pmm.Memory, token uint64, dst mm.VirtAddr, src []byte) {
	if dst.PageOffset()+uintptr(len(src)) > mm.PageSize {
		panicFn(errCopyOutCrossesPage)
		return
	}

	table := ViewFromToken(mem, token)
	pte, err := table.Translate(mm.PageFromAddress(dst))
	if err != nil {
		panicFn(err)
		return
	}

	frameBytes := mem.FrameBytes(pte.Frame())
	copy(frameBytes[dst.PageOffset():], src)
}

package vmm

import (
	"rvos/kernel"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
)

var (
	errRegionOverlap   = &kernel.Error{Module: "vmm", Message: "requested range overlaps an existing mapping"}
	errRegionNotMapped = &kernel.Error{Module: "vmm", Message: "requested range contains unmapped pages"}
)

// AddressSpace combines a process's page table with ownership of the frames
// backing its user-mapped pages. The page table itself owns only its node
// frames; the trackers for leaf-mapped frames live here so that unmapping a
// region can return them to the allocator exactly once.
type AddressSpace struct {
	table   *PageTable
	allocFn FrameAllocatorFn
	mapped  map[mm.Page]*pmm.FrameTracker
}

// NewAddressSpace creates an empty address space whose page table and user
// mappings draw frames from allocFn.
func NewAddressSpace(mem *pmm.Memory, allocFn FrameAllocatorFn) (*AddressSpace, *kernel.Error) {
	table, err := NewPageTable(mem, allocFn)
	if err != nil {
		return nil, err
	}

	return &AddressSpace{
		table:   table,
		allocFn: allocFn,
		mapped:  make(map[mm.Page]*pmm.FrameTracker),
	}, nil
}

// Token returns the translation-register token for this address space.
func (as *AddressSpace) Token() uint64 {
	return as.table.Token()
}

// Translate returns the leaf entry for the given page, or ErrInvalidMapping
// if the page is not mapped.
func (as *AddressSpace) Translate(page mm.Page) (PageTableEntry, *kernel.Error) {
	return as.table.Translate(page)
}

// MapRegion maps every page covering [start, start+length) to a freshly
// allocated frame carrying the supplied leaf flags. The operation is
// atomic: if any page in the range already holds a valid mapping the call
// fails before any state changes, and an allocation failure mid-way rolls
// back the pages mapped earlier in the same call.
func (as *AddressSpace) MapRegion(start mm.VirtAddr, length uintptr, flags PageTableEntryFlag) *kernel.Error {
	if length == 0 {
		return nil
	}

	firstPage := mm.PageFromAddress(start)
	endPage := mm.PageFromAddressRoundUp(start + mm.VirtAddr(length))

	// Read-only validation pass so a conflicting range is rejected
	// without materializing any intermediate nodes
	for page := firstPage; page < endPage; page++ {
		if _, err := as.table.Translate(page); err == nil {
			return errRegionOverlap
		}
	}

	for page := firstPage; page < endPage; page++ {
		tracker, err := as.allocFn()
		if err != nil {
			as.releaseRange(firstPage, page)
			return err
		}

		if err = as.table.Map(page, tracker.Frame(), flags); err != nil {
			tracker.Release()
			as.releaseRange(firstPage, page)
			return err
		}

		as.mapped[page] = tracker
	}

	return nil
}

// UnmapRegion unmaps every page covering [start, start+length) and returns
// the frames backing them to the allocator. The operation is atomic: if any
// page in the range is not currently mapped by this address space the call
// fails with no state change.
func (as *AddressSpace) UnmapRegion(start mm.VirtAddr, length uintptr) *kernel.Error {
	if length == 0 {
		return nil
	}

	firstPage := mm.PageFromAddress(start)
	endPage := mm.PageFromAddressRoundUp(start + mm.VirtAddr(length))

	for page := firstPage; page < endPage; page++ {
		if _, held := as.mapped[page]; !held {
			return errRegionNotMapped
		}
	}

	as.releaseRange(firstPage, endPage)
	return nil
}

// Release tears the address space down: every user-mapped frame and every
// page-table node frame goes back to the allocator.
func (as *AddressSpace) Release() {
	for page, tracker := range as.mapped {
		tracker.Release()
		delete(as.mapped, page)
	}

	as.table.Release()
}

// releaseRange unmaps [firstPage, endPage) and releases the owned frames
// backing those pages.
func (as *AddressSpace) releaseRange(firstPage, endPage mm.Page) {
	for page := firstPage; page < endPage; page++ {
		as.table.Unmap(page)
		as.mapped[page].Release()
		delete(as.mapped, page)
	}
}

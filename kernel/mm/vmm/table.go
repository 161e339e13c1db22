package vmm

import (
	"encoding/binary"

	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
)

var (
	// panicFn is mocked by tests that need to exercise kernel-bug paths
	// without halting the test process.
	panicFn = kfmt.Panic

	// ErrInvalidMapping is returned when trying to look up a virtual page
	// that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual page does not point to a mapped physical frame"}

	errMapMappedPage     = &kernel.Error{Module: "vmm", Message: "page is already mapped"}
	errUnmapUnmappedPage = &kernel.Error{Module: "vmm", Message: "page is not mapped"}
	errTranslateOnlyView = &kernel.Error{Module: "vmm", Message: "page table view cannot modify mappings"}
)

// FrameAllocatorFn is a function that can allocate physical frames.
type FrameAllocatorFn func() (*pmm.FrameTracker, *kernel.Error)

// PageTable is the multi-level radix tree that maps virtual pages to
// physical frames. A table owns the frames backing its internal nodes, the
// root included; the frame named by a leaf entry stays owned by whichever
// subsystem requested that mapping.
type PageTable struct {
	mem     *pmm.Memory
	allocFn FrameAllocatorFn

	rootFrame mm.Frame
	frames    []*pmm.FrameTracker
}

// NewPageTable allocates a root node frame using allocFn and returns a page
// table that owns it. Further node frames are requested from the same
// allocator as mappings force new intermediate levels into existence.
func NewPageTable(mem *pmm.Memory, allocFn FrameAllocatorFn) (*PageTable, *kernel.Error) {
	root, err := allocFn()
	if err != nil {
		return nil, err
	}

	return &PageTable{
		mem:       mem,
		allocFn:   allocFn,
		rootFrame: root.Frame(),
		frames:    []*pmm.FrameTracker{root},
	}, nil
}

// ViewFromToken constructs a translate-only view of the address space
// described by the supplied token. The view owns no frames and cannot
// establish or remove mappings; it is used to inspect a different address
// space from within the kernel without taking ownership of it.
func ViewFromToken(mem *pmm.Memory, token uint64) *PageTable {
	return &PageTable{
		mem:       mem,
		rootFrame: mm.Frame(token & satpPPNMask),
	}
}

// Token encodes this table's root frame into the form consumed by the
// hardware address-translation register.
func (pt *PageTable) Token() uint64 {
	return satpModeOn | uint64(pt.rootFrame)
}

// Map establishes a mapping from the given virtual page to the given frame
// with the supplied leaf flags plus Valid. The caller keeps ownership of
// the frame. Mapping a page that is already mapped indicates broken caller
// bookkeeping and is treated as a kernel bug.
func (pt *PageTable) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	if pt.allocFn == nil {
		return errTranslateOnlyView
	}

	loc, err := pt.walkCreate(page)
	if err != nil {
		return err
	}

	if pt.entryAt(loc.frame, loc.index).IsValid() {
		panicFn(errMapMappedPage)
		return errMapMappedPage
	}

	pt.setEntryAt(loc.frame, loc.index, NewPageTableEntry(frame, flags|FlagValid))
	return nil
}

// Unmap clears the leaf entry for the given page. The walk may materialize
// intermediate nodes when none existed yet. The frame previously named by
// the leaf is not released here; its owner keeps that obligation. Unmapping
// a page that is not mapped is treated as a kernel bug.
func (pt *PageTable) Unmap(page mm.Page) *kernel.Error {
	if pt.allocFn == nil {
		return errTranslateOnlyView
	}

	loc, err := pt.walkCreate(page)
	if err != nil {
		return err
	}

	if !pt.entryAt(loc.frame, loc.index).IsValid() {
		panicFn(errUnmapUnmappedPage)
		return errUnmapUnmappedPage
	}

	pt.setEntryAt(loc.frame, loc.index, 0)
	return nil
}

// Translate returns a copy of the leaf entry for the given page. It returns
// ErrInvalidMapping when an intermediate level is missing or the leaf entry
// itself is not valid.
func (pt *PageTable) Translate(page mm.Page) (PageTableEntry, *kernel.Error) {
	loc, ok := pt.walk(page)
	if !ok {
		return 0, ErrInvalidMapping
	}

	pte := pt.entryAt(loc.frame, loc.index)
	if !pte.IsValid() {
		return 0, ErrInvalidMapping
	}

	return pte, nil
}

// Release returns every node frame owned by this table to its allocator.
// The table must not be used after it has been released.
func (pt *PageTable) Release() {
	for _, tracker := range pt.frames {
		tracker.Release()
	}
	pt.frames = nil
}

// leafLocation identifies the storage slot of a leaf entry inside a node
// frame.
type leafLocation struct {
	frame mm.Frame
	index int
}

// pageLevelIndex returns the node index selected by the given page at the
// given level, most significant level first.
func pageLevelIndex(page mm.Page, level int) int {
	shift := uint((pageLevels - 1 - level) * pageLevelBits)
	return int(uintptr(page) >> shift & (tableEntryCount - 1))
}

// walkCreate descends the tree for the given page, materializing missing
// intermediate nodes along the path, and returns the location of the leaf
// entry. Intermediate entries carry only the Valid flag; permissions apply
// at the leaf alone.
func (pt *PageTable) walkCreate(page mm.Page) (leafLocation, *kernel.Error) {
	nodeFrame := pt.rootFrame
	for level := 0; level < pageLevels-1; level++ {
		index := pageLevelIndex(page, level)

		pte := pt.entryAt(nodeFrame, index)
		if pte.IsValid() {
			nodeFrame = pte.Frame()
			continue
		}

		nodeTracker, err := pt.allocFn()
		if err != nil {
			return leafLocation{}, err
		}

		pt.setEntryAt(nodeFrame, index, NewPageTableEntry(nodeTracker.Frame(), FlagValid))
		pt.frames = append(pt.frames, nodeTracker)
		nodeFrame = nodeTracker.Frame()
	}

	return leafLocation{frame: nodeFrame, index: pageLevelIndex(page, pageLevels-1)}, nil
}

// walk descends the tree without allocating. The boolean return reports
// whether the leaf entry was reachable.
func (pt *PageTable) walk(page mm.Page) (leafLocation, bool) {
	nodeFrame := pt.rootFrame
	for level := 0; level < pageLevels-1; level++ {
		pte := pt.entryAt(nodeFrame, pageLevelIndex(page, level))
		if !pte.IsValid() {
			return leafLocation{}, false
		}
		nodeFrame = pte.Frame()
	}

	return leafLocation{frame: nodeFrame, index: pageLevelIndex(page, pageLevels-1)}, true
}

// entryAt decodes the entry stored at the given slot of a node frame.
func (pt *PageTable) entryAt(frame mm.Frame, index int) PageTableEntry {
	raw := pt.mem.FrameBytes(frame)
	return PageTableEntry(binary.LittleEndian.Uint64(raw[index*tableEntrySize:]))
}

// setEntryAt encodes the entry into the given slot of a node frame.
func (pt *PageTable) setEntryAt(frame mm.Frame, index int, pte PageTableEntry) {
	raw := pt.mem.FrameBytes(frame)
	binary.LittleEndian.PutUint64(raw[index*tableEntrySize:], uint64(pte))
}

// Package vmm implements the virtual memory manager: the multi-level page
// table, virtual-to-physical translation and the user/kernel copy helpers
// built on top of it.
package vmm

import "rvos/kernel/mm"

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uint64

// Page-table entry flags. The values match the hardware entry format.
const (
	FlagValid PageTableEntryFlag = 1 << iota
	FlagRead
	FlagWrite
	FlagExec
	FlagUser
	FlagGlobal
	FlagAccessed
	FlagDirty
)

// PageTableEntry describes a page table entry. Entries encode a physical
// page number and a set of flags in a single machine word matching the
// hardware entry format. An entry is a plain value; ownership of the frame
// it names is tracked elsewhere.
type PageTableEntry uint64

// NewPageTableEntry packs the given frame number and flags into an entry.
// The frame number is masked to the width of the entry's frame window; the
// flags occupy the low byte unmodified.
func NewPageTableEntry(frame mm.Frame, flags PageTableEntryFlag) PageTableEntry {
	return PageTableEntry((uint64(frame)&ptePPNMask)<<ptePPNShift | uint64(flags)&pteFlagMask)
}

// Frame returns the physical page frame that this entry points to. The
// value is meaningless unless the entry is valid.
func (pte PageTableEntry) Frame() mm.Frame {
	return mm.Frame(uint64(pte) >> ptePPNShift & ptePPNMask)
}

// Flags returns the flag byte of this entry.
func (pte PageTableEntry) Flags() PageTableEntryFlag {
	return PageTableEntryFlag(uint64(pte) & pteFlagMask)
}

// HasFlags returns true if this entry has all the input flags set.
func (pte PageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return uint64(pte)&uint64(flags) == uint64(flags)
}

// IsValid returns true if this entry holds a live mapping.
func (pte PageTableEntry) IsValid() bool {
	return pte.HasFlags(FlagValid)
}

// Readable returns true if the mapped page may be read.
func (pte PageTableEntry) Readable() bool {
	return pte.HasFlags(FlagRead)
}

// Writable returns true if the mapped page may be written.
func (pte PageTableEntry) Writable() bool {
	return pte.HasFlags(FlagWrite)
}

// Executable returns true if the mapped page may be executed.
func (pte PageTableEntry) Executable() bool {
	return pte.HasFlags(FlagExec)
}

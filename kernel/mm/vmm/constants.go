package vmm

const (
	// pageLevels is the number of levels in the page-table radix tree.
	pageLevels = 3

	// pageLevelBits is the number of virtual address bits consumed by the
	// table index at each level.
	pageLevelBits = 9

	// tableEntryCount is the number of entries held by one table node.
	tableEntryCount = 1 << pageLevelBits

	// tableEntrySize is the width in bytes of one packed table entry.
	tableEntrySize = 8

	// Entry layout: an 8-bit flag field in the low byte, two reserved
	// bits, then a 44-bit physical page number.
	pteFlagMask = uint64(0xff)
	ptePPNShift = 10
	ptePPNMask  = uint64(1)<<44 - 1

	// Token layout for the address-translation register: the paging-mode
	// tag occupies the top four bits (8 selects three-level translation)
	// and the root physical page number occupies the low 44 bits.
	satpModeOn  = uint64(8) << 60
	satpPPNMask = uint64(1)<<44 - 1
)

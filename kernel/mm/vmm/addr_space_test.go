package vmm

import (
	"testing"

	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
)

func newTestAddressSpace(t *testing.T, frameCount int) (*pmm.Memory, *pmm.BitmapAllocator, *AddressSpace) {
	t.Helper()

	mem := pmm.NewMemory(frameCount)
	alloc := pmm.NewBitmapAllocator(mem)

	space, err := NewAddressSpace(mem, alloc.AllocFrame)
	if err != nil {
		t.Fatalf("unexpected error creating address space: %v", err)
	}

	return mem, alloc, space
}

func TestMapRegionAndUnmapRegion(t *testing.T) {
	_, alloc, space := newTestAddressSpace(t, 64)

	start := mm.VirtAddr(0x100000)
	length := 3 * mm.PageSize
	flags := FlagRead | FlagWrite | FlagUser

	if err := space.MapRegion(start, length, flags); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstPage := mm.PageFromAddress(start)
	for page := firstPage; page < firstPage+3; page++ {
		pte, err := space.Translate(page)
		if err != nil {
			t.Fatalf("unexpected error translating page %d: %v", page, err)
		}

		if !pte.HasFlags(flags | FlagValid) {
			t.Errorf("expected page %d entry to carry the region flags plus Valid; got %b", page, pte.Flags())
		}
	}

	if err := space.UnmapRegion(start, length); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for page := firstPage; page < firstPage+3; page++ {
		if _, err := space.Translate(page); err != ErrInvalidMapping {
			t.Fatalf("expected page %d to be unmapped; got %v", page, err)
		}
	}

	// Only the page-table node frames may remain reserved
	space.Release()
	if exp, got := uint32(64), alloc.FreeFrameCount(); exp != got {
		t.Fatalf("expected all %d frames back in the free pool; got %d", exp, got)
	}
}

func TestMapRegionZeroLength(t *testing.T) {
	_, alloc, space := newTestAddressSpace(t, 64)

	reservedBefore := alloc.FreeFrameCount()
	if err := space.MapRegion(mm.VirtAddr(0x100000), 0, FlagRead|FlagUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := alloc.FreeFrameCount(); got != reservedBefore {
		t.Fatalf("expected no frames to be reserved for a zero-length region; free count went from %d to %d", reservedBefore, got)
	}
}

func TestMapRegionRejectsOverlapAtomically(t *testing.T) {
	_, _, space := newTestAddressSpace(t, 64)

	start := mm.VirtAddr(0x100000)
	if err := space.MapRegion(start, 2*mm.PageSize, FlagRead|FlagUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Overlaps the second page of the first region
	overlapStart := start + mm.VirtAddr(mm.PageSize)
	if err := space.MapRegion(overlapStart, 2*mm.PageSize, FlagRead|FlagUser); err != errRegionOverlap {
		t.Fatalf("expected errRegionOverlap; got %v", err)
	}

	// The original mapping must be intact and the non-overlapping tail of
	// the rejected range must remain unmapped
	if _, err := space.Translate(mm.PageFromAddress(start)); err != nil {
		t.Fatalf("expected original mapping to survive; got %v", err)
	}

	tailPage := mm.PageFromAddress(start) + 2
	if _, err := space.Translate(tailPage); err != ErrInvalidMapping {
		t.Fatalf("expected rejected range tail to stay unmapped; got %v", err)
	}
}

func TestMapRegionRollsBackOnExhaustion(t *testing.T) {
	// Arena sized so the region runs out of frames part-way: 1 root +
	// 2 intermediate nodes + a handful of user frames
	_, alloc, space := newTestAddressSpace(t, 6)

	start := mm.VirtAddr(0x100000)
	err := space.MapRegion(start, 8*mm.PageSize, FlagRead|FlagUser)
	if err == nil {
		t.Fatal("expected an allocation error")
	}

	firstPage := mm.PageFromAddress(start)
	for page := firstPage; page < firstPage+8; page++ {
		if _, err := space.Translate(page); err != ErrInvalidMapping {
			t.Fatalf("expected page %d to be rolled back; got %v", page, err)
		}
	}

	// Everything except the page-table node frames must be free again
	space.Release()
	if exp, got := uint32(6), alloc.FreeFrameCount(); exp != got {
		t.Fatalf("expected all %d frames back in the free pool; got %d", exp, got)
	}
}

func TestUnmapRegionRejectsUnmappedPagesAtomically(t *testing.T) {
	_, _, space := newTestAddressSpace(t, 64)

	start := mm.VirtAddr(0x100000)
	if err := space.MapRegion(start, mm.PageSize, FlagRead|FlagUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Range covers one mapped and one unmapped page
	if err := space.UnmapRegion(start, 2*mm.PageSize); err != errRegionNotMapped {
		t.Fatalf("expected errRegionNotMapped; got %v", err)
	}

	// The mapped page must be untouched
	if _, err := space.Translate(mm.PageFromAddress(start)); err != nil {
		t.Fatalf("expected mapped page to survive the rejected unmap; got %v", err)
	}
}

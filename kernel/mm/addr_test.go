package mm

import "testing"

func TestVirtAddrDecomposition(t *testing.T) {
	specs := []struct {
		addr       VirtAddr
		expPage    Page
		expOffset  uintptr
		expAligned bool
	}{
		{0, 0, 0, true},
		{0x1000, 1, 0, true},
		{0x1001, 1, 1, false},
		{0x1fff, 1, 0xfff, false},
		{0x80042abc, 0x80042, 0xabc, false},
	}

	for specIndex, spec := range specs {
		if got := PageFromAddress(spec.addr); got != spec.expPage {
			t.Errorf("[spec %d] expected page %d; got %d", specIndex, spec.expPage, got)
		}

		if got := spec.addr.PageOffset(); got != spec.expOffset {
			t.Errorf("[spec %d] expected page offset %d; got %d", specIndex, spec.expOffset, got)
		}

		if got := spec.addr.Aligned(); got != spec.expAligned {
			t.Errorf("[spec %d] expected aligned to be %t; got %t", specIndex, spec.expAligned, got)
		}
	}
}

func TestPageAddressRoundTrip(t *testing.T) {
	for _, page := range []Page{0, 1, 511, 0x80042} {
		if got := PageFromAddress(page.Address()); got != page {
			t.Errorf("expected page %d to round-trip through its address; got %d", page, got)
		}

		if got := page.Address().PageOffset(); got != 0 {
			t.Errorf("expected page %d start address to have offset 0; got %d", page, got)
		}
	}
}

func TestPageFromAddressRoundUp(t *testing.T) {
	specs := []struct {
		addr    VirtAddr
		expPage Page
	}{
		{0, 0},
		{1, 1},
		{0x1000, 1},
		{0x1001, 2},
		{0x2000, 2},
	}

	for specIndex, spec := range specs {
		if got := PageFromAddressRoundUp(spec.addr); got != spec.expPage {
			t.Errorf("[spec %d] expected rounded-up page %d; got %d", specIndex, spec.expPage, got)
		}
	}
}

func TestFrameValid(t *testing.T) {
	if InvalidFrame.Valid() {
		t.Fatal("expected InvalidFrame.Valid() to return false")
	}

	if frame := Frame(123); !frame.Valid() {
		t.Fatalf("expected frame %d to be valid", frame)
	}
}

func TestFrameFromAddress(t *testing.T) {
	if exp, got := Frame(2), FrameFromAddress(PhysAddr(0x2fff)); exp != got {
		t.Fatalf("expected frame %d; got %d", exp, got)
	}
}

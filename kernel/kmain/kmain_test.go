package kmain

import (
	"bytes"
	"strings"
	"testing"

	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/vmm"
	"rvos/kernel/sys"
)

type stubTaskService struct {
	space *vmm.AddressSpace
}

func (s *stubTaskService) CurrentUserToken() uint64 { return s.space.Token() }

func (s *stubTaskService) CurrentSpace() *vmm.AddressSpace { return s.space }

func (s *stubTaskService) CurrentTaskInfo() sys.TaskInfo { return sys.TaskInfo{} }

func (s *stubTaskService) Suspend() {}

func (s *stubTaskService) Exit(code int) {}

type stubClock struct{}

func (stubClock) TimeMicros() uint64 { return 0 }

func TestBootstrapWiresSubsystems(t *testing.T) {
	defer kfmt.SetOutputSink(nil)

	var log bytes.Buffer
	kfmt.SetOutputSink(&log)

	tasks := &stubTaskService{}
	k := Bootstrap(64, tasks, stubClock{})

	space, err := k.NewAddressSpace()
	if err != nil {
		t.Fatalf("unexpected error creating address space: %v", err)
	}
	tasks.space = space

	// End to end: a mapped region must be visible through translation
	if got := k.Syscalls.Mmap(0x100000, uintptr(mm.PageSize), 0x3); got != 0 {
		t.Fatalf("expected mmap to succeed; got %d", got)
	}

	pte, terr := space.Translate(mm.Page(0x100))
	if terr != nil {
		t.Fatalf("unexpected error: %v", terr)
	}

	if !pte.Readable() || !pte.Writable() {
		t.Fatalf("expected a read-write mapping; got flags %b", pte.Flags())
	}

	if !strings.Contains(log.String(), "frame allocator ready") {
		t.Fatalf("expected bring-up log output; got %q", log.String())
	}
}

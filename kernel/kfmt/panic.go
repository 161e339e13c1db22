package kfmt

import "rvos/kernel"

var (
	// haltFn is mocked by tests that need to observe a kernel panic
	// without tearing the test process down.
	haltFn = halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the active sink and halts
// the kernel. Calls to Panic never return.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	haltFn()
}

// halt stops the kernel. The hosted model has no CPU to wedge so it raises a
// Go runtime panic instead.
func halt() {
	panic("kernel halted")
}

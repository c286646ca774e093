package kfmt

import (
	"gopherirq/kernel"
	"gopherirq/kernel/cpu"
)

var (
	// cpuHaltLoopFn is mocked by tests.
	cpuHaltLoopFn = cpu.HaltLoop

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the active output sink and
// parks the CPU in the idle halt loop. There is nothing to unwind to and no
// process to exit, so calls to Panic never return.
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

	cpuHaltLoopFn()
}

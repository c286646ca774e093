package kmain

import (
	"gopherirq/device/tty"
	"gopherirq/device/video/console"
	"gopherirq/kernel"
	"gopherirq/kernel/cpu"
	"gopherirq/kernel/hal"
	"gopherirq/kernel/hal/multiboot"
	"gopherirq/kernel/kfmt"
	"gopherirq/kernel/trap"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	halPrefix = []byte("[hal] ")

	// The following are mocked by tests.
	cpuHaltLoopFn   = cpu.HaltLoop
	breakpointFn    = cpu.Breakpoint
	panicFn         = kfmt.Panic
	detectConsoleFn = hal.DetectConsole
	bootConfigFn    = hal.BootConfig

	machine trap.Machine = trap.NativeMachine{}

	// The kernel has no heap at this point so everything Boot sets up is
	// statically allocated.
	dispatcher trap.Dispatcher
	terminal   tty.Terminal
	halLog     kfmt.PrefixWriter
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a minimal g0 struct that allows Go code to
// run on the stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	halLog.Sink, halLog.Prefix = kfmt.OutputWriter(), halPrefix
	cfg := bootConfigFn(&halLog)

	if _, _, err := Boot(machine, detectConsoleFn(), cfg); err != nil {
		panicFn(err)
	}

	if cfg.Breakpoint {
		breakpointFn()
	}

	cpuHaltLoopFn()

	// Use panicFn instead of panic to prevent the compiler from treating
	// kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// Boot brings up the interrupt layer on m and attaches the kernel terminal
// to cons. Until the dispatcher is initialized, log output is buffered by
// kfmt; it is replayed to the terminal once interrupts are live, followed by
// the greeting. From then on all kfmt output reaches the terminal with
// interrupts disabled.
//
// Boot does not allocate. The returned dispatcher and terminal are package
// singletons that are reset by every call.
func Boot(m trap.Machine, cons console.Device, cfg hal.Config) (*trap.Dispatcher, *tty.Terminal, *kernel.Error) {
	terminal.AttachTo(cons, m)
	terminal.SetColors(cfg.ConsoleFg, cfg.ConsoleBg)

	if err := dispatcher.Attach(m, &terminal, cfg); err != nil {
		return nil, nil, err
	}

	if err := dispatcher.Init(kfmt.OutputWriter()); err != nil {
		return nil, nil, err
	}

	// A trap handler writing to the terminal while the buffered output is
	// replayed would spin on the terminal lock forever.
	cpu.WithoutInterrupts(m, func() {
		kfmt.SetOutputSink(terminal.AtomicWriter())
	})

	terminal.Printf("Hello, World!\n")
	return &dispatcher, &terminal, nil
}

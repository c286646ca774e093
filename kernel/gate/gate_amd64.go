package gate

import (
	"gopherirq/kernel"
	"gopherirq/kernel/kfmt"
	"io"
	"unsafe"
)

// Registers contains a snapshot of all register values when an exception or
// interrupt occurs. The layout matches the stack frame built by the gate
// entry trampolines.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Info contains the number of the interrupt or exception that
	// triggered the gate.
	Info uint64

	// ErrorCode is pushed by the CPU for some exceptions; it is 0 for
	// everything else.
	ErrorCode uint64

	// The return frame used by IRETQ
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x ERR = %16x\n", r.RBP, r.ErrorCode)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	r.dumpFrameTo(w)
}

// dumpFrameTo outputs the interrupt return frame to w.
func (r *Registers) dumpFrameTo(w io.Writer) {
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// Debug is raised by single-stepping and hardware breakpoints.
	Debug = InterruptNumber(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by the INT3 instruction.
	Breakpoint = InterruptNumber(3)

	// Overflow is raised by the INTO instruction when the overflow flag
	// is set.
	Overflow = InterruptNumber(4)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DoubleFault occurs when an exception is raised while the CPU is
	// trying to invoke the handler of a prior exception.
	DoubleFault = InterruptNumber(8)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page table entry is not present or
	// when a privilege and/or RW protection check fails.
	PageFaultException = InterruptNumber(14)
)

const (
	// NumEntries is the number of slots in the trap-vector table.
	NumEntries = 256

	// NumEntryStubs is the number of slots that have an entry trampoline:
	// the CPU exceptions and the 16 lines of the chained PICs.
	NumEntryStubs = 48

	// kernelCodeSelector is the GDT selector of the 64-bit kernel code
	// segment set up by the rt0 code.
	kernelCodeSelector = 0x08

	gateTypeInterrupt = 0x0e
	gatePresent       = 0x80
)

var (
	errTableSealed = &kernel.Error{Module: "gate", Message: "trap-vector table cannot be modified after it has been loaded"}
	errNilHandler  = &kernel.Error{Module: "gate", Message: "nil interrupt handler"}
	errNoEntryStub = &kernel.Error{Module: "gate", Message: "no entry trampoline for interrupt number"}
	errBadIST      = &kernel.Error{Module: "gate", Message: "interrupt stack table index must be in the range 0-7"}
	errBadDPL      = &kernel.Error{Module: "gate", Message: "descriptor privilege level must be in the range 0-3"}

	// The following functions are mocked by tests.
	gateEntryAddrFn = gateEntryAddr
	loadIDTFn       = loadIDT

	// activeTable is the table that dispatchInterrupt routes interrupts to.
	activeTable *Table
)

// Handler is invoked with the register snapshot of the interrupted context.
// Any modifications to the snapshot are restored when the handler returns.
type Handler func(*Registers)

// Entry describes a populated slot of the trap-vector table.
type Entry struct {
	Handler Handler
	Present bool

	// DPL is the lowest privilege level allowed to invoke the gate via
	// the INT instruction.
	DPL uint8

	// IST selects an interrupt stack table slot; 0 keeps the current
	// stack.
	IST uint8
}

// descriptor is the 16-byte long mode IDT gate descriptor.
type descriptor struct {
	offsetLow  uint16
	selector   uint16
	ist        uint8
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// Table is the 256-slot trap-vector table. Slots are populated with Set and
// the table becomes immutable once Load makes it the active table.
type Table struct {
	entries     [NumEntries]Entry
	descriptors [NumEntries]descriptor
	idtr        [10]byte
	sealed      bool
}

// Set installs handler at slot num. The optional istOffset selects an
// interrupt stack table slot (0 means no stack switch).
func (t *Table) Set(num InterruptNumber, istOffset uint8, handler Handler) *kernel.Error {
	return t.SetEntry(num, Entry{Handler: handler, Present: true, IST: istOffset})
}

// SetEntry installs a fully specified entry at slot num.
func (t *Table) SetEntry(num InterruptNumber, entry Entry) *kernel.Error {
	switch {
	case t.sealed:
		return errTableSealed
	case entry.Handler == nil:
		return errNilHandler
	case int(num) >= NumEntryStubs:
		return errNoEntryStub
	case entry.IST > 7:
		return errBadIST
	case entry.DPL > 3:
		return errBadDPL
	}

	t.entries[num] = entry
	return nil
}

// Entry returns the contents of slot num.
func (t *Table) Entry(num InterruptNumber) Entry {
	return t.entries[num]
}

// Count returns the number of present entries.
func (t *Table) Count() int {
	var count int
	for num := range t.entries {
		if t.entries[num].Present {
			count++
		}
	}
	return count
}

// Sealed returns true if the table has been loaded.
func (t *Table) Sealed() bool {
	return t.sealed
}

// Load encodes the gate descriptors, loads the table into the CPU and makes
// it the target of dispatchInterrupt. No further modifications are allowed
// afterwards. Loading an already sealed table is an error.
func (t *Table) Load() *kernel.Error {
	if t.sealed {
		return errTableSealed
	}

	for num := range t.entries {
		t.descriptors[num] = encodeDescriptor(&t.entries[num], InterruptNumber(num))
	}

	limit := uint16(unsafe.Sizeof(t.descriptors) - 1)
	base := uint64(uintptr(unsafe.Pointer(&t.descriptors[0])))
	t.idtr[0], t.idtr[1] = byte(limit), byte(limit>>8)
	for i := 0; i < 8; i++ {
		t.idtr[2+i] = byte(base >> (8 * uint(i)))
	}

	t.sealed = true
	activeTable = t
	loadIDTFn(uintptr(unsafe.Pointer(&t.idtr[0])))
	return nil
}

// Dispatch routes regs to the handler installed for the slot in regs.Info.
// Interrupts without a handler are ignored.
func (t *Table) Dispatch(regs *Registers) {
	if regs.Info >= NumEntries {
		return
	}

	if entry := &t.entries[regs.Info]; entry.Present {
		entry.Handler(regs)
	}
}

func encodeDescriptor(entry *Entry, num InterruptNumber) descriptor {
	if !entry.Present {
		return descriptor{}
	}

	addr := uint64(gateEntryAddrFn(uint8(num)))
	return descriptor{
		offsetLow:  uint16(addr),
		selector:   kernelCodeSelector,
		ist:        entry.IST & 0x7,
		typeAttr:   gatePresent | (entry.DPL&0x3)<<5 | gateTypeInterrupt,
		offsetMid:  uint16(addr >> 16),
		offsetHigh: uint32(addr >> 32),
	}
}

// dispatchInterrupt is invoked by the gate entry trampolines.
func dispatchInterrupt(regs *Registers) {
	if activeTable != nil {
		activeTable.Dispatch(regs)
	}
}

// gateEntryAddr returns the address of the entry trampoline for num. num
// must be less than NumEntryStubs.
func gateEntryAddr(num uint8) uintptr

// loadIDT loads the 10-byte IDT pointer at idtrAddr using LIDT.
func loadIDT(idtrAddr uintptr)

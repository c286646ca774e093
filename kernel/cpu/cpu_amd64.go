// Package cpu exposes the privileged x86-64 instructions used by the
// interrupt layer. The functions without a body are implemented in
// cpu_amd64.s.
package cpu

// EnableInterrupts enables delivery of maskable interrupts (STI).
func EnableInterrupts()

// DisableInterrupts disables delivery of maskable interrupts (CLI).
func DisableInterrupts()

// InterruptsEnabled returns true if the IF flag in RFLAGS is set.
func InterruptsEnabled() bool

// Halt stops instruction execution until the next interrupt arrives.
func Halt()

// Breakpoint raises a breakpoint exception (INT3).
func Breakpoint()

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8

var haltFn = Halt

// HaltLoop parks the CPU forever. Interrupts that are still enabled wake the
// CPU up, get serviced and the loop halts again. HaltLoop never returns.
func HaltLoop() {
	for {
		haltFn()
	}
}

// Ports is implemented by objects that provide access to the 8-bit I/O port
// address space.
type Ports interface {
	PortReadByte(port uint16) uint8
	PortWriteByte(port uint16, val uint8)
}

// InterruptFlag is implemented by objects that control the delivery of
// maskable interrupts.
type InterruptFlag interface {
	EnableInterrupts()
	DisableInterrupts()
	InterruptsEnabled() bool
}

// Native implements Ports and InterruptFlag by executing the corresponding
// instructions on the current CPU.
type Native struct{}

// PortReadByte implements Ports.
func (Native) PortReadByte(port uint16) uint8 { return PortReadByte(port) }

// PortWriteByte implements Ports.
func (Native) PortWriteByte(port uint16, val uint8) { PortWriteByte(port, val) }

// EnableInterrupts implements InterruptFlag.
func (Native) EnableInterrupts() { EnableInterrupts() }

// DisableInterrupts implements InterruptFlag.
func (Native) DisableInterrupts() { DisableInterrupts() }

// InterruptsEnabled implements InterruptFlag.
func (Native) InterruptsEnabled() bool { return InterruptsEnabled() }

// WithoutInterrupts invokes fn with interrupt delivery disabled. If
// interrupts were enabled on entry they are re-enabled once fn returns, so
// calls can be nested and can be made from trap context where delivery is
// already off.
func WithoutInterrupts(flag InterruptFlag, fn func()) {
	wasEnabled := flag.InterruptsEnabled()
	if wasEnabled {
		flag.DisableInterrupts()
	}

	fn()

	if wasEnabled {
		flag.EnableInterrupts()
	}
}

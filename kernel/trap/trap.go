// Package trap wires the trap-vector table, the chained PICs and the
// keyboard decoder together and implements the kernel's trap handlers.
package trap

import (
	"gopherirq/device/keyboard"
	"gopherirq/device/pic"
	"gopherirq/kernel"
	"gopherirq/kernel/cpu"
	"gopherirq/kernel/gate"
	"gopherirq/kernel/hal"
	"gopherirq/kernel/kfmt"
	"gopherirq/kernel/sync"
	"io"
	"sync/atomic"
)

// PIC lines and their vector mapping.
const (
	MasterOffset uint8 = 32
	SlaveOffset  uint8 = MasterOffset + pic.LinesPerController

	TimerLine    uint8 = 0
	KeyboardLine uint8 = 1

	TimerVector    = gate.InterruptNumber(MasterOffset + TimerLine)
	KeyboardVector = gate.InterruptNumber(MasterOffset + KeyboardLine)

	// KeyboardDataPort is the PS/2 controller data port.
	KeyboardDataPort uint16 = 0x60
)

var (
	errAlreadyInitialized = &kernel.Error{Module: "trap", Message: "dispatcher already initialized"}

	trapPrefix = []byte("[trap] ")
	picPrefix  = []byte("[pic] ")
)

// Machine abstracts the CPU facilities the dispatcher depends on.
type Machine interface {
	cpu.Ports
	cpu.InterruptFlag

	// Activate makes t the trap-vector table consulted by the CPU.
	Activate(t *gate.Table) *kernel.Error
}

// InterruptController acknowledges and masks the hardware interrupt lines
// routed to the CPU.
type InterruptController interface {
	Unmask(line uint8)
	Init() *kernel.Error
	Masks() (master, slave uint8)
	Acknowledge(vector uint8)
}

// Console is the output device used by the trap handlers. Every method must
// be safe to call from trap context.
type Console interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

// Dispatcher owns the trap-vector table, the controller state and the
// keyboard decoder state. A Dispatcher needs no heap allocations once it
// has been attached, so the kernel keeps it in a package-level variable.
type Dispatcher struct {
	machine Machine
	cons    Console
	cfg     hal.Config

	table   gate.Table
	chained pic.ChainedPICs
	pics    InterruptController

	kbdLock sync.Spinlock
	kbd     keyboard.Keyboard

	trapLog, picLog kfmt.PrefixWriter

	// dump collects the breakpoint report so that it reaches the console
	// with a single write.
	dump dumpBuffer

	ticks                  uint64
	installed, initialized bool
}

// active is the dispatcher whose table was most recently installed. The
// gate handlers are plain functions that forward to it; binding method
// values to the table would allocate a closure per handler.
var active *Dispatcher

// Attach resets d to an uninitialized dispatcher that drives the hardware
// exposed by machine and reports to cons.
func (d *Dispatcher) Attach(machine Machine, cons Console, cfg hal.Config) *kernel.Error {
	if err := d.chained.Configure(machine, MasterOffset, SlaveOffset); err != nil {
		return err
	}

	d.machine = machine
	d.cons = cons
	d.cfg = cfg
	d.table = gate.Table{}
	d.pics = &d.chained
	d.kbdLock.Acquire()
	d.kbd.Init(cfg.KeyboardCtrl)
	d.kbdLock.Release()
	d.dump.Reset()
	atomic.StoreUint64(&d.ticks, 0)
	d.installed, d.initialized = false, false
	return nil
}

// Init installs the trap handlers, programs the interrupt controllers and
// enables interrupt delivery, in that order. Progress is logged to w. If any
// step fails, interrupts stay disabled.
func (d *Dispatcher) Init(w io.Writer) *kernel.Error {
	if d.initialized {
		return errAlreadyInitialized
	}

	d.trapLog = kfmt.PrefixWriter{Sink: w, Prefix: trapPrefix}
	d.picLog = kfmt.PrefixWriter{Sink: w, Prefix: picPrefix}

	if err := d.buildTable(&d.table); err != nil {
		return err
	}

	// The handlers must find d as soon as the CPU can reach them.
	prev := active
	active = d
	if err := d.machine.Activate(&d.table); err != nil {
		active = prev
		return err
	}
	d.installed = true
	kfmt.Fprintf(&d.trapLog, "installed %d gates\n", d.table.Count())

	d.pics.Unmask(TimerLine)
	d.pics.Unmask(KeyboardLine)
	if err := d.pics.Init(); err != nil {
		return err
	}
	master, slave := d.pics.Masks()
	kfmt.Fprintf(&d.picLog, "initialized (offsets %d/%d, masks %#2x/%#2x)\n", MasterOffset, SlaveOffset, master, slave)

	d.initialized = true
	d.machine.EnableInterrupts()
	return nil
}

// buildTable populates the breakpoint, timer and keyboard slots of table.
func (d *Dispatcher) buildTable(table *gate.Table) *kernel.Error {
	if err := table.Set(gate.Breakpoint, 0, breakpointHandler); err != nil {
		return err
	}
	if err := table.Set(TimerVector, 0, timerHandler); err != nil {
		return err
	}
	return table.Set(KeyboardVector, 0, keyboardHandler)
}

// Table returns the active trap-vector table or nil if Init has not been
// called yet.
func (d *Dispatcher) Table() *gate.Table {
	if !d.installed {
		return nil
	}
	return &d.table
}

// PICs returns the interrupt controller pair driven by the dispatcher.
func (d *Dispatcher) PICs() InterruptController {
	return d.pics
}

// Ticks returns the number of timer interrupts serviced so far.
func (d *Dispatcher) Ticks() uint64 {
	return atomic.LoadUint64(&d.ticks)
}

func breakpointHandler(regs *gate.Registers) { active.handleBreakpoint(regs) }
func timerHandler(regs *gate.Registers)      { active.handleTimer(regs) }
func keyboardHandler(regs *gate.Registers)   { active.handleKeyboard(regs) }

func (d *Dispatcher) handleBreakpoint(regs *gate.Registers) {
	d.dump.Reset()
	kfmt.Fprintf(&d.dump, "Hit a breakpoint!\n")
	regs.DumpTo(&d.dump)
	d.cons.Write(d.dump.Bytes())
}

func (d *Dispatcher) handleTimer(_ *gate.Registers) {
	defer d.pics.Acknowledge(uint8(TimerVector))

	atomic.AddUint64(&d.ticks, 1)
	if d.cfg.TimerTicks {
		d.cons.WriteByte(d.cfg.TickChar)
	}
}

func (d *Dispatcher) handleKeyboard(_ *gate.Registers) {
	defer d.pics.Acknowledge(uint8(KeyboardVector))

	scancode := d.machine.PortReadByte(KeyboardDataPort)

	d.kbdLock.Acquire()
	key, ok := d.decodeScancode(scancode)
	d.kbdLock.Release()

	if !ok {
		return
	}

	switch {
	case key.Kind == keyboard.DecodedRawKey:
		d.cons.WriteString(key.Key.String())
	case key.Rune < 0x80:
		d.cons.WriteByte(byte(key.Rune))
	default:
		d.cons.WriteByte('?')
	}
}

// decodeScancode feeds b to the keyboard decoder and resolves the resulting
// key event, if any. The keyboard lock must be held.
func (d *Dispatcher) decodeScancode(b byte) (keyboard.DecodedKey, bool) {
	ev, ok := d.kbd.AddByte(b)
	if !ok {
		return keyboard.DecodedKey{}, false
	}

	return d.kbd.ProcessKeyEvent(ev)
}

// dumpBuffer is a fixed-size io.Writer. Bytes that do not fit are dropped.
type dumpBuffer struct {
	buf [1024]byte
	n   int
}

func (b *dumpBuffer) Write(p []byte) (int, error) {
	n := copy(b.buf[b.n:], p)
	b.n += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Bytes returns the buffered bytes.
func (b *dumpBuffer) Bytes() []byte {
	return b.buf[:b.n]
}

// Reset empties the buffer.
func (b *dumpBuffer) Reset() {
	b.n = 0
}

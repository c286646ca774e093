// Package pic drives the two cascaded 8259A programmable interrupt
// controllers of a PC.
package pic

import (
	"gopherirq/kernel"
	"gopherirq/kernel/cpu"
	"gopherirq/kernel/sync"
)

// I/O ports of the master and slave controllers.
const (
	MasterCommandPort uint16 = 0x20
	MasterDataPort    uint16 = 0x21
	SlaveCommandPort  uint16 = 0xa0
	SlaveDataPort     uint16 = 0xa1

	// waitPort is an unused port; writing to it gives the controllers
	// time to process the previous command on older hardware.
	waitPort uint16 = 0x80
)

const (
	cmdInit           uint8 = 0x11 // ICW1: start init sequence, ICW4 follows
	cmdEndOfInterrupt uint8 = 0x20 // OCW2: non-specific EOI
	mode8086          uint8 = 0x01 // ICW4: 8086/88 mode

	// cascadeLine is the master line the slave is wired to.
	cascadeLine uint8 = 2

	// LinesPerController is the number of interrupt lines per 8259A.
	LinesPerController uint8 = 8
)

var (
	errAlreadyInitialized = &kernel.Error{Module: "pic", Message: "controllers already initialized"}
	errOverlappingOffsets = &kernel.Error{Module: "pic", Message: "slave vector range must follow the master range"}
)

// Controller describes one 8259A chip.
type Controller struct {
	offset  uint8
	command uint16
	data    uint16
}

// HandlesInterrupt returns true if vector falls inside the range of vectors
// that this controller is mapped to.
func (c *Controller) HandlesInterrupt(vector uint8) bool {
	return c.offset <= vector && vector < c.offset+LinesPerController
}

// ChainedPICs models the master/slave controller pair. Lines 0-7 belong to
// the master and lines 8-15 to the slave. All lines start out masked.
type ChainedPICs struct {
	lock  sync.Spinlock
	ports cpu.Ports

	master, slave Controller

	// Interrupt mask registers; a set bit masks the line.
	masterMask, slaveMask uint8
	initialized           bool
}

// Configure resets p to an uninitialized controller pair mapped to the
// supplied vector offsets with all lines masked. The slave range must start
// at or after the end of the master range and must not wrap around.
func (p *ChainedPICs) Configure(ports cpu.Ports, masterOffset, slaveOffset uint8) *kernel.Error {
	if uint16(slaveOffset) < uint16(masterOffset)+uint16(LinesPerController) ||
		uint16(slaveOffset)+uint16(LinesPerController) > 256 {
		return errOverlappingOffsets
	}

	p.lock.Acquire()
	p.ports = ports
	p.master = Controller{offset: masterOffset, command: MasterCommandPort, data: MasterDataPort}
	p.slave = Controller{offset: slaveOffset, command: SlaveCommandPort, data: SlaveDataPort}
	p.masterMask, p.slaveMask = 0xff, 0xff
	p.initialized = false
	p.lock.Release()
	return nil
}

// Init runs the initialization sequence on both controllers, remapping them
// to their configured offsets and applying the current line masks. It must
// be called exactly once, after the trap-vector table is active and before
// interrupts are enabled.
func (p *ChainedPICs) Init() *kernel.Error {
	p.lock.Acquire()
	defer p.lock.Release()

	if p.initialized {
		return errAlreadyInitialized
	}

	// ICW1
	p.write(p.master.command, cmdInit)
	p.write(p.slave.command, cmdInit)

	// ICW2: vector offsets
	p.write(p.master.data, p.master.offset)
	p.write(p.slave.data, p.slave.offset)

	// ICW3: the master gets a bitmask of the line the slave is attached
	// to, the slave gets its cascade identity.
	p.write(p.master.data, 1<<cascadeLine)
	p.write(p.slave.data, cascadeLine)

	// ICW4
	p.write(p.master.data, mode8086)
	p.write(p.slave.data, mode8086)

	p.initialized = true
	p.applyMasks()
	return nil
}

// Unmask enables delivery for the given line (0-15). Unmasking a slave line
// also unmasks the cascade line on the master.
func (p *ChainedPICs) Unmask(line uint8) {
	p.lock.Acquire()
	defer p.lock.Release()

	switch {
	case line < LinesPerController:
		p.masterMask &^= 1 << line
	case line < 2*LinesPerController:
		p.slaveMask &^= 1 << (line - LinesPerController)
		p.masterMask &^= 1 << cascadeLine
	default:
		return
	}

	p.applyMasks()
}

// Masks returns the master and slave interrupt mask registers.
func (p *ChainedPICs) Masks() (master, slave uint8) {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.masterMask, p.slaveMask
}

// HandlesInterrupt returns true if vector is routed through either
// controller.
func (p *ChainedPICs) HandlesInterrupt(vector uint8) bool {
	return p.master.HandlesInterrupt(vector) || p.slave.HandlesInterrupt(vector)
}

// Acknowledge signals the end of the interrupt with the given vector so
// that its line can fire again. Interrupts routed through the slave need an
// EOI on both controllers. Vectors not handled by either controller are
// ignored.
func (p *ChainedPICs) Acknowledge(vector uint8) {
	if !p.HandlesInterrupt(vector) {
		return
	}

	p.lock.Acquire()
	if p.slave.HandlesInterrupt(vector) {
		p.ports.PortWriteByte(p.slave.command, cmdEndOfInterrupt)
	}
	p.ports.PortWriteByte(p.master.command, cmdEndOfInterrupt)
	p.lock.Release()
}

// applyMasks programs the mask registers if the controllers have been
// initialized. The lock must be held.
func (p *ChainedPICs) applyMasks() {
	if !p.initialized {
		return
	}

	p.ports.PortWriteByte(p.master.data, p.masterMask)
	p.ports.PortWriteByte(p.slave.data, p.slaveMask)
}

// write sends a byte to port followed by an I/O delay.
func (p *ChainedPICs) write(port uint16, val uint8) {
	p.ports.PortWriteByte(port, val)
	p.ports.PortWriteByte(waitPort, 0)
}

package main

import (
	"gopherirq/kernel"
	"gopherirq/kernel/gate"
	"gopherirq/kernel/trap"
)

// Register values reported to handlers for simulated interrupts.
const (
	simRIP    = 0x10a2f0
	simRSP    = 0x1ffe40
	simRFlags = 0x202
	simCS     = 0x08
	simSS     = 0x10
)

// simPIC models the parts of an 8259A that the kernel driver touches: the
// initialization sequence, the interrupt mask register and the in-service
// register.
type simPIC struct {
	offset   uint8
	mask     uint8
	isr      uint8
	initStep int
}

func (p *simPIC) writeCommand(val uint8) {
	switch {
	case val&0x10 != 0: // ICW1
		p.initStep = 1
		p.isr = 0
	case val == 0x20: // non-specific EOI
		p.isr &= p.isr - 1
	}
}

func (p *simPIC) writeData(val uint8) {
	switch p.initStep {
	case 1: // ICW2
		p.offset = val
		p.initStep++
	case 2: // ICW3
		p.initStep++
	case 3: // ICW4
		p.initStep = 0
	default:
		p.mask = val
	}
}

// simMachine implements trap.Machine on top of a pair of simulated PICs and
// a simulated PS/2 data port. It is driven from a single goroutine.
type simMachine struct {
	enabled bool
	table   *gate.Table

	master, slave simPIC

	kbdData uint8

	// Interrupts dropped because their line was masked, still in service
	// or interrupts were disabled.
	dropped int
	eois    int
}

func newSimMachine() *simMachine {
	return &simMachine{
		master: simPIC{mask: 0xff},
		slave:  simPIC{mask: 0xff},
	}
}

func (m *simMachine) PortReadByte(port uint16) uint8 {
	switch port {
	case 0x60:
		return m.kbdData
	case 0x21:
		return m.master.mask
	case 0xa1:
		return m.slave.mask
	}
	return 0xff
}

func (m *simMachine) PortWriteByte(port uint16, val uint8) {
	switch port {
	case 0x20:
		if val == 0x20 {
			m.eois++
		}
		m.master.writeCommand(val)
	case 0x21:
		m.master.writeData(val)
	case 0xa0:
		m.slave.writeCommand(val)
	case 0xa1:
		m.slave.writeData(val)
	}
}

func (m *simMachine) EnableInterrupts()       { m.enabled = true }
func (m *simMachine) DisableInterrupts()      { m.enabled = false }
func (m *simMachine) InterruptsEnabled() bool { return m.enabled }

// Activate records t as the table used for dispatching. A hosted process
// cannot execute LIDT so the table is not loaded into the CPU.
func (m *simMachine) Activate(t *gate.Table) *kernel.Error {
	m.table = t
	return nil
}

// raise asserts a master PIC line. It returns false if the interrupt could not
// be delivered.
func (m *simMachine) raise(line uint8) bool {
	bit := uint8(1) << line
	if !m.enabled || m.table == nil || m.master.mask&bit != 0 || m.master.isr&bit != 0 {
		m.dropped++
		return false
	}

	m.master.isr |= bit
	m.trap(uint64(m.master.offset + line))
	return true
}

// pressKey latches b into the keyboard data port and raises the keyboard
// line.
func (m *simMachine) pressKey(b uint8) bool {
	m.kbdData = b
	return m.raise(trap.KeyboardLine)
}

// exception raises a CPU exception. Exceptions are delivered regardless of
// the interrupt flag.
func (m *simMachine) exception(num gate.InterruptNumber) {
	if m.table != nil {
		m.trap(uint64(num))
	}
}

// trap emulates an interrupt gate: IF is cleared while the handler runs and
// restored by IRETQ.
func (m *simMachine) trap(vector uint64) {
	prev := m.enabled
	m.enabled = false
	m.table.Dispatch(&gate.Registers{
		Info:   vector,
		RIP:    simRIP,
		CS:     simCS,
		RFlags: simRFlags,
		RSP:    simRSP,
		SS:     simSS,
	})
	m.enabled = prev
}

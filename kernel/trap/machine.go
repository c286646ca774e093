package trap

import (
	"gopherirq/kernel"
	"gopherirq/kernel/cpu"
	"gopherirq/kernel/gate"
)

// NativeMachine drives the real CPU.
type NativeMachine struct {
	cpu.Native
}

// Activate loads t into the CPU via LIDT.
func (NativeMachine) Activate(t *gate.Table) *kernel.Error {
	return t.Load()
}

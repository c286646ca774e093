package main

import (
	"fmt"
	"gopherirq/device/keyboard"
	"gopherirq/device/video/console"
	"gopherirq/kernel/gate"
	"gopherirq/kernel/hal"
	"gopherirq/kernel/kfmt"
	"gopherirq/kernel/kmain"
	"gopherirq/kernel/trap"
	"io"
	"time"
)

// exitKey (Ctrl+]) ends an interactive session.
const exitKey = 0x1d

// simulator boots the kernel's interrupt layer on a simMachine and a
// slice-backed text console.
type simulator struct {
	machine *simMachine
	cons    *console.VgaTextConsole
	disp    *trap.Dispatcher

	out, errOut io.Writer
}

func newSimulator(cmdLine string, out, errOut io.Writer) (*simulator, error) {
	halLog := kfmt.PrefixWriter{Sink: errOut, Prefix: []byte("[hal] ")}
	cfg := hal.ParseConfig(cmdLine, &halLog)

	// Boot log output must reach the new terminal, not a sink left over
	// from an earlier session.
	kfmt.SetOutputSink(nil)

	machine := newSimMachine()
	fb := make([]uint16, console.DefaultColumns*console.DefaultRows)
	cons := console.NewVgaTextConsoleFromBuffer(console.DefaultColumns, console.DefaultRows, fb)

	disp, _, err := kmain.Boot(machine, cons, cfg)
	if err != nil {
		return nil, fmt.Errorf("trapsim: boot failed: [%s] %s", err.Module, err.Message)
	}

	sim := &simulator{
		machine: machine,
		cons:    cons,
		disp:    disp,
		out:     out,
		errOut:  errOut,
	}

	if cfg.Breakpoint {
		sim.breakpoint()
	}
	return sim, nil
}

// typeRune translates r into the scancode set 1 bytes a keyboard would send
// for it, including any modifier presses, and raises one keyboard interrupt
// per byte. It returns false if r cannot be typed on a US 104-key keyboard.
func (s *simulator) typeRune(r rune) bool {
	code, shift, ctrl, ok := keyboard.RuneToKey(r)
	if !ok {
		return false
	}

	var seq []byte
	add := func(kc keyboard.KeyCode, state keyboard.KeyState) {
		seq = append(seq, keyboard.EncodeSet1(keyboard.KeyEvent{Code: kc, State: state})...)
	}

	if ctrl {
		add(keyboard.KeyControlLeft, keyboard.KeyDown)
	}
	if shift {
		add(keyboard.KeyShiftLeft, keyboard.KeyDown)
	}
	add(code, keyboard.KeyDown)
	add(code, keyboard.KeyUp)
	if shift {
		add(keyboard.KeyShiftLeft, keyboard.KeyUp)
	}
	if ctrl {
		add(keyboard.KeyControlLeft, keyboard.KeyUp)
	}

	for _, b := range seq {
		s.machine.pressKey(b)
	}
	return true
}

// sendScancodes raises one keyboard interrupt per raw scancode byte.
func (s *simulator) sendScancodes(seq ...byte) {
	for _, b := range seq {
		s.machine.pressKey(b)
	}
}

func (s *simulator) tick() {
	s.machine.raise(trap.TimerLine)
}

func (s *simulator) breakpoint() {
	s.machine.exception(gate.Breakpoint)
}

// runScript types input, fires the requested number of timer interrupts and
// prints the final screen. With frames set, the screen is also printed after
// every typed line.
func (s *simulator) runScript(input []byte, ticks int, frames bool) error {
	for _, r := range string(input) {
		s.typeRune(r)

		if frames && r == '\n' {
			if err := s.printFrame(); err != nil {
				return err
			}
		}
	}

	for i := 0; i < ticks; i++ {
		s.tick()
	}

	return renderText(s.out, s.cons)
}

func (s *simulator) printFrame() error {
	if err := renderText(s.out, s.cons); err != nil {
		return err
	}
	_, err := io.WriteString(s.out, "--\n")
	return err
}

// runInteractive forwards the keys typed on the host terminal to the kernel
// and fires the timer every interval until exitKey is pressed or, if ticks
// is positive, the requested number of ticks has been serviced.
func (s *simulator) runInteractive(host *stdinHost, interval time.Duration, ticks int) error {
	if err := host.Start(s.errOut); err != nil {
		return err
	}
	defer host.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	io.WriteString(s.out, "\x1b[2J")
	if err := renderANSI(s.out, s.cons); err != nil {
		return err
	}

	for {
		select {
		case b := <-host.Keys():
			switch b {
			case exitKey:
				return nil
			case '\r':
				b = '\n'
			case 0x7f:
				// Terminals send DEL for the backspace key
				b = 0x08
			}
			s.typeRune(rune(b))
		case <-ticker.C:
			s.tick()
		}

		if err := renderANSI(s.out, s.cons); err != nil {
			return err
		}

		if ticks > 0 && s.disp.Ticks() >= uint64(ticks) {
			return nil
		}
	}
}

// summary reports the interrupt statistics of the session.
func (s *simulator) summary(w io.Writer) {
	fmt.Fprintf(w, "ticks=%d eoi=%d dropped=%d\n", s.disp.Ticks(), s.machine.eois, s.machine.dropped)
}

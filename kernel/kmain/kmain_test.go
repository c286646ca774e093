package kmain

import (
	"gopherirq/device/video/console"
	"gopherirq/kernel"
	"gopherirq/kernel/gate"
	"gopherirq/kernel/hal"
	"gopherirq/kernel/kfmt"
	"gopherirq/kernel/trap"
	"io"
	"reflect"
	"strings"
	"testing"
)

type mockMachine struct {
	enabled  bool
	stiCount int
}

func (m *mockMachine) PortReadByte(uint16) uint8          { return 0 }
func (m *mockMachine) PortWriteByte(uint16, uint8)        {}
func (m *mockMachine) DisableInterrupts()                 { m.enabled = false }
func (m *mockMachine) InterruptsEnabled() bool            { return m.enabled }
func (m *mockMachine) Activate(*gate.Table) *kernel.Error { return nil }

func (m *mockMachine) EnableInterrupts() {
	m.enabled = true
	m.stiCount++
}

func newTestConsole() *console.VgaTextConsole {
	fb := make([]uint16, console.DefaultColumns*console.DefaultRows)
	return console.NewVgaTextConsoleFromBuffer(console.DefaultColumns, console.DefaultRows, fb)
}

func rowText(cons console.Device, row uint32) string {
	w, _ := cons.Dimensions()
	var sb strings.Builder
	for col := uint32(0); col < w; col++ {
		ch, _ := cons.Cell(col, row)
		sb.WriteByte(ch)
	}
	return strings.TrimRight(sb.String(), "\x00")
}

// resetOutputSink drops any buffered kfmt output and detaches the sink.
func resetOutputSink() {
	kfmt.SetOutputSink(io.Discard)
	kfmt.SetOutputSink(nil)
}

func TestBoot(t *testing.T) {
	defer resetOutputSink()
	resetOutputSink()

	m := &mockMachine{}
	cons := newTestConsole()
	cfg := hal.DefaultConfig()
	cfg.ConsoleFg, cfg.ConsoleBg = console.LightGreen, console.Blue

	d, term, err := Boot(m, cons, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if !m.enabled || m.stiCount == 0 {
		t.Fatal("expected Boot to leave interrupts enabled")
	}

	if d.Table() == nil || d.Table().Count() != 3 {
		t.Fatal("expected Boot to install the trap handlers")
	}

	expRows := []string{
		"[trap] installed 3 gates",
		"[pic] initialized (offsets 32/40, masks 0xfc/0xff)",
		"Hello, World!",
	}
	for row, exp := range expRows {
		if got := rowText(cons, uint32(row)); got != exp {
			t.Errorf("expected row %d to contain %q; got %q", row, exp, got)
		}
	}

	if _, attr := cons.Cell(0, 2); attr != console.Attribute(console.LightGreen, console.Blue) {
		t.Errorf("expected the configured console colors to be used; got attribute 0x%x", attr)
	}

	if kfmt.GetOutputSink() != term.AtomicWriter() {
		t.Error("expected the terminal to become the kfmt output sink")
	}

	if d != &dispatcher || term != &terminal {
		t.Error("expected Boot to set up the statically allocated dispatcher and terminal")
	}
}

func TestBootDoesNotAllocate(t *testing.T) {
	defer resetOutputSink()
	resetOutputSink()

	m := &mockMachine{}
	cons := newTestConsole()
	cfg := hal.DefaultConfig()

	allocs := testing.AllocsPerRun(10, func() {
		if _, _, err := Boot(m, cons, cfg); err != nil {
			t.Fatal(err)
		}
	})

	if allocs != 0 {
		t.Fatalf("expected Boot not to allocate; got %v allocations", allocs)
	}
}

// flagCheckingConsole counts the cells written while interrupts are enabled.
type flagCheckingConsole struct {
	*console.VgaTextConsole
	m *mockMachine

	writes, writesWithIF int
}

func (c *flagCheckingConsole) Write(ch byte, fg, bg uint8, x, y uint32) {
	c.writes++
	if c.m.InterruptsEnabled() {
		c.writesWithIF++
	}
	c.VgaTextConsole.Write(ch, fg, bg, x, y)
}

func TestKfmtOutputAfterBootDisablesInterrupts(t *testing.T) {
	defer resetOutputSink()
	resetOutputSink()

	m := &mockMachine{}
	cons := &flagCheckingConsole{VgaTextConsole: newTestConsole(), m: m}

	if _, _, err := Boot(m, cons, hal.DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	cons.writes, cons.writesWithIF = 0, 0
	kfmt.Printf("[hal] late message %d\n", 42)

	if got := rowText(cons, 3); got != "[hal] late message 42" {
		t.Fatalf("expected the message on row 3; got %q", got)
	}

	if cons.writes == 0 || cons.writesWithIF != 0 {
		t.Fatalf("expected all %d cell writes to happen with interrupts disabled; %d did not", cons.writes, cons.writesWithIF)
	}

	if !m.InterruptsEnabled() {
		t.Fatal("expected interrupts to be re-enabled after kfmt.Printf")
	}
}

func TestKmain(t *testing.T) {
	defer func(origHalt func(), origPanic func(interface{}), origDetect func() *console.VgaTextConsole, origMachine trap.Machine) {
		cpuHaltLoopFn, panicFn, detectConsoleFn, machine = origHalt, origPanic, origDetect, origMachine
		resetOutputSink()
	}(cpuHaltLoopFn, panicFn, detectConsoleFn, machine)
	resetOutputSink()

	var (
		haltCalled bool
		panicArg   interface{}
		cons       = newTestConsole()
	)

	machine = &mockMachine{}
	detectConsoleFn = func() *console.VgaTextConsole { return cons }
	cpuHaltLoopFn = func() { haltCalled = true }
	panicFn = func(e interface{}) { panicArg = e }

	Kmain(0)

	if !haltCalled {
		t.Fatal("expected Kmain to enter the halt loop")
	}

	if err, ok := panicArg.(*kernel.Error); !ok || err != errKmainReturned {
		t.Fatalf("expected Kmain to panic with errKmainReturned if the halt loop returns; got %v", panicArg)
	}

	if got := rowText(cons, 2); got != "Hello, World!" {
		t.Fatalf("expected greeting on row 2; got %q", got)
	}
}

func TestKmainBreakpoint(t *testing.T) {
	defer func(origHalt, origBreakpoint func(), origPanic func(interface{}), origDetect func() *console.VgaTextConsole, origConfig func(io.Writer) hal.Config, origMachine trap.Machine) {
		cpuHaltLoopFn, breakpointFn, panicFn, detectConsoleFn, bootConfigFn, machine = origHalt, origBreakpoint, origPanic, origDetect, origConfig, origMachine
		resetOutputSink()
	}(cpuHaltLoopFn, breakpointFn, panicFn, detectConsoleFn, bootConfigFn, machine)

	for _, enabled := range []bool{false, true} {
		resetOutputSink()

		var (
			events []string
			cons   = newTestConsole()
		)

		machine = &mockMachine{}
		detectConsoleFn = func() *console.VgaTextConsole { return cons }
		bootConfigFn = func(io.Writer) hal.Config {
			cfg := hal.DefaultConfig()
			cfg.Breakpoint = enabled
			return cfg
		}
		breakpointFn = func() { events = append(events, "int3") }
		cpuHaltLoopFn = func() { events = append(events, "hlt") }
		panicFn = func(interface{}) {}

		Kmain(0)

		exp := []string{"hlt"}
		if enabled {
			exp = []string{"int3", "hlt"}
		}
		if !reflect.DeepEqual(events, exp) {
			t.Errorf("[int3=%t] expected events %v; got %v", enabled, exp, events)
		}
	}
}

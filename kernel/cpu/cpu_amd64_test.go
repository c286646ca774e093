package cpu

import "testing"

type mockFlag struct {
	enabled        bool
	enableCalls    int
	disabledInside bool
}

func (f *mockFlag) EnableInterrupts() {
	f.enabled = true
	f.enableCalls++
}
func (f *mockFlag) DisableInterrupts()      { f.enabled = false }
func (f *mockFlag) InterruptsEnabled() bool { return f.enabled }

func TestWithoutInterrupts(t *testing.T) {
	specs := []struct {
		enabledOnEntry bool
		expEnableCalls int
	}{
		{true, 1},
		{false, 0},
	}

	for specIndex, spec := range specs {
		flag := &mockFlag{enabled: spec.enabledOnEntry}

		WithoutInterrupts(flag, func() {
			flag.disabledInside = !flag.enabled
		})

		if !flag.disabledInside {
			t.Errorf("[spec %d] expected interrupts to be disabled while fn runs", specIndex)
		}

		if flag.enabled != spec.enabledOnEntry {
			t.Errorf("[spec %d] expected interrupt flag to be restored to %t; got %t", specIndex, spec.enabledOnEntry, flag.enabled)
		}

		if flag.enableCalls != spec.expEnableCalls {
			t.Errorf("[spec %d] expected EnableInterrupts to be called %d times; got %d", specIndex, spec.expEnableCalls, flag.enableCalls)
		}
	}
}

func TestWithoutInterruptsNested(t *testing.T) {
	flag := &mockFlag{enabled: true}

	WithoutInterrupts(flag, func() {
		WithoutInterrupts(flag, func() {})

		if flag.enabled {
			t.Fatal("expected inner WithoutInterrupts to leave interrupts disabled")
		}
	})

	if !flag.enabled {
		t.Fatal("expected outer WithoutInterrupts to re-enable interrupts")
	}
}

type haltLoopExit struct{}

func TestHaltLoop(t *testing.T) {
	defer func() {
		haltFn = Halt
	}()

	var halts int
	haltFn = func() {
		if halts++; halts == 3 {
			panic(haltLoopExit{})
		}
	}

	defer func() {
		if _, ok := recover().(haltLoopExit); !ok {
			t.Fatal("expected HaltLoop to keep halting")
		}

		if halts != 3 {
			t.Fatalf("expected 3 calls to halt; got %d", halts)
		}
	}()

	HaltLoop()
}

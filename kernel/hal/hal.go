// Package hal discovers the console hardware and the boot configuration
// supplied by the boot loader.
package hal

import (
	"gopherirq/device/keyboard"
	"gopherirq/device/video/console"
	"gopherirq/kernel/hal/multiboot"
	"gopherirq/kernel/kfmt"
	"io"
)

// Boot command line keys.
const (
	KeyConsoleFg    = "consoleFg"
	KeyConsoleBg    = "consoleBg"
	KeyTimerTicks   = "timerTicks"
	KeyTickChar     = "tickChar"
	KeyKeyboardCtrl = "kbdCtrl"
	KeyBreakpoint   = "int3"
)

// Config holds the settings that can be tuned via the boot command line.
type Config struct {
	// Console colors (0-15).
	ConsoleFg, ConsoleBg uint8

	// TimerTicks controls whether the timer handler prints TickChar on
	// every tick.
	TimerTicks bool
	TickChar   byte

	// KeyboardCtrl selects how Ctrl+letter combinations are decoded.
	KeyboardCtrl keyboard.HandleControl

	// Breakpoint requests a breakpoint exception right after boot.
	Breakpoint bool
}

// DefaultConfig returns the configuration used when the boot command line
// does not override anything.
func DefaultConfig() Config {
	return Config{
		ConsoleFg:    console.Red,
		ConsoleBg:    console.Black,
		TimerTicks:   true,
		TickChar:     '.',
		KeyboardCtrl: keyboard.HandleControlIgnore,
	}
}

// ParseConfig applies the recognized keys of a boot command line on top of
// the default configuration. Arguments are processed left to right so a
// repeated key keeps its last valid value. Invalid values are reported to w
// and ignored; unknown keys are skipped silently.
//
// ParseConfig does not allocate and can run before the kernel heap exists.
func ParseConfig(cmdLine string, w io.Writer) Config {
	cfg := DefaultConfig()

	for {
		k, v, rest, ok := multiboot.NextCmdLineArg(cmdLine)
		if !ok {
			break
		}
		cmdLine = rest

		switch k {
		case KeyConsoleFg, KeyConsoleBg:
			color, ok := parseColor(v)
			if !ok {
				kfmt.Fprintf(w, "ignoring invalid color %s=%s\n", k, v)
				continue
			}

			if k == KeyConsoleFg {
				cfg.ConsoleFg = color
			} else {
				cfg.ConsoleBg = color
			}
		case KeyTimerTicks:
			switch v {
			case "on", KeyTimerTicks:
				cfg.TimerTicks = true
			case "off":
				cfg.TimerTicks = false
			default:
				kfmt.Fprintf(w, "ignoring invalid value %s=%s\n", k, v)
			}
		case KeyTickChar:
			if len(v) != 1 {
				kfmt.Fprintf(w, "ignoring invalid value %s=%s\n", k, v)
				continue
			}
			cfg.TickChar = v[0]
		case KeyKeyboardCtrl:
			switch v {
			case "ignore":
				cfg.KeyboardCtrl = keyboard.HandleControlIgnore
			case "map":
				cfg.KeyboardCtrl = keyboard.HandleControlMapLettersToUnicode
			default:
				kfmt.Fprintf(w, "ignoring invalid value %s=%s\n", k, v)
			}
		case KeyBreakpoint:
			switch v {
			case "on", KeyBreakpoint:
				cfg.Breakpoint = true
			case "off":
				cfg.Breakpoint = false
			default:
				kfmt.Fprintf(w, "ignoring invalid value %s=%s\n", k, v)
			}
		}
	}

	return cfg
}

// parseColor parses a decimal or 0x-prefixed hex color index in the range
// 0-15.
func parseColor(v string) (uint8, bool) {
	base := uint8(10)
	if len(v) > 2 && v[0] == '0' && (v[1] == 'x' || v[1] == 'X') {
		base, v = 16, v[2:]
	}
	if len(v) == 0 {
		return 0, false
	}

	var color uint8
	for i := 0; i < len(v); i++ {
		var digit uint8
		switch ch := v[i]; {
		case ch >= '0' && ch <= '9':
			digit = ch - '0'
		case base == 16 && ch >= 'a' && ch <= 'f':
			digit = ch - 'a' + 10
		case base == 16 && ch >= 'A' && ch <= 'F':
			digit = ch - 'A' + 10
		default:
			return 0, false
		}

		color = color*base + digit
		if color > 15 {
			return 0, false
		}
	}

	return color, true
}

// BootConfig parses the command line passed in by the boot loader.
func BootConfig(w io.Writer) Config {
	return ParseConfig(multiboot.GetBootCmdLine(), w)
}

// vgaConsole is the boot console returned by DetectConsole.
var vgaConsole console.VgaTextConsole

// DetectConsole returns a text console for the framebuffer set up by the boot
// loader. If the boot loader did not report an EGA text framebuffer, the
// standard VGA text buffer is used. Every call reinitializes and returns the
// same statically allocated console.
func DetectConsole() *console.VgaTextConsole {
	fbInfo := multiboot.GetFramebufferInfo()
	if fbInfo == nil || fbInfo.Type != multiboot.FramebufferTypeEGA ||
		fbInfo.Width == 0 || fbInfo.Height == 0 {
		vgaConsole.Init(console.DefaultColumns, console.DefaultRows, console.DefaultFramebufferAddr)
	} else {
		vgaConsole.Init(fbInfo.Width, fbInfo.Height, uintptr(fbInfo.PhysAddr))
	}

	return &vgaConsole
}

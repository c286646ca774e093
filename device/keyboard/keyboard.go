// Package keyboard decodes PS/2 keyboard scancodes into key events and
// resolves key events to characters using the US 104-key layout.
package keyboard

// HandleControl selects how letter keys are resolved while Ctrl is held.
type HandleControl uint8

const (
	// HandleControlIgnore resolves Ctrl+letter like the plain letter.
	HandleControlIgnore HandleControl = iota

	// HandleControlMapLettersToUnicode resolves Ctrl+A..Ctrl+Z to the
	// control codes 0x01..0x1a.
	HandleControlMapLettersToUnicode
)

// DecodedKind distinguishes characters from keys reported by name.
type DecodedKind uint8

// The supported decoded key kinds.
const (
	DecodedRune DecodedKind = iota
	DecodedRawKey
)

// DecodedKey is the result of resolving a key press. Printable keys carry a
// Rune; keys without a character representation carry their KeyCode.
type DecodedKey struct {
	Kind DecodedKind
	Rune rune
	Key  KeyCode
}

// Modifiers tracks the state of the modifier and lock keys.
type Modifiers struct {
	LShift, RShift bool
	LCtrl, RCtrl   bool
	Alt, AltGr     bool
	CapsLock       bool
	NumLock        bool
}

// IsShifted returns true if either shift key is held.
func (m *Modifiers) IsShifted() bool { return m.LShift || m.RShift }

// IsCtrl returns true if either control key is held.
func (m *Modifiers) IsCtrl() bool { return m.LCtrl || m.RCtrl }

// Keyboard combines a scancode set 1 decoder with modifier tracking and the
// US 104-key layout.
type Keyboard struct {
	decoder ScancodeSet1
	mods    Modifiers
	ctrl    HandleControl
}

// Init resets the decoder state of k and sets up the modifiers with NumLock
// enabled and everything else released.
func (k *Keyboard) Init(ctrl HandleControl) {
	*k = Keyboard{
		mods: Modifiers{NumLock: true},
		ctrl: ctrl,
	}
}

// AddByte feeds a raw scancode byte to the decoder; see ScancodeSet1.AddByte.
func (k *Keyboard) AddByte(b byte) (KeyEvent, bool) {
	return k.decoder.AddByte(b)
}

// Pending returns true if a multi-byte scancode sequence is in progress.
func (k *Keyboard) Pending() bool {
	return k.decoder.Pending()
}

// Modifiers returns a copy of the current modifier state.
func (k *Keyboard) Modifiers() Modifiers {
	return k.mods
}

// ProcessKeyEvent updates the modifier state and resolves key presses. Key
// releases and presses of modifier or lock keys update state only and yield
// false.
func (k *Keyboard) ProcessKeyEvent(ev KeyEvent) (DecodedKey, bool) {
	down := ev.State == KeyDown

	switch ev.Code {
	case KeyShiftLeft:
		k.mods.LShift = down
	case KeyShiftRight:
		k.mods.RShift = down
	case KeyControlLeft:
		k.mods.LCtrl = down
	case KeyControlRight:
		k.mods.RCtrl = down
	case KeyAltLeft:
		k.mods.Alt = down
	case KeyAltRight:
		k.mods.AltGr = down
	case KeyCapsLock:
		if down {
			k.mods.CapsLock = !k.mods.CapsLock
		}
	case KeyNumpadLock:
		if down {
			k.mods.NumLock = !k.mods.NumLock
		}
	default:
		if !down {
			return DecodedKey{}, false
		}
		return mapUS104(ev.Code, &k.mods, k.ctrl), true
	}

	return DecodedKey{}, false
}

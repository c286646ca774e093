package keyboard

// KeyState describes whether a key was pressed or released.
type KeyState uint8

// The supported key states.
const (
	KeyUp KeyState = iota
	KeyDown
)

// KeyEvent is a single key transition reported by the keyboard.
type KeyEvent struct {
	Code  KeyCode
	State KeyState
}

// Scancode set 1 prefix and marker bytes.
const (
	set1Extended  byte = 0xe0
	set1Pause     byte = 0xe1
	set1BreakMask byte = 0x80

	// The fake shift codes that some keyboards wrap around extended keys
	// like PrintScreen.
	set1FakeShift = 0x2a
)

type decodeState uint8

const (
	stateStart decodeState = iota
	stateExtended
	statePause
	statePauseMake
	statePauseBreak
)

// set1Codes maps make codes without a prefix to key codes.
var set1Codes = [0x80]KeyCode{
	0x01: KeyEscape,
	0x02: Key1,
	0x03: Key2,
	0x04: Key3,
	0x05: Key4,
	0x06: Key5,
	0x07: Key6,
	0x08: Key7,
	0x09: Key8,
	0x0a: Key9,
	0x0b: Key0,
	0x0c: KeyMinus,
	0x0d: KeyEquals,
	0x0e: KeyBackspace,
	0x0f: KeyTab,
	0x10: KeyQ,
	0x11: KeyW,
	0x12: KeyE,
	0x13: KeyR,
	0x14: KeyT,
	0x15: KeyY,
	0x16: KeyU,
	0x17: KeyI,
	0x18: KeyO,
	0x19: KeyP,
	0x1a: KeyBracketSquareLeft,
	0x1b: KeyBracketSquareRight,
	0x1c: KeyEnter,
	0x1d: KeyControlLeft,
	0x1e: KeyA,
	0x1f: KeyS,
	0x20: KeyD,
	0x21: KeyF,
	0x22: KeyG,
	0x23: KeyH,
	0x24: KeyJ,
	0x25: KeyK,
	0x26: KeyL,
	0x27: KeySemiColon,
	0x28: KeyQuote,
	0x29: KeyBackTick,
	0x2a: KeyShiftLeft,
	0x2b: KeyBackSlash,
	0x2c: KeyZ,
	0x2d: KeyX,
	0x2e: KeyC,
	0x2f: KeyV,
	0x30: KeyB,
	0x31: KeyN,
	0x32: KeyM,
	0x33: KeyComma,
	0x34: KeyFullStop,
	0x35: KeySlash,
	0x36: KeyShiftRight,
	0x37: KeyNumpadStar,
	0x38: KeyAltLeft,
	0x39: KeySpacebar,
	0x3a: KeyCapsLock,
	0x3b: KeyF1,
	0x3c: KeyF2,
	0x3d: KeyF3,
	0x3e: KeyF4,
	0x3f: KeyF5,
	0x40: KeyF6,
	0x41: KeyF7,
	0x42: KeyF8,
	0x43: KeyF9,
	0x44: KeyF10,
	0x45: KeyNumpadLock,
	0x46: KeyScrollLock,
	0x47: KeyNumpad7,
	0x48: KeyNumpad8,
	0x49: KeyNumpad9,
	0x4a: KeyNumpadMinus,
	0x4b: KeyNumpad4,
	0x4c: KeyNumpad5,
	0x4d: KeyNumpad6,
	0x4e: KeyNumpadPlus,
	0x4f: KeyNumpad1,
	0x50: KeyNumpad2,
	0x51: KeyNumpad3,
	0x52: KeyNumpad0,
	0x53: KeyNumpadPeriod,
	0x57: KeyF11,
	0x58: KeyF12,
}

// set1ExtendedCodes maps make codes following an 0xe0 prefix to key codes.
var set1ExtendedCodes = [0x80]KeyCode{
	0x1c: KeyNumpadEnter,
	0x1d: KeyControlRight,
	0x35: KeyNumpadSlash,
	0x37: KeyPrintScreen,
	0x38: KeyAltRight,
	0x47: KeyHome,
	0x48: KeyArrowUp,
	0x49: KeyPageUp,
	0x4b: KeyArrowLeft,
	0x4d: KeyArrowRight,
	0x4f: KeyEnd,
	0x50: KeyArrowDown,
	0x51: KeyPageDown,
	0x52: KeyInsert,
	0x53: KeyDelete,
	0x5b: KeyWindowsLeft,
	0x5c: KeyWindowsRight,
	0x5d: KeyApps,
}

// ScancodeSet1 assembles raw bytes in IBM PC XT scancode set 1 into key
// events. Its zero value is ready to use.
type ScancodeSet1 struct {
	state decodeState
}

// AddByte feeds the next byte read from the keyboard data port to the
// decoder. It returns a key event and true once a complete sequence has been
// received. Bytes that are part of an unfinished multi-byte sequence, fake
// shifts and unknown codes yield false; an unexpected byte inside a
// multi-byte sequence discards the sequence.
func (s *ScancodeSet1) AddByte(b byte) (KeyEvent, bool) {
	switch s.state {
	case stateExtended:
		s.state = stateStart
		code := b &^ set1BreakMask
		if code == set1FakeShift {
			return KeyEvent{}, false
		}
		return makeEvent(set1ExtendedCodes[code], b)
	case statePause:
		switch b {
		case 0x1d:
			s.state = statePauseMake
		case 0x9d:
			s.state = statePauseBreak
		default:
			s.state = stateStart
		}
		return KeyEvent{}, false
	case statePauseMake, statePauseBreak:
		expected := byte(0x45)
		state := KeyDown
		if s.state == statePauseBreak {
			expected, state = 0xc5, KeyUp
		}

		s.state = stateStart
		if b != expected {
			return KeyEvent{}, false
		}
		return KeyEvent{Code: KeyPause, State: state}, true
	}

	switch b {
	case set1Extended:
		s.state = stateExtended
		return KeyEvent{}, false
	case set1Pause:
		s.state = statePause
		return KeyEvent{}, false
	}

	return makeEvent(set1Codes[b&^set1BreakMask], b)
}

// Pending returns true if the decoder is in the middle of a multi-byte
// sequence.
func (s *ScancodeSet1) Pending() bool {
	return s.state != stateStart
}

// Reset discards any partially received sequence.
func (s *ScancodeSet1) Reset() {
	s.state = stateStart
}

func makeEvent(code KeyCode, b byte) (KeyEvent, bool) {
	if code == KeyUnknown {
		return KeyEvent{}, false
	}

	state := KeyDown
	if b&set1BreakMask != 0 {
		state = KeyUp
	}
	return KeyEvent{Code: code, State: state}, true
}

// EncodeSet1 returns the scancode set 1 byte sequence that a keyboard sends
// for ev. It returns nil if the key has no set 1 encoding.
func EncodeSet1(ev KeyEvent) []byte {
	if ev.Code == KeyPause {
		if ev.State == KeyDown {
			return []byte{set1Pause, 0x1d, 0x45}
		}
		return []byte{set1Pause, 0x9d, 0xc5}
	}

	var breakBit byte
	if ev.State == KeyUp {
		breakBit = set1BreakMask
	}

	for code, kc := range set1Codes {
		if kc == ev.Code && kc != KeyUnknown {
			return []byte{byte(code) | breakBit}
		}
	}

	for code, kc := range set1ExtendedCodes {
		if kc == ev.Code && kc != KeyUnknown {
			return []byte{set1Extended, byte(code) | breakBit}
		}
	}

	return nil
}

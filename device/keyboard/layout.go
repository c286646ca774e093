package keyboard

// keyMapping holds the runes produced by a key without and with shift. A zero
// lower rune marks a key that is reported by name.
type keyMapping struct {
	lower, upper rune
}

// us104 is the US 104-key layout.
var us104 = [numKeyCodes]keyMapping{
	KeyEscape:             {0x1b, 0x1b},
	KeyBackTick:           {'`', '~'},
	Key1:                  {'1', '!'},
	Key2:                  {'2', '@'},
	Key3:                  {'3', '#'},
	Key4:                  {'4', '$'},
	Key5:                  {'5', '%'},
	Key6:                  {'6', '^'},
	Key7:                  {'7', '&'},
	Key8:                  {'8', '*'},
	Key9:                  {'9', '('},
	Key0:                  {'0', ')'},
	KeyMinus:              {'-', '_'},
	KeyEquals:             {'=', '+'},
	KeyBackspace:          {0x08, 0x08},
	KeyTab:                {'\t', '\t'},
	KeyQ:                  {'q', 'Q'},
	KeyW:                  {'w', 'W'},
	KeyE:                  {'e', 'E'},
	KeyR:                  {'r', 'R'},
	KeyT:                  {'t', 'T'},
	KeyY:                  {'y', 'Y'},
	KeyU:                  {'u', 'U'},
	KeyI:                  {'i', 'I'},
	KeyO:                  {'o', 'O'},
	KeyP:                  {'p', 'P'},
	KeyBracketSquareLeft:  {'[', '{'},
	KeyBracketSquareRight: {']', '}'},
	KeyBackSlash:          {'\\', '|'},
	KeyA:                  {'a', 'A'},
	KeyS:                  {'s', 'S'},
	KeyD:                  {'d', 'D'},
	KeyF:                  {'f', 'F'},
	KeyG:                  {'g', 'G'},
	KeyH:                  {'h', 'H'},
	KeyJ:                  {'j', 'J'},
	KeyK:                  {'k', 'K'},
	KeyL:                  {'l', 'L'},
	KeySemiColon:          {';', ':'},
	KeyQuote:              {'\'', '"'},
	KeyEnter:              {'\n', '\n'},
	KeyZ:                  {'z', 'Z'},
	KeyX:                  {'x', 'X'},
	KeyC:                  {'c', 'C'},
	KeyV:                  {'v', 'V'},
	KeyB:                  {'b', 'B'},
	KeyN:                  {'n', 'N'},
	KeyM:                  {'m', 'M'},
	KeyComma:              {',', '<'},
	KeyFullStop:           {'.', '>'},
	KeySlash:              {'/', '?'},
	KeySpacebar:           {' ', ' '},
	KeyDelete:             {0x7f, 0x7f},
	KeyNumpadSlash:        {'/', '/'},
	KeyNumpadStar:         {'*', '*'},
	KeyNumpadMinus:        {'-', '-'},
	KeyNumpadPlus:         {'+', '+'},
	KeyNumpadEnter:        {'\n', '\n'},
}

// numpadKey describes a numeric keypad key that depends on NumLock.
type numpadKey struct {
	digit rune

	// Key reported when NumLock is off. Zero for keys that still produce
	// a rune.
	nav    KeyCode
	navRun rune
}

var us104Numpad = [numKeyCodes]numpadKey{
	KeyNumpad0:      {digit: '0', nav: KeyInsert},
	KeyNumpad1:      {digit: '1', nav: KeyEnd},
	KeyNumpad2:      {digit: '2', nav: KeyArrowDown},
	KeyNumpad3:      {digit: '3', nav: KeyPageDown},
	KeyNumpad4:      {digit: '4', nav: KeyArrowLeft},
	KeyNumpad5:      {digit: '5', nav: KeyNumpad5},
	KeyNumpad6:      {digit: '6', nav: KeyArrowRight},
	KeyNumpad7:      {digit: '7', nav: KeyHome},
	KeyNumpad8:      {digit: '8', nav: KeyArrowUp},
	KeyNumpad9:      {digit: '9', nav: KeyPageUp},
	KeyNumpadPeriod: {digit: '.', navRun: 0x7f},
}

func isLetter(code KeyCode) bool {
	r := us104[code].lower
	return r >= 'a' && r <= 'z'
}

// mapUS104 resolves a key press to a DecodedKey using the US 104-key layout
// and the current modifier state.
func mapUS104(code KeyCode, mods *Modifiers, ctrl HandleControl) DecodedKey {
	if np := us104Numpad[code]; np.digit != 0 {
		switch {
		case mods.NumLock:
			return DecodedKey{Kind: DecodedRune, Rune: np.digit}
		case np.navRun != 0:
			return DecodedKey{Kind: DecodedRune, Rune: np.navRun}
		default:
			return DecodedKey{Kind: DecodedRawKey, Key: np.nav}
		}
	}

	m := us104[code]
	if m.lower == 0 {
		return DecodedKey{Kind: DecodedRawKey, Key: code}
	}

	if isLetter(code) {
		if ctrl == HandleControlMapLettersToUnicode && mods.IsCtrl() {
			return DecodedKey{Kind: DecodedRune, Rune: m.lower - 'a' + 1}
		}

		if mods.IsShifted() != mods.CapsLock {
			return DecodedKey{Kind: DecodedRune, Rune: m.upper}
		}
		return DecodedKey{Kind: DecodedRune, Rune: m.lower}
	}

	if mods.IsShifted() {
		return DecodedKey{Kind: DecodedRune, Rune: m.upper}
	}
	return DecodedKey{Kind: DecodedRune, Rune: m.lower}
}

// RuneToKey returns the key that produces r on the US 104-key layout and
// whether shift must be held. Control codes 0x01-0x1a other than the ones
// with a dedicated key are reported as Ctrl+letter combinations.
func RuneToKey(r rune) (code KeyCode, shift, ctrl, ok bool) {
	if r == '\r' {
		r = '\n'
	}

	for kc := KeyCode(0); kc < numKeyCodes; kc++ {
		if us104Numpad[kc].digit != 0 || kc == KeyNumpadSlash || kc == KeyNumpadStar ||
			kc == KeyNumpadMinus || kc == KeyNumpadPlus || kc == KeyNumpadEnter {
			continue
		}

		switch m := us104[kc]; {
		case m.lower == 0:
		case m.lower == r:
			return kc, false, false, true
		case m.upper == r:
			return kc, true, false, true
		}
	}

	if r >= 0x01 && r <= 0x1a {
		code, _, _, ok = RuneToKey(r - 1 + 'a')
		return code, false, ok, ok
	}

	return KeyUnknown, false, false, false
}

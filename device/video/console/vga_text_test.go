package console

import (
	"testing"
	"unsafe"
)

func newTestConsole(columns, rows uint32) (*VgaTextConsole, []uint16) {
	fb := make([]uint16, columns*rows)
	return NewVgaTextConsole(columns, rows, uintptr(unsafe.Pointer(&fb[0]))), fb
}

func TestVgaTextDimensions(t *testing.T) {
	var cons Device = NewVgaTextConsole(40, 50, 0)
	if w, h := cons.Dimensions(); w != 40 || h != 50 {
		t.Fatalf("expected console dimensions to be 40x50; got %dx%d", w, h)
	}
}

func TestVgaTextInitResetsState(t *testing.T) {
	var cons VgaTextConsole
	cons.Init(80, 25, 0)
	cons.SetDefaultColors(White, Blue)

	fb := make([]uint16, 4*2)
	cons.Init(4, 2, uintptr(unsafe.Pointer(&fb[0])))
	if w, h := cons.Dimensions(); w != 4 || h != 2 {
		t.Fatalf("expected console dimensions to be 4x2; got %dx%d", w, h)
	}

	if fg, bg := cons.DefaultColors(); fg != Red || bg != Black {
		t.Fatalf("expected Init to restore the default colors; got fg:%d, bg:%d", fg, bg)
	}

	cons.Write('x', White, Black, 3, 1)
	if fb[7]&0xff != 'x' {
		t.Fatalf("expected write to land in the new framebuffer; got 0x%x", fb[7])
	}
}

func TestVgaTextDefaultColors(t *testing.T) {
	cons := NewVgaTextConsole(80, 25, 0)
	if fg, bg := cons.DefaultColors(); fg != Red || bg != Black {
		t.Fatalf("expected console default colors to be fg:%d, bg:%d; got fg:%d, bg: %d", Red, Black, fg, bg)
	}

	cons.SetDefaultColors(White, Blue)
	if fg, bg := cons.DefaultColors(); fg != White || bg != Blue {
		t.Fatalf("expected console default colors to be fg:%d, bg:%d; got fg:%d, bg: %d", White, Blue, fg, bg)
	}

	// Invalid indices are ignored
	cons.SetDefaultColors(16, 200)
	if fg, bg := cons.DefaultColors(); fg != White || bg != Blue {
		t.Fatalf("expected invalid default colors to be ignored; got fg:%d, bg: %d", fg, bg)
	}
}

func TestAttribute(t *testing.T) {
	specs := []struct {
		fg, bg uint8
		exp    uint8
	}{
		{Red, Black, 0x04},
		{White, Blue, 0x1f},
		{LightGray, Red, 0x47},
		{0x1f, 0x2e, 0xef},
	}

	for specIndex, spec := range specs {
		if got := Attribute(spec.fg, spec.bg); got != spec.exp {
			t.Errorf("[spec %d] expected attribute 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}
}

func TestVgaTextFill(t *testing.T) {
	specs := []struct {
		// Input rect
		col, row, w, h uint32

		// Expected area to be cleared (inclusive)
		expStartCol, expStartRow, expEndCol, expEndRow uint32
	}{
		{
			0, 0, 500, 500,
			0, 0, 79, 24,
		},
		{
			9, 9, 11, 50,
			9, 9, 19, 24,
		},
		{
			9, 9, 110, 1,
			9, 9, 79, 9,
		},
		{
			0, 24, 80, 1,
			0, 24, 79, 24,
		},
		{
			79, 24, 1, 1,
			79, 24, 79, 24,
		},
	}

	cons, fb := newTestConsole(80, 25)
	cw, ch := cons.Dimensions()

	testPat := uint16(0xDEAD)
	clearPat := uint16(Attribute(Green, Blue)) << 8

nextSpec:
	for specIndex, spec := range specs {
		for i := 0; i < len(fb); i++ {
			fb[i] = testPat
		}

		cons.Fill(spec.col, spec.row, spec.w, spec.h, Green, Blue)

		for row := uint32(0); row < ch; row++ {
			for col := uint32(0); col < cw; col++ {
				fbVal := fb[row*cw+col]
				inside := col >= spec.expStartCol && col <= spec.expEndCol && row >= spec.expStartRow && row <= spec.expEndRow

				if inside && fbVal != clearPat {
					t.Errorf("[spec %d] expected cell (%d, %d) to be cleared", specIndex, col, row)
					continue nextSpec
				}

				if !inside && fbVal != testPat {
					t.Errorf("[spec %d] expected cell (%d, %d) not to be cleared", specIndex, col, row)
					continue nextSpec
				}
			}
		}
	}

	t.Run("off-screen origin", func(t *testing.T) {
		for i := 0; i < len(fb); i++ {
			fb[i] = testPat
		}

		cons.Fill(80, 0, 10, 10, 0, 0)
		cons.Fill(0, 25, 10, 10, 0, 0)

		for i := 0; i < len(fb); i++ {
			if fb[i] != testPat {
				t.Fatal("expected Fill with an off-screen origin to be a no-op")
			}
		}
	})
}

func TestVgaTextScroll(t *testing.T) {
	cons, fb := newTestConsole(80, 25)
	cw, ch := cons.Dimensions()

	fillPattern := func() {
		var index uint32
		for row := uint32(0); row < ch; row++ {
			for col := uint32(0); col < cw; col++ {
				fb[index] = uint16((row << 8) | col)
				index++
			}
		}
	}

	t.Run("up", func(t *testing.T) {
	nextSpec:
		for specIndex, lines := range []uint32{0, 1, 2} {
			fillPattern()
			cons.Scroll(ScrollDirUp, lines)

			for row := uint32(0); row < ch-lines; row++ {
				for col := uint32(0); col < cw; col++ {
					expVal := uint16(((row + lines) << 8) | col)
					if got := fb[row*cw+col]; got != expVal {
						t.Errorf("[spec %d] expected value at (%d, %d) to be %d; got %d", specIndex, col, row, expVal, got)
						continue nextSpec
					}
				}
			}
		}
	})

	t.Run("down", func(t *testing.T) {
	nextSpec:
		for specIndex, lines := range []uint32{0, 1, 2} {
			fillPattern()
			cons.Scroll(ScrollDirDown, lines)

			for row := lines; row < ch; row++ {
				for col := uint32(0); col < cw; col++ {
					expVal := uint16(((row - lines) << 8) | col)
					if got := fb[row*cw+col]; got != expVal {
						t.Errorf("[spec %d] expected value at (%d, %d) to be %d; got %d", specIndex, col, row, expVal, got)
						continue nextSpec
					}
				}
			}
		}
	})

	t.Run("more lines than height", func(t *testing.T) {
		fillPattern()
		cons.Scroll(ScrollDirUp, ch+1)

		if fb[0] != 0 || fb[len(fb)-1] != uint16(((ch-1)<<8)|(cw-1)) {
			t.Fatal("expected Scroll with lines > height to be a no-op")
		}
	})
}

func TestVgaTextWrite(t *testing.T) {
	cons, fb := newTestConsole(80, 25)
	defaultFg, defaultBg := cons.DefaultColors()

	clearFb := func() {
		for i := 0; i < len(fb); i++ {
			fb[i] = 0
		}
	}

	t.Run("off-screen", func(t *testing.T) {
		specs := []struct {
			col, row uint32
		}{
			{80, 25},
			{90, 24},
			{79, 30},
			{100, 100},
		}

	nextSpec:
		for specIndex, spec := range specs {
			clearFb()
			cons.Write('!', 1, 2, spec.col, spec.row)

			for i := 0; i < len(fb); i++ {
				if got := fb[i]; got != 0 {
					t.Errorf("[spec %d] expected Write() with off-screen coords to be a no-op", specIndex)
					continue nextSpec
				}
			}
		}
	})

	t.Run("success", func(t *testing.T) {
		clearFb()
		cons.Write('!', Blue, Green, 79, 24)

		expVal := uint16(Attribute(Blue, Green))<<8 | uint16('!')
		if got := fb[len(fb)-1]; got != expVal {
			t.Errorf("expected call to Write() to set the last cell to 0x%x; got 0x%x", expVal, got)
		}

		if ch, attr := cons.Cell(79, 24); ch != '!' || attr != Attribute(Blue, Green) {
			t.Errorf("expected Cell() to return ('!', 0x%x); got (%q, 0x%x)", Attribute(Blue, Green), ch, attr)
		}
	})

	t.Run("colors out of range", func(t *testing.T) {
		clearFb()
		cons.Write('!', 128, 16, 0, 0)

		if _, attr := cons.Cell(0, 0); attr != Attribute(defaultFg, defaultBg) {
			t.Errorf("expected out of range colors to be replaced by the defaults; got attribute 0x%x", attr)
		}
	})

	t.Run("cell off-screen", func(t *testing.T) {
		if ch, attr := cons.Cell(80, 0); ch != 0 || attr != 0 {
			t.Errorf("expected off-screen Cell() to return (0, 0); got (%d, %d)", ch, attr)
		}
	})
}

func TestVgaTextFromBuffer(t *testing.T) {
	fb := make([]uint16, 100)
	cons := NewVgaTextConsoleFromBuffer(8, 2, fb)

	cons.Write('Z', Yellow, Black, 7, 1)
	if exp := uint16(Attribute(Yellow, Black))<<8 | 'Z'; fb[15] != exp {
		t.Fatalf("expected cell 15 of the backing buffer to be 0x%x; got 0x%x", exp, fb[15])
	}

	// Cells past columns*rows are never touched
	cons.Fill(0, 0, 8, 2, White, Blue)
	if fb[16] != 0 {
		t.Fatalf("expected buffer cells outside the console to be left untouched; got 0x%x", fb[16])
	}
}

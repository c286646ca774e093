package console

import "unsafe"

const (
	// DefaultFramebufferAddr is the physical address of the VGA text mode
	// buffer.
	DefaultFramebufferAddr uintptr = 0xb8000

	// DefaultColumns and DefaultRows describe the dimensions of the VGA
	// text mode 0x3 grid.
	DefaultColumns uint32 = 80
	DefaultRows    uint32 = 25

	// numColors is the number of EGA colors an attribute nibble can select.
	numColors = 16
)

// EGA color indices.
const (
	Black uint8 = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// VgaTextConsole implements an EGA-compatible text console on top of the
// memory-mapped VGA text buffer.
//
// Each character in the console framebuffer is represented using two bytes,
// a byte for the character code and an attribute byte that encodes the
// background (high nibble) and foreground (low nibble) colors.
//
// VgaTextConsole performs no locking; callers serialize access.
type VgaTextConsole struct {
	width  uint32
	height uint32

	fb []uint16

	defaultFg uint8
	defaultBg uint8
	clearChar uint16
}

// NewVgaTextConsole creates a new vga text console with its framebuffer
// located at fbAddr. The kernel runs with an identity-mapped low memory
// region so the physical address of the text buffer is directly usable.
func NewVgaTextConsole(columns, rows uint32, fbAddr uintptr) *VgaTextConsole {
	cons := new(VgaTextConsole)
	cons.Init(columns, rows, fbAddr)
	return cons
}

// Init resets cons to a console of the given dimensions backed by the
// framebuffer at fbAddr. The kernel sets up its boot console this way since
// no allocator is available that early.
func (cons *VgaTextConsole) Init(columns, rows uint32, fbAddr uintptr) {
	*cons = VgaTextConsole{
		width:  columns,
		height: rows,
		// red text on black background
		defaultFg: Red,
		defaultBg: Black,
	}

	if fbAddr != 0 {
		cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(fbAddr)), columns*rows)
	}
}

// NewVgaTextConsoleFromBuffer creates a console that renders into fb instead
// of a physical framebuffer. fb must hold at least columns*rows cells.
func NewVgaTextConsoleFromBuffer(columns, rows uint32, fb []uint16) *VgaTextConsole {
	cons := NewVgaTextConsole(columns, rows, 0)
	cons.fb = fb[:columns*rows]
	return cons
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// DefaultColors returns the default foreground and background colors
// used by this console.
func (cons *VgaTextConsole) DefaultColors() (fg uint8, bg uint8) {
	return cons.defaultFg, cons.defaultBg
}

// SetDefaultColors overrides the colors that are used in place of invalid
// color indices.
func (cons *VgaTextConsole) SetDefaultColors(fg, bg uint8) {
	if fg < numColors {
		cons.defaultFg = fg
	}
	if bg < numColors {
		cons.defaultBg = bg
	}
}

// Fill sets the contents of the specified rectangular region to the clear
// character (0) using the requested colors.
func (cons *VgaTextConsole) Fill(col, row, width, height uint32, fg, bg uint8) {
	if col >= cons.width || row >= cons.height {
		return
	}

	if col+width > cons.width {
		width = cons.width - col
	}

	if row+height > cons.height {
		height = cons.height - row
	}

	clr := uint16(Attribute(fg, bg))<<8 | cons.clearChar
	rowOffset := row*cons.width + col
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for offset := rowOffset; offset < rowOffset+width; offset++ {
			cons.fb[offset] = clr
		}
	}
}

// Scroll the console contents to the specified direction.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	offset := lines * cons.width

	switch dir {
	case ScrollDirUp:
		copy(cons.fb, cons.fb[offset:cons.height*cons.width])
	case ScrollDirDown:
		copy(cons.fb[offset:], cons.fb[:(cons.height-lines)*cons.width])
	}
}

// Write a char to the specified cell. If fg or bg exceed the supported
// colors for this console, they will be set to their default value.
func (cons *VgaTextConsole) Write(ch byte, fg, bg uint8, col, row uint32) {
	if col >= cons.width || row >= cons.height {
		return
	}

	if fg >= numColors {
		fg = cons.defaultFg
	}
	if bg >= numColors {
		bg = cons.defaultBg
	}

	cons.fb[row*cons.width+col] = uint16(Attribute(fg, bg))<<8 | uint16(ch)
}

// Cell returns the character and attribute byte stored at (col, row). Cells
// outside the grid read as (0, 0).
func (cons *VgaTextConsole) Cell(col, row uint32) (byte, uint8) {
	if col >= cons.width || row >= cons.height {
		return 0, 0
	}

	val := cons.fb[row*cons.width+col]
	return byte(val), uint8(val >> 8)
}

// Attribute encodes a foreground and background color pair into a cell
// attribute byte.
func Attribute(fg, bg uint8) uint8 {
	return (bg&0xf)<<4 | fg&0xf
}

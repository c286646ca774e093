// Package console provides cell-level access to text-mode display hardware.
package console

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)

// The Device interface is implemented by objects that expose a grid of
// character cells. Coordinates are 0-based: the top-left cell is (0, 0).
type Device interface {
	// Dimensions returns the number of character columns and rows.
	Dimensions() (columns, rows uint32)

	// DefaultColors returns the default foreground and background colors
	// used by this console.
	DefaultColors() (fg, bg uint8)

	// Write a char to the specified cell. Writes outside the grid are
	// ignored.
	Write(ch byte, fg, bg uint8, col, row uint32)

	// Cell returns the character and attribute byte stored at the
	// specified cell.
	Cell(col, row uint32) (ch byte, attr uint8)

	// Fill sets the contents of the specified rectangular region to the
	// clear character using the requested colors. The region is clipped
	// to the grid.
	Fill(col, row, width, height uint32, fg, bg uint8)

	// Scroll the console contents to the specified direction. The caller
	// is responsible for updating (e.g. clear or replace) the contents of
	// the region that was scrolled.
	Scroll(dir ScrollDir, lines uint32)
}

package main

import (
	"bufio"
	"fmt"
	"gopherirq/device/video/console"
	"io"
	"strings"
)

// ansiFg maps EGA color indices to ANSI SGR foreground codes. Background
// codes are the same values plus 10.
var ansiFg = [16]int{30, 34, 32, 36, 31, 35, 33, 37, 90, 94, 92, 96, 91, 95, 93, 97}

// renderText writes the console contents as plain text. Trailing blank cells
// and trailing blank rows are omitted.
func renderText(w io.Writer, cons console.Device) error {
	cols, rows := cons.Dimensions()

	lines := make([]string, rows)
	last := -1
	var sb strings.Builder
	for row := uint32(0); row < rows; row++ {
		sb.Reset()
		for col := uint32(0); col < cols; col++ {
			ch, _ := cons.Cell(col, row)
			sb.WriteByte(printable(ch))
		}

		lines[row] = strings.TrimRight(sb.String(), " ")
		if lines[row] != "" {
			last = int(row)
		}
	}

	bw := bufio.NewWriter(w)
	for _, line := range lines[:last+1] {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// renderANSI redraws the console contents on an ANSI terminal in raw mode.
func renderANSI(w io.Writer, cons console.Device) error {
	cols, rows := cons.Dimensions()

	bw := bufio.NewWriter(w)
	bw.WriteString("\x1b[H")

	lastAttr := -1
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			ch, attr := cons.Cell(col, row)
			if int(attr) != lastAttr {
				fmt.Fprintf(bw, "\x1b[%d;%dm", ansiFg[attr&0xf], ansiFg[attr>>4]+10)
				lastAttr = int(attr)
			}
			bw.WriteByte(printable(ch))
		}
		bw.WriteString("\x1b[0m\r\n")
		lastAttr = -1
	}

	return bw.Flush()
}

// printable maps cell contents that a host terminal would interpret to a
// visible substitute.
func printable(ch byte) byte {
	switch {
	case ch == 0:
		return ' '
	case ch < 0x20, ch >= 0x7f:
		return '?'
	}
	return ch
}

// Package multiboot reads the boot information structure that a multiboot2
// compliant boot loader hands over to the kernel. Only the tags needed by
// the console and the configuration layer are decoded; everything else in
// the structure is treated as opaque.
package multiboot

import (
	"strings"
	"unsafe"
)

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
)

// tagHeader describes the header the preceedes each tag.
type tagHeader struct {
	// The type of the tag
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. Each tag starts at an 8-byte aligned address.
	size uint32
}

// FramebufferType defines the type of the initialized framebuffer.
type FramebufferType uint8

const (
	// FramebufferTypeIndexed specifies a 256-color palette.
	FramebufferTypeIndexed FramebufferType = iota

	// FramebufferTypeRGB specifies direct RGB mode.
	FramebufferTypeRGB

	// FramebufferTypeEGA specifies EGA text mode.
	FramebufferTypeEGA
)

// FramebufferInfo provides information about the initialized framebuffer.
type FramebufferInfo struct {
	// The framebuffer physical address.
	PhysAddr uint64

	// Row pitch in bytes.
	Pitch uint32

	// Width and height in pixels (or characters if Type = FramebufferTypeEGA)
	Width, Height uint32

	// Bits per pixel (non EGA modes only).
	Bpp uint8

	// Framebuffer type.
	Type FramebufferType
}

var infoData uintptr

// SetInfoPtr updates the internal multiboot information pointer to the given
// value. This function must be invoked before invoking any other function
// exported by this package. Passing 0 means that no boot information is
// available.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// GetFramebufferInfo returns information about the framebuffer initialized by
// the bootloader. This function returns nil if no framebuffer info is
// available.
func GetFramebufferInfo() *FramebufferInfo {
	curPtr, size := findTagByType(tagFramebufferInfo)
	if size == 0 {
		return nil
	}

	return (*FramebufferInfo)(unsafe.Pointer(curPtr))
}

// GetBootCmdLine returns the kernel command line passed by the boot loader or
// an empty string if none was supplied. The returned string points into the
// multiboot info data and is only valid while that memory stays mapped.
func GetBootCmdLine() string {
	curPtr, size := findTagByType(tagBootCmdLine)
	if size == 0 {
		return ""
	}

	// The command line is a C-style NULL-terminated string
	raw := unsafe.Slice((*byte)(unsafe.Pointer(curPtr)), size)
	for i, b := range raw {
		if b == 0 {
			raw = raw[:i]
			break
		}
	}

	if len(raw) == 0 {
		return ""
	}
	return unsafe.String(&raw[0], len(raw))
}

// NextCmdLineArg splits the first space-separated argument off cmdLine. Bare
// words are returned with themselves as the value, e.g. "quiet" yields
// key="quiet", value="quiet". For "key=value" arguments only the first '='
// separates the key from the value. ok is false once cmdLine holds no more
// arguments.
//
// The returned strings share memory with cmdLine.
func NextCmdLineArg(cmdLine string) (key, value, rest string, ok bool) {
	start := 0
	for start < len(cmdLine) && isSpace(cmdLine[start]) {
		start++
	}
	if start == len(cmdLine) {
		return "", "", "", false
	}

	end := start
	for end < len(cmdLine) && !isSpace(cmdLine[end]) {
		end++
	}

	key, value, found := strings.Cut(cmdLine[start:end], "=")
	if !found {
		value = key
	}
	return key, value, cmdLine[end:], true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// findTagByType scans the multiboot info data looking for the start of of the
// specified type. It returns a pointer to the tag contents start offset and
// the content length exluding the tag header.
//
// If the tag is not present in the multiboot info, findTagByType returns
// (0,0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	var ptrTagHeader *tagHeader

	curPtr := infoData + 8
	for ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)); ptrTagHeader.tagType != tagMbSectionEnd; ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)) {
		if ptrTagHeader.tagType == tagType {
			return curPtr + 8, ptrTagHeader.size - 8
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += uintptr(int32(ptrTagHeader.size+7) & ^7)
	}

	return 0, 0
}

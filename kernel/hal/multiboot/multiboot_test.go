package multiboot

import (
	"encoding/binary"
	"reflect"
	"testing"
	"unsafe"
)

// buildInfo assembles a multiboot2 info blob containing the supplied tags
// followed by the end tag. The returned slice must be kept alive while
// infoData points into it.
func buildInfo(tags ...[]byte) []byte {
	blob := make([]byte, 8)
	for _, tag := range tags {
		blob = append(blob, tag...)
		for len(blob)%8 != 0 {
			blob = append(blob, 0)
		}
	}
	blob = append(blob, 0, 0, 0, 0, 8, 0, 0, 0)
	binary.LittleEndian.PutUint32(blob[0:], uint32(len(blob)))

	// Back the blob with uint64 storage so that tag headers are 8-byte aligned.
	aligned := make([]uint64, (len(blob)+7)/8)
	out := unsafe.Slice((*byte)(unsafe.Pointer(&aligned[0])), len(aligned)*8)
	copy(out, blob)
	return out
}

func cmdLineTag(cmdLine string) []byte {
	tag := make([]byte, 8, 8+len(cmdLine)+1)
	tag = append(tag, cmdLine...)
	tag = append(tag, 0)
	binary.LittleEndian.PutUint32(tag[0:], uint32(tagBootCmdLine))
	binary.LittleEndian.PutUint32(tag[4:], uint32(len(tag)))
	return tag
}

func framebufferTag(addr uint64, pitch, width, height uint32, bpp uint8, fbType FramebufferType) []byte {
	tag := make([]byte, 8+24)
	binary.LittleEndian.PutUint32(tag[0:], uint32(tagFramebufferInfo))
	binary.LittleEndian.PutUint32(tag[4:], uint32(len(tag)))
	binary.LittleEndian.PutUint64(tag[8:], addr)
	binary.LittleEndian.PutUint32(tag[16:], pitch)
	binary.LittleEndian.PutUint32(tag[20:], width)
	binary.LittleEndian.PutUint32(tag[24:], height)
	tag[28] = bpp
	tag[29] = uint8(fbType)
	return tag
}

func TestGetFramebufferInfo(t *testing.T) {
	defer SetInfoPtr(0)

	blob := buildInfo(
		cmdLineTag("consoleFg=2"),
		framebufferTag(0xb8000, 160, 80, 25, 16, FramebufferTypeEGA),
	)
	SetInfoPtr(uintptr(unsafe.Pointer(&blob[0])))

	info := GetFramebufferInfo()
	if info == nil {
		t.Fatal("expected framebuffer info to be present")
	}

	if info.PhysAddr != 0xb8000 || info.Pitch != 160 || info.Width != 80 || info.Height != 25 || info.Bpp != 16 || info.Type != FramebufferTypeEGA {
		t.Fatalf("unexpected framebuffer info: %+v", *info)
	}
}

func TestGetFramebufferInfoMissing(t *testing.T) {
	defer SetInfoPtr(0)

	SetInfoPtr(0)
	if info := GetFramebufferInfo(); info != nil {
		t.Fatal("expected nil framebuffer info without boot information")
	}

	blob := buildInfo(cmdLineTag("quiet"))
	SetInfoPtr(uintptr(unsafe.Pointer(&blob[0])))
	if info := GetFramebufferInfo(); info != nil {
		t.Fatal("expected nil framebuffer info when the tag is absent")
	}
}

func TestGetBootCmdLine(t *testing.T) {
	defer SetInfoPtr(0)

	specs := []struct {
		tags [][]byte
		exp  string
	}{
		{nil, ""},
		{[][]byte{cmdLineTag("")}, ""},
		{[][]byte{cmdLineTag("consoleFg=2  quiet")}, "consoleFg=2  quiet"},
		{
			[][]byte{framebufferTag(0xb8000, 160, 80, 25, 16, FramebufferTypeEGA), cmdLineTag("int3")},
			"int3",
		},
	}

	for specIndex, spec := range specs {
		blob := buildInfo(spec.tags...)
		SetInfoPtr(uintptr(unsafe.Pointer(&blob[0])))

		if got := GetBootCmdLine(); got != spec.exp {
			t.Errorf("[spec %d] expected cmdline %q; got %q", specIndex, spec.exp, got)
		}
	}

	SetInfoPtr(0)
	if got := GetBootCmdLine(); got != "" {
		t.Fatalf("expected an empty cmdline without boot information; got %q", got)
	}
}

func TestNextCmdLineArg(t *testing.T) {
	specs := []struct {
		cmdLine string
		exp     [][2]string
	}{
		{"", nil},
		{" \t ", nil},
		{"kbdCtrl=map", [][2]string{{"kbdCtrl", "map"}}},
		{"  a=1 a=2\tb ", [][2]string{{"a", "1"}, {"a", "2"}, {"b", "b"}}},
		{"key= x=y=z =v", [][2]string{{"key", ""}, {"x", "y=z"}, {"", "v"}}},
	}

	for specIndex, spec := range specs {
		var got [][2]string
		for rest := spec.cmdLine; ; {
			key, value, next, ok := NextCmdLineArg(rest)
			if !ok {
				break
			}
			got = append(got, [2]string{key, value})
			rest = next
		}

		if !reflect.DeepEqual(got, spec.exp) {
			t.Errorf("[spec %d] expected %v; got %v", specIndex, spec.exp, got)
		}
	}
}

func TestCmdLineNoAllocations(t *testing.T) {
	defer SetInfoPtr(0)

	blob := buildInfo(cmdLineTag("consoleFg=2 timerTicks=off quiet"))
	SetInfoPtr(uintptr(unsafe.Pointer(&blob[0])))

	allocs := testing.AllocsPerRun(10, func() {
		for rest := GetBootCmdLine(); ; {
			_, _, next, ok := NextCmdLineArg(rest)
			if !ok {
				break
			}
			rest = next
		}
	})

	if allocs != 0 {
		t.Fatalf("expected command line parsing not to allocate; got %v allocations", allocs)
	}
}

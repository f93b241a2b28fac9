package target

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/tracewell/tracewell/pkg/dwarf"
	"github.com/tracewell/tracewell/pkg/elf"
	"github.com/tracewell/tracewell/pkg/primitives"
)

// buildStackFixtureDebugInfo assembles one CU: a "main" subprogram
// [0x1000,0x1100) containing an inlined "bar" [0x1010,0x1020).
func buildStackFixtureDebugInfo() []byte {
	body := concat(
		uleb(1),
		uleb(2), cstr("main"), le64(0x1000), le64(0x100),
		uleb(3), cstr("bar"), le64(0x1010), le64(0x10),
		uleb(0), // closes main's children (bar, its only child)
		uleb(0), // closes root's children (main, its only child)
	)
	header := concat(
		le32(uint32(len(body))+7),
		[]byte{4, 0},
		le32(0),
		[]byte{8},
	)
	return concat(header, body)
}

func buildStackFixtureAbbrev() []byte {
	var out []byte
	add := func(code uint64, tag dwarf.Tag, hasChildren bool, attrs ...[2]uint64) {
		out = append(out, uleb(code)...)
		out = append(out, uleb(uint64(tag))...)
		if hasChildren {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		for _, a := range attrs {
			out = append(out, uleb(a[0])...)
			out = append(out, uleb(a[1])...)
		}
		out = append(out, uleb(0)...)
		out = append(out, uleb(0)...)
	}
	add(1, dwarf.TagCompileUnit, true)
	add(2, dwarf.TagSubprogram, true,
		[2]uint64{uint64(dwarf.AttrName), uint64(dwarf.FormString)},
		[2]uint64{uint64(dwarf.AttrLowpc), uint64(dwarf.FormAddr)},
		[2]uint64{uint64(dwarf.AttrHighpc), uint64(dwarf.FormData8)},
	)
	add(3, dwarf.TagInlinedSubroutine, false,
		[2]uint64{uint64(dwarf.AttrName), uint64(dwarf.FormString)},
		[2]uint64{uint64(dwarf.AttrLowpc), uint64(dwarf.FormAddr)},
		[2]uint64{uint64(dwarf.AttrHighpc), uint64(dwarf.FormData8)},
	)
	out = append(out, uleb(0)...)
	return out
}

// buildStackFixtureELF wraps the debug sections together with a .text
// section mapped at [0x1000, 0x5010) so Target.objectContaining has
// something to match pc against.
func buildStackFixtureELF(t *testing.T, debugInfo, debugAbbrev []byte) string {
	t.Helper()

	writeName := func(buf *bytes.Buffer, name string) uint32 {
		off := uint32(buf.Len())
		buf.WriteString(name)
		buf.WriteByte(0)
		return off
	}

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	textNameOff := writeName(&shstrtab, ".text")
	infoNameOff := writeName(&shstrtab, ".debug_info")
	abbrevNameOff := writeName(&shstrtab, ".debug_abbrev")
	shstrtabNameOff := writeName(&shstrtab, ".shstrtab")

	const hdrSize = 64
	// .text carries no file bytes, only a declared address range; its Off
	// is nominal and its Size covers both function ranges in the fixture.
	infoOff := uint64(hdrSize)
	infoSize := uint64(len(debugInfo))
	abbrevOff := infoOff + infoSize
	abbrevSize := uint64(len(debugAbbrev))
	shstrtabOff := abbrevOff + abbrevSize
	shstrtabSize := uint64(shstrtab.Len())
	shoff := shstrtabOff + shstrtabSize

	sections := []elf.SectionHeader64{
		{},
		{Name: textNameOff, Type: 1, Addr: 0x1000, Off: infoOff, Size: 0x4010},
		{Name: infoNameOff, Type: 1, Off: infoOff, Size: infoSize},
		{Name: abbrevNameOff, Type: 1, Off: abbrevOff, Size: abbrevSize},
		{Name: shstrtabNameOff, Type: 3, Off: shstrtabOff, Size: shstrtabSize},
	}

	hdr := elf.Header64{
		Ident:     [16]byte{0x7f, 'E', 'L', 'F', 2, 1},
		Type:      2,
		Machine:   62,
		Version:   1,
		Shoff:     shoff,
		Ehsize:    uint16(hdrSize),
		Shentsize: uint16(binary.Size(elf.SectionHeader64{})),
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(len(sections) - 1),
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(debugInfo)
	out.Write(debugAbbrev)
	out.Write(shstrtab.Bytes())
	for _, s := range sections {
		binary.Write(&out, binary.LittleEndian, s)
	}

	path := filepath.Join(t.TempDir(), "fixture.elf")
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func buildStackTarget(t *testing.T) *Target {
	t.Helper()
	debugInfo := buildStackFixtureDebugInfo()
	debugAbbrev := buildStackFixtureAbbrev()
	path := buildStackFixtureELF(t, debugInfo, debugAbbrev)

	ef, err := elf.Open(path)
	if err != nil {
		t.Fatalf("elf.Open: %v", err)
	}
	t.Cleanup(func() { ef.Close() })
	ef.NotifyLoaded(primitives.VirtAddr{})

	dw, err := dwarf.Load(ef, nil)
	if err != nil {
		t.Fatalf("dwarf.Load: %v", err)
	}

	return &Target{Objects: []*loadedObject{{Elf: ef, Dwarf: dw}}}
}

func TestInlineStackAt_InsideInlinedFrame(t *testing.T) {
	tgt := buildStackTarget(t)
	stack, err := tgt.InlineStackAt(primitives.VirtAddr{Value: 0x1015})
	if err != nil {
		t.Fatalf("InlineStackAt: %v", err)
	}
	if len(stack) != 2 || stack[0].Name != "main" || stack[1].Name != "bar" {
		t.Fatalf("got %v, want [main, bar]", stack)
	}
}

func TestInlineStackAt_OutsideAnyInlineFrame(t *testing.T) {
	tgt := buildStackTarget(t)
	stack, err := tgt.InlineStackAt(primitives.VirtAddr{Value: 0x1090})
	if err != nil {
		t.Fatalf("InlineStackAt: %v", err)
	}
	if len(stack) != 1 || stack[0].Name != "main" {
		t.Fatalf("got %v, want [main]", stack)
	}
}

func TestInlineStackAt_OutsideAnyKnownObjectIsNil(t *testing.T) {
	tgt := buildStackTarget(t)
	stack, err := tgt.InlineStackAt(primitives.VirtAddr{Value: 0x9000})
	if err != nil {
		t.Fatalf("InlineStackAt: %v", err)
	}
	if stack != nil {
		t.Fatalf("got %v, want nil for an address outside every mapped section", stack)
	}
}

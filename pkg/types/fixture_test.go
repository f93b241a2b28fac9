package types

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/tracewell/tracewell/pkg/dwarf"
	"github.com/tracewell/tracewell/pkg/dwarf/leb128"
	"github.com/tracewell/tracewell/pkg/elf"
)

func uleb(v uint64) []byte {
	var buf bytes.Buffer
	leb128.EncodeUnsigned(&buf, v)
	return buf.Bytes()
}

func cstr(s string) []byte { return append([]byte(s), 0) }

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// dieBuilder assembles .debug_info body bytes while tracking each DIE's
// absolute offset (including the fixed 11-byte CU header) so that ref4
// attributes elsewhere in the fixture can point back at it.
type dieBuilder struct {
	body bytes.Buffer
}

func (b *dieBuilder) offset() uint32 { return 11 + uint32(b.body.Len()) }
func (b *dieBuilder) write(p []byte) { b.body.Write(p) }

// fixture holds a small hand-assembled type graph: char/int/uchar base
// types, a typedef of uchar, a pointer-to-char, an int[3] array, and a
// two-member Pair struct.
type fixture struct {
	Data *dwarf.Data
	Root dwarf.DIE

	Char, Int, Uchar, Typedef, Ptr, Array, Struct dwarf.DIE
}

func buildTypeFixture(t *testing.T) *fixture {
	t.Helper()

	b := &dieBuilder{}
	b.write(uleb(1)) // root compile_unit, no attrs

	charOff := b.offset()
	b.write(uleb(2))
	b.write(cstr("char"))
	b.write([]byte{1, 6}) // byte_size=1, encoding=DW_ATE_signed_char

	intOff := b.offset()
	b.write(uleb(2))
	b.write(cstr("int"))
	b.write([]byte{4, 5}) // byte_size=4, encoding=DW_ATE_signed

	ucharOff := b.offset()
	b.write(uleb(2))
	b.write(cstr("uchar"))
	b.write([]byte{1, 8}) // byte_size=1, encoding=DW_ATE_unsigned_char

	b.write(uleb(3))
	b.write(cstr("Byte"))
	b.write(u32(ucharOff))

	b.write(uleb(4))
	b.write(u32(charOff))

	b.write(uleb(5))
	b.write(u32(intOff))
	b.write(uleb(6))
	b.write([]byte{2}) // upper_bound=2 -> 3 elements
	b.write(uleb(0))   // terminator: closes array_type's children

	b.write(uleb(7))
	b.write(cstr("Pair"))
	b.write([]byte{8}) // byte_size=8
	b.write(uleb(8))
	b.write(cstr("a"))
	b.write(u32(intOff))
	b.write([]byte{0}) // data_member_loc=0
	b.write(uleb(8))
	b.write(cstr("b"))
	b.write(u32(intOff))
	b.write([]byte{4}) // data_member_loc=4
	b.write(uleb(0))   // terminator: closes structure_type's children

	b.write(uleb(0)) // terminator: closes root's children (== CU end)

	infoBody := b.body.Bytes()
	header := concat(
		u32le(uint64(len(infoBody))+7),
		[]byte{4, 0}, // version
		u32(0),       // debug_abbrev_offset
		[]byte{8},    // address_size
	)
	debugInfo := concat(header, infoBody)

	debugAbbrev := buildAbbrev(
		abbrevDecl{1, dwarf.TagCompileUnit, true, nil},
		abbrevDecl{2, dwarf.TagBaseType, false, []dwarf.AttrSpec{
			{Attr: dwarf.AttrName, Form: dwarf.FormString},
			{Attr: dwarf.AttrByteSize, Form: dwarf.FormData1},
			{Attr: dwarf.AttrEncoding, Form: dwarf.FormData1},
		}},
		abbrevDecl{3, dwarf.TagTypedef, false, []dwarf.AttrSpec{
			{Attr: dwarf.AttrName, Form: dwarf.FormString},
			{Attr: dwarf.AttrType, Form: dwarf.FormRef4},
		}},
		abbrevDecl{4, dwarf.TagPointerType, false, []dwarf.AttrSpec{
			{Attr: dwarf.AttrType, Form: dwarf.FormRef4},
		}},
		abbrevDecl{5, dwarf.TagArrayType, true, []dwarf.AttrSpec{
			{Attr: dwarf.AttrType, Form: dwarf.FormRef4},
		}},
		abbrevDecl{6, dwarf.TagSubrangeType, false, []dwarf.AttrSpec{
			{Attr: dwarf.AttrUpperBound, Form: dwarf.FormData1},
		}},
		abbrevDecl{7, dwarf.TagStructureType, true, []dwarf.AttrSpec{
			{Attr: dwarf.AttrName, Form: dwarf.FormString},
			{Attr: dwarf.AttrByteSize, Form: dwarf.FormData1},
		}},
		abbrevDecl{8, dwarf.TagMember, false, []dwarf.AttrSpec{
			{Attr: dwarf.AttrName, Form: dwarf.FormString},
			{Attr: dwarf.AttrType, Form: dwarf.FormRef4},
			{Attr: dwarf.AttrDataMemberLoc, Form: dwarf.FormData1},
		}},
	)

	path := filepath.Join(t.TempDir(), "fixture.elf")
	data := buildDebugELF(debugInfo, debugAbbrev)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ef, err := elf.Open(path)
	if err != nil {
		t.Fatalf("elf.Open: %v", err)
	}
	t.Cleanup(func() { ef.Close() })

	dd, err := dwarf.Load(ef, nil)
	if err != nil {
		t.Fatalf("dwarf.Load: %v", err)
	}
	root, err := dd.CompileUnits()[0].Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	fx := &fixture{Data: dd, Root: root}
	children := root.Children()
	for {
		child, ok := children.Next()
		if !ok {
			break
		}
		name, _ := child.Name()
		switch {
		case name == "char":
			fx.Char = child
		case name == "int":
			fx.Int = child
		case name == "uchar":
			fx.Uchar = child
		case name == "Byte":
			fx.Typedef = child
		case name == "Pair":
			fx.Struct = child
		case child.Tag() == dwarf.TagPointerType:
			fx.Ptr = child
		case child.Tag() == dwarf.TagArrayType:
			fx.Array = child
		}
	}
	return fx
}

// buildAbbrev mirrors pkg/dwarf's internal fixture helper of the same
// name; duplicated here since that one is unexported in another package.
type abbrevDecl struct {
	code        uint64
	tag         dwarf.Tag
	hasChildren bool
	attrs       []dwarf.AttrSpec
}

func buildAbbrev(decls ...abbrevDecl) []byte {
	var out []byte
	for _, d := range decls {
		out = append(out, uleb(d.code)...)
		out = append(out, uleb(uint64(d.tag))...)
		if d.hasChildren {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		for _, a := range d.attrs {
			out = append(out, uleb(uint64(a.Attr))...)
			out = append(out, uleb(uint64(a.Form))...)
		}
		out = append(out, uleb(0)...)
		out = append(out, uleb(0)...)
	}
	out = append(out, uleb(0)...)
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u32le(v uint64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// buildDebugELF wraps debugInfo/debugAbbrev in a minimal ET_EXEC object so
// elf.Open + dwarf.Load can be exercised through their real entry points.
func buildDebugELF(debugInfo, debugAbbrev []byte) []byte {
	writeName := func(buf *bytes.Buffer, name string) uint32 {
		off := uint32(buf.Len())
		buf.WriteString(name)
		buf.WriteByte(0)
		return off
	}

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	infoNameOff := writeName(&shstrtab, ".debug_info")
	abbrevNameOff := writeName(&shstrtab, ".debug_abbrev")
	shstrtabNameOff := writeName(&shstrtab, ".shstrtab")

	const hdrSize = 64
	infoOff := uint64(hdrSize)
	infoSize := uint64(len(debugInfo))
	abbrevOff := infoOff + infoSize
	abbrevSize := uint64(len(debugAbbrev))
	shstrtabOff := abbrevOff + abbrevSize
	shstrtabSize := uint64(shstrtab.Len())
	shoff := shstrtabOff + shstrtabSize

	hdr := elf.Header64{
		Ident:     [16]byte{0x7f, 'E', 'L', 'F', 2, 1},
		Type:      2, // ET_EXEC
		Machine:   62, // EM_X86_64
		Version:   1,
		Shoff:     shoff,
		Ehsize:    uint16(hdrSize),
		Shentsize: uint16(binary.Size(elf.SectionHeader64{})),
		Shnum:     4,
		Shstrndx:  3,
	}

	sections := []elf.SectionHeader64{
		{},
		{Name: infoNameOff, Type: 1, Off: infoOff, Size: infoSize},
		{Name: abbrevNameOff, Type: 1, Off: abbrevOff, Size: abbrevSize},
		{Name: shstrtabNameOff, Type: 3, Off: shstrtabOff, Size: shstrtabSize},
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(debugInfo)
	out.Write(debugAbbrev)
	out.Write(shstrtab.Bytes())
	for _, s := range sections {
		binary.Write(&out, binary.LittleEndian, s)
	}
	return out.Bytes()
}

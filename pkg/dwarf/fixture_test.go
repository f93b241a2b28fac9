package dwarf

import (
	"bytes"
	"testing"

	"github.com/tracewell/tracewell/pkg/dwarf/leb128"
)

// uleb/cstr/u64 are tiny byte-builders for hand-assembling .debug_abbrev
// and .debug_info fixtures, letting DIE/attribute/function-index behavior
// be exercised without a real compiled binary.
func uleb(v uint64) []byte {
	var buf bytes.Buffer
	leb128.EncodeUnsigned(&buf, v)
	return buf.Bytes()
}

func cstr(s string) []byte { return append([]byte(s), 0) }

func u64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// newTestData builds a one-compile-unit Data directly from hand-assembled
// .debug_abbrev/.debug_info bytes, bypassing Load and elf.File entirely.
func newTestData(t *testing.T, abbrev, infoBody []byte) (*Data, *CompileUnit) {
	t.Helper()
	header := concat(
		u32(uint64(len(infoBody))+7), // unit_length: version+abbrev_offset+addr_size+body
		u16(4),                       // version
		concatU32(0),                 // debug_abbrev_offset
		[]byte{8},                    // address_size
	)
	info := concat(header, infoBody)

	d := &Data{debugAbbrev: abbrev, debugInfo: info}
	d.abbrevCache = newAbbrevCache(abbrev)
	cu, err := parseCUHeader(d, info, 0)
	if err != nil {
		t.Fatalf("parseCUHeader: %v", err)
	}
	d.cus = []*CompileUnit{cu}
	return d, cu
}

func u32(v uint64) []byte {
	b := make([]byte, 4)
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func concatU32(v uint32) []byte { return u32(uint64(v)) }

func u16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

// buildAbbrev assembles one abbreviation table: pairs of (code, tag,
// hasChildren, attrs...) terminated by the table's code-0 sentinel.
type abbrevDecl struct {
	code        uint64
	tag         Tag
	hasChildren bool
	attrs       []AttrSpec
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

package dwarf

import (
	"bytes"
	"encoding/binary"

	"github.com/tracewell/tracewell/pkg/dwarf/leb128"
	"github.com/tracewell/tracewell/pkg/primitives"
)

// Cursor is the low-level byte-oriented decoder every higher DWARF
// structure is built on: a pointer into a borrowed byte range plus the end
// of that range. It never copies the bytes it reads from, mirroring the
// mmap aliasing rule in spec §9: a Cursor must not outlive the section Span
// it was constructed over.
type Cursor struct {
	data []byte
	pos  int
}

func NewCursor(data []byte) *Cursor { return &Cursor{data: data} }

func (c *Cursor) Pos() int    { return c.pos }
func (c *Cursor) SetPos(p int) { c.pos = p }
func (c *Cursor) Len() int    { return len(c.data) }
func (c *Cursor) AtEnd() bool { return c.pos >= len(c.data) }

func (c *Cursor) remaining() []byte { return c.data[c.pos:] }

func (c *Cursor) U8() uint8 {
	v := c.data[c.pos]
	c.pos++
	return v
}

func (c *Cursor) U16() uint16 {
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v
}

func (c *Cursor) U32() uint32 {
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v
}

func (c *Cursor) U64() uint64 {
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v
}

// ULEB decodes an unsigned LEB128 value, delegating the bit-twiddling to
// the leb128 package shared with the rest of the DWARF engine.
func (c *Cursor) ULEB() uint64 {
	r := bytes.NewReader(c.remaining())
	v, n := leb128.DecodeUnsigned(r)
	c.pos += int(n)
	return v
}

// SLEB decodes a signed LEB128 value.
func (c *Cursor) SLEB() int64 {
	r := bytes.NewReader(c.remaining())
	v, n := leb128.DecodeSigned(r)
	c.pos += int(n)
	return v
}

// CString reads a NUL-terminated string and discards the terminator.
func (c *Cursor) CString() string {
	rest := c.remaining()
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		c.pos = len(c.data)
		return string(rest)
	}
	c.pos += i + 1
	return string(rest[:i])
}

// Bytes returns a Span over the next n bytes without copying.
func (c *Cursor) Bytes(n int) primitives.Span {
	s := primitives.NewSpan(c.data[c.pos : c.pos+n])
	c.pos += n
	return s
}

func (c *Cursor) Skip(n int) { c.pos += n }

// SkipForm advances the cursor past the value of an attribute encoded with
// the given form, for the given address size, without interpreting it.
// Every DWARF v4 form must be understood here; any other form is a fatal
// parse error, since the cursor would otherwise desynchronize from the
// byte stream for every attribute that follows.
func (c *Cursor) SkipForm(form Form, addrSize int) error {
	switch form {
	case FormAddr:
		c.Skip(addrSize)
	case FormBlock1:
		n := int(c.U8())
		c.Skip(n)
	case FormBlock2:
		n := int(c.U16())
		c.Skip(n)
	case FormBlock4:
		n := int(c.U32())
		c.Skip(n)
	case FormBlock, FormExprloc:
		n := int(c.ULEB())
		c.Skip(n)
	case FormData1, FormRef1, FormFlag:
		c.Skip(1)
	case FormData2, FormRef2:
		c.Skip(2)
	case FormData4, FormRef4, FormRefAddr, FormSecOffset, FormStrp:
		c.Skip(4)
	case FormData8, FormRef8, FormRefSig8:
		c.Skip(8)
	case FormSdata:
		c.SLEB()
	case FormUdata, FormRefUdata:
		c.ULEB()
	case FormString:
		c.CString()
	case FormFlagPresent:
		// zero-length: presence of the attribute is the value.
	case FormIndirect:
		inner := Form(c.ULEB())
		return c.SkipForm(inner, addrSize)
	default:
		return primitives.Newf(primitives.KindParse, "dwarf", "unknown DWARF form 0x%x", uint64(form))
	}
	return nil
}

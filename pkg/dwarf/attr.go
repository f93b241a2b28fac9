package dwarf

import "github.com/tracewell/tracewell/pkg/primitives"

// Attribute is an unevaluated (cu, form, byte offset) triple. Decoding
// happens on demand and is pure: repeated calls to the same As* method
// yield the same result, which is what lets callers re-derive a value
// without caching it themselves.
type Attribute struct {
	cu   *CompileUnit
	attr Attr
	form Form
	loc  int
}

func (a Attribute) Attr() Attr { return a.attr }
func (a Attribute) Form() Form { return a.form }

func (a Attribute) cursor() *Cursor {
	c := NewCursor(a.cu.Data.debugInfo)
	c.SetPos(a.loc)
	return c
}

// AsAddr decodes an address-class attribute into a FileAddr owned by the
// compile unit's ELF object.
func (a Attribute) AsAddr() (primitives.FileAddr, error) {
	if a.form != FormAddr {
		return primitives.FileAddr{}, primitives.Newf(primitives.KindInvariant, "dwarf", "attribute is not address-form")
	}
	c := a.cursor()
	return primitives.FileAddr{Elf: a.cu.Data.Elf, Value: c.U64()}, nil
}

// AsSecOffset decodes a sec_offset-class attribute (also used by data4
// producers targeting DWARF32 section offsets).
func (a Attribute) AsSecOffset() (uint32, error) {
	switch a.form {
	case FormSecOffset, FormData4, FormRefAddr, FormStrp:
		c := a.cursor()
		return c.U32(), nil
	default:
		return 0, primitives.Newf(primitives.KindInvariant, "dwarf", "attribute is not section-offset form")
	}
}

// AsUint decodes any of the unsigned integer forms.
func (a Attribute) AsUint() (uint64, error) {
	c := a.cursor()
	switch a.form {
	case FormData1:
		return uint64(c.U8()), nil
	case FormData2:
		return uint64(c.U16()), nil
	case FormData4:
		return uint64(c.U32()), nil
	case FormData8:
		return c.U64(), nil
	case FormUdata, FormRefUdata:
		return c.ULEB(), nil
	case FormFlag:
		return uint64(c.U8()), nil
	case FormFlagPresent:
		return 1, nil
	default:
		return 0, primitives.Newf(primitives.KindInvariant, "dwarf", "attribute form 0x%x is not an unsigned integer", uint64(a.form))
	}
}

// AsInt decodes a signed integer form.
func (a Attribute) AsInt() (int64, error) {
	if a.form == FormSdata {
		c := a.cursor()
		return c.SLEB(), nil
	}
	u, err := a.AsUint()
	return int64(u), err
}

// AsFlag decodes a boolean-class attribute.
func (a Attribute) AsFlag() (bool, error) {
	if a.form == FormFlagPresent {
		return true, nil
	}
	u, err := a.AsUint()
	return u != 0, err
}

// AsBlock decodes a block/exprloc-class attribute into a byte span.
func (a Attribute) AsBlock() (primitives.Span, error) {
	c := a.cursor()
	switch a.form {
	case FormBlock1:
		n := int(c.U8())
		return c.Bytes(n), nil
	case FormBlock2:
		n := int(c.U16())
		return c.Bytes(n), nil
	case FormBlock4:
		n := int(c.U32())
		return c.Bytes(n), nil
	case FormBlock, FormExprloc:
		n := int(c.ULEB())
		return c.Bytes(n), nil
	default:
		return primitives.Span{}, primitives.Newf(primitives.KindInvariant, "dwarf", "attribute form 0x%x is not a block", uint64(a.form))
	}
}

// AsString decodes a string-class attribute, following strp into
// .debug_str when necessary.
func (a Attribute) AsString() (string, error) {
	switch a.form {
	case FormString:
		c := a.cursor()
		return c.CString(), nil
	case FormStrp:
		c := a.cursor()
		off := c.U32()
		return a.cu.Data.stringAt(off), nil
	default:
		return "", primitives.Newf(primitives.KindInvariant, "dwarf", "attribute form 0x%x is not a string", uint64(a.form))
	}
}

// AsRef decodes a reference-class attribute into the DIE it points at.
// CU-relative forms resolve within the same compile unit; ref_addr is a
// global .debug_info offset and is resolved by locating its enclosing CU.
func (a Attribute) AsRef() (DIE, error) {
	c := a.cursor()
	switch a.form {
	case FormRef1:
		return a.cu.dieAt(a.cu.Offset + uint32(c.U8()))
	case FormRef2:
		return a.cu.dieAt(a.cu.Offset + uint32(c.U16()))
	case FormRef4:
		return a.cu.dieAt(a.cu.Offset + c.U32())
	case FormRef8:
		return a.cu.dieAt(a.cu.Offset + uint32(c.U64()))
	case FormRefUdata:
		return a.cu.dieAt(a.cu.Offset + uint32(c.ULEB()))
	case FormRefAddr:
		off := c.U32()
		cu, err := a.cu.Data.cuContaining(off)
		if err != nil {
			return DIE{}, err
		}
		return cu.dieAt(off)
	default:
		return DIE{}, primitives.Newf(primitives.KindInvariant, "dwarf", "attribute form 0x%x is not a reference", uint64(a.form))
	}
}

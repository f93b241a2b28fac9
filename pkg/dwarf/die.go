package dwarf

import "github.com/tracewell/tracewell/pkg/primitives"

// DIE is a handle into a compile unit's borrowed byte range: a position,
// the abbreviation that describes it, and the byte offset of each of its
// attribute values. A terminator DIE (Abbrev == nil) carries only Next,
// per spec §3.
type DIE struct {
	CU       *CompileUnit
	Pos      uint32
	Abbrev   *Abbrev
	attrLocs []int
	Next     uint32
}

// IsNull reports whether d is the terminator / absent DIE.
func (d DIE) IsNull() bool { return d.Abbrev == nil }

func (d DIE) Tag() Tag { return d.Abbrev.Tag }

// dieAt parses the DIE starting at the given absolute offset into
// .debug_info, per spec §4.2: read the ULEB128 abbrev code, a zero code is
// a terminator, otherwise look up the abbrev and record the starting byte
// of each attribute while skipping its form to advance the cursor.
func (cu *CompileUnit) dieAt(pos uint32) (DIE, error) {
	table, err := cu.abbrevTable()
	if err != nil {
		return DIE{}, err
	}
	c := NewCursor(cu.Data.debugInfo)
	c.SetPos(int(pos))
	code := c.ULEB()
	if code == 0 {
		return DIE{CU: cu, Pos: pos, Next: uint32(c.Pos())}, nil
	}
	ab, ok := table[code]
	if !ok {
		return DIE{}, primitives.Newf(primitives.KindParse, "dwarf", "DIE at %d: unknown abbrev code %d", pos, code)
	}
	locs := make([]int, len(ab.Attrs))
	for i, spec := range ab.Attrs {
		locs[i] = c.Pos()
		if err := c.SkipForm(spec.Form, int(cu.AddrSize)); err != nil {
			return DIE{}, err
		}
	}
	return DIE{CU: cu, Pos: pos, Abbrev: ab, attrLocs: locs, Next: uint32(c.Pos())}, nil
}

// Attr looks up an attribute by matching against the abbrev's spec list
// parallel to attrLocs, and decodes it on demand.
func (d DIE) Attr(attr Attr) (Attribute, bool) {
	if d.Abbrev == nil {
		return Attribute{}, false
	}
	for i, spec := range d.Abbrev.Attrs {
		if spec.Attr == attr {
			return Attribute{cu: d.CU, attr: attr, form: spec.Form, loc: d.attrLocs[i]}, true
		}
	}
	return Attribute{}, false
}

// MustAttr is Attr but surfaces a missing attribute as a recoverable
// lookup error, per the error-kind policy in spec §7.
func (d DIE) MustAttr(attr Attr) (Attribute, error) {
	a, ok := d.Attr(attr)
	if !ok {
		return Attribute{}, primitives.Newf(primitives.KindLookup, "dwarf", "DIE at %d has no attribute 0x%x", d.Pos, uint64(attr))
	}
	return a, nil
}

// Name resolves DW_AT_name, following DW_AT_specification then
// DW_AT_abstract_origin when the name is absent directly on this DIE, per
// spec §4.2's function-index name resolution rule.
func (d DIE) Name() (string, bool) {
	if a, ok := d.Attr(AttrName); ok {
		if s, err := a.AsString(); err == nil {
			return s, true
		}
	}
	if a, ok := d.Attr(AttrSpecification); ok {
		if ref, err := a.AsRef(); err == nil {
			return ref.Name()
		}
	}
	if a, ok := d.Attr(AttrAbstractOrigin); ok {
		if ref, err := a.AsRef(); err == nil {
			return ref.Name()
		}
	}
	return "", false
}

// LowPC returns DW_AT_low_pc as a file address owned by the compile unit's
// ELF, if present; it is not translated to a virtual address.
func (d DIE) LowPC() (primitives.FileAddr, bool) {
	a, ok := d.Attr(AttrLowpc)
	if !ok {
		return primitives.FileAddr{}, false
	}
	fa, err := a.AsAddr()
	if err != nil {
		return primitives.FileAddr{}, false
	}
	return fa, true
}

// HighPC returns the DIE's exclusive upper address bound, handling both the
// "class address" (absolute) and "class constant" (offset from low_pc)
// encodings DWARF4 permits for DW_AT_high_pc.
func (d DIE) HighPC() (uint64, bool) {
	low, ok := d.LowPC()
	if !ok {
		return 0, false
	}
	a, ok := d.Attr(AttrHighpc)
	if !ok {
		return 0, false
	}
	if a.form == FormAddr {
		fa, err := a.AsAddr()
		if err != nil {
			return 0, false
		}
		return fa.Value, true
	}
	off, err := a.AsUint()
	if err != nil {
		return 0, false
	}
	return low.Value + off, true
}

// ContainsAddress decides whether the file address addr (already resolved
// against the DIE's ELF) falls within this DIE's range, preferring
// DW_AT_ranges over low_pc/high_pc, per spec §4.2.
func (d DIE) ContainsAddress(addr uint64) (bool, error) {
	if rangesAttr, ok := d.Attr(AttrRanges); ok {
		off, err := rangesAttr.AsSecOffset()
		if err != nil {
			return false, err
		}
		base := uint64(0)
		if low, ok := d.LowPC(); ok {
			base = low.Value
		}
		rl, err := d.CU.Data.parseRangeList(off, base)
		if err != nil {
			return false, err
		}
		return rl.Contains(addr), nil
	}
	low, ok := d.LowPC()
	if !ok {
		return false, nil
	}
	high, ok := d.HighPC()
	if !ok {
		return addr == low.Value, nil
	}
	return addr >= low.Value && addr < high, nil
}

// ChildIterator walks the immediate children of a DIE, per the sibling
// algorithm in spec §4.2.
type ChildIterator struct {
	cu      *CompileUnit
	cur     DIE
	started bool
	err     error
}

// Children begins iteration over d's immediate children. The first Next()
// call parses the DIE immediately following d's own header.
func (d DIE) Children() *ChildIterator {
	return &ChildIterator{cu: d.CU, cur: d}
}

func (it *ChildIterator) Err() error { return it.err }

// Next advances to the next sibling and reports whether a (non-terminator)
// DIE is available.
func (it *ChildIterator) Next() (DIE, bool) {
	if it.err != nil {
		return DIE{}, false
	}
	if !it.started {
		it.started = true
		if !it.cur.Abbrev.HasChildren {
			return DIE{}, false
		}
		child, err := it.cu.dieAt(it.cur.Next)
		if err != nil {
			it.err = err
			return DIE{}, false
		}
		it.cur = child
		if child.IsNull() {
			return DIE{}, false
		}
		return it.cur, true
	}
	next, err := it.cu.siblingOf(it.cur)
	if err != nil {
		it.err = err
		return DIE{}, false
	}
	it.cur = next
	if next.IsNull() {
		return DIE{}, false
	}
	return it.cur, true
}

// siblingOf implements the operator++ rule: no children -> parse at Next;
// DW_AT_sibling present -> jump there; otherwise walk depth-first to the
// terminator and parse at the terminator's Next.
func (cu *CompileUnit) siblingOf(d DIE) (DIE, error) {
	if !d.Abbrev.HasChildren {
		return cu.dieAt(d.Next)
	}
	if sib, ok := d.Attr(AttrSibling); ok {
		ref, err := sib.AsRef()
		if err == nil {
			return ref, nil
		}
	}
	child, err := cu.dieAt(d.Next)
	if err != nil {
		return DIE{}, err
	}
	for !child.IsNull() {
		child, err = cu.siblingOf(child)
		if err != nil {
			return DIE{}, err
		}
	}
	return cu.dieAt(child.Next)
}

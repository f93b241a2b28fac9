package dwarf

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/tracewell/tracewell/pkg/primitives"
)

// AttrSpec is one (attribute, form) pair inside an abbreviation.
type AttrSpec struct {
	Attr Attr
	Form Form
}

// Abbrev is a shared DIE schema: which attributes a DIE carries, and in
// which encoding, referenced from DIEs by code.
type Abbrev struct {
	Code        uint64
	Tag         Tag
	HasChildren bool
	Attrs       []AttrSpec
}

// abbrevTable maps code -> Abbrev for one .debug_abbrev subtable.
type abbrevTable map[uint64]*Abbrev

const abbrevCacheSize = 64

// abbrevCache memoizes parsed abbreviation tables by their byte offset
// into .debug_abbrev, per spec §4.2: "parsed lazily per offset and
// memoized". An LRU bounds memory for objects with many compile units
// while still making repeat DIE parsing within one CU free.
type abbrevCache struct {
	debugAbbrev []byte
	cache       *lru.Cache
}

func newAbbrevCache(debugAbbrev []byte) *abbrevCache {
	c, _ := lru.New(abbrevCacheSize)
	return &abbrevCache{debugAbbrev: debugAbbrev, cache: c}
}

func (ac *abbrevCache) get(offset uint32) (abbrevTable, error) {
	if v, ok := ac.cache.Get(offset); ok {
		return v.(abbrevTable), nil
	}
	t, err := parseAbbrevTable(ac.debugAbbrev, offset)
	if err != nil {
		return nil, err
	}
	ac.cache.Add(offset, t)
	return t, nil
}

// parseAbbrevTable parses one abbreviation table starting at offset,
// stopping at the terminator code 0, per spec §4.2.
func parseAbbrevTable(data []byte, offset uint32) (abbrevTable, error) {
	if int(offset) > len(data) {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "abbrev offset %d out of range", offset)
	}
	c := NewCursor(data[offset:])
	table := abbrevTable{}
	for {
		code := c.ULEB()
		if code == 0 {
			break
		}
		ab := &Abbrev{Code: code}
		ab.Tag = Tag(c.ULEB())
		ab.HasChildren = c.U8() != 0
		for {
			attr := Attr(c.ULEB())
			form := Form(c.ULEB())
			if attr == 0 && form == 0 {
				break
			}
			ab.Attrs = append(ab.Attrs, AttrSpec{Attr: attr, Form: form})
		}
		table[code] = ab
		if c.AtEnd() {
			break
		}
	}
	return table, nil
}

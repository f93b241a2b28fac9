package dwarf

import (
	"sync"

	"github.com/tracewell/tracewell/pkg/primitives"
)

// cuHeaderSize is the fixed size of a DWARF v4 32-bit compile unit header:
// unit_length(4) + version(2) + debug_abbrev_offset(4) + address_size(1).
const cuHeaderSize = 11

// CompileUnit borrows a byte range of .debug_info: one translation unit's
// DWARF subtree. Its abbreviation table and line table are parsed lazily
// and memoized, per spec §3.
type CompileUnit struct {
	Data *Data

	Offset       uint32 // absolute offset of the unit_length field
	UnitLength   uint32
	Version      uint16
	AbbrevOffset uint32
	AddrSize     uint8

	bodyStart uint32 // first DIE's offset (immediately after the header)
	bodyEnd   uint32 // offset one past the last byte of this unit

	abbrevs     abbrevTable
	abbrevsOnce sync.Once
	abbrevsErr  error

	lineTable     *LineTable
	lineTableOnce sync.Once
	lineTableErr  error
}

// parseCUHeader parses one compile unit header at offset within
// debugInfo, validating the fixed fields required by spec §4.2: version
// must be 4, address size must be 8, and a unit_length of 0xffffffff (the
// DWARF64 escape) is rejected.
func parseCUHeader(d *Data, debugInfo []byte, offset uint32) (*CompileUnit, error) {
	if int(offset)+4 > len(debugInfo) {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "compile unit header at %d truncated", offset)
	}
	c := NewCursor(debugInfo[offset:])
	unitLength := c.U32()
	if unitLength == 0xffffffff {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "64-bit DWARF format is not supported")
	}
	end := offset + 4 + unitLength
	if int(end) > len(debugInfo) {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "compile unit at %d overruns .debug_info", offset)
	}
	version := c.U16()
	if version != 4 {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "compile unit at %d: unsupported DWARF version %d, only v4 is supported", offset, version)
	}
	abbrevOffset := c.U32()
	addrSize := c.U8()
	if addrSize != 8 {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "compile unit at %d: unsupported address size %d, only 8 is supported", offset, addrSize)
	}
	cu := &CompileUnit{
		Data:         d,
		Offset:       offset,
		UnitLength:   unitLength,
		Version:      version,
		AbbrevOffset: abbrevOffset,
		AddrSize:     addrSize,
		bodyStart:    offset + cuHeaderSize,
		bodyEnd:      end,
	}
	return cu, nil
}

func (cu *CompileUnit) abbrevTable() (abbrevTable, error) {
	cu.abbrevsOnce.Do(func() {
		cu.abbrevs, cu.abbrevsErr = cu.Data.abbrevCache.get(cu.AbbrevOffset)
	})
	return cu.abbrevs, cu.abbrevsErr
}

// Root returns the single top-level DIE of this unit (its DW_TAG_compile_unit).
func (cu *CompileUnit) Root() (DIE, error) {
	return cu.dieAt(cu.bodyStart)
}

// LineTable builds (once) and returns this unit's line number program,
// driven by the root DIE's DW_AT_stmt_list.
func (cu *CompileUnit) LineTable() (*LineTable, error) {
	cu.lineTableOnce.Do(func() {
		root, err := cu.Root()
		if err != nil {
			cu.lineTableErr = err
			return
		}
		stmtList, ok := root.Attr(AttrStmtList)
		if !ok {
			cu.lineTable = &LineTable{}
			return
		}
		off, err := stmtList.AsSecOffset()
		if err != nil {
			cu.lineTableErr = err
			return
		}
		compDir, _ := root.Attr(AttrCompDir)
		compDirStr, _ := compDir.AsString()
		lt, err := parseLineProgram(cu.Data.debugLine, off, compDirStr)
		cu.lineTable, cu.lineTableErr = lt, err
	})
	return cu.lineTable, cu.lineTableErr
}

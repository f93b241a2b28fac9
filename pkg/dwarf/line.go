package dwarf

import (
	"path/filepath"
	"strings"

	"github.com/tracewell/tracewell/pkg/primitives"
)

// LineEntry is one row emitted by the line number program: an instruction
// address mapped to a source position, plus the flags DWARF4 §6.2
// attaches to it.
type LineEntry struct {
	Address         uint64
	File            string
	Line            int
	Column          int
	IsStmt          bool
	BasicBlockStart bool
	PrologueEnd     bool
	EpilogueBegin   bool
	EndSequence     bool
	Discriminator   uint64
}

// LineTable is the materialized result of running one compile unit's line
// number program to completion.
type LineTable struct {
	Entries []LineEntry
	Files   []string
}

// standardOpcodeLengths are the DWARF4-default argument counts for
// standard opcodes 1..12, validated exactly against the program's own
// table per spec §6: a mismatch means the producer used a vendor
// extension we can't safely assume the shape of.
var standardOpcodeLengths = []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

type lineProgHeader struct {
	minInstLen     uint8
	maxOpsPerInst  uint8
	defaultIsStmt  bool
	lineBase       int8
	lineRange      uint8
	opcodeBase     uint8
	stdOpLengths   []byte
	files          []string // index 0 unused; DWARF file_index is 1-based
}

// parseLineProgram runs the line number state machine described in spec
// §4.2 to completion and returns the resulting table. offset is the value
// of DW_AT_stmt_list; compDir anchors relative file paths that carry no
// directory index.
func parseLineProgram(debugLine []byte, offset uint32, compDir string) (*LineTable, error) {
	if int(offset) >= len(debugLine) {
		return &LineTable{}, nil
	}
	c := NewCursor(debugLine)
	c.SetPos(int(offset))

	unitLength := c.U32()
	progEnd := c.Pos() + int(unitLength)
	version := c.U16()
	if version != 4 {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "line program at %d: unsupported version %d", offset, version)
	}
	headerLength := c.U32()
	prologueEnd := c.Pos() + int(headerLength)

	hdr := lineProgHeader{}
	hdr.minInstLen = c.U8()
	hdr.maxOpsPerInst = c.U8()
	if hdr.minInstLen != 1 || hdr.maxOpsPerInst != 1 {
		return nil, primitives.Newf(primitives.KindParse, "dwarf", "line program at %d: minimum_instruction_length/maximum_operations_per_instruction must both be 1", offset)
	}
	hdr.defaultIsStmt = c.U8() != 0
	hdr.lineBase = int8(c.U8())
	hdr.lineRange = c.U8()
	hdr.opcodeBase = c.U8()

	hdr.stdOpLengths = make([]byte, int(hdr.opcodeBase)-1)
	for i := range hdr.stdOpLengths {
		hdr.stdOpLengths[i] = c.U8()
	}
	if len(hdr.stdOpLengths) >= len(standardOpcodeLengths) {
		for i, want := range standardOpcodeLengths {
			if hdr.stdOpLengths[i] != want {
				return nil, primitives.Newf(primitives.KindParse, "dwarf", "line program at %d: standard opcode %d has unexpected operand count %d", offset, i+1, hdr.stdOpLengths[i])
			}
		}
	}

	var includeDirs []string
	for {
		s := c.CString()
		if s == "" {
			break
		}
		includeDirs = append(includeDirs, s)
	}

	hdr.files = []string{""}
	for {
		name := c.CString()
		if name == "" {
			break
		}
		dirIdx := c.ULEB()
		c.ULEB() // mtime, unused
		c.ULEB() // length, unused
		hdr.files = append(hdr.files, resolveFilePath(name, dirIdx, includeDirs, compDir))
	}

	c.SetPos(prologueEnd)

	sm := &lineStateMachine{hdr: &hdr}
	sm.reset()

	for c.Pos() < progEnd {
		opcode := c.U8()
		switch {
		case opcode == 0:
			length := int(c.ULEB())
			opStart := c.Pos()
			sm.extendedOpcode(c)
			c.SetPos(opStart + length)
		case opcode < hdr.opcodeBase:
			sm.standardOpcode(c, opcode)
		default:
			sm.specialOpcode(opcode)
		}
	}

	return &LineTable{Entries: sm.entries, Files: hdr.files}, nil
}

func resolveFilePath(name string, dirIdx uint64, includeDirs []string, compDir string) string {
	if filepath.IsAbs(name) {
		return name
	}
	dir := compDir
	if dirIdx > 0 && int(dirIdx) <= len(includeDirs) {
		d := includeDirs[dirIdx-1]
		if filepath.IsAbs(d) {
			return filepath.Join(d, name)
		}
		if compDir != "" {
			dir = filepath.Join(compDir, d)
		} else {
			dir = d
		}
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// lineStateMachine holds the DWARF line number program registers, reset to
// their initial values at construction and after every end_sequence row.
type lineStateMachine struct {
	hdr *lineProgHeader

	address         uint64
	fileIndex       int
	line            int
	column          int
	isStmt          bool
	basicBlockStart bool
	prologueEnd     bool
	epilogueBegin   bool
	endSequence     bool
	discriminator   uint64

	entries []LineEntry
}

func (sm *lineStateMachine) reset() {
	sm.address = 0
	sm.fileIndex = 1
	sm.line = 1
	sm.column = 0
	sm.isStmt = sm.hdr.defaultIsStmt
	sm.basicBlockStart = false
	sm.prologueEnd = false
	sm.epilogueBegin = false
	sm.endSequence = false
	sm.discriminator = 0
}

func (sm *lineStateMachine) file() string {
	if sm.fileIndex >= 0 && sm.fileIndex < len(sm.hdr.files) {
		return sm.hdr.files[sm.fileIndex]
	}
	return ""
}

// emit appends the current registers as a row, then resets the
// per-row-only flags (not address/file/line/column/is_stmt), per spec §4.2.
func (sm *lineStateMachine) emit() {
	sm.entries = append(sm.entries, LineEntry{
		Address:         sm.address,
		File:            sm.file(),
		Line:            sm.line,
		Column:          sm.column,
		IsStmt:          sm.isStmt,
		BasicBlockStart: sm.basicBlockStart,
		PrologueEnd:     sm.prologueEnd,
		EpilogueBegin:   sm.epilogueBegin,
		EndSequence:     sm.endSequence,
		Discriminator:   sm.discriminator,
	})
	sm.basicBlockStart = false
	sm.prologueEnd = false
	sm.epilogueBegin = false
	sm.discriminator = 0
}

func (sm *lineStateMachine) standardOpcode(c *Cursor, opcode uint8) {
	switch opcode {
	case 1: // DW_LNS_copy
		sm.emit()
	case 2: // DW_LNS_advance_pc
		sm.address += c.ULEB() * uint64(sm.hdr.minInstLen)
	case 3: // DW_LNS_advance_line
		sm.line += int(c.SLEB())
	case 4: // DW_LNS_set_file
		sm.fileIndex = int(c.ULEB())
	case 5: // DW_LNS_set_column
		sm.column = int(c.ULEB())
	case 6: // DW_LNS_negate_stmt
		sm.isStmt = !sm.isStmt
	case 7: // DW_LNS_set_basic_block
		sm.basicBlockStart = true
	case 8: // DW_LNS_const_add_pc
		adjusted := 255 - int(sm.hdr.opcodeBase)
		sm.address += uint64((adjusted/int(sm.hdr.lineRange))*int(sm.hdr.minInstLen))
	case 9: // DW_LNS_fixed_advance_pc
		sm.address += uint64(c.U16())
	case 10: // DW_LNS_set_prologue_end
		sm.prologueEnd = true
	case 11: // DW_LNS_set_epilogue_begin
		sm.epilogueBegin = true
	case 12: // DW_LNS_set_isa
		c.ULEB()
	default:
		if int(opcode)-1 < len(sm.hdr.stdOpLengths) {
			n := sm.hdr.stdOpLengths[opcode-1]
			for i := 0; i < int(n); i++ {
				c.ULEB()
			}
		}
	}
}

func (sm *lineStateMachine) extendedOpcode(c *Cursor) {
	sub := c.U8()
	switch sub {
	case 1: // DW_LINE_end_sequence
		sm.endSequence = true
		sm.emit()
		sm.reset()
	case 2: // DW_LINE_set_address
		sm.address = c.U64()
	case 3: // DW_LINE_define_file
		name := c.CString()
		dirIdx := c.ULEB()
		c.ULEB()
		c.ULEB()
		sm.hdr.files = append(sm.hdr.files, resolveFilePath(name, dirIdx, nil, ""))
	case 4: // DW_LINE_set_discriminator
		sm.discriminator = c.ULEB()
	}
}

func (sm *lineStateMachine) specialOpcode(opcode uint8) {
	adjusted := int(opcode) - int(sm.hdr.opcodeBase)
	addrAdvance := (adjusted / int(sm.hdr.lineRange)) * int(sm.hdr.minInstLen)
	lineAdvance := int(sm.hdr.lineBase) + adjusted%int(sm.hdr.lineRange)
	sm.address += uint64(addrAdvance)
	sm.line += lineAdvance
	sm.emit()
}

// EntryByAddress returns the row prev such that prev.Address <= addr <
// next.Address and prev is not an end_sequence row, per spec §4.2.
func (lt *LineTable) EntryByAddress(addr uint64) (LineEntry, bool) {
	var best LineEntry
	found := false
	for i, e := range lt.Entries {
		if e.EndSequence || e.Address > addr {
			continue
		}
		if i+1 < len(lt.Entries) && lt.Entries[i+1].Address <= addr {
			continue
		}
		if !found || e.Address > best.Address {
			best, found = e, true
		}
	}
	return best, found
}

// EntriesByLine matches by absolute path equality or by suffix-of-path in
// either direction, per spec §4.2.
func (lt *LineTable) EntriesByLine(path string, line int) []LineEntry {
	var out []LineEntry
	for _, e := range lt.Entries {
		if e.EndSequence || e.Line != line {
			continue
		}
		if pathsMatch(e.File, path) {
			out = append(out, e)
		}
	}
	return out
}

func pathsMatch(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}

// Package dwarf implements the cursor-level DWARF v4 engine described in
// spec §4.2: abbreviation tables, compile units, DIEs, attributes, range
// lists, the line number program, and the function index, all addressed
// directly against mmap'd section bytes rather than through a
// pre-materialized tree.
package dwarf

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tracewell/tracewell/pkg/elf"
	"github.com/tracewell/tracewell/pkg/primitives"
)

const component = "dwarf"

// Data is a loaded DWARF object: the debug sections of one ELF file, plus
// the compile unit index built eagerly over them at Load time.
type Data struct {
	Elf *elf.File

	debugInfo   []byte
	debugAbbrev []byte
	debugStr    []byte
	debugLine   []byte
	debugRanges []byte

	abbrevCache *abbrevCache

	cus []*CompileUnit

	funcsOnce sync.Once
	funcs     *funcIndex
}

// Load parses every compile unit header out of e's .debug_info section. A
// missing .debug_info degrades gracefully to a symbol-only Data (per spec
// §4.1's ELF-only fallback); a compile unit that fails to parse is dropped
// and logged, and parsing continues with the rest, per the recoverable
// parse-error policy in spec §7.
func Load(e *elf.File, log *logrus.Entry) (*Data, error) {
	d := &Data{Elf: e}

	if sp, ok := e.SectionData(".debug_info"); ok {
		d.debugInfo = sp.Data
	}
	if sp, ok := e.SectionData(".debug_abbrev"); ok {
		d.debugAbbrev = sp.Data
	}
	if sp, ok := e.SectionData(".debug_str"); ok {
		d.debugStr = sp.Data
	}
	if sp, ok := e.SectionData(".debug_line"); ok {
		d.debugLine = sp.Data
	}
	if sp, ok := e.SectionData(".debug_ranges"); ok {
		d.debugRanges = sp.Data
	}
	d.abbrevCache = newAbbrevCache(d.debugAbbrev)

	if d.debugInfo == nil {
		if log != nil {
			log.WithField("path", e.Path()).Info("no .debug_info section, running symbol-only")
		}
		return d, nil
	}

	offset := uint32(0)
	for int(offset) < len(d.debugInfo) {
		cu, err := parseCUHeader(d, d.debugInfo, offset)
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("offset", offset).Warn("dropping malformed compile unit")
			}
			// Skip past the dropped unit when its length field is usable;
			// otherwise nothing after it can be located.
			if int(offset)+4 > len(d.debugInfo) {
				break
			}
			next := uint64(offset) + 4 + uint64(NewCursor(d.debugInfo[offset:]).U32())
			if next > uint64(len(d.debugInfo)) {
				break
			}
			offset = uint32(next)
			continue
		}
		d.cus = append(d.cus, cu)
		offset = cu.bodyEnd
	}

	return d, nil
}

// CompileUnits returns every compile unit parsed at Load time.
func (d *Data) CompileUnits() []*CompileUnit { return d.cus }

// stringAt returns the NUL-terminated string in .debug_str at offset off,
// used to resolve DW_FORM_strp.
func (d *Data) stringAt(off uint32) string {
	if int(off) >= len(d.debugStr) {
		return ""
	}
	end := off
	for int(end) < len(d.debugStr) && d.debugStr[end] != 0 {
		end++
	}
	return string(d.debugStr[off:end])
}

// cuContaining locates the compile unit whose [Offset, bodyEnd) range
// contains the global .debug_info offset off, used to resolve
// DW_FORM_ref_addr. Compile units are stored in ascending Offset order
// because Load parses them sequentially, so a binary search suffices.
func (d *Data) cuContaining(off uint32) (*CompileUnit, error) {
	i := sort.Search(len(d.cus), func(i int) bool { return d.cus[i].Offset > off })
	if i == 0 {
		return nil, primitives.Newf(primitives.KindLookup, component, "no compile unit contains .debug_info offset %d", off)
	}
	cu := d.cus[i-1]
	if off >= cu.bodyEnd {
		return nil, primitives.Newf(primitives.KindLookup, component, "no compile unit contains .debug_info offset %d", off)
	}
	return cu, nil
}

// Package elf implements the loader described in spec §4.1: a read-only
// mmap of an ELF64 object, its section and symbol tables, and the
// file-address <-> virtual-address translation that depends on a load
// bias discovered from the tracee's auxiliary vector.
package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/tracewell/tracewell/pkg/primitives"
)

const component = "elf"

// Symbol is one entry out of .symtab (preferred) or .dynsym.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
	Info  uint8
	Shndx uint16
}

func (s *Symbol) Low() uint64  { return s.Value }
func (s *Symbol) High() uint64 { return s.Value + s.Size }

// Section is a named ELF64 section header, retained verbatim.
type Section struct {
	Name string
	Hdr  SectionHeader64
}

// interval is one node of the containment index over symbol ranges,
// ordered by (low, high) so that on equal low the greater high sorts last;
// GetSymbolContainingAddress searches that ordering and keeps the
// containing range with the greatest high.
type interval struct {
	low, high uint64
	sym       *Symbol
}

// File is an immutable, non-copyable handle on a loaded ELF64 object. Two
// Files are never equal unless they are the same pointer, which is what
// lets FileAddr.ToVirt detect a mismatched owner.
type File struct {
	path string
	data []byte // mmap'd, read-only

	hdr      Header64
	sections []Section
	sectByName map[string]*Section

	symbols    []Symbol
	symsByName map[string][]*Symbol
	intervals  []interval

	loadBias uint64
	loaded   bool
}

// LoadBias implements primitives.ElfHandle.
func (f *File) LoadBias() uint64 { return f.loadBias }

func (f *File) Path() string { return f.path }
func (f *File) Header() Header64 { return f.hdr }

// Open mmaps path read-only, validates the ELF64 header, and indexes
// sections and symbols. Any failure here is fatal for this object per the
// loader error policy in spec §4.1.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, primitives.WrapPath(primitives.KindParse, component, path, err)
	}
	defer fh.Close()

	st, err := fh.Stat()
	if err != nil {
		return nil, primitives.WrapPath(primitives.KindParse, component, path, err)
	}
	if st.Size() < int64(binary.Size(Header64{})) {
		return nil, primitives.Newf(primitives.KindParse, component, "%s: file too small to be ELF64", path)
	}

	data, err := unix.Mmap(int(fh.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, primitives.WrapPath(primitives.KindParse, component, path, fmt.Errorf("mmap: %w", err))
	}

	f := &File{path: path, data: data}
	if err := f.parse(); err != nil {
		unix.Munmap(data)
		return nil, err
	}
	return f, nil
}

// Close unmaps the backing file. Any Span handed out by this File must not
// be used after Close.
func (f *File) Close() error {
	if f.data == nil {
		return nil
	}
	err := unix.Munmap(f.data)
	f.data = nil
	return err
}

func (f *File) parse() error {
	if !validIdent(f.data) {
		return primitives.Newf(primitives.KindParse, component, "%s: bad ELF magic or class/endianness", f.path)
	}
	r := bytes.NewReader(f.data)
	if err := binary.Read(r, byteOrder, &f.hdr); err != nil {
		return primitives.WrapPath(primitives.KindParse, component, f.path, err)
	}
	if f.hdr.Machine != EM_X86_64 {
		return primitives.Newf(primitives.KindParse, component, "%s: unsupported machine %d, only EM_X86_64 is supported", f.path, f.hdr.Machine)
	}
	if f.hdr.Type != ET_EXEC && f.hdr.Type != ET_DYN {
		return primitives.Newf(primitives.KindParse, component, "%s: unsupported e_type %d", f.path, f.hdr.Type)
	}

	if err := f.parseSections(); err != nil {
		return err
	}
	if err := f.parseSymbols(); err != nil {
		return err
	}
	return nil
}

func (f *File) parseSections() error {
	if f.hdr.Shnum == 0 {
		return nil
	}
	f.sections = make([]Section, f.hdr.Shnum)
	raw := make([]SectionHeader64, f.hdr.Shnum)
	for i := range raw {
		off := int64(f.hdr.Shoff) + int64(i)*int64(f.hdr.Shentsize)
		r := bytes.NewReader(f.data[off:])
		if err := binary.Read(r, byteOrder, &raw[i]); err != nil {
			return primitives.WrapPath(primitives.KindParse, component, f.path, err)
		}
	}
	if int(f.hdr.Shstrndx) >= len(raw) {
		return primitives.Newf(primitives.KindParse, component, "%s: invalid shstrndx", f.path)
	}
	strtab := raw[f.hdr.Shstrndx]
	strData := f.data[strtab.Off : strtab.Off+strtab.Size]

	f.sectByName = make(map[string]*Section, len(raw))
	for i, sh := range raw {
		name := cstr(strData, sh.Name)
		f.sections[i] = Section{Name: name, Hdr: sh}
		f.sectByName[name] = &f.sections[i]
	}
	return nil
}

func (f *File) parseSymbols() error {
	symSec := f.sectByName[".symtab"]
	if symSec == nil {
		symSec = f.sectByName[".dynsym"]
	}
	if symSec == nil {
		return nil // symbol-only functionality degrades gracefully; not fatal.
	}
	linkIdx := symSec.Hdr.Link
	if int(linkIdx) >= len(f.sections) {
		return primitives.Newf(primitives.KindParse, component, "%s: symbol table has invalid string table link", f.path)
	}
	strSec := f.sections[linkIdx]
	strData := f.data[strSec.Hdr.Off : strSec.Hdr.Off+strSec.Hdr.Size]

	n := symSec.Hdr.Size / uint64(binary.Size(Sym64{}))
	f.symbols = make([]Symbol, 0, n)
	f.symsByName = make(map[string][]*Symbol)

	entsize := symSec.Hdr.EntSize
	if entsize == 0 {
		entsize = uint64(binary.Size(Sym64{}))
	}
	for i := uint64(0); i < n; i++ {
		var raw Sym64
		off := symSec.Hdr.Off + i*entsize
		r := bytes.NewReader(f.data[off:])
		if err := binary.Read(r, byteOrder, &raw); err != nil {
			return primitives.WrapPath(primitives.KindParse, component, f.path, err)
		}
		name := cstr(strData, raw.Name)
		if name == "" {
			continue
		}
		f.symbols = append(f.symbols, Symbol{
			Name: name, Value: raw.Value, Size: raw.Size, Info: raw.Info, Shndx: raw.Shndx,
		})
	}
	for i := range f.symbols {
		s := &f.symbols[i]
		f.symsByName[s.Name] = append(f.symsByName[s.Name], s)
		if s.Size > 0 {
			f.intervals = append(f.intervals, interval{low: s.Low(), high: s.High(), sym: s})
		}
	}
	sort.Slice(f.intervals, func(i, j int) bool {
		if f.intervals[i].low != f.intervals[j].low {
			return f.intervals[i].low < f.intervals[j].low
		}
		return f.intervals[i].high < f.intervals[j].high
	})
	return nil
}

func cstr(data []byte, off uint32) string {
	if int(off) >= len(data) {
		return ""
	}
	end := bytes.IndexByte(data[off:], 0)
	if end < 0 {
		return string(data[off:])
	}
	return string(data[off : int(off)+end])
}

// Section returns the section header named name, or nil.
func (f *File) Section(name string) *Section { return f.sectByName[name] }

// SectionData returns the raw bytes of a section as a Span tied to this
// File's mmap. The Span must not be retained past f.Close.
func (f *File) SectionData(name string) (primitives.Span, bool) {
	s := f.sectByName[name]
	if s == nil {
		return primitives.Span{}, false
	}
	return primitives.NewSpan(f.data[s.Hdr.Off : s.Hdr.Off+s.Hdr.Size]), true
}

// SymbolsByName returns every symbol with the given name (multi-map lookup,
// O(k) in the number of matches).
func (f *File) SymbolsByName(name string) []*Symbol { return f.symsByName[name] }

// GetSymbolContainingAddress finds the symbol whose interval [low, high)
// contains addr, preferring -- on ties in low -- the interval with the
// greatest high that still contains addr, per spec §4.1.
func (f *File) GetSymbolContainingAddress(addr primitives.FileAddr) (*Symbol, bool) {
	if addr.Elf != f {
		return nil, false
	}
	ivs := f.intervals
	// lower_bound: first interval whose low is > addr, so every candidate
	// interval lies at indices [0, i).
	i := sort.Search(len(ivs), func(i int) bool { return ivs[i].low > addr.Value })
	var best *interval
	for j := i - 1; j >= 0; j-- {
		if addr.Value >= ivs[j].high {
			continue
		}
		if best == nil || ivs[j].high > best.high {
			best = &ivs[j]
		}
	}
	if best == nil {
		return nil, false
	}
	return best.sym, true
}

// GetSectionContainingAddress linearly scans section headers, as specified.
func (f *File) GetSectionContainingAddress(addr primitives.FileAddr) (*Section, bool) {
	if addr.Elf != f {
		return nil, false
	}
	for i := range f.sections {
		s := &f.sections[i]
		if s.Hdr.Addr == 0 {
			continue
		}
		if addr.Value >= s.Hdr.Addr && addr.Value < s.Hdr.Addr+s.Hdr.Size {
			return s, true
		}
	}
	return nil, false
}

// NotifyLoaded records the load bias once the tracee has mapped this
// object, per the invariant virt = file + load_bias.
func (f *File) NotifyLoaded(base primitives.VirtAddr) {
	if f.hdr.Type == ET_EXEC {
		f.loadBias = 0
	} else {
		f.loadBias = base.Value
	}
	f.loaded = true
}

// NotifyLoadedFromEntry sets the load bias using AT_ENTRY - e_entry, used
// for the main executable when its absolute entry point is known from the
// auxiliary vector rather than a link-map base address.
func (f *File) NotifyLoadedFromEntry(atEntry uint64) {
	f.loadBias = atEntry - f.hdr.Entry
	f.loaded = true
}

func (f *File) Loaded() bool { return f.loaded }

// DynamicDebugAddr scans PT_DYNAMIC for DT_DEBUG and returns the file
// address where the dynamic linker publishes struct r_debug, used by the
// target's rendezvous tracking.
func (f *File) DynamicDebugAddr() (primitives.FileAddr, bool) {
	if f.hdr.Phnum == 0 {
		return primitives.FileAddr{}, false
	}
	for i := 0; i < int(f.hdr.Phnum); i++ {
		off := int64(f.hdr.Phoff) + int64(i)*int64(f.hdr.Phentsize)
		var ph ProgramHeader64
		r := bytes.NewReader(f.data[off:])
		if err := binary.Read(r, byteOrder, &ph); err != nil {
			return primitives.FileAddr{}, false
		}
		if ph.Type != PT_DYNAMIC {
			continue
		}
		n := ph.Filesz / 16
		for j := uint64(0); j < n; j++ {
			base := ph.Off + j*16
			tag := byteOrder.Uint64(f.data[base : base+8])
			if tag == DT_DEBUG {
				// The linker stores the r_debug pointer in d_val at run
				// time, so return the address of that slot, not its
				// on-disk contents.
				return primitives.FileAddr{Elf: f, Value: ph.Vaddr + j*16 + 8}, true
			}
		}
	}
	return primitives.FileAddr{}, false
}

func (f *File) Sections() []Section { return f.sections }

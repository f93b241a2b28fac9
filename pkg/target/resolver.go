package target

import (
	"github.com/tracewell/tracewell/pkg/primitives"
)

// ResolveFunction implements stopoint.Resolver per spec §4.6's
// function-name resolution rule: consult the DWARF function index
// across every loaded object first; a function DIE produces one site
// at its low PC, plus one per inlined_subroutine sharing that name at
// its own low PC. If DWARF yields nothing for an object, fall back to
// ELF symbol-table matches. Duplicate addresses are deduplicated across
// every object.
func (t *Target) ResolveFunction(name string) ([]primitives.VirtAddr, error) {
	seen := map[primitives.VirtAddr]bool{}
	var out []primitives.VirtAddr
	add := func(v primitives.VirtAddr) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for _, obj := range t.Objects {
		if !obj.Elf.Loaded() {
			continue
		}
		foundDwarf := false
		if obj.Dwarf != nil {
			fis, err := obj.Dwarf.FunctionsByName(name)
			if err == nil && len(fis) > 0 {
				foundDwarf = true
				for _, fi := range fis {
					fa := primitives.FileAddr{Elf: obj.Elf, Value: fi.LowPC}
					add(fa.ToVirt(obj.Elf))
				}
			}
		}
		if !foundDwarf {
			for _, sym := range obj.Elf.SymbolsByName(name) {
				fa := primitives.FileAddr{Elf: obj.Elf, Value: sym.Value}
				add(fa.ToVirt(obj.Elf))
			}
		}
	}
	return out, nil
}

// ResolveLine implements stopoint.Resolver per spec §4.6's source-line
// resolution rule: query every compile unit's line table across every
// loaded object for a matching file path (absolute or suffix-matched)
// and line number.
func (t *Target) ResolveLine(file string, line int) ([]primitives.VirtAddr, error) {
	seen := map[primitives.VirtAddr]bool{}
	var out []primitives.VirtAddr
	for _, obj := range t.Objects {
		if obj.Dwarf == nil || !obj.Elf.Loaded() {
			continue
		}
		for _, cu := range obj.Dwarf.CompileUnits() {
			lt, err := cu.LineTable()
			if err != nil || lt == nil {
				continue
			}
			for _, e := range lt.EntriesByLine(file, line) {
				fa := primitives.FileAddr{Elf: obj.Elf, Value: e.Address}
				v := fa.ToVirt(obj.Elf)
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
	}
	return out, nil
}

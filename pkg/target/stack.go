package target

import (
	"github.com/tracewell/tracewell/pkg/dwarf"
	"github.com/tracewell/tracewell/pkg/primitives"
)

// Stack is the call-chain and inline-height cursor spec §3 names on
// Target: which inlined frame of the current concrete function the
// debugger is logically positioned at, since inlined calls have no
// runtime call frame of their own.
type Stack struct {
	InlineHeight int
}

// objectContaining returns the loaded object whose mapping contains pc,
// or nil if pc falls outside every known object.
func (t *Target) objectContaining(pc primitives.VirtAddr) *loadedObject {
	for _, obj := range t.Objects {
		if !obj.Elf.Loaded() {
			continue
		}
		fa := pc.ToFile(obj.Elf)
		if sec, ok := obj.Elf.GetSectionContainingAddress(fa); ok && sec != nil {
			return obj
		}
	}
	return nil
}

// InlineStackAt returns the inline stack at pc (outermost concrete
// function first, innermost inlined frame last), using whichever loaded object's mapping contains pc.
func (t *Target) InlineStackAt(pc primitives.VirtAddr) ([]*dwarf.FuncInfo, error) {
	obj := t.objectContaining(pc)
	if obj == nil || obj.Dwarf == nil {
		return nil, nil
	}
	fa := pc.ToFile(obj.Elf)
	return obj.Dwarf.InlineStackAt(fa.Value)
}

// lineEntryAt returns the line table row covering pc, if any.
func (t *Target) lineEntryAt(pc primitives.VirtAddr) (dwarf.LineEntry, bool) {
	obj := t.objectContaining(pc)
	if obj == nil || obj.Dwarf == nil {
		return dwarf.LineEntry{}, false
	}
	fa := pc.ToFile(obj.Elf)
	for _, cu := range obj.Dwarf.CompileUnits() {
		lt, err := cu.LineTable()
		if err != nil || lt == nil {
			continue
		}
		if e, ok := lt.EntryByAddress(fa.Value); ok {
			return e, true
		}
	}
	return dwarf.LineEntry{}, false
}

// nextLineEntryAfter returns the line table row immediately following the
// row covering pc, within whichever compile unit's table covers pc.
func (t *Target) nextLineEntryAfter(pc primitives.VirtAddr) (dwarf.LineEntry, bool) {
	obj := t.objectContaining(pc)
	if obj == nil || obj.Dwarf == nil {
		return dwarf.LineEntry{}, false
	}
	fa := pc.ToFile(obj.Elf)
	for _, cu := range obj.Dwarf.CompileUnits() {
		lt, err := cu.LineTable()
		if err != nil || lt == nil {
			continue
		}
		for i, e := range lt.Entries {
			if e.EndSequence || e.Address > fa.Value {
				continue
			}
			if i+1 < len(lt.Entries) && lt.Entries[i+1].Address <= fa.Value {
				continue
			}
			if i+1 >= len(lt.Entries) {
				return dwarf.LineEntry{}, false
			}
			return lt.Entries[i+1], true
		}
	}
	return dwarf.LineEntry{}, false
}

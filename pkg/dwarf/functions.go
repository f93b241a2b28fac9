package dwarf

import (
	"sync"

	"github.com/tracewell/tracewell/pkg/internal/lru"
)

// FuncInfo is one entry in the function index: a subprogram or inlined
// subroutine DIE, keyed by its resolved name, per spec §4.2.
type FuncInfo struct {
	Name    string
	Die     DIE
	LowPC   uint64
	HighPC  uint64
	Inlined bool
}

// addrLookupCacheSize bounds the memoized address-to-function lookups per
// compile-unit set; stepping and breakpoint resolution re-query the same
// handful of addresses repeatedly, so a small cache avoids re-scanning the
// full function list each time.
const addrLookupCacheSize = 256

// funcIndex is a lazily-built, name-multimap index over every
// DW_TAG_subprogram / DW_TAG_inlined_subroutine DIE reachable from any
// compile unit's root, built by a single depth-first walk per unit.
type funcIndex struct {
	once   sync.Once
	err    error
	byName map[string][]*FuncInfo
	all    []*FuncInfo

	addrCache *lru.Cache[uint64, *FuncInfo]
}

func (d *Data) functionIndex() (*funcIndex, error) {
	d.funcsOnce.Do(func() {
		idx := &funcIndex{
			byName:    make(map[string][]*FuncInfo),
			addrCache: lru.NewCache[uint64, *FuncInfo](addrLookupCacheSize),
		}
		for _, cu := range d.cus {
			root, err := cu.Root()
			if err != nil {
				continue
			}
			walkFunctions(root, idx)
		}
		d.funcs = idx
	})
	return d.funcs, d.funcs.err
}

func walkFunctions(d DIE, idx *funcIndex) {
	children := d.Children()
	for {
		child, ok := children.Next()
		if !ok {
			break
		}
		if child.Tag() == TagSubprogram || child.Tag() == TagInlinedSubroutine {
			name, hasName := child.Name()
			low, hasLow := child.LowPC()
			high, _ := child.HighPC()
			if hasName && hasLow {
				fi := &FuncInfo{
					Name:    name,
					Die:     child,
					LowPC:   low.Value,
					HighPC:  high,
					Inlined: child.Tag() == TagInlinedSubroutine,
				}
				idx.byName[name] = append(idx.byName[name], fi)
				idx.all = append(idx.all, fi)
			}
		}
		walkFunctions(child, idx)
	}
	if err := children.Err(); err != nil && idx.err == nil {
		idx.err = err
	}
}

// FunctionsByName returns every subprogram/inlined-subroutine DIE indexed
// under the given name; a DWARF object can legally carry more than one
// (e.g. a declaration and a definition, or duplicate inline expansions).
func (d *Data) FunctionsByName(name string) ([]*FuncInfo, error) {
	idx, err := d.functionIndex()
	if err != nil {
		return nil, err
	}
	return idx.byName[name], nil
}

// FunctionContainingAddress returns the innermost (smallest range)
// non-inlined function whose low/high bounds contain addr, per spec §4.2's
// function-containment invariant.
func (d *Data) FunctionContainingAddress(addr uint64) (*FuncInfo, error) {
	idx, err := d.functionIndex()
	if err != nil {
		return nil, err
	}
	if best, ok := idx.addrCache.Get(addr); ok {
		return best, nil
	}
	var best *FuncInfo
	for _, fi := range idx.all {
		if fi.Inlined {
			continue
		}
		if addr < fi.LowPC || addr >= fi.HighPC {
			continue
		}
		if best == nil || fi.HighPC-fi.LowPC < best.HighPC-best.LowPC {
			best = fi
		}
	}
	idx.addrCache.Add(addr, best)
	return best, nil
}

// InlineStackAt returns the frames that contain addr ordered
// outermost-first: the enclosing concrete function, then the
// inlined_subroutine expansions from largest to smallest range, so the
// innermost frame is last. An address inside no inlined expansion yields a
// one-element stack (just the concrete function), or nil if addr is
// outside every function.
func (d *Data) InlineStackAt(addr uint64) ([]*FuncInfo, error) {
	idx, err := d.functionIndex()
	if err != nil {
		return nil, err
	}
	concrete, err := d.FunctionContainingAddress(addr)
	if err != nil || concrete == nil {
		return nil, err
	}
	var inlines []*FuncInfo
	for _, fi := range idx.all {
		if !fi.Inlined {
			continue
		}
		if addr < fi.LowPC || addr >= fi.HighPC {
			continue
		}
		if fi.LowPC >= concrete.LowPC && fi.HighPC <= concrete.HighPC {
			inlines = append(inlines, fi)
		}
	}
	// Outermost (largest range) first.
	for i := 0; i < len(inlines); i++ {
		for j := i + 1; j < len(inlines); j++ {
			if inlines[j].HighPC-inlines[j].LowPC > inlines[i].HighPC-inlines[i].LowPC {
				inlines[i], inlines[j] = inlines[j], inlines[i]
			}
		}
	}
	stack := make([]*FuncInfo, 0, len(inlines)+1)
	stack = append(stack, concrete)
	stack = append(stack, inlines...)
	return stack, nil
}

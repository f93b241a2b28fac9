package dwarf

// AddrRange is one contiguous [Low, High) range produced by a range list.
type AddrRange struct {
	Low, High uint64
}

func (r AddrRange) Contains(addr uint64) bool { return addr >= r.Low && addr < r.High }

// RangeList is the decoded form of a DW_AT_ranges attribute: a set of
// address ranges, possibly discontiguous, relative to a base address that
// can change mid-list via a base-address-selection entry.
type RangeList struct {
	Ranges []AddrRange
}

// Contains ORs containment across every range in the list.
func (rl RangeList) Contains(addr uint64) bool {
	for _, r := range rl.Ranges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// baseSelector is the all-ones sentinel (~0) that introduces a new base
// address in a .debug_ranges list, per spec §4.2.
const baseSelector = ^uint64(0)

// parseRangeList iterates pairs of u64 values from .debug_ranges starting
// at offset. (~0, base) sets the base address; (0,0) terminates; any other
// pair is emitted as (base+low, base+high).
func (d *Data) parseRangeList(offset uint32, initialBase uint64) (RangeList, error) {
	if int(offset) >= len(d.debugRanges) {
		return RangeList{}, nil
	}
	c := NewCursor(d.debugRanges)
	c.SetPos(int(offset))
	base := initialBase
	var rl RangeList
	for !c.AtEnd() {
		lo := c.U64()
		hi := c.U64()
		if lo == 0 && hi == 0 {
			break
		}
		if lo == baseSelector {
			base = hi
			continue
		}
		rl.Ranges = append(rl.Ranges, AddrRange{Low: base + lo, High: base + hi})
	}
	return rl, nil
}

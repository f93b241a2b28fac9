package target

import (
	"encoding/binary"

	"github.com/tracewell/tracewell/pkg/elf"
	"github.com/tracewell/tracewell/pkg/dwarf"
	"github.com/tracewell/tracewell/pkg/primitives"
)

// r_debug field offsets within glibc's public struct r_debug on x86-64:
// int r_version (+4 pad), struct link_map *r_map, ElfW(Addr) r_brk,
// enum r_state (+4 pad), ElfW(Addr) r_ldbase.
const (
	rDebugMapOff   = 8
	rDebugBrkOff   = 16
	rDebugStateOff = 24
)

// link_map field offsets within glibc's public struct link_map: only the
// ABI-stable prefix (l_addr, l_name, l_ld, l_next, l_prev) is read; the
// remaining fields are glibc-internal and not needed here.
const (
	linkMapAddrOff = 0
	linkMapNameOff = 8
	linkMapNextOff = 24
)

// rState mirrors r_debug's r_state enum.
type rState int32

const (
	rtConsistent rState = 0
	rtAdd        rState = 1
	rtDelete     rState = 2
)

// installRendezvousBreakpoint reads DT_DEBUG from the main ELF's
// PT_DYNAMIC and installs an internal software breakpoint at r_brk, per
// spec §4.7's dynamic linker rendezvous. A statically linked executable
// has no PT_DYNAMIC and simply never sees this breakpoint fire.
func (t *Target) installRendezvousBreakpoint() {
	debugLoc, ok := t.Main.Elf.DynamicDebugAddr()
	if !ok {
		return
	}
	debugLocVirt := debugLoc.ToVirt(t.Main.Elf)
	word, err := t.Process.ReadMemory(debugLocVirt.Value, 8)
	if err != nil || allZero(word) {
		return
	}
	rDebugAddr := binary.LittleEndian.Uint64(word)

	brkBuf, err := t.Process.ReadMemory(rDebugAddr+rDebugBrkOff, 8)
	if err != nil {
		return
	}
	rBrk := binary.LittleEndian.Uint64(brkBuf)
	if rBrk == 0 {
		return
	}
	t.rendezvousAddr = primitives.VirtAddr{Value: rDebugAddr}
	t.rendezvousBP = t.Breakpoints.CreateInternalBreakpoint(primitives.VirtAddr{Value: rBrk})
	if err := t.rendezvousBP.Enable(t); err != nil && t.log != nil {
		t.log.WithError(err).Warn("failed to enable dynamic linker rendezvous breakpoint")
	}
}

// HandleRendezvousHit reports whether pc is the rendezvous breakpoint's
// address and, if its r_state has reached RT_CONSISTENT, refreshes the
// set of loaded objects and re-resolves every breakpoint, per spec
// §4.7 and the ordering invariant in spec §5 gating reloads on
// RT_CONSISTENT.
func (t *Target) HandleRendezvousHit(pc primitives.VirtAddr) (bool, error) {
	if t.rendezvousBP == nil {
		return false, nil
	}
	if _, ok := t.rendezvousBP.Sites.ByAddress(pc); !ok {
		return false, nil
	}
	stateBuf, err := t.Process.ReadMemory(t.rendezvousAddr.Value+rDebugStateOff, 4)
	if err != nil {
		return true, err
	}
	state := rState(int32(binary.LittleEndian.Uint32(stateBuf)))
	if state != rtConsistent {
		return true, nil
	}
	if err := t.reloadSharedObjects(); err != nil {
		return true, err
	}
	return true, t.Breakpoints.ResolveAll(t)
}

// reloadSharedObjects walks the link_map rooted at r_debug.r_map,
// loading any newly listed object and dropping any that's no longer
// present, per spec §4.7's "load any newly listed object ... drop any
// ELF no longer listed and purge its sites."
func (t *Target) reloadSharedObjects() error {
	mapBuf, err := t.Process.ReadMemory(t.rendezvousAddr.Value+rDebugMapOff, 8)
	if err != nil {
		return err
	}
	cur := binary.LittleEndian.Uint64(mapBuf)

	seen := map[uint64]bool{}
	for cur != 0 {
		node, err := t.Process.ReadMemory(cur, 32)
		if err != nil {
			break
		}
		lAddr := binary.LittleEndian.Uint64(node[linkMapAddrOff:])
		lNamePtr := binary.LittleEndian.Uint64(node[linkMapNameOff:])
		lNext := binary.LittleEndian.Uint64(node[linkMapNextOff:])

		if lAddr != 0 {
			seen[lAddr] = true
			if _, loaded := t.linkMap[lAddr]; !loaded {
				t.loadSharedObject(lAddr, lNamePtr)
			}
		}
		cur = lNext
	}

	for addr, obj := range t.linkMap {
		if !seen[addr] {
			t.unloadObject(obj)
			delete(t.linkMap, addr)
		}
	}
	return nil
}

func (t *Target) loadSharedObject(lAddr, lNamePtr uint64) {
	if lNamePtr == 0 {
		return
	}
	path, err := t.Process.ReadCString(lNamePtr)
	if err != nil || path == "" {
		return
	}
	ef, err := elf.Open(path)
	if err != nil {
		if t.log != nil {
			t.log.WithError(err).WithField("path", path).Warn("failed to load shared object")
		}
		return
	}
	ef.NotifyLoaded(primitives.VirtAddr{Value: lAddr})
	dw, _ := dwarf.Load(ef, t.log)

	obj := &loadedObject{Elf: ef, Dwarf: dw}
	t.Objects = append(t.Objects, obj)
	t.linkMap[lAddr] = obj
}

func (t *Target) unloadObject(obj *loadedObject) {
	for i, o := range t.Objects {
		if o == obj {
			t.Objects = append(t.Objects[:i], t.Objects[i+1:]...)
			break
		}
	}
	obj.Elf.Close()
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

package registers

import "github.com/tracewell/tracewell/pkg/primitives"

// WatchMode is the access type a hardware watchpoint traps on.
type WatchMode int

const (
	WatchExecute WatchMode = iota
	WatchWrite
	WatchReadWrite
)

// drIDs is the DR0..DR3 address-slot IDs in index order.
var drIDs = [4]ID{DR0, DR1, DR2, DR3}

func lenrwOffset(idx uint8) uint { return 16 + uint(idx)*4 }
func enableOffset(idx uint8) uint { return uint(idx) * 2 }

func (r *Registers) dr7() uint64 {
	v, _ := r.ReadUint(DR7)
	return v
}

func (r *Registers) setDR7(v uint64) { r.WriteUint(DR7, v) }

// slotInfo reports the address, mode, and size currently programmed into
// debug register slot idx, mirroring the bit layout of DR7 described in
// spec §4.6 (Intel SDM Vol 3B §17.2).
func (r *Registers) slotInfo(idx uint8) (addr uint64, mode WatchMode, size int, enabled bool) {
	dr7 := r.dr7()
	if dr7&(1<<enableOffset(idx)) == 0 {
		return 0, 0, 0, false
	}
	addr, _ = r.ReadUint(drIDs[idx])
	lenrw := (dr7 >> lenrwOffset(idx)) & 0xf
	rw := lenrw & 0x3
	switch rw {
	case 0x0:
		mode = WatchExecute
	case 0x1:
		mode = WatchWrite
	case 0x3:
		mode = WatchReadWrite
	default:
		mode = WatchWrite
	}
	switch lenrw >> 2 {
	case 0x0:
		size = 1
	case 0x1:
		size = 2
	case 0x3:
		size = 4
	case 0x2:
		size = 8
	}
	return addr, mode, size, true
}

// AllocateSlot finds a free DR0..DR3 slot and programs it with addr,
// mode, and size, per spec §4.6: DR7 type bits (00=exec, 01=write,
// 11=read/write) and length bits (00=1, 01=2, 10=8, 11=4). Returns the
// slot index used.
func (r *Registers) AllocateSlot(addr uint64, mode WatchMode, size int) (uint8, error) {
	for idx := uint8(0); idx < 4; idx++ {
		if _, _, _, enabled := r.slotInfo(idx); !enabled {
			if err := r.programSlot(idx, addr, mode, size); err != nil {
				return 0, err
			}
			return idx, nil
		}
	}
	return 0, primitives.Newf(primitives.KindInvariant, component, "hardware breakpoint slots exhausted")
}

func (r *Registers) programSlot(idx uint8, addr uint64, mode WatchMode, size int) error {
	if err := r.WriteUint(drIDs[idx], addr); err != nil {
		return err
	}
	var rw uint64
	switch mode {
	case WatchExecute:
		rw = 0x0
	case WatchWrite:
		rw = 0x1
	case WatchReadWrite:
		rw = 0x3
	}
	var lenBits uint64
	switch size {
	case 1:
		lenBits = 0x0
	case 2:
		lenBits = 0x1
	case 4:
		lenBits = 0x3
	case 8:
		lenBits = 0x2
	default:
		return primitives.Newf(primitives.KindInvariant, component, "unsupported hardware breakpoint size %d", size)
	}
	dr7 := r.dr7()
	dr7 &^= 0xf << lenrwOffset(idx)
	dr7 |= (lenBits<<2 | rw) << lenrwOffset(idx)
	dr7 |= 1 << enableOffset(idx)
	r.setDR7(dr7)
	return nil
}

// ReleaseSlot clears the enable bit for slot idx, per spec §4.6's
// "Releasing a slot clears its bits."
func (r *Registers) ReleaseSlot(idx uint8) {
	dr7 := r.dr7()
	dr7 &^= 1 << enableOffset(idx)
	r.setDR7(dr7)
}

// ActiveSlot reports which debug register tripped on the most recent
// stop by inspecting DR6's condition bits, clearing them afterward since
// the kernel does not do so automatically.
func (r *Registers) ActiveSlot() (idx uint8, ok bool) {
	dr6, _ := r.ReadUint(DR6)
	for i := uint8(0); i < 4; i++ {
		if dr6&(1<<i) != 0 {
			dr6 &^= 0xf
			r.WriteUint(DR6, dr6)
			return i, true
		}
	}
	return 0, false
}

// SlotAddress returns the address currently programmed into slot idx.
func (r *Registers) SlotAddress(idx uint8) uint64 {
	v, _ := r.ReadUint(drIDs[idx])
	return v
}

package stopoint

import (
	"encoding/binary"

	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/registers"
)

// Watchpoint is a hardware data watchpoint, per spec §3's
// `watchpoint{id, address, mode, size, prev_data, data, hw_index}`.
type Watchpoint struct {
	ID      int
	Address primitives.VirtAddr
	Mode    registers.WatchMode
	Size    int

	Enabled bool

	PrevData uint64
	Data     uint64

	hwIndex   uint8
	hwIndexOK bool

	tracee Tracee
}

func newWatchpoint(id int, addr primitives.VirtAddr, mode registers.WatchMode, size int, tracee Tracee) *Watchpoint {
	return &Watchpoint{ID: id, Address: addr, Mode: mode, Size: size, tracee: tracee}
}

// Enable allocates a debug register slot programmed for this
// watchpoint's mode and size, and seeds Data/PrevData from the current
// memory contents.
func (w *Watchpoint) Enable() error {
	if w.Enabled {
		return nil
	}
	idx, err := w.tracee.Registers().AllocateSlot(w.Address.Value, w.Mode, w.Size)
	if err != nil {
		return err
	}
	w.hwIndex, w.hwIndexOK = idx, true
	w.Enabled = true
	if err := w.readData(); err != nil {
		return err
	}
	w.PrevData = w.Data
	return nil
}

// Disable releases the watchpoint's debug register slot.
func (w *Watchpoint) Disable() error {
	if !w.Enabled {
		return nil
	}
	if w.hwIndexOK {
		w.tracee.Registers().ReleaseSlot(w.hwIndex)
		w.hwIndexOK = false
	}
	w.Enabled = false
	return nil
}

// Update re-reads the value at the watchpoint's address, shifting the
// current value into PrevData, per spec §4.6: "updates them on every
// stop to report the transition."
func (w *Watchpoint) Update() error {
	w.PrevData = w.Data
	return w.readData()
}

func (w *Watchpoint) readData() error {
	buf, err := w.tracee.ReadMemory(w.Address.Value, w.Size)
	if err != nil {
		return err
	}
	var v uint64
	switch w.Size {
	case 1:
		v = uint64(buf[0])
	case 2:
		v = uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		v = uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		v = binary.LittleEndian.Uint64(buf)
	}
	w.Data = v
	return nil
}

// HWIndex reports the debug register slot this watchpoint occupies, if
// enabled.
func (w *Watchpoint) HWIndex() (uint8, bool) { return w.hwIndex, w.hwIndexOK }

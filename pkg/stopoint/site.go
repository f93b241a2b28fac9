// Package stopoint implements the stop-point engine described in spec
// §4.6: software and hardware breakpoint sites, watchpoints, and the
// three concrete breakpoint kinds (address, function-name, source-line)
// that resolve into child sites.
package stopoint

import (
	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/registers"
)

const component = "stopoint"

// Tracee is the subset of *process.Process the stop-point engine needs:
// memory I/O, register access for the hardware-breakpoint slot allocator,
// and the installed-byte registry that read_memory_without_traps
// consults. Declared as an interface so this package's tests can use a
// fake tracee instead of a real ptrace session.
type Tracee interface {
	ReadMemory(addr uint64, n int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error
	RegisterInstalledSite(addr uint64, original byte)
	UnregisterInstalledSite(addr uint64)
	Registers() *registers.Registers
}

// BreakpointSite is one physical installation location, per spec §3's
// `breakpoint_site{id, address, enabled, hardware, internal, saved_byte,
// hw_index?}`.
type BreakpointSite struct {
	ID       int
	Address  primitives.VirtAddr
	Enabled  bool
	Hardware bool
	Internal bool

	savedByte byte
	hwIndex   uint8
	hwIndexOK bool

	tracee Tracee
}

func newBreakpointSite(id int, addr primitives.VirtAddr, tracee Tracee, hardware, internal bool) *BreakpointSite {
	return &BreakpointSite{ID: id, Address: addr, Hardware: hardware, Internal: internal, tracee: tracee}
}

// Enable installs the site: for a software site, this reads the current
// byte at address, saves it, and writes 0xCC; for a hardware site, this
// allocates a debug register slot programmed for execution, per spec
// §4.6.
func (s *BreakpointSite) Enable() error {
	if s.Enabled {
		return nil
	}
	if s.Hardware {
		idx, err := s.tracee.Registers().AllocateSlot(s.Address.Value, registers.WatchExecute, 1)
		if err != nil {
			return err
		}
		s.hwIndex, s.hwIndexOK = idx, true
		s.Enabled = true
		return nil
	}
	orig, err := s.tracee.ReadMemory(s.Address.Value, 1)
	if err != nil {
		return err
	}
	s.savedByte = orig[0]
	if err := s.tracee.WriteMemory(s.Address.Value, []byte{0xCC}); err != nil {
		return err
	}
	s.tracee.RegisterInstalledSite(s.Address.Value, s.savedByte)
	s.Enabled = true
	return nil
}

// Disable uninstalls the site: for software, it restores the saved byte;
// for hardware, it releases the debug register slot. Both operations are
// idempotent.
func (s *BreakpointSite) Disable() error {
	if !s.Enabled {
		return nil
	}
	if s.Hardware {
		if s.hwIndexOK {
			s.tracee.Registers().ReleaseSlot(s.hwIndex)
			s.hwIndexOK = false
		}
		s.Enabled = false
		return nil
	}
	if err := s.tracee.WriteMemory(s.Address.Value, []byte{s.savedByte}); err != nil {
		return err
	}
	s.tracee.UnregisterInstalledSite(s.Address.Value)
	s.Enabled = false
	return nil
}

// SavedByte returns the original byte this software site is masking.
func (s *BreakpointSite) SavedByte() byte { return s.savedByte }

// IsAt reports whether this site's address is addr.
func (s *BreakpointSite) IsAt(addr primitives.VirtAddr) bool { return s.Address == addr }

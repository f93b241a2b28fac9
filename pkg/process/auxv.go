package process

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/tracewell/tracewell/pkg/primitives"
)

// Auxv tag numbers this package cares about; the full list is read and
// kept regardless, per spec §4.5's "Auxv. Loaded once ... into a map of
// tag→value," but AT_ENTRY is the one load-bias computation needs.
const (
	atNull  = 0
	atEntry = 9
)

// loadAuxv reads /proc/<pid>/auxv into p.auxv as tag→value pairs,
// generalizing the single-tag pattern used elsewhere in the corpus to
// capture every entry the kernel hands back.
func (p *Process) loadAuxv() error {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/auxv", p.Pid))
	if err != nil {
		return primitives.WrapPath(primitives.KindOS, component, "/proc/<pid>/auxv", err)
	}
	p.auxv = map[uint64]uint64{}
	for off := 0; off+16 <= len(data); off += 16 {
		tag := binary.LittleEndian.Uint64(data[off:])
		val := binary.LittleEndian.Uint64(data[off+8:])
		if tag == atNull {
			break
		}
		p.auxv[tag] = val
	}
	return nil
}

// Auxv returns the value for tag, if present.
func (p *Process) Auxv(tag uint64) (uint64, bool) {
	v, ok := p.auxv[tag]
	return v, ok
}

// EntryPoint returns AT_ENTRY, the runtime entry address of the main
// executable as loaded, used to compute its load bias against the
// static ELF entry point.
func (p *Process) EntryPoint() (uint64, bool) {
	return p.Auxv(atEntry)
}

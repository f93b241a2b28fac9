package registers

import (
	"encoding/binary"
	"math"

	"github.com/tracewell/tracewell/pkg/primitives"
)

const component = "registers"

// userAreaSize covers the GPR block plus the eight debug registers; FPU
// state is tracked in a separate fixed-size buffer mirroring
// user_fpregs_struct, since its layout (x87 ST space, XMM space) isn't
// addressed by the same linear offset scheme as GPR/DR.
const userAreaSize = userDebugRegOffset + 8*8
const fpRegsSize = 512

// Registers caches one stop's worth of the tracee's register state: the
// GPR/DR "user area" bytes and the FPU save area, read once per stop and
// flushed back lazily on resume, per spec §4.4.
type Registers struct {
	user   [userAreaSize]byte
	fpregs [fpRegsSize]byte

	dirtyGPR bool
	dirtyDR  bool
	dirtyFPR bool
}

// New constructs an empty register cache; callers populate it via
// LoadGPR/LoadFPR immediately after a stop.
func New() *Registers { return &Registers{} }

// LoadGPR installs the raw bytes read via PTRACE_GETREGS, which must be
// exactly userDebugRegOffset bytes (the kernel's user_regs_struct size).
func (r *Registers) LoadGPR(data []byte) {
	copy(r.user[:userDebugRegOffset], data)
	r.dirtyGPR = false
}

// LoadDebugRegs installs the eight debug register values, typically read
// individually via PTRACE_PEEKUSER.
func (r *Registers) LoadDebugRegs(dr [8]uint64) {
	for i, v := range dr {
		binary.LittleEndian.PutUint64(r.user[userDebugRegOffset+i*8:], v)
	}
	r.dirtyDR = false
}

// LoadFPR installs the raw bytes read via PTRACE_GETFPREGS.
func (r *Registers) LoadFPR(data []byte) {
	copy(r.fpregs[:], data)
	r.dirtyFPR = false
}

// GPRBytes returns the bytes to write back via PTRACE_SETREGS.
func (r *Registers) GPRBytes() []byte { return r.user[:userDebugRegOffset] }

// FPRBytes returns the bytes to write back via PTRACE_SETFPREGS.
func (r *Registers) FPRBytes() []byte { return r.fpregs[:] }

// DebugRegValues returns the eight current debug register values.
func (r *Registers) DebugRegValues() [8]uint64 {
	var dr [8]uint64
	for i := range dr {
		dr[i] = binary.LittleEndian.Uint64(r.user[userDebugRegOffset+i*8:])
	}
	return dr
}

func (r *Registers) DirtyGPR() bool { return r.dirtyGPR }
func (r *Registers) DirtyDR() bool  { return r.dirtyDR }
func (r *Registers) DirtyFPR() bool { return r.dirtyFPR }

func (r *Registers) ClearDirty() {
	r.dirtyGPR, r.dirtyDR, r.dirtyFPR = false, false, false
}

func (r *Registers) bytesFor(info *Info) []byte {
	if info.Category == CategoryFPR {
		return r.fpregs[info.Offset : info.Offset+info.Size]
	}
	return r.user[info.Offset : info.Offset+info.Size]
}

// ReadUint reads a GPR/sub-GPR/DR register as an unsigned integer,
// rejecting any register whose format isn't FormatUint, per the
// write_by_id type-check rule in spec §4.4 (symmetric for reads).
func (r *Registers) ReadUint(id ID) (uint64, error) {
	info := ByID(id)
	if info == nil {
		return 0, primitives.Newf(primitives.KindLookup, component, "unknown register id %d", id)
	}
	if info.Format != FormatUint {
		return 0, primitives.Newf(primitives.KindInvariant, component, "register %s is not an integer register", info.Name)
	}
	return readUintBytes(r.bytesFor(info)), nil
}

// ReadByDwarf reads a register by DWARF register number.
func (r *Registers) ReadByDwarf(dwarfID int) (uint64, error) {
	info, ok := ByDwarf(dwarfID)
	if !ok {
		return 0, primitives.Newf(primitives.KindLookup, component, "no register with DWARF id %d", dwarfID)
	}
	return r.ReadUint(info.ID)
}

// WriteUint type-checks against the register's declared format, updates
// the local cache, and marks the owning category dirty for flush on
// resume, per spec §4.4.
func (r *Registers) WriteUint(id ID, v uint64) error {
	info := ByID(id)
	if info == nil {
		return primitives.Newf(primitives.KindLookup, component, "unknown register id %d", id)
	}
	if info.Format != FormatUint {
		return primitives.Newf(primitives.KindInvariant, component, "register %s is not an integer register", info.Name)
	}
	writeUintBytes(r.bytesFor(info), v, info.Size)
	r.markDirty(info.Category)
	return nil
}

// ReadDouble reads an FPR-category register formatted as a double.
func (r *Registers) ReadDouble(id ID) (float64, error) {
	info := ByID(id)
	if info == nil {
		return 0, primitives.Newf(primitives.KindLookup, component, "unknown register id %d", id)
	}
	if info.Format != FormatDouble {
		return 0, primitives.Newf(primitives.KindInvariant, component, "register %s is not a double register", info.Name)
	}
	bits := readUintBytes(r.bytesFor(info))
	return math.Float64frombits(bits), nil
}

// WriteDouble writes an FPR-category register formatted as a double.
func (r *Registers) WriteDouble(id ID, v float64) error {
	info := ByID(id)
	if info == nil {
		return primitives.Newf(primitives.KindLookup, component, "unknown register id %d", id)
	}
	if info.Format != FormatDouble {
		return primitives.Newf(primitives.KindInvariant, component, "register %s is not a double register", info.Name)
	}
	writeUintBytes(r.bytesFor(info), math.Float64bits(v), info.Size)
	r.markDirty(info.Category)
	return nil
}

// ReadVector reads an FPR-category vector register (e.g. an XMM lane) as
// raw bytes.
func (r *Registers) ReadVector(id ID) ([]byte, error) {
	info := ByID(id)
	if info == nil {
		return nil, primitives.Newf(primitives.KindLookup, component, "unknown register id %d", id)
	}
	if info.Format != FormatVector {
		return nil, primitives.Newf(primitives.KindInvariant, component, "register %s is not a vector register", info.Name)
	}
	buf := make([]byte, info.Size)
	copy(buf, r.bytesFor(info))
	return buf, nil
}

func (r *Registers) markDirty(cat Category) {
	switch cat {
	case CategoryGPR, CategorySubGPR:
		r.dirtyGPR = true
	case CategoryDR:
		r.dirtyDR = true
	case CategoryFPR:
		r.dirtyFPR = true
	}
}

func readUintBytes(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

// writeUintBytes performs read-modify-write on sub-GPR registers: it
// writes exactly size bytes at the register's offset, leaving the rest
// of the containing 8-byte GPR word untouched, per spec §4.4's
// "sub-GPR writes performing read-modify-write on the containing
// register."
func writeUintBytes(b []byte, v uint64, size int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(b, buf[:size])
}

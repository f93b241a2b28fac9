package process

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/registers"
)

// ptraceRegsSize is sizeof(struct user_regs_struct) on x86-64: 27 GPR
// slots of 8 bytes each, matching unix.PtraceRegs's layout exactly.
const ptraceRegsSize = 27 * 8

// ptraceRegsBytes reinterprets a PtraceRegs value as its raw bytes, since
// unix.PtraceRegs has the same field layout as the kernel's
// user_regs_struct and registers.Registers' GPR block.
func ptraceRegsBytes(r *unix.PtraceRegs) []byte {
	return (*[ptraceRegsSize]byte)(unsafe.Pointer(r))[:]
}

// bytesToPtraceRegs is the inverse of ptraceRegsBytes, used before
// PTRACE_SETREGS.
func bytesToPtraceRegs(b []byte) unix.PtraceRegs {
	var r unix.PtraceRegs
	copy((*[ptraceRegsSize]byte)(unsafe.Pointer(&r))[:], b)
	return r
}

// peekDebugReg and pokeDebugReg access u_debugreg[idx] via
// PTRACE_PEEKUSER/POKEUSER, since golang.org/x/sys/unix does not wrap
// these the way it wraps PEEKTEXT/POKETEXT.
func (p *Process) peekDebugReg(idx int) (uint64, error) {
	var v uint64
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, unix.PTRACE_PEEKUSR,
		uintptr(p.Pid), uintptr(registers.DebugRegOffset(idx)), uintptr(unsafe.Pointer(&v)), 0, 0)
	if errno != 0 {
		return 0, primitives.Wrap(primitives.KindOS, component, errno)
	}
	return v, nil
}

func (p *Process) pokeDebugReg(idx int, v uint64) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, unix.PTRACE_POKEUSR,
		uintptr(p.Pid), uintptr(registers.DebugRegOffset(idx)), uintptr(v), 0, 0)
	if errno != 0 {
		return primitives.Wrap(primitives.KindOS, component, errno)
	}
	return nil
}

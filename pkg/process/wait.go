package process

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/registers"
)

// TrapType classifies why a SIGTRAP/SIGSTOP stop happened, per spec
// §4.5's wait_on_signal classification table.
type TrapType int

const (
	TrapNone TrapType = iota
	TrapSingleStep
	TrapSoftwareBreakpoint
	TrapHardwareBreakpoint
	TrapWatchpoint
	TrapSyscall
)

// SyscallInfo decodes the entry/exit alternation of a PTRACE_SYSCALL stop.
type SyscallInfo struct {
	Number uint64
	Entry  bool
}

// StopReason is the {state, info, trap_type?, syscall_info?} tuple
// wait_on_signal produces, per spec §4.5.
type StopReason struct {
	State      State
	ExitStatus int
	Signal     unix.Signal
	TrapType   TrapType
	Syscall    *SyscallInfo
}

// siKernel is ORed into SIGTRAP to recognise syscall stops; the si_code
// values TRAP_TRACE and TRAP_HWBKPT pick out single-step and hardware
// breakpoint/watchpoint traps. Any other SIGTRAP si_code (SI_KERNEL,
// TRAP_BRKPT, ...) is classified as a software breakpoint, per the Linux
// siginfo ABI.
const (
	siKernel  = 0x80
	trapBrkpt = 1
	trapTrace = 2
	trapHwBkpt = 4
)

// WaitOnSignal blocks in waitpid(pid), then classifies the resulting
// stop per spec §4.5. Apart from Kill, which marks the process
// terminated, it is the only place State transitions away from running.
func (p *Process) WaitOnSignal() (StopReason, error) {
	var ws unix.WaitStatus
	_, err := unix.Wait4(p.Pid, &ws, 0, nil)
	if err != nil {
		return StopReason{}, primitives.Wrap(primitives.KindOS, component, err)
	}

	switch {
	case ws.Exited():
		p.State = StateExited
		return StopReason{State: StateExited, ExitStatus: ws.ExitStatus()}, nil
	case ws.Signaled():
		p.State = StateTerminated
		return StopReason{State: StateTerminated, Signal: ws.Signal()}, nil
	case ws.Stopped():
		p.State = StateStopped
		reason := StopReason{State: StateStopped, Signal: ws.StopSignal()}
		if err := p.refreshRegisters(); err != nil {
			return reason, err
		}
		p.classifyTrap(&reason)
		return reason, nil
	default:
		return StopReason{}, primitives.Newf(primitives.KindInvariant, component, "unrecognized wait status")
	}
}

func (p *Process) classifyTrap(reason *StopReason) {
	sig := reason.Signal
	if sig == unix.SIGTRAP|siKernel {
		reason.TrapType = TrapSyscall
		reason.Syscall = p.decodeSyscall()
		return
	}
	if sig != unix.SIGTRAP && sig != unix.SIGSTOP {
		return
	}

	siCode, err := p.getSigCode()
	if err == nil {
		switch siCode {
		case trapTrace:
			reason.TrapType = TrapSingleStep
			return
		case trapHwBkpt:
			if idx, ok := p.Regs.ActiveSlot(); ok {
				p.lastActiveHWSlot = idx
				reason.TrapType = TrapHardwareBreakpoint
			} else {
				reason.TrapType = TrapWatchpoint
			}
			return
		}
	}

	reason.TrapType = TrapSoftwareBreakpoint
	if pc := p.GetPC(); pc > 0 {
		if _, ok := p.installed[pc-1]; ok {
			p.SetPC(pc - 1)
		}
	}
}

func (p *Process) decodeSyscall() *SyscallInfo {
	num, _ := p.Regs.ReadUint(registers.ORIG_RAX)
	entry := p.lastSyscallWasEntry
	p.lastSyscallWasEntry = !p.lastSyscallWasEntry
	return &SyscallInfo{Number: num, Entry: !entry}
}

func (p *Process) getSigCode() (int32, error) {
	var info unix.Siginfo
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, unix.PTRACE_GETSIGINFO,
		uintptr(p.Pid), 0, uintptr(unsafe.Pointer(&info)), 0, 0)
	if errno != 0 {
		return 0, primitives.Wrap(primitives.KindOS, component, errno)
	}
	return info.Code, nil
}

// getFPRegs and setFPRegs issue PTRACE_GETFPREGS/PTRACE_SETFPREGS directly:
// x/sys/unix has no typed wrapper for either, since user_fpregs_struct
// isn't declared there the way PtraceRegs is, so the data pointer targets
// the raw fxsave buffer straight from Registers' backing bytes.
func (p *Process) getFPRegs(buf []byte) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, unix.PTRACE_GETFPREGS,
		uintptr(p.Pid), 0, uintptr(unsafe.Pointer(&buf[0])), 0, 0)
	if errno != 0 {
		return primitives.Wrap(primitives.KindOS, component, errno)
	}
	return nil
}

func (p *Process) setFPRegs(buf []byte) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, unix.PTRACE_SETFPREGS,
		uintptr(p.Pid), 0, uintptr(unsafe.Pointer(&buf[0])), 0, 0)
	if errno != 0 {
		return primitives.Wrap(primitives.KindOS, component, errno)
	}
	return nil
}

// Resume flushes dirty registers and hardware debug-register state, then
// issues PTRACE_CONT, per spec §4.5.
func (p *Process) Resume(sig int) error {
	if err := p.requireStopped("resume"); err != nil {
		return err
	}
	if err := p.flushRegisters(); err != nil {
		return err
	}
	if err := unix.PtraceCont(p.Pid, sig); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	p.State = StateRunning
	return nil
}

// ResumeSyscall issues PTRACE_SYSCALL, stopping at the next syscall
// entry or exit.
func (p *Process) ResumeSyscall() error {
	if err := p.requireStopped("resume (syscall)"); err != nil {
		return err
	}
	if err := p.flushRegisters(); err != nil {
		return err
	}
	if err := unix.PtraceSyscall(p.Pid, 0); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	p.State = StateRunning
	return nil
}

// SingleStep issues PTRACE_SINGLESTEP directly, with no breakpoint
// awareness; StepOverBreakpointSite wraps this with the disable/re-enable
// dance spec §4.5 requires.
func (p *Process) SingleStep() error {
	if err := p.requireStopped("single-step"); err != nil {
		return err
	}
	if err := p.flushRegisters(); err != nil {
		return err
	}
	if err := unix.PtraceSingleStep(p.Pid); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	p.State = StateRunning
	return nil
}

func (p *Process) refreshRegisters() error {
	var gpr unix.PtraceRegs
	if err := unix.PtraceGetRegs(p.Pid, &gpr); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	p.Regs.LoadGPR(ptraceRegsBytes(&gpr))

	var dr [8]uint64
	for i := range dr {
		v, err := p.peekDebugReg(i)
		if err == nil {
			dr[i] = v
		}
	}
	p.Regs.LoadDebugRegs(dr)

	fpr := make([]byte, len(p.Regs.FPRBytes()))
	if err := p.getFPRegs(fpr); err != nil {
		return err
	}
	p.Regs.LoadFPR(fpr)
	return nil
}

// flushRegisters writes back any dirty register category before a
// resume, per the ordering invariant in spec §5: "register writes are
// flushed before any resume."
func (p *Process) flushRegisters() error {
	if p.Regs.DirtyGPR() {
		gpr := bytesToPtraceRegs(p.Regs.GPRBytes())
		if err := unix.PtraceSetRegs(p.Pid, &gpr); err != nil {
			return primitives.Wrap(primitives.KindOS, component, err)
		}
	}
	if p.Regs.DirtyDR() {
		dr := p.Regs.DebugRegValues()
		for i, v := range dr {
			if err := p.pokeDebugReg(i, v); err != nil {
				return err
			}
		}
	}
	if p.Regs.DirtyFPR() {
		if err := p.setFPRegs(p.Regs.FPRBytes()); err != nil {
			return err
		}
	}
	p.Regs.ClearDirty()
	return nil
}

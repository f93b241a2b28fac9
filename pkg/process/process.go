// Package process implements the ptrace-driven process lifecycle
// described in spec §4.5: launch/attach, wait_on_signal and stop-reason
// classification, register and memory I/O, and the auxiliary vector,
// simplified to the main thread only per the single-threaded scheduling
// model in spec §5.
package process

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/registers"
)

const component = "process"

// State is the tracee's coarse lifecycle state, per spec §3.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateExited
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SyscallPolicy decides whether PTRACE_SYSCALL stops should be reported,
// per the syscall-catch policy named in spec §3.
type SyscallPolicy struct {
	CatchAll  bool
	Catch     map[uint64]bool
}

func (p SyscallPolicy) ShouldCatch(num uint64) bool {
	return p.CatchAll || p.Catch[num]
}

// installedSite records a software breakpoint byte installed in the
// tracee's memory: read_memory_without_traps uses this to mask 0xCC back
// to the original byte, per the invariant in spec §5. Ownership of the
// breakpoint abstractions themselves lives in pkg/stopoint; Process only
// needs to know which bytes it must unmask.
type installedSite struct {
	original byte
}

// Process is a single ptrace-controlled tracee, per spec §3's `process`
// data model restricted to its pid/state/registers/memory-IO
// responsibilities; the higher-level breakpoint and target abstractions
// are layered on top in pkg/stopoint and pkg/target.
type Process struct {
	Pid            int
	State          State
	IsAttached     bool
	TerminateOnEnd bool

	Regs *registers.Registers

	// TTY is the master end of the tracee's pseudo-terminal, set only
	// when Launch allocated one (see attachTTY). Callers needing raw
	// inferior I/O read and write through it directly.
	TTY *os.File

	SyscallPolicy SyscallPolicy

	auxv map[uint64]uint64

	installed map[uint64]installedSite

	lastSyscallWasEntry bool
	lastActiveHWSlot    uint8

	log *logrus.Entry
}

// Launch forks a child that calls PTRACE_TRACEME then execs cmd[0],
// optionally redirecting stdout/stderr, and waits for the initial
// SIGTRAP, per spec §4.5. Go's os/exec already implements the
// close-on-exec error pipe spec §6 describes: SysProcAttr.Ptrace causes
// the forked child to call ptrace(TRACEME) before exec, and exec.Cmd.Start
// propagates any pre-exec failure back through its own internal pipe.
func Launch(cmd []string, wd string, stdout, stderr *os.File, log *logrus.Entry) (*Process, error) {
	if len(cmd) == 0 {
		return nil, primitives.Newf(primitives.KindInvariant, component, "launch requires a command")
	}
	c := exec.Command(cmd[0], cmd[1:]...)
	c.Dir = wd
	c.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	var tty *os.File
	if stdout != nil || stderr != nil {
		c.Stdout = stdout
		c.Stderr = stderr
	} else {
		var err error
		tty, err = attachTTY(c)
		if err != nil && log != nil {
			log.WithError(err).Warn("failed to allocate a pty for the tracee, falling back to inherited stdio")
		}
	}

	if err := c.Start(); err != nil {
		return nil, primitives.Wrap(primitives.KindOS, component, err)
	}
	if slave, ok := c.Stdin.(*os.File); ok && tty != nil {
		slave.Close()
	}

	p := &Process{Pid: c.Process.Pid, IsAttached: true, TerminateOnEnd: true, Regs: registers.New(), log: log, installed: map[uint64]installedSite{}, TTY: tty}
	if _, err := unix.Wait4(p.Pid, nil, 0, nil); err != nil {
		return nil, primitives.Wrap(primitives.KindOS, component, err)
	}
	p.State = StateStopped
	if err := p.loadAuxv(); err != nil && log != nil {
		log.WithError(err).Warn("failed to read auxv")
	}
	if err := p.refreshRegisters(); err != nil {
		return nil, err
	}
	return p, nil
}

// Attach ptrace(ATTACH)es to an already-running pid and waits for it to
// stop, per spec §4.5.
func Attach(pid int, log *logrus.Entry) (*Process, error) {
	if err := unix.PtraceAttach(pid); err != nil {
		return nil, primitives.Wrap(primitives.KindOS, component, err)
	}
	p := &Process{Pid: pid, IsAttached: true, TerminateOnEnd: false, Regs: registers.New(), log: log, installed: map[uint64]installedSite{}}
	if _, err := unix.Wait4(p.Pid, nil, 0, nil); err != nil {
		return nil, primitives.Wrap(primitives.KindOS, component, err)
	}
	p.State = StateStopped
	if err := p.loadAuxv(); err != nil && log != nil {
		log.WithError(err).Warn("failed to read auxv")
	}
	if err := p.refreshRegisters(); err != nil {
		return nil, err
	}
	return p, nil
}

// Detach detaches from the tracee, optionally killing it first if
// terminate_on_end is set, per spec §3's teardown lifecycle.
func (p *Process) Detach() error {
	if p.TTY != nil {
		defer p.TTY.Close()
	}
	if p.State == StateExited || p.State == StateTerminated {
		return nil
	}
	if p.TerminateOnEnd {
		_ = p.Kill()
		return nil
	}
	if err := unix.PtraceDetach(p.Pid); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	return nil
}

// Kill sends SIGKILL and reaps the tracee.
func (p *Process) Kill() error {
	if p.State == StateExited || p.State == StateTerminated {
		return nil
	}
	if err := syscall.Kill(p.Pid, syscall.SIGKILL); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	unix.Wait4(p.Pid, nil, 0, nil)
	p.State = StateTerminated
	return nil
}

// GetPC returns the current value of RIP from the cached register state.
func (p *Process) GetPC() uint64 {
	v, _ := p.Regs.ReadUint(registers.RIP)
	return v
}

// SetPC writes RIP in the cache; the write is flushed on the next resume.
func (p *Process) SetPC(addr uint64) error {
	return p.Regs.WriteUint(registers.RIP, addr)
}

// Registers returns the cached register state, satisfying
// pkg/stopoint.Tracee's hardware-breakpoint slot access.
func (p *Process) Registers() *registers.Registers { return p.Regs }

func (p *Process) requireStopped(op string) error {
	if p.State != StateStopped {
		return primitives.Newf(primitives.KindTraceeState, component, "%s requires the tracee to be stopped, current state is %s", op, p.State)
	}
	return nil
}

// RegisterInstalledSite records the original byte at addr so
// ReadMemoryWithoutTraps can mask the breakpoint trap byte back out.
func (p *Process) RegisterInstalledSite(addr uint64, original byte) {
	p.installed[addr] = installedSite{original: original}
}

// UnregisterInstalledSite removes addr's masking entry once its
// breakpoint site is disabled or destroyed.
func (p *Process) UnregisterInstalledSite(addr uint64) {
	delete(p.installed, addr)
}


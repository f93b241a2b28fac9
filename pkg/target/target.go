// Package target implements the orchestrator described in spec §4.7:
// it composes pkg/process, pkg/elf, pkg/dwarf, and pkg/stopoint into
// source-level stepping, breakpoint resolution across loaded objects,
// and dynamic-linker rendezvous tracking.
package target

import (
	"github.com/sirupsen/logrus"

	"github.com/tracewell/tracewell/pkg/dwarf"
	"github.com/tracewell/tracewell/pkg/elf"
	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/process"
	"github.com/tracewell/tracewell/pkg/stopoint"
)

const component = "target"

// loadedObject pairs one ELF object with its (possibly symbol-only)
// DWARF data, per spec §3's "vector of elf objects."
type loadedObject struct {
	Elf   *elf.File
	Dwarf *dwarf.Data
}

// Target owns a process, every loaded ELF/DWARF object, a call-chain
// cursor, and the top-level breakpoint/watchpoint engine, per spec §3's
// `target` data model.
type Target struct {
	Process *process.Process
	Objects []*loadedObject
	Main    *loadedObject

	Breakpoints *stopoint.Engine
	stack       *Stack

	rendezvousAddr primitives.VirtAddr
	rendezvousBP   *stopoint.Breakpoint
	linkMap        map[uint64]*loadedObject // l_addr -> object, for unload detection

	log *logrus.Entry
}

// Launch starts cmd under ptrace, loads its main ELF/DWARF, and installs
// the dynamic-linker rendezvous breakpoint, per spec §4.5/§4.7.
func Launch(cmd []string, wd string, log *logrus.Entry) (*Target, error) {
	proc, err := process.Launch(cmd, wd, nil, nil, log)
	if err != nil {
		return nil, err
	}
	return newTarget(proc, cmd[0], log)
}

// Attach attaches to pid and loads path as its main ELF/DWARF.
func Attach(pid int, path string, log *logrus.Entry) (*Target, error) {
	proc, err := process.Attach(pid, log)
	if err != nil {
		return nil, err
	}
	return newTarget(proc, path, log)
}

func newTarget(proc *process.Process, mainPath string, log *logrus.Entry) (*Target, error) {
	ef, err := elf.Open(mainPath)
	if err != nil {
		return nil, err
	}
	if atEntry, ok := proc.EntryPoint(); ok {
		ef.NotifyLoadedFromEntry(atEntry)
	}
	dw, err := dwarf.Load(ef, log)
	if err != nil && primitives.IsFatal(err) {
		return nil, err
	}

	main := &loadedObject{Elf: ef, Dwarf: dw}
	t := &Target{
		Process:     proc,
		Objects:     []*loadedObject{main},
		Main:        main,
		Breakpoints: stopoint.NewEngine(proc),
		stack:       &Stack{},
		linkMap:     map[uint64]*loadedObject{},
		log:         log,
	}
	t.installRendezvousBreakpoint()
	return t, nil
}

// Detach tears the target down: it detaches (and optionally kills) the
// process, then unmaps every loaded ELF object.
func (t *Target) Detach() error {
	err := t.Process.Detach()
	for _, o := range t.Objects {
		o.Elf.Close()
	}
	return err
}

// GetPC returns the tracee's current program counter.
func (t *Target) GetPC() primitives.VirtAddr {
	return primitives.VirtAddr{Value: t.Process.GetPC()}
}

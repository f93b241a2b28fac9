package target

import (
	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/process"
)

// RunUntilAddress resumes the tracee and lets it run until it reaches v,
// per spec §4.7: if no breakpoint site already covers v, a temporary
// internal one is installed, the process resumed, and the resulting stop
// reported as a single-step once the temporary site is removed again.
func (t *Target) RunUntilAddress(v primitives.VirtAddr) (process.StopReason, error) {
	_, alreadyCovered := t.Breakpoints.SiteAt(v)

	var tempID int
	if !alreadyCovered {
		bp := t.Breakpoints.CreateInternalBreakpoint(v)
		if err := bp.Enable(t); err != nil {
			return process.StopReason{}, err
		}
		tempID = bp.ID
	}

	if err := t.Process.Resume(0); err != nil {
		return process.StopReason{}, err
	}
	reason, err := t.Process.WaitOnSignal()
	if err != nil {
		return reason, err
	}

	if reason.State == process.StateStopped && reason.TrapType == process.TrapSoftwareBreakpoint {
		reason.TrapType = process.TrapSingleStep
	}

	if tempID != 0 {
		if rerr := t.Breakpoints.RemoveBreakpoint(tempID); rerr != nil && err == nil {
			err = rerr
		}
	}
	return reason, err
}

package stopoint

import (
	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/registers"
)

// Engine owns every breakpoint and watchpoint for one tracee: the
// top-level `breakpoints` collection spec §3 names on Target, plus the
// id allocators shared across breakpoints, their child sites, and
// watchpoints.
type Engine struct {
	tracee Tracee

	Breakpoints *Collection[Breakpoint]
	Watchpoints *Collection[Watchpoint]

	nextBreakpointID int
	nextWatchpointID int
	nextSiteID       int
}

// NewEngine constructs an Engine bound to tracee's memory, registers,
// and installed-site registry.
func NewEngine(tracee Tracee) *Engine {
	return &Engine{
		tracee: tracee,
		Breakpoints: NewCollection[Breakpoint](
			func(b *Breakpoint) int { return b.ID },
			func(b *Breakpoint) primitives.VirtAddr { return b.primaryAddress() },
		),
		Watchpoints: NewCollection[Watchpoint](
			func(w *Watchpoint) int { return w.ID },
			func(w *Watchpoint) primitives.VirtAddr { return w.Address },
		),
	}
}

func (b *Breakpoint) primaryAddress() primitives.VirtAddr {
	if sites := b.Sites.All(); len(sites) > 0 {
		return sites[0].Address
	}
	return b.Address
}

// CreateAddressBreakpoint creates an unresolved, disabled breakpoint at
// a fixed virtual address.
func (e *Engine) CreateAddressBreakpoint(addr primitives.VirtAddr, hardware bool) *Breakpoint {
	e.nextBreakpointID++
	bp := newBreakpoint(e.nextBreakpointID, KindAddress, e.tracee, &e.nextSiteID)
	bp.Address = addr
	bp.Hardware = hardware
	e.Breakpoints.Add(bp)
	return bp
}

// CreateFunctionBreakpoint creates a breakpoint that resolves to every
// function with the given name, across every loaded object.
func (e *Engine) CreateFunctionBreakpoint(name string, hardware bool) *Breakpoint {
	e.nextBreakpointID++
	bp := newBreakpoint(e.nextBreakpointID, KindFunction, e.tracee, &e.nextSiteID)
	bp.Function = name
	bp.Hardware = hardware
	e.Breakpoints.Add(bp)
	return bp
}

// CreateLineBreakpoint creates a breakpoint that resolves to every line
// table entry matching file:line.
func (e *Engine) CreateLineBreakpoint(file string, line int, hardware bool) *Breakpoint {
	e.nextBreakpointID++
	bp := newBreakpoint(e.nextBreakpointID, KindLine, e.tracee, &e.nextSiteID)
	bp.File, bp.Line = file, line
	bp.Hardware = hardware
	e.Breakpoints.Add(bp)
	return bp
}

// CreateInternalBreakpoint creates an always-software, internal address
// breakpoint, used by run_until_address and the rendezvous breakpoint.
func (e *Engine) CreateInternalBreakpoint(addr primitives.VirtAddr) *Breakpoint {
	bp := e.CreateAddressBreakpoint(addr, false)
	bp.Internal = true
	return bp
}

// RemoveBreakpoint disables and forgets a breakpoint.
func (e *Engine) RemoveBreakpoint(id int) error {
	bp, ok := e.Breakpoints.ByID(id)
	if !ok {
		return nil
	}
	if err := bp.Disable(); err != nil {
		return err
	}
	e.Breakpoints.Remove(id)
	return nil
}

// CreateWatchpoint creates and returns a new, disabled watchpoint.
func (e *Engine) CreateWatchpoint(addr primitives.VirtAddr, mode registers.WatchMode, size int) *Watchpoint {
	e.nextWatchpointID++
	wp := newWatchpoint(e.nextWatchpointID, addr, mode, size, e.tracee)
	e.Watchpoints.Add(wp)
	return wp
}

// RemoveWatchpoint disables and forgets a watchpoint.
func (e *Engine) RemoveWatchpoint(id int) error {
	wp, ok := e.Watchpoints.ByID(id)
	if !ok {
		return nil
	}
	if err := wp.Disable(); err != nil {
		return err
	}
	e.Watchpoints.Remove(id)
	return nil
}

// ResolveAll re-resolves every breakpoint against r, called after every
// dynamic-linker rendezvous stop per spec §4.6.
func (e *Engine) ResolveAll(r Resolver) error {
	for _, bp := range e.Breakpoints.All() {
		if err := bp.Resolve(r); err != nil {
			return err
		}
	}
	return nil
}

// SiteAt looks up the breakpoint site installed at addr, across every
// breakpoint, used by pkg/target's RunUntilAddress and step-over-site logic.
func (e *Engine) SiteAt(addr primitives.VirtAddr) (*BreakpointSite, bool) {
	for _, bp := range e.Breakpoints.All() {
		if site, ok := bp.Sites.ByAddress(addr); ok {
			return site, true
		}
	}
	return nil, false
}

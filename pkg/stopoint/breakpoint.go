package stopoint

import "github.com/tracewell/tracewell/pkg/primitives"

// Kind distinguishes the three concrete breakpoint flavors named in spec
// §3: address, function-name, source-line. A tagged variant dispatching
// on Kind stands in for the abstract-base-with-virtual-resolve() shape
// of the original design, per spec §9's design notes.
type Kind int

const (
	KindAddress Kind = iota
	KindFunction
	KindLine
)

// Resolver turns a breakpoint's logical target into zero or more
// concrete virtual addresses across every currently loaded object. It
// is implemented by pkg/target, which owns the set of loaded ELF/DWARF
// objects; pkg/stopoint stays ignorant of ELF and DWARF entirely.
type Resolver interface {
	ResolveFunction(name string) ([]primitives.VirtAddr, error)
	ResolveLine(file string, line int) ([]primitives.VirtAddr, error)
}

// Breakpoint is the abstract breakpoint of spec §3: `{id, target*,
// enabled, hardware, internal, resolve()}`, owning a child collection of
// BreakpointSites, one per materialized address.
type Breakpoint struct {
	ID       int
	Kind     Kind
	Address  primitives.VirtAddr // KindAddress
	Function string              // KindFunction
	File     string              // KindLine
	Line     int                 // KindLine

	Enabled  bool
	Hardware bool
	Internal bool

	Sites *Collection[BreakpointSite]

	tracee  Tracee
	nextSID *int
}

func newBreakpoint(id int, kind Kind, tracee Tracee, nextSID *int) *Breakpoint {
	return &Breakpoint{
		ID:      id,
		Kind:    kind,
		tracee:  tracee,
		nextSID: nextSID,
		Sites: NewCollection[BreakpointSite](
			func(s *BreakpointSite) int { return s.ID },
			func(s *BreakpointSite) primitives.VirtAddr { return s.Address },
		),
	}
}

// Resolve recomputes this breakpoint's desired addresses against r,
// materializing BreakpointSites for addresses not yet covered and
// dropping sites for addresses no longer reachable (e.g. a library that
// has since been unloaded), per spec §4.6: "Breakpoints are resolved
// before enablement" and the library-load rendezvous behavior of
// re-resolve-on-every-stop.
func (b *Breakpoint) Resolve(r Resolver) error {
	var want []primitives.VirtAddr
	switch b.Kind {
	case KindAddress:
		want = []primitives.VirtAddr{b.Address}
	case KindFunction:
		addrs, err := r.ResolveFunction(b.Function)
		if err != nil {
			return err
		}
		want = addrs
	case KindLine:
		addrs, err := r.ResolveLine(b.File, b.Line)
		if err != nil {
			return err
		}
		want = addrs
	}

	wantSet := make(map[primitives.VirtAddr]bool, len(want))
	for _, a := range want {
		wantSet[a] = true
	}

	for _, site := range b.Sites.All() {
		if !wantSet[site.Address] {
			if site.Enabled {
				site.Disable()
			}
			b.Sites.Remove(site.ID)
		}
	}

	for _, a := range want {
		if _, ok := b.Sites.ByAddress(a); ok {
			continue
		}
		*b.nextSID++
		site := newBreakpointSite(*b.nextSID, a, b.tracee, b.Hardware, b.Internal)
		b.Sites.Add(site)
		if b.Enabled {
			if err := site.Enable(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Enable resolves this breakpoint's sites (if not already) and enables
// every one of them.
func (b *Breakpoint) Enable(r Resolver) error {
	b.Enabled = true
	if err := b.Resolve(r); err != nil {
		return err
	}
	for _, site := range b.Sites.All() {
		if err := site.Enable(); err != nil {
			return err
		}
	}
	return nil
}

// Disable disables every materialized site without forgetting them, so
// a subsequent Enable reinstalls at the same addresses without
// re-resolving from scratch.
func (b *Breakpoint) Disable() error {
	b.Enabled = false
	for _, site := range b.Sites.All() {
		if err := site.Disable(); err != nil {
			return err
		}
	}
	return nil
}

package process

import (
	"testing"

	"github.com/tracewell/tracewell/pkg/registers"
)

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateStopped:    "stopped",
		StateRunning:    "running",
		StateExited:     "exited",
		StateTerminated: "terminated",
		State(99):       "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestSyscallPolicy_ShouldCatch(t *testing.T) {
	p := SyscallPolicy{CatchAll: false, Catch: map[uint64]bool{59: true}}
	if !p.ShouldCatch(59) {
		t.Fatalf("expected an explicitly listed syscall to be caught")
	}
	if p.ShouldCatch(60) {
		t.Fatalf("expected an unlisted syscall to pass through")
	}

	all := SyscallPolicy{CatchAll: true}
	if !all.ShouldCatch(60) {
		t.Fatalf("CatchAll should catch every syscall number")
	}
}

func TestProcess_RequireStopped(t *testing.T) {
	p := &Process{State: StateRunning}
	if err := p.requireStopped("single-step"); err == nil {
		t.Fatalf("expected an error while running")
	}
	p.State = StateStopped
	if err := p.requireStopped("single-step"); err != nil {
		t.Fatalf("requireStopped: %v", err)
	}
}

func TestProcess_GetSetPC(t *testing.T) {
	p := &Process{Regs: registers.New()}
	if err := p.SetPC(0x401000); err != nil {
		t.Fatalf("SetPC: %v", err)
	}
	if got := p.GetPC(); got != 0x401000 {
		t.Fatalf("GetPC() = 0x%x, want 0x401000", got)
	}
}

func TestProcess_AuxvAndEntryPoint(t *testing.T) {
	p := &Process{auxv: map[uint64]uint64{atEntry: 0x555000}}
	if v, ok := p.Auxv(atEntry); !ok || v != 0x555000 {
		t.Fatalf("Auxv(atEntry) = 0x%x, %v", v, ok)
	}
	if _, ok := p.Auxv(12345); ok {
		t.Fatalf("expected an absent tag to report ok=false")
	}
	entry, ok := p.EntryPoint()
	if !ok || entry != 0x555000 {
		t.Fatalf("EntryPoint() = 0x%x, %v", entry, ok)
	}
}

func TestProcess_InstalledSiteRegistration(t *testing.T) {
	p := &Process{installed: map[uint64]installedSite{}}
	p.RegisterInstalledSite(0x401000, 0x90)
	if got := p.installed[0x401000]; got.original != 0x90 {
		t.Fatalf("got original byte 0x%x, want 0x90", got.original)
	}
	p.UnregisterInstalledSite(0x401000)
	if _, ok := p.installed[0x401000]; ok {
		t.Fatalf("expected the installed-site entry to be gone")
	}
}

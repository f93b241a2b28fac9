package registers

import "testing"

func TestByName_KnownRegisters(t *testing.T) {
	for _, name := range []string{"rax", "rip", "rsp", "rbp", "al", "ah", "dr0", "dr7"} {
		info, ok := ByName(name)
		if !ok {
			t.Fatalf("expected %s to be registered", name)
		}
		if info.Name != name {
			t.Fatalf("ByName(%s).Name = %s", name, info.Name)
		}
	}
}

func TestByDwarf_MatchesGPRNumbering(t *testing.T) {
	// per the x86-64 DWARF register numbering, rax is 0 and rdx is 1.
	rax, ok := ByDwarf(0)
	if !ok || rax.Name != "rax" {
		t.Fatalf("DWARF register 0 should be rax, got %+v", rax)
	}
	rdx, ok := ByDwarf(1)
	if !ok || rdx.Name != "rdx" {
		t.Fatalf("DWARF register 1 should be rdx, got %+v", rdx)
	}
}

func TestByDwarf_SubGPRsHaveNoDwarfEntry(t *testing.T) {
	if _, ok := ByDwarf(DwarfNone); ok {
		t.Fatalf("DwarfNone should never resolve to a register")
	}
}

func TestSubGPR_OffsetsNestWithinGPR(t *testing.T) {
	rax, _ := ByName("rax")
	eax, _ := ByName("eax")
	al, _ := ByName("al")
	ah, _ := ByName("ah")
	if eax.Offset != rax.Offset {
		t.Fatalf("eax should alias rax's low bytes")
	}
	if al.Offset != rax.Offset {
		t.Fatalf("al should alias rax's lowest byte")
	}
	if ah.Offset != rax.Offset+1 {
		t.Fatalf("ah should sit one byte above rax's base")
	}
}

func TestDebugRegOffset_Spacing(t *testing.T) {
	dr0, _ := ByName("dr0")
	if got := DebugRegOffset(0); got != dr0.Offset {
		t.Fatalf("DebugRegOffset(0) = %d, want %d", got, dr0.Offset)
	}
	if DebugRegOffset(1)-DebugRegOffset(0) != 8 {
		t.Fatalf("debug registers should be spaced 8 bytes apart")
	}
}

func TestAll_CoversEveryAddedRegister(t *testing.T) {
	if len(All()) != len(byID) {
		t.Fatalf("All() should return every registered row")
	}
}

package registers

import "testing"

func TestRegisters_ReadWriteUint_GPR(t *testing.T) {
	r := New()
	if err := r.WriteUint(RAX, 0x1122334455667788); err != nil {
		t.Fatalf("WriteUint: %v", err)
	}
	v, err := r.ReadUint(RAX)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if v != 0x1122334455667788 {
		t.Fatalf("ReadUint(RAX) = 0x%x", v)
	}
	if !r.DirtyGPR() {
		t.Fatalf("expected WriteUint to mark the GPR cache dirty")
	}
}

func TestRegisters_WriteUint_SubGPRPreservesContainingWord(t *testing.T) {
	r := New()
	if err := r.WriteUint(RAX, 0x1122334455667788); err != nil {
		t.Fatalf("WriteUint: %v", err)
	}
	if err := r.WriteUint(AL, 0xFF); err != nil {
		t.Fatalf("WriteUint(AL): %v", err)
	}
	v, err := r.ReadUint(RAX)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if v != 0x11223344556677FF {
		t.Fatalf("ReadUint(RAX) after writing AL = 0x%x, want the low byte replaced only", v)
	}
}

func TestRegisters_ReadUint_UnknownIDIsError(t *testing.T) {
	r := New()
	if _, err := r.ReadUint(ID(0xFFFF)); err == nil {
		t.Fatalf("expected an error for an unknown register id")
	}
}

func TestRegisters_ReadDouble_WrongFormatIsError(t *testing.T) {
	r := New()
	if _, err := r.ReadDouble(RAX); err == nil {
		t.Fatalf("expected an error reading a GPR as a double")
	}
}

func TestRegisters_ReadVector_WrongFormatIsError(t *testing.T) {
	r := New()
	if _, err := r.ReadVector(RAX); err == nil {
		t.Fatalf("expected an error reading a GPR as a vector")
	}
}

func TestRegisters_WriteDouble_WrongFormatIsError(t *testing.T) {
	r := New()
	if err := r.WriteDouble(RAX, 1.5); err == nil {
		t.Fatalf("expected an error writing a double into a GPR")
	}
}

func TestRegisters_ByDwarf_ReadsThroughID(t *testing.T) {
	r := New()
	if err := r.WriteUint(RAX, 42); err != nil {
		t.Fatalf("WriteUint: %v", err)
	}
	v, err := r.ReadByDwarf(0) // rax is DWARF register 0
	if err != nil {
		t.Fatalf("ReadByDwarf: %v", err)
	}
	if v != 42 {
		t.Fatalf("ReadByDwarf(0) = %d, want 42", v)
	}
}

func TestRegisters_ByDwarf_UnknownNumberIsError(t *testing.T) {
	r := New()
	if _, err := r.ReadByDwarf(999); err == nil {
		t.Fatalf("expected an error for an unmapped DWARF register number")
	}
}

func TestRegisters_ClearDirty(t *testing.T) {
	r := New()
	r.WriteUint(RAX, 1)
	r.ClearDirty()
	if r.DirtyGPR() || r.DirtyDR() || r.DirtyFPR() {
		t.Fatalf("expected ClearDirty to reset every dirty flag")
	}
}

func TestRegisters_GPRBytesRoundTrip(t *testing.T) {
	r := New()
	r.WriteUint(RAX, 0xdeadbeef)
	saved := append([]byte(nil), r.GPRBytes()...)
	r2 := New()
	r2.LoadGPR(saved)
	v, err := r2.ReadUint(RAX)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if v != 0xdeadbeef {
		t.Fatalf("ReadUint after LoadGPR round-trip = 0x%x", v)
	}
	if r2.DirtyGPR() {
		t.Fatalf("LoadGPR should clear the dirty flag")
	}
}

func TestRegisters_ReadWriteDouble_FPR(t *testing.T) {
	r := New()
	if err := r.WriteDouble(XMM0D, 3.5); err != nil {
		t.Fatalf("WriteDouble: %v", err)
	}
	v, err := r.ReadDouble(XMM0D)
	if err != nil {
		t.Fatalf("ReadDouble: %v", err)
	}
	if v != 3.5 {
		t.Fatalf("ReadDouble(XMM0D) = %v, want 3.5", v)
	}
	if !r.DirtyFPR() {
		t.Fatalf("expected WriteDouble to mark the FPR cache dirty")
	}
}

func TestRegisters_ReadVector_FPR(t *testing.T) {
	r := New()
	info := ByID(XMM1)
	buf := make([]byte, info.Size)
	for i := range buf {
		buf[i] = byte(i + 1)
	}
	copy(r.bytesFor(info), buf)
	got, err := r.ReadVector(XMM1)
	if err != nil {
		t.Fatalf("ReadVector: %v", err)
	}
	if len(got) != len(buf) {
		t.Fatalf("ReadVector length = %d, want %d", len(got), len(buf))
	}
	for i := range buf {
		if got[i] != buf[i] {
			t.Fatalf("ReadVector(XMM1)[%d] = %d, want %d", i, got[i], buf[i])
		}
	}
}

func TestRegisters_FPRBytesRoundTrip(t *testing.T) {
	r := New()
	if err := r.WriteDouble(XMM2D, 1.25); err != nil {
		t.Fatalf("WriteDouble: %v", err)
	}
	saved := append([]byte(nil), r.FPRBytes()...)
	r2 := New()
	r2.LoadFPR(saved)
	v, err := r2.ReadDouble(XMM2D)
	if err != nil {
		t.Fatalf("ReadDouble: %v", err)
	}
	if v != 1.25 {
		t.Fatalf("ReadDouble after LoadFPR round-trip = %v, want 1.25", v)
	}
	if r2.DirtyFPR() {
		t.Fatalf("LoadFPR should clear the dirty flag")
	}
}

func TestRegisters_DebugRegValuesRoundTrip(t *testing.T) {
	r := New()
	r.LoadDebugRegs([8]uint64{1, 2, 3, 4, 5, 6, 7, 8})
	got := r.DebugRegValues()
	for i, want := range []uint64{1, 2, 3, 4, 5, 6, 7, 8} {
		if got[i] != want {
			t.Fatalf("DebugRegValues()[%d] = %d, want %d", i, got[i], want)
		}
	}
	if r.DirtyDR() {
		t.Fatalf("LoadDebugRegs should clear the dirty flag")
	}
}

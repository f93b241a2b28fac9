package registers

import "testing"

func TestAllocateSlot_ProgramsDR7AndAddress(t *testing.T) {
	r := New()
	idx, err := r.AllocateSlot(0x401000, WatchWrite, 4)
	if err != nil {
		t.Fatalf("AllocateSlot: %v", err)
	}
	if r.SlotAddress(idx) != 0x401000 {
		t.Fatalf("SlotAddress(%d) = 0x%x, want 0x401000", idx, r.SlotAddress(idx))
	}
	addr, mode, size, enabled := r.slotInfo(idx)
	if !enabled || addr != 0x401000 || mode != WatchWrite || size != 4 {
		t.Fatalf("slotInfo(%d) = addr=0x%x mode=%v size=%d enabled=%v", idx, addr, mode, size, enabled)
	}
}

func TestAllocateSlot_FillsSlotsInOrderThenExhausts(t *testing.T) {
	r := New()
	for i := 0; i < 4; i++ {
		idx, err := r.AllocateSlot(uint64(0x1000+i), WatchExecute, 1)
		if err != nil {
			t.Fatalf("AllocateSlot(%d): %v", i, err)
		}
		if idx != uint8(i) {
			t.Fatalf("AllocateSlot(%d) returned slot %d, want %d", i, idx, i)
		}
	}
	if _, err := r.AllocateSlot(0x9999, WatchExecute, 1); err == nil {
		t.Fatalf("expected an error once all four slots are in use")
	}
}

func TestReleaseSlot_FreesItForReuse(t *testing.T) {
	r := New()
	idx, err := r.AllocateSlot(0x401000, WatchReadWrite, 8)
	if err != nil {
		t.Fatalf("AllocateSlot: %v", err)
	}
	r.ReleaseSlot(idx)
	if _, _, _, enabled := r.slotInfo(idx); enabled {
		t.Fatalf("expected slot %d to be disabled after ReleaseSlot", idx)
	}
	again, err := r.AllocateSlot(0x402000, WatchExecute, 1)
	if err != nil {
		t.Fatalf("AllocateSlot after release: %v", err)
	}
	if again != idx {
		t.Fatalf("expected the released slot %d to be reused, got %d", idx, again)
	}
}

func TestAllocateSlot_RejectsUnsupportedSize(t *testing.T) {
	r := New()
	if _, err := r.AllocateSlot(0x401000, WatchWrite, 3); err == nil {
		t.Fatalf("expected an error for an unsupported watch size")
	}
}

func TestActiveSlot_ReportsAndClearsDR6(t *testing.T) {
	r := New()
	r.WriteUint(DR6, 0x4) // bit 2 set: slot 2 tripped
	idx, ok := r.ActiveSlot()
	if !ok || idx != 2 {
		t.Fatalf("ActiveSlot() = %d, %v, want 2, true", idx, ok)
	}
	dr6, _ := r.ReadUint(DR6)
	if dr6&0xf != 0 {
		t.Fatalf("expected ActiveSlot to clear the condition bits, DR6 = 0x%x", dr6)
	}
}

func TestActiveSlot_NoneTrippedIsFalse(t *testing.T) {
	r := New()
	if _, ok := r.ActiveSlot(); ok {
		t.Fatalf("expected ActiveSlot to report false when DR6 has no condition bits set")
	}
}

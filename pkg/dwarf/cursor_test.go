package dwarf

import "testing"

func TestCursor_FixedWidthReads(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x00, 0x03, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	if v := c.U8(); v != 0x01 {
		t.Fatalf("U8 = 0x%x, want 0x01", v)
	}
	if v := c.U16(); v != 0x0002 {
		t.Fatalf("U16 = 0x%x, want 0x0002", v)
	}
	if v := c.U32(); v != 0x00000003 {
		t.Fatalf("U32 = 0x%x, want 0x00000003", v)
	}
	if v := c.U64(); v != 0x0000000000000004 {
		t.Fatalf("U64 = 0x%x, want 4", v)
	}
	if !c.AtEnd() {
		t.Fatalf("expected the cursor to be exhausted")
	}
}

func TestCursor_ULEBAndSLEB(t *testing.T) {
	c := NewCursor(concat(uleb(624485), []byte{0x7e})) // 624485, then SLEB128(-2)
	if v := c.ULEB(); v != 624485 {
		t.Fatalf("ULEB = %d, want 624485", v)
	}
	if v := c.SLEB(); v != -2 {
		t.Fatalf("SLEB = %d, want -2", v)
	}
}

func TestCursor_CString(t *testing.T) {
	c := NewCursor(concat(cstr("hello"), []byte{0xAA}))
	if s := c.CString(); s != "hello" {
		t.Fatalf("CString = %q, want hello", s)
	}
	if v := c.U8(); v != 0xAA {
		t.Fatalf("byte after CString = 0x%x, want 0xAA", v)
	}
}

func TestCursor_CStringWithoutTerminatorConsumesToEnd(t *testing.T) {
	c := NewCursor([]byte("noterm"))
	if s := c.CString(); s != "noterm" {
		t.Fatalf("CString = %q, want noterm", s)
	}
	if !c.AtEnd() {
		t.Fatalf("expected the cursor to have consumed every remaining byte")
	}
}

func TestCursor_SetPosAndSkip(t *testing.T) {
	c := NewCursor([]byte{0, 1, 2, 3, 4})
	c.SetPos(2)
	if c.Pos() != 2 {
		t.Fatalf("Pos() = %d, want 2", c.Pos())
	}
	c.Skip(2)
	if v := c.U8(); v != 4 {
		t.Fatalf("U8 after Skip = %d, want 4", v)
	}
}

func TestCursor_SkipForm(t *testing.T) {
	cases := []struct {
		name string
		form Form
		data []byte
		want int
	}{
		{"addr", FormAddr, make([]byte, 8), 8},
		{"data1", FormData1, []byte{0x42}, 1},
		{"data2", FormData2, []byte{0x00, 0x00}, 2},
		{"ref4", FormRef4, []byte{0, 0, 0, 0}, 4},
		{"data8", FormData8, make([]byte, 8), 8},
		{"string", FormString, cstr("x"), 2},
		{"udata", FormUdata, uleb(300), 2},
		{"block1", FormBlock1, concat([]byte{3}, []byte{1, 2, 3}), 4},
		{"flag_present", FormFlagPresent, nil, 0},
	}
	for _, tc := range cases {
		c := NewCursor(append(tc.data, 0xFF)) // sentinel trailing byte
		if err := c.SkipForm(tc.form, 8); err != nil {
			t.Fatalf("%s: SkipForm: %v", tc.name, err)
		}
		if c.Pos() != tc.want {
			t.Fatalf("%s: Pos() after SkipForm = %d, want %d", tc.name, c.Pos(), tc.want)
		}
	}
}

func TestCursor_SkipForm_Indirect(t *testing.T) {
	// FormIndirect is followed by a ULEB form code, then that form's value.
	c := NewCursor(concat(uleb(uint64(FormData1)), []byte{0x99}))
	if err := c.SkipForm(FormIndirect, 8); err != nil {
		t.Fatalf("SkipForm: %v", err)
	}
	if !c.AtEnd() {
		t.Fatalf("expected SkipForm(FormIndirect) to consume the form code plus its value")
	}
}

func TestCursor_SkipForm_UnknownFormIsFatal(t *testing.T) {
	c := NewCursor([]byte{0})
	if err := c.SkipForm(Form(0xFFFF), 8); err == nil {
		t.Fatalf("expected an unknown form to be a fatal error")
	}
}

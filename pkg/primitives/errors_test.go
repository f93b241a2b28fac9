package primitives

import (
	"errors"
	"testing"
)

func TestWrap_NilIsNil(t *testing.T) {
	if Wrap(KindOS, "test", nil) != nil {
		t.Fatalf("Wrap(nil) should return nil")
	}
}

func TestIsFatal_ByKind(t *testing.T) {
	cases := []struct {
		kind  Kind
		fatal bool
	}{
		{KindOS, false},
		{KindParse, true},
		{KindLookup, false},
		{KindInvariant, true},
		{KindTraceeState, false},
	}
	for _, c := range cases {
		err := Newf(c.kind, "test", "boom")
		if got := IsFatal(err); got != c.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", c.kind, got, c.fatal)
		}
	}
}

func TestIsFatal_PlainErrorsNewDoesNotUnwrap(t *testing.T) {
	inner := Newf(KindParse, "dwarf", "bad form")
	outer := errors.New("wrapper: " + inner.Error())
	if IsFatal(outer) {
		t.Fatalf("a plain errors.New should never be fatal since it doesn't unwrap")
	}
	wrapped := Wrap(KindOS, "process", inner)
	if !errors.Is(wrapped, wrapped) {
		t.Fatalf("sanity: wrapped should equal itself")
	}
}

func TestError_FormatsWithAndWithoutPath(t *testing.T) {
	e := &Error{Kind: KindOS, Component: "elf", Err: errors.New("boom")}
	if got := e.Error(); got != "elf: os: boom" {
		t.Fatalf("got %q", got)
	}
	e.Path = "/bin/hello"
	if got := e.Error(); got != "elf: os: boom (/bin/hello)" {
		t.Fatalf("got %q", got)
	}
}

func TestMemcpyBits_ExtractsUnalignedBits(t *testing.T) {
	// 0b1011_0010: bits 1..3 (0-indexed from LSB) are 1,0,0 -> value 1
	src := []byte{0b10110010}
	got := MemcpyBits(src, 1, 3, 1)
	want := []byte{0b00000001}
	if got[0] != want[0] {
		t.Fatalf("got %08b, want %08b", got[0], want[0])
	}
}

func TestMemcpyBits_SpansByteBoundary_ErrorsFile(t *testing.T) {
	src := []byte{0xFF, 0x00}
	got := MemcpyBits(src, 4, 8, 1)
	if got[0] != 0x0F {
		t.Fatalf("got 0x%02x, want 0x0f", got[0])
	}
}
